package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"DB"`
	Logger   LoggerConfig   `envconfig:"LOG"`
	Auth     AuthConfig     `envconfig:"AUTH"`
	Storage  StorageConfig  `envconfig:"STORAGE"`
	Catalog  CatalogConfig  `envconfig:"CATALOG"`
	Coupons  CouponConfig   `envconfig:"COUPON"`
	S3       S3Config       `envconfig:"S3"`
	Checkout CheckoutConfig `envconfig:"CHECKOUT"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"PORT" default:"8080"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `envconfig:"HOST" default:"localhost"`
	Port            int    `envconfig:"PORT" default:"5432"`
	User            string `envconfig:"USER" default:"postgres"`
	Password        string `envconfig:"PASSWORD"`
	Database        string `envconfig:"NAME" default:"freshmart"`
	MaxConnections  int    `envconfig:"MAX_CONNECTIONS" default:"25"`
	MinConnections  int    `envconfig:"MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime int    `envconfig:"MAX_CONN_LIFETIME" default:"300"` // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"` // "json" or "console"
}

// AuthConfig holds API key, session token and mock OTP configuration.
type AuthConfig struct {
	APIKey         string        `envconfig:"API_KEY"`
	SessionSecret  string        `envconfig:"SESSION_SECRET"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	SessionIdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL" default:"1h"`
	OTPDelay       time.Duration `envconfig:"OTP_DELAY" default:"1s"`
	OTPResendAfter time.Duration `envconfig:"OTP_RESEND_AFTER" default:"30s"`
	OTPBypassCode  string        `envconfig:"OTP_BYPASS_CODE" default:"123456"`
	OTPCodeTTL     time.Duration `envconfig:"OTP_CODE_TTL" default:"10m"`
}

// StorageConfig selects the key-value driver session state is persisted to.
type StorageConfig struct {
	Driver        string `envconfig:"DRIVER" default:"sqlite"` // memory, sqlite, postgres, redis, mongo
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"data/freshmart.db"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"freshmart"`
}

// CatalogConfig selects where the product catalogue is read from.
type CatalogConfig struct {
	Source string `envconfig:"SOURCE" default:"embedded"` // embedded, file, postgres
	File   string `envconfig:"FILE"`
}

// CouponConfig lists optional coupon table files merged over the defaults.
type CouponConfig struct {
	Files           []string `envconfig:"FILES"`
	IncludeDefaults bool     `envconfig:"INCLUDE_DEFAULTS" default:"true"`
}

// S3Config holds AWS S3 configuration for coupon files.
type S3Config struct {
	Enabled bool   `envconfig:"ENABLED" default:"false"`
	Bucket  string `envconfig:"BUCKET"`
	Region  string `envconfig:"REGION" default:"us-east-1"`
	Prefix  string `envconfig:"PREFIX" default:"coupons/"` // Path prefix within bucket
}

// CheckoutConfig holds the simulated payment processing delay.
type CheckoutConfig struct {
	Delay time.Duration `envconfig:"DELAY" default:"2s"`
}

// Load loads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Read loads configuration like Load but skips validation. Offline tools
// use it because they need no API key or session secret.
func Read() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("session secret must be at least 32 characters")
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Auth.OTPDelay < 0 || c.Auth.OTPResendAfter < 0 || c.Auth.OTPCodeTTL < 0 || c.Auth.SessionIdleTTL < 0 || c.Checkout.Delay < 0 {
		return fmt.Errorf("delays cannot be negative")
	}

	if len(c.Auth.OTPBypassCode) != 6 {
		return fmt.Errorf("OTP bypass code must be 6 digits")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	switch c.Storage.Driver {
	case "memory", "redis", "mongo":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite driver")
		}
	case "postgres":
		if err := c.Database.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be memory, sqlite, postgres, redis, or mongo)", c.Storage.Driver)
	}

	switch c.Catalog.Source {
	case "embedded":
	case "file":
		if c.Catalog.File == "" {
			return fmt.Errorf("catalog file is required when catalog source is file")
		}
	case "postgres":
		if err := c.Database.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid catalog source: %s (must be embedded, file, or postgres)", c.Catalog.Source)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

// UsesPostgres reports whether any component needs a database pool.
func (c *Config) UsesPostgres() bool {
	return c.Storage.Driver == "postgres" || c.Catalog.Source == "postgres"
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
