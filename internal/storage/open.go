package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"freshmart/internal/config"
	"freshmart/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Open returns the store selected by cfg.Driver. For the postgres driver a
// shared pool may be passed in; otherwise one is created and owned by the
// store.
func Open(ctx context.Context, cfg config.StorageConfig, dbCfg config.DatabaseConfig, pool *pgxpool.Pool, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "storage").Logger()

	switch cfg.Driver {
	case "memory":
		logger.Warn().Msg("using in-memory storage, session state will not survive a restart")
		return NewMemoryStore(), nil

	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		return NewSQLiteStore(ctx, cfg.SQLitePath, logger)

	case "postgres":
		owns := false
		if pool == nil {
			p, err := database.NewPool(ctx, dbCfg, logger)
			if err != nil {
				return nil, err
			}
			pool, owns = p, true
		}
		s, err := NewPostgresStore(ctx, pool, owns, logger)
		if err != nil && owns {
			pool.Close()
		}
		return s, err

	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)

	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
