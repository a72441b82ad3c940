package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freshmart/internal/auth"
	"freshmart/internal/catalog"
	"freshmart/internal/checkout"
	"freshmart/internal/config"
	"freshmart/internal/coupon"
	"freshmart/internal/database"
	"freshmart/internal/router"
	"freshmart/internal/session"
	"freshmart/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting freshmart API server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The pool is shared by the postgres store and the postgres catalogue.
	var pool *pgxpool.Pool
	if cfg.UsesPostgres() {
		pool, err = database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to initialise database: %w", err)
		}
		defer pool.Close()
	}

	store, err := storage.Open(ctx, cfg.Storage, cfg.Database, pool, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close storage")
		}
	}()

	products, err := catalog.Open(ctx, cfg.Catalog, pool, logger)
	if err != nil {
		return fmt.Errorf("failed to load catalogue: %w", err)
	}

	coupons, err := coupon.Open(ctx, cfg.Coupons, cfg.S3, logger)
	if err != nil {
		return fmt.Errorf("failed to build coupon table: %w", err)
	}

	identity := auth.NewProvider(auth.ProviderConfig{
		Delay:       cfg.Auth.OTPDelay,
		ResendAfter: cfg.Auth.OTPResendAfter,
		BypassCode:  cfg.Auth.OTPBypassCode,
		CodeTTL:     cfg.Auth.OTPCodeTTL,
	}, logger)

	sessions := session.NewManager(session.Deps{
		Store:    store,
		Catalog:  products,
		Coupons:  coupons,
		Identity: identity,
		Tokens:   auth.NewTokens(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL),
		Checkout: checkout.Config{Delay: cfg.Checkout.Delay},
		Logger:   logger,
		IdleTTL:  cfg.Auth.SessionIdleTTL,
	})

	mux := router.New(sessions, router.Options{
		APIKey:         cfg.Auth.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	// Checkout holds a request open for the payment delay, so the write
	// timeout must exceed it.
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.Checkout.Delay,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("storage", cfg.Storage.Driver).
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sessions.RunEviction(gctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Int("sessions", sessions.Len()).Msg("server shutdown completed")
		return nil
	})

	return g.Wait()
}
