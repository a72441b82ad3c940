package catalog

import (
	"context"
	"fmt"

	"freshmart/internal/config"
	"freshmart/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Open builds the Provider selected by cfg.Source. pool is only used by the
// postgres source.
func Open(ctx context.Context, cfg config.CatalogConfig, pool *pgxpool.Pool, logger zerolog.Logger) (Provider, error) {
	logger = logger.With().Str("component", "catalog").Logger()

	var src Source
	switch cfg.Source {
	case "", "embedded":
		src = EmbeddedSource()
	case "file":
		src = FileSource(cfg.File)
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("postgres catalogue requires a database pool")
		}
		if err := database.Migrate(ctx, pool, logger, PostgresSchema); err != nil {
			return nil, err
		}
		src = PostgresSource(pool, logger)
	default:
		return nil, fmt.Errorf("unknown catalogue source %q", cfg.Source)
	}

	p, err := New(ctx, src)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("source", cfg.Source).
		Int("products", len(p.All())).
		Msg("catalogue ready")

	return p, nil
}
