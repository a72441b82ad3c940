package coupon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TableConfig holds configuration for building the coupon table.
type TableConfig struct {
	// FilePaths lists coupon files merged in order; later files override
	// rates of earlier ones.
	FilePaths []string

	// IncludeDefaults seeds the table with the built-in coupons before any
	// file is merged.
	IncludeDefaults bool
}

// DefaultTableConfig returns the default table configuration: built-in
// coupons only.
func DefaultTableConfig() *TableConfig {
	return &TableConfig{
		IncludeDefaults: true,
	}
}

// NewTable builds the coupon table once at start-up.
func NewTable(ctx context.Context, config *TableConfig, loader Loader, logger zerolog.Logger) (Table, error) {
	if config == nil {
		config = DefaultTableConfig()
	}

	logger = logger.With().Str("component", "coupon-table").Logger()

	logger.Info().
		Int("file_count", len(config.FilePaths)).
		Bool("include_defaults", config.IncludeDefaults).
		Msg("building coupon table")

	table := newMapTable(16)
	if config.IncludeDefaults {
		table.merge(DefaultTable())
	}

	if len(config.FilePaths) > 0 && loader == nil {
		return nil, fmt.Errorf("coupon files configured without a loader")
	}

	// Files load concurrently; merging happens afterwards in config order
	// so later files win.
	loaded := make([]Table, len(config.FilePaths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range config.FilePaths {
		g.Go(func() error {
			t, err := loader.Load(gctx, path)
			if err != nil {
				logger.Error().Err(err).Str("file", path).Msg("failed to load coupon file")
				return fmt.Errorf("failed to load coupon file %s: %w", path, err)
			}
			loaded[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range loaded {
		table.merge(t)
	}

	if table.Size() == 0 {
		logger.Warn().Msg("coupon table is empty, every coupon will be rejected")
	}

	logger.Info().
		Int("total_coupons", table.Size()).
		Strs("codes", table.Codes()).
		Msg("coupon table ready")

	return table, nil
}
