package coupon

import (
	"context"

	"freshmart/internal/config"

	"github.com/rs/zerolog"
)

// Open builds the coupon table from configuration. Files are read from S3
// first when it is enabled, then from the local file system.
func Open(ctx context.Context, cfg config.CouponConfig, s3cfg config.S3Config, logger zerolog.Logger) (Table, error) {
	var remote Loader
	if s3cfg.Enabled {
		l, err := NewS3Loader(ctx, s3cfg.Bucket, s3cfg.Region, s3cfg.Prefix, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 loader, using local files only")
		} else {
			remote = l
		}
	}

	return NewTable(ctx, &TableConfig{
		FilePaths:       cfg.Files,
		IncludeDefaults: cfg.IncludeDefaults,
	}, NewChainLoader(logger, remote, NewFileLoader(logger)), logger)
}
