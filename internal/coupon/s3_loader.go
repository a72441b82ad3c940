package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectGetter is the part of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader reads coupon files from a bucket. File paths are joined onto
// prefix to form the object key.
type s3Loader struct {
	client ObjectGetter
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Loader creates a Loader backed by the default AWS credential chain.
func NewS3Loader(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewS3LoaderWithClient(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// NewS3LoaderWithClient creates a Loader on an existing client.
func NewS3LoaderWithClient(client ObjectGetter, bucket, prefix string, logger zerolog.Logger) Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With().Str("component", "s3-coupon-loader").Str("bucket", bucket).Logger(),
	}
}

func (l *s3Loader) Load(ctx context.Context, filePath string) (Table, error) {
	key := l.prefix + filePath

	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", l.bucket, key, err)
	}
	defer out.Body.Close()

	table, err := readTable(ctx, out.Body, key)
	if err != nil {
		return nil, err
	}

	l.logger.Info().Str("key", key).Int("coupons_loaded", table.Size()).Msg("coupon file loaded")
	return table, nil
}

// chainLoader tries each loader in turn and returns the first success.
type chainLoader struct {
	loaders []Loader
	logger  zerolog.Logger
}

// NewChainLoader returns a Loader that falls through loaders in order, e.g.
// S3 first and the local file system after it. Nil loaders are skipped.
func NewChainLoader(logger zerolog.Logger, loaders ...Loader) Loader {
	c := &chainLoader{logger: logger.With().Str("component", "coupon-loader").Logger()}
	for _, l := range loaders {
		if l != nil {
			c.loaders = append(c.loaders, l)
		}
	}
	return c
}

func (c *chainLoader) Load(ctx context.Context, filePath string) (Table, error) {
	if len(c.loaders) == 0 {
		return nil, errors.New("no coupon loader configured")
	}

	var errs []error
	for i, l := range c.loaders {
		table, err := l.Load(ctx, filePath)
		if err == nil {
			return table, nil
		}
		errs = append(errs, err)
		if i < len(c.loaders)-1 {
			c.logger.Warn().Err(err).Str("file", filePath).Msg("coupon source failed, trying next")
		}
	}
	return nil, errors.Join(errs...)
}
