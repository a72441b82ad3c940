package coupon

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// readTable parses a coupon file, gunzipping it when name ends in ".gz".
func readTable(ctx context.Context, r io.Reader, name string) (*mapTable, error) {
	if strings.HasSuffix(name, ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", name, err)
		}
		defer zr.Close()
		r = zr
	}

	table, err := parseTable(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse coupon file %s: %w", name, err)
	}
	return table, nil
}

// fileLoader reads coupon files from the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a Loader that reads from the local file system.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "coupon-loader").Logger(),
	}
}

func (l *fileLoader) Load(ctx context.Context, filePath string) (Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open coupon file %s: %w", filePath, err)
	}
	defer file.Close()

	table, err := readTable(ctx, file, filePath)
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("coupons_loaded", table.Size()).
		Msg("coupon file loaded")
	return table, nil
}
