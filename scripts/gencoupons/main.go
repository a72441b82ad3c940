// Command gencoupons writes sample coupon files for COUPON_FILES.
//
// Later files override earlier ones, so loading festive.gz then
// weekend.gz gives DIWALI30 a 35% rate.
package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

type couponFile struct {
	name  string
	lines []string
}

var samples = []couponFile{
	{
		name: "festive.gz",
		lines: []string{
			"# festive season codes",
			"DIWALI30 30",
			"HOLI15 15",
			"PONGAL12 12",
		},
	},
	{
		name: "weekend.gz",
		lines: []string{
			"DIWALI30 35",
			"WEEKEND5,5",
		},
	},
	{
		name: "partners.txt",
		lines: []string{
			"BANKCARD10\t10",
		},
	},
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	dir := "data/coupons"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", dir).Msg("failed to create directory")
	}

	paths := make([]string, 0, len(samples))
	for _, f := range samples {
		path := filepath.Join(dir, f.name)
		if err := writeCouponFile(path, f.lines); err != nil {
			logger.Fatal().Err(err).Str("file", path).Msg("failed to write coupon file")
		}
		logger.Info().Str("file", path).Int("lines", len(f.lines)).Msg("coupon file written")
		paths = append(paths, path)
	}

	fmt.Printf("COUPON_FILES=%s\n", strings.Join(paths, ","))
}

func writeCouponFile(path string, lines []string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = file
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(file)
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write coupon: %w", err)
		}
	}
	return nil
}
