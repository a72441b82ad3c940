// Command freshmartctl inspects persisted freshmart state offline.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"freshmart/internal/catalog"
	"freshmart/internal/config"
	"freshmart/internal/coupon"
	"freshmart/internal/storage"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs. The open funcs are replaced in
// tests.
type app struct {
	out    io.Writer
	logger zerolog.Logger
	cfg    *config.Config
	asJSON bool

	openStore   func(ctx context.Context) (storage.Store, error)
	openCatalog func(ctx context.Context) (catalog.Provider, error)
	openCoupons func(ctx context.Context) (coupon.Table, error)
}

func newApp(out io.Writer) *app {
	a := &app{out: out, logger: zerolog.Nop()}
	a.openStore = func(ctx context.Context) (storage.Store, error) {
		return storage.Open(ctx, a.cfg.Storage, a.cfg.Database, nil, a.logger)
	}
	a.openCatalog = func(ctx context.Context) (catalog.Provider, error) {
		if a.cfg.Catalog.Source == "postgres" {
			pool, err := openPool(ctx, a)
			if err != nil {
				return nil, err
			}
			defer pool.Close()
			return catalog.Open(ctx, a.cfg.Catalog, pool, a.logger)
		}
		return catalog.Open(ctx, a.cfg.Catalog, nil, a.logger)
	}
	a.openCoupons = func(ctx context.Context) (coupon.Table, error) {
		return coupon.Open(ctx, a.cfg.Coupons, a.cfg.S3, a.logger)
	}
	return a
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "freshmartctl",
		Short:         "Inspect freshmart sessions, catalogue and coupons",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil {
				cfg, err := config.Read()
				if err != nil {
					return err
				}
				a.cfg = cfg
			}
			if verbose {
				level := a.cfg.Logger
				level.Level = "debug"
				level.Format = "console"
				a.logger = config.NewLoggerTo(level, os.Stderr)
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print JSON instead of a table")

	root.AddCommand(
		newSessionsCmd(a),
		newCartCmd(a),
		newWishlistCmd(a),
		newOrdersCmd(a),
		newCouponsCmd(a),
		newCatalogCmd(a),
		newSeedCmd(a),
		newDBCheckCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd(newApp(os.Stdout)).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
