package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"freshmart/internal/auth"
	"freshmart/internal/cart"
	"freshmart/internal/catalog"
	"freshmart/internal/database"
	"freshmart/internal/notify"
	"freshmart/internal/order"
	"freshmart/internal/storage"
	"freshmart/internal/wishlist"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func openPool(ctx context.Context, a *app) (*pgxpool.Pool, error) {
	return database.NewPool(ctx, a.cfg.Database, a.logger)
}

// withSession opens the store, scopes it to the --session namespace and
// calls fn.
func withSession(cmd *cobra.Command, a *app, id string, fn func(ctx context.Context, kv storage.Store) error) error {
	if id == "" {
		return errors.New("--session is required")
	}
	ctx := cmd.Context()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, storage.Namespace(store, storage.SessionPrefix(id)))
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func newSessionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions with persisted state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			keys, err := store.Keys(ctx, "session:")
			if err != nil {
				return err
			}
			ids := sessionIDs(keys)

			if a.asJSON {
				return a.printJSON(ids)
			}
			for _, id := range ids {
				fmt.Fprintln(a.out, id)
			}
			return nil
		},
	}
}

// sessionIDs extracts the distinct ids from "session:<id>:<key>" keys.
func sessionIDs(keys []string) []string {
	seen := make(map[string]bool)
	ids := []string{}
	for _, k := range keys {
		rest, ok := strings.CutPrefix(k, "session:")
		if !ok {
			continue
		}
		id, _, ok := strings.Cut(rest, ":")
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func newCartCmd(a *app) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show a session's cart and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, a, sessionID, func(ctx context.Context, kv storage.Store) error {
				coupons, err := a.openCoupons(ctx)
				if err != nil {
					return err
				}
				c, err := cart.Open(ctx, kv, coupons, notify.Discard, a.logger)
				if err != nil {
					return err
				}

				lines, totals := c.Lines(), c.Totals()
				if a.asJSON {
					return a.printJSON(map[string]any{"items": lines, "totals": totals})
				}

				w := a.table()
				fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\tLINE TOTAL")
				for _, l := range lines {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.Product.ID, l.Product.Name, l.Quantity,
						l.Product.Price.StringFixed(2), l.LineTotal().StringFixed(2))
				}
				fmt.Fprintf(w, "\t\t%d\tSubtotal\t%s\n", totals.TotalItems, totals.Subtotal.StringFixed(2))
				if totals.CouponCode != "" {
					fmt.Fprintf(w, "\t\t\t%s (%d%%)\t-%s\n", totals.CouponCode, totals.DiscountRate, totals.Discount.StringFixed(2))
				}
				fmt.Fprintf(w, "\t\t\tTotal\t%s\n", totals.Total.StringFixed(2))
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id")
	return cmd
}

func newWishlistCmd(a *app) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Show a session's wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, a, sessionID, func(ctx context.Context, kv storage.Store) error {
				wl, err := wishlist.Open(ctx, kv, notify.Discard, a.logger)
				if err != nil {
					return err
				}
				items := wl.Items()
				if a.asJSON {
					return a.printJSON(items)
				}

				w := a.table()
				fmt.Fprintln(w, "ID\tNAME\tPRICE\tIN STOCK")
				for _, p := range items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", p.ID, p.Name, p.Price.StringFixed(2), p.InStock())
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id")
	return cmd
}

func newOrdersCmd(a *app) *cobra.Command {
	var sessionID, orderID string

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show a session's order history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, a, sessionID, func(ctx context.Context, kv storage.Store) error {
				orders, err := order.Open(ctx, kv, a.logger)
				if err != nil {
					return err
				}

				if orderID != "" {
					o, ok := orders.GetOrder(orderID)
					if !ok {
						return fmt.Errorf("order %s not found", orderID)
					}
					return a.printJSON(o)
				}

				list := orders.Orders()
				if a.asJSON {
					return a.printJSON(list)
				}

				var user string
				if acct, err := auth.OpenAccount(ctx, kv, notify.Discard, a.logger); err == nil {
					if u, ok := acct.User(); ok {
						user = u.Phone
					}
				}
				if user != "" {
					fmt.Fprintf(a.out, "Signed in as %s\n", user)
				}

				w := a.table()
				fmt.Fprintln(w, "ID\tCREATED\tITEMS\tTOTAL\tCOUPON\tPAYMENT\tSTATUS")
				for _, o := range list {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n", o.ID, o.CreatedAt.Format("2006-01-02 15:04"),
						o.ItemCount(), o.TotalPrice.StringFixed(2), o.CouponCode, o.PaymentMethod, o.Status)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id")
	cmd.Flags().StringVar(&orderID, "id", "", "Print a single order as JSON")
	return cmd
}

func newCouponsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "coupons",
		Short: "List the coupon table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.openCoupons(cmd.Context())
			if err != nil {
				return err
			}

			rates := make(map[string]int, table.Size())
			for _, code := range table.Codes() {
				rates[code], _ = table.Rate(code)
			}
			if a.asJSON {
				return a.printJSON(rates)
			}

			w := a.table()
			fmt.Fprintln(w, "CODE\tDISCOUNT")
			for _, code := range table.Codes() {
				fmt.Fprintf(w, "%s\t%d%%\n", code, rates[code])
			}
			return w.Flush()
		},
	}
}

func newCatalogCmd(a *app) *cobra.Command {
	var category, query string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List catalogue products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}

			list := products.Filter(category, query)
			if a.asJSON {
				return a.printJSON(list)
			}

			w := a.table()
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tUNIT\tSTOCK")
			for _, p := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Unit, p.Stock)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", catalog.AllCategories, "Category id")
	cmd.Flags().StringVar(&query, "query", "", "Case-insensitive name or description search")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the catalogue into PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			src := catalog.EmbeddedSource()
			if file != "" {
				src = catalog.FileSource(file)
			}
			categories, products, err := src.Load(ctx)
			if err != nil {
				return err
			}
			// Validate before touching the database.
			if _, err := catalog.New(ctx, catalog.StaticSource(categories, products)); err != nil {
				return err
			}

			pool, err := openPool(ctx, a)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.Migrate(ctx, pool, a.logger, catalog.PostgresSchema); err != nil {
				return err
			}
			if err := catalog.SeedPostgres(ctx, pool, categories, products); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "seeded %d categories and %d products\n", len(categories), len(products))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalogue file (default: embedded seed)")
	return cmd
}

func newDBCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dbcheck",
		Short: "Check the PostgreSQL connection and list databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := openPool(ctx, a)
			if err != nil {
				return err
			}
			defer pool.Close()

			var current string
			if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&current); err != nil {
				return fmt.Errorf("failed to query current database: %w", err)
			}
			fmt.Fprintf(a.out, "connected to %s\n", current)

			rows, err := pool.Query(ctx, "SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname")
			if err != nil {
				return fmt.Errorf("failed to list databases: %w", err)
			}
			names, err := pgx.CollectRows(rows, pgx.RowTo[string])
			if err != nil {
				return fmt.Errorf("failed to list databases: %w", err)
			}
			for _, n := range names {
				fmt.Fprintf(a.out, "  - %s\n", n)
			}
			return nil
		},
	}
}
