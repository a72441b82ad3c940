package catalog

import (
	"context"
	"fmt"

	"freshmart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PostgresSchema creates the catalogue tables.
const PostgresSchema = `
	CREATE TABLE IF NOT EXISTS categories (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		icon       TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS products (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		category       TEXT NOT NULL,
		price          NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		original_price NUMERIC(10,2),
		unit           TEXT NOT NULL DEFAULT '',
		stock          INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		rating         DOUBLE PRECISION NOT NULL DEFAULT 0,
		reviews        INTEGER NOT NULL DEFAULT 0,
		is_organic     BOOLEAN NOT NULL DEFAULT FALSE,
		description    TEXT NOT NULL DEFAULT '',
		image          TEXT NOT NULL DEFAULT '',
		sort_order     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
`

// postgresSource reads the catalogue from PostgreSQL.
type postgresSource struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// PostgresSource reads categories and products tables once.
func PostgresSource(pool *pgxpool.Pool, logger zerolog.Logger) Source {
	return &postgresSource{
		pool:   pool,
		logger: logger.With().Str("catalog", "postgres").Logger(),
	}
}

func (s *postgresSource) Load(ctx context.Context) ([]model.Category, []model.Product, error) {
	categories, err := s.categories(ctx)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.products(ctx)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Int("categories", len(categories)).
		Int("products", len(products)).
		Msg("catalogue loaded")

	return categories, products, nil
}

func (s *postgresSource) categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, icon FROM categories ORDER BY sort_order, id`)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}

	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Category, error) {
		var c model.Category
		err := row.Scan(&c.ID, &c.Name, &c.Icon)
		return c, err
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to scan category rows")
		return nil, fmt.Errorf("failed to scan categories: %w", err)
	}
	return categories, nil
}

func (s *postgresSource) products(ctx context.Context) ([]model.Product, error) {
	query := `
		SELECT id, name, category, price::text, original_price::text, unit, stock,
		       rating, reviews, is_organic, description, image
		FROM products
		ORDER BY sort_order, id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var (
			p             model.Product
			price         string
			originalPrice *string
		)
		err := rows.Scan(&p.ID, &p.Name, &p.Category, &price, &originalPrice, &p.Unit,
			&p.Stock, &p.Rating, &p.Reviews, &p.IsOrganic, &p.Description, &p.Image)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}

		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %s: invalid price %q: %w", p.ID, price, err)
		}
		if originalPrice != nil {
			op, err := decimal.NewFromString(*originalPrice)
			if err != nil {
				return nil, fmt.Errorf("product %s: invalid original price %q: %w", p.ID, *originalPrice, err)
			}
			p.OriginalPrice = &op
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// SeedPostgres upserts categories and products in one batch, keeping their
// order.
func SeedPostgres(ctx context.Context, pool *pgxpool.Pool, categories []model.Category, products []model.Product) error {
	batch := &pgx.Batch{}

	for i, c := range categories {
		batch.Queue(`
			INSERT INTO categories (id, name, icon, sort_order) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, icon = EXCLUDED.icon, sort_order = EXCLUDED.sort_order`,
			c.ID, c.Name, c.Icon, i)
	}

	for i, p := range products {
		var originalPrice *string
		if p.OriginalPrice != nil {
			s := p.OriginalPrice.String()
			originalPrice = &s
		}
		batch.Queue(`
			INSERT INTO products (id, name, category, price, original_price, unit, stock,
			                      rating, reviews, is_organic, description, image, sort_order)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, category = EXCLUDED.category, price = EXCLUDED.price,
				original_price = EXCLUDED.original_price, unit = EXCLUDED.unit, stock = EXCLUDED.stock,
				rating = EXCLUDED.rating, reviews = EXCLUDED.reviews, is_organic = EXCLUDED.is_organic,
				description = EXCLUDED.description, image = EXCLUDED.image, sort_order = EXCLUDED.sort_order`,
			p.ID, p.Name, p.Category, p.Price.String(), originalPrice, p.Unit, p.Stock,
			p.Rating, p.Reviews, p.IsOrganic, p.Description, p.Image, i)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed catalogue: %w", err)
	}
	return nil
}

// SeedData returns the embedded catalogue, for seeding other sources.
func SeedData(ctx context.Context) ([]model.Category, []model.Product, error) {
	return EmbeddedSource().Load(ctx)
}
