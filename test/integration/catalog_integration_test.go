package integration

import (
	"context"
	"testing"

	"freshmart/internal/catalog"
	"freshmart/internal/database"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, database.Migrate(ctx, testDB.Pool, zerolog.Nop(), catalog.PostgresSchema))
	CleanupDB(t, testDB.Pool)

	categories, products, err := catalog.SeedData(ctx)
	require.NoError(t, err)
	require.NoError(t, catalog.SeedPostgres(ctx, testDB.Pool, categories, products))

	t.Run("RoundTrip", func(t *testing.T) {
		fromDB, err := catalog.New(ctx, catalog.PostgresSource(testDB.Pool, zerolog.Nop()))
		require.NoError(t, err)
		embedded, err := catalog.New(ctx, catalog.EmbeddedSource())
		require.NoError(t, err)

		decimalEqual := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
		if diff := cmp.Diff(embedded.All(), fromDB.All(), decimalEqual); diff != "" {
			t.Errorf("products mismatch (-embedded +postgres):\n%s", diff)
		}
		assert.Equal(t, embedded.Categories(), fromDB.Categories())
	})

	t.Run("SeedIsIdempotent", func(t *testing.T) {
		require.NoError(t, catalog.SeedPostgres(ctx, testDB.Pool, categories, products))

		var count int
		require.NoError(t, testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM products").Scan(&count))
		assert.Equal(t, len(products), count)
	})

	t.Run("FilterAndRelated", func(t *testing.T) {
		p, err := catalog.New(ctx, catalog.PostgresSource(testDB.Pool, zerolog.Nop()))
		require.NoError(t, err)

		for _, item := range p.Filter("dairy", "") {
			assert.Equal(t, "dairy", item.Category)
		}

		milk, err := p.Get("9")
		require.NoError(t, err)
		related := p.Related(milk, catalog.DefaultRelatedLimit)
		assert.LessOrEqual(t, len(related), catalog.DefaultRelatedLimit)
		for _, r := range related {
			assert.Equal(t, milk.Category, r.Category)
			assert.NotEqual(t, milk.ID, r.ID)
		}
	})
}
