package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"freshmart/internal/config"
	"freshmart/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	categories []model.Category
	products   []model.Product
	err        error
}

func (s staticSource) Load(context.Context) ([]model.Category, []model.Product, error) {
	return s.categories, s.products, s.err
}

func product(id, name, category, price string, stock int) model.Product {
	return model.Product{
		ID:       id,
		Name:     name,
		Category: category,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
}

func testProvider(t *testing.T) Provider {
	t.Helper()

	p, err := New(context.Background(), staticSource{
		categories: []model.Category{
			{ID: "fruits", Name: "Fruits"},
			{ID: "dairy", Name: "Dairy"},
		},
		products: []model.Product{
			product("1", "Red Apples", "fruits", "149", 10),
			product("2", "Bananas", "fruits", "49", 5),
			{ID: "3", Name: "Milk", Category: "dairy", Price: decimal.NewFromInt(68), Description: "Fresh apple-free milk"},
			product("4", "Grapes", "fruits", "89", 1),
			product("5", "Mango", "fruits", "599", 0),
			product("6", "Kiwi", "fruits", "20", 3),
			product("7", "Almonds", "dry-fruits", "349", 3),
		},
	})
	require.NoError(t, err)
	return p
}

func ids(products []model.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestProvider_Get(t *testing.T) {
	p := testProvider(t)

	got, err := p.Get("2")
	require.NoError(t, err)
	assert.Equal(t, "Bananas", got.Name)

	_, err = p.Get("missing")
	assert.ErrorIs(t, err, model.ErrProductNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProvider_Categories(t *testing.T) {
	p := testProvider(t)

	cats := p.Categories()
	require.Len(t, cats, 4)
	assert.Equal(t, AllCategories, cats[0].ID)
	assert.Equal(t, "fruits", cats[1].ID)
	assert.Equal(t, "dairy", cats[2].ID)
	assert.Equal(t, model.Category{ID: "dry-fruits", Name: "Dry Fruits"}, cats[3])
}

func TestProvider_Filter(t *testing.T) {
	p := testProvider(t)

	tests := []struct {
		name     string
		category string
		query    string
		expected []string
	}{
		{name: "everything", category: "", query: "", expected: []string{"1", "2", "3", "4", "5", "6", "7"}},
		{name: "all pseudo category", category: "all", query: "", expected: []string{"1", "2", "3", "4", "5", "6", "7"}},
		{name: "category only", category: "dairy", query: "", expected: []string{"3"}},
		{name: "case insensitive name", category: "all", query: "APPLE", expected: []string{"1", "3"}},
		{name: "category and query", category: "fruits", query: "apple", expected: []string{"1"}},
		{name: "query trimmed", category: "all", query: "  kiwi ", expected: []string{"6"}},
		{name: "no match", category: "dairy", query: "banana", expected: []string{}},
		{name: "unknown category", category: "frozen", query: "", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(p.Filter(tt.category, tt.query)))
		})
	}
}

func TestProvider_Related(t *testing.T) {
	p := testProvider(t)

	apples, err := p.Get("1")
	require.NoError(t, err)

	assert.Equal(t, []string{"2", "4", "5", "6"}, ids(p.Related(apples, 0)))
	assert.Equal(t, []string{"2", "4"}, ids(p.Related(apples, 2)))

	milk, err := p.Get("3")
	require.NoError(t, err)
	assert.Empty(t, p.Related(milk, DefaultRelatedLimit))
}

func TestProvider_ReturnsCopies(t *testing.T) {
	op := decimal.NewFromInt(10)
	p, err := New(context.Background(), staticSource{
		products: []model.Product{{ID: "1", Name: "A", Category: "c", Price: decimal.NewFromInt(5), OriginalPrice: &op}},
	})
	require.NoError(t, err)

	got, err := p.Get("1")
	require.NoError(t, err)
	*got.OriginalPrice = decimal.NewFromInt(99)
	got.Name = "changed"

	again, err := p.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
	assert.True(t, again.OriginalPrice.Equal(decimal.NewFromInt(10)))
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      staticSource
		errorMsg string
	}{
		{
			name:     "source error",
			src:      staticSource{err: errors.New("boom")},
			errorMsg: "failed to load catalogue: boom",
		},
		{
			name: "duplicate id",
			src: staticSource{products: []model.Product{
				product("1", "A", "c", "1", 1),
				product("1", "B", "c", "1", 1),
			}},
			errorMsg: `duplicate product id "1"`,
		},
		{
			name:     "negative stock",
			src:      staticSource{products: []model.Product{product("1", "A", "c", "1", -1)}},
			errorMsg: "negative stock",
		},
		{
			name:     "negative price",
			src:      staticSource{products: []model.Product{product("1", "A", "c", "-1", 1)}},
			errorMsg: "negative price",
		},
		{
			name:     "missing category",
			src:      staticSource{products: []model.Product{product("1", "A", "", "1", 1)}},
			errorMsg: "has no category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestEmbeddedSource(t *testing.T) {
	p, err := New(context.Background(), EmbeddedSource())
	require.NoError(t, err)

	assert.NotEmpty(t, p.All())
	assert.Equal(t, AllCategories, p.Categories()[0].ID)

	apples, err := p.Get("1")
	require.NoError(t, err)
	assert.True(t, apples.Price.Equal(decimal.NewFromInt(149)))
	require.NotNil(t, apples.OriginalPrice)
	assert.True(t, apples.IsOrganic)

	pomegranate, err := p.Get("5")
	require.NoError(t, err)
	assert.Equal(t, "129.5", pomegranate.Price.String())
	assert.False(t, pomegranate.InStock())
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
categories:
  - { id: bakery, name: Bakery, icon: "🍞" }
products:
  - { id: b1, name: Bagel, category: bakery, price: "0.10", stock: 3 }
`), 0o644))

	p, err := Open(context.Background(), config.CatalogConfig{Source: "file", File: good}, nil, zerolog.Nop())
	require.NoError(t, err)

	bagel, err := p.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, "0.1", bagel.Price.String())
	assert.Nil(t, bagel.OriginalPrice)

	badPrice := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPrice, []byte(`
products:
  - { id: b1, name: Bagel, category: bakery, price: "cheap" }
`), 0o644))
	_, err = New(context.Background(), FileSource(badPrice))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid price "cheap"`)

	unknownField := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknownField, []byte("products:\n  - { id: x, colour: red }\n"), 0o644))
	_, err = New(context.Background(), FileSource(unknownField))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse catalogue")

	_, err = New(context.Background(), FileSource(filepath.Join(dir, "missing.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalogue")
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), config.CatalogConfig{Source: "postgres"}, nil, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a database pool")

	_, err = Open(context.Background(), config.CatalogConfig{Source: "ftp"}, nil, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown catalogue source "ftp"`)
}
