// Package catalog serves the read-only product catalogue.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"freshmart/internal/model"
)

// DefaultRelatedLimit caps the related products shown next to a product.
const DefaultRelatedLimit = 4

// AllCategories is the pseudo-category that matches every product.
const AllCategories = "all"

// Provider answers catalogue queries. The data is loaded once and never
// mutated afterwards, so implementations are safe for concurrent use.
type Provider interface {
	// All returns every product in catalogue order.
	All() []model.Product

	// Get returns the product with id or model.ErrProductNotFound.
	Get(id string) (model.Product, error)

	// Categories returns the browseable categories, "all" first.
	Categories() []model.Category

	// Filter returns the products in category whose name or description
	// contains query, ignoring case. An empty or "all" category and an
	// empty query match everything.
	Filter(category, query string) []model.Product

	// Related returns up to limit other products of p's category.
	Related(p model.Product, limit int) []model.Product
}

// Source loads the raw catalogue.
type Source interface {
	Load(ctx context.Context) ([]model.Category, []model.Product, error)
}

type staticCatalogue struct {
	categories []model.Category
	products   []model.Product
}

// StaticSource serves already loaded data.
func StaticSource(categories []model.Category, products []model.Product) Source {
	return staticCatalogue{categories: categories, products: products}
}

func (s staticCatalogue) Load(context.Context) ([]model.Category, []model.Product, error) {
	return s.categories, s.products, nil
}

// provider is the in-memory Provider built from a Source.
type provider struct {
	categories []model.Category
	products   []model.Product
	byID       map[string]int
}

// New loads src once and indexes it.
func New(ctx context.Context, src Source) (Provider, error) {
	categories, products, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}
	return newProvider(categories, products)
}

func newProvider(categories []model.Category, products []model.Product) (*provider, error) {
	p := &provider{
		products: make([]model.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}

	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.ID == AllCategories {
			continue
		}
		known[c.ID] = true
		p.categories = append(p.categories, c)
	}
	p.categories = append([]model.Category{{ID: AllCategories, Name: "All", Icon: "🛒"}}, p.categories...)

	var missing []string
	for _, prod := range products {
		if err := validateProduct(prod); err != nil {
			return nil, err
		}
		if _, dup := p.byID[prod.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", prod.ID)
		}
		if !known[prod.Category] {
			known[prod.Category] = true
			missing = append(missing, prod.Category)
		}
		p.byID[prod.ID] = len(p.products)
		p.products = append(p.products, prod)
	}

	// categories referenced only by products still need a chip
	sort.Strings(missing)
	for _, id := range missing {
		p.categories = append(p.categories, model.Category{ID: id, Name: titleCase(id)})
	}

	return p, nil
}

func validateProduct(p model.Product) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("product without id")
	case p.Name == "":
		return fmt.Errorf("product %s has no name", p.ID)
	case p.Category == "":
		return fmt.Errorf("product %s has no category", p.ID)
	case p.Price.IsNegative():
		return fmt.Errorf("product %s has a negative price", p.ID)
	case p.Stock < 0:
		return fmt.Errorf("product %s has negative stock", p.ID)
	}
	return nil
}

func (p *provider) All() []model.Product {
	return copyProducts(p.products)
}

func (p *provider) Get(id string) (model.Product, error) {
	i, ok := p.byID[id]
	if !ok {
		return model.Product{}, model.ErrProductNotFound
	}
	return copyProduct(p.products[i]), nil
}

func (p *provider) Categories() []model.Category {
	return append([]model.Category(nil), p.categories...)
}

func (p *provider) Filter(category, query string) []model.Product {
	query = strings.ToLower(strings.TrimSpace(query))
	allCategories := category == "" || category == AllCategories

	out := []model.Product{}
	for _, prod := range p.products {
		if !allCategories && prod.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(prod.Name), query) &&
			!strings.Contains(strings.ToLower(prod.Description), query) {
			continue
		}
		out = append(out, copyProduct(prod))
	}
	return out
}

func (p *provider) Related(target model.Product, limit int) []model.Product {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	out := []model.Product{}
	for _, prod := range p.products {
		if len(out) == limit {
			break
		}
		if prod.Category == target.Category && prod.ID != target.ID {
			out = append(out, copyProduct(prod))
		}
	}
	return out
}

func copyProduct(p model.Product) model.Product {
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		p.OriginalPrice = &op
	}
	return p
}

func copyProducts(in []model.Product) []model.Product {
	out := make([]model.Product, len(in))
	for i, p := range in {
		out[i] = copyProduct(p)
	}
	return out
}

func titleCase(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
