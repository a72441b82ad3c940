package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"freshmart/internal/model"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed seed/products.yaml
var seedCatalogue []byte

// yamlCatalogue is the on-disk shape. Prices are strings so they are parsed
// exactly into decimals.
type yamlCatalogue struct {
	Categories []yamlCategory `yaml:"categories"`
	Products   []yamlProduct  `yaml:"products"`
}

type yamlCategory struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Icon string `yaml:"icon"`
}

type yamlProduct struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Category      string  `yaml:"category"`
	Price         string  `yaml:"price"`
	OriginalPrice string  `yaml:"original_price"`
	Unit          string  `yaml:"unit"`
	Stock         int     `yaml:"stock"`
	Rating        float64 `yaml:"rating"`
	Reviews       int     `yaml:"reviews"`
	Organic       bool    `yaml:"organic"`
	Description   string  `yaml:"description"`
	Image         string  `yaml:"image"`
}

// yamlSource reads a catalogue document.
type yamlSource struct {
	name string
	read func() ([]byte, error)
}

// EmbeddedSource is the catalogue compiled into the binary.
func EmbeddedSource() Source {
	return &yamlSource{
		name: "embedded",
		read: func() ([]byte, error) { return seedCatalogue, nil },
	}
}

// FileSource reads the catalogue from a YAML file.
func FileSource(path string) Source {
	return &yamlSource{
		name: path,
		read: func() ([]byte, error) { return os.ReadFile(path) },
	}
}

func (s *yamlSource) Load(ctx context.Context) ([]model.Category, []model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	raw, err := s.read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read catalogue %s: %w", s.name, err)
	}
	return parseYAML(raw)
}

func parseYAML(raw []byte) ([]model.Category, []model.Product, error) {
	var doc yamlCatalogue
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}

	categories := make([]model.Category, 0, len(doc.Categories))
	for _, c := range doc.Categories {
		categories = append(categories, model.Category{ID: c.ID, Name: c.Name, Icon: c.Icon})
	}

	products := make([]model.Product, 0, len(doc.Products))
	for _, yp := range doc.Products {
		p, err := yp.toModel()
		if err != nil {
			return nil, nil, err
		}
		products = append(products, p)
	}

	return categories, products, nil
}

func (yp yamlProduct) toModel() (model.Product, error) {
	price, err := decimal.NewFromString(yp.Price)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %s: invalid price %q: %w", yp.ID, yp.Price, err)
	}

	p := model.Product{
		ID:          yp.ID,
		Name:        yp.Name,
		Category:    yp.Category,
		Price:       price,
		Unit:        yp.Unit,
		Stock:       yp.Stock,
		Rating:      yp.Rating,
		Reviews:     yp.Reviews,
		IsOrganic:   yp.Organic,
		Description: yp.Description,
		Image:       yp.Image,
	}

	if yp.OriginalPrice != "" {
		op, err := decimal.NewFromString(yp.OriginalPrice)
		if err != nil {
			return model.Product{}, fmt.Errorf("product %s: invalid original price %q: %w", yp.ID, yp.OriginalPrice, err)
		}
		p.OriginalPrice = &op
	}

	return p, nil
}
