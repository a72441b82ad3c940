package model

import "github.com/shopspring/decimal"

// Product represents a grocery item in the catalogue. Products are read-only
// to the stores; cart lines and wishlist entries hold copies.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Unit          string           `json:"unit"`
	Stock         int              `json:"stock"`
	Rating        float64          `json:"rating"`
	Reviews       int              `json:"reviews"`
	IsOrganic     bool             `json:"isOrganic"`
	Description   string           `json:"description"`
	Image         string           `json:"image"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Category groups products for browsing.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}
