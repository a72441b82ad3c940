package model

import "github.com/shopspring/decimal"

// CartLine is a product and a quantity within a cart or an order.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns price × quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CopyLines returns a deep copy of lines so callers cannot share the
// backing array or the optional price pointers.
func CopyLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	for i, l := range lines {
		out[i] = l
		if l.Product.OriginalPrice != nil {
			op := *l.Product.OriginalPrice
			out[i].Product.OriginalPrice = &op
		}
	}
	return out
}
