package coupon

import (
	"context"
	"strings"
)

// Table maps coupon codes to flat percentage discounts. A table is fixed
// once built; lookups are case-insensitive.
type Table interface {
	// Rate returns the percentage for code and whether the code exists.
	Rate(code string) (int, bool)

	// Size returns the number of coupons in the table.
	Size() int

	// Codes returns the normalised codes in sorted order.
	Codes() []string
}

// Loader defines the interface for loading coupon table files.
type Loader interface {
	// Load reads a gzipped coupon file and returns a Table.
	Load(ctx context.Context, filePath string) (Table, error)
}

// Normalise returns the canonical form of a coupon code.
func Normalise(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
