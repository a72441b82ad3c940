// Package cart holds the shopping cart: lines, the applied coupon and the
// totals derived from them.
package cart

import (
	"freshmart/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// State is an immutable cart value. Every transition returns a new State and
// leaves the receiver untouched.
type State struct {
	Lines      []model.CartLine
	CouponCode string
}

// Totals are derived from a State on every read and never stored.
type Totals struct {
	TotalItems   int             `json:"totalItems"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	CouponCode   string          `json:"couponCode,omitempty"`
	DiscountRate int             `json:"discountRate,omitempty"`
}

func (s State) index(productID string) int {
	for i, l := range s.Lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

// Line returns the line for productID, if any.
func (s State) Line(productID string) (model.CartLine, bool) {
	if i := s.index(productID); i >= 0 {
		return s.Lines[i], true
	}
	return model.CartLine{}, false
}

func (s State) clone() State {
	return State{Lines: model.CopyLines(s.Lines), CouponCode: s.CouponCode}
}

// Add puts quantity units of p in the cart. An existing line grows and keeps
// the product snapshot it was created with; the stock check uses p.
func (s State) Add(p model.Product, quantity int) (State, error) {
	if quantity < 1 {
		return s, model.ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return s, model.ErrInsufficientStock
	}

	next := s.clone()
	if i := next.index(p.ID); i >= 0 {
		total := next.Lines[i].Quantity + quantity
		if total > p.Stock {
			return s, model.ErrInsufficientStock
		}
		next.Lines[i].Quantity = total
		return next, nil
	}

	next.Lines = append(next.Lines, model.CartLine{Product: p, Quantity: quantity})
	return next, nil
}

// Remove drops the line for productID. The second result reports whether a
// line was removed.
func (s State) Remove(productID string) (State, bool) {
	i := s.index(productID)
	if i < 0 {
		return s, false
	}
	next := s.clone()
	next.Lines = append(next.Lines[:i], next.Lines[i+1:]...)
	return next, true
}

// SetQuantity replaces a line's quantity. Below one it removes the line; an
// absent line is left absent.
func (s State) SetQuantity(productID string, quantity int) (State, error) {
	if quantity < 1 {
		next, _ := s.Remove(productID)
		return next, nil
	}

	i := s.index(productID)
	if i < 0 {
		return s, nil
	}
	if quantity > s.Lines[i].Product.Stock {
		return s, model.ErrInsufficientStock
	}

	next := s.clone()
	next.Lines[i].Quantity = quantity
	return next, nil
}

// WithCoupon returns s with code applied, replacing any earlier coupon.
// An empty code removes it.
func (s State) WithCoupon(code string) State {
	next := s.clone()
	next.CouponCode = code
	return next
}

// Clear empties the lines and the coupon.
func (s State) Clear() State {
	return State{Lines: []model.CartLine{}}
}

// Totals computes item count, subtotal, discount and total. rate is the
// applied coupon's percentage, or zero.
func (s State) Totals(rate int) Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
	}
	for _, l := range s.Lines {
		t.TotalItems += l.Quantity
		t.Subtotal = t.Subtotal.Add(l.LineTotal())
	}

	if s.CouponCode != "" && rate > 0 {
		t.CouponCode = s.CouponCode
		t.DiscountRate = rate
		t.Discount = t.Subtotal.Mul(decimal.NewFromInt(int64(rate))).Div(hundred)
	}
	t.Total = t.Subtotal.Sub(t.Discount)
	return t
}

// validLines reports whether persisted lines can be trusted: positive
// quantities, product ids present and unique.
func validLines(lines []model.CartLine) bool {
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if l.Product.ID == "" || l.Quantity < 1 || seen[l.Product.ID] {
			return false
		}
		seen[l.Product.ID] = true
	}
	return true
}
