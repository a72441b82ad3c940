package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"freshmart/internal/coupon"
	"freshmart/internal/model"
	"freshmart/internal/notify"
	"freshmart/internal/storage"

	"github.com/rs/zerolog"
)

// Persisted keys.
const (
	KeyLines  = "freshmart_cart"
	KeyCoupon = "freshmart_coupon"
)

// Store is a session's cart. Domain errors leave the cart unchanged and are
// mirrored by a notice.
type Store interface {
	// AddItem adds quantity units of product.
	AddItem(ctx context.Context, product model.Product, quantity int) error

	// RemoveItem drops the line for productID, if any.
	RemoveItem(ctx context.Context, productID string)

	// SetQuantity replaces a line's quantity; below one removes the line.
	SetQuantity(ctx context.Context, productID string, quantity int) error

	// Clear empties the cart and removes the coupon.
	Clear(ctx context.Context)

	// ApplyCoupon applies code, case-insensitively.
	ApplyCoupon(ctx context.Context, code string) error

	// RemoveCoupon removes the applied coupon, if any.
	RemoveCoupon(ctx context.Context)

	// Lines returns a copy of the current lines.
	Lines() []model.CartLine

	// Totals returns the derived totals.
	Totals() Totals

	// State returns a copy of the current state.
	State() State
}

// store implements Store on top of a session's key-value namespace.
type store struct {
	kv       storage.Store
	coupons  coupon.Table
	notifier notify.Notifier
	logger   zerolog.Logger
	state    State
}

// Open reads the persisted cart from kv. Unreadable or invalid records are
// treated as absent, as is a coupon the table no longer knows.
func Open(ctx context.Context, kv storage.Store, coupons coupon.Table, notifier notify.Notifier, logger zerolog.Logger) (Store, error) {
	s := &store{
		kv:       kv,
		coupons:  coupons,
		notifier: notifier,
		logger:   logger.With().Str("component", "cart").Logger(),
		state:    State{Lines: []model.CartLine{}},
	}

	var lines []model.CartLine
	found, err := storage.GetJSON(ctx, kv, KeyLines, &lines)
	switch {
	case err != nil && !errors.Is(err, storage.ErrCorrupt):
		return nil, fmt.Errorf("failed to load cart: %w", err)
	case err != nil:
		s.logger.Warn().Err(err).Msg("discarding unreadable cart")
	case found && !validLines(lines):
		s.logger.Warn().Msg("discarding invalid cart")
	case found:
		s.state.Lines = lines
	}

	code, found, err := readCoupon(ctx, kv)
	switch {
	case err != nil && !errors.Is(err, storage.ErrCorrupt):
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	case err != nil:
		s.logger.Warn().Err(err).Msg("discarding unreadable coupon")
	case found:
		if _, ok := coupons.Rate(code); ok {
			s.state.CouponCode = coupon.Normalise(code)
		} else {
			s.logger.Warn().Str("coupon", code).Msg("discarding unknown coupon")
		}
	}

	return s, nil
}

// readCoupon reads the coupon record. It is written as a JSON string, but
// older clients stored the bare code, so an unquoted code is accepted too.
func readCoupon(ctx context.Context, kv storage.Store) (string, bool, error) {
	raw, err := kv.Get(ctx, KeyCoupon)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var code string
	if err := json.Unmarshal(raw, &code); err == nil {
		return code, true, nil
	}
	bare := strings.TrimSpace(string(raw))
	if bare == "" || strings.IndexFunc(bare, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) >= 0 {
		return "", false, fmt.Errorf("coupon record %q: %w", raw, storage.ErrCorrupt)
	}
	return bare, true, nil
}

func (s *store) AddItem(ctx context.Context, product model.Product, quantity int) error {
	next, err := s.state.Add(product, quantity)
	switch {
	case errors.Is(err, model.ErrInsufficientStock) && quantity > product.Stock:
		notify.Error(s.notifier, "Out of Stock", "Sorry, this item is out of stock.")
		return err
	case errors.Is(err, model.ErrInsufficientStock):
		// the request fits on its own; only the accumulated line is over
		notify.Error(s.notifier, "Limited Stock", fmt.Sprintf("Only %d items available.", product.Stock))
		return err
	case err != nil:
		notify.Error(s.notifier, "Invalid Quantity", "Please choose at least one item.")
		return err
	}

	s.commitLines(ctx, next)
	notify.Info(s.notifier, "Added to Cart", product.Name+" added to your cart.")
	return nil
}

func (s *store) RemoveItem(ctx context.Context, productID string) {
	next, removed := s.state.Remove(productID)
	if !removed {
		return
	}
	s.commitLines(ctx, next)
	notify.Info(s.notifier, "Removed from Cart", "Item removed from your cart.")
}

func (s *store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		s.RemoveItem(ctx, productID)
		return nil
	}

	next, err := s.state.SetQuantity(productID, quantity)
	if err != nil {
		line, _ := s.state.Line(productID)
		notify.Error(s.notifier, "Limited Stock", fmt.Sprintf("Only %d items available.", line.Product.Stock))
		return err
	}
	s.commitLines(ctx, next)
	return nil
}

func (s *store) Clear(ctx context.Context) {
	s.commitLines(ctx, s.state.Clear())
	s.commitCoupon(ctx, "")
}

func (s *store) ApplyCoupon(ctx context.Context, code string) error {
	normalised := coupon.Normalise(code)
	rate, ok := s.coupons.Rate(normalised)
	if !ok {
		notify.Error(s.notifier, "Invalid Coupon", "This coupon code is not valid.")
		return model.ErrInvalidCoupon
	}

	s.commitCoupon(ctx, normalised)
	notify.Info(s.notifier, "Coupon Applied!", fmt.Sprintf("You got %d%% off!", rate))
	return nil
}

func (s *store) RemoveCoupon(ctx context.Context) {
	s.commitCoupon(ctx, "")
}

func (s *store) Lines() []model.CartLine {
	return model.CopyLines(s.state.Lines)
}

func (s *store) Totals() Totals {
	rate, _ := s.coupons.Rate(s.state.CouponCode)
	return s.state.Totals(rate)
}

func (s *store) State() State {
	return s.state.clone()
}

// commitLines installs next and writes the lines. A failed write is logged;
// the in-memory state stays authoritative.
func (s *store) commitLines(ctx context.Context, next State) {
	s.state.Lines = next.Lines
	if err := storage.PutJSON(ctx, s.kv, KeyLines, s.state.Lines); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist cart")
	}
}

func (s *store) commitCoupon(ctx context.Context, code string) {
	s.state = s.state.WithCoupon(code)

	var err error
	if code == "" {
		err = s.kv.Delete(ctx, KeyCoupon)
	} else {
		err = storage.PutJSON(ctx, s.kv, KeyCoupon, code)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to persist coupon")
	}
}
