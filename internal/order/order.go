// Package order keeps a session's order history.
package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"freshmart/internal/model"
	"freshmart/internal/storage"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// KeyOrders is the persisted key.
const KeyOrders = "freshmart_orders"

const idPrefix = "ORD"

// Draft is everything checkout supplies for a new order.
type Draft struct {
	Items         []model.CartLine
	TotalPrice    decimal.Decimal
	Discount      decimal.Decimal
	CouponCode    string
	Address       model.DeliveryAddress
	PaymentMethod string
}

// History is the newest-first list of orders.
type History []model.Order

// Prepend returns a new history with o first.
func (h History) Prepend(o model.Order) History {
	next := make(History, 0, len(h)+1)
	next = append(next, o)
	return append(next, h...)
}

// Find returns the order with id.
func (h History) Find(id string) (model.Order, bool) {
	for _, o := range h {
		if o.ID == id {
			return copyOrder(o), true
		}
	}
	return model.Order{}, false
}

func (h History) valid() bool {
	seen := make(map[string]bool, len(h))
	for _, o := range h {
		if o.ID == "" || seen[o.ID] || !o.Status.Valid() {
			return false
		}
		seen[o.ID] = true
	}
	return true
}

// lastMillis returns the largest timestamp encoded in an order id.
func (h History) lastMillis() int64 {
	var last int64
	for _, o := range h {
		ms, err := strconv.ParseInt(strings.TrimPrefix(o.ID, idPrefix), 10, 64)
		if err == nil && ms > last {
			last = ms
		}
	}
	return last
}

// Store is a session's order history.
type Store interface {
	// CreateOrder freezes d into a confirmed order and returns its id.
	CreateOrder(ctx context.Context, d Draft) string

	// GetOrder returns the order with id, if any.
	GetOrder(id string) (model.Order, bool)

	// Orders returns every order, newest first.
	Orders() []model.Order
}

// Option configures a Store.
type Option func(*store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *store) {
		s.now = now
	}
}

type store struct {
	kv      storage.Store
	logger  zerolog.Logger
	now     func() time.Time
	history History
	last    int64
}

// Open reads the persisted history from kv. An unreadable record is treated
// as an empty history.
func Open(ctx context.Context, kv storage.Store, logger zerolog.Logger, opts ...Option) (Store, error) {
	s := &store{
		kv:      kv,
		logger:  logger.With().Str("component", "order").Logger(),
		now:     time.Now,
		history: History{},
	}
	for _, opt := range opts {
		opt(s)
	}

	var history History
	found, err := storage.GetJSON(ctx, kv, KeyOrders, &history)
	switch {
	case errors.Is(err, storage.ErrCorrupt):
		s.logger.Warn().Err(err).Msg("discarding unreadable order history")
	case err != nil:
		return nil, fmt.Errorf("failed to load orders: %w", err)
	case found && !history.valid():
		s.logger.Warn().Msg("discarding invalid order history")
	case found:
		s.history = history
	}
	s.last = s.history.lastMillis()

	return s, nil
}

// nextID returns ORD<unix millis>, bumped past the previous id when the
// clock has not moved on.
func (s *store) nextID(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return idPrefix + strconv.FormatInt(ms, 10)
}

func (s *store) CreateOrder(ctx context.Context, d Draft) string {
	now := s.now()
	o := model.Order{
		ID:              s.nextID(now),
		Items:           model.CopyLines(d.Items),
		TotalPrice:      d.TotalPrice,
		Discount:        d.Discount,
		CouponCode:      d.CouponCode,
		Status:          model.OrderStatusConfirmed,
		CreatedAt:       now.UTC(),
		DeliveryAddress: d.Address,
		PaymentMethod:   d.PaymentMethod,
	}

	s.history = s.history.Prepend(o)
	if err := storage.PutJSON(ctx, s.kv, KeyOrders, s.history); err != nil {
		s.logger.Error().Err(err).Str("order_id", o.ID).Msg("failed to persist orders")
	}

	s.logger.Info().
		Str("order_id", o.ID).
		Int("items", o.ItemCount()).
		Str("total", o.TotalPrice.StringFixed(2)).
		Msg("order created")

	return o.ID
}

func (s *store) GetOrder(id string) (model.Order, bool) {
	return s.history.Find(id)
}

func (s *store) Orders() []model.Order {
	out := make([]model.Order, len(s.history))
	for i, o := range s.history {
		out[i] = copyOrder(o)
	}
	return out
}

func copyOrder(o model.Order) model.Order {
	o.Items = model.CopyLines(o.Items)
	return o
}
