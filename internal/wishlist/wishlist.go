// Package wishlist keeps the products a shopper saved for later.
package wishlist

import (
	"context"
	"errors"
	"fmt"

	"freshmart/internal/model"
	"freshmart/internal/notify"
	"freshmart/internal/storage"

	"github.com/rs/zerolog"
)

// KeyItems is the persisted key.
const KeyItems = "freshmart_wishlist"

// State is an ordered set of products, unique by id.
type State []model.Product

// Contains reports whether productID is saved.
func (s State) Contains(productID string) bool {
	for _, p := range s {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// Add appends p unless it is already saved.
func (s State) Add(p model.Product) (State, bool) {
	if s.Contains(p.ID) {
		return s, false
	}
	next := make(State, 0, len(s)+1)
	next = append(next, s...)
	return append(next, p), true
}

// Remove drops productID if saved.
func (s State) Remove(productID string) (State, bool) {
	next := make(State, 0, len(s))
	for _, p := range s {
		if p.ID != productID {
			next = append(next, p)
		}
	}
	return next, len(next) != len(s)
}

func (s State) valid() bool {
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if p.ID == "" || seen[p.ID] {
			return false
		}
		seen[p.ID] = true
	}
	return true
}

// Store is a session's wishlist. None of its operations fail.
type Store interface {
	Add(ctx context.Context, product model.Product)
	Remove(ctx context.Context, productID string)
	Contains(productID string) bool
	Clear(ctx context.Context)
	Items() []model.Product
}

type store struct {
	kv       storage.Store
	notifier notify.Notifier
	logger   zerolog.Logger
	items    State
}

// Open reads the persisted wishlist from kv. An unreadable record is treated
// as an empty wishlist.
func Open(ctx context.Context, kv storage.Store, notifier notify.Notifier, logger zerolog.Logger) (Store, error) {
	s := &store{
		kv:       kv,
		notifier: notifier,
		logger:   logger.With().Str("component", "wishlist").Logger(),
		items:    State{},
	}

	var items State
	found, err := storage.GetJSON(ctx, kv, KeyItems, &items)
	switch {
	case errors.Is(err, storage.ErrCorrupt):
		s.logger.Warn().Err(err).Msg("discarding unreadable wishlist")
	case err != nil:
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	case found && !items.valid():
		s.logger.Warn().Msg("discarding invalid wishlist")
	case found:
		s.items = items
	}

	return s, nil
}

func (s *store) Add(ctx context.Context, product model.Product) {
	next, added := s.items.Add(product)
	if !added {
		return
	}
	s.commit(ctx, next)
	notify.Info(s.notifier, "Added to Wishlist", product.Name+" added to your wishlist.")
}

func (s *store) Remove(ctx context.Context, productID string) {
	next, removed := s.items.Remove(productID)
	if !removed {
		return
	}
	s.commit(ctx, next)
	notify.Info(s.notifier, "Removed from Wishlist", "Item removed from your wishlist.")
}

func (s *store) Contains(productID string) bool {
	return s.items.Contains(productID)
}

func (s *store) Clear(ctx context.Context) {
	s.commit(ctx, State{})
}

func (s *store) Items() []model.Product {
	out := make([]model.Product, len(s.items))
	for i, p := range s.items {
		if p.OriginalPrice != nil {
			op := *p.OriginalPrice
			p.OriginalPrice = &op
		}
		out[i] = p
	}
	return out
}

func (s *store) commit(ctx context.Context, next State) {
	s.items = next
	if err := storage.PutJSON(ctx, s.kv, KeyItems, s.items); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist wishlist")
	}
}
