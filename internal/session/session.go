// Package session builds and serialises the per-session stores.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"freshmart/internal/auth"
	"freshmart/internal/cart"
	"freshmart/internal/catalog"
	"freshmart/internal/checkout"
	"freshmart/internal/coupon"
	"freshmart/internal/model"
	"freshmart/internal/notify"
	"freshmart/internal/order"
	"freshmart/internal/storage"
	"freshmart/internal/wishlist"

	"github.com/rs/zerolog"
)

// Session owns one shopper's stores. Every store call must go through Do.
type Session struct {
	ID string

	Cart     cart.Store
	Wishlist wishlist.Store
	Orders   order.Store
	Account  auth.Account
	Checkout checkout.Service

	mu       sync.Mutex
	queue    *notify.Queue
	identity auth.Provider
	logger   zerolog.Logger
}

// Do runs fn while holding the session lock and returns the notices fn
// raised.
func (s *Session) Do(fn func()) []model.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn()
	return s.queue.Drain()
}

// SendCode asks the identity provider for a code. The provider's delay runs
// outside the session lock. The notices carry the code, so they go to the
// caller only and are never logged.
func (s *Session) SendCode(ctx context.Context, phone string) ([]model.Notice, error) {
	out := notify.NewQueue()
	err := s.identity.SendCode(ctx, phone, out)
	return out.Drain(), err
}

// Verify checks code and signs the session in.
func (s *Session) Verify(ctx context.Context, phone, code string) (model.User, []model.Notice, error) {
	out := notify.NewQueue()
	if err := s.identity.VerifyCode(ctx, phone, code, notify.Fanout{out, notify.NewLogNotifier(s.logger)}); err != nil {
		return model.User{}, out.Drain(), err
	}

	var u model.User
	notices := s.Do(func() {
		u = s.Account.SignIn(context.WithoutCancel(ctx), phone)
	})
	return u, append(out.Drain(), notices...), nil
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Store    storage.Store
	Catalog  catalog.Provider
	Coupons  coupon.Table
	Identity auth.Provider
	Tokens   *auth.Tokens
	Checkout checkout.Config
	Clock    func() time.Time
	Logger   zerolog.Logger

	// IdleTTL is how long an unused session stays cached. Zero keeps
	// sessions for the process lifetime. Evicted sessions reopen from
	// storage on next use.
	IdleTTL time.Duration
}

type cachedSession struct {
	s        *Session
	lastUsed time.Time
}

// Manager opens sessions lazily and caches them until they go idle.
type Manager struct {
	deps   Deps
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*cachedSession
}

// NewManager creates a Manager.
func NewManager(deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Manager{
		deps:     deps,
		logger:   deps.Logger.With().Str("component", "session").Logger(),
		sessions: make(map[string]*cachedSession),
	}
}

// Catalog returns the shared catalogue.
func (m *Manager) Catalog() catalog.Provider {
	return m.deps.Catalog
}

// Coupons returns the shared coupon table.
func (m *Manager) Coupons() coupon.Table {
	return m.deps.Coupons
}

// Create starts a new session and returns it with a signed token.
func (m *Manager) Create(ctx context.Context) (*Session, string, time.Time, error) {
	s, err := m.Get(ctx, auth.NewSessionID())
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, expires, err := m.deps.Tokens.Issue(s.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	m.logger.Info().Str("session_id", s.ID).Msg("session created")
	return s, token, expires, nil
}

// Resume returns the session a token was issued for.
func (m *Manager) Resume(ctx context.Context, token string) (*Session, error) {
	id, err := m.deps.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return m.Get(ctx, id)
}

// Get returns the session with id, opening it from storage on first use.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.deps.Clock()
	if c, ok := m.sessions[id]; ok {
		c.lastUsed = now
		return c.s, nil
	}

	s, err := m.open(ctx, id)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = &cachedSession{s: s, lastUsed: now}
	return s, nil
}

// EvictIdle drops cached sessions unused for longer than IdleTTL and returns
// how many were dropped. A session with an operation in progress is kept.
func (m *Manager) EvictIdle() int {
	if m.deps.IdleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.deps.Clock()
	evicted := 0
	for id, c := range m.sessions {
		if now.Sub(c.lastUsed) <= m.deps.IdleTTL {
			continue
		}
		if !c.s.mu.TryLock() {
			continue
		}
		delete(m.sessions, id)
		c.s.mu.Unlock()
		evicted++
	}
	if evicted > 0 {
		m.logger.Debug().Int("evicted", evicted).Int("open", len(m.sessions)).Msg("idle sessions evicted")
	}
	return evicted
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) {
	if m.deps.IdleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

func (m *Manager) open(ctx context.Context, id string) (*Session, error) {
	logger := m.logger.With().Str("session_id", id).Logger()
	kv := storage.Namespace(m.deps.Store, storage.SessionPrefix(id))

	s := &Session{
		ID:       id,
		queue:    notify.NewQueue(),
		identity: m.deps.Identity,
		logger:   logger,
	}
	notifier := notify.Fanout{s.queue, notify.NewLogNotifier(logger)}

	var err error
	if s.Cart, err = cart.Open(ctx, kv, m.deps.Coupons, notifier, logger); err != nil {
		return nil, fmt.Errorf("failed to open session %s: %w", id, err)
	}
	if s.Wishlist, err = wishlist.Open(ctx, kv, notifier, logger); err != nil {
		return nil, fmt.Errorf("failed to open session %s: %w", id, err)
	}
	if s.Orders, err = order.Open(ctx, kv, logger, order.WithClock(m.deps.Clock)); err != nil {
		return nil, fmt.Errorf("failed to open session %s: %w", id, err)
	}
	if s.Account, err = auth.OpenAccount(ctx, kv, notifier, logger); err != nil {
		return nil, fmt.Errorf("failed to open session %s: %w", id, err)
	}
	s.Checkout = checkout.NewService(m.deps.Checkout, s, s.Cart, s.Orders, s.Account, notifier, logger)

	logger.Debug().Msg("session opened")
	return s, nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
