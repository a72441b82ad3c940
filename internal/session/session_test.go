package session

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"freshmart/internal/auth"
	"freshmart/internal/catalog"
	"freshmart/internal/checkout"
	"freshmart/internal/coupon"
	"freshmart/internal/model"
	"freshmart/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newManager(t *testing.T, kv storage.Store) *Manager {
	t.Helper()

	products, err := catalog.New(context.Background(), catalog.EmbeddedSource())
	require.NoError(t, err)

	return NewManager(Deps{
		Store:    kv,
		Catalog:  products,
		Coupons:  coupon.DefaultTable(),
		Identity: auth.NewProvider(auth.ProviderConfig{
			BypassCode: "123456",
			HashCost:   bcrypt.MinCost,
		}, zerolog.Nop()),
		Tokens:   auth.NewTokens("0123456789abcdef0123456789abcdef", time.Hour),
		Checkout: checkout.Config{Delay: 0},
		Logger:   zerolog.Nop(),
	})
}

func TestManager_CreateAndResume(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemoryStore())

	s, token, expires, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expires.After(time.Now()))

	resumed, err := m.Resume(ctx, token)
	require.NoError(t, err)
	assert.Same(t, s, resumed)
	assert.Equal(t, 1, m.Len())

	_, err = m.Resume(ctx, "forged")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	m := newManager(t, kv)

	a, _, _, err := m.Create(ctx)
	require.NoError(t, err)
	b, _, _, err := m.Create(ctx)
	require.NoError(t, err)

	apples, err := m.Catalog().Get("1")
	require.NoError(t, err)

	notices := a.Do(func() {
		require.NoError(t, a.Cart.AddItem(ctx, apples, 2))
	})
	require.Len(t, notices, 1)
	assert.Equal(t, "Added to Cart", notices[0].Title)

	b.Do(func() {
		assert.Empty(t, b.Cart.Lines())
	})

	keys, err := kv.Keys(ctx, storage.SessionPrefix(a.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{storage.SessionPrefix(a.ID) + "freshmart_cart"}, keys)
}

func TestSessionReopensFromStorage(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()

	first := newManager(t, kv)
	s, token, _, err := first.Create(ctx)
	require.NoError(t, err)

	apples, err := first.Catalog().Get("1")
	require.NoError(t, err)
	s.Do(func() {
		require.NoError(t, s.Cart.AddItem(ctx, apples, 3))
		require.NoError(t, s.Cart.ApplyCoupon(ctx, "welcome15"))
		s.Wishlist.Add(ctx, apples)
	})

	// a restarted process with the same secret and storage
	second := newManager(t, kv)
	resumed, err := second.Resume(ctx, token)
	require.NoError(t, err)

	resumed.Do(func() {
		assert.Equal(t, 3, resumed.Cart.Totals().TotalItems)
		assert.Equal(t, "WELCOME15", resumed.Cart.State().CouponCode)
		assert.True(t, resumed.Wishlist.Contains("1"))
	})
}

func TestSession_SignInAndCheckout(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemoryStore())

	s, _, _, err := m.Create(ctx)
	require.NoError(t, err)

	notices, err := s.SendCode(ctx, "9876543210")
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, "Demo OTP", notices[0].Title)

	user, notices, err := s.Verify(ctx, "9876543210", "123456")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", user.Phone)
	assert.Equal(t, "Welcome!", notices[len(notices)-1].Title)

	apples, err := m.Catalog().Get("1")
	require.NoError(t, err)
	s.Do(func() {
		require.NoError(t, s.Cart.AddItem(ctx, apples, 1))
	})

	placed, notices, err := s.Checkout.PlaceOrder(ctx, model.CheckoutRequest{
		Address: model.DeliveryAddress{
			Name: "Asha", Address: "12 MG Road", City: "Bengaluru", Pincode: "560001",
		},
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, "Credit/Debit Card", placed.PaymentMethod)
	assert.Equal(t, "9876543210", placed.DeliveryAddress.Phone)
	assert.Equal(t, "Order Placed!", notices[len(notices)-1].Title)

	s.Do(func() {
		assert.Empty(t, s.Cart.Lines())
		orders := s.Orders.Orders()
		require.Len(t, orders, 1)
		assert.Equal(t, placed.ID, orders[0].ID)
	})
}

func TestSession_SendCodeKeepsCodeOutOfLogs(t *testing.T) {
	ctx := context.Background()

	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)

	products, err := catalog.New(ctx, catalog.EmbeddedSource())
	require.NoError(t, err)
	m := NewManager(Deps{
		Store:    storage.NewMemoryStore(),
		Catalog:  products,
		Coupons:  coupon.DefaultTable(),
		Identity: auth.NewProvider(auth.ProviderConfig{HashCost: bcrypt.MinCost}, logger),
		Tokens:   auth.NewTokens("0123456789abcdef0123456789abcdef", time.Hour),
		Logger:   logger,
	})
	s, _, _, err := m.Create(ctx)
	require.NoError(t, err)

	notices, err := s.SendCode(ctx, "9876543210")
	require.NoError(t, err)
	require.NotEmpty(t, notices)
	code, ok := strings.CutPrefix(notices[0].Message, "Demo OTP: ")
	require.True(t, ok)

	assert.Contains(t, logs.String(), "code issued")
	assert.NotContains(t, logs.String(), code)
}

func TestManager_EvictIdle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	products, err := catalog.New(ctx, catalog.EmbeddedSource())
	require.NoError(t, err)
	m := NewManager(Deps{
		Store:    storage.NewMemoryStore(),
		Catalog:  products,
		Coupons:  coupon.DefaultTable(),
		Identity: auth.NewProvider(auth.ProviderConfig{HashCost: bcrypt.MinCost}, zerolog.Nop()),
		Tokens:   auth.NewTokens("0123456789abcdef0123456789abcdef", time.Hour),
		Clock:    func() time.Time { return now },
		Logger:   zerolog.Nop(),
		IdleTTL:  30 * time.Minute,
	})

	idle, _, _, err := m.Create(ctx)
	require.NoError(t, err)
	milk, err := products.Get("9")
	require.NoError(t, err)
	idle.Do(func() {
		require.NoError(t, idle.Cart.AddItem(ctx, milk, 2))
	})

	now = now.Add(20 * time.Minute)
	active, _, _, err := m.Create(ctx)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, m.EvictIdle())
	assert.Equal(t, 1, m.Len())

	again, err := m.Get(ctx, active.ID)
	require.NoError(t, err)
	assert.Same(t, active, again)

	// an evicted session reopens from storage
	reopened, err := m.Get(ctx, idle.ID)
	require.NoError(t, err)
	assert.NotSame(t, idle, reopened)
	reopened.Do(func() {
		assert.Equal(t, 2, reopened.Cart.Totals().TotalItems)
	})
}

func TestManager_EvictIdleKeepsBusySession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	products, err := catalog.New(ctx, catalog.EmbeddedSource())
	require.NoError(t, err)
	m := NewManager(Deps{
		Store:    storage.NewMemoryStore(),
		Catalog:  products,
		Coupons:  coupon.DefaultTable(),
		Identity: auth.NewProvider(auth.ProviderConfig{HashCost: bcrypt.MinCost}, zerolog.Nop()),
		Tokens:   auth.NewTokens("0123456789abcdef0123456789abcdef", time.Hour),
		Clock:    func() time.Time { return now },
		Logger:   zerolog.Nop(),
		IdleTTL:  time.Minute,
	})
	s, _, _, err := m.Create(ctx)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	s.Do(func() {
		assert.Equal(t, 0, m.EvictIdle())
	})
	assert.Equal(t, 1, m.EvictIdle())
}

func TestSession_VerifyRejected(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemoryStore())
	s, _, _, err := m.Create(ctx)
	require.NoError(t, err)

	_, notices, err := s.Verify(ctx, "9876543210", "000000")
	require.ErrorIs(t, err, model.ErrInvalidCode)
	require.Len(t, notices, 1)
	assert.Equal(t, "Invalid OTP", notices[0].Title)

	s.Do(func() {
		_, ok := s.Account.User()
		assert.False(t, ok)
	})
}

func TestSession_ConcurrentOperationsAreSerialised(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemoryStore())
	s, _, _, err := m.Create(ctx)
	require.NoError(t, err)

	milk, err := m.Catalog().Get("9")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Do(func() {
				_ = s.Cart.AddItem(ctx, milk, 1)
			})
		}()
	}
	wg.Wait()

	s.Do(func() {
		assert.Equal(t, 20, s.Cart.Totals().TotalItems)
	})
}

func TestManager_GetIsIdempotentUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemoryStore())
	id := auth.NewSessionID()

	var wg sync.WaitGroup
	got := make([]*Session, 10)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Get(ctx, id)
			assert.NoError(t, err)
			got[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		assert.Same(t, got[0], s)
	}
}
