package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"freshmart/internal/cart"
	"freshmart/internal/catalog"
	"freshmart/internal/config"
	"freshmart/internal/coupon"
	"freshmart/internal/model"
	"freshmart/internal/notify"
	"freshmart/internal/order"
	"freshmart/internal/storage"
	"freshmart/internal/wishlist"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApp returns an app over an in-memory store holding one session.
func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()

	products, err := catalog.New(ctx, catalog.EmbeddedSource())
	require.NoError(t, err)
	apples, err := products.Get("1")
	require.NoError(t, err)

	kv := storage.NewMemoryStore()
	ns := storage.Namespace(kv, storage.SessionPrefix("s1"))

	c, err := cart.Open(ctx, ns, coupon.DefaultTable(), notify.Discard, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.AddItem(ctx, apples, 2))
	require.NoError(t, c.ApplyCoupon(ctx, "save20"))

	wl, err := wishlist.Open(ctx, ns, notify.Discard, zerolog.Nop())
	require.NoError(t, err)
	wl.Add(ctx, apples)

	orders, err := order.Open(ctx, ns, zerolog.Nop())
	require.NoError(t, err)
	orders.CreateOrder(ctx, order.Draft{
		Items:         []model.CartLine{{Product: apples, Quantity: 1}},
		TotalPrice:    apples.Price,
		Discount:      decimal.Zero,
		PaymentMethod: "Cash on Delivery",
	})

	// A second session with only a wishlist.
	other := storage.Namespace(kv, storage.SessionPrefix("s2"))
	wl2, err := wishlist.Open(ctx, other, notify.Discard, zerolog.Nop())
	require.NoError(t, err)
	wl2.Add(ctx, apples)

	var out bytes.Buffer
	a := newApp(&out)
	a.cfg = &config.Config{}
	a.openStore = func(context.Context) (storage.Store, error) { return kv, nil }
	a.openCatalog = func(context.Context) (catalog.Provider, error) { return products, nil }
	a.openCoupons = func(context.Context) (coupon.Table, error) { return coupon.DefaultTable(), nil }
	return a, &out
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestSessionIDs(t *testing.T) {
	keys := []string{
		"session:b:freshmart_cart",
		"session:a:freshmart_cart",
		"session:a:freshmart_orders",
		"other",
		"session:broken",
	}
	assert.Equal(t, []string{"a", "b"}, sessionIDs(keys))
	assert.Empty(t, sessionIDs(nil))
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "Sessions",
			args:     []string{"sessions"},
			contains: []string{"s1", "s2"},
		},
		{
			name:     "Cart",
			args:     []string{"cart", "--session", "s1"},
			contains: []string{"Fresh Red Apples", "298.00", "SAVE20 (20%)", "-59.60", "238.40"},
		},
		{
			name:     "Wishlist",
			args:     []string{"wishlist", "--session", "s1"},
			contains: []string{"Fresh Red Apples", "149.00", "true"},
		},
		{
			name:     "Orders",
			args:     []string{"orders", "--session", "s1"},
			contains: []string{"ORD", "149.00", "Cash on Delivery", "confirmed"},
		},
		{
			name:     "Coupons",
			args:     []string{"coupons"},
			contains: []string{"FRESH10", "SAVE20", "20%", "WELCOME15"},
		},
		{
			name:     "Catalog by category",
			args:     []string{"catalog", "--category", "dairy"},
			contains: []string{"Full Cream Milk", "dairy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, out := newTestApp(t)

			require.NoError(t, run(t, a, tt.args...))

			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestCatalogQuery_JSON(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "catalog", "--query", "apple", "--json"))

	var products []model.Product
	require.NoError(t, json.Unmarshal(out.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "1", products[0].ID)
}

func TestOrders_ByID(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "orders", "--session", "s1", "--json"))
	var orders []model.Order
	require.NoError(t, json.Unmarshal(out.Bytes(), &orders))
	require.Len(t, orders, 1)

	out.Reset()
	require.NoError(t, run(t, a, "orders", "--session", "s1", "--id", orders[0].ID))
	var got model.Order
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, orders[0].ID, got.ID)

	err := run(t, a, "orders", "--session", "s1", "--id", "ORD0")
	assert.ErrorContains(t, err, "not found")
}

func TestSessionFlagRequired(t *testing.T) {
	a, _ := newTestApp(t)

	for _, name := range []string{"cart", "wishlist", "orders"} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorContains(t, run(t, a, name), "--session is required")
		})
	}
}

func TestEmptySession(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "cart", "--session", "nobody", "--json"))

	var resp struct {
		Items  []model.CartLine `json:"items"`
		Totals cart.Totals      `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Totals.Total.IsZero())
}
