package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"freshmart/internal/auth"
	"freshmart/internal/catalog"
	"freshmart/internal/checkout"
	"freshmart/internal/coupon"
	"freshmart/internal/handler"
	"freshmart/internal/model"
	"freshmart/internal/session"
	"freshmart/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testAPIKey = "test-api-key-123"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	products, err := catalog.New(context.Background(), catalog.EmbeddedSource())
	require.NoError(t, err)

	m := session.NewManager(session.Deps{
		Store:   storage.NewMemoryStore(),
		Catalog: products,
		Coupons: coupon.DefaultTable(),
		Identity: auth.NewProvider(auth.ProviderConfig{
			BypassCode: "123456",
			HashCost:   bcrypt.MinCost,
		}, zerolog.Nop()),
		Tokens:   auth.NewTokens("0123456789abcdef0123456789abcdef", time.Hour),
		Checkout: checkout.Config{Delay: 0},
		Logger:   zerolog.Nop(),
	})

	return New(m, Options{APIKey: testAPIKey, AllowedOrigins: []string{"https://shop.example"}}, zerolog.Nop())
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-API-Key", testAPIKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name           string
		method         string
		path           string
		apiKey         string
		expectedStatus int
	}{
		{name: "Health without key", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK},
		{name: "Categories", method: http.MethodGet, path: "/api/categories", apiKey: testAPIKey, expectedStatus: http.StatusOK},
		{name: "Products", method: http.MethodGet, path: "/api/products?category=fruits", apiKey: testAPIKey, expectedStatus: http.StatusOK},
		{name: "Product", method: http.MethodGet, path: "/api/products/1", apiKey: testAPIKey, expectedStatus: http.StatusOK},
		{name: "Unknown product", method: http.MethodGet, path: "/api/products/999", apiKey: testAPIKey, expectedStatus: http.StatusNotFound},
		{name: "Missing API key", method: http.MethodGet, path: "/api/products", expectedStatus: http.StatusUnauthorized},
		{name: "Unknown route", method: http.MethodGet, path: "/api/unknown", apiKey: testAPIKey, expectedStatus: http.StatusNotFound},
		{name: "Wrong method", method: http.MethodPatch, path: "/api/products", apiKey: testAPIKey, expectedStatus: http.StatusMethodNotAllowed},
		{name: "Cart without session", method: http.MethodGet, path: "/api/cart", apiKey: testAPIKey, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRouter_Preflight(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/cart/items", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, X-API-Key")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ShoppingFlow(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodPost, "/api/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var sess handler.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	token := sess.Token

	w = do(t, h, http.MethodGet, "/api/cart", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/api/cart/items", token, map[string]any{"productId": "9", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPut, "/api/cart/items/9", token, map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/cart/coupon", token, map[string]any{"code": "fresh10"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cartResp handler.CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cartResp))
	assert.Equal(t, 3, cartResp.Totals.TotalItems)
	assert.Equal(t, "FRESH10", cartResp.Totals.CouponCode)

	w = do(t, h, http.MethodPost, "/api/wishlist/items", token, map[string]any{"productId": "1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/api/checkout", token, model.CheckoutRequest{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/api/auth/verify", token, map[string]any{"phone": "9876543210", "code": "123456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/checkout", token, model.CheckoutRequest{
		Address: model.DeliveryAddress{
			Name:    "Asha",
			Address: "12 MG Road",
			City:    "Bengaluru",
			Pincode: "560001",
		},
		PaymentMethod: "card",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed handler.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))
	assert.Equal(t, "9876543210", placed.Order.DeliveryAddress.Phone)
	assert.Equal(t, "FRESH10", placed.Order.CouponCode)

	w = do(t, h, http.MethodGet, "/api/orders/"+placed.Order.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/cart", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cartResp))
	assert.Empty(t, cartResp.Items)
	assert.Empty(t, cartResp.Totals.CouponCode)

	w = do(t, h, http.MethodGet, "/api/wishlist/items/1", token, nil)
	var contains handler.ContainsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contains))
	assert.True(t, contains.InWishlist)
}
