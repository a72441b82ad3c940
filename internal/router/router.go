package router

import (
	"net/http"

	"freshmart/internal/handler"
	"freshmart/internal/middleware"
	"freshmart/internal/model"
	"freshmart/internal/session"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Options configures the router.
type Options struct {
	APIKey         string
	AllowedOrigins []string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(sessions *session.Manager, opts Options, logger zerolog.Logger) http.Handler {
	r := httprouter.New()
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, model.ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	// Health check endpoint (no authentication required)
	r.HandlerFunc(http.MethodGet, "/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})

	catalogHandler := handler.NewCatalogHandler(sessions.Catalog(), logger)
	sessionHandler := handler.NewSessionHandler(sessions, logger)
	cartHandler := handler.NewCartHandler(sessions.Catalog(), logger)
	wishlistHandler := handler.NewWishlistHandler(sessions.Catalog(), logger)
	authHandler := handler.NewAuthHandler(logger)
	orderHandler := handler.NewOrderHandler(logger)

	r.HandlerFunc(http.MethodPost, "/api/sessions", sessionHandler.Create)
	r.HandlerFunc(http.MethodGet, "/api/categories", catalogHandler.Categories)
	r.HandlerFunc(http.MethodGet, "/api/products", catalogHandler.Products)
	r.HandlerFunc(http.MethodGet, "/api/products/:id", catalogHandler.Product)

	// Everything below acts on the caller's session.
	requireSession := middleware.RequireSession(sessions, logger)
	withSession := func(method, path string, h http.HandlerFunc) {
		r.Handler(method, path, requireSession(h))
	}

	withSession(http.MethodGet, "/api/cart", cartHandler.Get)
	withSession(http.MethodDelete, "/api/cart", cartHandler.Clear)
	withSession(http.MethodPost, "/api/cart/items", cartHandler.AddItem)
	withSession(http.MethodPut, "/api/cart/items/:productId", cartHandler.UpdateItem)
	withSession(http.MethodDelete, "/api/cart/items/:productId", cartHandler.RemoveItem)
	withSession(http.MethodPost, "/api/cart/coupon", cartHandler.ApplyCoupon)
	withSession(http.MethodDelete, "/api/cart/coupon", cartHandler.RemoveCoupon)

	withSession(http.MethodGet, "/api/wishlist", wishlistHandler.Get)
	withSession(http.MethodDelete, "/api/wishlist", wishlistHandler.Clear)
	withSession(http.MethodPost, "/api/wishlist/items", wishlistHandler.Add)
	withSession(http.MethodGet, "/api/wishlist/items/:productId", wishlistHandler.Contains)
	withSession(http.MethodDelete, "/api/wishlist/items/:productId", wishlistHandler.Remove)

	withSession(http.MethodPost, "/api/auth/otp", authHandler.SendCode)
	withSession(http.MethodPost, "/api/auth/verify", authHandler.Verify)
	withSession(http.MethodGet, "/api/auth/me", authHandler.Me)
	withSession(http.MethodPut, "/api/auth/me", authHandler.UpdateProfile)
	withSession(http.MethodPost, "/api/auth/logout", authHandler.Logout)

	withSession(http.MethodPost, "/api/checkout", orderHandler.Checkout)
	withSession(http.MethodGet, "/api/orders", orderHandler.List)
	withSession(http.MethodGet, "/api/orders/:id", orderHandler.GetByID)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.APIKeyHeader, "Authorization"},
		MaxAge:         600,
	})

	// Apply middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth
	var h http.Handler = r
	h = middleware.APIKeyAuth(opts.APIKey, logger)(h)
	h = c.Handler(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}

func writeStatus(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","message":"` + message + `"}`))
}
