package handler

import (
	"context"
	"net/http"

	"freshmart/internal/cart"
	"freshmart/internal/catalog"
	"freshmart/internal/model"
	"freshmart/internal/session"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// CartHandler handles cart requests for the caller's session.
type CartHandler struct {
	catalog catalog.Provider
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(provider catalog.Provider, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		catalog: provider,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// CartResponse is the cart as seen after a request.
type CartResponse struct {
	Items   []model.CartLine `json:"items"`
	Totals  cart.Totals      `json:"totals"`
	Notices []model.Notice   `json:"notices"`
}

// AddItemRequest adds a product to the cart. Quantity defaults to one.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

// UpdateItemRequest sets a line's quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// CouponRequest applies a coupon code.
type CouponRequest struct {
	Code string `json:"code"`
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}
	h.respond(w, s, http.StatusOK, nil)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, s *session.Session) error {
		s.Cart.Clear(ctx)
		return nil
	})
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	p, err := h.catalog.Get(req.ProductID)
	if err != nil {
		respondError(w, err, nil, h.logger)
		return
	}

	h.mutate(w, r, func(ctx context.Context, s *session.Session) error {
		return s.Cart.AddItem(ctx, p, quantity)
	})
}

// UpdateItem handles PUT /api/cart/items/:productId.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	id := httprouter.ParamsFromContext(r.Context()).ByName("productId")

	h.mutate(w, r, func(ctx context.Context, s *session.Session) error {
		return s.Cart.SetQuantity(ctx, id, req.Quantity)
	})
}

// RemoveItem handles DELETE /api/cart/items/:productId.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("productId")

	h.mutate(w, r, func(ctx context.Context, s *session.Session) error {
		s.Cart.RemoveItem(ctx, id)
		return nil
	})
}

// ApplyCoupon handles POST /api/cart/coupon.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	h.mutate(w, r, func(ctx context.Context, s *session.Session) error {
		return s.Cart.ApplyCoupon(ctx, req.Code)
	})
}

// RemoveCoupon handles DELETE /api/cart/coupon.
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, s *session.Session) error {
		s.Cart.RemoveCoupon(ctx)
		return nil
	})
}

// mutate runs fn under the session lock. Writes are not tied to the
// client connection once started.
func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, s *session.Session) error) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())

	var err error
	notices := s.Do(func() {
		err = fn(ctx, s)
	})
	if err != nil {
		respondError(w, err, notices, h.logger)
		return
	}
	h.respond(w, s, http.StatusOK, notices)
}

func (h *CartHandler) respond(w http.ResponseWriter, s *session.Session, status int, notices []model.Notice) {
	var resp CartResponse
	s.Do(func() {
		resp = CartResponse{Items: s.Cart.Lines(), Totals: s.Cart.Totals()}
	})
	resp.Notices = nonNil(notices)
	writeJSON(w, status, resp)
}
