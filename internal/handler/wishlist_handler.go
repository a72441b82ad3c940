package handler

import (
	"context"
	"net/http"

	"freshmart/internal/catalog"
	"freshmart/internal/model"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// WishlistHandler handles wishlist requests for the caller's session.
type WishlistHandler struct {
	catalog catalog.Provider
	logger  zerolog.Logger
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(provider catalog.Provider, logger zerolog.Logger) *WishlistHandler {
	return &WishlistHandler{
		catalog: provider,
		logger:  logger.With().Str("handler", "wishlist").Logger(),
	}
}

// WishlistResponse is the wishlist as seen after a request.
type WishlistResponse struct {
	Items   []model.Product `json:"items"`
	Notices []model.Notice  `json:"notices"`
}

// WishlistItemRequest names a product to save.
type WishlistItemRequest struct {
	ProductID string `json:"productId"`
}

// ContainsResponse reports wishlist membership.
type ContainsResponse struct {
	ProductID  string `json:"productId"`
	InWishlist bool   `json:"inWishlist"`
}

// Get handles GET /api/wishlist.
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}

	var items []model.Product
	s.Do(func() {
		items = s.Wishlist.Items()
	})
	writeJSON(w, http.StatusOK, WishlistResponse{Items: items, Notices: []model.Notice{}})
}

// Clear handles DELETE /api/wishlist.
func (h *WishlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())

	var items []model.Product
	notices := s.Do(func() {
		s.Wishlist.Clear(ctx)
		items = s.Wishlist.Items()
	})
	writeJSON(w, http.StatusOK, WishlistResponse{Items: items, Notices: nonNil(notices)})
}

// Add handles POST /api/wishlist/items.
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req WishlistItemRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}

	p, err := h.catalog.Get(req.ProductID)
	if err != nil {
		respondError(w, err, nil, h.logger)
		return
	}
	ctx := context.WithoutCancel(r.Context())

	var items []model.Product
	notices := s.Do(func() {
		s.Wishlist.Add(ctx, p)
		items = s.Wishlist.Items()
	})
	writeJSON(w, http.StatusOK, WishlistResponse{Items: items, Notices: nonNil(notices)})
}

// Contains handles GET /api/wishlist/items/:productId.
func (h *WishlistHandler) Contains(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}
	id := httprouter.ParamsFromContext(r.Context()).ByName("productId")

	var in bool
	s.Do(func() {
		in = s.Wishlist.Contains(id)
	})
	writeJSON(w, http.StatusOK, ContainsResponse{ProductID: id, InWishlist: in})
}

// Remove handles DELETE /api/wishlist/items/:productId.
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}
	id := httprouter.ParamsFromContext(r.Context()).ByName("productId")
	ctx := context.WithoutCancel(r.Context())

	var items []model.Product
	notices := s.Do(func() {
		s.Wishlist.Remove(ctx, id)
		items = s.Wishlist.Items()
	})
	writeJSON(w, http.StatusOK, WishlistResponse{Items: items, Notices: nonNil(notices)})
}
