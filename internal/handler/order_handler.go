package handler

import (
	"net/http"

	"freshmart/internal/model"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// OrderHandler handles checkout and order history requests.
type OrderHandler struct {
	logger zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		logger: logger.With().Str("handler", "order").Logger(),
	}
}

// OrderResponse carries a placed order.
type OrderResponse struct {
	Order   model.Order    `json:"order"`
	Notices []model.Notice `json:"notices"`
}

// Checkout handles POST /api/checkout.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}

	order, notices, err := s.Checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		respondError(w, err, notices, h.logger)
		return
	}

	h.logger.Info().
		Str("session_id", s.ID).
		Str("order_id", order.ID).
		Str("total", order.TotalPrice.StringFixed(2)).
		Msg("order placed")
	writeJSON(w, http.StatusCreated, OrderResponse{Order: order, Notices: nonNil(notices)})
}

// List handles GET /api/orders, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}

	var orders []model.Order
	s.Do(func() {
		orders = s.Orders.Orders()
	})
	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/:id.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	var (
		order model.Order
		found bool
	)
	s.Do(func() {
		order, found = s.Orders.GetOrder(id)
	})
	if !found {
		respondError(w, model.ErrOrderNotFound, nil, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
