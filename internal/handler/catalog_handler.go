package handler

import (
	"net/http"

	"freshmart/internal/catalog"
	"freshmart/internal/model"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// CatalogHandler serves the read-only catalogue.
type CatalogHandler struct {
	catalog catalog.Provider
	logger  zerolog.Logger
}

// NewCatalogHandler creates a new catalogue handler.
func NewCatalogHandler(provider catalog.Provider, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: provider,
		logger:  logger.With().Str("handler", "catalog").Logger(),
	}
}

// ProductDetail is a product with its related products.
type ProductDetail struct {
	Product model.Product   `json:"product"`
	Related []model.Product `json:"related"`
}

// Categories handles GET /api/categories.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Categories())
}

// Products handles GET /api/products with optional category and q filters.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.catalog.Filter(q.Get("category"), q.Get("q")))
}

// Product handles GET /api/products/:id.
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	p, err := h.catalog.Get(id)
	if err != nil {
		respondError(w, err, nil, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ProductDetail{
		Product: p,
		Related: h.catalog.Related(p, catalog.DefaultRelatedLimit),
	})
}
