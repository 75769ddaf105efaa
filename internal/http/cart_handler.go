package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront-cart/internal/cart"
	"github.com/fjod/storefront-cart/internal/catalog"
	"github.com/fjod/storefront-cart/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts    *cart.Registry
	products catalog.ProductLookup
	timeout  time.Duration
	log      *zap.Logger
}

func NewCartHandler(carts *cart.Registry, products catalog.ProductLookup, timeout time.Duration, log *zap.Logger) *CartHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartHandler{
		carts:    carts,
		products: products,
		timeout:  timeout,
		log:      log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

type SelectRequestDTO struct {
	Selected bool `json:"selected"`
}

type CartEntryDTO struct {
	Product  domain.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Selected bool            `json:"selected"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartResponseDTO struct {
	Entries []CartEntryDTO     `json:"entries"`
	Summary domain.CartSummary `json:"summary"`
	Loading bool               `json:"loading"`
}

func toCartResponse(entries []domain.CartEntry, loading bool) CartResponseDTO {
	resp := CartResponseDTO{
		Entries: make([]CartEntryDTO, 0, len(entries)),
		Summary: domain.Summarize(entries),
		Loading: loading,
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, CartEntryDTO{
			Product:  e.Product,
			Quantity: e.Quantity,
			Selected: e.Selected,
			Subtotal: e.Subtotal().Round(2),
		})
	}
	return resp
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store := h.carts.Get(getProfile(r.Context()))
	respondJSON(w, http.StatusOK, toCartResponse(store.Entries(), store.IsLoading()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeRequest(w, r, &req) {
		return
	}

	store, ok := h.loadedStore(ctx, w, r)
	if !ok {
		return
	}

	product, err := h.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		h.handleLookupError(w, req.ProductID, err)
		return
	}
	if !product.InStock() {
		respondError(w, http.StatusConflict, "out_of_stock", "product is out of stock")
		return
	}

	store.AddItem(*product)
	respondJSON(w, http.StatusCreated, toCartResponse(store.Entries(), false))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeRequest(w, r, &req) {
		return
	}

	store, ok := h.loadedItemStore(ctx, w, r, productID)
	if !ok {
		return
	}

	store.UpdateQuantity(productID, req.Quantity)
	respondJSON(w, http.StatusOK, toCartResponse(store.Entries(), false))
}

// PATCH /api/v1/cart/items/{product_id}/selected
func (h *CartHandler) UpdateSelected(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	var req SelectRequestDTO
	if !decodeRequest(w, r, &req) {
		return
	}

	store, ok := h.loadedItemStore(ctx, w, r, productID)
	if !ok {
		return
	}

	store.UpdateSelected(productID, req.Selected)
	respondJSON(w, http.StatusOK, toCartResponse(store.Entries(), false))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	store, ok := h.loadedItemStore(ctx, w, r, productID)
	if !ok {
		return
	}

	store.RemoveItem(productID)
	respondJSON(w, http.StatusOK, toCartResponse(store.Entries(), false))
}

// POST /api/v1/cart/select-all
func (h *CartHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SelectRequestDTO
	if !decodeRequest(w, r, &req) {
		return
	}

	store, ok := h.loadedStore(ctx, w, r)
	if !ok {
		return
	}

	store.SelectAll(req.Selected)
	respondJSON(w, http.StatusOK, toCartResponse(store.Entries(), false))
}

// DELETE /api/v1/cart/selected
func (h *CartHandler) RemoveSelected(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.loadedStore(ctx, w, r)
	if !ok {
		return
	}

	store.RemoveSelected()
	respondJSON(w, http.StatusOK, toCartResponse(store.Entries(), false))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.loadedStore(ctx, w, r)
	if !ok {
		return
	}

	store.ClearCart()
	respondJSON(w, http.StatusOK, toCartResponse(store.Entries(), false))
}

// loadedStore returns the caller's store once it finished rehydrating. Mutating
// handlers wait so their response reflects the applied change.
func (h *CartHandler) loadedStore(ctx context.Context, w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	store := h.carts.Get(getProfile(r.Context()))
	if err := store.WaitLoaded(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "cart_loading", "cart is still loading")
		return nil, false
	}
	return store, true
}

// loadedItemStore is loadedStore plus a 404 when productID is not in the cart.
func (h *CartHandler) loadedItemStore(ctx context.Context, w http.ResponseWriter, r *http.Request, productID int64) (*cart.Store, bool) {
	store, ok := h.loadedStore(ctx, w, r)
	if !ok {
		return nil, false
	}
	for _, e := range store.Entries() {
		if e.Product.ID == productID {
			return store, true
		}
	}
	respondError(w, http.StatusNotFound, "item_not_found", "product is not in the cart")
	return nil, false
}

func (h *CartHandler) handleLookupError(w http.ResponseWriter, productID int64, err error) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "catalog lookup timed out")
	default:
		h.log.Error("product lookup failed", zap.Int64("product_id", productID), zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "failed to look up product")
	}
}

func parseProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
