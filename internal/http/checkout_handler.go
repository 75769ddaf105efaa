package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/storefront-cart/internal/cart"
	"github.com/fjod/storefront-cart/internal/checkout"
	"github.com/fjod/storefront-cart/internal/httpclient"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	carts    *cart.Registry
	checkout *checkout.Service
	timeout  time.Duration
	log      *zap.Logger
}

func NewCheckoutHandler(carts *cart.Registry, svc *checkout.Service, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutHandler{
		carts:    carts,
		checkout: svc,
		timeout:  timeout,
		log:      log,
	}
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	preview, err := h.checkout.Preview(ctx, h.carts.Get(getProfile(r.Context())))
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "cart_loading", "cart is still loading")
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserID(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	result, err := h.checkout.Submit(ctx, h.carts.Get(getProfile(r.Context())), userID)
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *CheckoutHandler) handleCheckoutError(w http.ResponseWriter, err error) {
	var apiErr *httpclient.APIError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrCheckoutInFlight):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.As(err, &apiErr):
		message := apiErr.Message
		if message == "" {
			message = "order was rejected"
		}
		respondError(w, http.StatusBadGateway, "order_rejected", message, apiErr.Details...)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "checkout timed out")
	default:
		h.log.Error("checkout failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "checkout_failed", "failed to place order")
	}
}
