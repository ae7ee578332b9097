package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wealthwave/checkout-service/internal/checkout"
	"github.com/wealthwave/checkout-service/internal/payment"
)

type CheckoutHandler struct {
	Service *checkout.Service
}

type checkoutReq struct {
	Items []checkout.ItemInput `json:"items"`
}

type checkoutResp struct {
	URL     string `json:"url"`
	OrderID string `json:"order_id"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.create)
}

func (h *CheckoutHandler) create(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	// Session creation calls out to the processor; give it room.
	ctx, cancel := context.WithTimeout(r.Context(), 35*time.Second)
	defer cancel()

	res, err := h.Service.Checkout(ctx, uid, req.Items)
	if err != nil {
		switch {
		case checkout.IsValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, payment.ErrMissingConfig):
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "payment processor misconfigured"})
		case errors.Is(err, payment.ErrSessionRejected):
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment session rejected"})
		case errors.Is(err, payment.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "payment processor unavailable"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, checkoutResp{URL: res.URL, OrderID: res.Order.ID})
}
