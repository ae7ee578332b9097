package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wealthwave/checkout-service/internal/fulfillment"
	"github.com/wealthwave/checkout-service/internal/orders"
	"github.com/wealthwave/checkout-service/internal/payment"
)

// Stripe webhook bodies are small; cap reads defensively.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	Processor payment.Processor
	Engine    *fulfillment.Service
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/stripe/webhook", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	payloadBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	// Sole authentication boundary for this path. Nothing is read or
	// written until the signature checks out, and the response never
	// echoes signature or secret material.
	ev, err := h.Processor.VerifyEvent(payloadBytes, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrMissingConfig) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "webhook not configured"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.HandleEvent(ctx, ev)
	if err != nil {
		switch {
		case errors.Is(err, fulfillment.ErrMissingOrderID):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing order id"})
		case errors.Is(err, orders.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		default:
			// non-2xx: the processor redelivers
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true, "ignored": res.Ignored})
}
