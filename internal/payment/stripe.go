package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// Stripe implements Processor over Stripe Checkout sessions and signed
// webhook events.
type Stripe struct {
	client        *client.API
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string) (*Stripe, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("%w: missing STRIPE_SECRET_KEY", ErrMissingConfig)
	}
	// Bounded timeout + a couple of retries for transient network failures.
	// Stripe's idempotency keys make the retries safe.
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: 30 * time.Second},
		MaxNetworkRetries: stripe.Int64(2),
	}
	sc := &client.API{}
	sc.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})
	return &Stripe{client: sc, webhookSecret: webhookSecret}, nil
}

func (s *Stripe) CreateSession(ctx context.Context, in CreateSessionInput) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	// Opaque correlation metadata; the webhook path reads these back.
	params.AddMetadata("orderId", in.OrderID)
	params.AddMetadata("userId", in.UserID)

	for _, it := range in.Items {
		pd := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(it.Name),
		}
		if it.Description != "" {
			pd.Description = stripe.String(it.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(it.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(it.Currency),
				UnitAmount:  stripe.Int64(int64(it.UnitAmountCents)),
				ProductData: pd,
			},
		})
	}

	sess, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, categorize(err)
	}
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

func categorize(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		switch {
		case sErr.HTTPStatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrMissingConfig, sErr.Msg)
		case sErr.Type == stripe.ErrorTypeInvalidRequest:
			return fmt.Errorf("%w: %s", ErrSessionRejected, sErr.Msg)
		default:
			return fmt.Errorf("%w: %s", ErrUnavailable, sErr.Msg)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// VerifyEvent fails closed: missing secret, missing header, or a bad
// signature all reject the payload before it is interpreted.
func (s *Stripe) VerifyEvent(payload []byte, sigHeader string) (Event, error) {
	if s.webhookSecret == "" {
		return Event{}, fmt.Errorf("%w: missing STRIPE_WEBHOOK_SECRET", ErrMissingConfig)
	}
	if sigHeader == "" {
		return Event{}, fmt.Errorf("%w: missing Stripe-Signature header", ErrInvalidSignature)
	}

	// Version pinning is a compatibility concern, not authentication: an
	// endpoint pinned to another API version still sends correctly signed
	// events, and those must not be rejected as auth failures.
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch string(ev.Type) {
	case "checkout.session.completed":
		return sessionEvent(EventPaymentCompleted, ev)
	case "checkout.session.expired":
		return sessionEvent(EventPaymentExpired, ev)
	}
	return Event{ID: ev.ID, Kind: EventUnknown}, nil
}

func sessionEvent(kind EventKind, ev stripe.Event) (Event, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return Event{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out := Event{
		ID:        ev.ID,
		Kind:      kind,
		SessionID: sess.ID,
		OrderID:   sess.Metadata["orderId"],
		UserID:    sess.Metadata["userId"],
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	if sess.CustomerDetails != nil {
		out.CustomerEmail = sess.CustomerDetails.Email
		out.CustomerName = sess.CustomerDetails.Name
	}
	return out, nil
}
