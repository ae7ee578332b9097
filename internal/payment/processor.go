package payment

import (
	"context"
	"errors"
)

type EventKind string

const (
	EventPaymentCompleted EventKind = "payment_completed"
	EventPaymentExpired   EventKind = "payment_expired"
	// EventUnknown covers processor event types this service does not handle.
	// They are acknowledged, never failed.
	EventUnknown EventKind = "unknown"
)

// Event is the normalized, already-authenticated form of a processor
// notification. OrderID/UserID come from the metadata attached at
// session-creation time.
type Event struct {
	ID              string
	Kind            EventKind
	SessionID       string
	OrderID         string
	UserID          string
	PaymentIntentID string
	CustomerEmail   string
	CustomerName    string
}

type LineItem struct {
	Name            string
	Description     string
	Quantity        int
	UnitAmountCents int
	Currency        string
}

type CreateSessionInput struct {
	OrderID    string
	UserID     string
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID  string
	URL string
}

// Processor is the full contract with the external payment provider:
// open a collection session, and verify+decode a signed notification.
type Processor interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (Session, error)
	VerifyEvent(payload []byte, sigHeader string) (Event, error)
}

// Error categories. Operators need to tell a misconfigured deployment from a
// transient outage, so these are never collapsed.
var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingConfig    = errors.New("payment processor not configured")
	ErrSessionRejected  = errors.New("payment session rejected")
	ErrUnavailable      = errors.New("payment processor unavailable")
)
