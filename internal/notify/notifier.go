package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/wealthwave/checkout-service/internal/kafka"
)

const TopicOrderFulfilled = "order.fulfilled"

const (
	EventOrderPaid    = "OrderPaid"
	EventOrderExpired = "OrderExpired"
)

// PartitionKey keeps all events of one order in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type SummaryItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"` // display price, e.g. "$97"
}

// PurchaseSummary is the order/customer digest handed to the side channel
// after fulfillment.
type PurchaseSummary struct {
	OrderID           string        `json:"order_id"`
	OrderStatus       string        `json:"order_status"`
	Total             string        `json:"total"`
	UserID            string        `json:"user_id"`
	CustomerName      string        `json:"customer_name,omitempty"`
	CustomerEmail     string        `json:"customer_email,omitempty"`
	CheckoutSessionID string        `json:"checkout_session_id,omitempty"`
	PaymentIntentID   string        `json:"payment_intent_id,omitempty"`
	Items             []SummaryItem `json:"items"`
}

// Notifier is strictly best-effort: implementations must never let a
// delivery failure reach the fulfillment path.
type Notifier interface {
	Notify(ctx context.Context, eventType string, s PurchaseSummary) error
}

// Kafka publishes summaries fire-and-forget through the async producer; by
// the time a broker error could happen, Notify has already returned.
type Kafka struct {
	Producer *kafkax.Producer
	Service  string
}

func (n *Kafka) Notify(_ context.Context, eventType string, s PurchaseSummary) error {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.Service,
		CorrelationID: s.OrderID,
		Payload:       kafkax.MustMarshal(s),
	}
	n.Producer.Publish(PartitionKey(s.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}
