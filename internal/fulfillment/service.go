package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/wealthwave/checkout-service/internal/money"
	"github.com/wealthwave/checkout-service/internal/notify"
	"github.com/wealthwave/checkout-service/internal/orders"
	"github.com/wealthwave/checkout-service/internal/payment"
	"github.com/wealthwave/checkout-service/internal/redisx"
)

var ErrMissingOrderID = errors.New("event carries no order id")

// Store is the slice of the order store the engine mutates. MarkPaid and
// MarkExpired must be conditional single-row updates; GrantEntitlement must
// be an insert-or-no-op on (user, product).
type Store interface {
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	MarkPaid(ctx context.Context, orderID, paymentIntentID string) (bool, error)
	MarkExpired(ctx context.Context, orderID string) (bool, error)
	GrantEntitlement(ctx context.Context, userID, productID, orderID string) error
}

type Service struct {
	Store       Store
	Notifier    notify.Notifier // optional
	Redis       *redis.Client   // optional event-id dedup fast path
	ServiceName string
}

type Result struct {
	OrderID    string
	Status     orders.Status
	BecamePaid bool
	Ignored    bool
}

// HandleEvent applies one verified processor event. Duplicate and
// out-of-order deliveries are no-ops, not errors; errors mean the caller
// should let the processor redeliver.
func (s *Service) HandleEvent(ctx context.Context, ev payment.Event) (Result, error) {
	switch ev.Kind {
	case payment.EventPaymentCompleted:
		return s.completed(ctx, ev)
	case payment.EventPaymentExpired:
		return s.expired(ctx, ev)
	}
	// Forward-compatible: event kinds we don't understand are acknowledged.
	return Result{Ignored: true}, nil
}

func (s *Service) completed(ctx context.Context, ev payment.Event) (Result, error) {
	if ev.OrderID == "" {
		return Result{}, ErrMissingOrderID
	}
	if s.seen(ctx, ev.ID) {
		return Result{OrderID: ev.OrderID, Status: orders.StatusPaid, Ignored: true}, nil
	}

	order, err := s.Store.GetOrder(ctx, ev.OrderID)
	if err != nil {
		return Result{}, err
	}

	// The conditional update in the store is the idempotency guard; the
	// status read above is only advisory under concurrent deliveries.
	becamePaid, err := s.Store.MarkPaid(ctx, order.ID, ev.PaymentIntentID)
	if err != nil {
		return Result{}, fmt.Errorf("mark paid: %w", err)
	}

	if becamePaid {
		for _, it := range order.Items {
			if !it.GrantsEntitlement() {
				continue
			}
			if err := s.Store.GrantEntitlement(ctx, order.UserID, it.ProductID, order.ID); err != nil {
				return Result{}, fmt.Errorf("grant entitlement %s: %w", it.ProductID, err)
			}
		}
	}

	s.notify(ctx, notify.EventOrderPaid, order, orders.StatusPaid, ev)
	s.markSeen(ctx, ev.ID)
	return Result{OrderID: order.ID, Status: orders.StatusPaid, BecamePaid: becamePaid}, nil
}

func (s *Service) expired(ctx context.Context, ev payment.Event) (Result, error) {
	// An expiry without an order reference has nothing to downgrade. Unlike
	// the completed path there is no payment to reconcile, so acknowledge it
	// rather than force a redelivery loop.
	if ev.OrderID == "" {
		return Result{Ignored: true}, nil
	}
	if s.seen(ctx, ev.ID) {
		return Result{OrderID: ev.OrderID, Ignored: true}, nil
	}

	order, err := s.Store.GetOrder(ctx, ev.OrderID)
	if err != nil {
		return Result{}, err
	}

	// Only pending orders expire; a completed payment always wins over a
	// stale expiry signal, whatever the arrival order.
	became, err := s.Store.MarkExpired(ctx, order.ID)
	if err != nil {
		return Result{}, fmt.Errorf("mark expired: %w", err)
	}

	status := order.Status
	if became {
		status = orders.StatusExpired
		s.notify(ctx, notify.EventOrderExpired, order, status, ev)
	}
	s.markSeen(ctx, ev.ID)
	return Result{OrderID: order.ID, Status: status}, nil
}

// notify is strictly best-effort: failures are logged and swallowed, never
// propagated, never rolled back against steps already taken.
func (s *Service) notify(ctx context.Context, eventType string, order orders.Order, status orders.Status, ev payment.Event) {
	if s.Notifier == nil {
		return
	}
	sum := notify.PurchaseSummary{
		OrderID:           order.ID,
		OrderStatus:       string(status),
		Total:             money.Format(order.TotalCents),
		UserID:            order.UserID,
		CustomerName:      ev.CustomerName,
		CustomerEmail:     ev.CustomerEmail,
		CheckoutSessionID: ev.SessionID,
		PaymentIntentID:   ev.PaymentIntentID,
	}
	for _, it := range order.Items {
		sum.Items = append(sum.Items, notify.SummaryItem{
			Name:     it.ProductName,
			Quantity: it.Quantity,
			Unit:     money.Format(it.UnitPriceCents),
		})
	}
	if err := s.Notifier.Notify(ctx, eventType, sum); err != nil {
		log.Printf("notify order %s: %v (ignored)", order.ID, err)
	}
}

// seen/markSeen are a redis fast path for duplicate deliveries. Redis being
// down or absent only costs extra no-op DB updates; the conditional update
// and the unique entitlement key remain the correctness mechanisms.
func (s *Service) seen(ctx context.Context, eventID string) bool {
	if s.Redis == nil || eventID == "" {
		return false
	}
	key := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, eventID)
	exists, err := redisx.Exists(ctx, s.Redis, key)
	return err == nil && exists
}

func (s *Service) markSeen(ctx context.Context, eventID string) {
	if s.Redis == nil || eventID == "" {
		return
	}
	key := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, eventID)
	_ = s.Redis.Set(ctx, key, "1", redisx.TTLDedup).Err()
}
