package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/wealthwave/checkout-service/internal/kafka"
	"github.com/wealthwave/checkout-service/internal/notify"
	"github.com/wealthwave/checkout-service/internal/redisx"
)

// Service turns fulfillment events into the admin purchase email. Installed
// as the consumer handler for the order.fulfilled topic.
type Service struct {
	Redis      *redis.Client
	Sender     Sender
	AdminEmail string
}

func (s *Service) HandleFulfillment(ctx context.Context, m kafkago.Message) error {
	var env notify.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	// Only paid orders are worth an email.
	if env.EventType != notify.EventOrderPaid {
		return nil
	}
	if s.AdminEmail == "" {
		return nil
	}

	// Dedup by event id so redelivery after a commit failure doesn't
	// double-email. Set only after a successful send.
	dkey := fmt.Sprintf(redisx.KeyDedup, "mailer", env.EventID)
	if s.Redis != nil {
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
	}

	sum, err := kafkax.UnwrapPayload[notify.PurchaseSummary](env.Payload)
	if err != nil {
		return err
	}

	if err := s.Sender.Send(buildAdminEmail(s.AdminEmail, sum)); err != nil {
		return err // no commit, consumer redelivers
	}
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	return nil
}

func buildAdminEmail(adminEmail string, sum notify.PurchaseSummary) Message {
	lines := []string{
		"New purchase (WealthWave Digital)",
		"",
		"Order: " + sum.OrderID,
		"Status: " + sum.OrderStatus,
		"Total: " + sum.Total,
		"",
		"User ID: " + sum.UserID,
		"Customer name: " + orUnknown(sum.CustomerName),
		"Customer email: " + orUnknown(sum.CustomerEmail),
		"Checkout session: " + orUnknown(sum.CheckoutSessionID),
		"Payment intent: " + orUnknown(sum.PaymentIntentID),
		"",
		"Items:",
	}
	for _, it := range sum.Items {
		lines = append(lines, fmt.Sprintf("- %d× %s @ %s", it.Quantity, it.Name, it.Unit))
	}
	return Message{
		To:      adminEmail,
		Subject: "New order: " + sum.Total,
		Body:    strings.Join(lines, "\n"),
		ReplyTo: sum.CustomerEmail,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
