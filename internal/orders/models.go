package orders

import (
	"time"

	"github.com/wealthwave/checkout-service/internal/catalog"
)

type Order struct {
	ID         string
	UserID     string
	Status     Status
	TotalCents int
	Currency   string

	// Set once the payment session bridge has run; correlates webhooks.
	CheckoutSessionID string
	// Set on the first transition to paid.
	PaymentIntentID string

	CreatedAt time.Time
	UpdatedAt time.Time
	Items     []LineItem
}

// LineItem is immutable after creation; UnitPriceCents is the price at
// materialization time, not the product's current price.
type LineItem struct {
	ID             string
	OrderID        string
	ProductID      string
	Quantity       int
	UnitPriceCents int

	// Denormalized from the product row on read, for fulfillment/notification.
	ProductName string
	ProductType catalog.Type
}

func (li LineItem) GrantsEntitlement() bool { return li.ProductType == catalog.TypeCourse }

// LineItemInput is what the materializer persists for one validated cart item.
type LineItemInput struct {
	ProductID      string
	Quantity       int
	UnitPriceCents int
}

type Entitlement struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	OrderID   string    `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}
