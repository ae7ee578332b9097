package checkout

import (
	"context"
	"fmt"

	"github.com/wealthwave/checkout-service/internal/catalog"
	"github.com/wealthwave/checkout-service/internal/orders"
	"github.com/wealthwave/checkout-service/internal/payment"
)

type Catalog interface {
	FindActiveProducts(ctx context.Context, ids []string) ([]catalog.Product, error)
}

type Store interface {
	CreateOrder(ctx context.Context, userID, currency string, totalCents int, items []orders.LineItemInput) (orders.Order, error)
	SetCheckoutSession(ctx context.Context, orderID, sessionID string) error
}

type Service struct {
	Catalog   Catalog
	Store     Store
	Processor payment.Processor

	// Origin for the processor's redirect URLs, e.g. "https://shop.example.com".
	BaseURL string
}

type Result struct {
	Order orders.Order
	URL   string
}

// Checkout runs the request path end to end: validate and price the cart,
// materialize the order, open the payment session, record its id on the
// order. Validation failures happen before any write; a processor failure
// leaves a pending order that will simply never receive a webhook.
func (s *Service) Checkout(ctx context.Context, userID string, items []ItemInput) (Result, error) {
	if len(items) == 0 {
		return Result{}, ErrEmptyCart
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Catalog.FindActiveProducts(ctx, ids)
	if err != nil {
		return Result{}, fmt.Errorf("catalog lookup: %w", err)
	}

	cart, err := PriceCart(items, products)
	if err != nil {
		return Result{}, err
	}

	inputs := make([]orders.LineItemInput, 0, len(cart.Items))
	for _, it := range cart.Items {
		inputs = append(inputs, orders.LineItemInput{
			ProductID:      it.Product.ID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	order, err := s.Store.CreateOrder(ctx, userID, cart.Currency, cart.TotalCents, inputs)
	if err != nil {
		return Result{}, fmt.Errorf("create order: %w", err)
	}

	in := payment.CreateSessionInput{
		OrderID:    order.ID,
		UserID:     userID,
		SuccessURL: s.BaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.BaseURL + "/checkout/cancel",
	}
	for _, it := range cart.Items {
		in.Items = append(in.Items, payment.LineItem{
			Name:            it.Product.Name,
			Description:     it.Product.Description,
			Quantity:        it.Quantity,
			UnitAmountCents: it.UnitPriceCents,
			Currency:        it.Product.Currency,
		})
	}
	sess, err := s.Processor.CreateSession(ctx, in)
	if err != nil {
		return Result{}, err
	}

	if err := s.Store.SetCheckoutSession(ctx, order.ID, sess.ID); err != nil {
		return Result{}, fmt.Errorf("record checkout session: %w", err)
	}
	order.CheckoutSessionID = sess.ID

	return Result{Order: order, URL: sess.URL}, nil
}
