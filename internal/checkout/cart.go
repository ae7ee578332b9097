package checkout

import (
	"errors"
	"fmt"

	"github.com/wealthwave/checkout-service/internal/catalog"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrUnknownProduct  = errors.New("unknown or inactive product")
	ErrMixedCurrency   = errors.New("cart mixes currencies")
)

type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PricedItem struct {
	Product        catalog.Product
	Quantity       int
	UnitPriceCents int
}

type PricedCart struct {
	Items      []PricedItem
	TotalCents int
	Currency   string
}

// PriceCart resolves requested items against the active catalog and prices
// them from server-side data only; client-supplied prices never enter here.
// Any unknown or inactive product fails the whole cart: no partial order may
// come out of a bad request. Pure function, no side effects.
func PriceCart(items []ItemInput, products []catalog.Product) (PricedCart, error) {
	if len(items) == 0 {
		return PricedCart{}, ErrEmptyCart
	}
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var cart PricedCart
	for _, it := range items {
		if it.Quantity < MinQuantity || it.Quantity > MaxQuantity {
			return PricedCart{}, fmt.Errorf("%w: product %s qty %d", ErrInvalidQuantity, it.ProductID, it.Quantity)
		}
		p, ok := byID[it.ProductID]
		if !ok || !p.IsActive {
			return PricedCart{}, fmt.Errorf("%w: %s", ErrUnknownProduct, it.ProductID)
		}
		if cart.Currency == "" {
			cart.Currency = p.Currency
		} else if p.Currency != cart.Currency {
			return PricedCart{}, fmt.Errorf("%w: %s is %s, cart is %s", ErrMixedCurrency, p.ID, p.Currency, cart.Currency)
		}
		cart.Items = append(cart.Items, PricedItem{
			Product:        p,
			Quantity:       it.Quantity,
			UnitPriceCents: p.PriceCents,
		})
		cart.TotalCents += p.PriceCents * it.Quantity
	}
	return cart, nil
}

// IsValidationError reports whether err is a bad-request error rather than
// an infrastructure one.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrMixedCurrency)
}
