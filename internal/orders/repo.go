package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var ErrOrderNotFound = errors.New("order not found")

// CreateOrder materializes a pending order plus its line items in one
// transaction. Nothing is visible to other components until commit.
func (r *Repo) CreateOrder(ctx context.Context, userID, currency string, totalCents int, items []LineItemInput) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Status:     StatusPending,
		TotalCents: totalCents,
		Currency:   currency,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, currency)
		VALUES ($1, $2, 'pending', $3, $4)
		RETURNING created_at, updated_at
	`, o.ID, userID, totalCents, currency).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	for _, it := range items {
		li := LineItem{
			ID:             uuid.NewString(),
			OrderID:        o.ID,
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			li.ID, li.OrderID, li.ProductID, li.Quantity, li.UnitPriceCents,
		); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, li)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET checkout_session_id=$2, updated_at=now() WHERE id=$1`,
		orderID, sessionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return nil
}

// GetOrder loads an order with its line items joined against the product
// table (name + type are needed for entitlements and notifications).
func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, currency,
		       COALESCE(checkout_session_id, ''), COALESCE(payment_intent_id, ''),
		       created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.Currency,
			&o.CheckoutSessionID, &o.PaymentIntentID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return Order{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT i.id, i.product_id, i.quantity, i.unit_price_cents, p.name, p.type
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id=$1`, orderID)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		li := LineItem{OrderID: o.ID}
		if err := rows.Scan(&li.ID, &li.ProductID, &li.Quantity, &li.UnitPriceCents,
			&li.ProductName, &li.ProductType); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, li)
	}
	return o, rows.Err()
}

// MarkPaid flips the order to paid and records the payment intent. The
// conditional single-row update is the idempotency guard: a second delivery
// finds status already paid and affects zero rows.
func (r *Repo) MarkPaid(ctx context.Context, orderID, paymentIntentID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status='paid', payment_intent_id=NULLIF($2, ''), updated_at=now()
		WHERE id=$1 AND status <> 'paid'`, orderID, paymentIntentID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// MarkExpired downgrades only pending orders; a stale expiry after a
// completed payment affects zero rows.
func (r *Repo) MarkExpired(ctx context.Context, orderID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status='expired', updated_at=now()
		WHERE id=$1 AND status='pending'`, orderID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// GrantEntitlement is an insert-or-no-op keyed by (user, product). The unique
// constraint makes concurrent duplicate grants race-safe.
func (r *Repo) GrantEntitlement(ctx context.Context, userID, productID, orderID string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO entitlements(id, user_id, product_id, order_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, uuid.NewString(), userID, productID, orderID)
	return err
}

// GetOrderStatus is scoped to the owning user: orders are never visible to
// anyone else.
func (r *Repo) GetOrderStatus(ctx context.Context, userID, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 AND user_id=$2`,
		orderID, userID).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return "", err
	}
	return Status(s), nil
}

// ListEntitlements returns the products a user has been granted access to.
func (r *Repo) ListEntitlements(ctx context.Context, userID string) ([]Entitlement, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, product_id, order_id, created_at
		FROM entitlements WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entitlement
	for rows.Next() {
		var e Entitlement
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProductID, &e.OrderID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
