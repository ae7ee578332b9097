package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, type, slug, name, description, price_cents, currency, is_active, created_at, updated_at`

// FindActiveProducts resolves the requested ids against the active catalog.
// Ids that are unknown or inactive are simply absent from the result; the
// cart validator decides what that means for the request.
func (r *Repo) FindActiveProducts(ctx context.Context, ids []string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+`
	                              FROM products WHERE id = ANY($1) AND is_active`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *Repo) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+`
	                              FROM products WHERE is_active ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanProducts(rows rowScanner) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Type, &p.Slug, &p.Name, &p.Description,
			&p.PriceCents, &p.Currency, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert writes one seed product, keyed by slug. Price/name edits never touch
// existing order line items (those carry their own snapshots).
func (r *Repo) Upsert(ctx context.Context, p Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, type, slug, name, description, price_cents, currency, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slug) DO UPDATE SET
			type = EXCLUDED.type,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price_cents = EXCLUDED.price_cents,
			currency = EXCLUDED.currency,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`, uuid.NewString(), p.Type, p.Slug, p.Name, p.Description, p.PriceCents, p.Currency, p.IsActive)
	return err
}

// DeactivateMissing retires products whose slug is not in the current seed
// set, instead of deleting rows that historical orders may reference.
func (r *Repo) DeactivateMissing(ctx context.Context, slugs []string) (int64, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = now()
	                           WHERE is_active AND slug != ALL($1)`, slugs)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
