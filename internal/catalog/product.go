package catalog

import "time"

type Type string

const (
	// TypeCourse products grant a per-user entitlement once paid for.
	TypeCourse Type = "COURSE"
	TypeMisc   Type = "MISC"
)

type Product struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int       `json:"price_cents"`
	Currency    string    `json:"currency"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Product) GrantsEntitlement() bool { return p.Type == TypeCourse }
