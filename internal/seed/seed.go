// Package seed inserts a small demo catalog for manual testing.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	SKU           string
	Name          string
	Description   string
	PriceCents    int64
	Currency      string
	NeedsShipping bool
	InStock       bool
}

type couponSeed struct {
	Code   string
	Kind   string
	Amount int64
	TTL    time.Duration
}

// Apply inserts demo products and coupons. Idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []productSeed{
		{
			SKU:           "SKU-DEMO-TSHIRT",
			Name:          "Demo T-Shirt",
			Description:   "Soft cotton tee for demo purposes",
			PriceCents:    1999,
			Currency:      "USD",
			NeedsShipping: true,
			InStock:       true,
		},
		{
			SKU:           "SKU-DEMO-MUG",
			Name:          "Demo Mug",
			Description:   "Ceramic mug with demo logo",
			PriceCents:    1299,
			Currency:      "USD",
			NeedsShipping: true,
			InStock:       true,
		},
		{
			SKU:         "SKU-DEMO-EBOOK",
			Name:        "Demo Field Guide (ebook)",
			Description: "Downloadable PDF, no shipping",
			PriceCents:  899,
			Currency:    "USD",
			InStock:     true,
		},
		{
			SKU:           "SKU-DEMO-POSTER",
			Name:          "Demo Poster",
			Description:   "Out-of-stock poster for testing unavailable lines",
			PriceCents:    1499,
			Currency:      "USD",
			NeedsShipping: true,
		},
	}
	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	coupons := []couponSeed{
		{Code: "SAVE10", Kind: "percent", Amount: 10},
		{Code: "WELCOME5", Kind: "fixed", Amount: 500},
		{Code: "EXPIRED", Kind: "percent", Amount: 50, TTL: -time.Hour},
	}
	for _, c := range coupons {
		if err := upsertCoupon(ctx, pool, c); err != nil {
			return fmt.Errorf("upsert coupon %s: %w", c.Code, err)
		}
	}

	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (sku, name, description, price_cents, currency, purchasable, in_stock, needs_shipping)
VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)
ON CONFLICT (sku) WHERE sku <> '' DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    currency = EXCLUDED.currency,
    in_stock = EXCLUDED.in_stock,
    needs_shipping = EXCLUDED.needs_shipping
`
	_, err := pool.Exec(ctx, q, p.SKU, p.Name, p.Description, p.PriceCents, p.Currency, p.InStock, p.NeedsShipping)
	return err
}

func upsertCoupon(ctx context.Context, pool *pgxpool.Pool, c couponSeed) error {
	const q = `
INSERT INTO coupons (code, kind, amount, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (code) DO UPDATE
SET kind = EXCLUDED.kind,
    amount = EXCLUDED.amount,
    expires_at = EXCLUDED.expires_at
`
	var expires *time.Time
	if c.TTL != 0 {
		t := time.Now().UTC().Add(c.TTL)
		expires = &t
	}
	_, err := pool.Exec(ctx, q, c.Code, c.Kind, c.Amount, expires)
	return err
}
