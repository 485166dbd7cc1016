package domain

import "time"

// Product is a purchasable catalog entry. A variation is itself a Product
// row pointing at its parent via ParentID.
type Product struct {
	ID            int64     `json:"id"`
	ParentID      int64     `json:"parent_id,omitempty"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	PriceCents    int64     `json:"price_cents"`
	Currency      string    `json:"currency"`
	Purchasable   bool      `json:"purchasable"`
	InStock       bool      `json:"in_stock"`
	NeedsShipping bool      `json:"needs_shipping"`
	CreatedAt     time.Time `json:"created_at"`
}

// Coupon is a discount code. Percent coupons carry a percentage in Amount;
// fixed coupons carry cents.
type Coupon struct {
	Code      string     `json:"code"`
	Kind      string     `json:"kind"`
	Amount    int64      `json:"amount"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

const (
	CouponPercent = "percent"
	CouponFixed   = "fixed"
)

// Usable reports whether the coupon may still be applied at the given time.
func (c *Coupon) Usable(now time.Time) bool {
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}
