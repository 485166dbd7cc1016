package domain

// PricedItem is one line item after pricing: quantities priced against the
// live catalog, per-line subtotal/tax/total in cents.
type PricedItem struct {
	Key           string            `json:"key"`
	ProductID     int64             `json:"product_id"`
	VariationID   int64             `json:"variation_id,omitempty"`
	Options       map[string]string `json:"options,omitempty"`
	Name          string            `json:"name"`
	SKU           string            `json:"sku,omitempty"`
	Quantity      int               `json:"quantity"`
	UnitCents     int64             `json:"unit_price_cents"`
	SubtotalCents int64             `json:"line_subtotal_cents"`
	TaxCents      int64             `json:"line_tax_cents"`
	TotalCents    int64             `json:"line_total_cents"`
	NeedsShipping bool              `json:"-"`
}

// Totals is the authoritative pricing of a session, derived fresh from the
// catalog on every read and never persisted.
type Totals struct {
	Items         []PricedItem `json:"line_items"`
	Coupons       []string     `json:"coupons"`
	ItemCount     int          `json:"item_count"`
	SubtotalCents int64        `json:"subtotal_cents"`
	DiscountCents int64        `json:"discount_cents"`
	ShippingCents int64        `json:"shipping_cents"`
	TaxCents      int64        `json:"tax_cents"`
	TotalCents    int64        `json:"total_cents"`
	Currency      string       `json:"currency"`
	NeedsShipping bool         `json:"needs_shipping"`
}
