package domain

import "time"

// Order is a persisted order created from a completed checkout.
type Order struct {
	ID            int64     `json:"id"`
	Status        string    `json:"status"`
	TotalCents    int64     `json:"total_cents"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Billing       *Address  `json:"billing_address,omitempty"`
	Shipping      *Address  `json:"shipping_address,omitempty"`
	Coupons       []string  `json:"coupons,omitempty"`
	Items         []PricedItem `json:"line_items"`
	CreatedAt     time.Time `json:"created_at"`
}

// OrderStatusProcessing is the paid/processing status new orders enter.
const OrderStatusProcessing = "processing"
