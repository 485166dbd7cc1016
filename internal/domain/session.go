package domain

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LineItem is one product(+variation+options) entry in a cart session.
// Key is a stable dedup key: adding the same key again increments quantity.
type LineItem struct {
	Key         string            `json:"key"`
	ProductID   int64             `json:"product_id"`
	VariationID int64             `json:"variation_id,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
	Quantity    int               `json:"quantity"`
}

// ItemKey derives the stable line-item key for a product/variation/options
// combination. Options are serialized in sorted order so the key does not
// depend on map iteration.
func ItemKey(productID, variationID int64, options map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d-%d", productID, variationID)
	if len(options) > 0 {
		keys := make([]string, 0, len(options))
		for k := range options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "-%s=%s", k, options[k])
		}
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Address is a buyer billing or shipping address.
type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Country   string `json:"country,omitempty"`
	State     string `json:"state,omitempty"`
	City      string `json:"city,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Address1  string `json:"address_1,omitempty"`
}

// BuyerContext holds everything the buyer has supplied so far. All fields
// are optional until set; completeness drives the derived checkout status.
type BuyerContext struct {
	BillingAddress  *Address `json:"billing_address,omitempty"`
	ShippingAddress *Address `json:"shipping_address,omitempty"`
	ShippingMethod  string   `json:"shipping_method,omitempty"`
	PaymentMethod   string   `json:"payment_method,omitempty"`
}

// CartSession is a token-addressed cart/checkout in progress. The token is
// the sole external handle.
type CartSession struct {
	Token     string       `json:"token"`
	APIKeyID  int64        `json:"-"`
	Items     []LineItem   `json:"items"`
	Coupons   []string     `json:"coupons"`
	Buyer     BuyerContext `json:"customer"`
	ExpiresAt time.Time    `json:"expires_at"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CheckoutStatus is derived from session contents, never stored.
type CheckoutStatus string

const (
	StatusIncomplete       CheckoutStatus = "incomplete"
	StatusReadyForComplete CheckoutStatus = "ready_for_complete"
	StatusComplete         CheckoutStatus = "complete"
)

// DerivedStatus computes the checkout status from session completeness:
// items, billing address, and payment method must all be present before the
// session is ready to complete.
func (s *CartSession) DerivedStatus() CheckoutStatus {
	if len(s.Items) == 0 || s.Buyer.BillingAddress == nil || s.Buyer.PaymentMethod == "" {
		return StatusIncomplete
	}
	return StatusReadyForComplete
}

// cartPayload is the jsonb shape persisted for cart data.
type cartPayload struct {
	Items   []LineItem `json:"items"`
	Coupons []string   `json:"coupons"`
}

// MarshalCartData serializes items and coupons for storage.
func MarshalCartData(items []LineItem, coupons []string) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	if coupons == nil {
		coupons = []string{}
	}
	return json.Marshal(cartPayload{Items: items, Coupons: coupons})
}

// UnmarshalCartData is the inverse of MarshalCartData.
func UnmarshalCartData(raw []byte) ([]LineItem, []string, error) {
	var p cartPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil, err
	}
	return p.Items, p.Coupons, nil
}
