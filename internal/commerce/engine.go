// Package commerce defines the boundary to the commerce engine: the
// catalog, pricing, coupon, and order collaborator every adapter ultimately
// relies on. The gateway core only ever talks to the Engine interface; the
// pgx-backed implementation lives in the catalog subpackage.
package commerce

import (
	"context"

	"ai-shopping-gateway/internal/domain"
)

// PaymentGateway is an enabled payment gateway as reported to agents.
type PaymentGateway struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ShippingMethod is a shipping option with its quoted cost.
type ShippingMethod struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CostCents int64  `json:"cost_cents"`
}

// ProductQuery filters a catalog search.
type ProductQuery struct {
	Search        string
	MinPriceCents int64
	MaxPriceCents int64
	Page          int
	PerPage       int
}

// PriceInput is everything a pricing pass needs, passed by value per call —
// never ambient process state.
type PriceInput struct {
	Items   []domain.LineItem
	Buyer   domain.BuyerContext
	Coupons []string
}

// OrderInput carries a completed checkout into order persistence.
type OrderInput struct {
	Totals        *domain.Totals
	Buyer         domain.BuyerContext
	PaymentMethod string
	Coupons       []string
	Note          string
}

// Engine is the commerce collaborator. Implementations must honor the
// caller's context deadline on every call.
type Engine interface {
	// FindProduct resolves a product or, when variationID is nonzero, that
	// variation. Returns domain.ErrNotFound for unknown ids.
	FindProduct(ctx context.Context, productID, variationID int64) (*domain.Product, error)
	SearchProducts(ctx context.Context, q ProductQuery) ([]domain.Product, int, error)
	// ValidateCoupon reports whether a code exists and is still usable.
	ValidateCoupon(ctx context.Context, code string) (bool, error)
	// PriceCart runs the canonical price/tax/shipping calculation once for
	// the given input and returns authoritative totals.
	PriceCart(ctx context.Context, in PriceInput) (*domain.Totals, error)
	CreateOrder(ctx context.Context, in OrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListPaymentGateways(ctx context.Context) ([]PaymentGateway, error)
	ListShippingMethods(ctx context.Context, buyer domain.BuyerContext) ([]ShippingMethod, error)
}
