// Package catalog is the pgx-backed commerce engine: product catalog,
// coupon validation, cart pricing, and order persistence over postgres,
// with store-level pricing policy (currency, tax rate, shipping methods,
// payment gateways) supplied as settings.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings is the store-level pricing policy.
type Settings struct {
	Currency        string
	TaxRateBps      int64
	PaymentGateways []commerce.PaymentGateway
	ShippingMethods []commerce.ShippingMethod
}

// Engine implements commerce.Engine over a postgres catalog.
type Engine struct {
	pool     *pgxpool.Pool
	settings Settings
}

func New(pool *pgxpool.Pool, settings Settings) *Engine {
	return &Engine{pool: pool, settings: settings}
}

const productColumns = `id, parent_id, sku, name, description, price_cents, currency, purchasable, in_stock, needs_shipping, created_at`

func (e *Engine) FindProduct(ctx context.Context, productID, variationID int64) (*domain.Product, error) {
	id := productID
	if variationID != 0 {
		id = variationID
	}
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(e.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find product %d: %w", id, err)
	}
	// A variation id must actually belong to the requested product.
	if variationID != 0 && productID != 0 && p.ParentID != productID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (e *Engine) SearchProducts(ctx context.Context, q commerce.ProductQuery) ([]domain.Product, int, error) {
	where := []string{"parent_id = 0"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		p := arg("%" + s + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s OR sku ILIKE %s)", p, p, p))
	}
	if q.MinPriceCents > 0 {
		where = append(where, "price_cents >= "+arg(q.MinPriceCents))
	}
	if q.MaxPriceCents > 0 {
		where = append(where, "price_cents <= "+arg(q.MaxPriceCents))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := e.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	listQ := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		productColumns, cond, arg(perPage), arg((page-1)*perPage))

	rows, err := e.pool.Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (e *Engine) ValidateCoupon(ctx context.Context, code string) (bool, error) {
	c, err := e.getCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return c.Usable(time.Now()), nil
}

// PriceCart resolves every line against the live catalog and prices the
// whole cart in one pass. Unresolvable or unpurchasable lines are dropped,
// unknown or expired coupons are ignored.
func (e *Engine) PriceCart(ctx context.Context, in commerce.PriceInput) (*domain.Totals, error) {
	var lines []pricedLine
	for _, item := range in.Items {
		p, err := e.FindProduct(ctx, item.ProductID, item.VariationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !p.Purchasable || !p.InStock {
			continue
		}
		lines = append(lines, pricedLine{item: item, product: *p})
	}

	var coupons []domain.Coupon
	now := time.Now()
	for _, code := range in.Coupons {
		c, err := e.getCoupon(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if c.Usable(now) {
			coupons = append(coupons, *c)
		}
	}

	totals := computeTotals(lines, coupons, in.Buyer.ShippingMethod, e.settings)
	return totals, nil
}

func (e *Engine) CreateOrder(ctx context.Context, in commerce.OrderInput) (*domain.Order, error) {
	if in.Totals == nil {
		return nil, fmt.Errorf("create order: %w", domain.Validationf("totals", "computed totals are required"))
	}
	billing, err := marshalAddress(in.Buyer.BillingAddress)
	if err != nil {
		return nil, err
	}
	shipping, err := marshalAddress(in.Buyer.ShippingAddress)
	if err != nil {
		return nil, err
	}
	coupons := in.Coupons
	if coupons == nil {
		coupons = []string{}
	}
	couponsJSON, err := json.Marshal(coupons)
	if err != nil {
		return nil, err
	}
	itemsJSON, err := json.Marshal(in.Totals.Items)
	if err != nil {
		return nil, err
	}

	const q = `
INSERT INTO orders (status, total_cents, currency, payment_method, billing_address, shipping_address, coupons, line_items)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at
`
	order := domain.Order{
		Status:        domain.OrderStatusProcessing,
		TotalCents:    in.Totals.TotalCents,
		Currency:      in.Totals.Currency,
		PaymentMethod: in.PaymentMethod,
		Billing:       in.Buyer.BillingAddress,
		Shipping:      in.Buyer.ShippingAddress,
		Coupons:       coupons,
		Items:         in.Totals.Items,
	}
	err = e.pool.QueryRow(ctx, q,
		order.Status, order.TotalCents, order.Currency, order.PaymentMethod,
		billing, shipping, couponsJSON, itemsJSON,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &order, nil
}

func (e *Engine) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `
SELECT id, status, total_cents, currency, payment_method, billing_address, shipping_address, coupons, line_items, created_at
FROM orders
WHERE id = $1
`
	var order domain.Order
	var billing, shipping, couponsJSON, itemsJSON []byte
	err := e.pool.QueryRow(ctx, q, id).Scan(
		&order.ID,
		&order.Status,
		&order.TotalCents,
		&order.Currency,
		&order.PaymentMethod,
		&billing,
		&shipping,
		&couponsJSON,
		&itemsJSON,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if order.Billing, err = unmarshalAddress(billing); err != nil {
		return nil, err
	}
	if order.Shipping, err = unmarshalAddress(shipping); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(couponsJSON, &order.Coupons); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, err
	}
	return &order, nil
}

func (e *Engine) ListPaymentGateways(ctx context.Context) ([]commerce.PaymentGateway, error) {
	return e.settings.PaymentGateways, nil
}

func (e *Engine) ListShippingMethods(ctx context.Context, buyer domain.BuyerContext) ([]commerce.ShippingMethod, error) {
	return e.settings.ShippingMethods, nil
}

func (e *Engine) getCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	const q = `SELECT code, kind, amount, expires_at FROM coupons WHERE lower(code) = lower($1)`
	var c domain.Coupon
	if err := e.pool.QueryRow(ctx, q, code).Scan(&c.Code, &c.Kind, &c.Amount, &c.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.ParentID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.PriceCents,
		&p.Currency,
		&p.Purchasable,
		&p.InStock,
		&p.NeedsShipping,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func marshalAddress(a *domain.Address) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func unmarshalAddress(raw []byte) (*domain.Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a domain.Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
