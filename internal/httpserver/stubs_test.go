package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/config"
	"ai-shopping-gateway/internal/domain"
	keyrepo "ai-shopping-gateway/internal/repository/apikey"
	bucketrepo "ai-shopping-gateway/internal/repository/ratebucket"
	"ai-shopping-gateway/internal/service/auth"
	"ai-shopping-gateway/internal/service/pricing"
	"ai-shopping-gateway/internal/service/ratelimit"
	"ai-shopping-gateway/internal/service/session"
	"github.com/gin-gonic/gin"
)

// In-memory doubles for the three repositories and the commerce engine,
// mirroring the postgres implementations' contracts.

type memKeys struct {
	mu     sync.Mutex
	byHash map[string]*domain.APIKey
	nextID int64
}

func newMemKeys() *memKeys {
	return &memKeys{byHash: map[string]*domain.APIKey{}, nextID: 1}
}

func (m *memKeys) Create(ctx context.Context, in keyrepo.CreateInput) (*domain.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := &domain.APIKey{
		ID:             m.nextID,
		Label:          in.Label,
		SecretHash:     in.SecretHash,
		Tier:           in.Tier,
		RateLimitRead:  in.RateLimitRead,
		RateLimitWrite: in.RateLimitWrite,
		CreatedAt:      time.Now(),
	}
	m.nextID++
	m.byHash[in.SecretHash] = key
	return key, nil
}

func (m *memKeys) GetBySecretHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.byHash[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *key
	return &cp, nil
}

func (m *memKeys) List(ctx context.Context) ([]domain.APIKey, error) { return nil, nil }

func (m *memKeys) TouchLastUsed(ctx context.Context, id int64, at time.Time) error { return nil }

func (m *memKeys) Revoke(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.byHash {
		if k.ID == id {
			k.Revoked = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memKeys) Delete(ctx context.Context, id int64) error { return domain.ErrNotFound }

type memBuckets struct {
	mu   sync.Mutex
	rows map[int64]map[string]*bucketrepo.Bucket
}

func newMemBuckets() *memBuckets {
	return &memBuckets{rows: map[int64]map[string]*bucketrepo.Bucket{}}
}

func (m *memBuckets) Get(ctx context.Context, apiKeyID int64, class string) (*bucketrepo.Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[apiKeyID][class]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBuckets) Create(ctx context.Context, b bucketrepo.Bucket) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[b.APIKeyID] == nil {
		m.rows[b.APIKeyID] = map[string]*bucketrepo.Bucket{}
	}
	if _, ok := m.rows[b.APIKeyID][b.Class]; ok {
		return false, nil
	}
	m.rows[b.APIKeyID][b.Class] = &b
	return true, nil
}

func (m *memBuckets) ConsumeOne(ctx context.Context, apiKeyID int64, class string, limit, refill int, refillAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[apiKeyID][class]
	if !ok {
		return false, nil
	}
	tokens := b.Tokens + refill
	if tokens > limit {
		tokens = limit
	}
	if tokens <= 0 {
		return false, nil
	}
	b.Tokens = tokens - 1
	if refill > 0 {
		b.LastRefill = refillAt
	}
	return true, nil
}

func (m *memBuckets) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type memSessions struct {
	mu   sync.Mutex
	rows map[string]*domain.CartSession
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[string]*domain.CartSession{}}
}

func (m *memSessions) Create(ctx context.Context, sess domain.CartSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[sess.Token] = &sess
	return nil
}

func (m *memSessions) Get(ctx context.Context, token string) (*domain.CartSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.rows[token]
	if !ok || !sess.ExpiresAt.After(time.Now()) {
		return nil, domain.ErrNotFound
	}
	cp := *sess
	cp.Items = append([]domain.LineItem(nil), sess.Items...)
	cp.Coupons = append([]string(nil), sess.Coupons...)
	return &cp, nil
}

func (m *memSessions) SaveCart(ctx context.Context, token string, items []domain.LineItem, coupons []string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.rows[token]
	if !ok {
		return domain.ErrNotFound
	}
	sess.Items = items
	sess.Coupons = coupons
	sess.ExpiresAt = expiresAt
	return nil
}

func (m *memSessions) SaveBuyer(ctx context.Context, token string, buyer domain.BuyerContext, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.rows[token]
	if !ok {
		return domain.ErrNotFound
	}
	sess.Buyer = buyer
	sess.ExpiresAt = expiresAt
	return nil
}

func (m *memSessions) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, token)
	return nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type memEngine struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	coupons  map[string]domain.Coupon
	orders   map[int64]*domain.Order
	nextID   int64
	gateways []commerce.PaymentGateway
	shipping []commerce.ShippingMethod
	taxBps   int64
}

func newMemEngine() *memEngine {
	return &memEngine{
		products: map[int64]domain.Product{
			42: {ID: 42, SKU: "TEE-42", Name: "T-Shirt", PriceCents: 1000, Currency: "USD", Purchasable: true, InStock: true, NeedsShipping: true},
			43: {ID: 43, SKU: "EBOOK-43", Name: "Field Guide (ebook)", PriceCents: 500, Currency: "USD", Purchasable: true, InStock: true},
			44: {ID: 44, SKU: "MUG-44", Name: "Mug", PriceCents: 800, Currency: "USD", Purchasable: true, InStock: false, NeedsShipping: true},
		},
		coupons: map[string]domain.Coupon{
			"SAVE10": {Code: "SAVE10", Kind: domain.CouponPercent, Amount: 10},
		},
		orders:   map[int64]*domain.Order{},
		nextID:   1000,
		gateways: []commerce.PaymentGateway{{ID: "cod", Title: "Cash on delivery"}, {ID: "bacs", Title: "Bank transfer"}},
		shipping: []commerce.ShippingMethod{{ID: "flat_rate", Title: "Flat rate", CostCents: 500}},
	}
}

func (e *memEngine) FindProduct(ctx context.Context, productID, variationID int64) (*domain.Product, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := productID
	if variationID != 0 {
		id = variationID
	}
	p, ok := e.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (e *memEngine) SearchProducts(ctx context.Context, q commerce.ProductQuery) ([]domain.Product, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.Product
	for _, p := range e.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (e *memEngine) ValidateCoupon(ctx context.Context, code string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.coupons[code]
	if !ok {
		return false, nil
	}
	return c.Usable(time.Now()), nil
}

func (e *memEngine) PriceCart(ctx context.Context, in commerce.PriceInput) (*domain.Totals, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	totals := &domain.Totals{Items: []domain.PricedItem{}, Coupons: []string{}, Currency: "USD"}
	for _, it := range in.Items {
		id := it.ProductID
		if it.VariationID != 0 {
			id = it.VariationID
		}
		p, ok := e.products[id]
		if !ok || !p.Purchasable || !p.InStock {
			continue
		}
		sub := p.PriceCents * int64(it.Quantity)
		totals.Items = append(totals.Items, domain.PricedItem{
			Key: it.Key, ProductID: it.ProductID, VariationID: it.VariationID,
			Name: p.Name, SKU: p.SKU, Quantity: it.Quantity,
			UnitCents: p.PriceCents, SubtotalCents: sub, TotalCents: sub,
			NeedsShipping: p.NeedsShipping,
		})
		totals.ItemCount += it.Quantity
		totals.SubtotalCents += sub
		if p.NeedsShipping {
			totals.NeedsShipping = true
		}
	}
	for _, code := range in.Coupons {
		c, ok := e.coupons[code]
		if !ok {
			continue
		}
		var off int64
		if c.Kind == domain.CouponPercent {
			off = totals.SubtotalCents * c.Amount / 100
		} else {
			off = c.Amount
		}
		if off > totals.SubtotalCents-totals.DiscountCents {
			off = totals.SubtotalCents - totals.DiscountCents
		}
		totals.DiscountCents += off
		totals.Coupons = append(totals.Coupons, code)
	}
	if totals.NeedsShipping && len(e.shipping) > 0 {
		totals.ShippingCents = e.shipping[0].CostCents
	}
	taxable := totals.SubtotalCents - totals.DiscountCents
	totals.TaxCents = taxable * e.taxBps / 10000
	totals.TotalCents = taxable + totals.ShippingCents + totals.TaxCents
	return totals, nil
}

func (e *memEngine) CreateOrder(ctx context.Context, in commerce.OrderInput) (*domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	order := &domain.Order{
		ID:            e.nextID,
		Status:        domain.OrderStatusProcessing,
		TotalCents:    in.Totals.TotalCents,
		Currency:      in.Totals.Currency,
		PaymentMethod: in.PaymentMethod,
		Billing:       in.Buyer.BillingAddress,
		Shipping:      in.Buyer.ShippingAddress,
		Coupons:       in.Coupons,
		Items:         in.Totals.Items,
		CreatedAt:     time.Now(),
	}
	e.orders[order.ID] = order
	return order, nil
}

func (e *memEngine) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (e *memEngine) ListPaymentGateways(ctx context.Context) ([]commerce.PaymentGateway, error) {
	return e.gateways, nil
}

func (e *memEngine) ListShippingMethods(ctx context.Context, buyer domain.BuyerContext) ([]commerce.ShippingMethod, error) {
	return e.shipping, nil
}

// harness bundles a built router with credentials for each tier.
type harness struct {
	router      *gin.Engine
	engine      *memEngine
	auth        *auth.Service
	readSecret  string
	writeSecret string
}

func testConfig() config.Config {
	return config.Config{
		StoreName:      "Test Store",
		StoreURL:       "http://shop.test",
		Currency:       "USD",
		AllowInsecure:  true,
		RateLimitRead:  0,
		RateLimitWrite: 0,
		SessionTTL:     24 * time.Hour,
		EngineTimeout:  time.Second,
		ShippingMethods: []config.ShippingMethodDef{
			{ID: "flat_rate", Title: "Flat rate", CostCents: 500},
		},
		PaymentGateways: []config.PaymentGatewayDef{
			{ID: "cod", Title: "Cash on delivery"},
		},
	}
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard, "", 0)

	engine := newMemEngine()
	authSvc := auth.New(newMemKeys(), logger)
	deps := Deps{
		Config:   cfg,
		Auth:     authSvc,
		Rate:     ratelimit.New(newMemBuckets(), ratelimit.Limits{Read: cfg.RateLimitRead, Write: cfg.RateLimitWrite}),
		Sessions: session.New(newMemSessions(), cfg.SessionTTL),
		Pricing:  pricing.New(engine, cfg.EngineTimeout, logger),
		Engine:   engine,
	}

	readKey, err := authSvc.Generate(context.Background(), "reader", domain.TierRead, 0, 0)
	if err != nil {
		t.Fatalf("generate read key: %v", err)
	}
	writeKey, err := authSvc.Generate(context.Background(), "writer", domain.TierFull, 0, 0)
	if err != nil {
		t.Fatalf("generate write key: %v", err)
	}

	return &harness{
		router:      buildRouter(logger, nil, deps),
		engine:      engine,
		auth:        authSvc,
		readSecret:  readKey.Secret,
		writeSecret: writeKey.Secret,
	}
}

func (h *harness) do(t *testing.T, method, path, secret string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the envelope and returns data re-marshaled into out.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v\nbody: %s", err, rec.Body.String())
	}
	if out != nil && env.Data != nil {
		raw, err := json.Marshal(env.Data)
		if err != nil {
			t.Fatalf("remarshal data: %v", err)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
	}
	return env
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", rec.Code, want, rec.Body.String())
	}
}
