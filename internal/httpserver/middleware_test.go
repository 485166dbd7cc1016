package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"ai-shopping-gateway/internal/domain"
)

func TestGateRejectsMissingCredential(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.do(t, http.MethodGet, "/ai/v1/store/info", "", nil)
	wantStatus(t, rec, http.StatusUnauthorized)
	env := decode(t, rec, nil)
	if env.Error == nil || env.Error.Code != "unauthorized" {
		t.Fatalf("error = %+v", env.Error)
	}
	if env.Success {
		t.Fatal("success true on error response")
	}
}

func TestGateRejectsUnknownSecret(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.do(t, http.MethodGet, "/ai/v1/store/info", "ais_definitely_not_a_key", nil)
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestGateRejectsRevokedSecret(t *testing.T) {
	h := newHarness(t, testConfig())
	gen, err := h.auth.Generate(context.Background(), "doomed", domain.TierFull, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rec := h.do(t, http.MethodGet, "/ai/v1/store/info", gen.Secret, nil); rec.Code != http.StatusOK {
		t.Fatalf("pre-revocation status = %d", rec.Code)
	}
	if err := h.auth.Revoke(context.Background(), gen.Key.ID); err != nil {
		t.Fatal(err)
	}
	rec := h.do(t, http.MethodGet, "/ai/v1/store/info", gen.Secret, nil)
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestGateEnforcesTier(t *testing.T) {
	h := newHarness(t, testConfig())

	// Read tier may read.
	rec := h.do(t, http.MethodGet, "/ai/v1/store/info", h.readSecret, nil)
	wantStatus(t, rec, http.StatusOK)

	// Read tier may not write; the denial names both tiers.
	rec = h.do(t, http.MethodPost, "/ai/v1/cart", h.readSecret, nil)
	wantStatus(t, rec, http.StatusForbidden)
	env := decode(t, rec, nil)
	if env.Error.Code != "forbidden" {
		t.Fatalf("code = %q", env.Error.Code)
	}
	if !strings.Contains(env.Error.Message, "write") || !strings.Contains(env.Error.Message, "read") {
		t.Fatalf("denial message %q does not name required and actual tiers", env.Error.Message)
	}
}

func TestGateRequiresHTTPS(t *testing.T) {
	cfg := testConfig()
	cfg.AllowInsecure = false
	h := newHarness(t, cfg)

	rec := h.do(t, http.MethodGet, "/ai/v1/store/info", h.readSecret, nil)
	wantStatus(t, rec, http.StatusForbidden)
	env := decode(t, rec, nil)
	if env.Error.Code != "https_required" {
		t.Fatalf("code = %q", env.Error.Code)
	}

	// The forwarded-proto header satisfies the policy behind a TLS proxy.
	req := httptest.NewRequest(http.MethodGet, "/ai/v1/store/info", nil)
	req.Header.Set("Authorization", "Bearer "+h.readSecret)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusOK)
}

func TestRateHeadersAndDenial(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRead = 2
	h := newHarness(t, cfg)

	rec := h.do(t, http.MethodGet, "/ai/v1/store/info", h.readSecret, nil)
	wantStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Fatalf("limit header = %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "1" {
		t.Fatalf("remaining header = %q", got)
	}

	rec = h.do(t, http.MethodGet, "/ai/v1/store/info", h.readSecret, nil)
	wantStatus(t, rec, http.StatusOK)

	rec = h.do(t, http.MethodGet, "/ai/v1/store/info", h.readSecret, nil)
	wantStatus(t, rec, http.StatusTooManyRequests)
	env := decode(t, rec, nil)
	if env.Error.Code != "rate_limited" {
		t.Fatalf("code = %q", env.Error.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("remaining header on denial = %q", got)
	}
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retry < 1 {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestUnlimitedCredentialOmitsRateHeaders(t *testing.T) {
	h := newHarness(t, testConfig()) // limits 0 = unlimited

	rec := h.do(t, http.MethodGet, "/ai/v1/store/info", h.readSecret, nil)
	wantStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Fatalf("limit header present for unlimited credential: %q", got)
	}
}

func TestDiscoveryDocumentNeedsNoCredential(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.do(t, http.MethodGet, "/.well-known/ucp", "", nil)
	wantStatus(t, rec, http.StatusOK)

	var profile ucpProfileView
	env := decode(t, rec, &profile)
	if env.Meta.Protocol != "ucp" {
		t.Fatalf("meta.protocol = %q", env.Meta.Protocol)
	}
	if profile.Merchant != "Test Store" || profile.Currency != "USD" {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestEnvelopeMeta(t *testing.T) {
	h := newHarness(t, testConfig())
	rec := h.do(t, http.MethodGet, "/ai/v1/store/info", h.readSecret, nil)
	env := decode(t, rec, nil)
	if env.Meta.Protocol != "rest" || env.Meta.Store != "Test Store" || env.Meta.Currency != "USD" {
		t.Fatalf("meta = %+v", env.Meta)
	}
	if env.Meta.Timestamp == "" || env.Meta.Version == "" {
		t.Fatalf("meta missing timestamp/version: %+v", env.Meta)
	}
}
