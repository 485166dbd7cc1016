package httpserver

import (
	"net/http"
	"strings"

	"ai-shopping-gateway/internal/domain"
	"github.com/gin-gonic/gin"
)

// protocolTag labels every response in a route group for the envelope meta.
func protocolTag(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxProtocol, name)
		c.Next()
	}
}

// gate is the shared admission chain: transport policy, bearer credential,
// tier authorization for the operation class, then the class's rate bucket.
// The transport check runs before any credential lookup.
func (h *handlers) gate(class domain.OpClass) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := h.admit(c)
		if !ok {
			return
		}
		if !h.authorizeAndLimit(c, key, class) {
			return
		}
		c.Next()
	}
}

// admit enforces the transport policy and resolves the bearer credential.
// On failure it writes the error response and returns false.
func (h *handlers) admit(c *gin.Context) (*domain.APIKey, bool) {
	if !h.cfg.AllowInsecure && !isSecure(c.Request) {
		h.fail(c, http.StatusForbidden, "https_required", "this API requires HTTPS; plain HTTP is refused")
		return nil, false
	}
	secret, ok := bearerSecret(c.Request)
	if !ok {
		h.failErr(c, domain.ErrUnauthenticated)
		return nil, false
	}
	key, err := h.auth.Authenticate(c.Request.Context(), secret)
	if err != nil {
		h.failErr(c, err)
		return nil, false
	}
	return key, true
}

// authorizeAndLimit checks the credential's tier for the class and spends
// one token from the matching rate bucket.
func (h *handlers) authorizeAndLimit(c *gin.Context, key *domain.APIKey, class domain.OpClass) bool {
	if err := h.auth.Authorize(key, class); err != nil {
		h.failErr(c, err)
		return false
	}
	res, err := h.rate.Check(c.Request.Context(), key, class)
	if err != nil {
		h.failErr(c, err)
		return false
	}
	addRateHeaders(c, res)
	if !res.Allowed {
		h.failErr(c, domain.ErrRateLimited)
		return false
	}
	c.Set(ctxCredential, key)
	c.Set(ctxRateResult, res)
	return true
}

func isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func bearerSecret(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, secret, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(secret) == "" {
		return "", false
	}
	return strings.TrimSpace(secret), true
}

func credentialFrom(c *gin.Context) *domain.APIKey {
	if v, ok := c.Get(ctxCredential); ok {
		return v.(*domain.APIKey)
	}
	return nil
}

const cartTokenHeader = "X-Cart-Token"

// cartToken resolves the session handle: dedicated header first, then the
// cart_token query parameter, then a cart_token field in a JSON body that a
// handler has already bound.
func cartToken(c *gin.Context, bodyToken string) (string, error) {
	if t := c.GetHeader(cartTokenHeader); t != "" {
		return t, nil
	}
	if t := c.Query("cart_token"); t != "" {
		return t, nil
	}
	if bodyToken != "" {
		return bodyToken, nil
	}
	return "", domain.Validationf("cart_token", "provide the cart token in the %s header or the cart_token parameter", cartTokenHeader)
}
