package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ai-shopping-gateway/internal/domain"
	"ai-shopping-gateway/internal/service/ratelimit"
	"github.com/gin-gonic/gin"
)

const apiVersion = "1.0"

const (
	ctxProtocol   = "protocol"
	ctxCredential = "credential"
	ctxRateResult = "rate_result"
)

// envelope is the uniform response shape shared by every protocol surface.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *apiError   `json:"error"`
	Meta    envMeta     `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type envMeta struct {
	Protocol  string `json:"protocol"`
	Version   string `json:"version"`
	Store     string `json:"store"`
	Currency  string `json:"currency"`
	Timestamp string `json:"timestamp"`
}

func (h *handlers) buildMeta(c *gin.Context) envMeta {
	protocol := "rest"
	if v, ok := c.Get(ctxProtocol); ok {
		protocol = v.(string)
	}
	return envMeta{
		Protocol:  protocol,
		Version:   apiVersion,
		Store:     h.cfg.StoreName,
		Currency:  h.cfg.Currency,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (h *handlers) respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data, Meta: h.buildMeta(c)})
}

func (h *handlers) fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, envelope{
		Success: false,
		Error:   &apiError{Code: code, Message: message, Status: status},
		Meta:    h.buildMeta(c),
	})
}

// failErr maps the domain error taxonomy onto HTTP statuses and stable codes.
func (h *handlers) failErr(c *gin.Context, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		h.fail(c, http.StatusBadRequest, "validation_error", ve.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		h.fail(c, http.StatusUnauthorized, "unauthorized", "missing or invalid API credential; pass Authorization: Bearer <secret>")
	case errors.Is(err, domain.ErrForbidden):
		h.fail(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		h.fail(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded; retry after the window resets")
	case errors.Is(err, domain.ErrNotFound):
		h.fail(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrStateConflict):
		h.fail(c, http.StatusBadRequest, "state_conflict", err.Error())
	case errors.Is(err, domain.ErrUpstream):
		h.fail(c, http.StatusBadGateway, "upstream_error", "commerce engine unavailable, this is transient; retry the request")
	default:
		h.logger.Printf("unhandled error: %v", err)
		h.fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// addRateHeaders exposes the caller's budget. Omitted entirely for
// unlimited (limit 0) credentials.
func addRateHeaders(c *gin.Context, res *ratelimit.Result) {
	if res == nil || res.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if !res.Allowed {
		retry := int(time.Until(res.ResetAt).Seconds())
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
	}
}
