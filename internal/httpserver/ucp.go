package httpserver

import (
	"net/http"
	"strings"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/domain"
	"ai-shopping-gateway/internal/service/session"
	"github.com/gin-gonic/gin"
)

// Universal commerce: capability negotiation plus a checkout session whose
// status is derived from completeness on every read, never stored.

const ucpProtocolVersion = "2026-01"

var ucpBaseCapabilities = []string{"catalog", "checkout", "orders"}

// merchantCapabilities is the fixed capability set, with fulfillment present
// iff any shipping method is configured.
func (h *handlers) merchantCapabilities() []string {
	caps := append([]string(nil), ucpBaseCapabilities...)
	if len(h.cfg.ShippingMethods) > 0 {
		caps = append(caps, "fulfillment")
	}
	return caps
}

func (h *handlers) paymentHandlerIDs(c *gin.Context) ([]string, bool) {
	gateways, err := h.engine.ListPaymentGateways(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return nil, false
	}
	ids := make([]string, 0, len(gateways))
	for _, g := range gateways {
		ids = append(ids, g.ID)
	}
	return ids, true
}

type ucpProfileView struct {
	ProtocolVersion string   `json:"protocol_version"`
	Merchant        string   `json:"merchant"`
	URL             string   `json:"url"`
	Capabilities    []string `json:"capabilities"`
	PaymentHandlers []string `json:"payment_handlers"`
	Currency        string   `json:"currency"`
	Extensions      []string `json:"extensions"`
}

// ucpProfile serves the unauthenticated discovery document, recomputed from
// live configuration on every request.
func (h *handlers) ucpProfile(c *gin.Context) {
	payments, ok := h.paymentHandlerIDs(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, ucpProfileView{
		ProtocolVersion: ucpProtocolVersion,
		Merchant:        h.cfg.StoreName,
		URL:             h.cfg.StoreURL,
		Capabilities:    h.merchantCapabilities(),
		PaymentHandlers: payments,
		Currency:        h.cfg.Currency,
		Extensions:      []string{},
	})
}

func (h *handlers) ucpNegotiate(c *gin.Context) {
	var req struct {
		Capabilities    []string `json:"capabilities"`
		PaymentHandlers []string `json:"payment_handlers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failErr(c, domain.Validationf("body", "a JSON object with capabilities and payment_handlers arrays is required"))
		return
	}
	merchantCaps := h.merchantCapabilities()
	payments, ok := h.paymentHandlerIDs(c)
	if !ok {
		return
	}

	// Capability intersection falls back to the full merchant list when
	// empty: negotiation never blocks on a silent agent. The payment-handler
	// intersection stays strict — an empty result is meaningful.
	caps := intersect(req.Capabilities, merchantCaps)
	if len(caps) == 0 {
		caps = merchantCaps
	}
	h.respond(c, http.StatusOK, gin.H{
		"capabilities":     caps,
		"payment_handlers": intersect(req.PaymentHandlers, payments),
		"merchant": ucpProfileView{
			ProtocolVersion: ucpProtocolVersion,
			Merchant:        h.cfg.StoreName,
			URL:             h.cfg.StoreURL,
			Capabilities:    merchantCaps,
			PaymentHandlers: payments,
			Currency:        h.cfg.Currency,
			Extensions:      []string{},
		},
	})
}

func intersect(agent, merchant []string) []string {
	out := []string{}
	for _, m := range merchant {
		for _, a := range agent {
			if strings.EqualFold(a, m) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

type ucpCheckoutView struct {
	CheckoutID string                `json:"checkout_id"`
	Status     domain.CheckoutStatus `json:"status"`
	Messages   []string              `json:"messages"`
	Customer   domain.BuyerContext   `json:"customer"`
	Totals     *domain.Totals        `json:"totals"`
}

// statusGuidance enumerates what is still missing so an agent can
// self-correct from the message text alone.
func statusGuidance(sess *domain.CartSession) []string {
	msgs := []string{}
	if len(sess.Items) == 0 {
		msgs = append(msgs, "add at least one line item before completing")
	}
	if sess.Buyer.BillingAddress == nil {
		msgs = append(msgs, "set a billing address before completing")
	}
	if sess.Buyer.PaymentMethod == "" {
		msgs = append(msgs, "choose a payment method before completing")
	}
	return msgs
}

func toUCPView(sess *domain.CartSession, totals *domain.Totals) ucpCheckoutView {
	return ucpCheckoutView{
		CheckoutID: sess.Token,
		Status:     sess.DerivedStatus(),
		Messages:   statusGuidance(sess),
		Customer:   sess.Buyer,
		Totals:     totals,
	}
}

func (h *handlers) ucpCreate(c *gin.Context) {
	var req struct {
		Items []itemPayload `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failErr(c, domain.Validationf("body", "a JSON object is required"))
		return
	}
	key := credentialFrom(c)
	sess, err := h.sessions.Create(c.Request.Context(), key.ID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if len(req.Items) > 0 {
		if sess, err = h.sessions.ReplaceItems(c.Request.Context(), sess.Token, itemsToDomain(req.Items)); err != nil {
			h.failErr(c, err)
			return
		}
	}
	totals, err := h.pricing.PriceSession(c.Request.Context(), sess)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.Header("X-Checkout-ID", sess.Token)
	h.respond(c, http.StatusCreated, toUCPView(sess, totals))
}

func (h *handlers) ucpGet(c *gin.Context) {
	sess, totals, ok := h.pricedCart(c, c.Param("id"))
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, toUCPView(sess, totals))
}

func (h *handlers) ucpUpdate(c *gin.Context) {
	var req struct {
		Items           []itemPayload   `json:"items"`
		BillingAddress  *addressPayload `json:"billing_address"`
		ShippingAddress *addressPayload `json:"shipping_address"`
		ShippingMethod  *string         `json:"shipping_method"`
		PaymentMethod   *string         `json:"payment_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failErr(c, domain.Validationf("body", "a JSON object with the fields to patch is required"))
		return
	}
	token := c.Param("id")
	sess, err := h.sessions.Get(c.Request.Context(), token)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if req.Items != nil {
		if sess, err = h.sessions.ReplaceItems(c.Request.Context(), token, itemsToDomain(req.Items)); err != nil {
			h.failErr(c, err)
			return
		}
	}
	if req.BillingAddress != nil || req.ShippingAddress != nil || req.ShippingMethod != nil || req.PaymentMethod != nil {
		patch := session.BuyerPatch{
			BillingAddress:  req.BillingAddress.toDomain(),
			ShippingAddress: req.ShippingAddress.toDomain(),
			ShippingMethod:  req.ShippingMethod,
			PaymentMethod:   req.PaymentMethod,
		}
		if sess, err = h.sessions.SetBuyer(c.Request.Context(), token, patch); err != nil {
			h.failErr(c, err)
			return
		}
	}
	totals, err := h.pricing.PriceSession(c.Request.Context(), sess)
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.respond(c, http.StatusOK, toUCPView(sess, totals))
}

// ucpComplete refuses anything but a session whose derived status is exactly
// ready_for_complete. This bar is stricter than the agentic-checkout one: a
// payment method is required here.
func (h *handlers) ucpComplete(c *gin.Context) {
	sess, totals, ok := h.pricedCart(c, c.Param("id"))
	if !ok {
		return
	}
	if sess.DerivedStatus() != domain.StatusReadyForComplete {
		msgs := statusGuidance(sess)
		h.fail(c, http.StatusBadRequest, "not_ready",
			"checkout is not ready to complete: "+strings.Join(msgs, "; "))
		return
	}
	order, err := h.engine.CreateOrder(c.Request.Context(), commerce.OrderInput{
		Totals:        totals,
		Buyer:         sess.Buyer,
		PaymentMethod: sess.Buyer.PaymentMethod,
		Coupons:       totals.Coupons,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), sess.Token); err != nil {
		h.logger.Printf("delete checkout %s after order %d: %v", sess.Token, order.ID, err)
	}
	h.respond(c, http.StatusOK, gin.H{
		"checkout_id": sess.Token,
		"status":      domain.StatusComplete,
		"order":       order,
	})
}

func (h *handlers) ucpOrder(c *gin.Context) {
	h.getOrder(c)
}
