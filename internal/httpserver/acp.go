package httpserver

import (
	"net/http"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/domain"
	"ai-shopping-gateway/internal/service/session"
	"github.com/gin-gonic/gin"
)

// Agentic checkout: open → (update)* → complete, or open → canceled. Both
// terminal states delete the session, so a completed or canceled checkout id
// reads as not-found afterwards.

const (
	acpStatusOpen     = "open"
	acpStatusComplete = "complete"
	acpStatusCanceled = "canceled"
)

type acpCheckoutView struct {
	CheckoutID     string                    `json:"checkout_id"`
	Status         string                    `json:"status"`
	Customer       domain.BuyerContext       `json:"customer"`
	Totals         *domain.Totals            `json:"totals"`
	PaymentMethods []commerce.PaymentGateway `json:"payment_methods"`
}

func (h *handlers) acpView(c *gin.Context, sess *domain.CartSession, totals *domain.Totals) (*acpCheckoutView, bool) {
	gateways, err := h.engine.ListPaymentGateways(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return nil, false
	}
	if gateways == nil {
		gateways = []commerce.PaymentGateway{}
	}
	return &acpCheckoutView{
		CheckoutID:     sess.Token,
		Status:         acpStatusOpen,
		Customer:       sess.Buyer,
		Totals:         totals,
		PaymentMethods: gateways,
	}, true
}

func (h *handlers) acpCreate(c *gin.Context) {
	var req struct {
		Items []itemPayload `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		h.failErr(c, domain.Validationf("items", "at least one item with a product_id is required"))
		return
	}
	key := credentialFrom(c)
	sess, err := h.sessions.Create(c.Request.Context(), key.ID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	sess, err = h.sessions.ReplaceItems(c.Request.Context(), sess.Token, itemsToDomain(req.Items))
	if err != nil {
		h.failErr(c, err)
		return
	}
	totals, err := h.pricing.PriceSession(c.Request.Context(), sess)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if len(totals.Items) == 0 {
		// Nothing resolved against the live catalog; do not leave an
		// unusable checkout behind.
		if derr := h.sessions.Delete(c.Request.Context(), sess.Token); derr != nil {
			h.logger.Printf("delete unresolvable checkout %s: %v", sess.Token, derr)
		}
		h.failErr(c, domain.Validationf("items", "no item could be resolved to a purchasable product"))
		return
	}
	view, ok := h.acpView(c, sess, totals)
	if !ok {
		return
	}
	c.Header("X-Checkout-ID", sess.Token)
	h.respond(c, http.StatusCreated, view)
}

func (h *handlers) acpGet(c *gin.Context) {
	sess, totals, ok := h.pricedCart(c, c.Param("id"))
	if !ok {
		return
	}
	view, ok := h.acpView(c, sess, totals)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, view)
}

func (h *handlers) acpUpdate(c *gin.Context) {
	var req struct {
		Items           []itemPayload   `json:"items"`
		BillingAddress  *addressPayload `json:"billing_address"`
		ShippingAddress *addressPayload `json:"shipping_address"`
		ShippingMethod  *string         `json:"shipping_method"`
		PaymentMethod   *string         `json:"payment_method"`
		DiscountCode    string          `json:"discount_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failErr(c, domain.Validationf("body", "a JSON object with the fields to update is required"))
		return
	}
	token := c.Param("id")
	sess, err := h.sessions.Get(c.Request.Context(), token)
	if err != nil {
		h.failErr(c, err)
		return
	}

	// A supplied item list fully replaces the prior one, never merges.
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
	if req.DiscountCode != "" {
		valid, err := h.engine.ValidateCoupon(c.Request.Context(), req.DiscountCode)
		if err != nil {
			h.failErr(c, err)
			return
		}
		if !valid {
			h.failErr(c, domain.Validationf("discount_code", "code %q does not exist or has expired", req.DiscountCode))
			return
		}
		if sess, err = h.sessions.ApplyCoupon(c.Request.Context(), token, req.DiscountCode); err != nil {
			h.failErr(c, err)
			return
		}
	}

	totals, err := h.pricing.PriceSession(c.Request.Context(), sess)
	if err != nil {
		h.failErr(c, err)
		return
	}
	view, ok := h.acpView(c, sess, totals)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, view)
}

// acpComplete gates on non-empty items and a billing address; unlike the
// universal-commerce adapter it does not require a payment method up front.
func (h *handlers) acpComplete(c *gin.Context) {
	sess, totals, ok := h.pricedCart(c, c.Param("id"))
	if !ok {
		return
	}
	if len(totals.Items) == 0 {
		h.failErr(c, domain.Validationf("items", "the checkout has no purchasable items; add items before completing"))
		return
	}
	if sess.Buyer.BillingAddress == nil {
		h.failErr(c, domain.Validationf("billing_address", "a billing address is required; supply one via the checkout update call"))
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
		"checkout_id":  sess.Token,
		"status":       acpStatusComplete,
		"order_id":     order.ID,
		"order_status": order.Status,
		"total_cents":  order.TotalCents,
		"currency":     order.Currency,
	})
}

// acpCancel deletes the session. A second cancel on the same id reports
// not-found: the checkout is already gone.
func (h *handlers) acpCancel(c *gin.Context) {
	token := c.Param("id")
	if _, err := h.sessions.Get(c.Request.Context(), token); err != nil {
		h.failErr(c, err)
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), token); err != nil {
		h.failErr(c, err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"checkout_id": token, "status": acpStatusCanceled})
}
