package httpserver

import (
	"net/http"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/domain"
	"ai-shopping-gateway/internal/service/session"
	"github.com/gin-gonic/gin"
)

func (h *handlers) calculateCheckout(c *gin.Context) {
	token, err := cartToken(c, "")
	if err != nil {
		h.failErr(c, err)
		return
	}
	sess, totals, ok := h.pricedCart(c, token)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, toCartView(sess, totals))
}

func (h *handlers) setBillingAddress(c *gin.Context) {
	h.setAddress(c, func(addr *domain.Address) session.BuyerPatch {
		return session.BuyerPatch{BillingAddress: addr}
	})
}

func (h *handlers) setShippingAddress(c *gin.Context) {
	h.setAddress(c, func(addr *domain.Address) session.BuyerPatch {
		return session.BuyerPatch{ShippingAddress: addr}
	})
}

func (h *handlers) setAddress(c *gin.Context, patch func(*domain.Address) session.BuyerPatch) {
	var req struct {
		addressPayload
		CartToken string `json:"cart_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failErr(c, domain.Validationf("body", "a JSON address object is required"))
		return
	}
	token, err := cartToken(c, req.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if req.Country == "" {
		h.failErr(c, domain.Validationf("country", "a country code is required"))
		return
	}
	sess, err := h.sessions.SetBuyer(c.Request.Context(), token, patch(req.addressPayload.toDomain()))
	if err != nil {
		h.failErr(c, err)
		return
	}
	totals, err := h.pricing.PriceSession(c.Request.Context(), sess)
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.respond(c, http.StatusOK, toCartView(sess, totals))
}

func (h *handlers) listShippingMethods(c *gin.Context) {
	var buyer domain.BuyerContext
	if token, err := cartToken(c, ""); err == nil {
		if sess, err := h.sessions.Get(c.Request.Context(), token); err == nil {
			buyer = sess.Buyer
		}
	}
	methods, err := h.engine.ListShippingMethods(c.Request.Context(), buyer)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if methods == nil {
		methods = []commerce.ShippingMethod{}
	}
	h.respond(c, http.StatusOK, gin.H{"shipping_methods": methods})
}

func (h *handlers) setShippingMethod(c *gin.Context) {
	var req struct {
		ShippingMethod string `json:"shipping_method"`
		CartToken      string `json:"cart_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ShippingMethod == "" {
		h.failErr(c, domain.Validationf("shipping_method", "a shipping method id is required; list them with GET /ai/v1/checkout/shipping-methods"))
		return
	}
	token, err := cartToken(c, req.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	sess, err := h.sessions.SetBuyer(c.Request.Context(), token, session.BuyerPatch{ShippingMethod: &req.ShippingMethod})
	if err != nil {
		h.failErr(c, err)
		return
	}
	totals, err := h.pricing.PriceSession(c.Request.Context(), sess)
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.respond(c, http.StatusOK, toCartView(sess, totals))
}

func (h *handlers) listPaymentMethods(c *gin.Context) {
	gateways, err := h.engine.ListPaymentGateways(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	if gateways == nil {
		gateways = []commerce.PaymentGateway{}
	}
	h.respond(c, http.StatusOK, gin.H{"payment_gateways": gateways})
}

func (h *handlers) placeOrder(c *gin.Context) {
	var req struct {
		PaymentMethod string `json:"payment_method"`
		Note          string `json:"note"`
		CartToken     string `json:"cart_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failErr(c, domain.Validationf("body", "a JSON object is required"))
		return
	}
	token, err := cartToken(c, req.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	sess, totals, ok := h.pricedCart(c, token)
	if !ok {
		return
	}

	payment := req.PaymentMethod
	if payment == "" {
		payment = sess.Buyer.PaymentMethod
	}
	switch {
	case len(totals.Items) == 0:
		h.failErr(c, domain.Validationf("items", "the cart is empty; add items with POST /ai/v1/cart/items first"))
		return
	case sess.Buyer.BillingAddress == nil:
		h.failErr(c, domain.Validationf("billing_address", "a billing address is required; set it with POST /ai/v1/checkout/billing-address"))
		return
	case payment == "":
		h.failErr(c, domain.Validationf("payment_method", "a payment method is required; list them with GET /ai/v1/checkout/payment-methods"))
		return
	}

	order, err := h.engine.CreateOrder(c.Request.Context(), commerce.OrderInput{
		Totals:        totals,
		Buyer:         sess.Buyer,
		PaymentMethod: payment,
		Coupons:       totals.Coupons,
		Note:          req.Note,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), sess.Token); err != nil {
		h.logger.Printf("delete session %s after order %d: %v", sess.Token, order.ID, err)
	}
	h.respond(c, http.StatusCreated, gin.H{"order": order})
}
