package httpserver

import (
	"net/http"

	"ai-shopping-gateway/internal/domain"
	"github.com/gin-gonic/gin"
)

// pricedCart loads a session and reprices it in one pass. Handlers call this
// once per request; totals are never reused across requests.
func (h *handlers) pricedCart(c *gin.Context, token string) (*domain.CartSession, *domain.Totals, bool) {
	sess, err := h.sessions.Get(c.Request.Context(), token)
	if err != nil {
		h.failErr(c, err)
		return nil, nil, false
	}
	totals, err := h.pricing.PriceSession(c.Request.Context(), sess)
	if err != nil {
		h.failErr(c, err)
		return nil, nil, false
	}
	return sess, totals, true
}

func (h *handlers) createCart(c *gin.Context) {
	key := credentialFrom(c)
	sess, err := h.sessions.Create(c.Request.Context(), key.ID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	totals, err := h.pricing.PriceSession(c.Request.Context(), sess)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.Header(cartTokenHeader, sess.Token)
	h.respond(c, http.StatusCreated, toCartView(sess, totals))
}

func (h *handlers) getCart(c *gin.Context) {
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

func (h *handlers) deleteCart(c *gin.Context) {
	token, err := cartToken(c, "")
	if err != nil {
		h.failErr(c, err)
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), token); err != nil {
		h.failErr(c, err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req struct {
		itemPayload
		CartToken string `json:"cart_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failErr(c, domain.Validationf("body", "a JSON object with product_id and quantity is required"))
		return
	}
	token, err := cartToken(c, req.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	sess, err := h.sessions.AddItem(c.Request.Context(), token, req.ProductID, req.VariationID, req.Options, qty)
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

func (h *handlers) updateCartItem(c *gin.Context) {
	var req struct {
		Quantity  int    `json:"quantity"`
		CartToken string `json:"cart_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failErr(c, domain.Validationf("quantity", "a JSON object with a numeric quantity is required"))
		return
	}
	token, err := cartToken(c, req.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	sess, err := h.sessions.UpdateItemQuantity(c.Request.Context(), token, c.Param("key"), req.Quantity)
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

func (h *handlers) removeCartItem(c *gin.Context) {
	token, err := cartToken(c, "")
	if err != nil {
		h.failErr(c, err)
		return
	}
	sess, err := h.sessions.RemoveItem(c.Request.Context(), token, c.Param("key"))
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

func (h *handlers) applyCoupon(c *gin.Context) {
	var req struct {
		Code      string `json:"code"`
		CartToken string `json:"cart_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		h.failErr(c, domain.Validationf("code", "a JSON object with a coupon code is required"))
		return
	}
	token, err := cartToken(c, req.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	valid, err := h.engine.ValidateCoupon(c.Request.Context(), req.Code)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if !valid {
		h.failErr(c, domain.Validationf("code", "coupon %q does not exist or has expired", req.Code))
		return
	}
	sess, err := h.sessions.ApplyCoupon(c.Request.Context(), token, req.Code)
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

func (h *handlers) removeCoupon(c *gin.Context) {
	token, err := cartToken(c, "")
	if err != nil {
		h.failErr(c, err)
		return
	}
	sess, err := h.sessions.RemoveCoupon(c.Request.Context(), token, c.Param("code"))
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
