package httpserver

import (
	"encoding/json"
	"net/http"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/domain"
	"ai-shopping-gateway/internal/service/session"
	"github.com/gin-gonic/gin"
)

// Tool invocation: a static manifest plus invoke-by-name dispatch. Every
// tool is a thin wrapper over the same services the REST surface uses, with
// a flat parameter bag instead of path/query shape.

type toolSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]toolProperty `json:"properties"`
	Required   []string                `json:"required,omitempty"`
}

type toolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type toolDef struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema toolSchema `json:"input_schema"`

	class   domain.OpClass
	handler func(h *handlers, c *gin.Context, params json.RawMessage)
}

func objSchema(required []string, props map[string]toolProperty) toolSchema {
	return toolSchema{Type: "object", Properties: props, Required: required}
}

var cartTokenProp = toolProperty{Type: "string", Description: "cart token returned by create_cart"}

var toolDefs = []toolDef{
	{
		Name:        "search_products",
		Description: "Search the product catalog by text and price range.",
		InputSchema: objSchema(nil, map[string]toolProperty{
			"search":          {Type: "string", Description: "free-text query over name, description, and SKU"},
			"min_price_cents": {Type: "integer"},
			"max_price_cents": {Type: "integer"},
			"page":            {Type: "integer"},
			"per_page":        {Type: "integer"},
		}),
		class:   domain.ClassRead,
		handler: (*handlers).toolSearchProducts,
	},
	{
		Name:        "get_product",
		Description: "Fetch one product by id.",
		InputSchema: objSchema([]string{"product_id"}, map[string]toolProperty{
			"product_id": {Type: "integer"},
		}),
		class:   domain.ClassRead,
		handler: (*handlers).toolGetProduct,
	},
	{
		Name:        "create_cart",
		Description: "Create a new cart and return its token.",
		InputSchema: objSchema(nil, map[string]toolProperty{}),
		class:       domain.ClassWrite,
		handler:     (*handlers).toolCreateCart,
	},
	{
		Name:        "add_to_cart",
		Description: "Add a product to the cart; same product and options merge into one line.",
		InputSchema: objSchema([]string{"cart_token", "product_id"}, map[string]toolProperty{
			"cart_token":   cartTokenProp,
			"product_id":   {Type: "integer"},
			"variation_id": {Type: "integer"},
			"quantity":     {Type: "integer", Description: "defaults to 1"},
		}),
		class:   domain.ClassWrite,
		handler: (*handlers).toolAddToCart,
	},
	{
		Name:        "get_cart",
		Description: "Read the cart with freshly computed totals.",
		InputSchema: objSchema([]string{"cart_token"}, map[string]toolProperty{
			"cart_token": cartTokenProp,
		}),
		class:   domain.ClassRead,
		handler: (*handlers).toolGetCart,
	},
	{
		Name:        "remove_from_cart",
		Description: "Remove one line item from the cart by its key.",
		InputSchema: objSchema([]string{"cart_token", "item_key"}, map[string]toolProperty{
			"cart_token": cartTokenProp,
			"item_key":   {Type: "string", Description: "line item key from get_cart"},
		}),
		class:   domain.ClassWrite,
		handler: (*handlers).toolRemoveFromCart,
	},
	{
		Name:        "apply_coupon",
		Description: "Apply a coupon code to the cart.",
		InputSchema: objSchema([]string{"cart_token", "code"}, map[string]toolProperty{
			"cart_token": cartTokenProp,
			"code":       {Type: "string"},
		}),
		class:   domain.ClassWrite,
		handler: (*handlers).toolApplyCoupon,
	},
	{
		Name:        "get_store_info",
		Description: "Read store identity, currency, payment gateways, and shipping methods.",
		InputSchema: objSchema(nil, map[string]toolProperty{}),
		class:       domain.ClassRead,
		handler:     (*handlers).toolGetStoreInfo,
	},
	{
		Name:        "get_shipping_methods",
		Description: "List available shipping methods with quoted costs.",
		InputSchema: objSchema(nil, map[string]toolProperty{
			"cart_token": cartTokenProp,
		}),
		class:   domain.ClassRead,
		handler: (*handlers).toolGetShippingMethods,
	},
	{
		Name:        "get_payment_gateways",
		Description: "List enabled payment gateways.",
		InputSchema: objSchema(nil, map[string]toolProperty{}),
		class:       domain.ClassRead,
		handler:     (*handlers).toolGetPaymentGateways,
	},
	{
		Name:        "place_order",
		Description: "Place an order from the cart; requires items, a billing address, and a payment method.",
		InputSchema: objSchema([]string{"cart_token"}, map[string]toolProperty{
			"cart_token":      cartTokenProp,
			"payment_method":  {Type: "string", Description: "defaults to the payment method already set on the cart"},
			"billing_address": {Type: "object", Description: "billing address fields, if not already set on the cart"},
		}),
		class:   domain.ClassWrite,
		handler: (*handlers).toolPlaceOrder,
	},
	{
		Name:        "get_order",
		Description: "Fetch one order by id.",
		InputSchema: objSchema([]string{"order_id"}, map[string]toolProperty{
			"order_id": {Type: "integer"},
		}),
		class:   domain.ClassRead,
		handler: (*handlers).toolGetOrder,
	},
}

var toolsByName = func() map[string]*toolDef {
	m := make(map[string]*toolDef, len(toolDefs))
	for i := range toolDefs {
		m[toolDefs[i].Name] = &toolDefs[i]
	}
	return m
}()

func (h *handlers) mcpListTools(c *gin.Context) {
	h.respond(c, http.StatusOK, gin.H{"tools": toolDefs})
}

func (h *handlers) mcpInvoke(c *gin.Context) {
	key, ok := h.admit(c)
	if !ok {
		return
	}
	name := c.Param("tool")
	tool, found := toolsByName[name]
	if !found {
		h.fail(c, http.StatusNotFound, "tool_not_found",
			"unknown tool \""+name+"\"; list available tools with GET /ai/v1/mcp/tools")
		return
	}
	if !h.authorizeAndLimit(c, key, tool.class) {
		return
	}

	params := json.RawMessage("{}")
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			h.failErr(c, domain.Validationf("body", "tool parameters must be a JSON object"))
			return
		}
	}
	tool.handler(h, c, params)
}

func bindParams(h *handlers, c *gin.Context, raw json.RawMessage, out interface{}) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		h.failErr(c, domain.Validationf("body", "tool parameters must be a JSON object"))
		return false
	}
	return true
}

// toolCartToken prefers the flat cart_token parameter, then the usual
// header/query fallbacks.
func toolCartToken(c *gin.Context, paramToken string) (string, error) {
	if paramToken != "" {
		return paramToken, nil
	}
	return cartToken(c, "")
}

func (h *handlers) toolSearchProducts(c *gin.Context, raw json.RawMessage) {
	var p struct {
		Search        string `json:"search"`
		MinPriceCents int64  `json:"min_price_cents"`
		MaxPriceCents int64  `json:"max_price_cents"`
		Page          int    `json:"page"`
		PerPage       int    `json:"per_page"`
	}
	if !bindParams(h, c, raw, &p) {
		return
	}
	products, total, err := h.engine.SearchProducts(c.Request.Context(), commerce.ProductQuery{
		Search:        p.Search,
		MinPriceCents: p.MinPriceCents,
		MaxPriceCents: p.MaxPriceCents,
		Page:          p.Page,
		PerPage:       p.PerPage,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	views := make([]productView, 0, len(products))
	for _, prod := range products {
		views = append(views, toProductView(prod))
	}
	h.respond(c, http.StatusOK, gin.H{"products": views, "total": total})
}

func (h *handlers) toolGetProduct(c *gin.Context, raw json.RawMessage) {
	var p struct {
		ProductID int64 `json:"product_id"`
	}
	if !bindParams(h, c, raw, &p) {
		return
	}
	if p.ProductID <= 0 {
		h.failErr(c, domain.Validationf("product_id", "a positive product_id is required"))
		return
	}
	prod, err := h.engine.FindProduct(c.Request.Context(), p.ProductID, 0)
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.respond(c, http.StatusOK, toProductView(*prod))
}

func (h *handlers) toolCreateCart(c *gin.Context, _ json.RawMessage) {
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
	h.respond(c, http.StatusOK, toCartView(sess, totals))
}

func (h *handlers) toolAddToCart(c *gin.Context, raw json.RawMessage) {
	var p struct {
		CartToken   string            `json:"cart_token"`
		ProductID   int64             `json:"product_id"`
		VariationID int64             `json:"variation_id"`
		Options     map[string]string `json:"options"`
		Quantity    int               `json:"quantity"`
	}
	if !bindParams(h, c, raw, &p) {
		return
	}
	token, err := toolCartToken(c, p.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	qty := p.Quantity
	if qty == 0 {
		qty = 1
	}
	sess, err := h.sessions.AddItem(c.Request.Context(), token, p.ProductID, p.VariationID, p.Options, qty)
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

func (h *handlers) toolGetCart(c *gin.Context, raw json.RawMessage) {
	var p struct {
		CartToken string `json:"cart_token"`
	}
	if !bindParams(h, c, raw, &p) {
		return
	}
	token, err := toolCartToken(c, p.CartToken)
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

func (h *handlers) toolRemoveFromCart(c *gin.Context, raw json.RawMessage) {
	var p struct {
		CartToken string `json:"cart_token"`
		ItemKey   string `json:"item_key"`
	}
	if !bindParams(h, c, raw, &p) {
		return
	}
	token, err := toolCartToken(c, p.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if p.ItemKey == "" {
		h.failErr(c, domain.Validationf("item_key", "the line item key from get_cart is required"))
		return
	}
	sess, err := h.sessions.RemoveItem(c.Request.Context(), token, p.ItemKey)
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

func (h *handlers) toolApplyCoupon(c *gin.Context, raw json.RawMessage) {
	var p struct {
		CartToken string `json:"cart_token"`
		Code      string `json:"code"`
	}
	if !bindParams(h, c, raw, &p) {
		return
	}
	token, err := toolCartToken(c, p.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if p.Code == "" {
		h.failErr(c, domain.Validationf("code", "a coupon code is required"))
		return
	}
	valid, err := h.engine.ValidateCoupon(c.Request.Context(), p.Code)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if !valid {
		h.failErr(c, domain.Validationf("code", "coupon %q does not exist or has expired", p.Code))
		return
	}
	sess, err := h.sessions.ApplyCoupon(c.Request.Context(), token, p.Code)
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

func (h *handlers) toolGetStoreInfo(c *gin.Context, _ json.RawMessage) {
	h.storeInfo(c)
}

func (h *handlers) toolGetShippingMethods(c *gin.Context, raw json.RawMessage) {
	var p struct {
		CartToken string `json:"cart_token"`
	}
	if !bindParams(h, c, raw, &p) {
		return
	}
	var buyer domain.BuyerContext
	if p.CartToken != "" {
		if sess, err := h.sessions.Get(c.Request.Context(), p.CartToken); err == nil {
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

func (h *handlers) toolGetPaymentGateways(c *gin.Context, _ json.RawMessage) {
	h.listPaymentMethods(c)
}

func (h *handlers) toolPlaceOrder(c *gin.Context, raw json.RawMessage) {
	var p struct {
		CartToken      string          `json:"cart_token"`
		PaymentMethod  string          `json:"payment_method"`
		BillingAddress *addressPayload `json:"billing_address"`
	}
	if !bindParams(h, c, raw, &p) {
		return
	}
	token, err := toolCartToken(c, p.CartToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), token)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if p.BillingAddress != nil || p.PaymentMethod != "" {
		patch := session.BuyerPatch{BillingAddress: p.BillingAddress.toDomain()}
		if p.PaymentMethod != "" {
			patch.PaymentMethod = &p.PaymentMethod
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
	switch {
	case len(totals.Items) == 0:
		h.failErr(c, domain.Validationf("items", "the cart is empty; add items with add_to_cart first"))
		return
	case sess.Buyer.BillingAddress == nil:
		h.failErr(c, domain.Validationf("billing_address", "a billing address is required; pass one to place_order"))
		return
	case sess.Buyer.PaymentMethod == "":
		h.failErr(c, domain.Validationf("payment_method", "a payment method is required; list them with get_payment_gateways"))
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
		h.logger.Printf("delete cart %s after order %d: %v", sess.Token, order.ID, err)
	}
	h.respond(c, http.StatusOK, gin.H{"order": order})
}

func (h *handlers) toolGetOrder(c *gin.Context, raw json.RawMessage) {
	var p struct {
		OrderID int64 `json:"order_id"`
	}
	if !bindParams(h, c, raw, &p) {
		return
	}
	if p.OrderID <= 0 {
		h.failErr(c, domain.Validationf("order_id", "a positive order_id is required"))
		return
	}
	order, err := h.engine.GetOrder(c.Request.Context(), p.OrderID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"order": order})
}
