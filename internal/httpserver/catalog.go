package httpserver

import (
	"net/http"
	"strconv"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/domain"
	"github.com/gin-gonic/gin"
)

func (h *handlers) listProducts(c *gin.Context) {
	query := commerce.ProductQuery{
		Search:        c.Query("search"),
		MinPriceCents: queryInt64(c, "min_price_cents"),
		MaxPriceCents: queryInt64(c, "max_price_cents"),
		Page:          int(queryInt64(c, "page")),
		PerPage:       int(queryInt64(c, "per_page")),
	}
	products, total, err := h.engine.SearchProducts(c.Request.Context(), query)
	if err != nil {
		h.failErr(c, err)
		return
	}
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, toProductView(p))
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	perPage := query.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	h.respond(c, http.StatusOK, productListView{Products: views, Total: total, Page: page, PerPage: perPage})
}

func (h *handlers) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.failErr(c, domain.Validationf("id", "a numeric product id is required"))
		return
	}
	p, err := h.engine.FindProduct(c.Request.Context(), id, 0)
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.respond(c, http.StatusOK, toProductView(*p))
}

func (h *handlers) storeInfo(c *gin.Context) {
	gateways, err := h.engine.ListPaymentGateways(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	methods, err := h.engine.ListShippingMethods(c.Request.Context(), domain.BuyerContext{})
	if err != nil {
		h.failErr(c, err)
		return
	}
	if gateways == nil {
		gateways = []commerce.PaymentGateway{}
	}
	if methods == nil {
		methods = []commerce.ShippingMethod{}
	}
	h.respond(c, http.StatusOK, storeInfoView{
		Name:            h.cfg.StoreName,
		URL:             h.cfg.StoreURL,
		Currency:        h.cfg.Currency,
		PaymentGateways: gateways,
		ShippingMethods: methods,
	})
}

func (h *handlers) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.failErr(c, domain.Validationf("id", "a numeric order id is required"))
		return
	}
	order, err := h.engine.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"order": order})
}

func queryInt64(c *gin.Context, key string) int64 {
	v := c.Query(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
