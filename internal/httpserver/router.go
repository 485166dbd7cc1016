package httpserver

import (
	"log"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/config"
	"ai-shopping-gateway/internal/domain"
	"ai-shopping-gateway/internal/service/auth"
	"ai-shopping-gateway/internal/service/pricing"
	"ai-shopping-gateway/internal/service/ratelimit"
	"ai-shopping-gateway/internal/service/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps carries the service layer every protocol surface shares.
type Deps struct {
	Config   config.Config
	Auth     *auth.Service
	Rate     *ratelimit.Service
	Sessions *session.Service
	Pricing  *pricing.Service
	Engine   commerce.Engine
}

type handlers struct {
	cfg      config.Config
	logger   *log.Logger
	auth     *auth.Service
	rate     *ratelimit.Service
	sessions *session.Service
	pricing  *pricing.Service
	engine   commerce.Engine
}

// buildRouter wires all four protocol surfaces over the shared service layer.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", cartTokenHeader)
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{
		cfg:      deps.Config,
		logger:   logger,
		auth:     deps.Auth,
		rate:     deps.Rate,
		sessions: deps.Sessions,
		pricing:  deps.Pricing,
		engine:   deps.Engine,
	}

	// Unauthenticated discovery document.
	router.GET("/.well-known/ucp", protocolTag("ucp"), h.ucpProfile)

	api := router.Group("/ai/v1")

	read := h.gate(domain.ClassRead)
	write := h.gate(domain.ClassWrite)

	// Plain REST surface.
	api.GET("/products", read, h.listProducts)
	api.GET("/products/:id", read, h.getProduct)
	api.GET("/store/info", read, h.storeInfo)
	api.GET("/orders/:id", read, h.getOrder)

	api.POST("/cart", write, h.createCart)
	api.GET("/cart", read, h.getCart)
	api.DELETE("/cart", write, h.deleteCart)
	api.POST("/cart/items", write, h.addCartItem)
	api.PUT("/cart/items/:key", write, h.updateCartItem)
	api.DELETE("/cart/items/:key", write, h.removeCartItem)
	api.POST("/cart/coupons", write, h.applyCoupon)
	api.DELETE("/cart/coupons/:code", write, h.removeCoupon)

	api.GET("/checkout/calculate", read, h.calculateCheckout)
	api.POST("/checkout/billing-address", write, h.setBillingAddress)
	api.POST("/checkout/shipping-address", write, h.setShippingAddress)
	api.GET("/checkout/shipping-methods", read, h.listShippingMethods)
	api.POST("/checkout/shipping-method", write, h.setShippingMethod)
	api.GET("/checkout/payment-methods", read, h.listPaymentMethods)
	api.POST("/checkout/place-order", write, h.placeOrder)

	// Agentic checkout protocol.
	acp := api.Group("/acp", protocolTag("acp"))
	acp.POST("/checkout", write, h.acpCreate)
	acp.GET("/checkout/:id", read, h.acpGet)
	acp.POST("/checkout/:id", write, h.acpUpdate)
	acp.POST("/checkout/:id/complete", write, h.acpComplete)
	acp.DELETE("/checkout/:id", write, h.acpCancel)

	// Universal commerce protocol.
	ucp := api.Group("/ucp", protocolTag("ucp"))
	ucp.POST("/negotiate", read, h.ucpNegotiate)
	ucp.POST("/checkout", write, h.ucpCreate)
	ucp.GET("/checkout/:id", read, h.ucpGet)
	ucp.PATCH("/checkout/:id", write, h.ucpUpdate)
	ucp.POST("/checkout/:id/complete", write, h.ucpComplete)
	ucp.GET("/orders/:id", read, h.ucpOrder)

	// Tool invocation protocol. Invocation gates itself per tool: read-only
	// tools need only the read tier even though dispatch is a POST.
	mcp := api.Group("/mcp", protocolTag("mcp"))
	mcp.GET("/tools", read, h.mcpListTools)
	mcp.POST("/tools/:tool", h.mcpInvoke)

	return router
}
