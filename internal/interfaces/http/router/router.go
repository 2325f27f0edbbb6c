package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/locoganga/storefront/internal/infrastructure/config"
	"github.com/locoganga/storefront/internal/infrastructure/logger"
	"github.com/locoganga/storefront/internal/interfaces/http/handler"
	"github.com/locoganga/storefront/internal/interfaces/http/middleware"
)

// Handlers bundles every HTTP handler the router wires up
type Handlers struct {
	Catalog  *handler.CatalogHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
	System   *handler.SystemHandler
}

// New builds the gin engine with the full middleware chain and route table
func New(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig(cfg)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")

	api.GET("/catalog", h.Catalog.List)
	api.GET("/catalog/:spu", h.Catalog.Detail)

	api.GET("/cart", h.Cart.Get)
	api.POST("/cart", h.Cart.AddItem)
	api.DELETE("/cart", h.Cart.Clear)
	api.DELETE("/cart/:sku", h.Cart.RemoveItem)

	api.POST("/checkout", h.Checkout.Begin)
	api.GET("/checkout/return", h.Checkout.Return)
	api.POST("/webhooks/stripe", h.Checkout.Webhook)

	api.GET("/orders/:orderNumber", h.Order.Get)
	api.POST("/orders/:orderNumber/cancel", h.Order.Cancel)
	api.POST("/orders/:orderNumber/sync", h.Order.Sync)

	system := api.Group("/system")
	system.POST("/mirror/refresh", h.System.RefreshMirror)
	system.POST("/snapshot/dump", h.System.DumpSnapshot)
	system.GET("/connectivity", h.System.Connectivity)

	return engine
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	return corsCfg
}
