package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/medbulk/internal/interface/http/middleware"
	"github.com/xiebiao/medbulk/pkg/response"
)

// Handlers 所有HTTP处理器
type Handlers struct {
	Inventory *InventoryHandler
	Pricing   *PricingHandler
	Order     *OrderHandler
	Purchase  *PurchaseHandler
}

// NewRouter 创建Gin引擎并注册路由
// mode为release时关闭Gin的调试输出
func NewRouter(mode string, log *zap.Logger, h Handlers) *gin.Engine {
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log))

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 访问 /swagger/index.html 查看API文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Actor())
	{
		inventory := v1.Group("/inventory")
		{
			inventory.GET("/low-stock", h.Inventory.LowStock)
			inventory.GET("/out-of-stock", h.Inventory.OutOfStock)
			inventory.GET("/expiring", h.Inventory.Expiring)
			inventory.GET("/:product_id/availability", h.Inventory.Availability)
			inventory.GET("/:product_id/movements", h.Inventory.Movements)
			inventory.POST("/:product_id/adjust", h.Inventory.Adjust)
			inventory.POST("/:product_id/reserve", h.Inventory.Reserve)
			inventory.POST("/:product_id/release", h.Inventory.Release)
		}

		pricing := v1.Group("/pricing")
		{
			pricing.POST("/quote", h.Pricing.Quote)
			pricing.GET("/promotions", h.Pricing.ActivePromotions)
			pricing.POST("/promotions/:id/status", h.Pricing.ChangePromotionStatus)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", h.Order.Checkout)
			orders.POST("/:order_no/confirm", h.Order.Confirm)
			orders.POST("/:order_no/cancel", h.Order.Cancel)
		}

		v1.POST("/purchase-orders/:id/receive", h.Purchase.Receive)
	}

	return r
}
