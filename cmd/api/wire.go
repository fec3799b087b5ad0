//go:build wireinject
// +build wireinject

// Wire依赖注入配置
//
// 与app.go中的newApp组装同一张依赖图,运行 `wire gen ./cmd/api` 生成wire_gen.go。
// 存储层和通知出口按配置二选一,不适合交给Wire,所以作为Injector参数传入。

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"go.uber.org/zap"

	invsvc "github.com/xiebiao/medbulk/internal/application/inventory"
	apporder "github.com/xiebiao/medbulk/internal/application/order"
	pricesvc "github.com/xiebiao/medbulk/internal/application/pricing"
	apppurchase "github.com/xiebiao/medbulk/internal/application/purchase"
	"github.com/xiebiao/medbulk/internal/domain/pricing"
	"github.com/xiebiao/medbulk/internal/infrastructure/config"
	"github.com/xiebiao/medbulk/internal/interface/http/handler"
)

// storageSet 从storage取出各仓储
var storageSet = wire.NewSet(
	wire.FieldsOf(new(*storage),
		"Products", "Batches", "Inventories", "Orders",
		"Purchases", "Discounts", "TxManager",
	),
)

// engineSet 库存/定价引擎
var engineSet = wire.NewSet(
	invsvc.NewStockStore,
	provideInventoryEngine,
	providePricingEngine,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	apporder.NewCheckoutUseCase,
	apporder.NewConfirmOrderUseCase,
	apporder.NewCancelOrderUseCase,
	apporder.NewQuoteUseCase,
	apppurchase.NewReceiveUseCase,
)

// handlerSet HTTP处理器
var handlerSet = wire.NewSet(
	handler.NewInventoryHandler,
	handler.NewPricingHandler,
	handler.NewOrderHandler,
	handler.NewPurchaseHandler,
	wire.Struct(new(handler.Handlers), "*"),
	provideRouter,
)

// provideInventoryEngine Options来自inventory配置节
func provideInventoryEngine(cfg *config.Config, st *storage, n *notifications, log *zap.Logger) *invsvc.Engine {
	return invsvc.NewEngine(
		st.Products, st.Batches, st.Inventories, st.Ledger, st.TxManager,
		n.Notifier, n.Auditor, log,
		invsvc.Options{NotifyTimeout: cfg.Inventory.NotificationTimeout},
	)
}

// providePricingEngine 订单仓储同时提供优惠码使用次数统计
func providePricingEngine(st *storage, settings pricing.SettingsSource, log *zap.Logger) *pricesvc.Engine {
	return pricesvc.NewEngine(pricesvc.Repositories{
		Tiers:      st.Tiers,
		Taxes:      st.Taxes,
		Batches:    st.Batches,
		Discounts:  st.Discounts,
		Promotions: st.Promotions,
		Usage:      st.Orders,
	}, settings, log, nil)
}

func provideRouter(cfg *config.Config, log *zap.Logger, h handler.Handlers) *gin.Engine {
	return handler.NewRouter(cfg.Server.Mode, log, h)
}

// initializeApp Injector
func initializeApp(
	cfg *config.Config,
	log *zap.Logger,
	st *storage,
	n *notifications,
	settings pricing.SettingsSource,
) *app {
	wire.Build(
		storageSet,
		engineSet,
		applicationSet,
		handlerSet,
		wire.Struct(new(app), "router", "inventory"),
	)
	return nil
}
