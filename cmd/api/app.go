package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	invsvc "github.com/xiebiao/medbulk/internal/application/inventory"
	apporder "github.com/xiebiao/medbulk/internal/application/order"
	pricesvc "github.com/xiebiao/medbulk/internal/application/pricing"
	apppurchase "github.com/xiebiao/medbulk/internal/application/purchase"
	"github.com/xiebiao/medbulk/internal/domain/audit"
	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/order"
	"github.com/xiebiao/medbulk/internal/domain/pricing"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/internal/domain/purchase"
	"github.com/xiebiao/medbulk/internal/infrastructure/config"
	"github.com/xiebiao/medbulk/internal/infrastructure/notification"
	"github.com/xiebiao/medbulk/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/medbulk/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/medbulk/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/medbulk/internal/interface/http/handler"
	"github.com/xiebiao/medbulk/pkg/circuitbreaker"
	"github.com/xiebiao/medbulk/pkg/mq"
	"github.com/xiebiao/medbulk/pkg/txn"
)

// storage 存储层依赖
// database.driver=mysql时走GORM,memory用于本地演示和集成测试
type storage struct {
	Products    product.Repository
	Batches     product.BatchRepository
	Inventories inventory.Repository
	Ledger      inventory.Ledger
	Orders      order.Repository
	Purchases   purchase.Repository
	Tiers       pricing.TierRepository
	Taxes       pricing.TaxRepository
	Discounts   pricing.DiscountRepository
	Promotions  pricing.PromotionRepository
	TxManager   txn.Manager
	AuditLog    audit.Sink

	close func()
}

func newStorage(cfg *config.Config, log *zap.Logger) (*storage, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("使用内存存储,重启后数据丢失")
		store := memory.NewStore()
		return &storage{
			Products:    memory.NewProductRepository(store),
			Batches:     memory.NewBatchRepository(store),
			Inventories: memory.NewInventoryRepository(store),
			Ledger:      memory.NewLedger(store),
			Orders:      memory.NewOrderRepository(store),
			Purchases:   memory.NewPurchaseRepository(store),
			Tiers:       memory.NewTierRepository(store),
			Taxes:       memory.NewTaxRepository(store),
			Discounts:   memory.NewDiscountRepository(store),
			Promotions:  memory.NewPromotionRepository(store),
			TxManager:   memory.NewTxManager(store),
			AuditLog:    memory.NewAuditSink(),
			close:       func() {},
		}, nil
	}

	db, err := mysql.NewDB(cfg, log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接池失败: %w", err)
	}
	return &storage{
		Products:    mysql.NewProductRepository(db),
		Batches:     mysql.NewBatchRepository(db),
		Inventories: mysql.NewInventoryRepository(db),
		Ledger:      mysql.NewLedger(db),
		Orders:      mysql.NewOrderRepository(db),
		Purchases:   mysql.NewPurchaseRepository(db),
		Tiers:       mysql.NewTierRepository(db),
		Taxes:       mysql.NewTaxRepository(db),
		Discounts:   mysql.NewDiscountRepository(db),
		Promotions:  mysql.NewPromotionRepository(db),
		TxManager:   mysql.NewTxManager(db),
		AuditLog:    mysql.NewAuditRepository(db),
		close:       func() { _ = sqlDB.Close() },
	}, nil
}

// notifications 低库存提醒与审计出口
type notifications struct {
	Notifier inventory.LowStockNotifier
	Auditor  audit.Sink

	close func()
}

// newNotifications 组装提醒链路
//
//	限流: Redis启用时跨实例共享,否则进程内
//	发布: RabbitMQ启用时发布到exchange,否则只写日志
//	审计: 审计表 + RabbitMQ(启用时)
func newNotifications(cfg *config.Config, log *zap.Logger, st *storage) (*notifications, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var throttle notification.Throttle
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg, log)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		throttle = redis.NewAlertThrottle(client, cfg.Inventory.LowStockAlertTTL)
	} else {
		throttle = notification.NewLocalThrottle(cfg.Inventory.LowStockAlertTTL)
	}

	var publisher notification.Publisher = &logPublisher{log: log}
	auditor := st.AuditLog
	if cfg.RabbitMQ.Enabled {
		pub, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.ExchangeType, log)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, func() { _ = pub.Close() })
		publisher = pub

		auditPublisher := notification.NewAuditPublisher(pub, newBreaker(cfg, log, "rabbitmq-audit"), cfg.RabbitMQ.AuditRoutingKey)
		auditor = audit.Fanout(st.AuditLog, auditPublisher)
	}

	return &notifications{
		Notifier: notification.NewLowStockNotifier(
			throttle,
			publisher,
			newBreaker(cfg, log, "rabbitmq-low-stock"),
			cfg.RabbitMQ.LowStockRoutingKey,
			log,
		),
		Auditor: auditor,
		close:   closeAll,
	}, nil
}

func newBreaker(cfg *config.Config, log *zap.Logger, name string) *circuitbreaker.CircuitBreaker {
	maxFailures := cfg.Inventory.BreakerMaxFailures
	cb := circuitbreaker.NewCircuitBreaker(name, circuitbreaker.Config{
		Timeout: cfg.Inventory.BreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return uint64(counts.ConsecutiveFailures) >= maxFailures
		},
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		log.Warn("熔断器状态变化",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return cb
}

// logPublisher 未启用RabbitMQ时把事件写到日志
type logPublisher struct {
	log *zap.Logger
}

func (p *logPublisher) Publish(_ context.Context, routingKey string, message interface{}) error {
	p.log.Info("事件(未启用消息队列)", zap.String("routing_key", routingKey), zap.Any("message", message))
	return nil
}

// app 组装完成的应用
type app struct {
	router    *gin.Engine
	inventory *invsvc.Engine
}

// newApp 手动依赖注入
// Repository ← Engine ← UseCase ← Handler
func newApp(cfg *config.Config, log *zap.Logger, st *storage, n *notifications, settings pricing.SettingsSource) *app {
	stock := invsvc.NewStockStore(st.Products, st.Inventories)
	inventoryEngine := invsvc.NewEngine(
		st.Products,
		st.Batches,
		st.Inventories,
		st.Ledger,
		st.TxManager,
		n.Notifier,
		n.Auditor,
		log,
		invsvc.Options{NotifyTimeout: cfg.Inventory.NotificationTimeout},
	)
	pricingEngine := pricesvc.NewEngine(pricesvc.Repositories{
		Tiers:      st.Tiers,
		Taxes:      st.Taxes,
		Batches:    st.Batches,
		Discounts:  st.Discounts,
		Promotions: st.Promotions,
		Usage:      st.Orders,
	}, settings, log, nil)

	handlers := handler.Handlers{
		Inventory: handler.NewInventoryHandler(inventoryEngine, stock),
		Pricing:   handler.NewPricingHandler(apporder.NewQuoteUseCase(st.Products, pricingEngine), pricingEngine),
		Order: handler.NewOrderHandler(
			apporder.NewCheckoutUseCase(st.Orders, st.Products, st.Discounts, stock, inventoryEngine, pricingEngine, st.TxManager, log),
			apporder.NewConfirmOrderUseCase(st.Orders, inventoryEngine, st.TxManager, log),
			apporder.NewCancelOrderUseCase(st.Orders, inventoryEngine, st.TxManager, log),
		),
		Purchase: handler.NewPurchaseHandler(
			apppurchase.NewReceiveUseCase(st.Purchases, st.Batches, inventoryEngine, st.TxManager, log),
		),
	}

	return &app{
		router:    handler.NewRouter(cfg.Server.Mode, log, handlers),
		inventory: inventoryEngine,
	}
}
