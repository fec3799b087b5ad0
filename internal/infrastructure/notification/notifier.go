// Package notification 库存事件对外通知
//
// 低库存提醒和库存调整审计都在业务事务提交后发布到RabbitMQ,
// 经熔断器保护;下游不可用时快速失败,由调用方记录日志,不影响库存操作本身。
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
	"github.com/xiebiao/medbulk/pkg/logger"
)

// DefaultLowStockRoutingKey 低库存事件的Routing Key
const DefaultLowStockRoutingKey = "inventory.low_stock"

// Publisher 消息发布(pkg/mq.Publisher)
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// Throttle 提醒限流: 同一商品在窗口内只放行一次
type Throttle interface {
	Acquire(ctx context.Context, productID uint) (bool, error)
	Reset(ctx context.Context, productID uint) error
}

// LowStockEvent 低库存事件消息体
type LowStockEvent struct {
	EventID           string    `json:"event_id"`
	ProductID         uint      `json:"product_id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	StockQuantity     int       `json:"stock_quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	OutOfStock        bool      `json:"out_of_stock"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// LowStockNotifier 实现inventory.LowStockNotifier
// 限流 → 熔断 → 发布
type LowStockNotifier struct {
	throttle   Throttle
	publisher  Publisher
	breaker    *circuitbreaker.CircuitBreaker
	routingKey string
	logger     *zap.Logger
	now        func() time.Time
}

// NewLowStockNotifier 创建低库存提醒
// routingKey为空时使用inventory.low_stock
func NewLowStockNotifier(
	throttle Throttle,
	publisher Publisher,
	breaker *circuitbreaker.CircuitBreaker,
	routingKey string,
	logger *zap.Logger,
) *LowStockNotifier {
	if routingKey == "" {
		routingKey = DefaultLowStockRoutingKey
	}
	return &LowStockNotifier{
		throttle:   throttle,
		publisher:  publisher,
		breaker:    breaker,
		routingKey: routingKey,
		logger:     logger,
		now:        time.Now,
	}
}

var _ inventory.LowStockNotifier = (*LowStockNotifier)(nil)

// NotifyLowStock 发送低库存提醒
// 窗口内已提醒过返回inventory.ErrAlertThrottled
func (n *LowStockNotifier) NotifyLowStock(ctx context.Context, p *product.Product) error {
	ok, err := n.throttle.Acquire(ctx, p.ID)
	if err != nil {
		return err
	}
	if !ok {
		return inventory.ErrAlertThrottled
	}

	event := LowStockEvent{
		EventID:           uuid.NewString(),
		ProductID:         p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		StockQuantity:     p.StockQuantity,
		LowStockThreshold: p.LowStockThreshold,
		OutOfStock:        p.IsOutOfStock(),
		OccurredAt:        n.now(),
	}

	err = n.breaker.Execute(func() error {
		return n.publisher.Publish(ctx, n.routingKey, event)
	})
	if err == nil {
		return nil
	}

	// 没发出去就把资格还回去,下次库存变化时重试
	if resetErr := n.throttle.Reset(ctx, p.ID); resetErr != nil {
		logger.WithTrace(ctx, n.logger).Warn("释放低库存提醒限流失败",
			zap.Uint("product_id", p.ID),
			zap.Error(resetErr),
		)
	}
	if errors.Is(err, circuitbreaker.ErrOpenState) {
		return apperrors.WrapCode(err, apperrors.ErrCodeDependencyFailure, "消息服务熔断中")
	}
	return apperrors.WrapCode(err, apperrors.ErrCodeDependencyFailure, "低库存提醒发送失败")
}
