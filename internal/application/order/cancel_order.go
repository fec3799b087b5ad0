package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	invsvc "github.com/xiebiao/medbulk/internal/application/inventory"
	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/order"
	"github.com/xiebiao/medbulk/pkg/logger"
	"github.com/xiebiao/medbulk/pkg/tracing"
	"github.com/xiebiao/medbulk/pkg/txn"
)

// CancelOrderUseCase 取消订单
//
//	pending:   释放预占
//	confirmed: 确认时实际扣减的库存按退货入库
type CancelOrderUseCase struct {
	orders    order.Repository
	inventory *invsvc.Engine
	txManager txn.Manager
	logger    *zap.Logger
}

// NewCancelOrderUseCase 创建取消订单用例
func NewCancelOrderUseCase(orders order.Repository, inventoryEngine *invsvc.Engine, txManager txn.Manager, logger *zap.Logger) *CancelOrderUseCase {
	return &CancelOrderUseCase{orders: orders, inventory: inventoryEngine, txManager: txManager, logger: logger}
}

// Execute 取消订单
func (uc *CancelOrderUseCase) Execute(ctx context.Context, orderNo, reason string) (*OrderResponse, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "order.cancel")
	span.SetAttributes(attribute.String("order_no", orderNo))

	var cancelled *order.Order
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orders.LockByOrderNo(txCtx, orderNo)
		if err != nil {
			return err
		}
		previous := o.Status
		if err := o.Cancel(reason); err != nil {
			return err
		}

		for _, item := range o.Items {
			if err := uc.restore(txCtx, o, item, previous, reason); err != nil {
				return err
			}
		}

		if err := uc.orders.Update(txCtx, o); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		logger.WithTrace(ctx, uc.logger).Warn("取消订单失败", zap.String("order_no", orderNo), zap.Error(err))
		tracing.EndSpan(span, err)
		return nil, err
	}

	tracing.EndSpan(span, nil)
	return toOrderResponse(cancelled), nil
}

func (uc *CancelOrderUseCase) restore(ctx context.Context, o *order.Order, item order.OrderItem, previous order.OrderStatus, reason string) error {
	switch previous {
	case order.OrderStatusPending:
		_, err := uc.inventory.ReleaseReservedStock(ctx, item.ProductID, item.Quantity, o.OrderNo)
		return err
	case order.OrderStatusConfirmed:
		// 只回补确认时实际扣减的数量,未扣减的行(不跟踪库存)不写流水
		if item.DeductedQuantity <= 0 {
			return nil
		}
		req := invsvc.IncreaseRequest{
			ProductID:       item.ProductID,
			Quantity:        item.DeductedQuantity,
			Type:            inventory.MovementReturn,
			ReferenceType:   inventory.ReferenceOrder,
			ReferenceID:     &o.ID,
			ReferenceNumber: o.OrderNo,
			Reason:          reason,
		}
		if item.BatchDeducted > 0 {
			req.BatchNumber = item.BatchNumber
			req.BatchQuantity = item.BatchDeducted
		}
		_, err := uc.inventory.IncreaseStock(ctx, req)
		return err
	default:
		return nil
	}
}
