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

// OrderResponse 订单状态变更结果
type OrderResponse struct {
	OrderID uint   `json:"order_id"`
	OrderNo string `json:"order_no"`
	Status  string `json:"status"`
}

func toOrderResponse(o *order.Order) *OrderResponse {
	return &OrderResponse{OrderID: o.ID, OrderNo: o.OrderNo, Status: o.Status.String()}
}

// ConfirmOrderUseCase 确认订单: pending → confirmed,逐行扣减库存(同时释放预占)
type ConfirmOrderUseCase struct {
	orders    order.Repository
	inventory *invsvc.Engine
	txManager txn.Manager
	logger    *zap.Logger
}

// NewConfirmOrderUseCase 创建确认订单用例
func NewConfirmOrderUseCase(orders order.Repository, inventoryEngine *invsvc.Engine, txManager txn.Manager, logger *zap.Logger) *ConfirmOrderUseCase {
	return &ConfirmOrderUseCase{orders: orders, inventory: inventoryEngine, txManager: txManager, logger: logger}
}

// Execute 确认订单
func (uc *ConfirmOrderUseCase) Execute(ctx context.Context, orderNo string) (*OrderResponse, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "order.confirm")
	span.SetAttributes(attribute.String("order_no", orderNo))

	var confirmed *order.Order
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orders.LockByOrderNo(txCtx, orderNo)
		if err != nil {
			return err
		}
		if err := o.Confirm(); err != nil {
			return err
		}

		for i, item := range o.Items {
			change, err := uc.inventory.ReduceStock(txCtx, invsvc.ReduceRequest{
				ProductID:       item.ProductID,
				Quantity:        item.Quantity,
				ReferenceType:   inventory.ReferenceOrder,
				ReferenceID:     &o.ID,
				ReferenceNumber: o.OrderNo,
				BatchNumber:     item.BatchNumber,
			})
			if err != nil {
				return err
			}
			if change.Applied {
				o.RecordDeduction(i, change.PreviousStock-change.NewStock, change.BatchQuantity)
			}
		}

		if err := uc.orders.Update(txCtx, o); err != nil {
			return err
		}
		confirmed = o
		return nil
	})
	if err != nil {
		logger.WithTrace(ctx, uc.logger).Warn("确认订单失败", zap.String("order_no", orderNo), zap.Error(err))
		tracing.EndSpan(span, err)
		return nil, err
	}

	tracing.EndSpan(span, nil)
	return toOrderResponse(confirmed), nil
}
