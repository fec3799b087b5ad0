package purchase

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	invsvc "github.com/xiebiao/medbulk/internal/application/inventory"
	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/internal/domain/purchase"
	"github.com/xiebiao/medbulk/pkg/logger"
	"github.com/xiebiao/medbulk/pkg/tracing"
	"github.com/xiebiao/medbulk/pkg/txn"
)

const tracerName = "medbulk/purchase"

// ReceiveUseCase 采购收货
// 一张采购单的所有行在同一个事务内按顺序入库,任一行失败整单回滚
type ReceiveUseCase struct {
	purchases purchase.Repository
	batches   product.BatchRepository
	inventory *invsvc.Engine
	txManager txn.Manager
	logger    *zap.Logger
	now       func() time.Time
}

// NewReceiveUseCase 创建收货用例
func NewReceiveUseCase(
	purchases purchase.Repository,
	batches product.BatchRepository,
	inventoryEngine *invsvc.Engine,
	txManager txn.Manager,
	logger *zap.Logger,
) *ReceiveUseCase {
	return &ReceiveUseCase{
		purchases: purchases,
		batches:   batches,
		inventory: inventoryEngine,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

// ReceiveRequest 收货请求
type ReceiveRequest struct {
	PurchaseOrderID uint
	Lines           []ReceiveLine
}

// ReceiveLine 收货行,批号/效期为空时使用采购明细上的值
type ReceiveLine struct {
	ItemID      uint       `json:"item_id" binding:"required"`
	Quantity    int        `json:"quantity" binding:"required,min=1"`
	BatchNumber string     `json:"batch_number"`
	ExpiryDate  *time.Time `json:"expiry_date"`
}

// ReceiveResponse 收货结果
type ReceiveResponse struct {
	PurchaseOrderID uint                  `json:"purchase_order_id"`
	PONumber        string                `json:"po_number"`
	Status          purchase.Status       `json:"status"`
	Changes         []*invsvc.StockChange `json:"changes"`
}

// Execute 执行收货
func (uc *ReceiveUseCase) Execute(ctx context.Context, req ReceiveRequest) (*ReceiveResponse, error) {
	if len(req.Lines) == 0 {
		return nil, purchase.ErrInvalidQuantity
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "purchase.receive")
	span.SetAttributes(
		attribute.Int64("purchase_order_id", int64(req.PurchaseOrderID)),
		attribute.Int("lines", len(req.Lines)),
	)

	var resp *ReceiveResponse
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		po, err := uc.purchases.LockByID(txCtx, req.PurchaseOrderID)
		if err != nil {
			return err
		}

		changes := make([]*invsvc.StockChange, 0, len(req.Lines))
		for _, line := range req.Lines {
			item, err := po.Receive(line.ItemID, line.Quantity)
			if err != nil {
				return err
			}

			batchNumber := line.BatchNumber
			if batchNumber == "" {
				batchNumber = item.BatchNumber
			}
			expiry := line.ExpiryDate
			if expiry == nil {
				expiry = item.ExpiryDate
			}

			cost := item.UnitCost
			change, err := uc.inventory.IncreaseStock(txCtx, invsvc.IncreaseRequest{
				ProductID:       item.ProductID,
				Quantity:        line.Quantity,
				Type:            inventory.MovementPurchase,
				ReferenceType:   inventory.ReferencePurchaseOrder,
				ReferenceID:     &po.ID,
				ReferenceNumber: po.PONumber,
				BatchNumber:     batchNumber,
				ExpiryDate:      expiry,
				CostPrice:       &cost,
			})
			if err != nil {
				return err
			}
			// 商品行已被IncreaseStock锁定,批次的读改写与销售扣减串行
			if err := uc.receiveBatch(txCtx, item, batchNumber, expiry, line.Quantity); err != nil {
				return err
			}
			changes = append(changes, change)
		}

		po.RefreshStatus(uc.now())
		if err := uc.purchases.Save(txCtx, po); err != nil {
			return err
		}

		resp = &ReceiveResponse{
			PurchaseOrderID: po.ID,
			PONumber:        po.PONumber,
			Status:          po.Status,
			Changes:         changes,
		}
		return nil
	})
	if err != nil {
		logger.WithTrace(ctx, uc.logger).Warn("采购收货失败",
			zap.Uint("purchase_order_id", req.PurchaseOrderID),
			zap.Error(err),
		)
		tracing.EndSpan(span, err)
		return nil, err
	}

	tracing.EndSpan(span, nil)
	return resp, nil
}

// receiveBatch 维护批次: 不存在则按采购明细的价格创建,存在则累加库存
func (uc *ReceiveUseCase) receiveBatch(ctx context.Context, item *purchase.Item, batchNumber string, expiry *time.Time, quantity int) error {
	if batchNumber == "" {
		return nil
	}

	b, err := uc.batches.FindByNumber(ctx, item.ProductID, batchNumber)
	switch {
	case errors.Is(err, product.ErrBatchNotFound):
		b = &product.Batch{
			ProductID:    item.ProductID,
			BatchNumber:  batchNumber,
			SellingPrice: item.SellingPrice,
			CostPrice:    item.UnitCost,
			Status:       product.BatchStatusActive,
		}
		if expiry != nil {
			b.ExpiryDate = *expiry
		}
		b.Receive(quantity)
	case err != nil:
		return err
	default:
		b.Receive(quantity)
		b.CostPrice = item.UnitCost
		if expiry != nil {
			b.ExpiryDate = *expiry
		}
	}
	return uc.batches.Save(ctx, b)
}
