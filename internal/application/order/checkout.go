package order

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	invsvc "github.com/xiebiao/medbulk/internal/application/inventory"
	pricesvc "github.com/xiebiao/medbulk/internal/application/pricing"
	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/order"
	"github.com/xiebiao/medbulk/internal/domain/pricing"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/pkg/logger"
	"github.com/xiebiao/medbulk/pkg/metrics"
	"github.com/xiebiao/medbulk/pkg/tracing"
	"github.com/xiebiao/medbulk/pkg/txn"
)

const tracerName = "medbulk/order"

// CheckoutUseCase 下单用例
// 整个下单在一个事务内: 校验可售 → 定价 → 合计 → 创建订单 → 逐行预占库存 → 优惠使用次数+1
// 任一步失败全部回滚,不会留下"有订单没预占"或"预占了没订单"的中间状态
type CheckoutUseCase struct {
	orders    order.Repository
	products  product.Repository
	discounts pricing.DiscountRepository
	stock     *invsvc.StockStore
	inventory *invsvc.Engine
	pricing   *pricesvc.Engine
	txManager txn.Manager
	logger    *zap.Logger
}

// NewCheckoutUseCase 创建下单用例
func NewCheckoutUseCase(
	orders order.Repository,
	products product.Repository,
	discounts pricing.DiscountRepository,
	stock *invsvc.StockStore,
	inventoryEngine *invsvc.Engine,
	pricingEngine *pricesvc.Engine,
	txManager txn.Manager,
	logger *zap.Logger,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		orders:    orders,
		products:  products,
		discounts: discounts,
		stock:     stock,
		inventory: inventoryEngine,
		pricing:   pricingEngine,
		txManager: txManager,
		logger:    logger,
	}
}

// CheckoutRequest 下单请求
type CheckoutRequest struct {
	UserID       uint
	Items        []LineRequest
	DiscountCode string
}

// LineRequest 购物车行
type LineRequest struct {
	ProductID   uint   `json:"product_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	BatchNumber string `json:"batch_number"`
}

// CheckoutResponse 下单结果
type CheckoutResponse struct {
	OrderID   uint                `json:"order_id"`
	OrderNo   string              `json:"order_no"`
	Status    string              `json:"status"`
	Backorder bool                `json:"backorder"` // 至少一行是缺货下单
	Totals    *pricing.CartTotals `json:"totals"`
	CreatedAt string              `json:"created_at"`
}

// Execute 执行下单
//
// 防超卖: 可售校验只是预检,真正的保证在ReserveStock里:
// 锁定商品行后再按"库存-预占"判断,并发下单同一商品时后到的请求会被拒绝
func (uc *CheckoutUseCase) Execute(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "order.checkout")
	span.SetAttributes(
		attribute.Int64("user_id", int64(req.UserID)),
		attribute.Int("lines", len(req.Items)),
	)

	resp, err := uc.execute(ctx, req)

	metrics.RecordCheckout(checkoutResult(err), start)
	if err != nil {
		logger.WithTrace(ctx, uc.logger).Warn("下单失败",
			zap.Uint("user_id", req.UserID),
			zap.String("discount_code", req.DiscountCode),
			zap.Error(err),
		)
	}
	tracing.EndSpan(span, err)
	return resp, err
}

func (uc *CheckoutUseCase) execute(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}

	var (
		result    *order.Order
		totals    *pricing.CartTotals
		backorder bool
	)
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		// 1. 可售校验
		for _, line := range lines {
			avail, err := uc.stock.CheckAvailability(txCtx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if !avail.Available {
				return inventory.ErrInsufficientStock.WithDetail(
					"商品#%d 需要%d 可用%d", line.ProductID, line.Quantity, avail.CurrentStock)
			}
			backorder = backorder || avail.IsBackorder
		}

		// 2. 定价和合计(使用当前配置快照)
		items, err := priceLines(txCtx, uc.products, uc.pricing, lines)
		if err != nil {
			return err
		}
		totals, err = uc.pricing.ComputeCartTotals(txCtx, items, req.DiscountCode, req.UserID, uc.pricing.Settings())
		if err != nil {
			return err
		}
		if pricing.NormalizeCode(req.DiscountCode) != "" && !totals.Discount.Valid {
			return order.ErrDiscountRejected.WithDetail("%s", totals.Discount.Reason)
		}

		// 3. 创建待确认订单(价格快照)
		newOrder := order.NewOrder(order.GenerateOrderNo(time.Now()), req.UserID, snapshotItems(items))
		newOrder.Subtotal = totals.Subtotal
		newOrder.TaxAmount = totals.TaxAmount
		newOrder.ShippingAmount = totals.ShippingAmount
		newOrder.DiscountAmount = totals.DiscountAmount
		newOrder.Total = totals.Total
		if totals.Discount.Valid {
			applied := totals.Discount.Discount
			newOrder.DiscountID = &applied.DiscountID
			newOrder.DiscountCode = applied.Code
		}
		if err := uc.orders.Create(txCtx, newOrder); err != nil {
			return err
		}

		// 4. 逐行预占(加入当前事务)
		for _, line := range lines {
			if _, err := uc.inventory.ReserveStock(txCtx, line.ProductID, line.Quantity, newOrder.OrderNo); err != nil {
				return err
			}
		}

		// 5. 优惠使用次数
		if newOrder.DiscountID != nil {
			err := uc.discounts.IncrementUsage(txCtx, *newOrder.DiscountID)
			if errors.Is(err, pricing.ErrDiscountUsageExhausted) {
				// 校验之后被并发订单用掉了最后一次,整单回滚
				return order.ErrDiscountRejected.WithDetail("%s", "优惠码已达使用上限")
			}
			if err != nil {
				return err
			}
		}

		result = newOrder
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResponse{
		OrderID:   result.ID,
		OrderNo:   result.OrderNo,
		Status:    result.Status.String(),
		Backorder: backorder,
		Totals:    totals,
		CreatedAt: result.CreatedAt.Format("2006-01-02 15:04:05"),
	}, nil
}

// mergeLines 校验数量并合并同一商品同一批号的行
func mergeLines(items []LineRequest) ([]LineRequest, error) {
	if len(items) == 0 {
		return nil, order.ErrInvalidOrderItems
	}

	type key struct {
		productID uint
		batch     string
	}
	index := make(map[key]int, len(items))
	merged := make([]LineRequest, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, order.ErrInvalidQuantity
		}
		k := key{item.ProductID, item.BatchNumber}
		if i, ok := index[k]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[k] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

// priceLines 逐行定价,已删除的商品视为不存在
func priceLines(ctx context.Context, products product.Repository, engine *pricesvc.Engine, lines []LineRequest) ([]*pricing.ItemPrice, error) {
	items := make([]*pricing.ItemPrice, 0, len(lines))
	for _, line := range lines {
		p, err := products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		item, err := engine.PriceCartItem(ctx, p, line.Quantity, line.BatchNumber)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func snapshotItems(items []*pricing.ItemPrice) []order.OrderItem {
	result := make([]order.OrderItem, len(items))
	for i, item := range items {
		result[i] = order.OrderItem{
			ProductID:     item.ProductID,
			BatchNumber:   item.BatchNumber,
			Quantity:      item.Quantity,
			OriginalPrice: item.OriginalPrice,
			UnitPrice:     item.UnitPrice,
			TierID:        item.TierID,
			PromotionID:   item.PromotionID,
			TaxAmount:     item.TaxAmount,
			Subtotal:      item.Subtotal,
			Total:         item.Total,
		}
	}
	return result
}

// checkoutResult 指标标签
func checkoutResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, order.ErrDiscountRejected):
		return "discount_rejected"
	default:
		return "failed"
	}
}
