package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
type OrderStatus int

const (
	OrderStatusPending   OrderStatus = 1 // 待确认(已预占库存)
	OrderStatusConfirmed OrderStatus = 2 // 已确认(已扣减库存)
	OrderStatusShipped   OrderStatus = 3 // 已发货
	OrderStatusDelivered OrderStatus = 4 // 已送达
	OrderStatusCancelled OrderStatus = 5 // 已取消
)

// String 实现Stringer接口(方便日志输出)
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "待确认"
	case OrderStatusConfirmed:
		return "已确认"
	case OrderStatusShipped:
		return "已发货"
	case OrderStatusDelivered:
		return "已送达"
	case OrderStatusCancelled:
		return "已取消"
	default:
		return "未知状态"
	}
}

// Order 订单实体(聚合根)
// 金额字段都是下单时的快照,商品改价不影响历史订单
type Order struct {
	ID             uint
	OrderNo        string
	UserID         uint
	Subtotal       decimal.Decimal // 税前小计
	TaxAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	DiscountID     *uint
	DiscountCode   string
	Status         OrderStatus
	CancelReason   string
	Items          []OrderItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem 订单明细(价格快照)
type OrderItem struct {
	ID            uint
	OrderID       uint
	ProductID     uint
	BatchNumber   string
	Quantity      int
	OriginalPrice decimal.Decimal
	UnitPrice     decimal.Decimal
	TierID        *uint
	PromotionID   *uint
	TaxAmount     decimal.Decimal
	Subtotal      decimal.Decimal // 税前
	Total         decimal.Decimal // 税后

	// 确认时实际扣减的数量: 不跟踪库存为0,缺货下单时可能小于Quantity
	// 取消已确认订单时只回补这部分
	DeductedQuantity int
	BatchDeducted    int // 其中从BatchNumber批次扣减的数量
}

// NewOrder 创建待确认订单
func NewOrder(orderNo string, userID uint, items []OrderItem) *Order {
	now := time.Now()
	return &Order{
		OrderNo:   orderNo,
		UserID:    userID,
		Status:    OrderStatusPending,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// 合法的状态转换
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// CanTransitionTo 检查是否可以转换到目标状态
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range transitions[o.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// Confirm 确认订单(扣减库存)
func (o *Order) Confirm() error {
	return o.TransitionTo(OrderStatusConfirmed)
}

// Cancel 取消订单
func (o *Order) Cancel(reason string) error {
	if err := o.TransitionTo(OrderStatusCancelled); err != nil {
		return err
	}
	o.CancelReason = reason
	return nil
}

// RecordDeduction 记录第i行确认时实际扣减的库存
func (o *Order) RecordDeduction(i, quantity, batchQuantity int) {
	o.Items[i].DeductedQuantity = quantity
	o.Items[i].BatchDeducted = batchQuantity
}

// ItemsTotal 明细税后合计(用于校验)
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total)
	}
	return total
}
