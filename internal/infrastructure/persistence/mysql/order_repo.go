package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/medbulk/internal/domain/order"
)

// orderRepository 订单仓储实现(MySQL)
// 1. Order和OrderItem是聚合关系,必须一起保存
// 2. 查询时使用Preload预加载明细,避免N+1问题
// 3. 事务通过context传递
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单(GORM通过foreignKey一并插入Items)
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return classifyError(err, "创建订单失败")
	}

	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	var model OrderModel
	err := getDB(ctx, r.db).Preload("Items").Where("order_no = ?", orderNo).First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, order.ErrOrderNotFound
		}
		return nil, classifyError(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// LockByOrderNo 只锁订单行;明细是下单时的快照,不会被并发修改
func (r *orderRepository) LockByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	db := getDB(ctx, r.db)

	var model OrderModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("order_no = ?", orderNo).First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, order.ErrOrderNotFound
		}
		return nil, classifyError(err, "查询订单失败")
	}
	if err := db.Where("order_id = ?", model.ID).Order("id ASC").Find(&model.Items).Error; err != nil {
		return nil, classifyError(err, "查询订单明细失败")
	}
	return toOrderEntity(&model), nil
}

// Update 更新订单状态和明细的实际扣减数量(价格快照不变)
func (r *orderRepository) Update(ctx context.Context, o *order.Order) error {
	updatedAt := o.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	db := getDB(ctx, r.db)
	result := db.Model(&OrderModel{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
		"status":        int(o.Status),
		"cancel_reason": o.CancelReason,
		"updated_at":    updatedAt,
	})
	if result.Error != nil {
		return classifyError(result.Error, "更新订单失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}

	for _, item := range o.Items {
		err := db.Model(&OrderItemModel{}).Where("id = ? AND order_id = ?", item.ID, o.ID).Updates(map[string]interface{}{
			"deducted_quantity": item.DeductedQuantity,
			"batch_deducted":    item.BatchDeducted,
		}).Error
		if err != nil {
			return classifyError(err, "更新订单明细失败")
		}
	}
	return nil
}

// ListByUserID 查询用户的订单列表
func (r *orderRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	var (
		models []OrderModel
		total  int64
	)
	query := getDB(ctx, r.db).Model(&OrderModel{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classifyError(err, "查询订单总数失败")
	}

	err := query.Preload("Items").
		Order("created_at DESC").
		Limit(pageSize).
		Offset(pageOffset(page, pageSize)).
		Find(&models).Error
	if err != nil {
		return nil, 0, classifyError(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

// CountUserDiscountUsage 已取消的订单不计入
func (r *orderRepository) CountUserDiscountUsage(ctx context.Context, userID, discountID uint) (int, error) {
	var count int64
	err := getDB(ctx, r.db).Model(&OrderModel{}).
		Where("user_id = ? AND discount_id = ? AND status <> ?", userID, discountID, int(order.OrderStatusCancelled)).
		Count(&count).Error
	if err != nil {
		return 0, classifyError(err, "统计优惠使用次数失败")
	}
	return int(count), nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ID:            item.ID,
			OrderID:       item.OrderID,
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

			DeductedQuantity: item.DeductedQuantity,
			BatchDeducted:    item.BatchDeducted,
		}
	}

	return &OrderModel{
		ID:             o.ID,
		OrderNo:        o.OrderNo,
		UserID:         o.UserID,
		Subtotal:       o.Subtotal,
		TaxAmount:      o.TaxAmount,
		ShippingAmount: o.ShippingAmount,
		DiscountAmount: o.DiscountAmount,
		Total:          o.Total,
		DiscountID:     o.DiscountID,
		DiscountCode:   o.DiscountCode,
		Status:         int(o.Status),
		CancelReason:   o.CancelReason,
		Items:          items,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toOrderEntity(model *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(model.Items))
	for i, item := range model.Items {
		items[i] = order.OrderItem{
			ID:            item.ID,
			OrderID:       item.OrderID,
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

			DeductedQuantity: item.DeductedQuantity,
			BatchDeducted:    item.BatchDeducted,
		}
	}

	return &order.Order{
		ID:             model.ID,
		OrderNo:        model.OrderNo,
		UserID:         model.UserID,
		Subtotal:       model.Subtotal,
		TaxAmount:      model.TaxAmount,
		ShippingAmount: model.ShippingAmount,
		DiscountAmount: model.DiscountAmount,
		Total:          model.Total,
		DiscountID:     model.DiscountID,
		DiscountCode:   model.DiscountCode,
		Status:         order.OrderStatus(model.Status),
		CancelReason:   model.CancelReason,
		Items:          items,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
