package order

import (
	"context"
)

// Repository 订单仓储接口
// 通过ctx参与调用方事务
type Repository interface {
	// Create 创建订单(包含订单明细)
	Create(ctx context.Context, order *Order) error

	// FindByOrderNo 根据订单号查找订单(包含明细)
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// LockByOrderNo 悲观锁查询订单,用于状态变更
	LockByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// Update 更新订单状态和明细的实际扣减数量
	Update(ctx context.Context, order *Order) error

	// ListByUserID 查询用户的订单列表
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Order, int64, error)

	// CountUserDiscountUsage 用户使用某优惠的未取消订单数
	CountUserDiscountUsage(ctx context.Context, userID, discountID uint) (int, error)
}
