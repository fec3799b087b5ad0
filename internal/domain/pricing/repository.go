package pricing

import (
	"context"
	"time"
)

// TierRepository 阶梯价仓储
type TierRepository interface {
	ListByProduct(ctx context.Context, productID uint) ([]BulkPriceTier, error)
}

// TaxRepository 税率仓储
type TaxRepository interface {
	FindByID(ctx context.Context, id uint) (*Tax, error)
}

// DiscountRepository 优惠仓储
type DiscountRepository interface {
	// FindByCode 按优惠码查询(大小写不敏感),不存在返回ErrDiscountNotFound
	FindByCode(ctx context.Context, code string) (*Discount, error)

	// ListAutomatic 启用中的自动优惠,按Priority降序
	ListAutomatic(ctx context.Context) ([]*Discount, error)

	// IncrementUsage 使用次数+1(下单事务内调用)
	// 计数与上限比较在同一次更新内完成,已达上限时不修改并返回ErrDiscountUsageExhausted
	IncrementUsage(ctx context.Context, id uint) error
}

// PromotionRepository 促销仓储
type PromotionRepository interface {
	FindByID(ctx context.Context, id uint) (*Promotion, error)

	// ListRunning at时刻正在进行的促销(启用、active、在时间窗内)
	ListRunning(ctx context.Context, at time.Time) ([]*Promotion, error)

	Save(ctx context.Context, p *Promotion) error
}

// UsageCounter 统计用户已使用某优惠的次数(按订单统计)
type UsageCounter interface {
	CountUserDiscountUsage(ctx context.Context, userID, discountID uint) (int, error)
}
