package inventory

import (
	"context"
	"errors"

	"github.com/xiebiao/medbulk/internal/domain/product"
)

// Repository 库存明细仓储
type Repository interface {
	// FindByProduct 查询明细行,不存在返回ErrInventoryNotFound
	FindByProduct(ctx context.Context, productID uint, batchNumber string) (*Inventory, error)

	// LockByProduct 悲观锁查询明细行
	LockByProduct(ctx context.Context, productID uint, batchNumber string) (*Inventory, error)

	Create(ctx context.Context, inv *Inventory) error
	Save(ctx context.Context, inv *Inventory) error
}

// Ledger 库存流水账本
// 只有Append一个写入口,没有更新/删除
type Ledger interface {
	Append(ctx context.Context, m *Movement) error

	// ListByProduct 按创建时间倒序分页
	ListByProduct(ctx context.Context, productID uint, filter MovementFilter, page, pageSize int) ([]*Movement, int64, error)
}

// ErrAlertThrottled 同一商品在抑制窗口内已提醒过,本次跳过(不算失败)
var ErrAlertThrottled = errors.New("low stock alert throttled")

// LowStockNotifier 低库存提醒(提交后尽力而为,失败只记日志)
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, p *product.Product) error
}
