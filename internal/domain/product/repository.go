package product

import (
	"context"
	"time"
)

// Repository 商品仓储接口
// 所有方法都通过ctx参与调用方的事务
type Repository interface {
	Create(ctx context.Context, p *Product) error

	// FindByID 查询商品(不加锁)
	FindByID(ctx context.Context, id uint) (*Product, error)

	// LockByID 悲观锁查询: SELECT ... FOR UPDATE
	// 必须在事务中调用,锁持有到事务结束
	LockByID(ctx context.Context, id uint) (*Product, error)

	// Save 保存商品可变字段(库存、最近批次)
	Save(ctx context.Context, p *Product) error

	// ListLowStock 跟踪库存且 0 < 库存 <= 阈值
	ListLowStock(ctx context.Context) ([]*Product, error)

	// ListOutOfStock 跟踪库存且库存 <= 0
	ListOutOfStock(ctx context.Context) ([]*Product, error)
}

// BatchRepository 批次仓储接口
type BatchRepository interface {
	// FindByNumber 按批号查询,不存在返回ErrBatchNotFound
	FindByNumber(ctx context.Context, productID uint, batchNumber string) (*Batch, error)

	// LatestActive 最近创建的、在asOf当天仍未过期的active批次
	LatestActive(ctx context.Context, productID uint, asOf time.Time) (*Batch, error)

	// Save 新建或更新批次(ID为0时新建)
	Save(ctx context.Context, b *Batch) error

	// ListExpiring active批次中过期日落在[from, to]的,按过期日升序
	ListExpiring(ctx context.Context, from, to time.Time) ([]*Batch, error)
}
