package purchase

import "context"

// Repository 采购单仓储
type Repository interface {
	Create(ctx context.Context, po *PurchaseOrder) error

	// LockByID 悲观锁查询(含明细)
	LockByID(ctx context.Context, id uint) (*PurchaseOrder, error)

	// Save 保存状态与各行收货数量
	Save(ctx context.Context, po *PurchaseOrder) error
}
