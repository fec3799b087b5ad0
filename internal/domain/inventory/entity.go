package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory 库存明细行
// 设计说明:
// 1. (ProductID, BatchNumber)唯一;BatchNumber为空串的行是商品级明细行,预占数量记在这一行
// 2. Quantity与商品的StockQuantity在每次变更后同步
// 3. 可用量 = Quantity - ReservedQuantity
type Inventory struct {
	ID               uint
	ProductID        uint
	BatchNumber      string
	Quantity         int
	ReservedQuantity int
	ReorderLevel     int
	Status           StockStatus
	ExpiryDate       *time.Time
	CostPrice        decimal.Decimal
	LastRestockedAt  *time.Time
	LastSoldAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewProductLevel 创建商品级明细行
func NewProductLevel(productID uint, quantity, reorderLevel int) *Inventory {
	now := time.Now()
	return &Inventory{
		ProductID:    productID,
		Quantity:     quantity,
		ReorderLevel: reorderLevel,
		Status:       DetermineStatus(quantity, reorderLevel),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Available 可用量(不小于0)
func (i *Inventory) Available() int {
	if avail := i.Quantity - i.ReservedQuantity; avail > 0 {
		return avail
	}
	return 0
}

// Reserve 增加预占
func (i *Inventory) Reserve(quantity int) {
	i.ReservedQuantity += quantity
	i.UpdatedAt = time.Now()
}

// Release 释放预占,最多释放到0
// 返回实际释放数量
func (i *Inventory) Release(quantity int) int {
	if quantity > i.ReservedQuantity {
		quantity = i.ReservedQuantity
	}
	i.ReservedQuantity -= quantity
	i.UpdatedAt = time.Now()
	return quantity
}

// SyncQuantity 同步数量并重算状态
func (i *Inventory) SyncQuantity(quantity int) {
	i.Quantity = quantity
	i.Status = DetermineStatus(quantity, i.ReorderLevel)
	i.UpdatedAt = time.Now()
}

// MarkSold 记录最近出库时间
func (i *Inventory) MarkSold(at time.Time) {
	i.LastSoldAt = &at
}

// MarkRestocked 记录最近入库时间
func (i *Inventory) MarkRestocked(at time.Time) {
	i.LastRestockedAt = &at
}
