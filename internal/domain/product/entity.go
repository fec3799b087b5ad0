package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 商品实体(聚合根)
// 设计说明:
// 1. StockQuantity是商品级总库存,所有库存变更都先锁定商品行再修改
// 2. 金额统一使用decimal(避免浮点误差),持久化为decimal(12,2)
// 3. BatchNumber/ExpiryDate记录最近一次入库的批次,明细见Batch
type Product struct {
	ID                uint
	SKU               string
	Name              string
	CategoryID        uint
	SellingPrice      decimal.Decimal
	CostPrice         decimal.Decimal
	StockQuantity     int
	LowStockThreshold int
	TrackInventory    bool // false表示不限库存
	AllowBackorder    bool // 允许缺货下单
	MinOrderQuantity  int  // 享受阶梯价的最小购买量
	BulkPriceEnabled  bool
	TaxEnabled        bool
	TaxPercentage     decimal.Decimal // 如10表示10%
	TaxID             *uint
	BatchNumber       string
	ExpiryDate        *time.Time
	IsDeleted         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLowStock 有库存但不高于阈值
func (p *Product) IsLowStock() bool {
	return p.StockQuantity > 0 && p.StockQuantity <= p.LowStockThreshold
}

// IsOutOfStock 库存耗尽
func (p *Product) IsOutOfStock() bool {
	return p.StockQuantity <= 0
}

// SetStock 设置商品级库存
// 调用方负责保证newStock>=0
func (p *Product) SetStock(newStock int) {
	p.StockQuantity = newStock
	p.UpdatedAt = time.Now()
}

// RecordLot 记录最近入库批次
func (p *Product) RecordLot(batchNumber string, expiry *time.Time) {
	if batchNumber != "" {
		p.BatchNumber = batchNumber
	}
	if expiry != nil {
		e := *expiry
		p.ExpiryDate = &e
	}
}
