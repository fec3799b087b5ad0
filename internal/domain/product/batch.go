package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus 批次状态
type BatchStatus string

const (
	BatchStatusActive      BatchStatus = "active"
	BatchStatusExpired     BatchStatus = "expired"
	BatchStatusOutOfStock  BatchStatus = "out_of_stock"
	BatchStatusQuarantined BatchStatus = "quarantined" // 质检隔离,不可售
)

// Batch 商品批次(同一生产批号)
// 由采购收货或供应商直接入库创建;批次价格优先于商品价格
type Batch struct {
	ID              uint
	ProductID       uint
	BatchNumber     string
	ManufactureDate *time.Time
	ExpiryDate      time.Time
	SellingPrice    decimal.Decimal
	CostPrice       decimal.Decimal
	StockQuantity   int
	Status          BatchStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsExpired 过期日早于今天即视为过期(按天比较,当天到期仍可售)
func (b *Batch) IsExpired(now time.Time) bool {
	if b.ExpiryDate.IsZero() {
		return false
	}
	return DayStart(b.ExpiryDate).Before(DayStart(now))
}

// Usable 可用于定价和销售
func (b *Batch) Usable(now time.Time) bool {
	return b.Status == BatchStatusActive && !b.IsExpired(now)
}

// Receive 批次入库
func (b *Batch) Receive(quantity int) {
	b.StockQuantity += quantity
	if b.Status == BatchStatusOutOfStock {
		b.Status = BatchStatusActive
	}
	b.UpdatedAt = time.Now()
}

// Sell 批次出库,最多扣到0,返回实际扣减数量
func (b *Batch) Sell(quantity int) int {
	taken := min(max(quantity, 0), b.StockQuantity)
	b.StockQuantity -= taken
	if b.StockQuantity == 0 && b.Status == BatchStatusActive {
		b.Status = BatchStatusOutOfStock
	}
	b.UpdatedAt = time.Now()
	return taken
}

// DayStart 当天零点(保留时区)
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
