package inventory

// StockStatus 库存状态(由数量和阈值推导,不单独维护)
type StockStatus string

const (
	StatusInStock    StockStatus = "in_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusOutOfStock StockStatus = "out_of_stock"
)

// DetermineStatus 纯函数:
//
//	quantity <= 0          → out_of_stock
//	quantity <= threshold  → low_stock
//	其他                   → in_stock
func DetermineStatus(quantity, threshold int) StockStatus {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity <= threshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}
