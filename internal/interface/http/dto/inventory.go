package dto

import (
	"strings"
	"time"

	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/product"
)

// AdjustStockRequest 盘点调整请求
// NewQuantity用指针区分"未传"和"调整为0"
type AdjustStockRequest struct {
	NewQuantity *int   `json:"new_quantity" binding:"required,min=0" example:"120"`
	Reason      string `json:"reason" binding:"required,max=500" example:"月末盘点"`
}

// ReserveStockRequest 预占/释放请求
type ReserveStockRequest struct {
	Quantity        int    `json:"quantity" binding:"required,min=1" example:"10"`
	ReferenceNumber string `json:"reference_number" binding:"max=100" example:"ORD20260501103000123456"`
}

// MovementQuery 库存流水查询条件
type MovementQuery struct {
	Types           string    `form:"types" example:"sale,return"` // 逗号分隔
	ReferenceType   string    `form:"reference_type" binding:"omitempty,oneof=order purchase_order adjustment manual" example:"order"`
	ReferenceNumber string    `form:"reference_number" binding:"max=100"`
	From            time.Time `form:"from" time_format:"2006-01-02" example:"2026-05-01"`
	To              time.Time `form:"to" time_format:"2006-01-02" example:"2026-05-31"`
	Page            int       `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize        int       `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// Filter 转换为领域查询条件
// to按天取,包含当天整天
func (q *MovementQuery) Filter() inventory.MovementFilter {
	f := inventory.MovementFilter{
		ReferenceType:   inventory.ReferenceType(q.ReferenceType),
		ReferenceNumber: q.ReferenceNumber,
	}
	for _, t := range strings.Split(q.Types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			f.Types = append(f.Types, inventory.MovementType(t))
		}
	}
	if !q.From.IsZero() {
		from := product.DayStart(q.From)
		f.From = &from
	}
	if !q.To.IsZero() {
		to := product.DayStart(q.To).Add(24*time.Hour - time.Nanosecond)
		f.To = &to
	}
	return f
}

// ExpiringQuery 临期批次查询
type ExpiringQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365" example:"30"`
}

// ProductStockItem 库存列表项(低库存/缺货)
type ProductStockItem struct {
	ID                uint   `json:"id" example:"12"`
	SKU               string `json:"sku" example:"AMX-500"`
	Name              string `json:"name" example:"阿莫西林胶囊"`
	StockQuantity     int    `json:"stock_quantity" example:"3"`
	LowStockThreshold int    `json:"low_stock_threshold" example:"10"`
	Status            string `json:"status" example:"low_stock"`
}

// NewProductStockItems 构造库存列表
func NewProductStockItems(products []*product.Product) []ProductStockItem {
	items := make([]ProductStockItem, 0, len(products))
	for _, p := range products {
		items = append(items, ProductStockItem{
			ID:                p.ID,
			SKU:               p.SKU,
			Name:              p.Name,
			StockQuantity:     p.StockQuantity,
			LowStockThreshold: p.LowStockThreshold,
			Status:            string(inventory.DetermineStatus(p.StockQuantity, p.LowStockThreshold)),
		})
	}
	return items
}

// MovementItem 库存流水
type MovementItem struct {
	ID              uint   `json:"id"`
	Type            string `json:"type" example:"sale"`
	QuantityBefore  int    `json:"quantity_before" example:"10"`
	QuantityChange  int    `json:"quantity_change" example:"-3"`
	QuantityAfter   int    `json:"quantity_after" example:"7"`
	ReferenceType   string `json:"reference_type,omitempty" example:"order"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	BatchNumber     string `json:"batch_number,omitempty"`
	UnitCost        string `json:"unit_cost" example:"12.50"`
	TotalCost       string `json:"total_cost" example:"37.50"`
	Reason          string `json:"reason,omitempty"`
	CreatedBy       string `json:"created_by" example:"system"`
	CreatedAt       string `json:"created_at" example:"2026-05-01 10:30:00"`
}

// NewMovementItems 构造流水列表
func NewMovementItems(movements []*inventory.Movement) []MovementItem {
	items := make([]MovementItem, 0, len(movements))
	for _, m := range movements {
		items = append(items, MovementItem{
			ID:              m.ID,
			Type:            string(m.Type),
			QuantityBefore:  m.QuantityBefore,
			QuantityChange:  m.QuantityChange,
			QuantityAfter:   m.QuantityAfter,
			ReferenceType:   string(m.ReferenceType),
			ReferenceNumber: m.ReferenceNumber,
			BatchNumber:     m.BatchNumber,
			UnitCost:        m.UnitCost.StringFixed(2),
			TotalCost:       m.TotalCost.StringFixed(2),
			Reason:          m.Reason,
			CreatedBy:       m.CreatedBy,
			CreatedAt:       m.CreatedAt.Format(dateTimeLayout),
		})
	}
	return items
}

// ExpiringBatchItem 临期批次
type ExpiringBatchItem struct {
	ProductID     uint   `json:"product_id" example:"12"`
	BatchNumber   string `json:"batch_number" example:"B20260101"`
	ExpiryDate    string `json:"expiry_date" example:"2026-06-01"`
	StockQuantity int    `json:"stock_quantity" example:"40"`
	DaysLeft      int    `json:"days_left" example:"17"`
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)
