package pricing

import "github.com/shopspring/decimal"

// UnitPrice 单价解析结果
type UnitPrice struct {
	OriginalPrice decimal.Decimal `json:"original_price"` // 阶梯价之前的价格(批次价优先于商品价)
	UnitPrice     decimal.Decimal `json:"unit_price"`
	BulkDiscount  decimal.Decimal `json:"bulk_discount"` // OriginalPrice - UnitPrice
	TierID        *uint           `json:"tier_id,omitempty"`
	BatchID       *uint           `json:"batch_id,omitempty"`
	BatchNumber   string          `json:"batch_number,omitempty"`
}

// ItemPrice 购物车行定价结果
type ItemPrice struct {
	ProductID         uint            `json:"product_id"`
	Quantity          int             `json:"quantity"`
	BatchNumber       string          `json:"batch_number,omitempty"`
	OriginalPrice     decimal.Decimal `json:"original_price"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	BulkDiscount      decimal.Decimal `json:"bulk_discount"`
	TierID            *uint           `json:"tier_id,omitempty"`
	PromotionID       *uint           `json:"promotion_id,omitempty"`
	PromotionDiscount decimal.Decimal `json:"promotion_discount"`
	UnitPriceWithTax  decimal.Decimal `json:"unit_price_with_tax"`
	Subtotal          decimal.Decimal `json:"subtotal"` // 税前
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	Total             decimal.Decimal `json:"total"` // 税后
	Tax               TaxBreakdown    `json:"tax"`
}

// AppliedDiscount 已应用的优惠
type AppliedDiscount struct {
	DiscountID uint            `json:"discount_id"`
	Code       string          `json:"code"`
	Type       DiscountType    `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
}

// DiscountResult 应用优惠的结果: Valid=false时Reason说明原因
type DiscountResult struct {
	Valid    bool             `json:"valid"`
	Reason   string           `json:"reason,omitempty"`
	Discount *AppliedDiscount `json:"discount,omitempty"`
}

// CartTotals 购物车合计
// Total = Subtotal + TaxAmount + ShippingAmount - DiscountAmount
type CartTotals struct {
	Items          []*ItemPrice    `json:"items"`
	ItemCount      int             `json:"item_count"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	Discount       DiscountResult  `json:"discount"`
}

// Snapshot 由定价结果构造优惠计算快照
func Snapshot(items []*ItemPrice, shipping decimal.Decimal) CartSnapshot {
	snap := CartSnapshot{Subtotal: decimal.Zero, Shipping: shipping}
	for _, item := range items {
		snap.Subtotal = snap.Subtotal.Add(item.Subtotal)
		snap.ItemCount += item.Quantity
		snap.Lines = append(snap.Lines, CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return snap
}
