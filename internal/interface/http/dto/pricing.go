package dto

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/medbulk/internal/domain/pricing"
)

// LineItem 购物车行
type LineItem struct {
	ProductID   uint   `json:"product_id" binding:"required" example:"12"`
	Quantity    int    `json:"quantity" binding:"required,min=1,max=100000" example:"50"`
	BatchNumber string `json:"batch_number" binding:"max=100" example:"B20260101"`
}

// QuoteRequest 询价请求
// 询价不校验优惠码是否存在,无效优惠码只体现在discount.applied=false
type QuoteRequest struct {
	UserID       uint       `json:"user_id" example:"1"`
	Items        []LineItem `json:"items" binding:"required,min=1,dive"`
	DiscountCode string     `json:"discount_code" binding:"max=50" example:"VIP10"`
}

// PromotionsQuery 查询商品当前生效的促销
type PromotionsQuery struct {
	ProductIDs string `form:"product_ids" binding:"required" example:"12,13"` // 逗号分隔
}

// IDs 解析商品ID,非法值返回false
func (q *PromotionsQuery) IDs() ([]uint, bool) {
	var ids []uint
	for _, s := range strings.Split(q.ProductIDs, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return nil, false
		}
		ids = append(ids, uint(id))
	}
	return ids, len(ids) > 0
}

// ChangePromotionStatusRequest 促销状态变更
type ChangePromotionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft scheduled active paused ended cancelled" example:"paused"`
}

// PromotionItem 促销
type PromotionItem struct {
	ID          uint   `json:"id" example:"7"`
	Name        string `json:"name" example:"夏季特价"`
	Kind        string `json:"kind" example:"percentage"`
	Value       string `json:"value" example:"15.00"`
	Scope       string `json:"scope" example:"products"`
	ProductIDs  []uint `json:"product_ids,omitempty"`
	CategoryIDs []uint `json:"category_ids,omitempty"`
	Status      string `json:"status" example:"active"`
	Priority    int    `json:"priority" example:"10"`
	StartDate   string `json:"start_date" example:"2026-06-01 00:00:00"`
	EndDate     string `json:"end_date,omitempty" example:"2026-06-30 23:59:59"` // 为空表示长期有效
}

// NewPromotionItem 构造促销响应
func NewPromotionItem(p *pricing.Promotion) PromotionItem {
	item := PromotionItem{
		ID:          p.ID,
		Name:        p.Name,
		Scope:       string(p.Scope),
		ProductIDs:  p.ProductIDs,
		CategoryIDs: p.CategoryIDs,
		Status:      string(p.Status),
		Priority:    p.Priority,
		StartDate:   p.StartDate.Format(dateTimeLayout),
	}
	if !p.EndDate.IsZero() {
		item.EndDate = p.EndDate.Format(dateTimeLayout)
	}

	var value decimal.Decimal
	switch rule := p.Rule.(type) {
	case pricing.PercentOff:
		value = rule.Percent
	case pricing.AmountOff:
		value = rule.Amount
	case pricing.SpecialPrice:
		value = rule.Price
	}
	if p.Rule != nil {
		item.Kind = string(p.Rule.Kind())
	}
	item.Value = value.StringFixed(2)
	return item
}

// NewPromotionItems 构造促销列表
func NewPromotionItems(promotions []*pricing.Promotion) []PromotionItem {
	items := make([]PromotionItem, 0, len(promotions))
	for _, p := range promotions {
		items = append(items, NewPromotionItem(p))
	}
	return items
}
