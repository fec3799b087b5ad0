package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BulkPriceTier 批发阶梯价
// Price与DiscountPercentage二选一: 固定单价优先,否则按折扣百分比计算
type BulkPriceTier struct {
	ID                 uint
	ProductID          uint
	MinQuantity        int
	MaxQuantity        *int // nil表示不封顶
	Price              *decimal.Decimal
	DiscountPercentage *decimal.Decimal
	IsActive           bool
}

// Matches 购买量落在[MinQuantity, MaxQuantity]内
func (t BulkPriceTier) Matches(quantity int) bool {
	if quantity < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || quantity <= *t.MaxQuantity
}

// PriceFor 根据基础价计算阶梯单价
func (t BulkPriceTier) PriceFor(base decimal.Decimal) decimal.Decimal {
	switch {
	case t.Price != nil:
		return RoundMoney(*t.Price)
	case t.DiscountPercentage != nil:
		return RoundMoney(base.Sub(Percent(base, *t.DiscountPercentage)))
	default:
		return base
	}
}

// SelectTier 选择阶梯: 按MinQuantity降序,取第一个启用且匹配的
// 阶梯区间重叠时,起订量更高的阶梯胜出
func SelectTier(tiers []BulkPriceTier, quantity int) *BulkPriceTier {
	sorted := make([]BulkPriceTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity > sorted[j].MinQuantity
	})

	for i := range sorted {
		if sorted[i].IsActive && sorted[i].Matches(quantity) {
			tier := sorted[i]
			return &tier
		}
	}
	return nil
}
