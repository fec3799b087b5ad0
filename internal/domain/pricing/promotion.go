package pricing

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// PromotionKind 促销类型
type PromotionKind string

const (
	PromotionPercentOff   PromotionKind = "percentage"
	PromotionAmountOff    PromotionKind = "fixed_amount"
	PromotionSpecialPrice PromotionKind = "special_price"
)

// PromotionRule 促销计价规则(封闭的和类型)
type PromotionRule interface {
	Kind() PromotionKind
	// Apply 返回促销价,不高于原价,不低于0
	Apply(price decimal.Decimal) decimal.Decimal
	sealedPromotion()
}

// PercentOff 打折
type PercentOff struct{ Percent decimal.Decimal }

func (PercentOff) Kind() PromotionKind { return PromotionPercentOff }
func (PercentOff) sealedPromotion()    {}

func (r PercentOff) Apply(price decimal.Decimal) decimal.Decimal {
	return RoundMoney(clampNonNegative(price.Sub(Percent(price, r.Percent))))
}

// AmountOff 单价立减
type AmountOff struct{ Amount decimal.Decimal }

func (AmountOff) Kind() PromotionKind { return PromotionAmountOff }
func (AmountOff) sealedPromotion()    {}

func (r AmountOff) Apply(price decimal.Decimal) decimal.Decimal {
	return RoundMoney(clampNonNegative(price.Sub(r.Amount)))
}

// SpecialPrice 特价(高于原价时不生效)
type SpecialPrice struct{ Price decimal.Decimal }

func (SpecialPrice) Kind() PromotionKind { return PromotionSpecialPrice }
func (SpecialPrice) sealedPromotion()    {}

func (r SpecialPrice) Apply(price decimal.Decimal) decimal.Decimal {
	return RoundMoney(clampNonNegative(decimal.Min(price, r.Price)))
}

// PromotionScope 促销适用范围
type PromotionScope string

const (
	ScopeAll        PromotionScope = "all"
	ScopeCategories PromotionScope = "categories"
	ScopeProducts   PromotionScope = "products"
)

// PromotionStatus 促销状态
type PromotionStatus string

const (
	PromotionDraft     PromotionStatus = "draft"
	PromotionScheduled PromotionStatus = "scheduled"
	PromotionActive    PromotionStatus = "active"
	PromotionPaused    PromotionStatus = "paused"
	PromotionEnded     PromotionStatus = "ended"
	PromotionCancelled PromotionStatus = "cancelled"
)

// 合法的状态转换
var promotionTransitions = map[PromotionStatus][]PromotionStatus{
	PromotionDraft:     {PromotionScheduled, PromotionActive, PromotionCancelled},
	PromotionScheduled: {PromotionActive, PromotionCancelled},
	PromotionActive:    {PromotionPaused, PromotionEnded, PromotionCancelled},
	PromotionPaused:    {PromotionActive, PromotionEnded, PromotionCancelled},
	PromotionEnded:     {PromotionCancelled},
	PromotionCancelled: {}, // 终态
}

// Promotion 限时促销
type Promotion struct {
	ID          uint
	Name        string
	Rule        PromotionRule
	Scope       PromotionScope
	ProductIDs  []uint
	CategoryIDs []uint
	StartDate   time.Time
	EndDate     time.Time
	IsActive    bool
	Status      PromotionStatus
	Priority    int
	UpdatedAt   time.Time
}

// CanTransitionTo 状态机校验
func (p *Promotion) CanTransitionTo(target PromotionStatus) bool {
	for _, allowed := range promotionTransitions[p.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
func (p *Promotion) TransitionTo(target PromotionStatus) error {
	if !p.CanTransitionTo(target) {
		return ErrInvalidPromotionTransition
	}
	p.Status = target
	p.UpdatedAt = time.Now()
	return nil
}

// IsRunningAt 启用、状态为active且now落在[StartDate, EndDate]
func (p *Promotion) IsRunningAt(now time.Time) bool {
	if !p.IsActive || p.Status != PromotionActive {
		return false
	}
	if now.Before(p.StartDate) {
		return false
	}
	return p.EndDate.IsZero() || !now.After(p.EndDate)
}

// AppliesTo 是否覆盖该商品
func (p *Promotion) AppliesTo(productID, categoryID uint) bool {
	switch p.Scope {
	case ScopeAll:
		return true
	case ScopeProducts:
		return slices.Contains(p.ProductIDs, productID)
	case ScopeCategories:
		return slices.Contains(p.CategoryIDs, categoryID)
	default:
		return false
	}
}

// PromotionPrice 促销计价结果
type PromotionPrice struct {
	PromotionID        uint            `json:"promotion_id"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	PromotionalPrice   decimal.Decimal `json:"promotional_price"`
	Discount           decimal.Decimal `json:"discount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// PriceFor 计算促销价
func (p *Promotion) PriceFor(price decimal.Decimal) PromotionPrice {
	promotional := price
	if p.Rule != nil {
		promotional = p.Rule.Apply(price)
	}
	discount := price.Sub(promotional)
	pct := decimal.Zero
	if price.IsPositive() {
		pct = RoundMoney(discount.Div(price).Mul(hundred))
	}
	return PromotionPrice{
		PromotionID:        p.ID,
		OriginalPrice:      price,
		PromotionalPrice:   promotional,
		Discount:           discount,
		DiscountPercentage: pct,
	}
}

// BestPromotion 在适用的促销中选优先级最高的,同优先级取优惠最大的
func BestPromotion(promotions []*Promotion, productID, categoryID uint, price decimal.Decimal) (*Promotion, PromotionPrice, bool) {
	var (
		best      *Promotion
		bestPrice PromotionPrice
	)
	for _, promo := range promotions {
		if !promo.AppliesTo(productID, categoryID) {
			continue
		}
		candidate := promo.PriceFor(price)
		if !candidate.Discount.IsPositive() {
			continue
		}
		if best == nil ||
			promo.Priority > best.Priority ||
			(promo.Priority == best.Priority && candidate.Discount.GreaterThan(bestPrice.Discount)) {
			best, bestPrice = promo, candidate
		}
	}
	return best, bestPrice, best != nil
}
