package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType 优惠类型
type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixedAmount  DiscountType = "fixed_amount"
	DiscountFreeShipping DiscountType = "free_shipping"
	DiscountBuyXGetY     DiscountType = "buy_x_get_y"
)

// CartLine 购物车行(已定价)
type CartLine struct {
	ProductID uint
	Quantity  int
	UnitPrice decimal.Decimal
}

// CartSnapshot 计算优惠所需的购物车快照
type CartSnapshot struct {
	Subtotal  decimal.Decimal // 税前小计
	ItemCount int             // 商品总件数
	Shipping  decimal.Decimal // 当前运费
	Lines     []CartLine
}

// DiscountRule 优惠规则(封闭的和类型,只有本包内的四种实现)
type DiscountRule interface {
	Type() DiscountType
	// Amount 计算优惠金额,不超过购物车可优惠的上限
	Amount(cart CartSnapshot) decimal.Decimal
	sealedDiscount()
}

// PercentageRule 按比例优惠,可设置封顶金额
type PercentageRule struct {
	Percent   decimal.Decimal
	MaxAmount *decimal.Decimal
}

func (PercentageRule) Type() DiscountType { return DiscountPercentage }
func (PercentageRule) sealedDiscount()    {}

func (r PercentageRule) Amount(cart CartSnapshot) decimal.Decimal {
	amount := Percent(cart.Subtotal, r.Percent)
	if r.MaxAmount != nil && amount.GreaterThan(*r.MaxAmount) {
		amount = *r.MaxAmount
	}
	return RoundMoney(decimal.Min(clampNonNegative(amount), cart.Subtotal))
}

// FixedAmountRule 立减固定金额,不超过小计
type FixedAmountRule struct {
	Value decimal.Decimal
}

func (FixedAmountRule) Type() DiscountType { return DiscountFixedAmount }
func (FixedAmountRule) sealedDiscount()    {}

func (r FixedAmountRule) Amount(cart CartSnapshot) decimal.Decimal {
	return RoundMoney(decimal.Min(clampNonNegative(r.Value), cart.Subtotal))
}

// FreeShippingRule 免运费: 优惠金额等于当前运费
type FreeShippingRule struct{}

func (FreeShippingRule) Type() DiscountType { return DiscountFreeShipping }
func (FreeShippingRule) sealedDiscount()    {}

func (FreeShippingRule) Amount(cart CartSnapshot) decimal.Decimal {
	return RoundMoney(clampNonNegative(cart.Shipping))
}

// BuyXGetYRule 买X送Y,赠品如何计价由Valuer决定
type BuyXGetYRule struct {
	Buy    int
	Get    int
	Valuer FreeItemValuer
}

func (BuyXGetYRule) Type() DiscountType { return DiscountBuyXGetY }
func (BuyXGetYRule) sealedDiscount()    {}

func (r BuyXGetYRule) Amount(cart CartSnapshot) decimal.Decimal {
	valuer := r.Valuer
	if valuer == nil {
		valuer = AverageUnitPriceValuer{}
	}
	amount := valuer.FreeItemsValue(cart, r.Buy, r.Get)
	return RoundMoney(decimal.Min(clampNonNegative(amount), cart.Subtotal))
}

// Discount 优惠码/自动优惠
type Discount struct {
	ID                    uint
	Code                  string
	Name                  string
	Rule                  DiscountRule
	IsAutomatic           bool
	IsActive              bool
	MinOrderAmount        decimal.Decimal
	MinQuantity           int
	UsageLimit            *int
	UsedCount             int
	UsageLimitPerUser     *int
	StartDate             *time.Time
	EndDate               *time.Time
	Priority              int
	Stackable             bool
	ApplicableProductIDs  []uint // 已存储,暂不参与校验
	ApplicableCategoryIDs []uint // 已存储,暂不参与校验
}

// NormalizeCode 优惠码大小写不敏感
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DiscountValidation 校验结果: 业务规则不满足时Valid=false并给出原因,不是错误
type DiscountValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// 校验失败原因
const (
	ReasonNotFound         = "优惠码不存在"
	ReasonInactive         = "优惠已停用"
	ReasonNotStarted       = "优惠尚未开始"
	ReasonExpired          = "优惠已过期"
	ReasonUsageExhausted   = "优惠已被领完"
	ReasonUserLimitReached = "已达到个人使用次数上限"
	ReasonBelowMinAmount   = "未达到最低订单金额"
	ReasonBelowMinQuantity = "未达到最低购买数量"
	ReasonEmptyCart        = "购物车为空"
	ReasonUnavailable      = "优惠暂时无法使用"
)

func invalid(reason string) DiscountValidation {
	return DiscountValidation{Valid: false, Reason: reason}
}

// Validate 按顺序校验: 启用 → 有效期 → 总次数 → 最低金额 → 最低件数 → 个人次数
// userUsage为该用户已使用次数
func (d *Discount) Validate(now time.Time, cart CartSnapshot, userUsage int) DiscountValidation {
	if !d.IsActive {
		return invalid(ReasonInactive)
	}
	if d.StartDate != nil && now.Before(*d.StartDate) {
		return invalid(ReasonNotStarted)
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		return invalid(ReasonExpired)
	}
	if d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit {
		return invalid(ReasonUsageExhausted)
	}
	if cart.Subtotal.LessThan(d.MinOrderAmount) {
		return invalid(ReasonBelowMinAmount)
	}
	if cart.ItemCount < d.MinQuantity {
		return invalid(ReasonBelowMinQuantity)
	}
	if d.UsageLimitPerUser != nil && userUsage >= *d.UsageLimitPerUser {
		return invalid(ReasonUserLimitReached)
	}
	return DiscountValidation{Valid: true}
}

// Amount 计算优惠金额
func (d *Discount) Amount(cart CartSnapshot) decimal.Decimal {
	if d.Rule == nil {
		return decimal.Zero
	}
	return d.Rule.Amount(cart)
}

// Type 优惠类型
func (d *Discount) Type() DiscountType {
	if d.Rule == nil {
		return ""
	}
	return d.Rule.Type()
}
