package pricing

import "github.com/shopspring/decimal"

// ShippingRange 按小计区间收取运费, Max为0表示不封顶
type ShippingRange struct {
	Min    decimal.Decimal
	Max    decimal.Decimal
	Charge decimal.Decimal
}

func (r ShippingRange) contains(subtotal decimal.Decimal) bool {
	if subtotal.LessThan(r.Min) {
		return false
	}
	return r.Max.IsZero() || subtotal.LessThanOrEqual(r.Max)
}

// Settings 定价配置快照(每次调用传入,支持热更新而不影响进行中的计算)
type Settings struct {
	ShippingRanges        []ShippingRange
	FreeShippingThreshold decimal.Decimal
	FlatShippingCharge    decimal.Decimal
	// BuyXGetYValuer 买X送Y赠品计价策略名称
	BuyXGetYValuer string
}

// ShippingFor 计算运费:
// 命中第一个区间则取区间运费;否则小计达到免邮门槛免运费,未达到收统一运费
func (s Settings) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	for _, r := range s.ShippingRanges {
		if r.contains(subtotal) {
			return RoundMoney(r.Charge)
		}
	}
	if s.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(s.FreeShippingThreshold) {
		return decimal.Zero
	}
	return RoundMoney(s.FlatShippingCharge)
}

// SettingsSource 提供当前配置快照
type SettingsSource interface {
	Current() Settings
}

// StaticSettings 固定配置(测试、无需热更新的场景)
type StaticSettings Settings

func (s StaticSettings) Current() Settings { return Settings(s) }
