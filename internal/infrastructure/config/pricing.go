package config

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/medbulk/internal/domain/pricing"
)

// PricingConfig 定价配置(金额用字符串书写,避免YAML浮点误差)
type PricingConfig struct {
	ShippingRanges        []ShippingRangeConfig `mapstructure:"shipping_ranges"`
	FreeShippingThreshold string                `mapstructure:"free_shipping_threshold"`
	FlatShippingCharge    string                `mapstructure:"flat_shipping_charge"`
	BuyXGetYValuer        string                `mapstructure:"buy_x_get_y_valuer"` // average_unit_price | cheapest_items
}

type ShippingRangeConfig struct {
	Min    string `mapstructure:"min"`
	Max    string `mapstructure:"max"` // 留空表示不封顶
	Charge string `mapstructure:"charge"`
}

// Settings 解析为定价领域的配置快照
func (p PricingConfig) Settings() (pricing.Settings, error) {
	var (
		s   pricing.Settings
		err error
	)
	if s.FreeShippingThreshold, err = parseMoney("pricing.free_shipping_threshold", p.FreeShippingThreshold); err != nil {
		return pricing.Settings{}, err
	}
	if s.FlatShippingCharge, err = parseMoney("pricing.flat_shipping_charge", p.FlatShippingCharge); err != nil {
		return pricing.Settings{}, err
	}

	for i, r := range p.ShippingRanges {
		var sr pricing.ShippingRange
		field := fmt.Sprintf("pricing.shipping_ranges[%d]", i)
		if sr.Min, err = parseMoney(field+".min", r.Min); err != nil {
			return pricing.Settings{}, err
		}
		if sr.Max, err = parseMoney(field+".max", r.Max); err != nil {
			return pricing.Settings{}, err
		}
		if sr.Charge, err = parseMoney(field+".charge", r.Charge); err != nil {
			return pricing.Settings{}, err
		}
		if !sr.Max.IsZero() && sr.Max.LessThan(sr.Min) {
			return pricing.Settings{}, fmt.Errorf("%s: max不能小于min", field)
		}
		s.ShippingRanges = append(s.ShippingRanges, sr)
	}

	s.BuyXGetYValuer = pricing.ValuerByName(p.BuyXGetYValuer).Name()
	return s, nil
}

func parseMoney(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s金额格式错误: %w", field, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s不能为负数", field)
	}
	return d, nil
}
