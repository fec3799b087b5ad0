package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FreeItemValuer 买X送Y时赠品的计价策略
//
// 不同商品单价差异很大时,按均价计算会偏离真实的赠品价值;
// 需要"送最便宜的"等口径时替换实现即可。
type FreeItemValuer interface {
	Name() string
	FreeItemsValue(cart CartSnapshot, buy, get int) decimal.Decimal
}

// AverageUnitPriceValuer 按整单均价计价:
//
//	赠品件数 = floor(总件数 / (X+Y)) × Y
//	优惠金额 = 赠品件数 × (小计 / 总件数)
type AverageUnitPriceValuer struct{}

func (AverageUnitPriceValuer) Name() string { return "average_unit_price" }

func (AverageUnitPriceValuer) FreeItemsValue(cart CartSnapshot, buy, get int) decimal.Decimal {
	if buy <= 0 || get <= 0 || cart.ItemCount <= 0 {
		return decimal.Zero
	}
	sets := cart.ItemCount / (buy + get)
	freeItems := sets * get
	if freeItems == 0 {
		return decimal.Zero
	}
	avg := cart.Subtotal.Div(decimal.NewFromInt(int64(cart.ItemCount)))
	return RoundMoney(avg.Mul(decimal.NewFromInt(int64(freeItems))))
}

// CheapestItemsValuer 按最便宜的商品计价(从单价最低的行开始计入赠品)
type CheapestItemsValuer struct{}

func (CheapestItemsValuer) Name() string { return "cheapest_items" }

func (CheapestItemsValuer) FreeItemsValue(cart CartSnapshot, buy, get int) decimal.Decimal {
	if buy <= 0 || get <= 0 || cart.ItemCount <= 0 {
		return decimal.Zero
	}
	remaining := (cart.ItemCount / (buy + get)) * get
	if remaining == 0 {
		return decimal.Zero
	}

	lines := make([]CartLine, len(cart.Lines))
	copy(lines, cart.Lines)
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].UnitPrice.LessThan(lines[j].UnitPrice)
	})

	total := decimal.Zero
	for _, line := range lines {
		if remaining == 0 {
			break
		}
		n := line.Quantity
		if n > remaining {
			n = remaining
		}
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(n))))
		remaining -= n
	}
	return RoundMoney(total)
}

// ValuerByName 按名称选择策略,未知名称回退到均价
func ValuerByName(name string) FreeItemValuer {
	if name == (CheapestItemsValuer{}).Name() {
		return CheapestItemsValuer{}
	}
	return AverageUnitPriceValuer{}
}
