package pricing

import "github.com/shopspring/decimal"

// TaxType 计税方式
type TaxType string

const (
	TaxExclusive TaxType = "exclusive" // 价外税: 在价格上加税
	TaxInclusive TaxType = "inclusive" // 价内税: 价格已含税,需反算
)

// Tax 税率配置
type Tax struct {
	ID         uint
	Name       string
	Percentage decimal.Decimal
	Type       TaxType
	IsActive   bool
}

// TaxBreakdown 计税结果
type TaxBreakdown struct {
	Type            TaxType         `json:"type"`
	Percentage      decimal.Decimal `json:"percentage"`
	AmountBeforeTax decimal.Decimal `json:"amount_before_tax"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	AmountAfterTax  decimal.Decimal `json:"amount_after_tax"`
}

// NoTax 不计税
func NoTax(amount decimal.Decimal) TaxBreakdown {
	return TaxBreakdown{
		Type:            TaxExclusive,
		Percentage:      decimal.Zero,
		AmountBeforeTax: amount,
		TaxAmount:       decimal.Zero,
		AmountAfterTax:  amount,
	}
}

// ComputeTax 计税
//
//	exclusive: tax = amount × pct/100,           税后 = amount + tax
//	inclusive: 税前 = amount / (1 + pct/100),    tax = amount - 税前, 税后 = amount
func ComputeTax(amount, pct decimal.Decimal, taxType TaxType) TaxBreakdown {
	if !pct.IsPositive() {
		return NoTax(amount)
	}

	if taxType == TaxInclusive {
		before := RoundMoney(amount.Div(one.Add(pct.Div(hundred))))
		return TaxBreakdown{
			Type:            TaxInclusive,
			Percentage:      pct,
			AmountBeforeTax: before,
			TaxAmount:       amount.Sub(before),
			AmountAfterTax:  amount,
		}
	}

	tax := RoundMoney(Percent(amount, pct))
	return TaxBreakdown{
		Type:            TaxExclusive,
		Percentage:      pct,
		AmountBeforeTax: amount,
		TaxAmount:       tax,
		AmountAfterTax:  amount.Add(tax),
	}
}
