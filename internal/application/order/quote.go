package order

import (
	"context"

	pricesvc "github.com/xiebiao/medbulk/internal/application/pricing"
	"github.com/xiebiao/medbulk/internal/domain/pricing"
	"github.com/xiebiao/medbulk/internal/domain/product"
)

// QuoteUseCase 购物车试算: 只定价不写库,不预占库存
type QuoteUseCase struct {
	products product.Repository
	pricing  *pricesvc.Engine
}

// NewQuoteUseCase 创建试算用例
func NewQuoteUseCase(products product.Repository, pricingEngine *pricesvc.Engine) *QuoteUseCase {
	return &QuoteUseCase{products: products, pricing: pricingEngine}
}

// QuoteRequest 试算请求
type QuoteRequest struct {
	UserID       uint
	Items        []LineRequest
	DiscountCode string
}

// Execute 试算
// 优惠码无效时不报错,原因放在Totals.Discount.Reason里供前端展示
func (uc *QuoteUseCase) Execute(ctx context.Context, req QuoteRequest) (*pricing.CartTotals, error) {
	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}
	items, err := priceLines(ctx, uc.products, uc.pricing, lines)
	if err != nil {
		return nil, err
	}
	return uc.pricing.ComputeCartTotals(ctx, items, req.DiscountCode, req.UserID, uc.pricing.Settings())
}
