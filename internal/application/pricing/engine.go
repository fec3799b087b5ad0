package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/medbulk/internal/domain/pricing"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/pkg/logger"
	"github.com/xiebiao/medbulk/pkg/metrics"
	"github.com/xiebiao/medbulk/pkg/tracing"
)

const tracerName = "medbulk/pricing"

// Repositories 定价引擎依赖的仓储
type Repositories struct {
	Tiers      pricing.TierRepository
	Taxes      pricing.TaxRepository
	Batches    product.BatchRepository
	Discounts  pricing.DiscountRepository
	Promotions pricing.PromotionRepository
	Usage      pricing.UsageCounter
}

// Engine 定价引擎
// 设计说明:
// 1. 单价: 批次价 → 阶梯价 → 促销价,依次在上一步结果上计算
// 2. 促销先作用于单价,优惠码再作用于购物车小计(两者叠加)
// 3. 优惠校验失败是业务结果(Valid=false),不返回错误
type Engine struct {
	repos    Repositories
	settings pricing.SettingsSource
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine 创建定价引擎
// now为nil时使用time.Now
func NewEngine(repos Repositories, settings pricing.SettingsSource, logger *zap.Logger, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings == nil {
		settings = pricing.StaticSettings{}
	}
	return &Engine{repos: repos, settings: settings, logger: logger, now: now}
}

// Settings 当前定价配置快照
func (e *Engine) Settings() pricing.Settings {
	return e.settings.Current()
}

// ResolveUnitPrice 解析单价
//
//  1. 以商品售价为起点;指定批号时使用该批次价格(批次必须可用)
//  2. 未指定批号且商品未定价时,回退到最近创建的可用批次
//  3. 启用阶梯价且数量达到起订量时,在上一步价格上应用阶梯
func (e *Engine) ResolveUnitPrice(ctx context.Context, p *product.Product, quantity int, batchNumber string) (*pricing.UnitPrice, error) {
	if quantity <= 0 {
		return nil, pricing.ErrInvalidQuantity
	}

	now := e.now()
	result := &pricing.UnitPrice{}
	price := p.SellingPrice

	switch {
	case batchNumber != "":
		b, err := e.repos.Batches.FindByNumber(ctx, p.ID, batchNumber)
		if err != nil {
			return nil, err
		}
		if !b.Usable(now) {
			return nil, product.ErrBatchNotFound.WithDetail("批次%s不可用(状态:%s)", batchNumber, b.Status)
		}
		price = b.SellingPrice
		result.BatchID, result.BatchNumber = &b.ID, b.BatchNumber
	case !price.IsPositive():
		b, err := e.repos.Batches.LatestActive(ctx, p.ID, now)
		if err != nil && !errors.Is(err, product.ErrBatchNotFound) {
			return nil, err
		}
		if b != nil {
			price = b.SellingPrice
			result.BatchID, result.BatchNumber = &b.ID, b.BatchNumber
		}
	}

	result.OriginalPrice = pricing.RoundMoney(price)
	result.UnitPrice = result.OriginalPrice

	if p.BulkPriceEnabled && quantity >= p.MinOrderQuantity {
		tiers, err := e.repos.Tiers.ListByProduct(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if tier := pricing.SelectTier(tiers, quantity); tier != nil {
			result.UnitPrice = tier.PriceFor(price)
			result.TierID = &tier.ID
		}
	}

	result.BulkDiscount = result.OriginalPrice.Sub(result.UnitPrice)
	return result, nil
}

// ResolveTax 计税
// 未启用计税时不计税;关联的税率记录为价内税时反算,否则按价外税
func (e *Engine) ResolveTax(ctx context.Context, p *product.Product, amount decimal.Decimal) (*pricing.TaxBreakdown, error) {
	if !p.TaxEnabled {
		b := pricing.NoTax(amount)
		return &b, nil
	}

	pct := p.TaxPercentage
	taxType := pricing.TaxExclusive
	if p.TaxID != nil {
		tax, err := e.repos.Taxes.FindByID(ctx, *p.TaxID)
		switch {
		case errors.Is(err, pricing.ErrTaxNotFound):
			// 税率记录被删除时按价外税处理
		case err != nil:
			return nil, err
		case tax.IsActive:
			taxType = tax.Type
			if pct.IsZero() {
				pct = tax.Percentage
			}
		}
	}

	b := pricing.ComputeTax(amount, pct, taxType)
	return &b, nil
}

// PriceCartItem 购物车行定价: 单价 → 促销 → 小计 → 计税
func (e *Engine) PriceCartItem(ctx context.Context, p *product.Product, quantity int, batchNumber string) (*pricing.ItemPrice, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "pricing.price_cart_item")
	span.SetAttributes(
		attribute.Int64("product_id", int64(p.ID)),
		attribute.Int("quantity", quantity),
	)

	item, err := e.priceCartItem(ctx, p, quantity, batchNumber)
	tracing.EndSpan(span, err)
	return item, err
}

func (e *Engine) priceCartItem(ctx context.Context, p *product.Product, quantity int, batchNumber string) (*pricing.ItemPrice, error) {
	unit, err := e.ResolveUnitPrice(ctx, p, quantity, batchNumber)
	if err != nil {
		return nil, err
	}

	item := &pricing.ItemPrice{
		ProductID:         p.ID,
		Quantity:          quantity,
		BatchNumber:       unit.BatchNumber,
		OriginalPrice:     unit.OriginalPrice,
		UnitPrice:         unit.UnitPrice,
		BulkDiscount:      unit.BulkDiscount,
		TierID:            unit.TierID,
		PromotionDiscount: decimal.Zero,
	}

	promos, err := e.repos.Promotions.ListRunning(ctx, e.now())
	if err != nil {
		return nil, err
	}
	if promo, pp, ok := pricing.BestPromotion(promos, p.ID, p.CategoryID, unit.UnitPrice); ok {
		item.UnitPrice = pp.PromotionalPrice
		item.PromotionID = &promo.ID
		item.PromotionDiscount = pp.Discount
	}

	subtotal := pricing.RoundMoney(item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	tax, err := e.ResolveTax(ctx, p, subtotal)
	if err != nil {
		return nil, err
	}
	unitTax, err := e.ResolveTax(ctx, p, item.UnitPrice)
	if err != nil {
		return nil, err
	}

	item.Tax = *tax
	item.Subtotal = tax.AmountBeforeTax
	item.TaxAmount = tax.TaxAmount
	item.Total = tax.AmountAfterTax
	item.UnitPriceWithTax = unitTax.AmountAfterTax
	return item, nil
}

// ValidateDiscount 校验优惠是否可用于该购物车
// 个人次数按该用户引用此优惠的未取消订单统计;userID为0(匿名)时不校验个人次数
func (e *Engine) ValidateDiscount(ctx context.Context, d *pricing.Discount, cart pricing.CartSnapshot, userID uint) pricing.DiscountValidation {
	now := e.now()
	result := d.Validate(now, cart, 0)
	if !result.Valid || d.UsageLimitPerUser == nil || userID == 0 {
		return result
	}

	used, err := e.repos.Usage.CountUserDiscountUsage(ctx, userID, d.ID)
	if err != nil {
		logger.WithTrace(ctx, e.logger).Warn("统计优惠使用次数失败",
			zap.Uint("discount_id", d.ID),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return pricing.DiscountValidation{Valid: false, Reason: pricing.ReasonUnavailable}
	}
	return d.Validate(now, cart, used)
}

// ComputeDiscountAmount 计算优惠金额
func (e *Engine) ComputeDiscountAmount(d *pricing.Discount, cart pricing.CartSnapshot) decimal.Decimal {
	return discountAmount(d, cart, e.settings.Current().BuyXGetYValuer)
}

// discountAmount 买X送Y规则未指定计价策略时,使用配置中的策略
func discountAmount(d *pricing.Discount, cart pricing.CartSnapshot, valuer string) decimal.Decimal {
	if rule, ok := d.Rule.(pricing.BuyXGetYRule); ok && rule.Valuer == nil {
		rule.Valuer = pricing.ValuerByName(valuer)
		return rule.Amount(cart)
	}
	return d.Amount(cart)
}

// ApplyDiscount 应用优惠
// code为空时使用优先级最高的自动优惠;任何失败都体现在Reason中,不返回错误
func (e *Engine) ApplyDiscount(ctx context.Context, cart pricing.CartSnapshot, code string, userID uint) pricing.DiscountResult {
	return e.applyDiscount(ctx, cart, code, userID, e.settings.Current().BuyXGetYValuer)
}

func (e *Engine) applyDiscount(ctx context.Context, cart pricing.CartSnapshot, code string, userID uint, valuer string) pricing.DiscountResult {
	d, reason := e.findDiscount(ctx, code)
	if d == nil {
		// 没有优惠码也没有自动优惠,不算一次校验
		if reason != "" {
			metrics.RecordDiscountEvaluation(false)
		}
		return pricing.DiscountResult{Valid: false, Reason: reason}
	}

	if cart.ItemCount <= 0 {
		metrics.RecordDiscountEvaluation(false)
		return pricing.DiscountResult{Valid: false, Reason: pricing.ReasonEmptyCart}
	}

	v := e.ValidateDiscount(ctx, d, cart, userID)
	metrics.RecordDiscountEvaluation(v.Valid)
	if !v.Valid {
		return pricing.DiscountResult{Valid: false, Reason: v.Reason}
	}

	return pricing.DiscountResult{
		Valid: true,
		Discount: &pricing.AppliedDiscount{
			DiscountID: d.ID,
			Code:       d.Code,
			Type:       d.Type(),
			Amount:     discountAmount(d, cart, valuer),
		},
	}
}

func (e *Engine) findDiscount(ctx context.Context, code string) (*pricing.Discount, string) {
	log := logger.WithTrace(ctx, e.logger)

	if pricing.NormalizeCode(code) != "" {
		d, err := e.repos.Discounts.FindByCode(ctx, code)
		switch {
		case errors.Is(err, pricing.ErrDiscountNotFound):
			return nil, pricing.ReasonNotFound
		case err != nil:
			log.Warn("查询优惠码失败", zap.String("code", code), zap.Error(err))
			return nil, pricing.ReasonUnavailable
		}
		return d, ""
	}

	automatic, err := e.repos.Discounts.ListAutomatic(ctx)
	if err != nil {
		log.Warn("查询自动优惠失败", zap.Error(err))
		return nil, pricing.ReasonUnavailable
	}
	if len(automatic) == 0 {
		return nil, ""
	}
	return automatic[0], ""
}

// ActivePromotionsFor 正在进行的促销
// productIDs非空时只返回适用范围为全部、或商品列表与之有交集的促销
func (e *Engine) ActivePromotionsFor(ctx context.Context, productIDs []uint) ([]*pricing.Promotion, error) {
	running, err := e.repos.Promotions.ListRunning(ctx, e.now())
	if err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		return running, nil
	}

	wanted := make(map[uint]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}

	result := make([]*pricing.Promotion, 0, len(running))
	for _, promo := range running {
		if promo.Scope == pricing.ScopeAll {
			result = append(result, promo)
			continue
		}
		for _, id := range promo.ProductIDs {
			if _, ok := wanted[id]; ok {
				result = append(result, promo)
				break
			}
		}
	}
	return result, nil
}

// ApplyPromotionToProduct 按商品售价计算促销价
func (e *Engine) ApplyPromotionToProduct(p *product.Product, promo *pricing.Promotion) pricing.PromotionPrice {
	return promo.PriceFor(p.SellingPrice)
}

// ChangePromotionStatus 促销状态变更(按状态机校验)
func (e *Engine) ChangePromotionStatus(ctx context.Context, id uint, target pricing.PromotionStatus) (*pricing.Promotion, error) {
	promo, err := e.repos.Promotions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := promo.TransitionTo(target); err != nil {
		return nil, err
	}
	if err := e.repos.Promotions.Save(ctx, promo); err != nil {
		return nil, err
	}
	return promo, nil
}

// ComputeCartTotals 购物车合计
//
//	运费按settings的区间/免邮门槛计算,优惠码(或自动优惠)只应用一个
//	Total = Subtotal + TaxAmount + ShippingAmount - DiscountAmount,最低为0
func (e *Engine) ComputeCartTotals(ctx context.Context, items []*pricing.ItemPrice, code string, userID uint, settings pricing.Settings) (*pricing.CartTotals, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "pricing.compute_cart_totals")
	span.SetAttributes(attribute.Int("lines", len(items)))

	totals := &pricing.CartTotals{
		Items:          items,
		Subtotal:       decimal.Zero,
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
	}
	for _, item := range items {
		if item == nil || item.Quantity <= 0 {
			tracing.EndSpan(span, pricing.ErrInvalidQuantity)
			return nil, pricing.ErrInvalidQuantity
		}
		totals.Subtotal = totals.Subtotal.Add(item.Subtotal)
		totals.TaxAmount = totals.TaxAmount.Add(item.TaxAmount)
		totals.ItemCount += item.Quantity
	}
	totals.Subtotal = pricing.RoundMoney(totals.Subtotal)
	totals.TaxAmount = pricing.RoundMoney(totals.TaxAmount)
	totals.ShippingAmount = settings.ShippingFor(totals.Subtotal)

	cart := pricing.Snapshot(items, totals.ShippingAmount)
	totals.Discount = e.applyDiscount(ctx, cart, code, userID, settings.BuyXGetYValuer)
	if totals.Discount.Valid {
		totals.DiscountAmount = totals.Discount.Discount.Amount
	}

	total := totals.Subtotal.Add(totals.TaxAmount).Add(totals.ShippingAmount).Sub(totals.DiscountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	totals.Total = pricing.RoundMoney(total)

	tracing.EndSpan(span, nil)
	return totals, nil
}
