package order

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	invsvc "github.com/xiebiao/medbulk/internal/application/inventory"
	pricesvc "github.com/xiebiao/medbulk/internal/application/pricing"
	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/order"
	"github.com/xiebiao/medbulk/internal/domain/pricing"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/internal/infrastructure/persistence/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s got %s %v", want, got.String(), msgAndArgs)
}

var skuSeq atomic.Int64

type fixture struct {
	products  product.Repository
	ledger    inventory.Ledger
	orders    order.Repository
	discounts *memory.DiscountRepository
	batches   product.BatchRepository
	stock     *invsvc.StockStore
	inventory *invsvc.Engine
	repos     pricesvc.Repositories
	tm        *memory.TxManager

	checkout *CheckoutUseCase
	confirm  *ConfirmOrderUseCase
	cancel   *CancelOrderUseCase
	quote    *QuoteUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	tm := memory.NewTxManager(store)
	log := zap.NewNop()

	f := &fixture{
		products:  memory.NewProductRepository(store),
		ledger:    memory.NewLedger(store),
		orders:    memory.NewOrderRepository(store),
		discounts: memory.NewDiscountRepository(store),
	}
	f.batches = memory.NewBatchRepository(store)
	f.tm = tm
	invs := memory.NewInventoryRepository(store)

	f.stock = invsvc.NewStockStore(f.products, invs)
	f.inventory = invsvc.NewEngine(f.products, f.batches, invs, f.ledger, tm, nil, nil, log, invsvc.Options{})
	f.repos = pricesvc.Repositories{
		Tiers:      memory.NewTierRepository(store),
		Taxes:      memory.NewTaxRepository(store),
		Batches:    f.batches,
		Discounts:  f.discounts,
		Promotions: memory.NewPromotionRepository(store),
		Usage:      f.orders,
	}
	pricingEngine := pricesvc.NewEngine(f.repos, pricing.StaticSettings{}, log, nil)

	f.checkout = NewCheckoutUseCase(f.orders, f.products, f.discounts, f.stock, f.inventory, pricingEngine, tm, log)
	f.confirm = NewConfirmOrderUseCase(f.orders, f.inventory, tm, log)
	f.cancel = NewCancelOrderUseCase(f.orders, f.inventory, tm, log)
	f.quote = NewQuoteUseCase(f.products, pricingEngine)
	return f
}

func (f *fixture) seed(t *testing.T, mutate func(p *product.Product)) *product.Product {
	t.Helper()
	p := &product.Product{
		SKU:            fmt.Sprintf("SKU-%d", skuSeq.Add(1)),
		Name:           "头孢克肟分散片",
		SellingPrice:   d("100"),
		CostPrice:      d("70"),
		StockQuantity:  10,
		TrackInventory: true,
		TaxEnabled:     true,
		TaxPercentage:  d("10"),
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

// checkoutReading 定价时通过discounts读取优惠,计数仍写入真实仓储
func (f *fixture) checkoutReading(discounts pricing.DiscountRepository) *CheckoutUseCase {
	repos := f.repos
	repos.Discounts = discounts
	engine := pricesvc.NewEngine(repos, pricing.StaticSettings{}, zap.NewNop(), nil)
	return NewCheckoutUseCase(f.orders, f.products, f.discounts, f.stock, f.inventory, engine, f.tm, zap.NewNop())
}

// staleDiscounts 总是返回读取时的旧快照,模拟并发事务各自读到同一使用次数
type staleDiscounts struct {
	*memory.DiscountRepository
	snapshot pricing.Discount
}

func (s staleDiscounts) FindByCode(_ context.Context, _ string) (*pricing.Discount, error) {
	d := s.snapshot
	return &d, nil
}

func (f *fixture) available(t *testing.T, id uint) int {
	t.Helper()
	a, err := f.stock.GetAvailable(context.Background(), id)
	require.NoError(t, err)
	return a.Quantity
}

func (f *fixture) stockOf(t *testing.T, id uint) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *fixture) movements(t *testing.T, id uint, types ...inventory.MovementType) []*inventory.Movement {
	t.Helper()
	rows, _, err := f.ledger.ListByProduct(context.Background(), id, inventory.MovementFilter{Types: types}, 1, 100)
	require.NoError(t, err)
	return rows
}

func (f *fixture) orderCount(t *testing.T, userID uint) int64 {
	t.Helper()
	_, total, err := f.orders.ListByUserID(context.Background(), userID, 1, 10)
	require.NoError(t, err)
	return total
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("下单预占库存,确认后扣减", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)

		resp, err := f.checkout.Execute(ctx, CheckoutRequest{
			UserID: 1,
			Items:  []LineRequest{{ProductID: p.ID, Quantity: 3}},
		})
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusPending.String(), resp.Status)
		assert.Len(t, resp.OrderNo, 22)
		assertMoney(t, "300", resp.Totals.Subtotal)
		assertMoney(t, "30", resp.Totals.TaxAmount)
		assertMoney(t, "330", resp.Totals.Total)

		assert.Equal(t, 10, f.stockOf(t, p.ID), "下单只预占")
		assert.Equal(t, 7, f.available(t, p.ID))
		reserved := f.movements(t, p.ID, inventory.MovementReserved)
		require.Len(t, reserved, 1)
		assert.Equal(t, resp.OrderNo, reserved[0].ReferenceNumber)

		saved, err := f.orders.FindByOrderNo(ctx, resp.OrderNo)
		require.NoError(t, err)
		require.Len(t, saved.Items, 1)
		assertMoney(t, "100", saved.Items[0].UnitPrice)
		assertMoney(t, "330", saved.Total)

		confirmed, err := f.confirm.Execute(ctx, resp.OrderNo)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusConfirmed.String(), confirmed.Status)
		assert.Equal(t, 7, f.stockOf(t, p.ID))
		assert.Equal(t, 7, f.available(t, p.ID), "扣减时同步释放预占")

		sales := f.movements(t, p.ID, inventory.MovementSale)
		require.Len(t, sales, 1)
		assert.Equal(t, -3, sales[0].QuantityChange)
		require.NotNil(t, sales[0].ReferenceID)
		assert.Equal(t, resp.OrderID, *sales[0].ReferenceID)
	})

	t.Run("库存不足时拒绝且不留下订单", func(t *testing.T) {
		f := newFixture(t)
		ok := f.seed(t, nil)
		short := f.seed(t, func(p *product.Product) { p.StockQuantity = 2 })

		_, err := f.checkout.Execute(ctx, CheckoutRequest{
			UserID: 2,
			Items: []LineRequest{
				{ProductID: ok.ID, Quantity: 1},
				{ProductID: short.ID, Quantity: 5},
			},
		})
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
		assert.Zero(t, f.orderCount(t, 2))
		assert.Equal(t, 10, f.available(t, ok.ID))
		assert.Empty(t, f.movements(t, ok.ID))
	})

	t.Run("允许缺货下单", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) {
			p.StockQuantity = 2
			p.AllowBackorder = true
		})

		resp, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: 3, Items: []LineRequest{{ProductID: p.ID, Quantity: 5}}})
		require.NoError(t, err)
		assert.True(t, resp.Backorder)

		_, err = f.confirm.Execute(ctx, resp.OrderNo)
		require.NoError(t, err)
		assert.Equal(t, 0, f.stockOf(t, p.ID), "库存不会为负")
	})

	t.Run("同一商品多行合并", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)

		resp, err := f.checkout.Execute(ctx, CheckoutRequest{
			UserID: 4,
			Items:  []LineRequest{{ProductID: p.ID, Quantity: 2}, {ProductID: p.ID, Quantity: 3}},
		})
		require.NoError(t, err)
		assert.Equal(t, 5, resp.Totals.ItemCount)
		require.Len(t, resp.Totals.Items, 1)
		assert.Equal(t, 5, f.available(t, p.ID))
	})

	t.Run("优惠码不可用时拒绝下单", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)

		_, err := f.checkout.Execute(ctx, CheckoutRequest{
			UserID:       5,
			Items:        []LineRequest{{ProductID: p.ID, Quantity: 1}},
			DiscountCode: "NOPE",
		})
		assert.ErrorIs(t, err, order.ErrDiscountRejected)
		assert.Zero(t, f.orderCount(t, 5))
		assert.Equal(t, 10, f.available(t, p.ID))
	})

	t.Run("使用优惠码后计入使用次数", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		limit := 1
		require.NoError(t, f.discounts.Add(ctx, &pricing.Discount{
			Code:       "FIRST",
			Rule:       pricing.FixedAmountRule{Value: d("30")},
			IsActive:   true,
			UsageLimit: &limit,
		}))

		resp, err := f.checkout.Execute(ctx, CheckoutRequest{
			UserID:       6,
			Items:        []LineRequest{{ProductID: p.ID, Quantity: 1}},
			DiscountCode: "first",
		})
		require.NoError(t, err)
		assertMoney(t, "30", resp.Totals.DiscountAmount)
		assertMoney(t, "80", resp.Totals.Total)

		saved, err := f.orders.FindByOrderNo(ctx, resp.OrderNo)
		require.NoError(t, err)
		require.NotNil(t, saved.DiscountID)
		assert.Equal(t, "FIRST", saved.DiscountCode)

		_, err = f.checkout.Execute(ctx, CheckoutRequest{
			UserID:       7,
			Items:        []LineRequest{{ProductID: p.ID, Quantity: 1}},
			DiscountCode: "FIRST",
		})
		assert.ErrorIs(t, err, order.ErrDiscountRejected)
	})

	t.Run("校验通过后最后一次已被用掉时整单回滚", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		limit := 1
		require.NoError(t, f.discounts.Add(ctx, &pricing.Discount{
			Code:       "LAST",
			Rule:       pricing.FixedAmountRule{Value: d("10")},
			IsActive:   true,
			UsageLimit: &limit,
		}))
		before, err := f.discounts.FindByCode(ctx, "LAST")
		require.NoError(t, err)

		_, err = f.checkout.Execute(ctx, CheckoutRequest{
			UserID:       8,
			Items:        []LineRequest{{ProductID: p.ID, Quantity: 1}},
			DiscountCode: "LAST",
		})
		require.NoError(t, err)

		stale := f.checkoutReading(staleDiscounts{DiscountRepository: f.discounts, snapshot: *before})
		_, err = stale.Execute(ctx, CheckoutRequest{
			UserID:       9,
			Items:        []LineRequest{{ProductID: p.ID, Quantity: 2}},
			DiscountCode: "LAST",
		})
		assert.ErrorIs(t, err, order.ErrDiscountRejected)
		assert.Zero(t, f.orderCount(t, 9))
		assert.Equal(t, 9, f.available(t, p.ID), "第二单的预占已回滚")

		after, err := f.discounts.FindByCode(ctx, "LAST")
		require.NoError(t, err)
		assert.Equal(t, 1, after.UsedCount)
	})

	t.Run("参数校验", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: 1})
		assert.ErrorIs(t, err, order.ErrInvalidOrderItems)

		_, err = f.checkout.Execute(ctx, CheckoutRequest{UserID: 1, Items: []LineRequest{{ProductID: 1, Quantity: 0}}})
		assert.ErrorIs(t, err, order.ErrInvalidQuantity)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("取消待确认订单释放预占", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		resp, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: 1, Items: []LineRequest{{ProductID: p.ID, Quantity: 4}}})
		require.NoError(t, err)
		assert.Equal(t, 6, f.available(t, p.ID))

		cancelled, err := f.cancel.Execute(ctx, resp.OrderNo, "客户取消")
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusCancelled.String(), cancelled.Status)
		assert.Equal(t, 10, f.available(t, p.ID))
		assert.Len(t, f.movements(t, p.ID, inventory.MovementUnreserved), 1)

		saved, err := f.orders.FindByOrderNo(ctx, resp.OrderNo)
		require.NoError(t, err)
		assert.Equal(t, "客户取消", saved.CancelReason)
	})

	t.Run("取消已确认订单按退货入库", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		resp, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: 1, Items: []LineRequest{{ProductID: p.ID, Quantity: 4}}})
		require.NoError(t, err)
		_, err = f.confirm.Execute(ctx, resp.OrderNo)
		require.NoError(t, err)
		assert.Equal(t, 6, f.stockOf(t, p.ID))

		_, err = f.cancel.Execute(ctx, resp.OrderNo, "质量问题")
		require.NoError(t, err)
		assert.Equal(t, 10, f.stockOf(t, p.ID))

		returns := f.movements(t, p.ID, inventory.MovementReturn)
		require.Len(t, returns, 1)
		assert.Equal(t, 4, returns[0].QuantityChange)
		assert.Equal(t, resp.OrderNo, returns[0].ReferenceNumber)
	})

	t.Run("不跟踪库存的已确认订单取消时不回补", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) {
			p.StockQuantity = 0
			p.TrackInventory = false
		})
		resp, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: 1, Items: []LineRequest{{ProductID: p.ID, Quantity: 5}}})
		require.NoError(t, err)
		_, err = f.confirm.Execute(ctx, resp.OrderNo)
		require.NoError(t, err)
		assert.Empty(t, f.movements(t, p.ID, inventory.MovementSale))

		saved, err := f.orders.FindByOrderNo(ctx, resp.OrderNo)
		require.NoError(t, err)
		assert.Zero(t, saved.Items[0].DeductedQuantity)

		_, err = f.cancel.Execute(ctx, resp.OrderNo, "客户取消")
		require.NoError(t, err)
		assert.Equal(t, 0, f.stockOf(t, p.ID))
		assert.Empty(t, f.movements(t, p.ID, inventory.MovementReturn))
	})

	t.Run("缺货订单取消时只回补实际扣减的数量", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) {
			p.StockQuantity = 2
			p.AllowBackorder = true
		})
		resp, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: 1, Items: []LineRequest{{ProductID: p.ID, Quantity: 5}}})
		require.NoError(t, err)
		_, err = f.confirm.Execute(ctx, resp.OrderNo)
		require.NoError(t, err)
		assert.Equal(t, 0, f.stockOf(t, p.ID))

		saved, err := f.orders.FindByOrderNo(ctx, resp.OrderNo)
		require.NoError(t, err)
		assert.Equal(t, 2, saved.Items[0].DeductedQuantity)

		_, err = f.cancel.Execute(ctx, resp.OrderNo, "缺货取消")
		require.NoError(t, err)
		assert.Equal(t, 2, f.stockOf(t, p.ID), "回到下单前的库存")

		returns := f.movements(t, p.ID, inventory.MovementReturn)
		require.Len(t, returns, 1)
		assert.Equal(t, 2, returns[0].QuantityChange)
	})

	t.Run("按批次定价的订单确认扣批次,取消回补批次", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		require.NoError(t, f.batches.Save(ctx, &product.Batch{
			ProductID:     p.ID,
			BatchNumber:   "LOT-9",
			SellingPrice:  d("90"),
			CostPrice:     d("60"),
			StockQuantity: 3,
			Status:        product.BatchStatusActive,
		}))

		resp, err := f.checkout.Execute(ctx, CheckoutRequest{
			UserID: 1,
			Items:  []LineRequest{{ProductID: p.ID, Quantity: 4, BatchNumber: "LOT-9"}},
		})
		require.NoError(t, err)
		assertMoney(t, "360", resp.Totals.Subtotal)

		_, err = f.confirm.Execute(ctx, resp.OrderNo)
		require.NoError(t, err)
		b, err := f.batches.FindByNumber(ctx, p.ID, "LOT-9")
		require.NoError(t, err)
		assert.Equal(t, 0, b.StockQuantity, "批次只有3件,最多扣3件")
		assert.Equal(t, 6, f.stockOf(t, p.ID))

		saved, err := f.orders.FindByOrderNo(ctx, resp.OrderNo)
		require.NoError(t, err)
		assert.Equal(t, 4, saved.Items[0].DeductedQuantity)
		assert.Equal(t, 3, saved.Items[0].BatchDeducted)

		_, err = f.cancel.Execute(ctx, resp.OrderNo, "客户取消")
		require.NoError(t, err)
		b, err = f.batches.FindByNumber(ctx, p.ID, "LOT-9")
		require.NoError(t, err)
		assert.Equal(t, 3, b.StockQuantity)
		assert.Equal(t, product.BatchStatusActive, b.Status)
		assert.Equal(t, 10, f.stockOf(t, p.ID))
	})

	t.Run("重复取消", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		resp, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: 1, Items: []LineRequest{{ProductID: p.ID, Quantity: 1}}})
		require.NoError(t, err)
		_, err = f.cancel.Execute(ctx, resp.OrderNo, "")
		require.NoError(t, err)

		_, err = f.cancel.Execute(ctx, resp.OrderNo, "")
		assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)
		assert.Len(t, f.movements(t, p.ID, inventory.MovementUnreserved), 1)

		_, err = f.confirm.Execute(ctx, resp.OrderNo)
		assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)
	})

	t.Run("订单不存在", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.cancel.Execute(ctx, "SO-MISSING", "")
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestQuote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seed(t, nil)

	totals, err := f.quote.Execute(ctx, QuoteRequest{
		Items:        []LineRequest{{ProductID: p.ID, Quantity: 3}},
		DiscountCode: "UNKNOWN",
	})
	require.NoError(t, err)
	assertMoney(t, "330", totals.Total)
	assert.False(t, totals.Discount.Valid)
	assert.Equal(t, pricing.ReasonNotFound, totals.Discount.Reason)

	assert.Equal(t, 10, f.available(t, p.ID), "试算不预占")
	assert.Empty(t, f.movements(t, p.ID))
}
