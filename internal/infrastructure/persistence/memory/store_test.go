package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/pricing"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/pkg/txn"
)

func seedProduct(t *testing.T, repo product.Repository, stock int) *product.Product {
	t.Helper()
	p := &product.Product{SKU: "SKU-1", Name: "阿莫西林", StockQuantity: stock, LowStockThreshold: 5, TrackInventory: true}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestTransaction_RollbackRestoresAllWrites(t *testing.T) {
	store := NewStore()
	products := NewProductRepository(store)
	ledger := NewLedger(store)
	tm := NewTxManager(store)
	p := seedProduct(t, products, 10)

	boom := errors.New("boom")
	err := tm.Transaction(context.Background(), func(ctx context.Context) error {
		locked, err := products.LockByID(ctx, p.ID)
		require.NoError(t, err)
		locked.SetStock(3)
		require.NoError(t, products.Save(ctx, locked))
		require.NoError(t, ledger.Append(ctx, inventory.NewMovement(p.ID, inventory.MovementSale, 10, 3)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity)

	rows, total, err := ledger.ListByProduct(context.Background(), p.ID, inventory.MovementFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
}

func TestTransaction_PanicRollsBack(t *testing.T) {
	store := NewStore()
	products := NewProductRepository(store)
	tm := NewTxManager(store)
	p := seedProduct(t, products, 10)

	assert.Panics(t, func() {
		_ = tm.Transaction(context.Background(), func(ctx context.Context) error {
			p.SetStock(0)
			_ = products.Save(ctx, p)
			panic("unexpected")
		})
	})

	got, err := products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity)

	// 锁已释放,可以继续开启事务
	assert.NoError(t, tm.Transaction(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestTransaction_JoinAndAfterCommit(t *testing.T) {
	store := NewStore()
	tm := NewTxManager(store)

	t.Run("内层加入外层,回调在外层提交后执行", func(t *testing.T) {
		var calls []string
		err := tm.Transaction(context.Background(), func(outer context.Context) error {
			return tm.Transaction(outer, func(inner context.Context) error {
				txn.AfterCommit(inner, func() { calls = append(calls, "notify") })
				assert.Empty(t, calls)
				return nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"notify"}, calls)
	})

	t.Run("外层回滚时丢弃回调", func(t *testing.T) {
		called := false
		err := tm.Transaction(context.Background(), func(outer context.Context) error {
			_ = tm.Transaction(outer, func(inner context.Context) error {
				txn.AfterCommit(inner, func() { called = true })
				return nil
			})
			return errors.New("outer failed")
		})
		assert.Error(t, err)
		assert.False(t, called)
	})
}

func TestLedger_ListByProduct(t *testing.T) {
	store := NewStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, typ := range []inventory.MovementType{inventory.MovementPurchase, inventory.MovementSale, inventory.MovementSale} {
		m := inventory.NewMovement(1, typ, i*10, i*10+1)
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		m.ReferenceNumber = "SO-1"
		require.NoError(t, ledger.Append(ctx, m))
	}
	require.NoError(t, ledger.Append(ctx, inventory.NewMovement(2, inventory.MovementSale, 1, 0)))

	t.Run("最新的在前", func(t *testing.T) {
		rows, total, err := ledger.ListByProduct(ctx, 1, inventory.MovementFilter{}, 1, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, rows, 2)
		assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))
	})

	t.Run("按类型过滤", func(t *testing.T) {
		rows, total, err := ledger.ListByProduct(ctx, 1, inventory.MovementFilter{Types: []inventory.MovementType{inventory.MovementPurchase}}, 1, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, inventory.MovementPurchase, rows[0].Type)
	})

	t.Run("超出页数返回空", func(t *testing.T) {
		rows, total, err := ledger.ListByProduct(ctx, 1, inventory.MovementFilter{}, 5, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Empty(t, rows)
	})

	t.Run("拒绝不平衡的流水", func(t *testing.T) {
		bad := &inventory.Movement{ProductID: 1, QuantityBefore: 1, QuantityChange: 1, QuantityAfter: 5}
		assert.ErrorIs(t, ledger.Append(ctx, bad), inventory.ErrUnbalancedMovement)
	})
}

func TestBatchRepository(t *testing.T) {
	store := NewStore()
	batches := NewBatchRepository(store)
	ctx := context.Background()
	today := product.DayStart(time.Now())

	old := &product.Batch{ProductID: 1, BatchNumber: "B-OLD", ExpiryDate: today.AddDate(0, 0, 10), Status: product.BatchStatusActive, CreatedAt: today.AddDate(0, -2, 0)}
	fresh := &product.Batch{ProductID: 1, BatchNumber: "B-NEW", ExpiryDate: today.AddDate(0, 0, 60), Status: product.BatchStatusActive, CreatedAt: today.AddDate(0, -1, 0)}
	expired := &product.Batch{ProductID: 1, BatchNumber: "B-EXP", ExpiryDate: today.AddDate(0, 0, -1), Status: product.BatchStatusActive, CreatedAt: today}
	for _, b := range []*product.Batch{old, fresh, expired} {
		require.NoError(t, batches.Save(ctx, b))
	}

	t.Run("最近的可用批次跳过已过期批次", func(t *testing.T) {
		latest, err := batches.LatestActive(ctx, 1, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "B-NEW", latest.BatchNumber)
	})

	t.Run("批号重复", func(t *testing.T) {
		err := batches.Save(ctx, &product.Batch{ProductID: 1, BatchNumber: "B-OLD"})
		assert.Error(t, err)
	})

	t.Run("临期批次按过期日升序", func(t *testing.T) {
		rows, err := batches.ListExpiring(ctx, today, today.AddDate(0, 0, 90))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "B-OLD", rows[0].BatchNumber)
	})

	t.Run("不存在", func(t *testing.T) {
		_, err := batches.FindByNumber(ctx, 1, "NOPE")
		assert.ErrorIs(t, err, product.ErrBatchNotFound)
	})
}

func TestDiscountRepository_IncrementUsage(t *testing.T) {
	store := NewStore()
	discounts := NewDiscountRepository(store)
	ctx := context.Background()

	limit := 2
	capped := &pricing.Discount{Code: "twice", IsActive: true, UsageLimit: &limit}
	open := &pricing.Discount{Code: "OPEN", IsActive: true}
	require.NoError(t, discounts.Add(ctx, capped))
	require.NoError(t, discounts.Add(ctx, open))

	t.Run("达到上限后拒绝且不再计数", func(t *testing.T) {
		require.NoError(t, discounts.IncrementUsage(ctx, capped.ID))
		require.NoError(t, discounts.IncrementUsage(ctx, capped.ID))

		err := discounts.IncrementUsage(ctx, capped.ID)
		assert.ErrorIs(t, err, pricing.ErrDiscountUsageExhausted)

		got, err := discounts.FindByCode(ctx, "TWICE")
		require.NoError(t, err)
		assert.Equal(t, 2, got.UsedCount)
	})

	t.Run("无上限", func(t *testing.T) {
		for range 3 {
			require.NoError(t, discounts.IncrementUsage(ctx, open.ID))
		}
		got, err := discounts.FindByCode(ctx, "open")
		require.NoError(t, err)
		assert.Equal(t, 3, got.UsedCount)
	})

	t.Run("事务回滚撤销计数", func(t *testing.T) {
		tm := NewTxManager(store)
		err := tm.Transaction(ctx, func(ctx context.Context) error {
			require.NoError(t, discounts.IncrementUsage(ctx, open.ID))
			return errors.New("下单失败")
		})
		require.Error(t, err)

		got, err := discounts.FindByCode(ctx, "OPEN")
		require.NoError(t, err)
		assert.Equal(t, 3, got.UsedCount)
	})

	t.Run("不存在", func(t *testing.T) {
		assert.ErrorIs(t, discounts.IncrementUsage(ctx, 999), pricing.ErrDiscountNotFound)
	})
}
