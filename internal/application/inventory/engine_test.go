package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/medbulk/internal/domain/audit"
	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/internal/infrastructure/persistence/memory"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (n *recordingNotifier) NotifyLowStock(_ context.Context, p *product.Product) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, p.ID)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

var skuSeq atomic.Int64

type fixture struct {
	store    *memory.Store
	products product.Repository
	batches  product.BatchRepository
	invs     inventory.Repository
	ledger   inventory.Ledger
	tm       *memory.TxManager
	notifier *recordingNotifier
	auditor  *memory.AuditSink
	engine   *Engine
	stock    *StockStore
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:    store,
		products: memory.NewProductRepository(store),
		batches:  memory.NewBatchRepository(store),
		invs:     memory.NewInventoryRepository(store),
		ledger:   memory.NewLedger(store),
		tm:       memory.NewTxManager(store),
		notifier: &recordingNotifier{},
		auditor:  memory.NewAuditSink(),
		now:      time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local),
	}
	f.engine = NewEngine(f.products, f.batches, f.invs, f.ledger, f.tm, f.notifier, f.auditor, zap.NewNop(),
		Options{Now: func() time.Time { return f.now }})
	f.stock = NewStockStore(f.products, f.invs)
	return f
}

func (f *fixture) seed(t *testing.T, mutate func(p *product.Product)) *product.Product {
	t.Helper()
	p := &product.Product{
		SKU:               fmt.Sprintf("SKU-%d", skuSeq.Add(1)),
		Name:              "布洛芬缓释胶囊",
		SellingPrice:      decimal.NewFromInt(100),
		CostPrice:         decimal.NewFromInt(60),
		StockQuantity:     10,
		LowStockThreshold: 3,
		TrackInventory:    true,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) stockOf(t *testing.T, id uint) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *fixture) movements(t *testing.T, id uint) []*inventory.Movement {
	t.Helper()
	rows, _, err := f.ledger.ListByProduct(context.Background(), id, inventory.MovementFilter{}, 1, 100)
	require.NoError(t, err)
	return rows
}

func (f *fixture) seedBatch(t *testing.T, productID uint, number string, quantity int) {
	t.Helper()
	require.NoError(t, f.batches.Save(context.Background(), &product.Batch{
		ProductID:     productID,
		BatchNumber:   number,
		ExpiryDate:    f.now.AddDate(1, 0, 0),
		SellingPrice:  decimal.NewFromInt(90),
		CostPrice:     decimal.NewFromInt(50),
		StockQuantity: quantity,
		Status:        product.BatchStatusActive,
	}))
}

func (f *fixture) batchOf(t *testing.T, productID uint, number string) *product.Batch {
	t.Helper()
	b, err := f.batches.FindByNumber(context.Background(), productID, number)
	require.NoError(t, err)
	return b
}

func assertLedgerBalanced(t *testing.T, rows []*inventory.Movement) {
	t.Helper()
	for _, m := range rows {
		assert.Equal(t, m.QuantityBefore+m.QuantityChange, m.QuantityAfter, "流水#%d 不平衡", m.ID)
	}
}

func TestReduceStock(t *testing.T) {
	ctx := context.Background()

	t.Run("扣减库存并写一条销售流水", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)

		change, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 3, ReferenceNumber: "SO-1"})
		require.NoError(t, err)
		assert.Equal(t, 10, change.PreviousStock)
		assert.Equal(t, 7, change.NewStock)
		assert.Equal(t, 7, f.stockOf(t, p.ID))

		rows := f.movements(t, p.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, inventory.MovementSale, rows[0].Type)
		assert.Equal(t, -3, rows[0].QuantityChange)
		assert.Equal(t, "SO-1", rows[0].ReferenceNumber)
		assert.Equal(t, inventory.ReferenceOrder, rows[0].ReferenceType)
		assert.True(t, rows[0].TotalCost.Equal(decimal.NewFromInt(180)))
		assertLedgerBalanced(t, rows)
	})

	t.Run("库存最低扣到0,流水记录实际扣减量", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) { p.StockQuantity = 2 })

		change, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 5})
		require.NoError(t, err)
		assert.Equal(t, 0, change.NewStock)

		rows := f.movements(t, p.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, -2, rows[0].QuantityChange)
		assertLedgerBalanced(t, rows)
	})

	t.Run("不跟踪库存时不做变更", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) { p.TrackInventory = false })

		change, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 5})
		require.NoError(t, err)
		assert.False(t, change.Applied)
		assert.Equal(t, 10, f.stockOf(t, p.ID))
		assert.Empty(t, f.movements(t, p.ID))
	})

	t.Run("同步明细行的数量和预占", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		_, err := f.engine.ReserveStock(ctx, p.ID, 4, "SO-2")
		require.NoError(t, err)

		change, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 4, ReferenceNumber: "SO-2"})
		require.NoError(t, err)
		assert.Equal(t, 0, change.ReservedQuantity)

		inv, err := f.invs.FindByProduct(ctx, p.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 6, inv.Quantity)
		assert.Equal(t, 0, inv.ReservedQuantity)
		assert.Equal(t, inventory.StatusInStock, inv.Status)
		require.NotNil(t, inv.LastSoldAt)
	})

	t.Run("按批次销售同时扣减批次", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		f.seedBatch(t, p.ID, "LOT-B", 5)
		_, err := f.engine.IncreaseStock(ctx, IncreaseRequest{ProductID: p.ID, Quantity: 2, BatchNumber: "LOT-B"})
		require.NoError(t, err)

		change, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 4, ReferenceNumber: "SO-B", BatchNumber: "LOT-B"})
		require.NoError(t, err)
		assert.Equal(t, 8, change.NewStock)
		assert.Equal(t, 4, change.BatchQuantity)

		b := f.batchOf(t, p.ID, "LOT-B")
		assert.Equal(t, 1, b.StockQuantity)
		inv, err := f.invs.FindByProduct(ctx, p.ID, "LOT-B")
		require.NoError(t, err)
		assert.Equal(t, 0, inv.Quantity, "批次明细行最低扣到0")

		sale := f.movements(t, p.ID)[0]
		assert.Equal(t, inventory.MovementSale, sale.Type)
		assert.Equal(t, "LOT-B", sale.BatchNumber)
	})

	t.Run("批次不足时只扣批次剩余数量", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		f.seedBatch(t, p.ID, "LOT-C", 2)

		change, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 5, BatchNumber: "LOT-C"})
		require.NoError(t, err)
		assert.Equal(t, 5, change.PreviousStock-change.NewStock)
		assert.Equal(t, 2, change.BatchQuantity)

		b := f.batchOf(t, p.ID, "LOT-C")
		assert.Equal(t, 0, b.StockQuantity)
		assert.Equal(t, product.BatchStatusOutOfStock, b.Status)
	})

	t.Run("批次不存在时只扣商品库存", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		change, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 1, BatchNumber: "LOT-GONE"})
		require.NoError(t, err)
		assert.Equal(t, 9, change.NewStock)
		assert.Zero(t, change.BatchQuantity)
	})

	t.Run("数量非法", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: 1, Quantity: 0})
		assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
	})

	t.Run("商品不存在", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: 404, Quantity: 1})
		assert.ErrorIs(t, err, product.ErrProductNotFound)
	})
}

func TestReduceStock_LowStockNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("提交后低于阈值发送提醒", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) { p.StockQuantity = 5; p.LowStockThreshold = 3 })

		_, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
		f.engine.WaitNotifications()
		assert.Equal(t, 0, f.notifier.count(), "库存4高于阈值3,不提醒")

		_, err = f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
		f.engine.WaitNotifications()
		assert.Equal(t, 1, f.notifier.count())
	})

	t.Run("提醒失败不回滚库存", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.err = errors.New("mq unavailable")
		p := f.seed(t, nil)

		_, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 9})
		require.NoError(t, err)
		f.engine.WaitNotifications()

		assert.Equal(t, 1, f.notifier.count())
		assert.Equal(t, 1, f.stockOf(t, p.ID))
	})

	t.Run("外层事务回滚时不提醒也不落库", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)

		err := f.tm.Transaction(ctx, func(txCtx context.Context) error {
			if _, err := f.engine.ReduceStock(txCtx, ReduceRequest{ProductID: p.ID, Quantity: 9}); err != nil {
				return err
			}
			return errors.New("payment declined")
		})
		require.Error(t, err)
		f.engine.WaitNotifications()

		assert.Equal(t, 0, f.notifier.count())
		assert.Equal(t, 10, f.stockOf(t, p.ID))
		assert.Empty(t, f.movements(t, p.ID))
	})
}

func TestReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("预占后释放恢复原值", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)

		change, err := f.engine.ReserveStock(ctx, p.ID, 4, "SO-1")
		require.NoError(t, err)
		assert.Equal(t, 4, change.ReservedQuantity)
		assert.Equal(t, 10, change.NewStock, "预占不改变实际库存")

		change, err = f.engine.ReleaseReservedStock(ctx, p.ID, 4, "SO-1")
		require.NoError(t, err)
		assert.Equal(t, 0, change.ReservedQuantity)
		assert.Equal(t, 10, f.stockOf(t, p.ID))

		rows := f.movements(t, p.ID)
		require.Len(t, rows, 2)
		assert.Equal(t, inventory.MovementUnreserved, rows[0].Type)
		assert.Equal(t, 4, rows[0].QuantityChange)
		assert.Equal(t, inventory.MovementReserved, rows[1].Type)
		assert.Equal(t, -4, rows[1].QuantityChange)
		assertLedgerBalanced(t, rows)
	})

	t.Run("释放最多到0", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		_, err := f.engine.ReserveStock(ctx, p.ID, 2, "SO-1")
		require.NoError(t, err)

		change, err := f.engine.ReleaseReservedStock(ctx, p.ID, 5, "SO-1")
		require.NoError(t, err)
		assert.Equal(t, 0, change.ReservedQuantity)

		rows := f.movements(t, p.ID)
		assert.Equal(t, 2, rows[0].QuantityChange, "只记录实际释放的数量")
		assertLedgerBalanced(t, rows)
	})

	t.Run("没有预占时释放记0变更", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)

		change, err := f.engine.ReleaseReservedStock(ctx, p.ID, 3, "SO-9")
		require.NoError(t, err)
		assert.Equal(t, 0, change.ReservedQuantity)

		rows := f.movements(t, p.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, 0, rows[0].QuantityChange)
	})

	t.Run("可用量不足拒绝预占", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) { p.StockQuantity = 5 })
		_, err := f.engine.ReserveStock(ctx, p.ID, 4, "SO-1")
		require.NoError(t, err)

		_, err = f.engine.ReserveStock(ctx, p.ID, 2, "SO-2")
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

		avail, err := f.stock.GetAvailable(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, avail.Quantity)
	})

	t.Run("允许缺货下单时可超额预占", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) { p.StockQuantity = 1; p.AllowBackorder = true })

		change, err := f.engine.ReserveStock(ctx, p.ID, 3, "SO-1")
		require.NoError(t, err)
		assert.Equal(t, 3, change.ReservedQuantity)
		assertLedgerBalanced(t, f.movements(t, p.ID))
	})

	t.Run("不跟踪库存时预占为空操作", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) { p.TrackInventory = false })

		change, err := f.engine.ReserveStock(ctx, p.ID, 100, "SO-1")
		require.NoError(t, err)
		assert.False(t, change.Applied)
		assert.Empty(t, f.movements(t, p.ID))
	})
}

func TestReserveStock_Concurrent(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, nil)

	var (
		wg       sync.WaitGroup
		success  atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ReserveStock(context.Background(), p.ID, 1, "SO-C")
			switch {
			case err == nil:
				success.Add(1)
			case errors.Is(err, inventory.ErrInsufficientStock):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, success.Load(), "库存10只能预占10件")
	assert.EqualValues(t, 15, rejected.Load())

	avail, err := f.stock.GetAvailable(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, avail.Quantity)
	assertLedgerBalanced(t, f.movements(t, p.ID))
}

func TestIncreaseStock(t *testing.T) {
	ctx := context.Background()

	t.Run("按批次入库并创建批次明细行", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		expiry := f.now.AddDate(1, 0, 0)
		cost := decimal.RequireFromString("55.50")

		change, err := f.engine.IncreaseStock(ctx, IncreaseRequest{
			ProductID:       p.ID,
			Quantity:        20,
			ReferenceType:   inventory.ReferencePurchaseOrder,
			ReferenceNumber: "PO-1",
			BatchNumber:     "LOT-2026A",
			ExpiryDate:      &expiry,
			CostPrice:       &cost,
		})
		require.NoError(t, err)
		assert.Equal(t, 30, change.NewStock)

		got, err := f.products.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "LOT-2026A", got.BatchNumber)
		require.NotNil(t, got.ExpiryDate)

		inv, err := f.invs.FindByProduct(ctx, p.ID, "LOT-2026A")
		require.NoError(t, err)
		assert.Equal(t, 20, inv.Quantity)
		assert.True(t, inv.CostPrice.Equal(cost))

		rows := f.movements(t, p.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, inventory.MovementPurchase, rows[0].Type)
		assert.Equal(t, 20, rows[0].QuantityChange)
		assert.True(t, rows[0].TotalCost.Equal(decimal.NewFromInt(1110)))
		assert.Equal(t, inv.ID, *rows[0].InventoryID)
	})

	t.Run("同批次再次入库累加", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		for i := 0; i < 2; i++ {
			_, err := f.engine.IncreaseStock(ctx, IncreaseRequest{ProductID: p.ID, Quantity: 5, BatchNumber: "LOT-1"})
			require.NoError(t, err)
		}
		inv, err := f.invs.FindByProduct(ctx, p.ID, "LOT-1")
		require.NoError(t, err)
		assert.Equal(t, 10, inv.Quantity)
		assert.Equal(t, 20, f.stockOf(t, p.ID))
	})

	t.Run("退货入库同步商品级明细行", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		_, err := f.engine.ReserveStock(ctx, p.ID, 2, "SO-1")
		require.NoError(t, err)

		change, err := f.engine.IncreaseStock(ctx, IncreaseRequest{ProductID: p.ID, Quantity: 3, Type: inventory.MovementReturn})
		require.NoError(t, err)
		assert.Equal(t, 2, change.ReservedQuantity)

		inv, err := f.invs.FindByProduct(ctx, p.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 13, inv.Quantity)
	})

	t.Run("退货回补批次数量但不改变最近入库批号", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, func(p *product.Product) { p.BatchNumber = "LOT-NEW" })
		f.seedBatch(t, p.ID, "LOT-OLD", 0)

		change, err := f.engine.IncreaseStock(ctx, IncreaseRequest{
			ProductID:     p.ID,
			Quantity:      5,
			Type:          inventory.MovementReturn,
			BatchNumber:   "LOT-OLD",
			BatchQuantity: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, 15, change.NewStock)
		assert.Equal(t, 3, change.BatchQuantity)

		b := f.batchOf(t, p.ID, "LOT-OLD")
		assert.Equal(t, 3, b.StockQuantity)
		assert.Equal(t, product.BatchStatusActive, b.Status)

		got, err := f.products.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "LOT-NEW", got.BatchNumber)

		_, err = f.invs.FindByProduct(ctx, p.ID, "LOT-OLD")
		assert.ErrorIs(t, err, inventory.ErrInventoryNotFound, "退货不新建批次明细行")
	})

	t.Run("出库类型不能用于入库", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		_, err := f.engine.IncreaseStock(ctx, IncreaseRequest{ProductID: p.ID, Quantity: 1, Type: inventory.MovementSale})
		assert.ErrorIs(t, err, inventory.ErrInvalidMovementType)
	})
}

func TestAdjustStock(t *testing.T) {
	ctx := audit.WithActor(context.Background(), "warehouse-7")

	t.Run("直接设置库存并写审计", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)

		change, err := f.engine.AdjustStock(ctx, p.ID, 4, "盘点差异")
		require.NoError(t, err)
		assert.Equal(t, 10, change.PreviousStock)
		assert.Equal(t, 4, change.NewStock)
		f.engine.WaitNotifications()

		rows := f.movements(t, p.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, inventory.MovementAdjustment, rows[0].Type)
		assert.Equal(t, -6, rows[0].QuantityChange)
		assert.Equal(t, "warehouse-7", rows[0].CreatedBy)
		assert.Equal(t, "盘点差异", rows[0].Reason)
		assert.Equal(t, change.ReferenceNumber, rows[0].ReferenceNumber)

		records := f.auditor.Records()
		require.Len(t, records, 1)
		assert.Equal(t, audit.ActionStockAdjusted, records[0].Action)
		assert.Equal(t, "warehouse-7", records[0].Actor)
		assert.Equal(t, 10, records[0].Before["stock_quantity"])
		assert.Equal(t, 4, records[0].After["stock_quantity"])
	})

	t.Run("目标库存不能为负", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		_, err := f.engine.AdjustStock(ctx, p.ID, -1, "")
		assert.ErrorIs(t, err, inventory.ErrNegativeTarget)
	})

	t.Run("调整为0更新明细行状态", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, nil)
		_, err := f.engine.ReserveStock(ctx, p.ID, 1, "SO-1")
		require.NoError(t, err)

		_, err = f.engine.AdjustStock(ctx, p.ID, 0, "报损")
		require.NoError(t, err)
		inv, err := f.invs.FindByProduct(ctx, p.ID, "")
		require.NoError(t, err)
		assert.Equal(t, inventory.StatusOutOfStock, inv.Status)
	})
}

func TestExpiringProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seed(t, nil)
	today := product.DayStart(f.now)

	require.NoError(t, f.batches.Save(ctx, &product.Batch{
		ProductID: p.ID, BatchNumber: "LOT-10D", ExpiryDate: today.AddDate(0, 0, 10), Status: product.BatchStatusActive,
	}))
	require.NoError(t, f.batches.Save(ctx, &product.Batch{
		ProductID: p.ID, BatchNumber: "LOT-OLD", ExpiryDate: today.AddDate(0, 0, -1), Status: product.BatchStatusActive,
	}))

	within30, err := f.engine.ExpiringProducts(ctx, 30)
	require.NoError(t, err)
	require.Len(t, within30, 1)
	assert.Equal(t, "LOT-10D", within30[0].Batch.BatchNumber)
	assert.Equal(t, 10, within30[0].DaysLeft)

	within5, err := f.engine.ExpiringProducts(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, within5)

	within10, err := f.engine.ExpiringProducts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, within10, 1, "窗口包含最后一天")

	_, err = f.engine.ExpiringProducts(ctx, -1)
	assert.Error(t, err)
}

func TestStockQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	low := f.seed(t, func(p *product.Product) { p.StockQuantity = 2 })
	out := f.seed(t, func(p *product.Product) { p.StockQuantity = 0 })
	f.seed(t, nil)
	f.seed(t, func(p *product.Product) { p.StockQuantity = 0; p.TrackInventory = false })

	lows, err := f.engine.LowStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, low.ID, lows[0].ID)

	outs, err := f.engine.OutOfStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, out.ID, outs[0].ID)
}

func TestMovements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.seed(t, nil)

	for i := 0; i < 3; i++ {
		_, err := f.engine.ReduceStock(ctx, ReduceRequest{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
	}
	_, err := f.engine.IncreaseStock(ctx, IncreaseRequest{ProductID: p.ID, Quantity: 5})
	require.NoError(t, err)

	rows, total, err := f.engine.Movements(ctx, p.ID, inventory.MovementFilter{Types: []inventory.MovementType{inventory.MovementSale}}, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rows, 2)

	_, _, err = f.engine.Movements(ctx, 404, inventory.MovementFilter{}, 1, 20)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}
