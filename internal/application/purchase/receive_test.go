package purchase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	invsvc "github.com/xiebiao/medbulk/internal/application/inventory"
	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/internal/domain/purchase"
	"github.com/xiebiao/medbulk/internal/infrastructure/persistence/memory"
)

type fixture struct {
	products  product.Repository
	batches   product.BatchRepository
	ledger    inventory.Ledger
	purchases purchase.Repository
	receive   *ReceiveUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	tm := memory.NewTxManager(store)
	f := &fixture{
		products:  memory.NewProductRepository(store),
		batches:   memory.NewBatchRepository(store),
		ledger:    memory.NewLedger(store),
		purchases: memory.NewPurchaseRepository(store),
	}
	engine := invsvc.NewEngine(f.products, f.batches, memory.NewInventoryRepository(store), f.ledger, tm,
		nil, nil, zap.NewNop(), invsvc.Options{})
	f.receive = NewReceiveUseCase(f.purchases, f.batches, engine, tm, zap.NewNop())
	return f
}

func (f *fixture) seedProduct(t *testing.T, sku string, stock int) *product.Product {
	t.Helper()
	p := &product.Product{
		SKU:            sku,
		Name:           "复方甘草片",
		SellingPrice:   decimal.NewFromInt(20),
		CostPrice:      decimal.NewFromInt(12),
		StockQuantity:  stock,
		TrackInventory: true,
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) seedPO(t *testing.T, items ...purchase.Item) *purchase.PurchaseOrder {
	t.Helper()
	po := &purchase.PurchaseOrder{
		PONumber:   fmt.Sprintf("PO-%d", time.Now().UnixNano()),
		SupplierID: 9,
		Status:     purchase.StatusOrdered,
		Items:      items,
	}
	require.NoError(t, f.purchases.Create(context.Background(), po))
	return po
}

func (f *fixture) stockOf(t *testing.T, id uint) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func TestReceive(t *testing.T) {
	ctx := context.Background()
	expiry := time.Date(2028, 1, 31, 0, 0, 0, 0, time.Local)

	t.Run("分批收货,状态随进度变化", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedProduct(t, "GC-001", 5)
		po := f.seedPO(t, purchase.Item{
			ProductID:       p.ID,
			OrderedQuantity: 100,
			UnitCost:        decimal.RequireFromString("11.5"),
			SellingPrice:    decimal.NewFromInt(19),
			BatchNumber:     "GC2601",
			ExpiryDate:      &expiry,
		})
		itemID := po.Items[0].ID

		resp, err := f.receive.Execute(ctx, ReceiveRequest{
			PurchaseOrderID: po.ID,
			Lines:           []ReceiveLine{{ItemID: itemID, Quantity: 40}},
		})
		require.NoError(t, err)
		assert.Equal(t, purchase.StatusPartiallyReceived, resp.Status)
		require.Len(t, resp.Changes, 1)
		assert.Equal(t, 45, resp.Changes[0].NewStock)

		b, err := f.batches.FindByNumber(ctx, p.ID, "GC2601")
		require.NoError(t, err)
		assert.Equal(t, 40, b.StockQuantity)
		assert.True(t, b.SellingPrice.Equal(decimal.NewFromInt(19)))
		assert.Equal(t, product.BatchStatusActive, b.Status)
		assert.True(t, b.ExpiryDate.Equal(expiry))

		resp, err = f.receive.Execute(ctx, ReceiveRequest{
			PurchaseOrderID: po.ID,
			Lines:           []ReceiveLine{{ItemID: itemID, Quantity: 60}},
		})
		require.NoError(t, err)
		assert.Equal(t, purchase.StatusReceived, resp.Status)
		assert.Equal(t, 105, f.stockOf(t, p.ID))

		b, err = f.batches.FindByNumber(ctx, p.ID, "GC2601")
		require.NoError(t, err)
		assert.Equal(t, 100, b.StockQuantity)

		rows, _, err := f.ledger.ListByProduct(ctx, p.ID, inventory.MovementFilter{}, 1, 20)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, m := range rows {
			assert.Equal(t, inventory.MovementPurchase, m.Type)
			assert.Equal(t, inventory.ReferencePurchaseOrder, m.ReferenceType)
			assert.Equal(t, po.PONumber, m.ReferenceNumber)
			assert.True(t, m.UnitCost.Equal(decimal.RequireFromString("11.5")))
		}

		_, err = f.receive.Execute(ctx, ReceiveRequest{
			PurchaseOrderID: po.ID,
			Lines:           []ReceiveLine{{ItemID: itemID, Quantity: 1}},
		})
		assert.ErrorIs(t, err, purchase.ErrNotReceivable, "已收齐的采购单不能再收货")
	})

	t.Run("超收时整单回滚", func(t *testing.T) {
		f := newFixture(t)
		a := f.seedProduct(t, "GC-101", 0)
		b := f.seedProduct(t, "GC-102", 0)
		po := f.seedPO(t,
			purchase.Item{ProductID: a.ID, OrderedQuantity: 10, UnitCost: decimal.NewFromInt(5), BatchNumber: "A1", ExpiryDate: &expiry},
			purchase.Item{ProductID: b.ID, OrderedQuantity: 10, UnitCost: decimal.NewFromInt(5)},
		)

		_, err := f.receive.Execute(ctx, ReceiveRequest{
			PurchaseOrderID: po.ID,
			Lines: []ReceiveLine{
				{ItemID: po.Items[0].ID, Quantity: 10},
				{ItemID: po.Items[1].ID, Quantity: 11},
			},
		})
		assert.ErrorIs(t, err, purchase.ErrOverReceipt)

		assert.Equal(t, 0, f.stockOf(t, a.ID), "第一行的入库也回滚")
		_, err = f.batches.FindByNumber(ctx, a.ID, "A1")
		assert.ErrorIs(t, err, product.ErrBatchNotFound)
		rows, _, err := f.ledger.ListByProduct(ctx, a.ID, inventory.MovementFilter{}, 1, 20)
		require.NoError(t, err)
		assert.Empty(t, rows)

		saved, err := f.purchases.LockByID(ctx, po.ID)
		require.NoError(t, err)
		assert.Equal(t, purchase.StatusOrdered, saved.Status)
		assert.Zero(t, saved.Items[0].ReceivedQuantity)
	})

	t.Run("收货时指定新批号", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedProduct(t, "GC-201", 0)
		po := f.seedPO(t, purchase.Item{ProductID: p.ID, OrderedQuantity: 10, UnitCost: decimal.NewFromInt(8), SellingPrice: decimal.NewFromInt(15)})

		later := expiry.AddDate(0, 6, 0)
		_, err := f.receive.Execute(ctx, ReceiveRequest{
			PurchaseOrderID: po.ID,
			Lines:           []ReceiveLine{{ItemID: po.Items[0].ID, Quantity: 10, BatchNumber: "NEW-1", ExpiryDate: &later}},
		})
		require.NoError(t, err)

		got, err := f.products.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "NEW-1", got.BatchNumber)
		require.NotNil(t, got.ExpiryDate)
		assert.True(t, got.ExpiryDate.Equal(later))
	})

	t.Run("采购单不存在或明细不存在", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.receive.Execute(ctx, ReceiveRequest{PurchaseOrderID: 404, Lines: []ReceiveLine{{ItemID: 1, Quantity: 1}}})
		assert.ErrorIs(t, err, purchase.ErrPurchaseOrderNotFound)

		p := f.seedProduct(t, "GC-301", 0)
		po := f.seedPO(t, purchase.Item{ProductID: p.ID, OrderedQuantity: 1})
		_, err = f.receive.Execute(ctx, ReceiveRequest{PurchaseOrderID: po.ID, Lines: []ReceiveLine{{ItemID: 999, Quantity: 1}}})
		assert.ErrorIs(t, err, purchase.ErrItemNotFound)
	})
}
