package memory

import (
	"context"
	"slices"
	"time"

	"github.com/xiebiao/medbulk/internal/domain/purchase"
)

type purchaseRepository struct {
	store *Store
}

// NewPurchaseRepository 创建采购单仓储
func NewPurchaseRepository(store *Store) purchase.Repository {
	return &purchaseRepository{store: store}
}

func (r *purchaseRepository) Create(_ context.Context, po *purchase.PurchaseOrder) error {
	return r.store.write(func(d *state) error {
		now := time.Now()
		po.ID = d.next("purchase_orders")
		for i := range po.Items {
			po.Items[i].ID = d.next("purchase_order_items")
			po.Items[i].PurchaseOrderID = po.ID
		}
		if po.CreatedAt.IsZero() {
			po.CreatedAt = now
		}
		po.UpdatedAt = now
		d.purchaseOrders[po.ID] = clonePurchaseOrder(*po)
		return nil
	})
}

func (r *purchaseRepository) LockByID(_ context.Context, id uint) (*purchase.PurchaseOrder, error) {
	var (
		found purchase.PurchaseOrder
		ok    bool
	)
	r.store.read(func(d *state) {
		found, ok = d.purchaseOrders[id]
	})
	if !ok {
		return nil, purchase.ErrPurchaseOrderNotFound
	}
	found = clonePurchaseOrder(found)
	return &found, nil
}

func (r *purchaseRepository) Save(_ context.Context, po *purchase.PurchaseOrder) error {
	return r.store.write(func(d *state) error {
		if _, ok := d.purchaseOrders[po.ID]; !ok {
			return purchase.ErrPurchaseOrderNotFound
		}
		d.purchaseOrders[po.ID] = clonePurchaseOrder(*po)
		return nil
	})
}

func clonePurchaseOrder(po purchase.PurchaseOrder) purchase.PurchaseOrder {
	po.Items = slices.Clone(po.Items)
	return po
}
