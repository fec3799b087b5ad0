package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/xiebiao/medbulk/internal/domain/inventory"
)

type inventoryRepository struct {
	store *Store
}

// NewInventoryRepository 创建库存明细仓储
func NewInventoryRepository(store *Store) inventory.Repository {
	return &inventoryRepository{store: store}
}

func (r *inventoryRepository) FindByProduct(_ context.Context, productID uint, batchNumber string) (*inventory.Inventory, error) {
	var (
		found inventory.Inventory
		ok    bool
	)
	r.store.read(func(d *state) {
		for _, inv := range d.inventories {
			if inv.ProductID == productID && inv.BatchNumber == batchNumber {
				found, ok = inv, true
				return
			}
		}
	})
	if !ok {
		return nil, inventory.ErrInventoryNotFound
	}
	return &found, nil
}

func (r *inventoryRepository) LockByProduct(ctx context.Context, productID uint, batchNumber string) (*inventory.Inventory, error) {
	return r.FindByProduct(ctx, productID, batchNumber)
}

func (r *inventoryRepository) Create(_ context.Context, inv *inventory.Inventory) error {
	return r.store.write(func(d *state) error {
		now := time.Now()
		inv.ID = d.next("inventories")
		if inv.CreatedAt.IsZero() {
			inv.CreatedAt = now
		}
		inv.UpdatedAt = now
		d.inventories[inv.ID] = *inv
		return nil
	})
}

func (r *inventoryRepository) Save(_ context.Context, inv *inventory.Inventory) error {
	return r.store.write(func(d *state) error {
		if _, ok := d.inventories[inv.ID]; !ok {
			return inventory.ErrInventoryNotFound
		}
		d.inventories[inv.ID] = *inv
		return nil
	})
}

type ledger struct {
	store *Store
}

// NewLedger 创建库存流水账本
func NewLedger(store *Store) inventory.Ledger {
	return &ledger{store: store}
}

func (l *ledger) Append(_ context.Context, m *inventory.Movement) error {
	if !m.Balanced() {
		return inventory.ErrUnbalancedMovement
	}
	return l.store.write(func(d *state) error {
		m.ID = d.next("movements")
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		d.movements = append(d.movements, *m)
		return nil
	})
}

func (l *ledger) ListByProduct(_ context.Context, productID uint, filter inventory.MovementFilter, page, pageSize int) ([]*inventory.Movement, int64, error) {
	page, pageSize = inventory.NormalizePage(page, pageSize)

	var matched []*inventory.Movement
	l.store.read(func(d *state) {
		for _, m := range d.movements {
			if m.ProductID == productID && matches(&m, filter) {
				matched = append(matched, &m)
			}
		}
	})

	// created_at DESC, id DESC
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []*inventory.Movement{}, total, nil
	}
	end := min(start+pageSize, len(matched))
	return matched[start:end], total, nil
}

func matches(m *inventory.Movement, f inventory.MovementFilter) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, m.Type) {
		return false
	}
	if f.ReferenceType != "" && m.ReferenceType != f.ReferenceType {
		return false
	}
	if f.ReferenceNumber != "" && m.ReferenceNumber != f.ReferenceNumber {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
