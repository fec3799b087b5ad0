package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/xiebiao/medbulk/internal/domain/order"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

type orderRepository struct {
	store *Store
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(store *Store) order.Repository {
	return &orderRepository{store: store}
}

func (r *orderRepository) Create(_ context.Context, o *order.Order) error {
	return r.store.write(func(d *state) error {
		for _, existing := range d.orders {
			if existing.OrderNo == o.OrderNo {
				return apperrors.New(apperrors.ErrCodeDuplicateEntry, "订单号重复")
			}
		}
		o.ID = d.next("orders")
		for i := range o.Items {
			o.Items[i].ID = d.next("order_items")
			o.Items[i].OrderID = o.ID
		}
		d.orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

func (r *orderRepository) FindByOrderNo(_ context.Context, orderNo string) (*order.Order, error) {
	var found *order.Order
	r.store.read(func(d *state) {
		for _, o := range d.orders {
			if o.OrderNo == orderNo {
				c := cloneOrder(o)
				found = &c
				return
			}
		}
	})
	if found == nil {
		return nil, order.ErrOrderNotFound
	}
	return found, nil
}

func (r *orderRepository) LockByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	return r.FindByOrderNo(ctx, orderNo)
}

// Update 更新状态和明细的实际扣减数量,价格快照不变
func (r *orderRepository) Update(_ context.Context, o *order.Order) error {
	return r.store.write(func(d *state) error {
		existing, ok := d.orders[o.ID]
		if !ok {
			return order.ErrOrderNotFound
		}
		existing = cloneOrder(existing)
		existing.Status = o.Status
		existing.CancelReason = o.CancelReason
		existing.UpdatedAt = time.Now()
		for _, item := range o.Items {
			for i := range existing.Items {
				if existing.Items[i].ID == item.ID {
					existing.Items[i].DeductedQuantity = item.DeductedQuantity
					existing.Items[i].BatchDeducted = item.BatchDeducted
				}
			}
		}
		d.orders[o.ID] = existing
		return nil
	})
}

func (r *orderRepository) ListByUserID(_ context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	var matched []*order.Order
	r.store.read(func(d *state) {
		for _, o := range d.orders {
			if o.UserID == userID {
				c := cloneOrder(o)
				matched = append(matched, &c)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []*order.Order{}, total, nil
	}
	return matched[start:min(start+pageSize, len(matched))], total, nil
}

func (r *orderRepository) CountUserDiscountUsage(_ context.Context, userID, discountID uint) (int, error) {
	count := 0
	r.store.read(func(d *state) {
		for _, o := range d.orders {
			if o.UserID == userID && o.DiscountID != nil && *o.DiscountID == discountID &&
				o.Status != order.OrderStatusCancelled {
				count++
			}
		}
	})
	return count, nil
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	return o
}
