package purchase

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status 采购单状态
type Status string

const (
	StatusOrdered           Status = "ordered"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
	StatusCancelled         Status = "cancelled"
)

// PurchaseOrder 采购单(聚合根)
type PurchaseOrder struct {
	ID         uint
	PONumber   string
	SupplierID uint
	Status     Status
	Items      []Item
	ReceivedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Item 采购明细
type Item struct {
	ID               uint
	PurchaseOrderID  uint
	ProductID        uint
	OrderedQuantity  int
	ReceivedQuantity int
	UnitCost         decimal.Decimal
	SellingPrice     decimal.Decimal // 收货后批次售价
	BatchNumber      string
	ExpiryDate       *time.Time
}

// Remaining 待收数量
func (i *Item) Remaining() int {
	return i.OrderedQuantity - i.ReceivedQuantity
}

// ItemByID 查找明细
func (po *PurchaseOrder) ItemByID(itemID uint) (*Item, bool) {
	for idx := range po.Items {
		if po.Items[idx].ID == itemID {
			return &po.Items[idx], true
		}
	}
	return nil, false
}

// CanReceive 只有已下单/部分收货的采购单可以收货
func (po *PurchaseOrder) CanReceive() bool {
	return po.Status == StatusOrdered || po.Status == StatusPartiallyReceived
}

// Receive 登记某行的收货数量,不允许超收
func (po *PurchaseOrder) Receive(itemID uint, quantity int) (*Item, error) {
	if !po.CanReceive() {
		return nil, ErrNotReceivable
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	item, ok := po.ItemByID(itemID)
	if !ok {
		return nil, ErrItemNotFound
	}
	if quantity > item.Remaining() {
		return nil, ErrOverReceipt.WithDetail("明细#%d 待收%d 本次%d", itemID, item.Remaining(), quantity)
	}
	item.ReceivedQuantity += quantity
	return item, nil
}

// RefreshStatus 根据各行收货进度更新状态
func (po *PurchaseOrder) RefreshStatus(now time.Time) {
	received, complete := 0, true
	for _, item := range po.Items {
		received += item.ReceivedQuantity
		if item.Remaining() > 0 {
			complete = false
		}
	}
	switch {
	case complete && received > 0:
		po.Status = StatusReceived
		po.ReceivedAt = &now
	case received > 0:
		po.Status = StatusPartiallyReceived
	}
	po.UpdatedAt = now
}
