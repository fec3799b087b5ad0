package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType 库存流水类型
type MovementType string

const (
	MovementPurchase   MovementType = "purchase"
	MovementSale       MovementType = "sale"
	MovementReturn     MovementType = "return"
	MovementAdjustment MovementType = "adjustment"
	MovementTransfer   MovementType = "transfer"
	MovementDamage     MovementType = "damage"
	MovementExpired    MovementType = "expired"
	MovementReserved   MovementType = "reserved"
	MovementUnreserved MovementType = "unreserved"
)

// IsInbound 入库类流水(increaseStock可接受的类型)
func (t MovementType) IsInbound() bool {
	switch t {
	case MovementPurchase, MovementReturn, MovementTransfer, MovementAdjustment:
		return true
	}
	return false
}

// ReferenceType 流水关联的业务单据类型
type ReferenceType string

const (
	ReferenceOrder         ReferenceType = "order"
	ReferencePurchaseOrder ReferenceType = "purchase_order"
	ReferenceAdjustment    ReferenceType = "adjustment"
	ReferenceManual        ReferenceType = "manual"
)

// Movement 库存流水(只追加,永不修改)
//
// 恒等式: QuantityAfter = QuantityBefore + QuantityChange
//
// reserved/unreserved流水记录的是可用量(库存-预占)的前后值,
// 预占时变更量为负、释放时为正;其余类型记录商品级库存的前后值。
type Movement struct {
	ID              uint
	ProductID       uint
	InventoryID     *uint
	Type            MovementType
	QuantityBefore  int
	QuantityChange  int
	QuantityAfter   int
	ReferenceType   ReferenceType
	ReferenceID     *uint
	ReferenceNumber string
	BatchNumber     string
	UnitCost        decimal.Decimal
	TotalCost       decimal.Decimal
	Reason          string
	CreatedBy       string
	CreatedAt       time.Time
}

// NewMovement 由前后数量构造流水,变更量由两者推导,保证恒等式成立
func NewMovement(productID uint, movementType MovementType, before, after int) *Movement {
	return &Movement{
		ProductID:      productID,
		Type:           movementType,
		QuantityBefore: before,
		QuantityChange: after - before,
		QuantityAfter:  after,
		CreatedAt:      time.Now(),
	}
}

// WithReference 关联业务单据
func (m *Movement) WithReference(refType ReferenceType, refID *uint, refNumber string) *Movement {
	m.ReferenceType = refType
	m.ReferenceID = refID
	m.ReferenceNumber = refNumber
	return m
}

// WithCost 记录成本,TotalCost = UnitCost × |变更量|
func (m *Movement) WithCost(unitCost decimal.Decimal) *Movement {
	change := m.QuantityChange
	if change < 0 {
		change = -change
	}
	m.UnitCost = unitCost
	m.TotalCost = unitCost.Mul(decimal.NewFromInt(int64(change))).Round(2)
	return m
}

// Balanced 校验恒等式
func (m *Movement) Balanced() bool {
	return m.QuantityAfter == m.QuantityBefore+m.QuantityChange
}

// MovementFilter 流水查询条件
type MovementFilter struct {
	Types           []MovementType
	ReferenceType   ReferenceType
	ReferenceNumber string
	From            *time.Time
	To              *time.Time
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage 分页参数兜底: page从1开始, pageSize默认20,最大100
func NormalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
