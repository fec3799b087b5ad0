package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/medbulk/internal/domain/inventory"
)

type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存明细仓储
func NewInventoryRepository(db *gorm.DB) inventory.Repository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) FindByProduct(ctx context.Context, productID uint, batchNumber string) (*inventory.Inventory, error) {
	return r.first(getDB(ctx, r.db), productID, batchNumber)
}

func (r *inventoryRepository) LockByProduct(ctx context.Context, productID uint, batchNumber string) (*inventory.Inventory, error) {
	return r.first(getDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), productID, batchNumber)
}

func (r *inventoryRepository) first(db *gorm.DB, productID uint, batchNumber string) (*inventory.Inventory, error) {
	var model InventoryModel
	err := db.Where("product_id = ? AND batch_number = ?", productID, batchNumber).First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, inventory.ErrInventoryNotFound
		}
		return nil, classifyError(err, "查询库存明细失败")
	}
	return toInventoryEntity(&model), nil
}

func (r *inventoryRepository) Create(ctx context.Context, inv *inventory.Inventory) error {
	model := toInventoryModel(inv)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return classifyError(err, "创建库存明细失败")
	}
	inv.ID = model.ID
	inv.CreatedAt = model.CreatedAt
	inv.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *inventoryRepository) Save(ctx context.Context, inv *inventory.Inventory) error {
	model := toInventoryModel(inv)
	model.UpdatedAt = time.Now()

	result := getDB(ctx, r.db).Model(&InventoryModel{}).
		Where("id = ?", inv.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return classifyError(result.Error, "更新库存明细失败")
	}
	if result.RowsAffected == 0 {
		return inventory.ErrInventoryNotFound
	}
	inv.UpdatedAt = model.UpdatedAt
	return nil
}

// ledger 库存流水账本(只INSERT)
type ledger struct {
	db *gorm.DB
}

// NewLedger 创建库存流水账本
func NewLedger(db *gorm.DB) inventory.Ledger {
	return &ledger{db: db}
}

func (l *ledger) Append(ctx context.Context, m *inventory.Movement) error {
	if !m.Balanced() {
		return inventory.ErrUnbalancedMovement
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	model := toMovementModel(m)
	if err := getDB(ctx, l.db).Create(model).Error; err != nil {
		return classifyError(err, "写入库存流水失败")
	}
	m.ID = model.ID
	return nil
}

func (l *ledger) ListByProduct(ctx context.Context, productID uint, filter inventory.MovementFilter, page, pageSize int) ([]*inventory.Movement, int64, error) {
	page, pageSize = inventory.NormalizePage(page, pageSize)

	query := getDB(ctx, l.db).Model(&MovementModel{}).Where("product_id = ?", productID)
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		query = query.Where("type IN ?", types)
	}
	if filter.ReferenceType != "" {
		query = query.Where("reference_type = ?", string(filter.ReferenceType))
	}
	if filter.ReferenceNumber != "" {
		query = query.Where("reference_number = ?", filter.ReferenceNumber)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classifyError(err, "查询库存流水总数失败")
	}

	var models []MovementModel
	err := query.Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset(pageOffset(page, pageSize)).
		Find(&models).Error
	if err != nil {
		return nil, 0, classifyError(err, "查询库存流水失败")
	}

	movements := make([]*inventory.Movement, len(models))
	for i := range models {
		movements[i] = toMovementEntity(&models[i])
	}
	return movements, total, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toInventoryModel(inv *inventory.Inventory) *InventoryModel {
	return &InventoryModel{
		ID:               inv.ID,
		ProductID:        inv.ProductID,
		BatchNumber:      inv.BatchNumber,
		Quantity:         inv.Quantity,
		ReservedQuantity: inv.ReservedQuantity,
		ReorderLevel:     inv.ReorderLevel,
		Status:           string(inv.Status),
		ExpiryDate:       inv.ExpiryDate,
		CostPrice:        inv.CostPrice,
		LastRestockedAt:  inv.LastRestockedAt,
		LastSoldAt:       inv.LastSoldAt,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

func toInventoryEntity(m *InventoryModel) *inventory.Inventory {
	return &inventory.Inventory{
		ID:               m.ID,
		ProductID:        m.ProductID,
		BatchNumber:      m.BatchNumber,
		Quantity:         m.Quantity,
		ReservedQuantity: m.ReservedQuantity,
		ReorderLevel:     m.ReorderLevel,
		Status:           inventory.StockStatus(m.Status),
		ExpiryDate:       m.ExpiryDate,
		CostPrice:        m.CostPrice,
		LastRestockedAt:  m.LastRestockedAt,
		LastSoldAt:       m.LastSoldAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toMovementModel(m *inventory.Movement) *MovementModel {
	return &MovementModel{
		ID:              m.ID,
		ProductID:       m.ProductID,
		InventoryID:     m.InventoryID,
		Type:            string(m.Type),
		QuantityBefore:  m.QuantityBefore,
		QuantityChange:  m.QuantityChange,
		QuantityAfter:   m.QuantityAfter,
		ReferenceType:   string(m.ReferenceType),
		ReferenceID:     m.ReferenceID,
		ReferenceNumber: m.ReferenceNumber,
		BatchNumber:     m.BatchNumber,
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
		Reason:          m.Reason,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}

func toMovementEntity(m *MovementModel) *inventory.Movement {
	return &inventory.Movement{
		ID:              m.ID,
		ProductID:       m.ProductID,
		InventoryID:     m.InventoryID,
		Type:            inventory.MovementType(m.Type),
		QuantityBefore:  m.QuantityBefore,
		QuantityChange:  m.QuantityChange,
		QuantityAfter:   m.QuantityAfter,
		ReferenceType:   inventory.ReferenceType(m.ReferenceType),
		ReferenceID:     m.ReferenceID,
		ReferenceNumber: m.ReferenceNumber,
		BatchNumber:     m.BatchNumber,
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
		Reason:          m.Reason,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}
