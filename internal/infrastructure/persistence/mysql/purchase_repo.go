package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/medbulk/internal/domain/purchase"
)

type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository 创建采购单仓储
func NewPurchaseRepository(db *gorm.DB) purchase.Repository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, po *purchase.PurchaseOrder) error {
	model := toPurchaseOrderModel(po)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return classifyError(err, "创建采购单失败")
	}

	po.ID = model.ID
	po.CreatedAt = model.CreatedAt
	po.UpdatedAt = model.UpdatedAt
	for i := range po.Items {
		po.Items[i].ID = model.Items[i].ID
		po.Items[i].PurchaseOrderID = model.ID
	}
	return nil
}

func (r *purchaseRepository) LockByID(ctx context.Context, id uint) (*purchase.PurchaseOrder, error) {
	db := getDB(ctx, r.db)

	var model PurchaseOrderModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, purchase.ErrPurchaseOrderNotFound
		}
		return nil, classifyError(err, "查询采购单失败")
	}
	if err := db.Where("purchase_order_id = ?", model.ID).Order("id ASC").Find(&model.Items).Error; err != nil {
		return nil, classifyError(err, "查询采购明细失败")
	}
	return toPurchaseOrderEntity(&model), nil
}

// Save 更新单头状态和各行已收数量
func (r *purchaseRepository) Save(ctx context.Context, po *purchase.PurchaseOrder) error {
	db := getDB(ctx, r.db)
	now := time.Now()

	result := db.Model(&PurchaseOrderModel{}).Where("id = ?", po.ID).Updates(map[string]interface{}{
		"status":      string(po.Status),
		"received_at": po.ReceivedAt,
		"updated_at":  now,
	})
	if result.Error != nil {
		return classifyError(result.Error, "更新采购单失败")
	}
	if result.RowsAffected == 0 {
		return purchase.ErrPurchaseOrderNotFound
	}

	for _, item := range po.Items {
		err := db.Model(&PurchaseOrderItemModel{}).
			Where("id = ? AND purchase_order_id = ?", item.ID, po.ID).
			Update("received_quantity", item.ReceivedQuantity).Error
		if err != nil {
			return classifyError(err, "更新采购明细失败")
		}
	}
	po.UpdatedAt = now
	return nil
}

func toPurchaseOrderModel(po *purchase.PurchaseOrder) *PurchaseOrderModel {
	items := make([]PurchaseOrderItemModel, len(po.Items))
	for i, item := range po.Items {
		items[i] = PurchaseOrderItemModel{
			ID:               item.ID,
			PurchaseOrderID:  item.PurchaseOrderID,
			ProductID:        item.ProductID,
			OrderedQuantity:  item.OrderedQuantity,
			ReceivedQuantity: item.ReceivedQuantity,
			UnitCost:         item.UnitCost,
			SellingPrice:     item.SellingPrice,
			BatchNumber:      item.BatchNumber,
			ExpiryDate:       item.ExpiryDate,
		}
	}
	return &PurchaseOrderModel{
		ID:         po.ID,
		PONumber:   po.PONumber,
		SupplierID: po.SupplierID,
		Status:     string(po.Status),
		Items:      items,
		ReceivedAt: po.ReceivedAt,
		CreatedAt:  po.CreatedAt,
		UpdatedAt:  po.UpdatedAt,
	}
}

func toPurchaseOrderEntity(m *PurchaseOrderModel) *purchase.PurchaseOrder {
	items := make([]purchase.Item, len(m.Items))
	for i, item := range m.Items {
		items[i] = purchase.Item{
			ID:               item.ID,
			PurchaseOrderID:  item.PurchaseOrderID,
			ProductID:        item.ProductID,
			OrderedQuantity:  item.OrderedQuantity,
			ReceivedQuantity: item.ReceivedQuantity,
			UnitCost:         item.UnitCost,
			SellingPrice:     item.SellingPrice,
			BatchNumber:      item.BatchNumber,
			ExpiryDate:       item.ExpiryDate,
		}
	}
	return &purchase.PurchaseOrder{
		ID:         m.ID,
		PONumber:   m.PONumber,
		SupplierID: m.SupplierID,
		Status:     purchase.Status(m.Status),
		Items:      items,
		ReceivedAt: m.ReceivedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
