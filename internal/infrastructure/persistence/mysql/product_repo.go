package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/medbulk/internal/domain/product"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

// productRepository 商品仓储实现(MySQL)
// 1. 实现domain/product/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 处理数据库特定的错误(如SKU重复),转换为业务错误
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *product.Product) error {
	model := toProductModel(p)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return product.ErrSKUDuplicate
		}
		return classifyError(err, "创建商品失败")
	}

	// 回填自增ID
	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	return r.first(getDB(ctx, r.db), id)
}

// LockByID SELECT ... FOR UPDATE
// 必须在事务中调用,否则锁在语句结束时就释放了
func (r *productRepository) LockByID(ctx context.Context, id uint) (*product.Product, error) {
	return r.first(getDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *productRepository) first(db *gorm.DB, id uint) (*product.Product, error) {
	var model ProductModel
	err := db.Where("id = ? AND is_deleted = ?", id, false).First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, product.ErrProductNotFound
		}
		return nil, classifyError(err, "查询商品失败")
	}
	return toProductEntity(&model), nil
}

// Save 全字段更新(库存、最近批次等)
func (r *productRepository) Save(ctx context.Context, p *product.Product) error {
	model := toProductModel(p)
	model.UpdatedAt = time.Now()

	result := getDB(ctx, r.db).Model(&ProductModel{}).
		Where("id = ?", p.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return classifyError(result.Error, "更新商品失败")
	}
	if result.RowsAffected == 0 {
		return product.ErrProductNotFound
	}
	p.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *productRepository) ListLowStock(ctx context.Context) ([]*product.Product, error) {
	return r.list(ctx, "stock_quantity > 0 AND stock_quantity <= low_stock_threshold")
}

func (r *productRepository) ListOutOfStock(ctx context.Context) ([]*product.Product, error) {
	return r.list(ctx, "stock_quantity <= 0")
}

// list 只返回跟踪库存且未删除的商品,按库存升序
func (r *productRepository) list(ctx context.Context, cond string) ([]*product.Product, error) {
	var models []ProductModel
	err := getDB(ctx, r.db).
		Where("track_inventory = ? AND is_deleted = ?", true, false).
		Where(cond).
		Order("stock_quantity ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, classifyError(err, "查询库存预警商品失败")
	}

	products := make([]*product.Product, len(models))
	for i := range models {
		products[i] = toProductEntity(&models[i])
	}
	return products, nil
}

// batchRepository 批次仓储实现(MySQL)
type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository 创建批次仓储
func NewBatchRepository(db *gorm.DB) product.BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) FindByNumber(ctx context.Context, productID uint, batchNumber string) (*product.Batch, error) {
	var model BatchModel
	err := getDB(ctx, r.db).
		Where("product_id = ? AND batch_number = ?", productID, batchNumber).
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, product.ErrBatchNotFound
		}
		return nil, classifyError(err, "查询批次失败")
	}
	return toBatchEntity(&model), nil
}

// LatestActive 过期按天比较: 效期当天仍可售
func (r *batchRepository) LatestActive(ctx context.Context, productID uint, asOf time.Time) (*product.Batch, error) {
	var model BatchModel
	err := getDB(ctx, r.db).
		Where("product_id = ? AND status = ?", productID, string(product.BatchStatusActive)).
		Where("expiry_date IS NULL OR expiry_date >= ?", product.DayStart(asOf)).
		Order("created_at DESC, id DESC").
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, product.ErrBatchNotFound
		}
		return nil, classifyError(err, "查询批次失败")
	}
	return toBatchEntity(&model), nil
}

// Save ID为0时新建,否则全字段更新
func (r *batchRepository) Save(ctx context.Context, b *product.Batch) error {
	model := toBatchModel(b)
	db := getDB(ctx, r.db)

	if b.ID == 0 {
		if err := db.Create(model).Error; err != nil {
			if isDuplicateError(err) {
				return apperrors.New(apperrors.ErrCodeDuplicateEntry, "批号已存在")
			}
			return classifyError(err, "创建批次失败")
		}
		b.ID = model.ID
		b.CreatedAt = model.CreatedAt
		b.UpdatedAt = model.UpdatedAt
		return nil
	}

	model.UpdatedAt = time.Now()
	result := db.Model(&BatchModel{}).
		Where("id = ?", b.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return classifyError(result.Error, "更新批次失败")
	}
	if result.RowsAffected == 0 {
		return product.ErrBatchNotFound
	}
	b.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *batchRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]*product.Batch, error) {
	var models []BatchModel
	err := getDB(ctx, r.db).
		Where("status = ? AND expiry_date BETWEEN ? AND ?", string(product.BatchStatusActive), from, to).
		Order("expiry_date ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, classifyError(err, "查询临期批次失败")
	}

	batches := make([]*product.Batch, len(models))
	for i := range models {
		batches[i] = toBatchEntity(&models[i])
	}
	return batches, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toProductModel(p *product.Product) *ProductModel {
	return &ProductModel{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		CategoryID:        p.CategoryID,
		SellingPrice:      p.SellingPrice,
		CostPrice:         p.CostPrice,
		StockQuantity:     p.StockQuantity,
		LowStockThreshold: p.LowStockThreshold,
		TrackInventory:    p.TrackInventory,
		AllowBackorder:    p.AllowBackorder,
		MinOrderQuantity:  p.MinOrderQuantity,
		BulkPriceEnabled:  p.BulkPriceEnabled,
		TaxEnabled:        p.TaxEnabled,
		TaxPercentage:     p.TaxPercentage,
		TaxID:             p.TaxID,
		BatchNumber:       p.BatchNumber,
		ExpiryDate:        p.ExpiryDate,
		IsDeleted:         p.IsDeleted,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toProductEntity(m *ProductModel) *product.Product {
	return &product.Product{
		ID:                m.ID,
		SKU:               m.SKU,
		Name:              m.Name,
		CategoryID:        m.CategoryID,
		SellingPrice:      m.SellingPrice,
		CostPrice:         m.CostPrice,
		StockQuantity:     m.StockQuantity,
		LowStockThreshold: m.LowStockThreshold,
		TrackInventory:    m.TrackInventory,
		AllowBackorder:    m.AllowBackorder,
		MinOrderQuantity:  m.MinOrderQuantity,
		BulkPriceEnabled:  m.BulkPriceEnabled,
		TaxEnabled:        m.TaxEnabled,
		TaxPercentage:     m.TaxPercentage,
		TaxID:             m.TaxID,
		BatchNumber:       m.BatchNumber,
		ExpiryDate:        m.ExpiryDate,
		IsDeleted:         m.IsDeleted,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toBatchModel(b *product.Batch) *BatchModel {
	m := &BatchModel{
		ID:              b.ID,
		ProductID:       b.ProductID,
		BatchNumber:     b.BatchNumber,
		ManufactureDate: b.ManufactureDate,
		SellingPrice:    b.SellingPrice,
		CostPrice:       b.CostPrice,
		StockQuantity:   b.StockQuantity,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if !b.ExpiryDate.IsZero() {
		expiry := b.ExpiryDate
		m.ExpiryDate = &expiry
	}
	return m
}

func toBatchEntity(m *BatchModel) *product.Batch {
	b := &product.Batch{
		ID:              m.ID,
		ProductID:       m.ProductID,
		BatchNumber:     m.BatchNumber,
		ManufactureDate: m.ManufactureDate,
		SellingPrice:    m.SellingPrice,
		CostPrice:       m.CostPrice,
		StockQuantity:   m.StockQuantity,
		Status:          product.BatchStatus(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.ExpiryDate != nil {
		b.ExpiryDate = *m.ExpiryDate
	}
	return b
}
