package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/medbulk/internal/domain/pricing"
)

// TierRepository 阶梯价仓储
type TierRepository struct {
	db *gorm.DB
}

// NewTierRepository 创建阶梯价仓储
func NewTierRepository(db *gorm.DB) *TierRepository {
	return &TierRepository{db: db}
}

// ListByProduct 返回全部阶梯(含停用的),由pricing.SelectTier筛选
func (r *TierRepository) ListByProduct(ctx context.Context, productID uint) ([]pricing.BulkPriceTier, error) {
	var models []TierModel
	err := getDB(ctx, r.db).Where("product_id = ?", productID).Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, classifyError(err, "查询阶梯价失败")
	}

	tiers := make([]pricing.BulkPriceTier, len(models))
	for i, m := range models {
		tiers[i] = pricing.BulkPriceTier{
			ID:                 m.ID,
			ProductID:          m.ProductID,
			MinQuantity:        m.MinQuantity,
			MaxQuantity:        m.MaxQuantity,
			Price:              m.Price,
			DiscountPercentage: m.DiscountPercentage,
			IsActive:           m.IsActive,
		}
	}
	return tiers, nil
}

// TaxRepository 税率仓储
type TaxRepository struct {
	db *gorm.DB
}

// NewTaxRepository 创建税率仓储
func NewTaxRepository(db *gorm.DB) *TaxRepository {
	return &TaxRepository{db: db}
}

func (r *TaxRepository) FindByID(ctx context.Context, id uint) (*pricing.Tax, error) {
	var m TaxModel
	if err := getDB(ctx, r.db).First(&m, id).Error; err != nil {
		if isNotFound(err) {
			return nil, pricing.ErrTaxNotFound
		}
		return nil, classifyError(err, "查询税率失败")
	}
	return &pricing.Tax{
		ID:         m.ID,
		Name:       m.Name,
		Percentage: m.Percentage,
		Type:       pricing.TaxType(m.Type),
		IsActive:   m.IsActive,
	}, nil
}

// DiscountRepository 优惠仓储
type DiscountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository 创建优惠仓储
func NewDiscountRepository(db *gorm.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// FindByCode 优惠码统一存大写
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*pricing.Discount, error) {
	code = pricing.NormalizeCode(code)
	if code == "" {
		return nil, pricing.ErrDiscountNotFound
	}

	var m DiscountModel
	if err := getDB(ctx, r.db).Where("code = ?", code).First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, pricing.ErrDiscountNotFound
		}
		return nil, classifyError(err, "查询优惠失败")
	}
	return toDiscountEntity(&m), nil
}

func (r *DiscountRepository) ListAutomatic(ctx context.Context) ([]*pricing.Discount, error) {
	var models []DiscountModel
	err := getDB(ctx, r.db).
		Where("is_automatic = ? AND is_active = ?", true, true).
		Order("priority DESC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, classifyError(err, "查询自动优惠失败")
	}

	discounts := make([]*pricing.Discount, len(models))
	for i := range models {
		discounts[i] = toDiscountEntity(&models[i])
	}
	return discounts, nil
}

// IncrementUsage used_count = used_count + 1,不做读改写
// 上限条件写在WHERE里: 两个事务同时抢最后一次,后提交的那个影响行数为0
func (r *DiscountRepository) IncrementUsage(ctx context.Context, id uint) error {
	db := getDB(ctx, r.db)
	result := db.Model(&DiscountModel{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", id).
		Updates(map[string]interface{}{
			"used_count": gorm.Expr("used_count + ?", 1),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return classifyError(result.Error, "更新优惠使用次数失败")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&DiscountModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return classifyError(err, "查询优惠失败")
	}
	if count == 0 {
		return pricing.ErrDiscountNotFound
	}
	return pricing.ErrDiscountUsageExhausted
}

// PromotionRepository 促销仓储
type PromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建促销仓储
func NewPromotionRepository(db *gorm.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

func (r *PromotionRepository) FindByID(ctx context.Context, id uint) (*pricing.Promotion, error) {
	var m PromotionModel
	if err := getDB(ctx, r.db).First(&m, id).Error; err != nil {
		if isNotFound(err) {
			return nil, pricing.ErrPromotionNotFound
		}
		return nil, classifyError(err, "查询促销失败")
	}
	return toPromotionEntity(&m), nil
}

func (r *PromotionRepository) ListRunning(ctx context.Context, at time.Time) ([]*pricing.Promotion, error) {
	var models []PromotionModel
	err := getDB(ctx, r.db).
		Where("is_active = ? AND status = ?", true, string(pricing.PromotionActive)).
		Where("start_date <= ?", at).
		Where("end_date IS NULL OR end_date >= ?", at).
		Order("priority DESC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, classifyError(err, "查询进行中的促销失败")
	}

	promotions := make([]*pricing.Promotion, len(models))
	for i := range models {
		promotions[i] = toPromotionEntity(&models[i])
	}
	return promotions, nil
}

// Save ID为0时新建,否则全字段更新
func (r *PromotionRepository) Save(ctx context.Context, p *pricing.Promotion) error {
	model := toPromotionModel(p)
	db := getDB(ctx, r.db)

	if p.ID == 0 {
		if err := db.Create(model).Error; err != nil {
			return classifyError(err, "创建促销失败")
		}
		p.ID = model.ID
		return nil
	}

	model.UpdatedAt = time.Now()
	result := db.Model(&PromotionModel{}).
		Where("id = ?", p.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return classifyError(result.Error, "更新促销失败")
	}
	if result.RowsAffected == 0 {
		return pricing.ErrPromotionNotFound
	}
	p.UpdatedAt = model.UpdatedAt
	return nil
}

var (
	_ pricing.TierRepository      = (*TierRepository)(nil)
	_ pricing.TaxRepository       = (*TaxRepository)(nil)
	_ pricing.DiscountRepository  = (*DiscountRepository)(nil)
	_ pricing.PromotionRepository = (*PromotionRepository)(nil)
)

// =========================================
// 辅助函数:规则列 ↔ 规则类型
// =========================================

func toDiscountEntity(m *DiscountModel) *pricing.Discount {
	d := &pricing.Discount{
		ID:                    m.ID,
		Name:                  m.Name,
		IsAutomatic:           m.IsAutomatic,
		IsActive:              m.IsActive,
		MinOrderAmount:        m.MinOrderAmount,
		MinQuantity:           m.MinQuantity,
		UsageLimit:            m.UsageLimit,
		UsedCount:             m.UsedCount,
		UsageLimitPerUser:     m.UsageLimitPerUser,
		StartDate:             m.StartDate,
		EndDate:               m.EndDate,
		Priority:              m.Priority,
		Stackable:             m.Stackable,
		ApplicableProductIDs:  m.ApplicableProductIDs,
		ApplicableCategoryIDs: m.ApplicableCategoryIDs,
	}
	if m.Code != nil {
		d.Code = *m.Code
	}

	switch pricing.DiscountType(m.Type) {
	case pricing.DiscountPercentage:
		d.Rule = pricing.PercentageRule{Percent: m.Value, MaxAmount: m.MaxAmount}
	case pricing.DiscountFixedAmount:
		d.Rule = pricing.FixedAmountRule{Value: m.Value}
	case pricing.DiscountFreeShipping:
		d.Rule = pricing.FreeShippingRule{}
	case pricing.DiscountBuyXGetY:
		rule := pricing.BuyXGetYRule{Buy: m.BuyQuantity, Get: m.GetQuantity}
		// 未指定时由计价引擎按配置选择
		if m.FreeItemValuer != "" {
			rule.Valuer = pricing.ValuerByName(m.FreeItemValuer)
		}
		d.Rule = rule
	}
	return d
}

func toPromotionModel(p *pricing.Promotion) *PromotionModel {
	m := &PromotionModel{
		ID:          p.ID,
		Name:        p.Name,
		Scope:       string(p.Scope),
		ProductIDs:  p.ProductIDs,
		CategoryIDs: p.CategoryIDs,
		StartDate:   p.StartDate,
		IsActive:    p.IsActive,
		Status:      string(p.Status),
		Priority:    p.Priority,
		UpdatedAt:   p.UpdatedAt,
	}
	if !p.EndDate.IsZero() {
		end := p.EndDate
		m.EndDate = &end
	}

	switch rule := p.Rule.(type) {
	case pricing.PercentOff:
		m.Kind, m.Value = string(rule.Kind()), rule.Percent
	case pricing.AmountOff:
		m.Kind, m.Value = string(rule.Kind()), rule.Amount
	case pricing.SpecialPrice:
		m.Kind, m.Value = string(rule.Kind()), rule.Price
	}
	return m
}

func toPromotionEntity(m *PromotionModel) *pricing.Promotion {
	p := &pricing.Promotion{
		ID:          m.ID,
		Name:        m.Name,
		Scope:       pricing.PromotionScope(m.Scope),
		ProductIDs:  m.ProductIDs,
		CategoryIDs: m.CategoryIDs,
		StartDate:   m.StartDate,
		IsActive:    m.IsActive,
		Status:      pricing.PromotionStatus(m.Status),
		Priority:    m.Priority,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.EndDate != nil {
		p.EndDate = *m.EndDate
	}

	switch pricing.PromotionKind(m.Kind) {
	case pricing.PromotionPercentOff:
		p.Rule = pricing.PercentOff{Percent: m.Value}
	case pricing.PromotionAmountOff:
		p.Rule = pricing.AmountOff{Amount: m.Value}
	case pricing.PromotionSpecialPrice:
		p.Rule = pricing.SpecialPrice{Price: m.Value}
	}
	return p
}
