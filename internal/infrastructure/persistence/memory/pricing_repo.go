package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/xiebiao/medbulk/internal/domain/pricing"
)

// TierRepository 阶梯价仓储
type TierRepository struct {
	store *Store
}

// NewTierRepository 创建阶梯价仓储
func NewTierRepository(store *Store) *TierRepository {
	return &TierRepository{store: store}
}

// Add 新增阶梯
func (r *TierRepository) Add(_ context.Context, tier *pricing.BulkPriceTier) error {
	return r.store.write(func(d *state) error {
		tier.ID = d.next("tiers")
		d.tiers[tier.ID] = *tier
		return nil
	})
}

func (r *TierRepository) ListByProduct(_ context.Context, productID uint) ([]pricing.BulkPriceTier, error) {
	var tiers []pricing.BulkPriceTier
	r.store.read(func(d *state) {
		for _, t := range d.tiers {
			if t.ProductID == productID {
				tiers = append(tiers, t)
			}
		}
	})
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].ID < tiers[j].ID })
	return tiers, nil
}

// TaxRepository 税率仓储
type TaxRepository struct {
	store *Store
}

// NewTaxRepository 创建税率仓储
func NewTaxRepository(store *Store) *TaxRepository {
	return &TaxRepository{store: store}
}

// Add 新增税率
func (r *TaxRepository) Add(_ context.Context, tax *pricing.Tax) error {
	return r.store.write(func(d *state) error {
		tax.ID = d.next("taxes")
		d.taxes[tax.ID] = *tax
		return nil
	})
}

func (r *TaxRepository) FindByID(_ context.Context, id uint) (*pricing.Tax, error) {
	var (
		found pricing.Tax
		ok    bool
	)
	r.store.read(func(d *state) {
		found, ok = d.taxes[id]
	})
	if !ok {
		return nil, pricing.ErrTaxNotFound
	}
	return &found, nil
}

// DiscountRepository 优惠仓储
type DiscountRepository struct {
	store *Store
}

// NewDiscountRepository 创建优惠仓储
func NewDiscountRepository(store *Store) *DiscountRepository {
	return &DiscountRepository{store: store}
}

// Add 新增优惠,优惠码统一转大写
func (r *DiscountRepository) Add(_ context.Context, discount *pricing.Discount) error {
	return r.store.write(func(d *state) error {
		discount.ID = d.next("discounts")
		discount.Code = pricing.NormalizeCode(discount.Code)
		d.discounts[discount.ID] = cloneDiscount(*discount)
		return nil
	})
}

func (r *DiscountRepository) FindByCode(_ context.Context, code string) (*pricing.Discount, error) {
	code = pricing.NormalizeCode(code)
	var found *pricing.Discount
	r.store.read(func(d *state) {
		for _, disc := range d.discounts {
			if code != "" && disc.Code == code {
				c := cloneDiscount(disc)
				found = &c
				return
			}
		}
	})
	if found == nil {
		return nil, pricing.ErrDiscountNotFound
	}
	return found, nil
}

func (r *DiscountRepository) ListAutomatic(_ context.Context) ([]*pricing.Discount, error) {
	var result []*pricing.Discount
	r.store.read(func(d *state) {
		for _, disc := range d.discounts {
			if disc.IsAutomatic && disc.IsActive {
				c := cloneDiscount(disc)
				result = append(result, &c)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *DiscountRepository) IncrementUsage(_ context.Context, id uint) error {
	return r.store.write(func(d *state) error {
		disc, ok := d.discounts[id]
		if !ok {
			return pricing.ErrDiscountNotFound
		}
		if disc.UsageLimit != nil && disc.UsedCount >= *disc.UsageLimit {
			return pricing.ErrDiscountUsageExhausted
		}
		disc.UsedCount++
		d.discounts[id] = disc
		return nil
	})
}

func cloneDiscount(d pricing.Discount) pricing.Discount {
	d.ApplicableProductIDs = slices.Clone(d.ApplicableProductIDs)
	d.ApplicableCategoryIDs = slices.Clone(d.ApplicableCategoryIDs)
	return d
}

// PromotionRepository 促销仓储
type PromotionRepository struct {
	store *Store
}

// NewPromotionRepository 创建促销仓储
func NewPromotionRepository(store *Store) *PromotionRepository {
	return &PromotionRepository{store: store}
}

func (r *PromotionRepository) FindByID(_ context.Context, id uint) (*pricing.Promotion, error) {
	var (
		found pricing.Promotion
		ok    bool
	)
	r.store.read(func(d *state) {
		found, ok = d.promotions[id]
	})
	if !ok {
		return nil, pricing.ErrPromotionNotFound
	}
	found = clonePromotion(found)
	return &found, nil
}

func (r *PromotionRepository) ListRunning(_ context.Context, at time.Time) ([]*pricing.Promotion, error) {
	var result []*pricing.Promotion
	r.store.read(func(d *state) {
		for _, p := range d.promotions {
			if p.IsRunningAt(at) {
				c := clonePromotion(p)
				result = append(result, &c)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Save ID为0时新建
func (r *PromotionRepository) Save(_ context.Context, p *pricing.Promotion) error {
	return r.store.write(func(d *state) error {
		if p.ID == 0 {
			p.ID = d.next("promotions")
		} else if _, ok := d.promotions[p.ID]; !ok {
			return pricing.ErrPromotionNotFound
		}
		d.promotions[p.ID] = clonePromotion(*p)
		return nil
	})
}

func clonePromotion(p pricing.Promotion) pricing.Promotion {
	p.ProductIDs = slices.Clone(p.ProductIDs)
	p.CategoryIDs = slices.Clone(p.CategoryIDs)
	return p
}

var (
	_ pricing.TierRepository      = (*TierRepository)(nil)
	_ pricing.TaxRepository       = (*TaxRepository)(nil)
	_ pricing.DiscountRepository  = (*DiscountRepository)(nil)
	_ pricing.PromotionRepository = (*PromotionRepository)(nil)
)
