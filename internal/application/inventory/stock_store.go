package inventory

import (
	"context"
	"errors"

	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/product"
)

// Availability 可用库存
// Unlimited为true表示商品不跟踪库存,Quantity无意义
type Availability struct {
	Unlimited bool `json:"unlimited"`
	Quantity  int  `json:"quantity"`
}

// AvailabilityResult 可售校验结果
type AvailabilityResult struct {
	Available    bool `json:"available"`
	CurrentStock int  `json:"current_stock"` // 可用量 = 库存 - 预占
	IsBackorder  bool `json:"is_backorder"`  // 因允许缺货下单才放行
	Unlimited    bool `json:"unlimited"`
}

// StockStore 库存查询
// 可用量已扣除预占数量: 两个购物车不能同时通过最后一件商品的校验
type StockStore struct {
	products    product.Repository
	inventories inventory.Repository
}

// NewStockStore 创建库存查询
func NewStockStore(products product.Repository, inventories inventory.Repository) *StockStore {
	return &StockStore{products: products, inventories: inventories}
}

// GetAvailable 查询可用库存
func (s *StockStore) GetAvailable(ctx context.Context, productID uint) (Availability, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Availability{}, err
	}
	return s.available(ctx, p)
}

func (s *StockStore) available(ctx context.Context, p *product.Product) (Availability, error) {
	if !p.TrackInventory {
		return Availability{Unlimited: true}, nil
	}

	reserved := 0
	inv, err := s.inventories.FindByProduct(ctx, p.ID, "")
	switch {
	case err == nil:
		reserved = inv.ReservedQuantity
	case !errors.Is(err, inventory.ErrInventoryNotFound):
		return Availability{}, err
	}

	return Availability{Quantity: max(0, p.StockQuantity-reserved)}, nil
}

// CheckAvailability 校验能否购买quantity件
//
//	不跟踪库存           → 可售
//	可用量 >= quantity   → 可售
//	允许缺货下单         → 可售, IsBackorder=true
func (s *StockStore) CheckAvailability(ctx context.Context, productID uint, quantity int) (*AvailabilityResult, error) {
	if quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}

	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	avail, err := s.available(ctx, p)
	if err != nil {
		return nil, err
	}

	switch {
	case avail.Unlimited:
		return &AvailabilityResult{Available: true, Unlimited: true}, nil
	case avail.Quantity >= quantity:
		return &AvailabilityResult{Available: true, CurrentStock: avail.Quantity}, nil
	case p.AllowBackorder:
		return &AvailabilityResult{Available: true, CurrentStock: avail.Quantity, IsBackorder: true}, nil
	default:
		return &AvailabilityResult{Available: false, CurrentStock: avail.Quantity}, nil
	}
}

// DetermineStatus 库存状态
func (s *StockStore) DetermineStatus(quantity, threshold int) inventory.StockStatus {
	return inventory.DetermineStatus(quantity, threshold)
}
