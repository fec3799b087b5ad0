package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xiebiao/medbulk/internal/domain/product"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

type productRepository struct {
	store *Store
}

// NewProductRepository 创建商品仓储
func NewProductRepository(store *Store) product.Repository {
	return &productRepository{store: store}
}

func (r *productRepository) Create(_ context.Context, p *product.Product) error {
	return r.store.write(func(d *state) error {
		for _, existing := range d.products {
			if existing.SKU != "" && existing.SKU == p.SKU {
				return product.ErrSKUDuplicate
			}
		}
		now := time.Now()
		p.ID = d.next("products")
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		d.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) FindByID(_ context.Context, id uint) (*product.Product, error) {
	var (
		found product.Product
		ok    bool
	)
	r.store.read(func(d *state) {
		found, ok = d.products[id]
	})
	if !ok || found.IsDeleted {
		return nil, product.ErrProductNotFound
	}
	return &found, nil
}

// LockByID 事务已串行执行,加锁查询等同于普通查询
func (r *productRepository) LockByID(ctx context.Context, id uint) (*product.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepository) Save(_ context.Context, p *product.Product) error {
	return r.store.write(func(d *state) error {
		if _, ok := d.products[p.ID]; !ok {
			return product.ErrProductNotFound
		}
		d.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) ListLowStock(_ context.Context) ([]*product.Product, error) {
	return r.list(func(p *product.Product) bool { return p.IsLowStock() }), nil
}

func (r *productRepository) ListOutOfStock(_ context.Context) ([]*product.Product, error) {
	return r.list(func(p *product.Product) bool { return p.IsOutOfStock() }), nil
}

// list 只返回跟踪库存且未删除的商品,按库存升序
func (r *productRepository) list(match func(p *product.Product) bool) []*product.Product {
	var result []*product.Product
	r.store.read(func(d *state) {
		for _, p := range d.products {
			if p.TrackInventory && !p.IsDeleted && match(&p) {
				result = append(result, &p)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].StockQuantity != result[j].StockQuantity {
			return result[i].StockQuantity < result[j].StockQuantity
		}
		return result[i].ID < result[j].ID
	})
	return result
}

type batchRepository struct {
	store *Store
}

// NewBatchRepository 创建批次仓储
func NewBatchRepository(store *Store) product.BatchRepository {
	return &batchRepository{store: store}
}

func (r *batchRepository) FindByNumber(_ context.Context, productID uint, batchNumber string) (*product.Batch, error) {
	var (
		found product.Batch
		ok    bool
	)
	r.store.read(func(d *state) {
		for _, b := range d.batches {
			if b.ProductID == productID && b.BatchNumber == batchNumber {
				found, ok = b, true
				return
			}
		}
	})
	if !ok {
		return nil, product.ErrBatchNotFound
	}
	return &found, nil
}

func (r *batchRepository) LatestActive(_ context.Context, productID uint, asOf time.Time) (*product.Batch, error) {
	var latest *product.Batch
	r.store.read(func(d *state) {
		for _, b := range d.batches {
			if b.ProductID != productID || !b.Usable(asOf) {
				continue
			}
			if latest == nil || b.CreatedAt.After(latest.CreatedAt) ||
				(b.CreatedAt.Equal(latest.CreatedAt) && b.ID > latest.ID) {
				latest = &b
			}
		}
	})
	if latest == nil {
		return nil, product.ErrBatchNotFound
	}
	return latest, nil
}

func (r *batchRepository) Save(_ context.Context, b *product.Batch) error {
	return r.store.write(func(d *state) error {
		now := time.Now()
		if b.ID == 0 {
			for _, existing := range d.batches {
				if existing.ProductID == b.ProductID && existing.BatchNumber == b.BatchNumber {
					return apperrors.New(apperrors.ErrCodeDuplicateEntry, "批号已存在")
				}
			}
			b.ID = d.next("batches")
			if b.CreatedAt.IsZero() {
				b.CreatedAt = now
			}
		} else if _, ok := d.batches[b.ID]; !ok {
			return product.ErrBatchNotFound
		}
		b.UpdatedAt = now
		d.batches[b.ID] = *b
		return nil
	})
}

func (r *batchRepository) ListExpiring(_ context.Context, from, to time.Time) ([]*product.Batch, error) {
	var result []*product.Batch
	r.store.read(func(d *state) {
		for _, b := range d.batches {
			if b.Status != product.BatchStatusActive || b.ExpiryDate.IsZero() {
				continue
			}
			if b.ExpiryDate.Before(from) || b.ExpiryDate.After(to) {
				continue
			}
			result = append(result, &b)
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ExpiryDate.Equal(result[j].ExpiryDate) {
			return result[i].ExpiryDate.Before(result[j].ExpiryDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
