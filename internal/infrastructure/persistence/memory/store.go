package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/order"
	"github.com/xiebiao/medbulk/internal/domain/pricing"
	"github.com/xiebiao/medbulk/internal/domain/product"
	"github.com/xiebiao/medbulk/internal/domain/purchase"
	"github.com/xiebiao/medbulk/pkg/txn"
)

// Store 内存存储,实现全部仓储端口
// 设计说明:
// 1. 事务串行执行(txMu),效果等同于对所有行加锁,正确性与MySQL行锁一致
// 2. 开启事务时做快照,fn返回error或panic时整体恢复
// 3. mu只保护数据读写本身;事务外的读取可能看到进行中事务的写入
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
}

type state struct {
	seq            map[string]uint
	products       map[uint]product.Product
	batches        map[uint]product.Batch
	inventories    map[uint]inventory.Inventory
	movements      []inventory.Movement
	tiers          map[uint]pricing.BulkPriceTier
	taxes          map[uint]pricing.Tax
	discounts      map[uint]pricing.Discount
	promotions     map[uint]pricing.Promotion
	orders         map[uint]order.Order
	purchaseOrders map[uint]purchase.PurchaseOrder
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{data: &state{
		seq:            map[string]uint{},
		products:       map[uint]product.Product{},
		batches:        map[uint]product.Batch{},
		inventories:    map[uint]inventory.Inventory{},
		tiers:          map[uint]pricing.BulkPriceTier{},
		taxes:          map[uint]pricing.Tax{},
		discounts:      map[uint]pricing.Discount{},
		promotions:     map[uint]pricing.Promotion{},
		orders:         map[uint]order.Order{},
		purchaseOrders: map[uint]purchase.PurchaseOrder{},
	}}
}

// clone 快照: map逐个复制值;含切片的实体在写入时已深拷贝,快照只需复制map本身
func (s *state) clone() *state {
	return &state{
		seq:            maps.Clone(s.seq),
		products:       maps.Clone(s.products),
		batches:        maps.Clone(s.batches),
		inventories:    maps.Clone(s.inventories),
		movements:      slices.Clone(s.movements),
		tiers:          maps.Clone(s.tiers),
		taxes:          maps.Clone(s.taxes),
		discounts:      maps.Clone(s.discounts),
		promotions:     maps.Clone(s.promotions),
		orders:         maps.Clone(s.orders),
		purchaseOrders: maps.Clone(s.purchaseOrders),
	}
}

func (s *state) next(table string) uint {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

func (s *Store) restore(snap *state) {
	s.mu.Lock()
	s.data = snap
	s.mu.Unlock()
}

type txKey struct{}

// TxManager 内存事务管理器
type TxManager struct {
	store *Store
}

// NewTxManager 创建事务管理器
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

var _ txn.Manager = (*TxManager)(nil)

// Transaction 执行事务
// ctx已在事务中时直接加入;否则独占执行,提交后运行AfterCommit回调
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	hooks, err := m.run(ctx, fn)
	if err != nil {
		return err
	}
	hooks.Run()
	return nil
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error) (*txn.Hooks, error) {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	snap := m.store.snapshot()
	txCtx, hooks := txn.Begin(ctx)
	txCtx = context.WithValue(txCtx, txKey{}, struct{}{})

	committed := false
	defer func() {
		if !committed {
			m.store.restore(snap)
		}
	}()

	if err := fn(txCtx); err != nil {
		return nil, err
	}
	committed = true
	return hooks, nil
}
