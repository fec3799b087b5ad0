package inventory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xiebiao/medbulk/internal/domain/audit"
	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/domain/product"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
	"github.com/xiebiao/medbulk/pkg/logger"
	"github.com/xiebiao/medbulk/pkg/metrics"
	"github.com/xiebiao/medbulk/pkg/tracing"
	"github.com/xiebiao/medbulk/pkg/txn"
)

const tracerName = "medbulk/inventory"

// StockChange 一次库存变更的结果
type StockChange struct {
	ProductID        uint   `json:"product_id"`
	Applied          bool   `json:"applied"` // false: 商品不跟踪库存,未做任何变更
	PreviousStock    int    `json:"previous_stock"`
	NewStock         int    `json:"new_stock"`
	ReservedQuantity int    `json:"reserved_quantity"`
	MovementID       uint   `json:"movement_id,omitempty"`
	ReferenceNumber  string `json:"reference_number,omitempty"`
	BatchQuantity    int    `json:"batch_quantity,omitempty"` // 批次库存的变化量(出库时为实际从批次扣减的数量)
}

// ReduceRequest 出库请求
type ReduceRequest struct {
	ProductID       uint
	Quantity        int
	ReferenceType   inventory.ReferenceType
	ReferenceID     *uint
	ReferenceNumber string
	BatchNumber     string // 按批次定价的销售同时扣减该批次
}

// IncreaseRequest 入库请求
type IncreaseRequest struct {
	ProductID       uint
	Quantity        int
	Type            inventory.MovementType // 默认purchase
	ReferenceType   inventory.ReferenceType
	ReferenceID     *uint
	ReferenceNumber string
	BatchNumber     string
	BatchQuantity   int // 计入批次的数量,0表示与Quantity相同
	ExpiryDate      *time.Time
	CostPrice       *decimal.Decimal
	Reason          string
}

func (r IncreaseRequest) batchQuantity() int {
	if r.BatchQuantity > 0 {
		return min(r.BatchQuantity, r.Quantity)
	}
	return r.Quantity
}

// ExpiringBatch 临期批次
type ExpiringBatch struct {
	Batch    *product.Batch `json:"batch"`
	DaysLeft int            `json:"days_left"`
}

// Options 引擎可选配置
type Options struct {
	// NotifyTimeout 提交后通知/审计的超时,默认5秒
	NotifyTimeout time.Duration
	// Now 时钟,测试时注入
	Now func() time.Time
}

// Engine 库存引擎
// 设计说明:
// 1. 所有变更都在一个事务内: 锁商品行 → 计算 → 写商品 → 追加流水 → 同步明细行
// 2. 例外: 批次入库先写批次明细行再追加流水,流水要引用新明细行的ID(同一事务内,不影响原子性)
// 3. ctx已带事务时加入外层事务(下单时多个商品在同一事务内预占)
// 4. 低库存提醒、审计在提交后异步执行,失败只记日志,不回滚已提交的库存变更
type Engine struct {
	products    product.Repository
	batches     product.BatchRepository
	inventories inventory.Repository
	ledger      inventory.Ledger
	txManager   txn.Manager
	notifier    inventory.LowStockNotifier
	auditor     audit.Sink
	logger      *zap.Logger

	notifyTimeout time.Duration
	now           func() time.Time
	wg            sync.WaitGroup
}

// NewEngine 创建库存引擎
// notifier、auditor可以为nil(不提醒/不审计)
func NewEngine(
	products product.Repository,
	batches product.BatchRepository,
	inventories inventory.Repository,
	ledger inventory.Ledger,
	txManager txn.Manager,
	notifier inventory.LowStockNotifier,
	auditor audit.Sink,
	logger *zap.Logger,
	opts Options,
) *Engine {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		products:      products,
		batches:       batches,
		inventories:   inventories,
		ledger:        ledger,
		txManager:     txManager,
		notifier:      notifier,
		auditor:       auditor,
		logger:        logger,
		notifyTimeout: opts.NotifyTimeout,
		now:           opts.Now,
	}
}

// ReserveStock 预占库存
// 只增加明细行的预占数量,实际库存不变;可用量不足且不允许缺货下单时拒绝
func (e *Engine) ReserveStock(ctx context.Context, productID uint, quantity int, referenceNumber string) (*StockChange, error) {
	if quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}

	return e.mutate(ctx, "reserve", productID, func(ctx context.Context) (*StockChange, error) {
		p, err := e.products.LockByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if !p.TrackInventory {
			return untracked(p), nil
		}

		inv, err := e.lockOrCreateProductLevel(ctx, p)
		if err != nil {
			return nil, err
		}

		before := p.StockQuantity - inv.ReservedQuantity
		if before < quantity && !p.AllowBackorder {
			return nil, inventory.ErrInsufficientStock.WithDetail(
				"商品#%d 需要%d 可用%d", p.ID, quantity, max(0, before))
		}

		inv.Reserve(quantity)
		inv.SyncQuantity(p.StockQuantity)
		if err := e.inventories.Save(ctx, inv); err != nil {
			return nil, err
		}

		m := inventory.NewMovement(p.ID, inventory.MovementReserved, before, before-quantity).
			WithReference(inventory.ReferenceOrder, nil, referenceNumber)
		m.InventoryID = &inv.ID
		if err := e.append(ctx, m); err != nil {
			return nil, err
		}

		return &StockChange{
			ProductID:        p.ID,
			Applied:          true,
			PreviousStock:    p.StockQuantity,
			NewStock:         p.StockQuantity,
			ReservedQuantity: inv.ReservedQuantity,
			MovementID:       m.ID,
			ReferenceNumber:  referenceNumber,
		}, nil
	})
}

// ReleaseReservedStock 释放预占,最多释放到0
func (e *Engine) ReleaseReservedStock(ctx context.Context, productID uint, quantity int, referenceNumber string) (*StockChange, error) {
	if quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}

	return e.mutate(ctx, "release", productID, func(ctx context.Context) (*StockChange, error) {
		p, err := e.products.LockByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if !p.TrackInventory {
			return untracked(p), nil
		}

		inv, err := e.inventories.LockByProduct(ctx, p.ID, "")
		if err != nil && !errors.Is(err, inventory.ErrInventoryNotFound) {
			return nil, err
		}

		// 没有明细行说明没有预占,仍记一条变更为0的流水
		released, reserved := 0, 0
		var inventoryID *uint
		if inv != nil {
			released = inv.Release(quantity)
			inv.SyncQuantity(p.StockQuantity)
			if err := e.inventories.Save(ctx, inv); err != nil {
				return nil, err
			}
			reserved, inventoryID = inv.ReservedQuantity, &inv.ID
		}

		before := p.StockQuantity - (reserved + released)
		m := inventory.NewMovement(p.ID, inventory.MovementUnreserved, before, before+released).
			WithReference(inventory.ReferenceOrder, nil, referenceNumber)
		m.InventoryID = inventoryID
		if err := e.append(ctx, m); err != nil {
			return nil, err
		}

		return &StockChange{
			ProductID:        p.ID,
			Applied:          true,
			PreviousStock:    p.StockQuantity,
			NewStock:         p.StockQuantity,
			ReservedQuantity: reserved,
			MovementID:       m.ID,
			ReferenceNumber:  referenceNumber,
		}, nil
	})
}

// ReduceStock 出库(销售)
// 库存最低扣到0,流水记录实际扣减量;明细行的预占同步扣减
// 提交后库存不高于低库存阈值时异步发送提醒
func (e *Engine) ReduceStock(ctx context.Context, req ReduceRequest) (*StockChange, error) {
	if req.Quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	if req.ReferenceType == "" {
		req.ReferenceType = inventory.ReferenceOrder
	}

	return e.mutate(ctx, "reduce", req.ProductID, func(ctx context.Context) (*StockChange, error) {
		p, err := e.products.LockByID(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.TrackInventory {
			return untracked(p), nil
		}

		inv, err := e.inventories.LockByProduct(ctx, p.ID, "")
		if err != nil && !errors.Is(err, inventory.ErrInventoryNotFound) {
			return nil, err
		}

		previous := p.StockQuantity
		newStock := max(0, previous-req.Quantity)
		if previous < req.Quantity {
			logger.WithTrace(ctx, e.logger).Warn("扣减数量超过库存,按0处理",
				zap.Uint("product_id", p.ID),
				zap.Int("stock", previous),
				zap.Int("requested", req.Quantity),
				zap.String("reference_number", req.ReferenceNumber),
			)
		}
		p.SetStock(newStock)
		if err := e.products.Save(ctx, p); err != nil {
			return nil, err
		}

		m := inventory.NewMovement(p.ID, inventory.MovementSale, previous, newStock).
			WithReference(req.ReferenceType, req.ReferenceID, req.ReferenceNumber).
			WithCost(p.CostPrice)
		m.BatchNumber = req.BatchNumber

		reserved := 0
		if inv != nil {
			m.InventoryID = &inv.ID
		}
		if err := e.append(ctx, m); err != nil {
			return nil, err
		}

		if inv != nil {
			inv.SyncQuantity(newStock)
			inv.Release(req.Quantity)
			inv.MarkSold(e.now())
			if err := e.inventories.Save(ctx, inv); err != nil {
				return nil, err
			}
			reserved = inv.ReservedQuantity
		}

		batchTaken, err := e.sellFromBatch(ctx, p.ID, req.BatchNumber, previous-newStock)
		if err != nil {
			return nil, err
		}

		if newStock <= p.LowStockThreshold {
			snapshot := *p
			e.afterCommit(ctx, func(bg context.Context) { e.notifyLowStock(bg, &snapshot) })
		}

		return &StockChange{
			ProductID:        p.ID,
			Applied:          true,
			PreviousStock:    previous,
			NewStock:         newStock,
			ReservedQuantity: reserved,
			MovementID:       m.ID,
			ReferenceNumber:  req.ReferenceNumber,
			BatchQuantity:    batchTaken,
		}, nil
	})
}

// IncreaseStock 入库(采购、退货、调拨等)
// 指定批号时按(商品, 批号)维护批次明细行,不存在则创建
func (e *Engine) IncreaseStock(ctx context.Context, req IncreaseRequest) (*StockChange, error) {
	if req.Quantity <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	if req.Type == "" {
		req.Type = inventory.MovementPurchase
	}
	if !req.Type.IsInbound() {
		return nil, inventory.ErrInvalidMovementType.WithDetail("type=%s", req.Type)
	}

	return e.mutate(ctx, "increase", req.ProductID, func(ctx context.Context) (*StockChange, error) {
		p, err := e.products.LockByID(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}

		previous := p.StockQuantity
		newStock := previous + req.Quantity
		p.SetStock(newStock)
		if req.Type != inventory.MovementReturn {
			p.RecordLot(req.BatchNumber, req.ExpiryDate)
		}
		if err := e.products.Save(ctx, p); err != nil {
			return nil, err
		}

		cost := p.CostPrice
		if req.CostPrice != nil {
			cost = *req.CostPrice
		}
		m := inventory.NewMovement(p.ID, req.Type, previous, newStock).
			WithReference(req.ReferenceType, req.ReferenceID, req.ReferenceNumber).
			WithCost(cost)
		m.BatchNumber = req.BatchNumber
		m.Reason = req.Reason

		inv, err := e.upsertInbound(ctx, p, req, cost)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			m.InventoryID = &inv.ID
		}
		if err := e.append(ctx, m); err != nil {
			return nil, err
		}

		change := &StockChange{
			ProductID:       p.ID,
			Applied:         true,
			PreviousStock:   previous,
			NewStock:        newStock,
			MovementID:      m.ID,
			ReferenceNumber: req.ReferenceNumber,
		}
		if req.BatchNumber != "" {
			change.BatchQuantity = req.batchQuantity()
		}
		// 采购入库的批次由收货流程维护(价格来自采购单),退货只回补数量
		if req.Type == inventory.MovementReturn {
			if err := e.returnToBatch(ctx, p.ID, req.BatchNumber, change.BatchQuantity); err != nil {
				return nil, err
			}
		}
		level, err := e.syncProductLevel(ctx, p)
		if err != nil {
			return nil, err
		}
		if level != nil {
			change.ReservedQuantity = level.ReservedQuantity
		}
		return change, nil
	})
}

// AdjustStock 盘点调整,直接设置库存为newQuantity
// 提交后写审计记录(与库存流水分开: 流水记数量,审计记谁、为什么)
func (e *Engine) AdjustStock(ctx context.Context, productID uint, newQuantity int, reason string) (*StockChange, error) {
	if newQuantity < 0 {
		return nil, inventory.ErrNegativeTarget
	}

	return e.mutate(ctx, "adjust", productID, func(ctx context.Context) (*StockChange, error) {
		p, err := e.products.LockByID(ctx, productID)
		if err != nil {
			return nil, err
		}

		previous := p.StockQuantity
		p.SetStock(newQuantity)
		if err := e.products.Save(ctx, p); err != nil {
			return nil, err
		}

		refNumber := "ADJ-" + uuid.NewString()
		m := inventory.NewMovement(p.ID, inventory.MovementAdjustment, previous, newQuantity).
			WithReference(inventory.ReferenceAdjustment, nil, refNumber)
		m.Reason = reason
		if err := e.append(ctx, m); err != nil {
			return nil, err
		}

		change := &StockChange{
			ProductID:       p.ID,
			Applied:         true,
			PreviousStock:   previous,
			NewStock:        newQuantity,
			MovementID:      m.ID,
			ReferenceNumber: refNumber,
		}
		level, err := e.syncProductLevel(ctx, p)
		if err != nil {
			return nil, err
		}
		if level != nil {
			change.ReservedQuantity = level.ReservedQuantity
		}

		rec := audit.Record{
			Action:     audit.ActionStockAdjusted,
			EntityType: "product",
			EntityID:   p.ID,
			Before:     map[string]interface{}{"stock_quantity": previous},
			After:      map[string]interface{}{"stock_quantity": newQuantity, "reference_number": refNumber},
			Reason:     reason,
			Actor:      audit.ActorFrom(ctx),
			TraceID:    tracing.ExtractTraceID(ctx),
			CreatedAt:  e.now(),
		}
		e.afterCommit(ctx, func(bg context.Context) { e.recordAudit(bg, rec) })

		return change, nil
	})
}

// LowStockProducts 低库存商品
func (e *Engine) LowStockProducts(ctx context.Context) ([]*product.Product, error) {
	return e.products.ListLowStock(ctx)
}

// OutOfStockProducts 缺货商品
func (e *Engine) OutOfStockProducts(ctx context.Context) ([]*product.Product, error) {
	return e.products.ListOutOfStock(ctx)
}

// ExpiringProducts 过期日落在[今天, 今天+daysAhead]的批次(按天比较)
func (e *Engine) ExpiringProducts(ctx context.Context, daysAhead int) ([]*ExpiringBatch, error) {
	if daysAhead < 0 {
		return nil, apperrors.ErrInvalidParams.WithDetail("daysAhead=%d", daysAhead)
	}

	today := product.DayStart(e.now())
	to := today.AddDate(0, 0, daysAhead+1).Add(-time.Nanosecond)
	batches, err := e.batches.ListExpiring(ctx, today, to)
	if err != nil {
		return nil, err
	}

	result := make([]*ExpiringBatch, 0, len(batches))
	for _, b := range batches {
		days := product.DayStart(b.ExpiryDate).Sub(today).Hours() / 24
		result = append(result, &ExpiringBatch{Batch: b, DaysLeft: int(days + 0.5)})
	}
	return result, nil
}

// Movements 商品库存流水,最新的在前
func (e *Engine) Movements(ctx context.Context, productID uint, filter inventory.MovementFilter, page, pageSize int) ([]*inventory.Movement, int64, error) {
	if _, err := e.products.FindByID(ctx, productID); err != nil {
		return nil, 0, err
	}
	page, pageSize = inventory.NormalizePage(page, pageSize)
	return e.ledger.ListByProduct(ctx, productID, filter, page, pageSize)
}

// WaitNotifications 等待进行中的提交后任务(优雅退出、测试)
func (e *Engine) WaitNotifications() {
	e.wg.Wait()
}

// =========================================
// 内部实现
// =========================================

// mutate 在事务中执行变更,统一处理Span、指标和日志
func (e *Engine) mutate(ctx context.Context, op string, productID uint, fn func(ctx context.Context) (*StockChange, error)) (*StockChange, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "inventory."+op)
	span.SetAttributes(attribute.Int64("product_id", int64(productID)))

	var change *StockChange
	err := e.txManager.Transaction(ctx, func(txCtx context.Context) error {
		c, err := fn(txCtx)
		if err != nil {
			return err
		}
		change = c
		return nil
	})

	reason := ""
	if err != nil {
		reason = failureReason(err)
		logger.WithTrace(ctx, e.logger).Warn("库存变更失败",
			zap.String("operation", op),
			zap.Uint("product_id", productID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		change = nil
	}
	metrics.ObserveStockMutation(op, start, reason)
	tracing.EndSpan(span, err)
	return change, err
}

// append 追加流水,填充操作人
func (e *Engine) append(ctx context.Context, m *inventory.Movement) error {
	if !m.Balanced() {
		return inventory.ErrUnbalancedMovement
	}
	if m.CreatedBy == "" {
		m.CreatedBy = audit.ActorFrom(ctx)
	}
	if err := e.ledger.Append(ctx, m); err != nil {
		return err
	}
	movementType := string(m.Type)
	txn.AfterCommit(ctx, func() { metrics.RecordStockMovement(movementType) })
	return nil
}

func (e *Engine) lockOrCreateProductLevel(ctx context.Context, p *product.Product) (*inventory.Inventory, error) {
	inv, err := e.inventories.LockByProduct(ctx, p.ID, "")
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, inventory.ErrInventoryNotFound) {
		return nil, err
	}
	inv = inventory.NewProductLevel(p.ID, p.StockQuantity, p.LowStockThreshold)
	if err := e.inventories.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// syncProductLevel 商品级明细行存在时同步数量和状态
func (e *Engine) syncProductLevel(ctx context.Context, p *product.Product) (*inventory.Inventory, error) {
	inv, err := e.inventories.LockByProduct(ctx, p.ID, "")
	if errors.Is(err, inventory.ErrInventoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	inv.SyncQuantity(p.StockQuantity)
	if err := e.inventories.Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// upsertInbound 入库时维护批次明细行
// 未指定批号时只更新已存在的商品级明细行(由syncProductLevel完成)
func (e *Engine) upsertInbound(ctx context.Context, p *product.Product, req IncreaseRequest, cost decimal.Decimal) (*inventory.Inventory, error) {
	if req.BatchNumber == "" {
		return nil, nil
	}

	now := e.now()
	inv, err := e.inventories.LockByProduct(ctx, p.ID, req.BatchNumber)
	switch {
	case errors.Is(err, inventory.ErrInventoryNotFound) && req.Type == inventory.MovementReturn:
		// 批次从未建过明细行,退货只计入商品级
		return nil, nil
	case errors.Is(err, inventory.ErrInventoryNotFound):
		inv = &inventory.Inventory{
			ProductID:    p.ID,
			BatchNumber:  req.BatchNumber,
			ReorderLevel: p.LowStockThreshold,
			CostPrice:    cost,
			ExpiryDate:   req.ExpiryDate,
		}
		inv.SyncQuantity(req.batchQuantity())
		inv.MarkRestocked(now)
		if err := e.inventories.Create(ctx, inv); err != nil {
			return nil, err
		}
		return inv, nil
	case err != nil:
		return nil, err
	}

	inv.SyncQuantity(inv.Quantity + req.batchQuantity())
	inv.CostPrice = cost
	if req.ExpiryDate != nil {
		inv.ExpiryDate = req.ExpiryDate
	}
	inv.MarkRestocked(now)
	if err := e.inventories.Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// sellFromBatch 从批次扣减(批次和批次明细行),返回实际扣减数量
// 批次不存在时不扣减:批次可能已被清理,商品级库存以流水为准
func (e *Engine) sellFromBatch(ctx context.Context, productID uint, batchNumber string, quantity int) (int, error) {
	if batchNumber == "" || quantity <= 0 {
		return 0, nil
	}

	b, err := e.batches.FindByNumber(ctx, productID, batchNumber)
	if errors.Is(err, product.ErrBatchNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	taken := b.Sell(quantity)
	if taken == 0 {
		return 0, nil
	}
	if err := e.batches.Save(ctx, b); err != nil {
		return 0, err
	}

	inv, err := e.inventories.LockByProduct(ctx, productID, batchNumber)
	switch {
	case errors.Is(err, inventory.ErrInventoryNotFound):
		return taken, nil
	case err != nil:
		return 0, err
	}
	inv.SyncQuantity(max(0, inv.Quantity-taken))
	inv.MarkSold(e.now())
	if err := e.inventories.Save(ctx, inv); err != nil {
		return 0, err
	}
	return taken, nil
}

// returnToBatch 退货回补批次数量(批次明细行已由upsertInbound处理)
func (e *Engine) returnToBatch(ctx context.Context, productID uint, batchNumber string, quantity int) error {
	if batchNumber == "" || quantity <= 0 {
		return nil
	}

	b, err := e.batches.FindByNumber(ctx, productID, batchNumber)
	if errors.Is(err, product.ErrBatchNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	b.Receive(quantity)
	return e.batches.Save(ctx, b)
}

// afterCommit 注册提交后异步任务
// 任务使用脱离事务的ctx: 只保留操作人和链路信息,不携带已提交的事务句柄
func (e *Engine) afterCommit(ctx context.Context, task func(bg context.Context)) {
	detached := audit.WithActor(context.Background(), audit.ActorFrom(ctx))
	detached = trace.ContextWithSpanContext(detached, trace.SpanContextFromContext(ctx))

	txn.AfterCommit(ctx, func() {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			bg, cancel := context.WithTimeout(detached, e.notifyTimeout)
			defer cancel()
			task(bg)
		}()
	})
}

func (e *Engine) notifyLowStock(ctx context.Context, p *product.Product) {
	if e.notifier == nil {
		return
	}
	log := logger.WithTrace(ctx, e.logger).With(
		zap.Uint("product_id", p.ID),
		zap.Int("stock_quantity", p.StockQuantity),
		zap.Int("low_stock_threshold", p.LowStockThreshold),
	)

	err := e.notifier.NotifyLowStock(ctx, p)
	switch {
	case err == nil:
		metrics.RecordLowStockNotification("sent")
		log.Info("已发送低库存提醒")
	case errors.Is(err, inventory.ErrAlertThrottled):
		metrics.RecordLowStockNotification("throttled")
		log.Debug("低库存提醒已在抑制窗口内发送过")
	default:
		metrics.RecordLowStockNotification("failed")
		log.Warn("低库存提醒发送失败", zap.Error(err))
	}
}

func (e *Engine) recordAudit(ctx context.Context, rec audit.Record) {
	if e.auditor == nil {
		return
	}
	if err := e.auditor.Record(ctx, rec); err != nil {
		metrics.RecordAudit("failed")
		logger.WithTrace(ctx, e.logger).Error("审计记录写入失败",
			zap.String("action", rec.Action),
			zap.Uint("entity_id", rec.EntityID),
			zap.Error(err),
		)
		return
	}
	metrics.RecordAudit("recorded")
}

func untracked(p *product.Product) *StockChange {
	return &StockChange{
		ProductID:     p.ID,
		Applied:       false,
		PreviousStock: p.StockQuantity,
		NewStock:      p.StockQuantity,
	}
}

// failureReason 指标标签
func failureReason(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return "internal"
	}
	switch {
	case appErr.Code == apperrors.ErrCodeInsufficientStock:
		return "insufficient_stock"
	case appErr.Code == apperrors.ErrCodeConcurrencyConflict:
		return "conflict"
	case appErr.Code >= apperrors.ErrCodeNotFound && appErr.Code < apperrors.ErrCodeNotFound+100:
		return "not_found"
	case appErr.Code >= apperrors.ErrCodeInvalidParams && appErr.Code < apperrors.ErrCodeInternal:
		return "invalid_params"
	case appErr.Code < apperrors.ErrCodeInternal:
		return "rejected"
	default:
		return "internal"
	}
}
