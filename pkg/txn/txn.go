package txn

import (
	"context"
	"sync"
)

// Manager 事务管理器
// fn内所有仓储操作通过ctx共享同一事务: fn返回error回滚,返回nil提交。
// ctx已处于事务中时直接加入外层事务,由最外层负责提交/回滚。
type Manager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type hooksKey struct{}

// Hooks 提交后回调
// 只在最外层事务提交成功后执行;回滚时全部丢弃
type Hooks struct {
	mu  sync.Mutex
	fns []func()
}

// Begin 为新事务创建回调列表并写入ctx
func Begin(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// Active ctx是否处于事务中
func Active(ctx context.Context) bool {
	_, ok := ctx.Value(hooksKey{}).(*Hooks)
	return ok
}

// AfterCommit 注册提交后回调
// ctx不在事务中时立即执行
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey{}).(*Hooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Run 按注册顺序执行回调(提交成功后由Manager调用)
func (h *Hooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
