package notification

import (
	"context"
	"sync"
	"time"
)

// LocalThrottle 进程内的提醒限流,未启用Redis时使用
// 只在单实例内有效
type LocalThrottle struct {
	mu    sync.Mutex
	ttl   time.Duration
	until map[uint]time.Time
	now   func() time.Time
}

// NewLocalThrottle 创建进程内限流器
func NewLocalThrottle(ttl time.Duration) *LocalThrottle {
	return &LocalThrottle{
		ttl:   ttl,
		until: make(map[uint]time.Time),
		now:   time.Now,
	}
}

var _ Throttle = (*LocalThrottle)(nil)

func (t *LocalThrottle) Acquire(_ context.Context, productID uint) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if until, ok := t.until[productID]; ok && now.Before(until) {
		return false, nil
	}
	t.until[productID] = now.Add(t.ttl)
	return true, nil
}

func (t *LocalThrottle) Reset(_ context.Context, productID uint) error {
	t.mu.Lock()
	delete(t.until, productID)
	t.mu.Unlock()
	return nil
}
