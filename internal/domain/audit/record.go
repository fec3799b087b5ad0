package audit

import (
	"context"
	"errors"
	"time"
)

// 审计动作
const (
	ActionStockAdjusted = "inventory.stock_adjusted"
)

// Record 审计记录
// 与库存流水不同: 流水记录数量变化, 审计记录"谁、为什么"改了什么
type Record struct {
	Action     string
	EntityType string
	EntityID   uint
	Before     map[string]interface{}
	After      map[string]interface{}
	Reason     string
	Actor      string
	TraceID    string
	CreatedAt  time.Time
}

// Sink 审计记录落地(数据库、消息队列)
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// Fanout 依次写入多个Sink,单个失败不影响其他,返回合并后的错误
func Fanout(sinks ...Sink) Sink {
	return fanout(sinks)
}

type fanout []Sink

func (f fanout) Record(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
