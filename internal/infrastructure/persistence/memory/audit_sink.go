package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xiebiao/medbulk/internal/domain/audit"
)

// AuditSink 审计记录(内存)
// 审计在事务提交后写入,不参与Store的快照回滚
type AuditSink struct {
	mu      sync.Mutex
	records []audit.Record
}

// NewAuditSink 创建审计Sink
func NewAuditSink() *AuditSink {
	return &AuditSink{}
}

var _ audit.Sink = (*AuditSink)(nil)

func (s *AuditSink) Record(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records 已写入的审计记录
func (s *AuditSink) Records() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}
