package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/medbulk/internal/domain/audit"
)

// AuditRepository 审计日志写入audit_logs表
// 审计在业务事务提交后写入,使用独立连接,不加入调用方事务
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建审计仓储
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

var _ audit.Sink = (*AuditRepository)(nil)

func (r *AuditRepository) Record(ctx context.Context, rec audit.Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	model := &AuditLogModel{
		Action:     rec.Action,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Before:     rec.Before,
		After:      rec.After,
		Reason:     rec.Reason,
		Actor:      rec.Actor,
		TraceID:    rec.TraceID,
		CreatedAt:  createdAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return classifyError(err, "写入审计日志失败")
	}
	return nil
}
