package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xiebiao/medbulk/internal/domain/audit"
	"github.com/xiebiao/medbulk/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

// DefaultAuditRoutingKey 库存调整审计事件的Routing Key
const DefaultAuditRoutingKey = "inventory.stock_adjusted"

// AuditEvent 审计事件消息体
type AuditEvent struct {
	EventID    string                 `json:"event_id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   uint                   `json:"entity_id"`
	Before     map[string]interface{} `json:"before,omitempty"`
	After      map[string]interface{} `json:"after,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Actor      string                 `json:"actor"`
	TraceID    string                 `json:"trace_id,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AuditPublisher 把审计记录发布到RabbitMQ,与MySQL审计表通过audit.Fanout组合
type AuditPublisher struct {
	publisher  Publisher
	breaker    *circuitbreaker.CircuitBreaker
	routingKey string
}

// NewAuditPublisher 创建审计发布者
func NewAuditPublisher(publisher Publisher, breaker *circuitbreaker.CircuitBreaker, routingKey string) *AuditPublisher {
	if routingKey == "" {
		routingKey = DefaultAuditRoutingKey
	}
	return &AuditPublisher{publisher: publisher, breaker: breaker, routingKey: routingKey}
}

var _ audit.Sink = (*AuditPublisher)(nil)

func (a *AuditPublisher) Record(ctx context.Context, rec audit.Record) error {
	event := AuditEvent{
		EventID:    uuid.NewString(),
		Action:     rec.Action,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Before:     rec.Before,
		After:      rec.After,
		Reason:     rec.Reason,
		Actor:      rec.Actor,
		TraceID:    rec.TraceID,
		CreatedAt:  rec.CreatedAt,
	}
	err := a.breaker.Execute(func() error {
		return a.publisher.Publish(ctx, a.routingKey, event)
	})
	if err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeDependencyFailure, "审计事件发布失败")
	}
	return nil
}
