package audit

import "context"

// SystemActor 无操作人时的默认值(定时任务、内部调用)
const SystemActor = "system"

type actorKey struct{}

// WithActor 将操作人写入ctx
func WithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom 读取操作人,缺省为system
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return SystemActor
}
