package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/medbulk/internal/domain/audit"
)

// ActorHeader 操作人请求头,由上游网关鉴权后注入
const ActorHeader = "X-Actor-ID"

const actorKey = "actor_id"

// Actor 读取操作人并写入请求ctx
// 库存流水的created_by和审计记录的actor都从ctx读取;缺省为system
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if len(actor) > 64 {
			actor = actor[:64]
		}
		if actor != "" {
			c.Set(actorKey, actor)
			c.Request = c.Request.WithContext(audit.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}

// GetActor 从Context获取操作人
func GetActor(c *gin.Context) string {
	if actor, exists := c.Get(actorKey); exists {
		if s, ok := actor.(string); ok {
			return s
		}
	}
	return audit.SystemActor
}
