package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/medbulk/pkg/logger"
)

// RequestIDHeader 请求ID
const RequestIDHeader = "X-Request-ID"

// slowRequest 超过该耗时记一条Warn
const slowRequest = 3 * time.Second

// Logger 请求日志中间件
// 上游传了X-Request-ID就沿用,否则生成一个;trace_id由logger.WithTrace补充
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("actor", GetActor(c)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		l := logger.WithTrace(c.Request.Context(), log)
		if latency > slowRequest {
			l.Warn("slow request", fields...)
			return
		}
		l.Info("request", fields...)
	}
}
