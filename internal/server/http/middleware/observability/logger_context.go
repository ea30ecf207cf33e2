package observability

import (
	"context"

	"go-tenantadmin/internal/logging"

	"github.com/gin-gonic/gin"
)

// LoggerContextMiddleware 将 trace_id / user_id / tenant_id 注入请求 context，
// handler 通过 logging.FromContext 直接拿到带公共字段的 logger。
// 注意放在 Auth 与 Tenant 中间件之后，字段才齐。
func LoggerContextMiddleware(base *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if v, ok := c.Get(TraceIDKey); ok {
			ctx = context.WithValue(ctx, "trace_id", v)
		}
		if uid, ok := c.Get("user_id"); ok {
			ctx = context.WithValue(ctx, "user_id", uid)
		}
		if tid, ok := c.Get("tenant_id"); ok {
			ctx = context.WithValue(ctx, "tenant_id", tid)
		}
		lg := base.WithContext(ctx)
		ctx = logging.IntoContext(ctx, lg)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
