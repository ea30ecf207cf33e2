package security

import (
	"go-tenantadmin/internal/tenant"
	"go-tenantadmin/internal/util/retcode"
	"go-tenantadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

// Tenant 解析当前请求的租户并装入 request context。中间件返回时请求 context
// 随请求一起废弃，不存在跨请求的租户残留。免租户路径放行但不装租户，
// 作用域仓储在这些路径上天然拒绝读写。
func Tenant(r *tenant.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sig := tenant.Signals{
			ExplicitID: c.GetHeader("X-Tenant-ID"),
			Principal:  Principal(c),
			Host:       c.Request.Host,
			Path:       c.Request.URL.Path,
		}
		t, err := r.Resolve(c.Request.Context(), sig)
		if err != nil {
			response.ErrorFrom(c, err, retcode.TENANT_REQUIRED)
			c.Abort()
			return
		}
		if t != nil {
			c.Set("tenant_id", t.ID)
			c.Request = c.Request.WithContext(tenant.With(c.Request.Context(), t))
		}
		c.Next()
	}
}
