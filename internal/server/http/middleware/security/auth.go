package security

import (
	"context"
	"strings"

	"go-tenantadmin/internal/logging"
	"go-tenantadmin/internal/security/jwt"
	"go-tenantadmin/internal/service"
	"go-tenantadmin/internal/tenant"
	"go-tenantadmin/internal/util/retcode"
	"go-tenantadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

// Auth 解析 Bearer token、校验 JTI 未吊销，并把 principal 暴露给后续中间件：
// gin keys user_id / roles / tenant_id / superuser，外加 tenant.Principal 结构。
func Auth(j *jwt.Manager, lg *logging.Logger, auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			response.Error(c, retcode.AUTH_ERROR, "missing token")
			c.Abort()
			return
		}
		token := strings.TrimSpace(h[7:])
		claims, err := j.Parse(token)
		if err != nil {
			response.Error(c, retcode.AUTH_ERROR, "invalid token")
			c.Abort()
			return
		}
		if auth != nil && !auth.JTIAlive(c.Request.Context(), claims.JTI) {
			response.Error(c, retcode.ACCESS_TOKEN_TIMEOUT, "token expired")
			c.Abort()
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("roles", claims.Roles)
		c.Set("tenant_id", claims.TenantID)
		c.Set("superuser", claims.Superuser)
		c.Set("jti", claims.JTI)
		c.Set("principal", &tenant.Principal{
			UserID: claims.UserID, TenantID: claims.TenantID,
			Superuser: claims.Superuser, RoleIDs: claims.Roles,
		})
		// 审计与日志从 request context 读 user_id
		ctx := context.WithValue(c.Request.Context(), "user_id", claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Principal 从 gin context 取已认证主体
func Principal(c *gin.Context) *tenant.Principal {
	if v, ok := c.Get("principal"); ok {
		if p, ok2 := v.(*tenant.Principal); ok2 {
			return p
		}
	}
	return nil
}
