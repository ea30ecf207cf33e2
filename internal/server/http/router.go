package http

import (
	"context"
	"time"

	"go-tenantadmin/internal/config"
	"go-tenantadmin/internal/discovery/etcd"
	"go-tenantadmin/internal/logging"
	"go-tenantadmin/internal/mq/kafka"
	redisrepo "go-tenantadmin/internal/repository/redis"
	"go-tenantadmin/internal/security/jwt"
	adm "go-tenantadmin/internal/server/http/handler/admin"
	"go-tenantadmin/internal/server/http/middleware"
	obs "go-tenantadmin/internal/server/http/middleware/observability"
	sec "go-tenantadmin/internal/server/http/middleware/security"
	"go-tenantadmin/internal/service"
	"go-tenantadmin/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// NewRouter 只做分组与中间件装配，业务在 handler 层。
// 中间件次序：trace -> 指标 -> 认证 -> 租户解析 -> 日志上下文，
// 租户上下文装入后才进入业务 handler。
func NewRouter(jwtm *jwt.Manager, logger *logging.Logger, producer *kafka.Producer, db *gorm.DB, redis *redisrepo.Client,
	resolver *tenant.Resolver, authSvc *service.AuthService, tenantSvc *service.TenantService, roleSvc *service.RoleService,
	permSvc *service.PermissionService, menuSvc *service.MenuService, etcdCli *etcd.Client, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS(), obs.TraceMiddleware(), obs.Metrics())

	hc := NewHealthChecker(db, redis, producer, etcdCli)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, hc.Liveness()) })
	r.GET("/readyz", func(c *gin.Context) {
		if c.Query("refresh") == "1" {
			hc.InvalidateCache()
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()
		res, code := hc.Readiness(ctx)
		c.JSON(code, res)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	d := adm.Dependencies{
		Auth: authSvc, Tenant: tenantSvc, Role: roleSvc, Perm: permSvc, Menu: menuSvc,
		JWT: jwtm, Config: cfg, Cache: menuSvc.Cache, Logger: logger,
	}
	h := adm.NewHandlerSet(d)

	// 登录组：免认证、免租户（/admin/Login 在豁免前缀内）
	login := r.Group("/admin", obs.LoggerContextMiddleware(logger))
	{
		login.POST("/Login/index", h.Auth.Login)
		login.POST("/Login/logout", h.Auth.Logout)
	}

	// 换发 token：要求认证但不做租户解析，租户校验在服务内完成
	refresh := r.Group("/admin", sec.Auth(jwtm, logger, authSvc), obs.LoggerContextMiddleware(logger))
	refresh.POST("/Login/refresh", h.Auth.Refresh)

	// 平台运维面：认证但免租户（前缀在豁免表内），服务平台管理员
	ops := r.Group("/admin/ops", sec.Auth(jwtm, logger, authSvc), obs.LoggerContextMiddleware(logger))
	{
		ops.POST("/Tenant/provision", h.Tenant.Provision)
		ops.GET("/Tenant/index", h.Tenant.Index)
		ops.GET("/Tenant/changeStatus", h.Tenant.ChangeStatus)
		ops.POST("/Tenant/subscription", h.Tenant.UpdateSubscription)
		// 在线实例列表，来自 etcd 注册表
		ops.GET("/Service/instances", func(c *gin.Context) {
			if etcdCli == nil {
				c.JSON(200, gin.H{"instances": map[string]string{}})
				return
			}
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			m, err := etcdCli.Discover(ctx, etcd.ServicePrefix)
			if err != nil {
				c.JSON(503, gin.H{"error": err.Error()})
				return
			}
			c.JSON(200, gin.H{"instances": m})
		})
	}

	// 租户业务面：认证 + 租户解析
	adminGrp := r.Group("/admin", sec.Auth(jwtm, logger, authSvc), sec.Tenant(resolver), obs.LoggerContextMiddleware(logger))
	{
		adminGrp.GET("/Login/getUserInfo", h.Auth.GetUserInfo)
		adminGrp.GET("/Login/getAccessMenu", h.Auth.GetAccessMenu)

		roleGroup := adminGrp.Group("/Role")
		{
			roleGroup.GET("/index", h.Role.Index)
			roleGroup.POST("/add", h.Role.Add)
			roleGroup.POST("/edit", h.Role.Edit)
			roleGroup.GET("/del", h.Role.Delete)
			roleGroup.GET("/permissions", h.Role.Permissions)
		}
		adminGrp.GET("/Permission/index", h.Perm.Index)

		menuGroup := adminGrp.Group("/Menu")
		{
			menuGroup.GET("/index", h.Menu.Index)
			menuGroup.POST("/add", h.Menu.Add)
			menuGroup.POST("/edit", h.Menu.Edit)
			menuGroup.GET("/del", h.Menu.Delete)
		}

		umGroup := adminGrp.Group("/UserMenu")
		{
			umGroup.POST("/config", h.UserMenu.Config)
			umGroup.GET("/favorites", h.UserMenu.Favorites)
			umGroup.GET("/access", h.UserMenu.Access)
		}
	}

	return r
}
