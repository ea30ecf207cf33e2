package boot

import (
	"time"

	"go-tenantadmin/internal/config"
	"go-tenantadmin/internal/discovery/etcd"
	"go-tenantadmin/internal/logging"
	"go-tenantadmin/internal/mq/kafka"
	"go-tenantadmin/internal/pkg/cache"
	"go-tenantadmin/internal/repository/dao"
	redisrepo "go-tenantadmin/internal/repository/redis"
	jwtsec "go-tenantadmin/internal/security/jwt"
	httpSrv "go-tenantadmin/internal/server/http"
	"go-tenantadmin/internal/service"
	"go-tenantadmin/internal/tenant"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"gorm.io/gorm"
)

// ProvideConfig wraps config.Load for wire with external path param
func ProvideConfig(path string) (*config.Config, error) { return config.Load(path) }

// ProvideLayeredCache 构建通用 LayeredCache（L1 本地, L2 Redis）
func ProvideLayeredCache(r *redisrepo.Client, c *config.Config) cache.Cache {
	l1 := cache.NewSimpleAdapter(cache.New(time.Duration(c.Cache.LocalTTLSeconds) * time.Second))
	l2 := cache.NewRedisAdapter(r)
	return cache.NewLayered(l1, l2)
}

func ProvideAuditSender(p *kafka.Producer, l *logging.Logger) *kafka.AuditSender {
	// 队列 / 批量参数走默认值
	return kafka.NewAuditSender(p, l.Logger, 0, 0, 0, 0)
}

func ProvideCacheInvalidator(lc cache.Cache, l *logging.Logger) *service.CacheInvalidator {
	return service.NewCacheInvalidator(lc, l.Logger)
}

// ProvideResolver 租户解析器；目录查询走 TenantDAO，命中结果进分层缓存。
func ProvideResolver(td *dao.TenantDAO, lc cache.Cache, c *config.Config, l *logging.Logger) *tenant.Resolver {
	return tenant.NewResolver(td, lc, time.Duration(c.Cache.TenantTTLSeconds)*time.Second, c.Tenant.ExemptPrefixes, l.Logger)
}

// ProvideRouter 装配路由；这里为注入后的 service 提供。
func ProvideRouter(j *jwtsec.Manager, l *logging.Logger, p *kafka.Producer, db *gorm.DB, r *redisrepo.Client,
	resolver *tenant.Resolver, a *service.AuthService, t *service.TenantService, role *service.RoleService,
	perm *service.PermissionService, menu *service.MenuService, e *etcd.Client, c *config.Config) *gin.Engine {
	return httpSrv.NewRouter(j, l, p, db, r, resolver, a, t, role, perm, menu, e, c)
}

func ProvideApp(c *config.Config, l *logging.Logger, db *gorm.DB, r *redisrepo.Client, k *kafka.Producer, e *etcd.Client, j *jwtsec.Manager, engine *gin.Engine, sender *kafka.AuditSender, perm *service.PermissionService) *App {
	return NewApp(c, l, db, r, k, e, j, engine, sender, perm)
}

var ProviderSet = wire.NewSet(
	ProvideConfig,
	NewLogger,
	NewPostgres,
	NewRedis,
	NewKafkaProducer,
	NewEtcd,
	NewJWTManager,
	ProvideLayeredCache,
	ProvideAuditSender,
	// DAO
	dao.NewTenantDAO,
	dao.NewPermissionDAO,
	dao.NewRoleDAO,
	dao.NewUserDAO,
	dao.NewUserRoleDAO,
	dao.NewMenuDAO,
	dao.NewUserMenuConfigDAO,
	// Service
	service.NewAuditRecorder,
	service.NewPermissionService,
	ProvideCacheInvalidator,
	ProvideResolver,
	NewRoleServiceWithLayered,
	NewMenuServiceWithLayered,
	NewAuthServiceDefault,
	NewTenantServiceDefault,
	ProvideRouter,
	ProvideApp,
)

// ===== Custom providers to inject layered cache =====
func NewRoleServiceWithLayered(d *dao.RoleDAO, p *dao.PermissionDAO, ur *dao.UserRoleDAO, lc cache.Cache, inval *service.CacheInvalidator, c *config.Config) *service.RoleService {
	return service.NewRoleServiceWithCache(d, p, ur, lc, inval, c.Cache.RolePermTTLSeconds)
}
func NewMenuServiceWithLayered(d *dao.MenuDAO, cfg *dao.UserMenuConfigDAO, ur *dao.UserRoleDAO, roles *service.RoleService, lc cache.Cache, inval *service.CacheInvalidator, audit *service.AuditRecorder, c *config.Config) *service.MenuService {
	return service.NewMenuServiceWithCache(d, cfg, ur, roles, lc, inval, audit, c.Cache.MenuTreeTTLSeconds)
}
func NewAuthServiceDefault(u *dao.UserDAO, ur *dao.UserRoleDAO, t *dao.TenantDAO, j *jwtsec.Manager, r *redisrepo.Client, c *config.Config) *service.AuthService {
	return service.NewAuthService(u, ur, t, j, r, c.Redis.JTIPrefix)
}
func NewTenantServiceDefault(d *dao.TenantDAO, roles *service.RoleService, resolver *tenant.Resolver, inval *service.CacheInvalidator, audit *service.AuditRecorder, l *logging.Logger) *service.TenantService {
	return service.NewTenantService(d, roles, resolver, inval, audit, l.Logger)
}
