package service

import (
	"context"

	"go.uber.org/zap"

	"go-tenantadmin/internal/metrics"
	"go-tenantadmin/internal/pkg/cache"
)

// CacheInvalidator 权限相关缓存失效入口。粒度三档：整租户、单用户、角色权限。
// 失效失败只记日志与指标，不让写操作回滚（缓存有 TTL 兜底，最长脏读一个周期）。
type CacheInvalidator struct {
	Cache  cache.Cache
	Logger *zap.Logger
}

func NewCacheInvalidator(c cache.Cache, logger *zap.Logger) *CacheInvalidator {
	return &CacheInvalidator{Cache: c, Logger: logger}
}

func (ci *CacheInvalidator) delPrefix(ctx context.Context, scope, prefix string) {
	metrics.TenantCacheInvalidateTotal.WithLabelValues(scope).Inc()
	pd, ok := ci.Cache.(cache.PrefixDeleter)
	if !ok {
		// 不支持前缀删除的实现只能等 TTL 过期
		ci.Logger.Warn("cache backend lacks prefix delete", zap.String("prefix", prefix))
		return
	}
	if err := pd.DelPrefix(ctx, prefix); err != nil {
		metrics.TenantCacheInvalidateErrors.Inc()
		ci.Logger.Warn("cache invalidate failed", zap.String("prefix", prefix), zap.Error(err))
	}
}

// InvalidateTenant 清整个租户的派生缓存（菜单树、角色权限）
func (ci *CacheInvalidator) InvalidateTenant(ctx context.Context, tenantID string) {
	ci.delPrefix(ctx, "tenant", cache.TenantPrefix(tenantID))
}

// InvalidateUser 清单个用户的派生缓存（角色分配、个性化变更后）
func (ci *CacheInvalidator) InvalidateUser(ctx context.Context, tenantID string, userID int64) {
	ci.delPrefix(ctx, "user", cache.UserPrefix(tenantID, userID))
}

// InvalidateRolePermissions 角色图或授权变更影响全租户的菜单可见性，
// 角色权限缓存与所有用户的菜单树一起清（租户前缀覆盖两者）
func (ci *CacheInvalidator) InvalidateRolePermissions(ctx context.Context, tenantID string) {
	ci.delPrefix(ctx, "role", cache.TenantPrefix(tenantID))
}
