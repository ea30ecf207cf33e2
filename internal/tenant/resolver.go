package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/metrics"
	"go-tenantadmin/internal/pkg/cache"
)

// Principal 已认证主体（来自 JWT claims）
type Principal struct {
	UserID    int64
	TenantID  string
	Superuser bool
	RoleIDs   []int64
}

// Signals 一次请求可用的租户信号，按优先级消费：显式头 > 主体归属 > 域名
type Signals struct {
	ExplicitID string // X-Tenant-ID
	Principal  *Principal
	Host       string
	Path       string
}

// Directory 租户目录查询。由 dao.TenantDAO 实现；Resolver 不直接依赖 dao，
// 查询一律 unscoped（租户表本身不受租户过滤）。
type Directory interface {
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*model.Tenant, error)
}

type Resolver struct {
	dir    Directory
	cache  cache.Cache
	ttl    time.Duration
	exempt []string
	logger *zap.Logger
	now    func() time.Time
}

func NewResolver(dir Directory, c cache.Cache, ttl time.Duration, exemptPrefixes []string, logger *zap.Logger) *Resolver {
	return &Resolver{dir: dir, cache: c, ttl: ttl, exempt: exemptPrefixes, logger: logger, now: time.Now}
}

// Exempt 命中免租户前缀（登录、健康检查、平台运维接口）
func (r *Resolver) Exempt(path string) bool {
	for _, p := range r.exempt {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Resolve 解析当前请求的租户。免租户路径返回 (nil, nil)；
// 解析成功保证租户启用且订阅未过期；非超管主体不得指向其他租户。
func (r *Resolver) Resolve(ctx context.Context, sig Signals) (*model.Tenant, error) {
	if r.Exempt(sig.Path) {
		metrics.TenantResolveTotal.WithLabelValues("exempt").Inc()
		return nil, nil
	}

	// 1. 显式租户头
	if sig.ExplicitID != "" {
		t, err := r.byID(ctx, sig.ExplicitID)
		if err != nil {
			return nil, err
		}
		if t != nil {
			if err := r.admit(t, sig.Principal); err != nil {
				return nil, err
			}
			metrics.TenantResolveTotal.WithLabelValues("header").Inc()
			return t, nil
		}
		// 未知租户头不中断解析，继续走后续信号
		r.logger.Warn("unknown tenant in header", zap.String("tenant_id", sig.ExplicitID))
	}

	// 2. 主体归属租户
	if sig.Principal != nil && sig.Principal.TenantID != "" {
		t, err := r.byID(ctx, sig.Principal.TenantID)
		if err != nil {
			return nil, err
		}
		if t != nil {
			if err := r.admit(t, sig.Principal); err != nil {
				return nil, err
			}
			metrics.TenantResolveTotal.WithLabelValues("principal").Inc()
			return t, nil
		}
	}

	// 3. 请求域名
	if host := hostOnly(sig.Host); host != "" {
		t, err := r.byDomain(ctx, host)
		if err != nil {
			return nil, err
		}
		if t != nil {
			if err := r.admit(t, sig.Principal); err != nil {
				return nil, err
			}
			metrics.TenantResolveTotal.WithLabelValues("domain").Inc()
			return t, nil
		}
	}

	metrics.TenantResolveTotal.WithLabelValues("none").Inc()
	return nil, apperr.ErrTenantRequired
}

// admit 状态校验 + 跨租户防护
func (r *Resolver) admit(t *model.Tenant, p *Principal) error {
	if !t.IsActive {
		return apperr.ErrTenantDisabled
	}
	if !t.SubscriptionActive(r.now()) {
		return apperr.ErrSubscriptionExpired
	}
	if p != nil && !p.Superuser && p.TenantID != "" && p.TenantID != t.ID {
		return apperr.ErrCrossTenant
	}
	return nil
}

func (r *Resolver) byID(ctx context.Context, id string) (*model.Tenant, error) {
	return r.lookup(ctx, cache.TenantByIDKey(id), func() (*model.Tenant, error) {
		return r.dir.FindByID(ctx, id)
	})
}

func (r *Resolver) byDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	return r.lookup(ctx, cache.TenantByDomainKey(domain), func() (*model.Tenant, error) {
		return r.dir.FindByDomain(ctx, domain)
	})
}

// lookup 目录查询走缓存；不存在的结果写 nil 哨兵防穿透。
// 缓存故障降级为直查，解析不因缓存不可用而失败。
func (r *Resolver) lookup(ctx context.Context, key string, fetch func() (*model.Tenant, error)) (*model.Tenant, error) {
	if raw, err := r.cache.Get(ctx, key); err == nil && raw != "" {
		if cache.IsNilSentinel(raw) {
			metrics.CacheNilHit.Inc()
			return nil, nil
		}
		var t model.Tenant
		if json.Unmarshal([]byte(raw), &t) == nil {
			return &t, nil
		}
	}
	t, err := fetch()
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if t == nil {
		_ = r.cache.SetEX(ctx, key, cache.WrapNil(true), cache.JitterTTL(r.ttl))
		return nil, nil
	}
	if b, err := json.Marshal(t); err == nil {
		_ = r.cache.SetEX(ctx, key, string(b), cache.JitterTTL(r.ttl))
	}
	return t, nil
}

// Evict 租户状态变更后清目录缓存（id 与域名两个入口）
func (r *Resolver) Evict(ctx context.Context, t *model.Tenant) {
	keys := []string{cache.TenantByIDKey(t.ID)}
	if t.Domain != "" {
		keys = append(keys, cache.TenantByDomainKey(t.Domain))
	}
	_ = r.cache.Del(ctx, keys...)
}

func hostOnly(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}
