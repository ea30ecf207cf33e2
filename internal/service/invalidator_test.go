package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-tenantadmin/internal/pkg/cache"
)

func seedCacheKeys(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()
	for _, k := range []string{
		cache.UserMenuTreeKey("t-a", 1),
		cache.UserMenuTreeKey("t-a", 2),
		cache.AdminMenuTreeKey("t-a"),
		cache.RolePermissionsKey("t-a", 10),
		cache.UserMenuTreeKey("t-b", 1),
	} {
		require.NoError(t, c.SetEX(ctx, k, "v", time.Minute))
	}
}

func remaining(c cache.Cache, keys ...string) int {
	n := 0
	for _, k := range keys {
		if v, _ := c.Get(context.Background(), k); v != "" {
			n++
		}
	}
	return n
}

func TestInvalidateTenantScopesToOneTenant(t *testing.T) {
	c := cache.NewSimpleAdapter(cache.New(time.Minute))
	seedCacheKeys(t, c)
	inval := NewCacheInvalidator(c, zap.NewNop())

	inval.InvalidateTenant(context.Background(), "t-a")

	require.Zero(t, remaining(c,
		cache.UserMenuTreeKey("t-a", 1),
		cache.UserMenuTreeKey("t-a", 2),
		cache.AdminMenuTreeKey("t-a"),
		cache.RolePermissionsKey("t-a", 10)))
	require.Equal(t, 1, remaining(c, cache.UserMenuTreeKey("t-b", 1)))
}

func TestInvalidateUserScopesToOneUser(t *testing.T) {
	c := cache.NewSimpleAdapter(cache.New(time.Minute))
	seedCacheKeys(t, c)
	inval := NewCacheInvalidator(c, zap.NewNop())

	inval.InvalidateUser(context.Background(), "t-a", 1)

	require.Zero(t, remaining(c, cache.UserMenuTreeKey("t-a", 1)))
	require.Equal(t, 3, remaining(c,
		cache.UserMenuTreeKey("t-a", 2),
		cache.AdminMenuTreeKey("t-a"),
		cache.RolePermissionsKey("t-a", 10)))
}

func TestInvalidateRolePermissionsClearsDerivedTrees(t *testing.T) {
	c := cache.NewSimpleAdapter(cache.New(time.Minute))
	seedCacheKeys(t, c)
	inval := NewCacheInvalidator(c, zap.NewNop())

	// 角色图变更连带用户菜单树一起失效（树依赖权限求解结果）
	inval.InvalidateRolePermissions(context.Background(), "t-a")

	require.Zero(t, remaining(c,
		cache.RolePermissionsKey("t-a", 10),
		cache.UserMenuTreeKey("t-a", 1)))
	require.Equal(t, 1, remaining(c, cache.UserMenuTreeKey("t-b", 1)))
}

// 不支持前缀删除的实现只打日志，不报错不恐慌
type flatCache struct{ m map[string]string }

func (f *flatCache) Get(_ context.Context, k string) (string, error) { return f.m[k], nil }
func (f *flatCache) SetEX(_ context.Context, k, v string, _ time.Duration) error {
	f.m[k] = v
	return nil
}
func (f *flatCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.m, k)
	}
	return nil
}

func TestInvalidatorToleratesBackendWithoutPrefixDelete(t *testing.T) {
	c := &flatCache{m: map[string]string{cache.AdminMenuTreeKey("t-a"): "v"}}
	inval := NewCacheInvalidator(c, zap.NewNop())
	require.NotPanics(t, func() {
		inval.InvalidateTenant(context.Background(), "t-a")
	})
	// 等 TTL 过期，值仍在
	v, _ := c.Get(context.Background(), cache.AdminMenuTreeKey("t-a"))
	require.Equal(t, "v", v)
}
