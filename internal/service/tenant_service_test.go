package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-tenantadmin/internal/pkg/cache"
	"go-tenantadmin/internal/repository/dao"
	"go-tenantadmin/internal/tenant"
)

type tenantFixture struct {
	svc      *TenantService
	dao      *dao.TenantDAO
	roleDAO  *dao.RoleDAO
	resolver *tenant.Resolver
}

func newTenantFixture(t *testing.T) *tenantFixture {
	db := newTestDB(t)
	td := dao.NewTenantDAO(db)
	rd := dao.NewRoleDAO(db)
	pd := dao.NewPermissionDAO(db)
	ur := dao.NewUserRoleDAO(db)
	roles := NewRoleService(rd, pd, ur)
	require.NoError(t, NewPermissionService(pd).SeedCatalog(context.Background()))

	lc := cache.NewSimpleAdapter(cache.New(time.Minute))
	resolver := tenant.NewResolver(td, lc, time.Minute, nil, zap.NewNop())
	inval := NewCacheInvalidator(lc, zap.NewNop())
	return &tenantFixture{
		svc:      NewTenantService(td, roles, resolver, inval, nil, zap.NewNop()),
		dao:      td,
		roleDAO:  rd,
		resolver: resolver,
	}
}

func TestProvisionSeedsSystemRoles(t *testing.T) {
	f := newTenantFixture(t)

	got, err := f.svc.Provision(context.Background(), ProvisionParams{Name: "量化甲", Domain: "a.example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, got.ID)
	require.True(t, got.IsActive)
	// 配额默认值
	require.Equal(t, 100, got.MaxUsers)
	require.Equal(t, 50, got.MaxRoles)
	require.Equal(t, 200, got.MaxMenus)

	ctx := tenant.With(context.Background(), got)
	roles, err := f.roleDAO.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 4)

	names := make(map[string]bool, len(roles))
	for _, r := range roles {
		names[r.Name] = true
		require.Equal(t, got.ID, r.TenantID)
		require.True(t, r.SystemSeeded)
	}
	for _, want := range []string{"超级管理员", "管理员", "交易员", "观察者"} {
		require.True(t, names[want], want)
	}
}

func TestProvisionRejectsDuplicateNameAndDomain(t *testing.T) {
	f := newTenantFixture(t)

	_, err := f.svc.Provision(context.Background(), ProvisionParams{Name: "量化甲", Domain: "a.example.com"})
	require.NoError(t, err)

	_, err = f.svc.Provision(context.Background(), ProvisionParams{Name: "量化甲"})
	require.Error(t, err)
	_, err = f.svc.Provision(context.Background(), ProvisionParams{Name: "量化乙", Domain: "a.example.com"})
	require.Error(t, err)

	_, err = f.svc.Provision(context.Background(), ProvisionParams{Name: ""})
	require.Error(t, err)
}

func TestProvisionedTenantsAreIndependent(t *testing.T) {
	f := newTenantFixture(t)

	a, err := f.svc.Provision(context.Background(), ProvisionParams{Name: "甲"})
	require.NoError(t, err)
	b, err := f.svc.Provision(context.Background(), ProvisionParams{Name: "乙"})
	require.NoError(t, err)

	rolesA, err := f.roleDAO.ListAll(tenant.With(context.Background(), a))
	require.NoError(t, err)
	rolesB, err := f.roleDAO.ListAll(tenant.With(context.Background(), b))
	require.NoError(t, err)
	require.Len(t, rolesA, 4)
	require.Len(t, rolesB, 4)
	for _, r := range rolesA {
		require.Equal(t, a.ID, r.TenantID)
	}
}

func TestChangeStatusEvictsResolverCache(t *testing.T) {
	f := newTenantFixture(t)
	got, err := f.svc.Provision(context.Background(), ProvisionParams{Name: "甲", Domain: "a.example.com"})
	require.NoError(t, err)

	// 预热目录缓存
	resolved, err := f.resolver.Resolve(context.Background(), tenant.Signals{ExplicitID: got.ID, Path: "/admin/Menu/index"})
	require.NoError(t, err)
	require.Equal(t, got.ID, resolved.ID)

	require.NoError(t, f.svc.ChangeStatus(context.Background(), got.ID, false))

	_, err = f.resolver.Resolve(context.Background(), tenant.Signals{ExplicitID: got.ID, Path: "/admin/Menu/index"})
	require.Error(t, err) // 停用立即生效，不等 TTL

	require.NoError(t, f.svc.ChangeStatus(context.Background(), got.ID, true))
	resolved, err = f.resolver.Resolve(context.Background(), tenant.Signals{ExplicitID: got.ID, Path: "/admin/Menu/index"})
	require.NoError(t, err)
	require.True(t, resolved.IsActive)
}

func TestUpdateSubscription(t *testing.T) {
	f := newTenantFixture(t)
	got, err := f.svc.Provision(context.Background(), ProvisionParams{Name: "甲"})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, f.svc.UpdateSubscription(context.Background(), got.ID, &past))

	_, err = f.resolver.Resolve(context.Background(), tenant.Signals{ExplicitID: got.ID, Path: "/admin/Menu/index"})
	require.Error(t, err)

	require.NoError(t, f.svc.UpdateSubscription(context.Background(), got.ID, nil))
	resolved, err := f.resolver.Resolve(context.Background(), tenant.Signals{ExplicitID: got.ID, Path: "/admin/Menu/index"})
	require.NoError(t, err)
	require.Nil(t, resolved.SubscriptionExpiresAt)

	require.Error(t, f.svc.UpdateSubscription(context.Background(), "no-such-id", nil))
}

func TestListTenantsPaged(t *testing.T) {
	f := newTenantFixture(t)
	for _, name := range []string{"甲", "乙", "丙"} {
		_, err := f.svc.Provision(context.Background(), ProvisionParams{Name: name})
		require.NoError(t, err)
	}
	res, err := f.svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Total)
	require.Len(t, res.List, 2)

	// 页码参数自动钳制
	res, err = f.svc.List(context.Background(), 0, -5)
	require.NoError(t, err)
	require.Len(t, res.List, 3)
}
