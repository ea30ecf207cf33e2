package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/pkg/cache"
)

// fakeDirectory 内存租户目录，记录查询次数验证缓存生效
type fakeDirectory struct {
	byID     map[string]*model.Tenant
	byDomain map[string]*model.Tenant
	lookups  int
}

func (f *fakeDirectory) FindByID(_ context.Context, id string) (*model.Tenant, error) {
	f.lookups++
	return f.byID[id], nil
}

func (f *fakeDirectory) FindByDomain(_ context.Context, d string) (*model.Tenant, error) {
	f.lookups++
	return f.byDomain[d], nil
}

func futureTime(d time.Duration) *time.Time {
	t := time.Now().Add(d)
	return &t
}

func newTestResolver(dir *fakeDirectory) *Resolver {
	c := cache.NewSimpleAdapter(cache.New(time.Minute))
	return NewResolver(dir, c, time.Minute, []string{"/admin/Login/index", "/healthz"}, zap.NewNop())
}

func testDirectory() *fakeDirectory {
	active := &model.Tenant{ID: "t-active", Name: "甲", Domain: "a.example.com", IsActive: true}
	disabled := &model.Tenant{ID: "t-disabled", Name: "乙", IsActive: false}
	expired := &model.Tenant{ID: "t-expired", Name: "丙", IsActive: true, SubscriptionExpiresAt: futureTime(-time.Hour)}
	return &fakeDirectory{
		byID:     map[string]*model.Tenant{"t-active": active, "t-disabled": disabled, "t-expired": expired},
		byDomain: map[string]*model.Tenant{"a.example.com": active},
	}
}

func TestResolveExemptPath(t *testing.T) {
	r := newTestResolver(testDirectory())
	got, err := r.Resolve(context.Background(), Signals{Path: "/admin/Login/index"})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestResolveHeaderFirst(t *testing.T) {
	r := newTestResolver(testDirectory())
	// 头与域名同时存在时头优先
	got, err := r.Resolve(context.Background(), Signals{
		ExplicitID: "t-active",
		Host:       "other.example.com",
		Path:       "/admin/Role/index",
	})
	require.NoError(t, err)
	require.Equal(t, "t-active", got.ID)
}

func TestResolveUnknownHeaderFallsThrough(t *testing.T) {
	r := newTestResolver(testDirectory())
	got, err := r.Resolve(context.Background(), Signals{
		ExplicitID: "t-nope",
		Principal:  &Principal{UserID: 1, TenantID: "t-active"},
		Path:       "/admin/Role/index",
	})
	require.NoError(t, err)
	require.Equal(t, "t-active", got.ID)
}

func TestResolveByPrincipal(t *testing.T) {
	r := newTestResolver(testDirectory())
	got, err := r.Resolve(context.Background(), Signals{
		Principal: &Principal{UserID: 7, TenantID: "t-active"},
		Path:      "/admin/Menu/index",
	})
	require.NoError(t, err)
	require.Equal(t, "t-active", got.ID)
}

func TestResolveByDomainStripsPort(t *testing.T) {
	r := newTestResolver(testDirectory())
	got, err := r.Resolve(context.Background(), Signals{
		Host: "a.example.com:8080",
		Path: "/admin/Menu/index",
	})
	require.NoError(t, err)
	require.Equal(t, "t-active", got.ID)
}

func TestResolveNoSignals(t *testing.T) {
	r := newTestResolver(testDirectory())
	_, err := r.Resolve(context.Background(), Signals{Host: "unknown.example.com", Path: "/admin/Menu/index"})
	require.ErrorIs(t, err, apperr.ErrTenantRequired)
}

func TestResolveDisabledTenant(t *testing.T) {
	r := newTestResolver(testDirectory())
	_, err := r.Resolve(context.Background(), Signals{ExplicitID: "t-disabled", Path: "/admin/Menu/index"})
	require.ErrorIs(t, err, apperr.ErrTenantDisabled)
}

func TestResolveExpiredSubscription(t *testing.T) {
	r := newTestResolver(testDirectory())
	_, err := r.Resolve(context.Background(), Signals{ExplicitID: "t-expired", Path: "/admin/Menu/index"})
	require.ErrorIs(t, err, apperr.ErrSubscriptionExpired)
}

func TestResolveCrossTenantRejected(t *testing.T) {
	dir := testDirectory()
	dir.byID["t-other"] = &model.Tenant{ID: "t-other", IsActive: true}
	r := newTestResolver(dir)
	_, err := r.Resolve(context.Background(), Signals{
		ExplicitID: "t-other",
		Principal:  &Principal{UserID: 1, TenantID: "t-active"},
		Path:       "/admin/Menu/index",
	})
	require.ErrorIs(t, err, apperr.ErrCrossTenant)
}

func TestResolveSuperuserCrossTenantAllowed(t *testing.T) {
	dir := testDirectory()
	dir.byID["t-other"] = &model.Tenant{ID: "t-other", IsActive: true}
	r := newTestResolver(dir)
	got, err := r.Resolve(context.Background(), Signals{
		ExplicitID: "t-other",
		Principal:  &Principal{UserID: 1, TenantID: "t-active", Superuser: true},
		Path:       "/admin/Menu/index",
	})
	require.NoError(t, err)
	require.Equal(t, "t-other", got.ID)
}

func TestResolveCachesDirectoryLookups(t *testing.T) {
	dir := testDirectory()
	r := newTestResolver(dir)
	sig := Signals{ExplicitID: "t-active", Path: "/admin/Menu/index"}

	_, err := r.Resolve(context.Background(), sig)
	require.NoError(t, err)
	first := dir.lookups

	for i := 0; i < 5; i++ {
		_, err := r.Resolve(context.Background(), sig)
		require.NoError(t, err)
	}
	require.Equal(t, first, dir.lookups)
}

func TestResolveNilSentinelStopsRepeatLookups(t *testing.T) {
	dir := testDirectory()
	r := newTestResolver(dir)
	// 未知头回落到域名，域名也未知，目录对两个 key 各查一次后走哨兵
	sig := Signals{ExplicitID: "t-nope", Host: "nope.example.com", Path: "/admin/Menu/index"}

	_, err := r.Resolve(context.Background(), sig)
	require.ErrorIs(t, err, apperr.ErrTenantRequired)
	first := dir.lookups

	_, err = r.Resolve(context.Background(), sig)
	require.ErrorIs(t, err, apperr.ErrTenantRequired)
	require.Equal(t, first, dir.lookups)
}

func TestEvictForcesDirectoryReload(t *testing.T) {
	dir := testDirectory()
	r := newTestResolver(dir)
	sig := Signals{ExplicitID: "t-active", Path: "/admin/Menu/index"}

	got, err := r.Resolve(context.Background(), sig)
	require.NoError(t, err)
	before := dir.lookups

	// 停用后若不清缓存仍会放行
	dir.byID["t-active"].IsActive = false
	r.Evict(context.Background(), got)

	_, err = r.Resolve(context.Background(), sig)
	require.ErrorIs(t, err, apperr.ErrTenantDisabled)
	require.Greater(t, dir.lookups, before)
}
