package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/repository/dao"
	redisrepo "go-tenantadmin/internal/repository/redis"
	"go-tenantadmin/internal/security/jwt"
	"go-tenantadmin/internal/tenant"
	"go-tenantadmin/pkg/crypto"
)

type authFixture struct {
	svc     *AuthService
	users   *dao.UserDAO
	tenants *dao.TenantDAO
	urDAO   *dao.UserRoleDAO
	jwtm    *jwt.Manager
	rdb     *redisrepo.Client
}

func newAuthFixture(t *testing.T) *authFixture {
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redisrepo.New(redisrepo.Config{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := dao.NewUserDAO(db)
	tenants := dao.NewTenantDAO(db)
	ur := dao.NewUserRoleDAO(db)
	jwtm := jwt.NewManager("test-secret-of-sufficient-len", 3600, "go-tenantadmin")
	return &authFixture{
		svc:     NewAuthService(users, ur, tenants, jwtm, rdb, ""),
		users:   users,
		tenants: tenants,
		urDAO:   ur,
		jwtm:    jwtm,
		rdb:     rdb,
	}
}

func (f *authFixture) seedTenant(t *testing.T, id string, active bool) *model.Tenant {
	t.Helper()
	tn := &model.Tenant{ID: id, Name: "租户" + id, IsActive: active}
	require.NoError(t, f.tenants.Create(context.Background(), tn))
	return tn
}

func (f *authFixture) seedUser(t *testing.T, tid, username, password string) *model.User {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)
	u := &model.User{Username: username, Password: hash, Status: 1}
	u.TenantID = tid
	ctx := tenant.With(context.Background(), &model.Tenant{ID: tid, IsActive: true})
	require.NoError(t, f.users.Create(ctx, u))
	return u
}

func TestLoginSuccessIssuesRevocableToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "t-a", true)
	u := f.seedUser(t, "t-a", "alice", "s3cret")

	res, err := f.svc.Login(context.Background(), "alice", "s3cret", "")
	require.NoError(t, err)
	require.Equal(t, u.ID, res.UserID)
	require.Equal(t, "t-a", res.TenantID)

	claims, err := f.jwtm.Parse(res.Token)
	require.NoError(t, err)
	require.Equal(t, "t-a", claims.TenantID)
	require.True(t, f.svc.JTIAlive(context.Background(), claims.JTI))

	require.NoError(t, f.svc.Logout(context.Background(), claims.JTI))
	require.False(t, f.svc.JTIAlive(context.Background(), claims.JTI))
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "t-a", true)
	f.seedUser(t, "t-a", "alice", "s3cret")

	_, err := f.svc.Login(context.Background(), "alice", "wrong", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(context.Background(), "nobody", "s3cret", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginAmbiguousUsernameNeedsTenantHint(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "t-a", true)
	f.seedTenant(t, "t-b", true)
	f.seedUser(t, "t-a", "alice", "pw-a")
	f.seedUser(t, "t-b", "alice", "pw-b")

	// 不带租户头无法消歧
	_, err := f.svc.Login(context.Background(), "alice", "pw-a", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := f.svc.Login(context.Background(), "alice", "pw-b", "t-b")
	require.NoError(t, err)
	require.Equal(t, "t-b", res.TenantID)

	// 头指向的租户下密码不对
	_, err = f.svc.Login(context.Background(), "alice", "pw-b", "t-a")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginBlockedByTenantState(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "t-off", false)
	f.seedUser(t, "t-off", "bob", "pw")

	_, err := f.svc.Login(context.Background(), "bob", "pw", "")
	require.ErrorIs(t, err, apperr.ErrTenantDisabled)

	expired := f.seedTenant(t, "t-exp", true)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, f.tenants.Update(context.Background(), expired.ID, map[string]interface{}{"subscription_expires_at": past}))
	f.seedUser(t, "t-exp", "carol", "pw")

	_, err = f.svc.Login(context.Background(), "carol", "pw", "")
	require.ErrorIs(t, err, apperr.ErrSubscriptionExpired)
}

func TestLoginDisabledUser(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "t-a", true)
	u := f.seedUser(t, "t-a", "dave", "pw")
	ctx := tenant.With(context.Background(), &model.Tenant{ID: "t-a", IsActive: true})
	_, err := f.users.Update(ctx, u.ID, map[string]interface{}{"status": 0})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "dave", "pw", "")
	require.Error(t, err)
}

func TestRefreshRotatesJTI(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "t-a", true)
	u := f.seedUser(t, "t-a", "alice", "pw")

	res, err := f.svc.Login(context.Background(), "alice", "pw", "")
	require.NoError(t, err)
	old, err := f.jwtm.Parse(res.Token)
	require.NoError(t, err)

	res2, err := f.svc.Refresh(context.Background(), u.ID, "t-a", old.JTI)
	require.NoError(t, err)
	fresh, err := f.jwtm.Parse(res2.Token)
	require.NoError(t, err)
	require.NotEqual(t, old.JTI, fresh.JTI)

	// 旧 JTI 即刻吊销，新 JTI 可用
	require.False(t, f.svc.JTIAlive(context.Background(), old.JTI))
	require.True(t, f.svc.JTIAlive(context.Background(), fresh.JTI))
}

func TestRefreshBlockedByTenantAndUserState(t *testing.T) {
	f := newAuthFixture(t)
	tn := f.seedTenant(t, "t-a", true)
	u := f.seedUser(t, "t-a", "alice", "pw")

	res, err := f.svc.Login(context.Background(), "alice", "pw", "")
	require.NoError(t, err)
	claims, err := f.jwtm.Parse(res.Token)
	require.NoError(t, err)

	// 租户停用后不得换发
	require.NoError(t, f.tenants.Update(context.Background(), tn.ID, map[string]interface{}{"is_active": false}))
	_, err = f.svc.Refresh(context.Background(), u.ID, "t-a", claims.JTI)
	require.ErrorIs(t, err, apperr.ErrTenantDisabled)

	// 用户停用同理
	require.NoError(t, f.tenants.Update(context.Background(), tn.ID, map[string]interface{}{"is_active": true}))
	ctx := tenant.With(context.Background(), &model.Tenant{ID: "t-a", IsActive: true})
	_, err = f.users.Update(ctx, u.ID, map[string]interface{}{"status": 0})
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), u.ID, "t-a", claims.JTI)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginTokenCarriesValidRoles(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "t-a", true)
	u := f.seedUser(t, "t-a", "erin", "pw")
	ctx := tenant.With(context.Background(), &model.Tenant{ID: "t-a", IsActive: true})

	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.urDAO.Assign(ctx, &model.UserRole{UserID: u.ID, RoleID: 11, IsActive: true}))
	require.NoError(t, f.urDAO.Assign(ctx, &model.UserRole{UserID: u.ID, RoleID: 12, IsActive: true, ExpiresAt: &past}))
	require.NoError(t, f.urDAO.Assign(ctx, &model.UserRole{UserID: u.ID, RoleID: 13, IsActive: false}))

	res, err := f.svc.Login(context.Background(), "erin", "pw", "")
	require.NoError(t, err)
	claims, err := f.jwtm.Parse(res.Token)
	require.NoError(t, err)
	require.Equal(t, []int64{11}, claims.Roles)
}
