package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/repository/dao"
	"go-tenantadmin/internal/tenant"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Tenant{},
		&model.Permission{},
		&model.Role{},
		&model.RolePermission{},
		&model.User{},
		&model.UserRole{},
		&model.Menu{},
		&model.MenuRole{},
		&model.MenuPermission{},
		&model.UserMenuConfig{},
	))
	return db
}

func tenantCtx(t *model.Tenant) context.Context {
	return tenant.With(context.Background(), t)
}

// mustPerm 建一条权限并返回，测试用
func mustPerm(t *testing.T, d *dao.PermissionDAO, code, category string) model.Permission {
	t.Helper()
	p := model.Permission{Code: code, Name: code, Category: category}
	require.NoError(t, d.Ensure(context.Background(), &p))
	return p
}

type roleFixture struct {
	db      *gorm.DB
	roleDAO *dao.RoleDAO
	permDAO *dao.PermissionDAO
	urDAO   *dao.UserRoleDAO
	svc     *RoleService
}

func newRoleFixture(t *testing.T) *roleFixture {
	db := newTestDB(t)
	rd := dao.NewRoleDAO(db)
	pd := dao.NewPermissionDAO(db)
	ur := dao.NewUserRoleDAO(db)
	return &roleFixture{db: db, roleDAO: rd, permDAO: pd, urDAO: ur, svc: NewRoleService(rd, pd, ur)}
}
