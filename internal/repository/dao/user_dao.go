package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/repository/scope"
)

type UserDAO struct {
	DB    *gorm.DB
	store *scope.Store[model.User]
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{DB: db, store: scope.NewStore[model.User](db)}
}

// FindByUsernameGlobal 登录入口在租户解析之前，按用户名全局查找。
// 同名用户归属不同租户时由登录请求的租户头消歧（service 层处理）。
func (d *UserDAO) FindByUsernameGlobal(ctx context.Context, username string) ([]model.User, error) {
	var list []model.User
	if err := d.DB.WithContext(ctx).Where("username = ?", username).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *UserDAO) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := d.store.First(ctx, "id = ?", id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (d *UserDAO) Count(ctx context.Context) (int64, error) {
	return d.store.Count(ctx)
}

func (d *UserDAO) Create(ctx context.Context, u *model.User) error {
	return d.store.Create(ctx, u)
}

func (d *UserDAO) Update(ctx context.Context, id int64, values map[string]interface{}) (int64, error) {
	return d.store.Updates(ctx, values, "id = ?", id)
}
