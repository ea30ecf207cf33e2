package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/repository/scope"
)

// UserMenuConfigDAO 用户菜单个性化覆盖层
type UserMenuConfigDAO struct {
	DB    *gorm.DB
	store *scope.Store[model.UserMenuConfig]
}

func NewUserMenuConfigDAO(db *gorm.DB) *UserMenuConfigDAO {
	return &UserMenuConfigDAO{DB: db, store: scope.NewStore[model.UserMenuConfig](db)}
}

func (d *UserMenuConfigDAO) ListByUser(ctx context.Context, userID int64) ([]model.UserMenuConfig, error) {
	return d.store.Find(ctx, "user_id = ?", userID)
}

func (d *UserMenuConfigDAO) Find(ctx context.Context, userID, menuID int64) (*model.UserMenuConfig, error) {
	c, err := d.store.First(ctx, "user_id = ? AND menu_id = ?", userID, menuID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Upsert 首次个性化时创建，已存在则只更新传入字段
func (d *UserMenuConfigDAO) Upsert(ctx context.Context, userID, menuID int64, values map[string]interface{}) error {
	existing, err := d.Find(ctx, userID, menuID)
	if err != nil {
		return err
	}
	if existing == nil {
		row := model.UserMenuConfig{UserID: userID, MenuID: menuID}
		applyConfigValues(&row, values)
		return d.store.Create(ctx, &row)
	}
	_, err = d.store.Updates(ctx, values, "user_id = ? AND menu_id = ?", userID, menuID)
	return err
}

// RecordAccess 访问计数 +1 并刷新最近访问时间（行不存在则创建）
func (d *UserMenuConfigDAO) RecordAccess(ctx context.Context, userID, menuID int64, at time.Time) error {
	existing, err := d.Find(ctx, userID, menuID)
	if err != nil {
		return err
	}
	if existing == nil {
		row := model.UserMenuConfig{UserID: userID, MenuID: menuID, AccessCount: 1, LastAccessTime: &at}
		return d.store.Create(ctx, &row)
	}
	q, err := d.store.Query(ctx)
	if err != nil {
		return err
	}
	return q.Where("user_id = ? AND menu_id = ?", userID, menuID).
		Updates(map[string]interface{}{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_access_time": at,
		}).Error
}

func (d *UserMenuConfigDAO) ListFavorites(ctx context.Context, userID int64) ([]model.UserMenuConfig, error) {
	return d.store.Find(ctx, "user_id = ? AND is_favorite = ?", userID, true)
}

func applyConfigValues(row *model.UserMenuConfig, values map[string]interface{}) {
	for k, v := range values {
		switch k {
		case "is_favorite":
			if b, ok := v.(bool); ok {
				row.IsFavorite = b
			}
		case "is_hidden":
			if b, ok := v.(bool); ok {
				row.IsHidden = b
			}
		case "custom_title":
			if s, ok := v.(string); ok {
				row.CustomTitle = s
			}
		case "custom_icon":
			if s, ok := v.(string); ok {
				row.CustomIcon = s
			}
		case "custom_sort":
			if n, ok := v.(*int); ok {
				row.CustomSort = n
			} else if n, ok := v.(int); ok {
				row.CustomSort = &n
			}
		}
	}
}
