package dao

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/repository/scope"
)

type MenuDAO struct {
	DB    *gorm.DB
	store *scope.Store[model.Menu]
}

func NewMenuDAO(db *gorm.DB) *MenuDAO {
	return &MenuDAO{DB: db, store: scope.NewStore[model.Menu](db)}
}

func (d *MenuDAO) tracer() trace.Tracer { return otel.Tracer("dao.menu") }

func (d *MenuDAO) FindByID(ctx context.Context, id int64) (*model.Menu, error) {
	m, err := d.store.First(ctx, "id = ?", id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListEnabled 当前租户全部启用菜单，按 sort_order, id 稳定排序
func (d *MenuDAO) ListEnabled(ctx context.Context) ([]model.Menu, error) {
	ctx, span := d.tracer().Start(ctx, "MenuDAO.ListEnabled")
	defer span.End()
	q, err := d.store.Query(ctx)
	if err != nil {
		return nil, err
	}
	var list []model.Menu
	if err := q.Where("is_enabled = ?", true).Order("sort_order, id").Find(&list).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return list, nil
}

// ListAll 管理视图用，含停用
func (d *MenuDAO) ListAll(ctx context.Context) ([]model.Menu, error) {
	q, err := d.store.Query(ctx)
	if err != nil {
		return nil, err
	}
	var list []model.Menu
	if err := q.Order("sort_order, id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *MenuDAO) Count(ctx context.Context) (int64, error) {
	return d.store.Count(ctx)
}

func (d *MenuDAO) CountChildren(ctx context.Context, parentID int64) (int64, error) {
	return d.store.Count(ctx, "parent_id = ?", parentID)
}

func (d *MenuDAO) Create(ctx context.Context, m *model.Menu) error {
	ctx, span := d.tracer().Start(ctx, "MenuDAO.Create")
	defer span.End()
	if err := d.store.Create(ctx, m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (d *MenuDAO) Update(ctx context.Context, id int64, values map[string]interface{}) error {
	_, err := d.store.Updates(ctx, values, "id = ?", id)
	return err
}

func (d *MenuDAO) Delete(ctx context.Context, id int64) error {
	ctx, span := d.tracer().Start(ctx, "MenuDAO.Delete")
	defer span.End()
	if _, err := d.store.Delete(ctx, "id = ?", id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// ===== ACL 绑定关系 =====

func (d *MenuDAO) ListRoleBindings(ctx context.Context, menuIDs []int64) ([]model.MenuRole, error) {
	if len(menuIDs) == 0 {
		return []model.MenuRole{}, nil
	}
	var list []model.MenuRole
	if err := d.DB.WithContext(ctx).Where("menu_id IN ?", menuIDs).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *MenuDAO) ListPermissionBindings(ctx context.Context, menuIDs []int64) ([]model.MenuPermission, error) {
	if len(menuIDs) == 0 {
		return []model.MenuPermission{}, nil
	}
	var list []model.MenuPermission
	if err := d.DB.WithContext(ctx).Where("menu_id IN ?", menuIDs).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ReplaceBindings 整体替换菜单的角色/权限绑定
func (d *MenuDAO) ReplaceBindings(ctx context.Context, menuID int64, roleIDs, permIDs []int64) error {
	ctx, span := d.tracer().Start(ctx, "MenuDAO.ReplaceBindings")
	defer span.End()
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_id = ?", menuID).Delete(&model.MenuRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_id = ?", menuID).Delete(&model.MenuPermission{}).Error; err != nil {
			return err
		}
		if len(roleIDs) > 0 {
			rows := make([]model.MenuRole, 0, len(roleIDs))
			for _, rid := range roleIDs {
				rows = append(rows, model.MenuRole{MenuID: menuID, RoleID: rid})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if len(permIDs) > 0 {
			rows := make([]model.MenuPermission, 0, len(permIDs))
			for _, pid := range permIDs {
				rows = append(rows, model.MenuPermission{MenuID: menuID, PermissionID: pid})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
