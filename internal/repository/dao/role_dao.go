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

// RoleDAO 角色读写走租户作用域仓储；role_permission 关系表按角色 id 访问，
// 角色本身已被作用域约束，不会越到其他租户的关系行。
type RoleDAO struct {
	DB    *gorm.DB
	store *scope.Store[model.Role]
}

func NewRoleDAO(db *gorm.DB) *RoleDAO {
	return &RoleDAO{DB: db, store: scope.NewStore[model.Role](db)}
}

func (d *RoleDAO) tracer() trace.Tracer { return otel.Tracer("dao.role") }

func (d *RoleDAO) FindByID(ctx context.Context, id int64) (*model.Role, error) {
	r, err := d.store.First(ctx, "id = ?", id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func (d *RoleDAO) FindByName(ctx context.Context, name string) (*model.Role, error) {
	r, err := d.store.First(ctx, "name = ?", name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

// ListAll 当前租户全部角色（含停用，管理界面需要）
func (d *RoleDAO) ListAll(ctx context.Context) ([]model.Role, error) {
	ctx, span := d.tracer().Start(ctx, "RoleDAO.ListAll")
	defer span.End()
	list, err := d.store.Find(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return list, nil
}

func (d *RoleDAO) ListActive(ctx context.Context) ([]model.Role, error) {
	return d.store.Find(ctx, "is_active = ?", true)
}

func (d *RoleDAO) ListByIDs(ctx context.Context, ids []int64) ([]model.Role, error) {
	if len(ids) == 0 {
		return []model.Role{}, nil
	}
	return d.store.Find(ctx, "id IN ?", ids)
}

// ListChildren 直接子角色（启用）
func (d *RoleDAO) ListChildren(ctx context.Context, parentID int64) ([]model.Role, error) {
	return d.store.Find(ctx, "parent_role_id = ? AND is_active = ?", parentID, true)
}

func (d *RoleDAO) Count(ctx context.Context) (int64, error) {
	return d.store.Count(ctx)
}

func (d *RoleDAO) Create(ctx context.Context, r *model.Role) error {
	ctx, span := d.tracer().Start(ctx, "RoleDAO.Create")
	defer span.End()
	if err := d.store.Create(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (d *RoleDAO) Update(ctx context.Context, id int64, values map[string]interface{}) error {
	_, err := d.store.Updates(ctx, values, "id = ?", id)
	return err
}

func (d *RoleDAO) Delete(ctx context.Context, id int64) error {
	ctx, span := d.tracer().Start(ctx, "RoleDAO.Delete")
	defer span.End()
	if _, err := d.store.Delete(ctx, "id = ?", id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// ===== role_permission 关系 =====

func (d *RoleDAO) ListPermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	if err := d.DB.WithContext(ctx).Model(&model.RolePermission{}).
		Where("role_id = ?", roleID).Pluck("permission_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ReplacePermissions 整体替换角色的直接权限（事务内先删后插）
func (d *RoleDAO) ReplacePermissions(ctx context.Context, roleID int64, permIDs []int64) error {
	ctx, span := d.tracer().Start(ctx, "RoleDAO.ReplacePermissions")
	defer span.End()
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		if len(permIDs) == 0 {
			return nil
		}
		rows := make([]model.RolePermission, 0, len(permIDs))
		for _, pid := range permIDs {
			rows = append(rows, model.RolePermission{RoleID: roleID, PermissionID: pid})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
