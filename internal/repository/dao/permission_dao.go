package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go-tenantadmin/internal/domain/model"
)

// PermissionDAO 权限目录是平台级数据，不做租户隔离
type PermissionDAO struct{ DB *gorm.DB }

func NewPermissionDAO(db *gorm.DB) *PermissionDAO { return &PermissionDAO{DB: db} }

func (d *PermissionDAO) List(ctx context.Context, category string) ([]model.Permission, error) {
	q := d.DB.WithContext(ctx).Model(&model.Permission{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var list []model.Permission
	if err := q.Order("category, code").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *PermissionDAO) FindByCode(ctx context.Context, code string) (*model.Permission, error) {
	var p model.Permission
	if err := d.DB.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (d *PermissionDAO) ListByIDs(ctx context.Context, ids []int64) ([]model.Permission, error) {
	if len(ids) == 0 {
		return []model.Permission{}, nil
	}
	var list []model.Permission
	if err := d.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *PermissionDAO) ListByCodes(ctx context.Context, codes []string) ([]model.Permission, error) {
	if len(codes) == 0 {
		return []model.Permission{}, nil
	}
	var list []model.Permission
	if err := d.DB.WithContext(ctx).Where("code IN ?", codes).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Ensure 按 code 幂等落库（目录种子）
func (d *PermissionDAO) Ensure(ctx context.Context, p *model.Permission) error {
	return d.DB.WithContext(ctx).
		Where("code = ?", p.Code).
		FirstOrCreate(p).Error
}
