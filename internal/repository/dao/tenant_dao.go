package dao

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"go-tenantadmin/internal/domain/model"
)

// TenantDAO 租户目录。租户表是隔离的根，本身不受租户过滤，全部 unscoped。
type TenantDAO struct {
	DB *gorm.DB
}

func NewTenantDAO(db *gorm.DB) *TenantDAO { return &TenantDAO{DB: db} }

func (d *TenantDAO) tracer() trace.Tracer { return otel.Tracer("dao.tenant") }

func (d *TenantDAO) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	ctx, span := d.tracer().Start(ctx, "TenantDAO.FindByID")
	defer span.End()
	var t model.Tenant
	if err := d.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &t, nil
}

func (d *TenantDAO) FindByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	ctx, span := d.tracer().Start(ctx, "TenantDAO.FindByDomain")
	defer span.End()
	var t model.Tenant
	if err := d.DB.WithContext(ctx).Where("domain = ?", domain).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &t, nil
}

func (d *TenantDAO) FindByName(ctx context.Context, name string) (*model.Tenant, error) {
	var t model.Tenant
	if err := d.DB.WithContext(ctx).Where("name = ?", name).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (d *TenantDAO) Create(ctx context.Context, t *model.Tenant) error {
	ctx, span := d.tracer().Start(ctx, "TenantDAO.Create")
	defer span.End()
	if err := d.DB.WithContext(ctx).Create(t).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (d *TenantDAO) List(ctx context.Context, page, pageSize int) ([]model.Tenant, int64, error) {
	q := d.DB.WithContext(ctx).Model(&model.Tenant{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Tenant
	if err := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateActive 启用/停用
func (d *TenantDAO) UpdateActive(ctx context.Context, id string, active bool) error {
	return d.DB.WithContext(ctx).Model(&model.Tenant{}).Where("id = ?", id).
		Update("is_active", active).Error
}

func (d *TenantDAO) Update(ctx context.Context, id string, values map[string]interface{}) error {
	return d.DB.WithContext(ctx).Model(&model.Tenant{}).Where("id = ?", id).Updates(values).Error
}
