package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/repository/dao"
	"go-tenantadmin/internal/tenant"
)

// TenantService 平台运维面：租户开通、启停、订阅管理。
// 所有接口走 /admin/ops 免租户前缀，不依赖请求方的租户上下文。
type TenantService struct {
	DAO      *dao.TenantDAO
	Roles    *RoleService
	Resolver *tenant.Resolver
	Inval    *CacheInvalidator
	Audit    *AuditRecorder
	Logger   *zap.Logger
}

func NewTenantService(d *dao.TenantDAO, roles *RoleService, resolver *tenant.Resolver, inval *CacheInvalidator, audit *AuditRecorder, logger *zap.Logger) *TenantService {
	return &TenantService{DAO: d, Roles: roles, Resolver: resolver, Inval: inval, Audit: audit, Logger: logger}
}

func (s *TenantService) tracer() trace.Tracer { return otel.Tracer("service.tenant") }

type ProvisionParams struct {
	Name                  string
	Domain                string
	SubscriptionExpiresAt *time.Time
	MaxUsers              int
	MaxRoles              int
	MaxMenus              int
}

// Provision 开通租户并在其作用域内幂等落系统角色
func (s *TenantService) Provision(ctx context.Context, p ProvisionParams) (*model.Tenant, error) {
	ctx, span := s.tracer().Start(ctx, "TenantService.Provision")
	defer span.End()
	if p.Name == "" {
		return nil, fmt.Errorf("tenant name required")
	}
	if existing, err := s.DAO.FindByName(ctx, p.Name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("tenant name %q already exists", p.Name)
	}
	if p.Domain != "" {
		if existing, err := s.DAO.FindByDomain(ctx, p.Domain); err != nil {
			return nil, err
		} else if existing != nil {
			return nil, fmt.Errorf("tenant domain %q already taken", p.Domain)
		}
	}
	t := &model.Tenant{
		ID:                    uuid.NewString(),
		Name:                  p.Name,
		Domain:                p.Domain,
		IsActive:              true,
		SubscriptionExpiresAt: p.SubscriptionExpiresAt,
		MaxUsers:              withDefault(p.MaxUsers, 100),
		MaxRoles:              withDefault(p.MaxRoles, 50),
		MaxMenus:              withDefault(p.MaxMenus, 200),
	}
	if err := s.DAO.Create(ctx, t); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	// 开通即在新租户作用域内种系统角色
	err := tenant.RunAs(ctx, t, func(ctx context.Context) error {
		_, err := s.Roles.BootstrapSystemRoles(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap system roles: %w", err)
	}
	s.Logger.Info("tenant provisioned", zap.String("tenant_id", t.ID), zap.String("name", t.Name))
	s.Audit.Record(ctx, "tenant.provision", "tenant", t.ID, t.Name)
	return t, nil
}

type ListTenantResult struct {
	List  []model.Tenant `json:"list"`
	Total int64          `json:"count"`
}

func (s *TenantService) List(ctx context.Context, page, pageSize int) (*ListTenantResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	list, total, err := s.DAO.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &ListTenantResult{List: list, Total: total}, nil
}

// ChangeStatus 启停租户；停用立即清目录缓存与派生缓存，在途请求按 TTL 内收敛
func (s *TenantService) ChangeStatus(ctx context.Context, id string, active bool) error {
	ctx, span := s.tracer().Start(ctx, "TenantService.ChangeStatus")
	defer span.End()
	t, err := s.DAO.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("tenant %s not found", id)
	}
	if err := s.DAO.UpdateActive(ctx, id, active); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if s.Resolver != nil {
		s.Resolver.Evict(ctx, t)
	}
	if s.Inval != nil {
		s.Inval.InvalidateTenant(ctx, id)
	}
	action := "tenant.disable"
	if active {
		action = "tenant.enable"
	}
	s.Audit.Record(ctx, action, "tenant", id, t.Name)
	return nil
}

// UpdateSubscription 调整订阅到期时间（nil 为长期有效）
func (s *TenantService) UpdateSubscription(ctx context.Context, id string, expiresAt *time.Time) error {
	t, err := s.DAO.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("tenant %s not found", id)
	}
	if err := s.DAO.Update(ctx, id, map[string]interface{}{"subscription_expires_at": expiresAt}); err != nil {
		return err
	}
	if s.Resolver != nil {
		s.Resolver.Evict(ctx, t)
	}
	s.Audit.Record(ctx, "tenant.subscription", "tenant", id, "")
	return nil
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
