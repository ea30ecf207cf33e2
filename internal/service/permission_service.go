package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/repository/dao"
)

// PermissionService 平台级权限目录：只读列表 + 幂等种子。
// code 形如 "category.action"，菜单与角色都按 code 引用。

type PermissionService struct {
	DAO *dao.PermissionDAO
}

func NewPermissionService(d *dao.PermissionDAO) *PermissionService {
	return &PermissionService{DAO: d}
}

func (s *PermissionService) tracer() trace.Tracer { return otel.Tracer("service.permission") }

type PermissionItem struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type ListPermissionResult struct {
	List []PermissionItem `json:"list"`
}

func (s *PermissionService) List(ctx context.Context, category string) (*ListPermissionResult, error) {
	perms, err := s.DAO.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	items := make([]PermissionItem, 0, len(perms))
	for _, p := range perms {
		items = append(items, PermissionItem{ID: p.ID, Code: p.Code, Name: p.Name, Category: p.Category, Description: p.Description})
	}
	return &ListPermissionResult{List: items}, nil
}

// 平台默认权限目录
var defaultPermissions = []model.Permission{
	{Code: "system.view_dashboard", Name: "查看系统仪表盘", Category: "system"},
	{Code: "system.manage_tenants", Name: "管理租户", Category: "system"},
	{Code: "system.manage_system_settings", Name: "管理系统设置", Category: "system"},

	{Code: "user.view_users", Name: "查看用户", Category: "user"},
	{Code: "user.create_user", Name: "创建用户", Category: "user"},
	{Code: "user.edit_user", Name: "编辑用户", Category: "user"},
	{Code: "user.delete_user", Name: "删除用户", Category: "user"},
	{Code: "user.manage_roles", Name: "管理角色", Category: "user"},
	{Code: "user.manage_permissions", Name: "管理权限", Category: "user"},

	{Code: "trading.view_orders", Name: "查看订单", Category: "trading"},
	{Code: "trading.create_order", Name: "创建订单", Category: "trading"},
	{Code: "trading.cancel_order", Name: "取消订单", Category: "trading"},
	{Code: "trading.view_positions", Name: "查看持仓", Category: "trading"},
	{Code: "trading.manage_exchanges", Name: "管理交易所", Category: "trading"},

	{Code: "strategy.view_strategies", Name: "查看策略", Category: "strategy"},
	{Code: "strategy.create_strategy", Name: "创建策略", Category: "strategy"},
	{Code: "strategy.edit_strategy", Name: "编辑策略", Category: "strategy"},
	{Code: "strategy.delete_strategy", Name: "删除策略", Category: "strategy"},
	{Code: "strategy.run_backtest", Name: "运行回测", Category: "strategy"},

	{Code: "risk.view_risk_metrics", Name: "查看风险指标", Category: "risk"},
	{Code: "risk.manage_risk_rules", Name: "管理风险规则", Category: "risk"},
	{Code: "risk.view_alerts", Name: "查看预警", Category: "risk"},

	{Code: "market.view_market_data", Name: "查看市场数据", Category: "market"},
	{Code: "market.export_data", Name: "导出数据", Category: "market"},

	{Code: "monitoring.view_system_status", Name: "查看系统状态", Category: "monitoring"},
	{Code: "monitoring.manage_logs", Name: "管理日志", Category: "monitoring"},
	{Code: "monitoring.view_performance", Name: "查看性能指标", Category: "monitoring"},
}

// SeedCatalog 幂等写入默认权限目录（启动时调用）
func (s *PermissionService) SeedCatalog(ctx context.Context) error {
	ctx, span := s.tracer().Start(ctx, "PermissionService.SeedCatalog")
	defer span.End()
	for i := range defaultPermissions {
		p := defaultPermissions[i]
		if p.Description == "" {
			p.Description = p.Name + "权限"
		}
		if err := s.DAO.Ensure(ctx, &p); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("seed permission %s: %w", p.Code, err)
		}
	}
	return nil
}
