package admin

import (
	"go-tenantadmin/internal/config"
	"go-tenantadmin/internal/logging"
	"go-tenantadmin/internal/pkg/cache"
	"go-tenantadmin/internal/security/jwt"
	"go-tenantadmin/internal/service"
)

// Dependencies admin 子包依赖集合
type Dependencies struct {
	Auth   *service.AuthService
	Tenant *service.TenantService
	Role   *service.RoleService
	Perm   *service.PermissionService
	Menu   *service.MenuService
	JWT    *jwt.Manager
	Config *config.Config
	Cache  cache.Cache
	Logger *logging.Logger
}

// HandlerSet 聚合全部 admin handler
type HandlerSet struct {
	Auth     *AuthHandler
	Tenant   *TenantHandler
	Role     *RoleHandler
	Perm     *PermissionHandler
	Menu     *MenuHandler
	UserMenu *UserMenuHandler
}

func NewHandlerSet(d Dependencies) *HandlerSet {
	return &HandlerSet{
		Auth:     NewAuthHandler(d),
		Tenant:   NewTenantHandler(d),
		Role:     NewRoleHandler(d),
		Perm:     NewPermissionHandler(d),
		Menu:     NewMenuHandler(d),
		UserMenu: NewUserMenuHandler(d),
	}
}
