package apperr

import "errors"

// 租户与访问控制错误分类。handler 层通过 response.ErrorFrom 映射为业务码，
// 服务层用 errors.Is 判断，不直接比较字符串。

var (
	// 租户解析 / 上下文
	ErrTenantRequired      = errors.New("tenant required")
	ErrTenantDisabled      = errors.New("tenant disabled")
	ErrSubscriptionExpired = errors.New("tenant subscription expired")
	ErrContextRequired     = errors.New("tenant context required")
	ErrCrossTenant         = errors.New("cross tenant reference")
	ErrQuotaExceeded       = errors.New("tenant quota exceeded")

	// 角色图
	ErrCircularInheritance = errors.New("circular role inheritance")
	ErrRoleInUse           = errors.New("role still assigned to active users")
	ErrRoleHasChildren     = errors.New("role has active child roles")
	ErrRoleSystemSeeded    = errors.New("system seeded role cannot be deleted")

	// 菜单
	ErrMenuHasChildren = errors.New("menu has children")

	ErrNotFound = errors.New("record not found")
)
