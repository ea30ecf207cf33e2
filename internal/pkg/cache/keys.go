package cache

import "strconv"

// 结构化缓存 key：统一 "tenant:{tid}:..." 前缀，失效可按租户/用户精确圈定，
// 避免手拼字符串的碰撞问题。

type Key struct {
	TenantID string
	UserID   int64  // 0 表示与用户无关
	Kind     string // menu-tree / role-permissions / byid ...
	Extra    string // kind 内的附加段（如角色 id）
}

func (k Key) String() string {
	s := "tenant:" + k.TenantID
	if k.UserID > 0 {
		s += ":user:" + strconv.FormatInt(k.UserID, 10)
	}
	s += ":" + k.Kind
	if k.Extra != "" {
		s += ":" + k.Extra
	}
	return s
}

// TenantPrefix 租户全量失效前缀
func TenantPrefix(tenantID string) string { return "tenant:" + tenantID + ":" }

// UserPrefix 单用户失效前缀
func UserPrefix(tenantID string, userID int64) string {
	return "tenant:" + tenantID + ":user:" + strconv.FormatInt(userID, 10) + ":"
}

// ===== 常用 key 构造 =====

func UserMenuTreeKey(tenantID string, userID int64) string {
	return Key{TenantID: tenantID, UserID: userID, Kind: "menu-tree"}.String()
}

func AdminMenuTreeKey(tenantID string) string {
	return Key{TenantID: tenantID, Kind: "menu-tree", Extra: "admin"}.String()
}

func RolePermissionsKey(tenantID string, roleID int64) string {
	return Key{TenantID: tenantID, Kind: "role-permissions", Extra: strconv.FormatInt(roleID, 10)}.String()
}

func RolePermissionsPrefix(tenantID string) string {
	return "tenant:" + tenantID + ":role-permissions:"
}

func TenantByIDKey(id string) string    { return "tenantdir:byid:" + id }
func TenantByDomainKey(d string) string { return "tenantdir:bydomain:" + d }
