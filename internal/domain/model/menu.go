package model

import "time"

// Menu 租户内导航菜单，parent_id 构成森林；level 恒等于父级 level+1，根为 1。
// menu_role / menu_permission 非空时分别要求角色交集与权限交集（两轴各自独立通过）。

type Menu struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Tenanted
	ParentID  *int64    `gorm:"column:parent_id;index" json:"parent_id,omitempty"`
	Name      string    `gorm:"size:100" json:"name"`
	Title     string    `gorm:"size:100" json:"title"`
	Icon      string    `gorm:"size:100" json:"icon"`
	Path      string    `gorm:"size:200" json:"path"`
	Component string    `gorm:"size:200" json:"component"`
	MenuType  string    `gorm:"size:20;column:menu_type;default:menu" json:"menu_type"` // menu / button / link
	Target    string    `gorm:"size:20;default:_self" json:"target"`
	Level     int       `gorm:"default:1" json:"level"`
	SortOrder int       `gorm:"column:sort_order;default:0" json:"sort_order"`
	IsVisible bool      `gorm:"column:is_visible;default:true" json:"is_visible"`
	IsEnabled bool      `gorm:"column:is_enabled;default:true" json:"is_enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Menu) TableName() string { return "core_menu" }

type MenuPermission struct {
	MenuID       int64 `gorm:"primaryKey;column:menu_id" json:"menu_id"`
	PermissionID int64 `gorm:"primaryKey;column:permission_id" json:"permission_id"`
}

func (MenuPermission) TableName() string { return "core_menu_permission" }

type MenuRole struct {
	MenuID int64 `gorm:"primaryKey;column:menu_id" json:"menu_id"`
	RoleID int64 `gorm:"primaryKey;column:role_id" json:"role_id"`
}

func (MenuRole) TableName() string { return "core_menu_role" }
