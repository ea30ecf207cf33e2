package model

import "time"

// Role 租户内角色；parent_role_id 构成角色继承链（同租户、无环）。
// priority 仅用于展示排序，不参与权限求解。

type Role struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Tenanted
	// 名称在租户内唯一，由服务层校验（tenant_id 在嵌入结构内，无法声明组合唯一索引）
	Name         string    `gorm:"size:50;index" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	ParentRoleID *int64    `gorm:"column:parent_role_id;index" json:"parent_role_id,omitempty"`
	Priority     int       `gorm:"default:0" json:"priority"`
	SystemSeeded bool      `gorm:"column:system_seeded;default:false" json:"system_seeded"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Role) TableName() string { return "core_role" }

// RolePermission 角色直接授予的权限（m2m 关系表）
type RolePermission struct {
	RoleID       int64 `gorm:"primaryKey;column:role_id" json:"role_id"`
	PermissionID int64 `gorm:"primaryKey;column:permission_id" json:"permission_id"`
}

func (RolePermission) TableName() string { return "core_role_permission" }
