package model

import "time"

// Tenant 租户，多租户隔离的根对象。物理上永不合并，仅停用/启用。

type Tenant struct {
	ID                    string     `gorm:"primaryKey;type:uuid;column:id" json:"id"`
	Name                  string     `gorm:"size:100;uniqueIndex:uk_tenant_name" json:"name"`
	Domain                string     `gorm:"size:100;index:idx_tenant_domain" json:"domain"`
	IsActive              bool       `gorm:"column:is_active;default:true" json:"is_active"`
	SubscriptionExpiresAt *time.Time `gorm:"column:subscription_expires_at" json:"subscription_expires_at,omitempty"`
	MaxUsers              int        `gorm:"column:max_users;default:100" json:"max_users"`
	MaxRoles              int        `gorm:"column:max_roles;default:50" json:"max_roles"`
	MaxMenus              int        `gorm:"column:max_menus;default:200" json:"max_menus"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (Tenant) TableName() string { return "core_tenant" }

// SubscriptionActive 未设置到期时间视为长期有效
func (t *Tenant) SubscriptionActive(now time.Time) bool {
	if t.SubscriptionExpiresAt == nil {
		return true
	}
	return now.Before(*t.SubscriptionExpiresAt)
}
