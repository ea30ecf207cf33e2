package model

import "time"

// User 后台用户；is_superuser 为"不受限主体"标记，绕过菜单 ACL。

type User struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Tenanted
	Username    string    `gorm:"size:64;index" json:"username"`
	Nickname    string    `gorm:"size:64" json:"nickname"`
	Password    string    `gorm:"size:64" json:"-"`
	Status      int8      `gorm:"column:status;default:1" json:"status"` // 1 正常 0 禁用
	IsSuperuser bool      `gorm:"column:is_superuser;default:false" json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string { return "core_user" }

// UserRole 用户-角色分配，可单独停用或设置到期时间
type UserRole struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64      `gorm:"column:user_id;index" json:"user_id"`
	RoleID    int64      `gorm:"column:role_id;index" json:"role_id"`
	ExpiresAt *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	IsActive  bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

func (UserRole) TableName() string { return "core_user_role" }

// Valid 分配有效 = 激活且未到期
func (ur *UserRole) Valid(now time.Time) bool {
	if !ur.IsActive {
		return false
	}
	if ur.ExpiresAt != nil && !now.Before(*ur.ExpiresAt) {
		return false
	}
	return true
}
