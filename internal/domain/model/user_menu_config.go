package model

import "time"

// UserMenuConfig 每用户的菜单个性化覆盖层：只影响返回给该用户的树，
// 不修改 Menu 本体。首次个性化或首次访问时 upsert。

type UserMenuConfig struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Tenanted
	UserID         int64      `gorm:"column:user_id;index:idx_umc_user" json:"user_id"`
	MenuID         int64      `gorm:"column:menu_id;index" json:"menu_id"`
	IsFavorite     bool       `gorm:"column:is_favorite;default:false" json:"is_favorite"`
	IsHidden       bool       `gorm:"column:is_hidden;default:false" json:"is_hidden"`
	CustomTitle    string     `gorm:"size:100;column:custom_title" json:"custom_title"`
	CustomIcon     string     `gorm:"size:100;column:custom_icon" json:"custom_icon"`
	CustomSort     *int       `gorm:"column:custom_sort" json:"custom_sort,omitempty"`
	AccessCount    int64      `gorm:"column:access_count;default:0" json:"access_count"`
	LastAccessTime *time.Time `gorm:"column:last_access_time" json:"last_access_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (UserMenuConfig) TableName() string { return "core_user_menu_config" }
