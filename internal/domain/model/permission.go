package model

import "time"

// Permission 全局权限目录（不做租户隔离），code 唯一
// category: system / user / trading / strategy / risk / market / monitoring

type Permission struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string    `gorm:"size:100;uniqueIndex:uk_permission_code" json:"code"`
	Name        string    `gorm:"size:100" json:"name"`
	Category    string    `gorm:"size:20;index" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Permission) TableName() string { return "core_permission" }
