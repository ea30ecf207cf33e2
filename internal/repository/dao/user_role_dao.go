package dao

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go-tenantadmin/internal/domain/model"
)

// UserRoleDAO 用户-角色分配。关系行本身不带 tenant_id，
// 以角色侧的作用域查询为隔离边界（service 先确认角色属于当前租户）。
type UserRoleDAO struct{ DB *gorm.DB }

func NewUserRoleDAO(db *gorm.DB) *UserRoleDAO { return &UserRoleDAO{DB: db} }

func (d *UserRoleDAO) ListByUser(ctx context.Context, userID int64) ([]model.UserRole, error) {
	var list []model.UserRole
	if err := d.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ValidRoleIDs 用户当前有效（激活且未到期）的角色 id
func (d *UserRoleDAO) ValidRoleIDs(ctx context.Context, userID int64, now time.Time) ([]int64, error) {
	assignments, err := d.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(assignments))
	for i := range assignments {
		if assignments[i].Valid(now) {
			ids = append(ids, assignments[i].RoleID)
		}
	}
	return ids, nil
}

// CountActiveByRole 角色是否仍被有效分配占用（删除前校验）
func (d *UserRoleDAO) CountActiveByRole(ctx context.Context, roleID int64, now time.Time) (int64, error) {
	var n int64
	err := d.DB.WithContext(ctx).Model(&model.UserRole{}).
		Where("role_id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)", roleID, true, now).
		Count(&n).Error
	return n, err
}

func (d *UserRoleDAO) Assign(ctx context.Context, ur *model.UserRole) error {
	return d.DB.WithContext(ctx).Create(ur).Error
}

func (d *UserRoleDAO) Revoke(ctx context.Context, userID, roleID int64) error {
	return d.DB.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&model.UserRole{}).Error
}
