package scope

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/tenant"
)

// 租户作用域仓储：所有查询/写入自动按 ctx 中的租户过滤与打标。
// 无租户上下文时读写直接拒绝（ErrContextRequired），不存在"忘了过滤"的静默全量路径；
// 跨租户维护场景必须显式走 Unscoped。

// TenantOwned 带 tenant_id 列的模型（嵌入 model.Tenanted 即满足）
type TenantOwned interface {
	GetTenantID() string
	SetTenantID(id string)
}

// Store 针对单个模型 T 的租户作用域仓储
type Store[T any] struct {
	db *gorm.DB
}

func NewStore[T any](db *gorm.DB) *Store[T] { return &Store[T]{db: db} }

// Query 返回已按当前租户过滤的查询句柄，调用方继续链式拼接条件。
// ctx 无租户时返回错误而非未过滤句柄。
func (s *Store[T]) Query(ctx context.Context) (*gorm.DB, error) {
	tid, ok := tenant.ID(ctx)
	if !ok {
		return nil, apperr.ErrContextRequired
	}
	var zero T
	return s.db.WithContext(ctx).Model(&zero).Where("tenant_id = ?", tid), nil
}

// Unscoped 跨租户查询句柄。仅限平台运维与租户目录本身使用，
// 调用点写明用途，禁止作为普通查询的捷径。
func (s *Store[T]) Unscoped(ctx context.Context) *gorm.DB {
	var zero T
	return s.db.WithContext(ctx).Model(&zero)
}

func (s *Store[T]) Find(ctx context.Context, conds ...interface{}) ([]T, error) {
	q, err := s.Query(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("scoped find: %w", err)
	}
	return out, nil
}

func (s *Store[T]) First(ctx context.Context, conds ...interface{}) (*T, error) {
	q, err := s.Query(ctx)
	if err != nil {
		return nil, err
	}
	var out T
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	if err := q.First(&out).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("scoped first: %w", err)
	}
	return &out, nil
}

func (s *Store[T]) Count(ctx context.Context, conds ...interface{}) (int64, error) {
	q, err := s.Query(ctx)
	if err != nil {
		return 0, err
	}
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("scoped count: %w", err)
	}
	return n, nil
}

// Create 自动写入当前租户；实体已带其他租户 id 视为跨租户引用拒绝
func (s *Store[T]) Create(ctx context.Context, entity *T) error {
	tid, ok := tenant.ID(ctx)
	if !ok {
		return apperr.ErrContextRequired
	}
	owned, ok := any(entity).(TenantOwned)
	if !ok {
		return fmt.Errorf("model %T does not embed tenant ownership", entity)
	}
	if cur := owned.GetTenantID(); cur != "" && cur != tid {
		return apperr.ErrCrossTenant
	}
	owned.SetTenantID(tid)
	if err := s.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("scoped create: %w", err)
	}
	return nil
}

// Updates 按条件更新，更新集不允许改写 tenant_id
func (s *Store[T]) Updates(ctx context.Context, values map[string]interface{}, conds ...interface{}) (int64, error) {
	q, err := s.Query(ctx)
	if err != nil {
		return 0, err
	}
	if _, bad := values["tenant_id"]; bad {
		return 0, apperr.ErrCrossTenant
	}
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	res := q.Updates(values)
	if res.Error != nil {
		return 0, fmt.Errorf("scoped updates: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store[T]) Delete(ctx context.Context, conds ...interface{}) (int64, error) {
	q, err := s.Query(ctx)
	if err != nil {
		return 0, err
	}
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	var zero T
	res := q.Delete(&zero)
	if res.Error != nil {
		return 0, fmt.Errorf("scoped delete: %w", res.Error)
	}
	return res.RowsAffected, nil
}
