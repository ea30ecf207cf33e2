package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/metrics"
	"go-tenantadmin/internal/pkg/cache"
	"go-tenantadmin/internal/repository/dao"
	"go-tenantadmin/internal/tenant"
)

// maxInheritDepth 继承链深度上限，超出按数据异常处理
const maxInheritDepth = 64

// RoleService 角色图：直接权限、继承闭包、环检测、可删除性与系统角色种子。
// 有效权限 = 自身直接权限 ∪ 所有祖先角色的直接权限（停用祖先照常贡献，
// 停用只影响该角色能否被直接分配）。
type RoleService struct {
	DAO      *dao.RoleDAO
	PermDAO  *dao.PermissionDAO
	UserRole *dao.UserRoleDAO
	Cache    cache.Cache
	Inval    *CacheInvalidator
	ttl      time.Duration
	now      func() time.Time
}

func NewRoleService(d *dao.RoleDAO, p *dao.PermissionDAO, ur *dao.UserRoleDAO) *RoleService {
	return &RoleService{
		DAO: d, PermDAO: p, UserRole: ur,
		Cache: cache.NewSimpleAdapter(cache.New(300 * time.Second)),
		ttl:   300 * time.Second,
		now:   time.Now,
	}
}

// NewRoleServiceWithCache 注入 LayeredCache 与失效器
func NewRoleServiceWithCache(d *dao.RoleDAO, p *dao.PermissionDAO, ur *dao.UserRoleDAO, c cache.Cache, inval *CacheInvalidator, ttlSeconds int) *RoleService {
	s := NewRoleService(d, p, ur)
	if c != nil {
		s.Cache = c
	}
	s.Inval = inval
	if ttlSeconds > 0 {
		s.ttl = time.Duration(ttlSeconds) * time.Second
	}
	return s
}

func (s *RoleService) tracer() trace.Tracer { return otel.Tracer("service.role") }

// ===== 权限求解 =====

// GetDirectPermissions 角色自身直接授予的权限 code 集合
func (s *RoleService) GetDirectPermissions(ctx context.Context, roleID int64) (map[string]struct{}, error) {
	ids, err := s.DAO.ListPermissionIDs(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("list role permission ids: %w", err)
	}
	perms, err := s.PermDAO.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve permission codes: %w", err)
	}
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p.Code] = struct{}{}
	}
	return set, nil
}

// GetAllPermissions 直接权限 + 全部祖先的直接权限。走缓存；父链查询逐级
// 向上，visited 防环（存量脏数据也不会死循环）。
func (s *RoleService) GetAllPermissions(ctx context.Context, roleID int64) (map[string]struct{}, error) {
	ctx, span := s.tracer().Start(ctx, "RoleService.GetAllPermissions")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return nil, apperr.ErrContextRequired
	}

	key := cache.RolePermissionsKey(tid, roleID)
	if v, _ := s.Cache.Get(ctx, key); v != "" {
		if cache.IsNilSentinel(v) {
			metrics.CacheNilHit.Inc()
			metrics.RolePermResolveTotal.WithLabelValues("cache").Inc()
			return map[string]struct{}{}, nil
		}
		var arr []string
		if json.Unmarshal([]byte(v), &arr) == nil {
			metrics.RolePermResolveTotal.WithLabelValues("cache").Inc()
			return codesToSet(arr), nil
		}
	}

	set := make(map[string]struct{})
	visited := make(map[int64]struct{})
	cur := roleID
	for depth := 0; depth < maxInheritDepth; depth++ {
		if _, seen := visited[cur]; seen {
			break
		}
		visited[cur] = struct{}{}
		role, err := s.DAO.FindByID(ctx, cur)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if role == nil {
			break
		}
		direct, err := s.GetDirectPermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for c := range direct {
			set[c] = struct{}{}
		}
		if role.ParentRoleID == nil {
			break
		}
		cur = *role.ParentRoleID
	}

	if len(set) == 0 {
		_ = s.Cache.SetEX(ctx, key, cache.WrapNil(true), cache.JitterTTL(s.ttl))
	} else {
		arr := make([]string, 0, len(set))
		for c := range set {
			arr = append(arr, c)
		}
		if b, err := json.Marshal(arr); err == nil {
			_ = s.Cache.SetEX(ctx, key, string(b), cache.JitterTTL(s.ttl))
		}
	}
	metrics.RolePermResolveTotal.WithLabelValues("db").Inc()
	return set, nil
}

// GetUserPermissions 用户全部有效角色的权限并集；superuser 由调用方短路
func (s *RoleService) GetUserPermissions(ctx context.Context, userID int64) (map[string]struct{}, error) {
	roleIDs, err := s.UserRole.ValidRoleIDs(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("valid role ids: %w", err)
	}
	set := make(map[string]struct{})
	for _, rid := range roleIDs {
		perms, err := s.GetAllPermissions(ctx, rid)
		if err != nil {
			return nil, err
		}
		for c := range perms {
			set[c] = struct{}{}
		}
	}
	return set, nil
}

// GetInheritanceChain 自身到根的角色链（自身在前）
func (s *RoleService) GetInheritanceChain(ctx context.Context, roleID int64) ([]model.Role, error) {
	var chain []model.Role
	visited := make(map[int64]struct{})
	cur := roleID
	for depth := 0; depth < maxInheritDepth; depth++ {
		if _, seen := visited[cur]; seen {
			break
		}
		visited[cur] = struct{}{}
		role, err := s.DAO.FindByID(ctx, cur)
		if err != nil {
			return nil, err
		}
		if role == nil {
			break
		}
		chain = append(chain, *role)
		if role.ParentRoleID == nil {
			break
		}
		cur = *role.ParentRoleID
	}
	return chain, nil
}

// WouldCreateCycle 把 parentID 设为 roleID 的父级是否成环：
// 沿 parentID 的祖先链向上，出现 roleID 即成环
func (s *RoleService) WouldCreateCycle(ctx context.Context, roleID, parentID int64) (bool, error) {
	if roleID == parentID {
		return true, nil
	}
	visited := make(map[int64]struct{})
	cur := parentID
	for depth := 0; depth < maxInheritDepth; depth++ {
		if cur == roleID {
			return true, nil
		}
		if _, seen := visited[cur]; seen {
			return false, nil
		}
		visited[cur] = struct{}{}
		role, err := s.DAO.FindByID(ctx, cur)
		if err != nil {
			return false, err
		}
		if role == nil || role.ParentRoleID == nil {
			return false, nil
		}
		cur = *role.ParentRoleID
	}
	return false, nil
}

// CanDelete 系统角色、仍有有效分配、仍有启用子角色的均不可删
func (s *RoleService) CanDelete(ctx context.Context, role *model.Role) error {
	if role.SystemSeeded {
		return apperr.ErrRoleSystemSeeded
	}
	n, err := s.UserRole.CountActiveByRole(ctx, role.ID, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.ErrRoleInUse
	}
	children, err := s.DAO.ListChildren(ctx, role.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return apperr.ErrRoleHasChildren
	}
	return nil
}

// ===== CRUD =====

type AddRoleParams struct {
	Name          string
	Description   string
	ParentRoleID  *int64
	Priority      int
	PermissionIDs []int64
}

func (s *RoleService) Add(ctx context.Context, p AddRoleParams) (*model.Role, error) {
	ctx, span := s.tracer().Start(ctx, "RoleService.Add")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return nil, apperr.ErrContextRequired
	}
	t, _ := tenant.From(ctx)
	if t != nil && t.MaxRoles > 0 {
		n, err := s.DAO.Count(ctx)
		if err != nil {
			return nil, err
		}
		if n >= int64(t.MaxRoles) {
			return nil, apperr.ErrQuotaExceeded
		}
	}
	if existing, err := s.DAO.FindByName(ctx, p.Name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("role name %q already exists", p.Name)
	}
	if p.ParentRoleID != nil {
		parent, err := s.DAO.FindByID(ctx, *p.ParentRoleID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			// 作用域查不到即不属于当前租户
			return nil, apperr.ErrCrossTenant
		}
	}
	role := &model.Role{
		Name:         p.Name,
		Description:  p.Description,
		ParentRoleID: p.ParentRoleID,
		Priority:     p.Priority,
		IsActive:     true,
	}
	if err := s.DAO.Create(ctx, role); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(p.PermissionIDs) > 0 {
		if err := s.DAO.ReplacePermissions(ctx, role.ID, p.PermissionIDs); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx, tid)
	return role, nil
}

type EditRoleParams struct {
	ID            int64
	Name          *string
	Description   *string
	ParentRoleID  *int64 // -1 清空父级
	Priority      *int
	IsActive      *bool
	PermissionIDs []int64 // nil 不改动，空切片清空
}

func (s *RoleService) Edit(ctx context.Context, p EditRoleParams) error {
	ctx, span := s.tracer().Start(ctx, "RoleService.Edit")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return apperr.ErrContextRequired
	}
	role, err := s.DAO.FindByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if role == nil {
		return apperr.ErrNotFound
	}
	values := map[string]interface{}{}
	if p.Name != nil && *p.Name != role.Name {
		if role.SystemSeeded {
			return apperr.ErrRoleSystemSeeded
		}
		if existing, err := s.DAO.FindByName(ctx, *p.Name); err != nil {
			return err
		} else if existing != nil && existing.ID != role.ID {
			return fmt.Errorf("role name %q already exists", *p.Name)
		}
		values["name"] = *p.Name
	}
	if p.Description != nil {
		values["description"] = *p.Description
	}
	if p.Priority != nil {
		values["priority"] = *p.Priority
	}
	if p.IsActive != nil {
		values["is_active"] = *p.IsActive
	}
	if p.ParentRoleID != nil {
		if *p.ParentRoleID < 0 {
			values["parent_role_id"] = nil
		} else {
			parent, err := s.DAO.FindByID(ctx, *p.ParentRoleID)
			if err != nil {
				return err
			}
			if parent == nil {
				return apperr.ErrCrossTenant
			}
			cyclic, err := s.WouldCreateCycle(ctx, p.ID, *p.ParentRoleID)
			if err != nil {
				return err
			}
			if cyclic {
				return apperr.ErrCircularInheritance
			}
			values["parent_role_id"] = *p.ParentRoleID
		}
	}
	if len(values) > 0 {
		if err := s.DAO.Update(ctx, p.ID, values); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	if p.PermissionIDs != nil {
		if err := s.DAO.ReplacePermissions(ctx, p.ID, p.PermissionIDs); err != nil {
			return err
		}
	}
	s.invalidate(ctx, tid)
	return nil
}

func (s *RoleService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer().Start(ctx, "RoleService.Delete")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return apperr.ErrContextRequired
	}
	role, err := s.DAO.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return apperr.ErrNotFound
	}
	if err := s.CanDelete(ctx, role); err != nil {
		return err
	}
	if err := s.DAO.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	_ = s.DAO.ReplacePermissions(ctx, id, nil)
	s.invalidate(ctx, tid)
	return nil
}

type RoleItem struct {
	model.Role
	PermissionCount int `json:"permission_count"`
}

type ListRoleResult struct {
	List []RoleItem `json:"list"`
}

func (s *RoleService) List(ctx context.Context) (*ListRoleResult, error) {
	roles, err := s.DAO.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]RoleItem, 0, len(roles))
	for _, r := range roles {
		ids, err := s.DAO.ListPermissionIDs(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, RoleItem{Role: r, PermissionCount: len(ids)})
	}
	return &ListRoleResult{List: items}, nil
}

// ===== 系统角色种子 =====

type systemRoleSeed struct {
	name        string
	description string
	priority    int
	// selectPerms 从目录中挑选该角色的权限
	selectPerms func(all []model.Permission) []int64
}

var systemRoleSeeds = []systemRoleSeed{
	{
		name: "超级管理员", description: "拥有所有权限的超级管理员角色", priority: 100,
		selectPerms: func(all []model.Permission) []int64 { return permIDs(all, func(model.Permission) bool { return true }) },
	},
	{
		name: "管理员", description: "拥有大部分管理权限的管理员角色", priority: 80,
		selectPerms: func(all []model.Permission) []int64 {
			cats := map[string]struct{}{"user": {}, "trading": {}, "strategy": {}, "risk": {}}
			return permIDs(all, func(p model.Permission) bool { _, ok := cats[p.Category]; return ok })
		},
	},
	{
		name: "交易员", description: "拥有交易相关权限的交易员角色", priority: 60,
		selectPerms: func(all []model.Permission) []int64 {
			return permIDs(all, func(p model.Permission) bool { return p.Category == "trading" || p.Category == "market" })
		},
	},
	{
		name: "观察者", description: "只有查看权限的观察者角色", priority: 20,
		selectPerms: func(all []model.Permission) []int64 {
			return permIDs(all, func(p model.Permission) bool { return strings.Contains(p.Code, "view") })
		},
	},
}

func permIDs(all []model.Permission, keep func(model.Permission) bool) []int64 {
	ids := make([]int64, 0, len(all))
	for _, p := range all {
		if keep(p) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// BootstrapSystemRoles 为当前租户幂等创建系统角色。已存在的同名角色不动
// （含权限，避免覆盖租户侧自定义调整）。
func (s *RoleService) BootstrapSystemRoles(ctx context.Context) ([]model.Role, error) {
	ctx, span := s.tracer().Start(ctx, "RoleService.BootstrapSystemRoles")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return nil, apperr.ErrContextRequired
	}
	all, err := s.PermDAO.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load permission catalog: %w", err)
	}
	var created []model.Role
	for _, seed := range systemRoleSeeds {
		existing, err := s.DAO.FindByName(ctx, seed.name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		role := &model.Role{
			Name:         seed.name,
			Description:  seed.description,
			Priority:     seed.priority,
			SystemSeeded: true,
			IsActive:     true,
		}
		if err := s.DAO.Create(ctx, role); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if err := s.DAO.ReplacePermissions(ctx, role.ID, seed.selectPerms(all)); err != nil {
			return nil, err
		}
		created = append(created, *role)
	}
	if len(created) > 0 {
		s.invalidate(ctx, tid)
	}
	return created, nil
}

func (s *RoleService) invalidate(ctx context.Context, tenantID string) {
	if s.Inval != nil {
		s.Inval.InvalidateRolePermissions(ctx, tenantID)
	}
}

func codesToSet(arr []string) map[string]struct{} {
	set := make(map[string]struct{}, len(arr))
	for _, c := range arr {
		set[c] = struct{}{}
	}
	return set
}
