package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
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

// MenuService 菜单可见性引擎。用户树 = 启用且可见的菜单经两轴 ACL 过滤
// （角色轴与权限轴各自独立通过，超管全旁路）、孤枝剪除、个性化覆盖、
// 递归 (sort_order, id) 排序后的森林。结果整树 JSON 缓存，按 (租户,用户) 定址。
type MenuService struct {
	DAO       *dao.MenuDAO
	ConfigDAO *dao.UserMenuConfigDAO
	UserRole  *dao.UserRoleDAO
	Roles     *RoleService
	Cache     cache.Cache
	Inval     *CacheInvalidator
	Audit     *AuditRecorder
	ttl       time.Duration
	now       func() time.Time
}

func NewMenuService(d *dao.MenuDAO, cfgDAO *dao.UserMenuConfigDAO, ur *dao.UserRoleDAO, roles *RoleService) *MenuService {
	return &MenuService{
		DAO: d, ConfigDAO: cfgDAO, UserRole: ur, Roles: roles,
		Cache: cache.NewSimpleAdapter(cache.New(120 * time.Second)),
		ttl:   120 * time.Second,
		now:   time.Now,
	}
}

func NewMenuServiceWithCache(d *dao.MenuDAO, cfgDAO *dao.UserMenuConfigDAO, ur *dao.UserRoleDAO, roles *RoleService, c cache.Cache, inval *CacheInvalidator, audit *AuditRecorder, ttlSeconds int) *MenuService {
	s := NewMenuService(d, cfgDAO, ur, roles)
	if c != nil {
		s.Cache = c
	}
	s.Inval = inval
	s.Audit = audit
	if ttlSeconds > 0 {
		s.ttl = time.Duration(ttlSeconds) * time.Second
	}
	return s
}

// maxMenuDepth 菜单层级上限，超出按数据异常处理
const maxMenuDepth = 64

func (s *MenuService) tracer() trace.Tracer { return otel.Tracer("service.menu") }

// MenuNode 返回给前端的树节点；title/icon/sort_order 可能已被个性化覆盖
type MenuNode struct {
	ID         int64  `json:"id"`
	ParentID   *int64 `json:"parent_id,omitempty"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	Icon       string `json:"icon"`
	Path       string `json:"path"`
	Component  string `json:"component"`
	MenuType   string `json:"menu_type"`
	Target     string `json:"target"`
	Level      int    `json:"level"`
	SortOrder  int    `json:"sort_order"`
	IsVisible  bool   `json:"is_visible"`
	IsFavorite bool   `json:"is_favorite"`

	// 来自 UserMenuConfig 的访问统计；同树一起缓存，最多陈旧一个 TTL
	AccessCount    int64       `json:"access_count"`
	LastAccessTime *time.Time  `json:"last_access_time,omitempty"`
	Children       []*MenuNode `json:"children,omitempty"`
}

// ===== 用户菜单树 =====

func (s *MenuService) BuildUserMenuTree(ctx context.Context, user *model.User) ([]*MenuNode, error) {
	ctx, span := s.tracer().Start(ctx, "MenuService.BuildUserMenuTree")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return nil, apperr.ErrContextRequired
	}

	key := cache.UserMenuTreeKey(tid, user.ID)
	if v, _ := s.Cache.Get(ctx, key); v != "" {
		if cache.IsNilSentinel(v) {
			metrics.CacheNilHit.Inc()
			return []*MenuNode{}, nil
		}
		var cached []*MenuNode
		if json.Unmarshal([]byte(v), &cached) == nil {
			return cached, nil
		}
	}

	start := time.Now()
	tree, err := s.buildUserTree(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.MenuTreeBuildDuration.Observe(time.Since(start).Seconds())

	if len(tree) == 0 {
		_ = s.Cache.SetEX(ctx, key, cache.WrapNil(true), cache.JitterTTL(s.ttl))
	} else if b, err := json.Marshal(tree); err == nil {
		_ = s.Cache.SetEX(ctx, key, string(b), cache.JitterTTL(s.ttl))
	}
	return tree, nil
}

func (s *MenuService) buildUserTree(ctx context.Context, user *model.User) ([]*MenuNode, error) {
	menus, err := s.DAO.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	// 用户树只含可见项
	visible := menus[:0]
	for i := range menus {
		if menus[i].IsVisible {
			visible = append(visible, menus[i])
		}
	}
	menus = visible

	admitted, err := s.filterByACL(ctx, menus, user)
	if err != nil {
		return nil, err
	}

	configs, err := s.ConfigDAO.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load menu configs: %w", err)
	}
	configByMenu := make(map[int64]*model.UserMenuConfig, len(configs))
	for i := range configs {
		configByMenu[configs[i].MenuID] = &configs[i]
	}

	nodes := make(map[int64]*MenuNode, len(admitted))
	for i := range admitted {
		m := &admitted[i]
		cfg := configByMenu[m.ID]
		if cfg != nil && cfg.IsHidden {
			continue // 个性化隐藏，连同子树一起被剪
		}
		nodes[m.ID] = overlayNode(m, cfg)
	}
	return assembleForest(nodes), nil
}

// filterByACL 两轴过滤：角色轴要求用户有效角色与绑定角色有交集，
// 权限轴要求用户有效权限与绑定权限有交集；未绑定的轴视为通过。超管全通过。
func (s *MenuService) filterByACL(ctx context.Context, menus []model.Menu, user *model.User) ([]model.Menu, error) {
	if user.IsSuperuser {
		return menus, nil
	}
	menuIDs := make([]int64, 0, len(menus))
	for i := range menus {
		menuIDs = append(menuIDs, menus[i].ID)
	}
	roleBindings, err := s.DAO.ListRoleBindings(ctx, menuIDs)
	if err != nil {
		return nil, err
	}
	permBindings, err := s.DAO.ListPermissionBindings(ctx, menuIDs)
	if err != nil {
		return nil, err
	}
	rolesByMenu := make(map[int64][]int64)
	for _, b := range roleBindings {
		rolesByMenu[b.MenuID] = append(rolesByMenu[b.MenuID], b.RoleID)
	}
	permsByMenu := make(map[int64][]int64)
	for _, b := range permBindings {
		permsByMenu[b.MenuID] = append(permsByMenu[b.MenuID], b.PermissionID)
	}

	userRoleIDs, err := s.UserRole.ValidRoleIDs(ctx, user.ID, s.now())
	if err != nil {
		return nil, err
	}
	userRoles := make(map[int64]struct{}, len(userRoleIDs))
	for _, id := range userRoleIDs {
		userRoles[id] = struct{}{}
	}
	userPerms, err := s.Roles.GetUserPermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	// 绑定权限 id -> code
	permIDSet := make(map[int64]struct{})
	for _, ids := range permsByMenu {
		for _, id := range ids {
			permIDSet[id] = struct{}{}
		}
	}
	permIDList := make([]int64, 0, len(permIDSet))
	for id := range permIDSet {
		permIDList = append(permIDList, id)
	}
	boundPerms, err := s.Roles.PermDAO.ListByIDs(ctx, permIDList)
	if err != nil {
		return nil, err
	}
	codeByID := make(map[int64]string, len(boundPerms))
	for _, p := range boundPerms {
		codeByID[p.ID] = p.Code
	}

	out := make([]model.Menu, 0, len(menus))
	for _, m := range menus {
		if bound := rolesByMenu[m.ID]; len(bound) > 0 {
			if !intersects(userRoles, bound) {
				continue
			}
		}
		if bound := permsByMenu[m.ID]; len(bound) > 0 {
			hit := false
			for _, pid := range bound {
				if _, ok := userPerms[codeByID[pid]]; ok {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func intersects(set map[int64]struct{}, ids []int64) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

func overlayNode(m *model.Menu, cfg *model.UserMenuConfig) *MenuNode {
	n := &MenuNode{
		ID: m.ID, ParentID: m.ParentID,
		Name: m.Name, Title: m.Title, Icon: m.Icon,
		Path: m.Path, Component: m.Component,
		MenuType: m.MenuType, Target: m.Target,
		Level: m.Level, SortOrder: m.SortOrder, IsVisible: m.IsVisible,
	}
	if cfg != nil {
		if cfg.CustomTitle != "" {
			n.Title = cfg.CustomTitle
		}
		if cfg.CustomIcon != "" {
			n.Icon = cfg.CustomIcon
		}
		if cfg.CustomSort != nil {
			n.SortOrder = *cfg.CustomSort
		}
		n.IsFavorite = cfg.IsFavorite
		n.AccessCount = cfg.AccessCount
		n.LastAccessTime = cfg.LastAccessTime
	}
	return n
}

// assembleForest 父节点不在准入集中的分支整体剪除（含其全部后代）
func assembleForest(nodes map[int64]*MenuNode) []*MenuNode {
	admitted := func(n *MenuNode) bool {
		for cur := n; cur.ParentID != nil; {
			p, ok := nodes[*cur.ParentID]
			if !ok {
				return false
			}
			cur = p
		}
		return true
	}
	var roots []*MenuNode
	for _, n := range nodes {
		if !admitted(n) {
			continue
		}
		if n.ParentID == nil {
			roots = append(roots, n)
		} else {
			parent := nodes[*n.ParentID]
			parent.Children = append(parent.Children, n)
		}
	}
	sortTree(roots)
	return roots
}

func sortTree(nodes []*MenuNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortTree(n.Children)
		}
	}
}

// BuildAdminMenuTree 管理视图：全量菜单（含停用/不可见），不做 ACL 与个性化
func (s *MenuService) BuildAdminMenuTree(ctx context.Context) ([]*MenuNode, error) {
	ctx, span := s.tracer().Start(ctx, "MenuService.BuildAdminMenuTree")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return nil, apperr.ErrContextRequired
	}
	key := cache.AdminMenuTreeKey(tid)
	if v, _ := s.Cache.Get(ctx, key); v != "" && !cache.IsNilSentinel(v) {
		var cached []*MenuNode
		if json.Unmarshal([]byte(v), &cached) == nil {
			return cached, nil
		}
	}
	menus, err := s.DAO.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	nodes := make(map[int64]*MenuNode, len(menus))
	for i := range menus {
		nodes[menus[i].ID] = overlayNode(&menus[i], nil)
	}
	tree := assembleForest(nodes)
	if b, err := json.Marshal(tree); err == nil {
		_ = s.Cache.SetEX(ctx, key, string(b), cache.JitterTTL(s.ttl))
	}
	return tree, nil
}

// ===== CRUD =====

type AddMenuParams struct {
	ParentID      *int64
	Name, Title   string
	Icon          string
	Path          string
	Component     string
	MenuType      string
	Target        string
	SortOrder     int
	IsVisible     *bool
	RoleIDs       []int64
	PermissionIDs []int64
}

func (s *MenuService) Add(ctx context.Context, p AddMenuParams) (*model.Menu, error) {
	ctx, span := s.tracer().Start(ctx, "MenuService.Add")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return nil, apperr.ErrContextRequired
	}
	t, _ := tenant.From(ctx)
	if t != nil && t.MaxMenus > 0 {
		n, err := s.DAO.Count(ctx)
		if err != nil {
			return nil, err
		}
		if n >= int64(t.MaxMenus) {
			return nil, apperr.ErrQuotaExceeded
		}
	}
	level := 1
	if p.ParentID != nil {
		parent, err := s.DAO.FindByID(ctx, *p.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, apperr.ErrCrossTenant
		}
		level = parent.Level + 1
	}
	m := &model.Menu{
		ParentID: p.ParentID,
		Name:     p.Name, Title: p.Title, Icon: p.Icon,
		Path: p.Path, Component: p.Component,
		MenuType: orDefault(p.MenuType, "menu"), Target: orDefault(p.Target, "_self"),
		Level: level, SortOrder: p.SortOrder,
		IsVisible: p.IsVisible == nil || *p.IsVisible,
		IsEnabled: true,
	}
	if err := s.DAO.Create(ctx, m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(p.RoleIDs) > 0 || len(p.PermissionIDs) > 0 {
		if err := s.DAO.ReplaceBindings(ctx, m.ID, p.RoleIDs, p.PermissionIDs); err != nil {
			return nil, err
		}
	}
	if s.Inval != nil {
		s.Inval.InvalidateTenant(ctx, tid)
	}
	s.Audit.Record(ctx, "menu.add", "menu", strconv.FormatInt(m.ID, 10), m.Title)
	return m, nil
}

type EditMenuParams struct {
	ID            int64
	ParentID      *int64 // -1 移到根
	Name          *string
	Title         *string
	Icon          *string
	Path          *string
	Component     *string
	MenuType      *string
	Target        *string
	SortOrder     *int
	IsVisible     *bool
	IsEnabled     *bool
	RoleIDs       []int64 // nil 不改
	PermissionIDs []int64
}

func (s *MenuService) Edit(ctx context.Context, p EditMenuParams) error {
	ctx, span := s.tracer().Start(ctx, "MenuService.Edit")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return apperr.ErrContextRequired
	}
	m, err := s.DAO.FindByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.ErrNotFound
	}
	values := map[string]interface{}{}
	setStr := func(col string, v *string) {
		if v != nil {
			values[col] = *v
		}
	}
	setStr("name", p.Name)
	setStr("title", p.Title)
	setStr("icon", p.Icon)
	setStr("path", p.Path)
	setStr("component", p.Component)
	setStr("menu_type", p.MenuType)
	setStr("target", p.Target)
	if p.SortOrder != nil {
		values["sort_order"] = *p.SortOrder
	}
	if p.IsVisible != nil {
		values["is_visible"] = *p.IsVisible
	}
	if p.IsEnabled != nil {
		values["is_enabled"] = *p.IsEnabled
	}

	newLevel := m.Level
	reparented := false
	if p.ParentID != nil {
		if *p.ParentID < 0 {
			values["parent_id"] = nil
			newLevel = 1
			reparented = true
		} else if *p.ParentID == m.ID {
			return fmt.Errorf("menu cannot be its own parent")
		} else {
			parent, err := s.DAO.FindByID(ctx, *p.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return apperr.ErrCrossTenant
			}
			cycle, err := s.wouldCreateCycle(ctx, m.ID, *p.ParentID)
			if err != nil {
				return err
			}
			if cycle {
				return fmt.Errorf("menu cannot be moved under its own subtree")
			}
			values["parent_id"] = *p.ParentID
			newLevel = parent.Level + 1
			reparented = true
		}
	}
	if reparented && newLevel != m.Level {
		values["level"] = newLevel
	}
	if len(values) > 0 {
		if err := s.DAO.Update(ctx, p.ID, values); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	if reparented && newLevel != m.Level {
		if err := s.relevelSubtree(ctx, p.ID, newLevel); err != nil {
			return err
		}
	}
	if p.RoleIDs != nil || p.PermissionIDs != nil {
		roleIDs := p.RoleIDs
		permIDs := p.PermissionIDs
		// 只传一轴时另一轴保持原绑定
		if roleIDs == nil {
			existing, err := s.DAO.ListRoleBindings(ctx, []int64{p.ID})
			if err != nil {
				return err
			}
			for _, b := range existing {
				roleIDs = append(roleIDs, b.RoleID)
			}
		}
		if permIDs == nil {
			existing, err := s.DAO.ListPermissionBindings(ctx, []int64{p.ID})
			if err != nil {
				return err
			}
			for _, b := range existing {
				permIDs = append(permIDs, b.PermissionID)
			}
		}
		if err := s.DAO.ReplaceBindings(ctx, p.ID, roleIDs, permIDs); err != nil {
			return err
		}
	}
	if s.Inval != nil {
		s.Inval.InvalidateTenant(ctx, tid)
	}
	s.Audit.Record(ctx, "menu.edit", "menu", strconv.FormatInt(p.ID, 10), "")
	return nil
}

// wouldCreateCycle 把 parentID 设为 menuID 的父级是否成环：
// 沿 parentID 的祖先链向上，出现 menuID 即成环
func (s *MenuService) wouldCreateCycle(ctx context.Context, menuID, parentID int64) (bool, error) {
	if menuID == parentID {
		return true, nil
	}
	visited := make(map[int64]struct{})
	cur := parentID
	for depth := 0; depth < maxMenuDepth; depth++ {
		if cur == menuID {
			return true, nil
		}
		if _, seen := visited[cur]; seen {
			return false, nil
		}
		visited[cur] = struct{}{}
		m, err := s.DAO.FindByID(ctx, cur)
		if err != nil {
			return false, err
		}
		if m == nil || m.ParentID == nil {
			return false, nil
		}
		cur = *m.ParentID
	}
	return false, nil
}

// relevelSubtree 换父后逐层刷新后代 level，维持 level = 父级 level + 1。
// visited 防脏数据成环时 BFS 不终止
func (s *MenuService) relevelSubtree(ctx context.Context, rootID int64, rootLevel int) error {
	all, err := s.DAO.ListAll(ctx)
	if err != nil {
		return err
	}
	children := make(map[int64][]int64)
	for i := range all {
		if all[i].ParentID != nil {
			children[*all[i].ParentID] = append(children[*all[i].ParentID], all[i].ID)
		}
	}
	type item struct {
		id    int64
		level int
	}
	visited := map[int64]struct{}{rootID: {}}
	queue := []item{{rootID, rootLevel}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, cid := range children[cur.id] {
			if _, seen := visited[cid]; seen {
				continue
			}
			visited[cid] = struct{}{}
			if err := s.DAO.Update(ctx, cid, map[string]interface{}{"level": cur.level + 1}); err != nil {
				return err
			}
			queue = append(queue, item{cid, cur.level + 1})
		}
	}
	return nil
}

func (s *MenuService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer().Start(ctx, "MenuService.Delete")
	defer span.End()
	tid, ok := tenant.ID(ctx)
	if !ok {
		return apperr.ErrContextRequired
	}
	m, err := s.DAO.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.ErrNotFound
	}
	n, err := s.DAO.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.ErrMenuHasChildren
	}
	if err := s.DAO.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	_ = s.DAO.ReplaceBindings(ctx, id, nil, nil)
	if s.Inval != nil {
		s.Inval.InvalidateTenant(ctx, tid)
	}
	s.Audit.Record(ctx, "menu.del", "menu", strconv.FormatInt(id, 10), m.Title)
	return nil
}

// ===== 个性化 =====

type UserMenuConfigParams struct {
	MenuID      int64
	IsFavorite  *bool
	IsHidden    *bool
	CustomTitle *string
	CustomIcon  *string
	CustomSort  *int
}

// UpdateUserConfig 个性化 upsert，只影响该用户的树
func (s *MenuService) UpdateUserConfig(ctx context.Context, userID int64, p UserMenuConfigParams) error {
	tid, ok := tenant.ID(ctx)
	if !ok {
		return apperr.ErrContextRequired
	}
	m, err := s.DAO.FindByID(ctx, p.MenuID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.ErrNotFound
	}
	values := map[string]interface{}{}
	if p.IsFavorite != nil {
		values["is_favorite"] = *p.IsFavorite
	}
	if p.IsHidden != nil {
		values["is_hidden"] = *p.IsHidden
	}
	if p.CustomTitle != nil {
		values["custom_title"] = *p.CustomTitle
	}
	if p.CustomIcon != nil {
		values["custom_icon"] = *p.CustomIcon
	}
	if p.CustomSort != nil {
		values["custom_sort"] = *p.CustomSort
	}
	if len(values) == 0 {
		return nil
	}
	if err := s.ConfigDAO.Upsert(ctx, userID, p.MenuID, values); err != nil {
		return err
	}
	if s.Inval != nil {
		s.Inval.InvalidateUser(ctx, tid, userID)
	}
	return nil
}

// RecordMenuAccess 访问统计，不触发树失效；树中计数最多陈旧一个 TTL
func (s *MenuService) RecordMenuAccess(ctx context.Context, userID, menuID int64) error {
	m, err := s.DAO.FindByID(ctx, menuID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.ErrNotFound
	}
	return s.ConfigDAO.RecordAccess(ctx, userID, menuID, s.now())
}

type FavoriteMenuItem struct {
	MenuID         int64      `json:"menu_id"`
	Title          string     `json:"title"`
	Icon           string     `json:"icon"`
	Path           string     `json:"path"`
	AccessCount    int64      `json:"access_count"`
	LastAccessTime *time.Time `json:"last_access_time,omitempty"`
}

func (s *MenuService) GetFavoriteMenus(ctx context.Context, userID int64) ([]FavoriteMenuItem, error) {
	configs, err := s.ConfigDAO.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]FavoriteMenuItem, 0, len(configs))
	for i := range configs {
		cfg := &configs[i]
		m, err := s.DAO.FindByID(ctx, cfg.MenuID)
		if err != nil {
			return nil, err
		}
		if m == nil || !m.IsEnabled {
			continue
		}
		it := FavoriteMenuItem{
			MenuID: m.ID, Title: m.Title, Icon: m.Icon, Path: m.Path,
			AccessCount: cfg.AccessCount, LastAccessTime: cfg.LastAccessTime,
		}
		if cfg.CustomTitle != "" {
			it.Title = cfg.CustomTitle
		}
		if cfg.CustomIcon != "" {
			it.Icon = cfg.CustomIcon
		}
		items = append(items, it)
	}
	return items, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
