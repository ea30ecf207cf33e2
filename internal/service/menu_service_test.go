package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/pkg/cache"
	"go-tenantadmin/internal/repository/dao"
)

type menuFixture struct {
	db      *gorm.DB
	menuDAO *dao.MenuDAO
	cfgDAO  *dao.UserMenuConfigDAO
	permDAO *dao.PermissionDAO
	roleDAO *dao.RoleDAO
	urDAO   *dao.UserRoleDAO
	roles   *RoleService
	svc     *MenuService
}

func newMenuFixture(t *testing.T) *menuFixture {
	db := newTestDB(t)
	md := dao.NewMenuDAO(db)
	cd := dao.NewUserMenuConfigDAO(db)
	pd := dao.NewPermissionDAO(db)
	rd := dao.NewRoleDAO(db)
	ur := dao.NewUserRoleDAO(db)
	roles := NewRoleService(rd, pd, ur)
	return &menuFixture{
		db: db, menuDAO: md, cfgDAO: cd, permDAO: pd, roleDAO: rd, urDAO: ur,
		roles: roles,
		svc:   NewMenuService(md, cd, ur, roles),
	}
}

func (f *menuFixture) user(id int64, super bool) *model.User {
	return &model.User{ID: id, Username: "u", Status: 1, IsSuperuser: super}
}

func flatten(nodes []*MenuNode) []int64 {
	var ids []int64
	for _, n := range nodes {
		ids = append(ids, n.ID)
		ids = append(ids, flatten(n.Children)...)
	}
	return ids
}

func TestBuildUserMenuTreeSuperuserSeesAllVisible(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	m1, err := f.svc.Add(ctx, AddMenuParams{Name: "dash", Title: "仪表盘"})
	require.NoError(t, err)
	hidden := false
	m2, err := f.svc.Add(ctx, AddMenuParams{Name: "sec", Title: "隐藏项", IsVisible: &hidden})
	require.NoError(t, err)
	// 绑定一个谁也没有的角色，超管依旧可见
	r, err := f.roles.Add(ctx, AddRoleParams{Name: "无人角色"})
	require.NoError(t, err)
	require.NoError(t, f.menuDAO.ReplaceBindings(ctx, m1.ID, []int64{r.ID}, nil))

	tree, err := f.svc.BuildUserMenuTree(ctx, f.user(1, true))
	require.NoError(t, err)
	ids := flatten(tree)
	require.Contains(t, ids, m1.ID)
	require.NotContains(t, ids, m2.ID) // 不可见项对超管也不出现
}

func TestBuildUserMenuTreeRoleAxis(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	open, err := f.svc.Add(ctx, AddMenuParams{Name: "open", Title: "公共"})
	require.NoError(t, err)
	bound, err := f.svc.Add(ctx, AddMenuParams{Name: "ops", Title: "运维"})
	require.NoError(t, err)

	r, err := f.roles.Add(ctx, AddRoleParams{Name: "运维"})
	require.NoError(t, err)
	require.NoError(t, f.menuDAO.ReplaceBindings(ctx, bound.ID, []int64{r.ID}, nil))

	// 未持有绑定角色
	tree, err := f.svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	ids := flatten(tree)
	require.Contains(t, ids, open.ID)
	require.NotContains(t, ids, bound.ID)

	// 持有绑定角色
	require.NoError(t, f.urDAO.Assign(ctx, &model.UserRole{UserID: 2, RoleID: r.ID, IsActive: true}))
	tree, err = f.svc.BuildUserMenuTree(ctx, f.user(2, false))
	require.NoError(t, err)
	require.Contains(t, flatten(tree), bound.ID)
}

func TestBuildUserMenuTreeBothAxesMustPass(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	exportPerm := mustPerm(t, f.permDAO, "market.export_data", "market")
	menu, err := f.svc.Add(ctx, AddMenuParams{Name: "export", Title: "数据导出"})
	require.NoError(t, err)

	gate, err := f.roles.Add(ctx, AddRoleParams{Name: "门禁"})
	require.NoError(t, err)
	require.NoError(t, f.menuDAO.ReplaceBindings(ctx, menu.ID, []int64{gate.ID}, []int64{exportPerm.ID}))

	// 只过角色轴：有门禁角色但没有导出权限
	require.NoError(t, f.urDAO.Assign(ctx, &model.UserRole{UserID: 1, RoleID: gate.ID, IsActive: true}))
	tree, err := f.svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	require.NotContains(t, flatten(tree), menu.ID)

	// 两轴都过：另给一个携带导出权限的角色
	carrier, err := f.roles.Add(ctx, AddRoleParams{Name: "导出", PermissionIDs: []int64{exportPerm.ID}})
	require.NoError(t, err)
	require.NoError(t, f.urDAO.Assign(ctx, &model.UserRole{UserID: 2, RoleID: gate.ID, IsActive: true}))
	require.NoError(t, f.urDAO.Assign(ctx, &model.UserRole{UserID: 2, RoleID: carrier.ID, IsActive: true}))
	tree, err = f.svc.BuildUserMenuTree(ctx, f.user(2, false))
	require.NoError(t, err)
	require.Contains(t, flatten(tree), menu.ID)

	// 只过权限轴：有导出权限但没有门禁角色
	require.NoError(t, f.urDAO.Assign(ctx, &model.UserRole{UserID: 3, RoleID: carrier.ID, IsActive: true}))
	tree, err = f.svc.BuildUserMenuTree(ctx, f.user(3, false))
	require.NoError(t, err)
	require.NotContains(t, flatten(tree), menu.ID)
}

func TestBuildUserMenuTreePrunesOrphanSubtrees(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	parent, err := f.svc.Add(ctx, AddMenuParams{Name: "reports", Title: "报表"})
	require.NoError(t, err)
	child, err := f.svc.Add(ctx, AddMenuParams{Name: "daily", Title: "日报", ParentID: &parent.ID})
	require.NoError(t, err)
	grandchild, err := f.svc.Add(ctx, AddMenuParams{Name: "detail", Title: "明细", ParentID: &child.ID})
	require.NoError(t, err)

	// 父节点被角色轴拦下，后代即使自身无绑定也整体剪除
	r, err := f.roles.Add(ctx, AddRoleParams{Name: "报表角色"})
	require.NoError(t, err)
	require.NoError(t, f.menuDAO.ReplaceBindings(ctx, parent.ID, []int64{r.ID}, nil))

	tree, err := f.svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	ids := flatten(tree)
	require.NotContains(t, ids, parent.ID)
	require.NotContains(t, ids, child.ID)
	require.NotContains(t, ids, grandchild.ID)
}

func TestBuildUserMenuTreeHiddenConfigPrunesSubtree(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	parent, err := f.svc.Add(ctx, AddMenuParams{Name: "tools", Title: "工具"})
	require.NoError(t, err)
	child, err := f.svc.Add(ctx, AddMenuParams{Name: "calc", Title: "计算器", ParentID: &parent.ID})
	require.NoError(t, err)

	hide := true
	require.NoError(t, f.svc.UpdateUserConfig(ctx, 1, UserMenuConfigParams{MenuID: parent.ID, IsHidden: &hide}))

	tree, err := f.svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	ids := flatten(tree)
	require.NotContains(t, ids, parent.ID)
	require.NotContains(t, ids, child.ID)

	// 其他用户不受影响
	tree, err = f.svc.BuildUserMenuTree(ctx, f.user(2, false))
	require.NoError(t, err)
	require.Contains(t, flatten(tree), child.ID)
}

func TestBuildUserMenuTreeOverlayAndSort(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	first, err := f.svc.Add(ctx, AddMenuParams{Name: "a", Title: "甲", SortOrder: 10})
	require.NoError(t, err)
	second, err := f.svc.Add(ctx, AddMenuParams{Name: "b", Title: "乙", SortOrder: 20})
	require.NoError(t, err)

	title := "我的甲"
	sortv := 30
	require.NoError(t, f.svc.UpdateUserConfig(ctx, 1, UserMenuConfigParams{MenuID: first.ID, CustomTitle: &title, CustomSort: &sortv}))

	tree, err := f.svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	require.Len(t, tree, 2)
	// 自定义排序把甲排到乙之后，标题亦被覆盖
	require.Equal(t, second.ID, tree[0].ID)
	require.Equal(t, first.ID, tree[1].ID)
	require.Equal(t, "我的甲", tree[1].Title)
	require.Equal(t, "甲", func() string {
		m, _ := f.menuDAO.FindByID(ctx, first.ID)
		return m.Title
	}()) // 本体不动
}

func TestMenuLevelMaintainedOnAddAndReparent(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	root, err := f.svc.Add(ctx, AddMenuParams{Name: "root", Title: "根"})
	require.NoError(t, err)
	require.Equal(t, 1, root.Level)
	mid, err := f.svc.Add(ctx, AddMenuParams{Name: "mid", Title: "中", ParentID: &root.ID})
	require.NoError(t, err)
	require.Equal(t, 2, mid.Level)
	leaf, err := f.svc.Add(ctx, AddMenuParams{Name: "leaf", Title: "叶", ParentID: &mid.ID})
	require.NoError(t, err)
	require.Equal(t, 3, leaf.Level)

	// 中层提为根，整条子链 level 跟着刷新
	toRoot := int64(-1)
	require.NoError(t, f.svc.Edit(ctx, EditMenuParams{ID: mid.ID, ParentID: &toRoot}))

	got, err := f.menuDAO.FindByID(ctx, mid.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Level)
	require.Nil(t, got.ParentID)
	got, err = f.menuDAO.FindByID(ctx, leaf.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Level)
}

func TestMenuReparentUnderOwnSubtreeRejected(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	root, err := f.svc.Add(ctx, AddMenuParams{Name: "root", Title: "根"})
	require.NoError(t, err)
	child, err := f.svc.Add(ctx, AddMenuParams{Name: "child", Title: "子", ParentID: &root.ID})
	require.NoError(t, err)
	grand, err := f.svc.Add(ctx, AddMenuParams{Name: "grand", Title: "孙", ParentID: &child.ID})
	require.NoError(t, err)

	// 根移到直接子级下必须拒绝且及时返回
	done := make(chan error, 1)
	go func() { done <- f.svc.Edit(ctx, EditMenuParams{ID: root.ID, ParentID: &child.ID}) }()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("edit did not return")
	}
	// 更深的后代同样拒绝
	require.Error(t, f.svc.Edit(ctx, EditMenuParams{ID: root.ID, ParentID: &grand.ID}))

	// 父指针与 level 均未被破坏
	got, err := f.menuDAO.FindByID(ctx, root.ID)
	require.NoError(t, err)
	require.Nil(t, got.ParentID)
	require.Equal(t, 1, got.Level)
	got, err = f.menuDAO.FindByID(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, root.ID, *got.ParentID)
	require.Equal(t, 2, got.Level)
}

func TestRelevelSubtreeTerminatesOnCorruptCycle(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	a, err := f.svc.Add(ctx, AddMenuParams{Name: "a", Title: "甲"})
	require.NoError(t, err)
	b, err := f.svc.Add(ctx, AddMenuParams{Name: "b", Title: "乙", ParentID: &a.ID})
	require.NoError(t, err)
	// 绕过服务层守卫直接写坏父指针构造环
	require.NoError(t, f.menuDAO.Update(ctx, a.ID, map[string]interface{}{"parent_id": b.ID}))

	done := make(chan error, 1)
	go func() { done <- f.svc.relevelSubtree(ctx, a.ID, 1) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("releveling did not terminate on cyclic data")
	}
}

func TestUserMenuTreeCarriesAccessCounters(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	m, err := f.svc.Add(ctx, AddMenuParams{Name: "dash", Title: "仪表盘"})
	require.NoError(t, err)
	require.NoError(t, f.svc.RecordMenuAccess(ctx, 7, m.ID))
	require.NoError(t, f.svc.RecordMenuAccess(ctx, 7, m.ID))

	tree, err := f.svc.BuildUserMenuTree(ctx, f.user(7, false))
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.EqualValues(t, 2, tree[0].AccessCount)
	require.NotNil(t, tree[0].LastAccessTime)

	// 计数随 (租户,用户) 定址，别的用户看到的是零值
	tree, err = f.svc.BuildUserMenuTree(ctx, f.user(8, false))
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.EqualValues(t, 0, tree[0].AccessCount)
	require.Nil(t, tree[0].LastAccessTime)
}

func TestMenuEditRejectsSelfParent(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})
	m, err := f.svc.Add(ctx, AddMenuParams{Name: "m", Title: "项"})
	require.NoError(t, err)
	require.Error(t, f.svc.Edit(ctx, EditMenuParams{ID: m.ID, ParentID: &m.ID}))
}

func TestMenuEditSingleAxisKeepsOtherBindings(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	p := mustPerm(t, f.permDAO, "risk.view_alerts", "risk")
	r, err := f.roles.Add(ctx, AddRoleParams{Name: "风控"})
	require.NoError(t, err)
	m, err := f.svc.Add(ctx, AddMenuParams{Name: "alerts", Title: "预警", RoleIDs: []int64{r.ID}, PermissionIDs: []int64{p.ID}})
	require.NoError(t, err)

	// 只改权限轴，角色轴原样保留
	require.NoError(t, f.svc.Edit(ctx, EditMenuParams{ID: m.ID, PermissionIDs: []int64{}}))

	rb, err := f.menuDAO.ListRoleBindings(ctx, []int64{m.ID})
	require.NoError(t, err)
	require.Len(t, rb, 1)
	pb, err := f.menuDAO.ListPermissionBindings(ctx, []int64{m.ID})
	require.NoError(t, err)
	require.Empty(t, pb)
}

func TestMenuDeleteBlockedByChildren(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	parent, err := f.svc.Add(ctx, AddMenuParams{Name: "p", Title: "父"})
	require.NoError(t, err)
	child, err := f.svc.Add(ctx, AddMenuParams{Name: "c", Title: "子", ParentID: &parent.ID})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, parent.ID), apperr.ErrMenuHasChildren)
	require.NoError(t, f.svc.Delete(ctx, child.ID))
	require.NoError(t, f.svc.Delete(ctx, parent.ID))
}

func TestMenuAddQuota(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true, MaxMenus: 1})

	_, err := f.svc.Add(ctx, AddMenuParams{Name: "a", Title: "甲"})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, AddMenuParams{Name: "b", Title: "乙"})
	require.ErrorIs(t, err, apperr.ErrQuotaExceeded)
}

func TestMenuTreeCacheInvalidation(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	lc := cache.NewSimpleAdapter(cache.New(time.Minute))
	inval := NewCacheInvalidator(lc, zap.NewNop())
	svc := NewMenuServiceWithCache(f.menuDAO, f.cfgDAO, f.urDAO, f.roles, lc, inval, nil, 60)

	first, err := svc.Add(ctx, AddMenuParams{Name: "a", Title: "甲"})
	require.NoError(t, err)
	tree, err := svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	require.Len(t, tree, 1)

	// 新增菜单触发租户级失效，下一次构建立即可见
	second, err := svc.Add(ctx, AddMenuParams{Name: "b", Title: "乙"})
	require.NoError(t, err)
	tree, err = svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	ids := flatten(tree)
	require.Contains(t, ids, first.ID)
	require.Contains(t, ids, second.ID)

	// 个性化只打掉该用户的缓存
	hide := true
	require.NoError(t, svc.UpdateUserConfig(ctx, 1, UserMenuConfigParams{MenuID: first.ID, IsHidden: &hide}))
	tree, err = svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	require.NotContains(t, flatten(tree), first.ID)
}

func TestMenuTreeStaleWithoutInvalidator(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	_, err := f.svc.Add(ctx, AddMenuParams{Name: "a", Title: "甲"})
	require.NoError(t, err)
	tree, err := f.svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	require.Len(t, tree, 1)

	// 无失效器时命中旧缓存，直到 TTL 到期
	_, err = f.svc.Add(ctx, AddMenuParams{Name: "b", Title: "乙"})
	require.NoError(t, err)
	tree, err = f.svc.BuildUserMenuTree(ctx, f.user(1, false))
	require.NoError(t, err)
	require.Len(t, tree, 1)
}

func TestRecordMenuAccessAndFavorites(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})

	m, err := f.svc.Add(ctx, AddMenuParams{Name: "fav", Title: "常用", Icon: "star"})
	require.NoError(t, err)
	disabled, err := f.svc.Add(ctx, AddMenuParams{Name: "old", Title: "旧版"})
	require.NoError(t, err)
	off := false
	require.NoError(t, f.svc.Edit(ctx, EditMenuParams{ID: disabled.ID, IsEnabled: &off}))

	require.NoError(t, f.svc.RecordMenuAccess(ctx, 1, m.ID))
	require.NoError(t, f.svc.RecordMenuAccess(ctx, 1, m.ID))

	fav := true
	title := "我的常用"
	require.NoError(t, f.svc.UpdateUserConfig(ctx, 1, UserMenuConfigParams{MenuID: m.ID, IsFavorite: &fav, CustomTitle: &title}))
	require.NoError(t, f.svc.UpdateUserConfig(ctx, 1, UserMenuConfigParams{MenuID: disabled.ID, IsFavorite: &fav}))

	items, err := f.svc.GetFavoriteMenus(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1) // 停用菜单不出现在收藏里
	require.Equal(t, m.ID, items[0].MenuID)
	require.Equal(t, "我的常用", items[0].Title)
	require.EqualValues(t, 2, items[0].AccessCount)
	require.NotNil(t, items[0].LastAccessTime)
}

func TestRecordMenuAccessUnknownMenu(t *testing.T) {
	f := newMenuFixture(t)
	ctx := tenantCtx(&model.Tenant{ID: "t-a", IsActive: true})
	require.ErrorIs(t, f.svc.RecordMenuAccess(ctx, 1, 999), apperr.ErrNotFound)
}
