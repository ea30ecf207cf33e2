package admin

import (
	"go-tenantadmin/internal/service"
	"go-tenantadmin/internal/util/retcode"
	"go-tenantadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type MenuHandler struct{ d Dependencies }

func NewMenuHandler(d Dependencies) *MenuHandler { return &MenuHandler{d: d} }

// Index 管理视图全量树（不做 ACL）
func (h *MenuHandler) Index(c *gin.Context) {
	tree, err := h.d.Menu.BuildAdminMenuTree(c.Request.Context())
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	response.Success(c, gin.H{"list": tree})
}

func (h *MenuHandler) Add(c *gin.Context) {
	var req struct {
		ParentID      *int64  `json:"parent_id"`
		Name          string  `json:"name"`
		Title         string  `json:"title"`
		Icon          string  `json:"icon"`
		Path          string  `json:"path"`
		Component     string  `json:"component"`
		MenuType      string  `json:"menu_type"`
		Target        string  `json:"target"`
		SortOrder     int     `json:"sort_order"`
		IsVisible     *bool   `json:"is_visible"`
		RoleIDs       []int64 `json:"role_ids"`
		PermissionIDs []int64 `json:"permission_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, retcode.JSON_PARSE_FAIL, "invalid body")
		return
	}
	if req.Title == "" {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	m, err := h.d.Menu.Add(c.Request.Context(), service.AddMenuParams{
		ParentID: req.ParentID, Name: req.Name, Title: req.Title, Icon: req.Icon,
		Path: req.Path, Component: req.Component, MenuType: req.MenuType, Target: req.Target,
		SortOrder: req.SortOrder, IsVisible: req.IsVisible,
		RoleIDs: req.RoleIDs, PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		response.ErrorFrom(c, err, retcode.ADD_FAILED)
		return
	}
	response.Success(c, m)
}

func (h *MenuHandler) Edit(c *gin.Context) {
	var req struct {
		ID            int64   `json:"id"`
		ParentID      *int64  `json:"parent_id"`
		Name          *string `json:"name"`
		Title         *string `json:"title"`
		Icon          *string `json:"icon"`
		Path          *string `json:"path"`
		Component     *string `json:"component"`
		MenuType      *string `json:"menu_type"`
		Target        *string `json:"target"`
		SortOrder     *int    `json:"sort_order"`
		IsVisible     *bool   `json:"is_visible"`
		IsEnabled     *bool   `json:"is_enabled"`
		RoleIDs       []int64 `json:"role_ids"`
		PermissionIDs []int64 `json:"permission_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, retcode.JSON_PARSE_FAIL, "invalid body")
		return
	}
	if req.ID <= 0 {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	err := h.d.Menu.Edit(c.Request.Context(), service.EditMenuParams{
		ID: req.ID, ParentID: req.ParentID, Name: req.Name, Title: req.Title,
		Icon: req.Icon, Path: req.Path, Component: req.Component,
		MenuType: req.MenuType, Target: req.Target, SortOrder: req.SortOrder,
		IsVisible: req.IsVisible, IsEnabled: req.IsEnabled,
		RoleIDs: req.RoleIDs, PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		response.ErrorFrom(c, err, retcode.UPDATE_FAILED)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *MenuHandler) Delete(c *gin.Context) {
	id := qInt64(c, "id")
	if id <= 0 {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	if err := h.d.Menu.Delete(c.Request.Context(), id); err != nil {
		response.ErrorFrom(c, err, retcode.DELETE_FAILED)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
