package admin

import (
	"go-tenantadmin/internal/service"
	"go-tenantadmin/internal/util/retcode"
	"go-tenantadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct{ d Dependencies }

func NewRoleHandler(d Dependencies) *RoleHandler { return &RoleHandler{d: d} }

func (h *RoleHandler) Index(c *gin.Context) {
	res, err := h.d.Role.List(c.Request.Context())
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	response.Success(c, res)
}

func (h *RoleHandler) Add(c *gin.Context) {
	var req struct {
		Name          string  `json:"name"`
		Description   string  `json:"description"`
		ParentRoleID  *int64  `json:"parent_role_id"`
		Priority      int     `json:"priority"`
		PermissionIDs []int64 `json:"permission_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, retcode.JSON_PARSE_FAIL, "invalid body")
		return
	}
	if req.Name == "" {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	role, err := h.d.Role.Add(c.Request.Context(), service.AddRoleParams{
		Name: req.Name, Description: req.Description,
		ParentRoleID: req.ParentRoleID, Priority: req.Priority,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		response.ErrorFrom(c, err, retcode.ADD_FAILED)
		return
	}
	response.Success(c, role)
}

func (h *RoleHandler) Edit(c *gin.Context) {
	var req struct {
		ID            int64   `json:"id"`
		Name          *string `json:"name"`
		Description   *string `json:"description"`
		ParentRoleID  *int64  `json:"parent_role_id"`
		Priority      *int    `json:"priority"`
		IsActive      *bool   `json:"is_active"`
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
	err := h.d.Role.Edit(c.Request.Context(), service.EditRoleParams{
		ID: req.ID, Name: req.Name, Description: req.Description,
		ParentRoleID: req.ParentRoleID, Priority: req.Priority,
		IsActive: req.IsActive, PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		response.ErrorFrom(c, err, retcode.UPDATE_FAILED)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *RoleHandler) Delete(c *gin.Context) {
	id := qInt64(c, "id")
	if id <= 0 {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	if err := h.d.Role.Delete(c.Request.Context(), id); err != nil {
		response.ErrorFrom(c, err, retcode.DELETE_FAILED)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Permissions 角色有效权限（含继承）与继承链
func (h *RoleHandler) Permissions(c *gin.Context) {
	id := qInt64(c, "id")
	if id <= 0 {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	perms, err := h.d.Role.GetAllPermissions(c.Request.Context(), id)
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	chain, err := h.d.Role.GetInheritanceChain(c.Request.Context(), id)
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	codes := make([]string, 0, len(perms))
	for p := range perms {
		codes = append(codes, p)
	}
	chainNames := make([]gin.H, 0, len(chain))
	for _, r := range chain {
		chainNames = append(chainNames, gin.H{"id": r.ID, "name": r.Name})
	}
	response.Success(c, gin.H{"permissions": codes, "chain": chainNames})
}
