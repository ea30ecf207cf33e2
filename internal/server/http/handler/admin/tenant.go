package admin

import (
	"time"

	"go-tenantadmin/internal/service"
	"go-tenantadmin/internal/util/retcode"
	"go-tenantadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

// TenantHandler 平台运维面（/admin/ops/Tenant/*，免租户前缀）
type TenantHandler struct{ d Dependencies }

func NewTenantHandler(d Dependencies) *TenantHandler { return &TenantHandler{d: d} }

func (h *TenantHandler) Provision(c *gin.Context) {
	var req struct {
		Name                  string     `json:"name"`
		Domain                string     `json:"domain"`
		SubscriptionExpiresAt *time.Time `json:"subscription_expires_at"`
		MaxUsers              int        `json:"max_users"`
		MaxRoles              int        `json:"max_roles"`
		MaxMenus              int        `json:"max_menus"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, retcode.JSON_PARSE_FAIL, "invalid body")
		return
	}
	t, err := h.d.Tenant.Provision(c.Request.Context(), service.ProvisionParams{
		Name: req.Name, Domain: req.Domain,
		SubscriptionExpiresAt: req.SubscriptionExpiresAt,
		MaxUsers:              req.MaxUsers, MaxRoles: req.MaxRoles, MaxMenus: req.MaxMenus,
	})
	if err != nil {
		response.ErrorFrom(c, err, retcode.ADD_FAILED)
		return
	}
	response.Success(c, t)
}

func (h *TenantHandler) Index(c *gin.Context) {
	page, limit := pageLimit(c)
	res, err := h.d.Tenant.List(c.Request.Context(), page, limit)
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	response.Success(c, res)
}

func (h *TenantHandler) ChangeStatus(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	active := qInt(c, "status", 1) == 1
	if err := h.d.Tenant.ChangeStatus(c.Request.Context(), id, active); err != nil {
		response.ErrorFrom(c, err, retcode.UPDATE_FAILED)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *TenantHandler) UpdateSubscription(c *gin.Context) {
	var req struct {
		ID        string     `json:"id"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, retcode.JSON_PARSE_FAIL, "invalid body")
		return
	}
	if req.ID == "" {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	if err := h.d.Tenant.UpdateSubscription(c.Request.Context(), req.ID, req.ExpiresAt); err != nil {
		response.ErrorFrom(c, err, retcode.UPDATE_FAILED)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
