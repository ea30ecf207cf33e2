package admin

import (
	"go-tenantadmin/internal/util/retcode"
	"go-tenantadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ d Dependencies }

func NewAuthHandler(d Dependencies) *AuthHandler { return &AuthHandler{d: d} }

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		TenantID string `json:"tenant_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, retcode.JSON_PARSE_FAIL, "invalid body")
		return
	}
	if req.TenantID == "" {
		req.TenantID = c.GetHeader("X-Tenant-ID")
	}
	res, err := h.d.Auth.Login(c.Request.Context(), req.Username, req.Password, req.TenantID)
	if err != nil {
		response.ErrorFrom(c, err, retcode.LOGIN_ERROR)
		return
	}
	response.Success(c, res)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	jti := c.GetString("jti")
	if jti == "" {
		// 未经过认证中间件时从头部解析
		auth := c.GetHeader("Authorization")
		if len(auth) > 7 {
			if claims, err := h.d.JWT.Parse(auth[7:]); err == nil {
				jti = claims.JTI
			}
		}
	}
	_ = h.d.Auth.Logout(c.Request.Context(), jti)
	response.Success(c, gin.H{"ok": true})
}

// Refresh 用未过期 token 换发新 token，旧 JTI 即刻吊销
func (h *AuthHandler) Refresh(c *gin.Context) {
	res, err := h.d.Auth.Refresh(c.Request.Context(), c.GetInt64("user_id"), c.GetString("tenant_id"), c.GetString("jti"))
	if err != nil {
		response.ErrorFrom(c, err, retcode.AUTH_ERROR)
		return
	}
	response.Success(c, res)
}

// GetUserInfo 当前用户信息 + 有效权限集合
func (h *AuthHandler) GetUserInfo(c *gin.Context) {
	uid := c.GetInt64("user_id")
	user, err := h.d.Auth.GetUser(c.Request.Context(), uid)
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	if user == nil {
		response.Error(c, retcode.RECORD_NOT_FOUND, "用户不存在")
		return
	}
	perms, err := h.d.Role.GetUserPermissions(c.Request.Context(), uid)
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	codes := make([]string, 0, len(perms))
	for p := range perms {
		codes = append(codes, p)
	}
	response.Success(c, gin.H{
		"id": user.ID, "username": user.Username, "nickname": user.Nickname,
		"is_superuser": user.IsSuperuser, "tenant_id": user.TenantID,
		"permissions": codes,
	})
}

// GetAccessMenu 当前用户可见菜单树
func (h *AuthHandler) GetAccessMenu(c *gin.Context) {
	uid := c.GetInt64("user_id")
	user, err := h.d.Auth.GetUser(c.Request.Context(), uid)
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	if user == nil {
		response.Error(c, retcode.RECORD_NOT_FOUND, "用户不存在")
		return
	}
	tree, err := h.d.Menu.BuildUserMenuTree(c.Request.Context(), user)
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	response.Success(c, gin.H{"list": tree})
}
