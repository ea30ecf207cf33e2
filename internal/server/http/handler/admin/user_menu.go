package admin

import (
	"go-tenantadmin/internal/service"
	"go-tenantadmin/internal/util/retcode"
	"go-tenantadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserMenuHandler 当前用户的菜单个性化
type UserMenuHandler struct{ d Dependencies }

func NewUserMenuHandler(d Dependencies) *UserMenuHandler { return &UserMenuHandler{d: d} }

func (h *UserMenuHandler) Config(c *gin.Context) {
	var req struct {
		MenuID      int64   `json:"menu_id"`
		IsFavorite  *bool   `json:"is_favorite"`
		IsHidden    *bool   `json:"is_hidden"`
		CustomTitle *string `json:"custom_title"`
		CustomIcon  *string `json:"custom_icon"`
		CustomSort  *int    `json:"custom_sort"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, retcode.JSON_PARSE_FAIL, "invalid body")
		return
	}
	if req.MenuID <= 0 {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	uid := c.GetInt64("user_id")
	err := h.d.Menu.UpdateUserConfig(c.Request.Context(), uid, service.UserMenuConfigParams{
		MenuID: req.MenuID, IsFavorite: req.IsFavorite, IsHidden: req.IsHidden,
		CustomTitle: req.CustomTitle, CustomIcon: req.CustomIcon, CustomSort: req.CustomSort,
	})
	if err != nil {
		response.ErrorFrom(c, err, retcode.UPDATE_FAILED)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *UserMenuHandler) Favorites(c *gin.Context) {
	uid := c.GetInt64("user_id")
	items, err := h.d.Menu.GetFavoriteMenus(c.Request.Context(), uid)
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	response.Success(c, gin.H{"list": items})
}

// Access 记录一次菜单访问（计数 + 最近访问时间）
func (h *UserMenuHandler) Access(c *gin.Context) {
	id := qInt64(c, "menu_id")
	if id <= 0 {
		response.Error(c, retcode.EMPTY_PARAMS, "缺少必要参数")
		return
	}
	uid := c.GetInt64("user_id")
	if err := h.d.Menu.RecordMenuAccess(c.Request.Context(), uid, id); err != nil {
		response.ErrorFrom(c, err, retcode.UPDATE_FAILED)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
