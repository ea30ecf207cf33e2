package admin

import (
	"go-tenantadmin/internal/util/retcode"
	"go-tenantadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type PermissionHandler struct{ d Dependencies }

func NewPermissionHandler(d Dependencies) *PermissionHandler { return &PermissionHandler{d: d} }

// Index 权限目录（平台级，只读），category 可选过滤
func (h *PermissionHandler) Index(c *gin.Context) {
	res, err := h.d.Perm.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.ErrorFrom(c, err, retcode.DB_READ_ERROR)
		return
	}
	response.Success(c, res)
}
