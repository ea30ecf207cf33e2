package response

import (
	"errors"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/util/retcode"

	"github.com/gin-gonic/gin"
)

type Body struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

func JSON(c *gin.Context, code int, msg string, data interface{}) {
	c.JSON(200, Body{Code: code, Msg: msg, Data: data})
}

func Success(c *gin.Context, data interface{}) {
	JSON(c, retcode.SUCCESS, "success", data)
}

// Error 约定：code 传入业务码(负值)。若误传 >=0 的值则归一为 INVALID。
func Error(c *gin.Context, code int, msg string) {
	if code >= 0 {
		code = retcode.INVALID
	}
	JSON(c, code, msg, nil)
}

// ErrorFrom 将领域错误映射到业务码；未识别的错误按 fallback 返回
func ErrorFrom(c *gin.Context, err error, fallback int) {
	Error(c, CodeOf(err, fallback), err.Error())
}

// CodeOf 领域错误 -> 业务码
func CodeOf(err error, fallback int) int {
	switch {
	case errors.Is(err, apperr.ErrTenantRequired):
		return retcode.TENANT_REQUIRED
	case errors.Is(err, apperr.ErrTenantDisabled):
		return retcode.TENANT_DISABLED
	case errors.Is(err, apperr.ErrSubscriptionExpired):
		return retcode.SUBSCRIPTION_EXPIRED
	case errors.Is(err, apperr.ErrContextRequired):
		return retcode.CONTEXT_REQUIRED
	case errors.Is(err, apperr.ErrCrossTenant):
		return retcode.CROSS_TENANT
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return retcode.QUOTA_EXCEEDED
	case errors.Is(err, apperr.ErrCircularInheritance):
		return retcode.CIRCULAR_INHERIT
	case errors.Is(err, apperr.ErrRoleInUse):
		return retcode.ROLE_IN_USE
	case errors.Is(err, apperr.ErrRoleHasChildren):
		return retcode.ROLE_HAS_CHILDREN
	case errors.Is(err, apperr.ErrRoleSystemSeeded):
		return retcode.ROLE_SYSTEM_SEEDED
	case errors.Is(err, apperr.ErrMenuHasChildren):
		return retcode.MENU_HAS_CHILDREN
	case errors.Is(err, apperr.ErrNotFound):
		return retcode.RECORD_NOT_FOUND
	}
	return fallback
}
