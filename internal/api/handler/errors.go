package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "shiftmate/backend/pkg/errors"
	"shiftmate/backend/pkg/response"
)

// 业务错误码
const (
	CodeValidation         = 10001
	CodeUnauthorized       = 10002
	CodeForbidden          = 10003
	CodeRateLimited        = 10004
	CodeBodyTooLarge       = 10005
	CodeNotFound           = 10006
	CodeConflict           = 10007
	CodeInvalidCredentials = 11001
)

// respondError 按错误分类写入响应：NotFound→404 Forbidden→403 Conflict→409 Validation→400，其余 500
func respondError(c *gin.Context, err error) {
	msg := pkgerrors.MessageOf(err)
	switch pkgerrors.KindOf(err) {
	case pkgerrors.KindNotFound:
		response.NotFound(c, CodeNotFound, msg)
	case pkgerrors.KindForbidden:
		response.Forbidden(c, CodeForbidden, msg)
	case pkgerrors.KindConflict:
		response.Conflict(c, CodeConflict, msg)
	case pkgerrors.KindValidation:
		response.BadRequest(c, CodeValidation, msg)
	default:
		// 由访问日志中间件输出
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// bindFailed 请求体或查询参数绑定失败
func bindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, CodeValidation, "参数校验失败", err.Error())
}
