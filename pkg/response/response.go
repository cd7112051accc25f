package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CodeInternal 未分类错误的业务码
const CodeInternal = 50000

// Response 统一响应结构
// code=0 表示成功；request_id 便于前端反馈问题时对照访问日志
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Details   string      `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func write(c *gin.Context, status int, body Response) {
	body.RequestID = c.GetString("request_id")
	c.JSON(status, body)
}

// ── 成功响应 ──

// OK 200
func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, Response{Message: "success", Data: data})
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, Response{Message: "success", Data: data})
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus, code int, message string) {
	write(c, httpStatus, Response{Code: code, Message: message})
}

// ErrorWithDetails 带详情的错误响应（如参数校验失败的字段）
func ErrorWithDetails(c *gin.Context, httpStatus, code int, message, details string) {
	write(c, httpStatus, Response{Code: code, Message: message, Details: details})
}

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// Conflict 409
func Conflict(c *gin.Context, code int, message string) {
	Error(c, http.StatusConflict, code, message)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context, code int, message string) {
	Error(c, http.StatusTooManyRequests, code, message)
}

// InternalError 500，不向客户端暴露内部错误
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "服务器内部错误")
}
