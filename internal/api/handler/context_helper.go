package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shiftmate/backend/internal/model"
	"shiftmate/backend/internal/service"
	"shiftmate/backend/pkg/response"
)

// 与 middleware.JWTAuth 注入的键保持一致
const (
	ctxUserID         = "user_id"
	ctxOrganizationID = "organization_id"
	ctxRole           = "role"
	ctxTokenID        = "token_id"
	ctxTokenExp       = "token_exp"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(ctxUserID)
	if s == "" {
		response.Unauthorized(c, CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (model.Role, bool) {
	role, err := model.ParseRole(c.GetString(ctxRole))
	if err != nil {
		response.Unauthorized(c, CodeUnauthorized, "未认证")
		return "", false
	}
	return role, true
}

// MustGetCaller 组装调用者身份
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Caller{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return service.Caller{}, false
	}
	return service.Caller{
		UserID:         userID,
		OrganizationID: c.GetString(ctxOrganizationID),
		Role:           role,
	}, true
}

// MustGetMember 租户内操作：调用者必须属于某个组织
func MustGetMember(c *gin.Context) (service.Caller, bool) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return caller, false
	}
	if caller.OrganizationID == "" {
		response.Forbidden(c, CodeForbidden, "当前账号不属于任何组织")
		return caller, false
	}
	return caller, true
}

// tokenIdentity 当前 Access Token 的 jti 与过期时间
func tokenIdentity(c *gin.Context) (string, time.Time) {
	return c.GetString(ctxTokenID), c.GetTime(ctxTokenExp)
}

// pathID 读取并校验路径参数中的 UUID
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, CodeValidation, "无效的 ID")
		return "", false
	}
	return id, true
}
