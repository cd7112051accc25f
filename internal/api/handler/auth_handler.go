package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/service"
	"shiftmate/backend/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	userSvc service.UserService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService, userSvc service.UserService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, userSvc: userSvc}
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, CodeInvalidCredentials, "邮箱或密码错误")
			return
		}
		respondError(c, err)
		return
	}

	response.OK(c, result)
}

// Logout 用户登出，当前 Token 加入黑名单
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp := tokenIdentity(c)
	if jti == "" {
		response.Unauthorized(c, CodeUnauthorized, "未认证")
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), jti, exp); err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, nil)
}

// Me 当前登录用户
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), caller, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, user)
}

// ForgotPassword 申请密码重置（无论邮箱是否存在均返回成功）
// POST /api/v1/auth/password/forgot
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	if err := h.authSvc.ForgotPassword(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetPassword 使用重置令牌设置新密码
// POST /api/v1/auth/password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	if err := h.authSvc.ResetPassword(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, nil)
}
