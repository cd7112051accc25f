package handler

import (
	"github.com/gin-gonic/gin"

	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/service"
	"shiftmate/backend/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Create 创建成员
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	user, err := h.userSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, user)
}

// List 组织成员列表；超级管理员通过 ?organization_id= 指定组织
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	orgID := caller.OrganizationID
	if caller.IsSuperAdmin() {
		orgID = c.Query("organization_id")
	}
	if orgID == "" {
		response.BadRequest(c, CodeValidation, "organization_id 不能为空")
		return
	}

	users, err := h.userSvc.ListByOrganization(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, users)
}

// Get 成员详情
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateRole 修改成员角色
// PUT /api/v1/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	user, err := h.userSvc.UpdateRole(c.Request.Context(), caller, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, user)
}

// Delete 删除成员，其班次改为未分配
// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), caller, id); err != nil {
		respondError(c, err)
		return
	}

	response.NoContent(c)
}
