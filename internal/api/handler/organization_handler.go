package handler

import (
	"github.com/gin-gonic/gin"

	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/service"
	"shiftmate/backend/pkg/response"
)

// OrganizationHandler 组织管理（仅超级管理员）
type OrganizationHandler struct {
	orgSvc service.OrganizationService
}

// NewOrganizationHandler 创建 OrganizationHandler
func NewOrganizationHandler(orgSvc service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgSvc: orgSvc}
}

// Create 创建组织
// POST /api/v1/organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	org, err := h.orgSvc.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, org)
}

// List 组织列表
// GET /api/v1/organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgSvc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, orgs)
}

// Get 组织详情
// GET /api/v1/organizations/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	org, err := h.orgSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, org)
}

// Rename 重命名组织
// PUT /api/v1/organizations/:id
func (h *OrganizationHandler) Rename(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	org, err := h.orgSvc.Rename(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, org)
}

// Delete 删除组织及其全部数据
// DELETE /api/v1/organizations/:id
func (h *OrganizationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.orgSvc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	response.NoContent(c)
}
