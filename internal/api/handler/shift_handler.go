package handler

import (
	"github.com/gin-gonic/gin"

	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/service"
	"shiftmate/backend/pkg/response"
)

// ShiftHandler 班次模块 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
	claimSvc service.ClaimService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService, claimSvc service.ClaimService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc, claimSvc: claimSvc}
}

// ── 查询 ──

// List 组织全部班次（经理及以上）
// GET /api/v1/shifts?assigned_only=true
func (h *ShiftHandler) List(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	var req dto.ShiftListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	shifts, err := h.shiftSvc.ListByOrganization(c.Request.Context(), caller.OrganizationID, req.AssignedOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, shifts)
}

// ListClaimable 未分配或已挂出的未来班次
// GET /api/v1/shifts/claimable
func (h *ShiftHandler) ListClaimable(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	shifts, err := h.shiftSvc.ListClaimable(c.Request.Context(), caller.OrganizationID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, shifts)
}

// ListMine 我的班次
// GET /api/v1/shifts/my
func (h *ShiftHandler) ListMine(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	shifts, err := h.shiftSvc.ListByUser(c.Request.Context(), caller.OrganizationID, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, shifts)
}

// Get 班次详情
// GET /api/v1/shifts/:id
func (h *ShiftHandler) Get(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	shift, err := h.shiftSvc.GetByID(c.Request.Context(), caller.OrganizationID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, shift)
}

// ── 经理维护 ──

// Create 创建班次
// POST /api/v1/shifts
func (h *ShiftHandler) Create(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	var req dto.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	shift, err := h.shiftSvc.Create(c.Request.Context(), caller.OrganizationID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, shift)
}

// CreateRecurring 按 RRULE 批量创建班次
// POST /api/v1/shifts/recurring
func (h *ShiftHandler) CreateRecurring(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	var req dto.CreateRecurringShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	shifts, err := h.shiftSvc.CreateRecurring(c.Request.Context(), caller.OrganizationID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, shifts)
}

// Update 修改班次时间与归属
// PUT /api/v1/shifts/:id
func (h *ShiftHandler) Update(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	shift, err := h.shiftSvc.Update(c.Request.Context(), caller.OrganizationID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, shift)
}

// Delete 删除班次及相关换班申请
// DELETE /api/v1/shifts/:id
func (h *ShiftHandler) Delete(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.shiftSvc.Delete(c.Request.Context(), caller.OrganizationID, id); err != nil {
		respondError(c, err)
		return
	}

	response.NoContent(c)
}

// ── 认领 ──

// Take 认领班次
// POST /api/v1/shifts/:id/take
func (h *ShiftHandler) Take(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	shift, err := h.claimSvc.Take(c.Request.Context(), caller.OrganizationID, id, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, shift)
}

// CancelListing 撤回挂出的班次
// DELETE /api/v1/shifts/:id/listing
func (h *ShiftHandler) CancelListing(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	shift, err := h.claimSvc.CancelSwapListing(c.Request.Context(), caller.OrganizationID, id, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, shift)
}
