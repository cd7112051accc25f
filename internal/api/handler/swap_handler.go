package handler

import (
	"github.com/gin-gonic/gin"

	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/service"
	"shiftmate/backend/pkg/response"
)

// SwapHandler 换班模块 HTTP 处理器
type SwapHandler struct {
	swapSvc service.SwapService
}

// NewSwapHandler 创建 SwapHandler
func NewSwapHandler(swapSvc service.SwapService) *SwapHandler {
	return &SwapHandler{swapSvc: swapSvc}
}

// Initiate 公开挂出自己的班次
// POST /api/v1/swaps
func (h *SwapHandler) Initiate(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	var req dto.InitiateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	swap, err := h.swapSvc.Initiate(c.Request.Context(), caller.OrganizationID, req.ShiftID, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, swap)
}

// ProposeDirect 向目标班次的所有者发起定向互换
// POST /api/v1/swaps/direct
func (h *SwapHandler) ProposeDirect(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	var req dto.ProposeDirectSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	swap, err := h.swapSvc.ProposeDirect(c.Request.Context(), caller.OrganizationID, req.ShiftID, req.TargetShiftID, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, swap)
}

// ListAvailable 组织内所有公开挂单
// GET /api/v1/swaps/available
func (h *SwapHandler) ListAvailable(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	swaps, err := h.swapSvc.ListAvailable(c.Request.Context(), caller.OrganizationID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, swaps)
}

// ListReceived 我收到的待处理定向申请
// GET /api/v1/swaps/received
func (h *SwapHandler) ListReceived(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	swaps, err := h.swapSvc.ListReceived(c.Request.Context(), caller.OrganizationID, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, swaps)
}

// ListSent 我发起的待处理申请
// GET /api/v1/swaps/sent
func (h *SwapHandler) ListSent(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	swaps, err := h.swapSvc.ListSent(c.Request.Context(), caller.OrganizationID, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, swaps)
}

// Accept 接受挂单或定向申请
// POST /api/v1/swaps/:id/accept
func (h *SwapHandler) Accept(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	swap, err := h.swapSvc.Accept(c.Request.Context(), caller.OrganizationID, id, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, swap)
}

// Decline 拒绝定向申请
// POST /api/v1/swaps/:id/decline
func (h *SwapHandler) Decline(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	swap, err := h.swapSvc.Decline(c.Request.Context(), caller.OrganizationID, id, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, swap)
}

// Cancel 发起人撤回申请
// DELETE /api/v1/swaps/:id
func (h *SwapHandler) Cancel(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.swapSvc.Cancel(c.Request.Context(), caller.OrganizationID, id, caller.UserID); err != nil {
		respondError(c, err)
		return
	}

	response.NoContent(c)
}
