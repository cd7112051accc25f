package dto

// ── 换班模块 DTO ──

// InitiateSwapRequest 公开挂单请求
type InitiateSwapRequest struct {
	ShiftID string `json:"shift_id" binding:"required,uuid"`
}

// ProposeDirectSwapRequest 定向互换请求
type ProposeDirectSwapRequest struct {
	ShiftID       string `json:"shift_id"        binding:"required,uuid"`
	TargetShiftID string `json:"target_shift_id" binding:"required,uuid"`
}

// SwapRequestResponse 换班申请响应
type SwapRequestResponse struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"` // open / direct
	ShiftID        string         `json:"shift_id"`
	Shift          *ShiftResponse `json:"shift,omitempty"`
	TargetShiftID  *string        `json:"target_shift_id,omitempty"`
	TargetShift    *ShiftResponse `json:"target_shift,omitempty"`
	TargetUserID   *string        `json:"target_user_id,omitempty"`
	RequestingUser *UserBrief     `json:"requesting_user,omitempty"`
	TargetUser     *UserBrief     `json:"target_user,omitempty"`
	Status         string         `json:"status"`
	CreatedAt      string         `json:"created_at"`
}
