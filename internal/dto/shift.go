package dto

import "time"

// ── 班次模块 DTO ──

// CreateShiftRequest 创建班次请求，UserID 为空表示未分配
type CreateShiftRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time"   binding:"required"`
	UserID    *string   `json:"user_id"    binding:"omitempty,uuid"`
}

// UpdateShiftRequest 整体更新班次，UserID 为空表示改为未分配
type UpdateShiftRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time"   binding:"required"`
	UserID    *string   `json:"user_id"    binding:"omitempty,uuid"`
}

// CreateRecurringShiftRequest 按 RRULE 批量创建班次
// StartTime/EndTime 为首个班次，后续班次时长与之相同
type CreateRecurringShiftRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time"   binding:"required"`
	UserID    *string   `json:"user_id"    binding:"omitempty,uuid"`
	RRule     string    `json:"rrule"      binding:"required,max=500"`
}

// ShiftListRequest 组织班次列表查询参数
type ShiftListRequest struct {
	AssignedOnly bool `form:"assigned_only"`
}

// ShiftExportRequest 排班导出时间范围 [From, To)，日期按 UTC 零点解析
type ShiftExportRequest struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02" time_utc:"1"`
	To   time.Time `form:"to"   binding:"required" time_format:"2006-01-02" time_utc:"1"`
}

// ShiftResponse 班次响应
type ShiftResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	UserID         *string    `json:"user_id,omitempty"`
	User           *UserBrief `json:"user,omitempty"`
	StartTime      string     `json:"start_time"`
	EndTime        string     `json:"end_time"`
	IsUpForSwap    bool       `json:"is_up_for_swap"`
	Version        int        `json:"version"`
}
