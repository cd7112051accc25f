package service

import (
	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/model"
)

// ── model → dto 转换 ──

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{ID: u.UserID, FirstName: u.FirstName, LastName: u.LastName}
}

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:             u.UserID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Role:           string(u.Role),
		OrganizationID: u.OrganizationID,
		CreatedAt:      dto.FormatTime(u.CreatedAt),
	}
}

func toOrganizationResponse(o *model.Organization) *dto.OrganizationResponse {
	return &dto.OrganizationResponse{
		ID:        o.OrganizationID,
		Name:      o.Name,
		CreatedAt: dto.FormatTime(o.CreatedAt),
	}
}

func toShiftResponse(s *model.Shift) *dto.ShiftResponse {
	if s == nil {
		return nil
	}
	return &dto.ShiftResponse{
		ID:             s.ShiftID,
		OrganizationID: s.OrganizationID,
		UserID:         s.UserID,
		User:           toUserBrief(s.User),
		StartTime:      dto.FormatTime(s.StartTime),
		EndTime:        dto.FormatTime(s.EndTime),
		IsUpForSwap:    s.IsUpForSwap,
		Version:        s.Version,
	}
}

func toShiftResponses(shifts []model.Shift) []dto.ShiftResponse {
	result := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		result = append(result, *toShiftResponse(&shifts[i]))
	}
	return result
}

func toSwapResponse(r *model.SwapRequest) *dto.SwapRequestResponse {
	return &dto.SwapRequestResponse{
		ID:             r.SwapRequestID,
		Type:           r.Flow(),
		ShiftID:        r.ShiftID,
		Shift:          toShiftResponse(r.Shift),
		TargetShiftID:  r.TargetShiftID,
		TargetShift:    toShiftResponse(r.TargetShift),
		TargetUserID:   r.TargetUserID,
		RequestingUser: toUserBrief(r.RequestingUser),
		TargetUser:     toUserBrief(r.TargetUser),
		Status:         string(r.Status),
		CreatedAt:      dto.FormatTime(r.CreatedAt),
	}
}

func toSwapResponses(reqs []model.SwapRequest) []dto.SwapRequestResponse {
	result := make([]dto.SwapRequestResponse, 0, len(reqs))
	for i := range reqs {
		result = append(result, *toSwapResponse(&reqs[i]))
	}
	return result
}
