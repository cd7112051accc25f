package handler

import "shiftmate/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Organization *OrganizationHandler
	User         *UserHandler
	Shift        *ShiftHandler
	Swap         *SwapHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, svc.User),
		Organization: NewOrganizationHandler(svc.Organization),
		User:         NewUserHandler(svc.User),
		Shift:        NewShiftHandler(svc.Shift, svc.Claim),
		Swap:         NewSwapHandler(svc.Swap),
		Export:       NewExportHandler(svc.Export),
	}
}
