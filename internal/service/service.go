package service

import (
	"go.uber.org/zap"

	"shiftmate/backend/config"
	"shiftmate/backend/internal/repository"
	"shiftmate/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Organization OrganizationService
	Shift        ShiftService
	Claim        ClaimService
	Swap         SwapService
	Export       ExportService
}

// NewService 创建 Service 聚合
// blacklist 为 nil 时登出不落黑名单；notifier 为 nil 时通知只写日志
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	if notifier == nil {
		notifier = NewNotifier(nil, "", logger)
	}
	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, notifier, logger),
		User:         NewUserService(repo, logger),
		Organization: NewOrganizationService(repo, logger),
		Shift:        NewShiftService(repo, cfg.Schedule, logger),
		Claim:        NewClaimService(repo, cfg.Schedule, logger),
		Swap:         NewSwapService(repo, notifier, logger),
		Export:       NewExportService(repo, cfg.Schedule, logger),
	}
}
