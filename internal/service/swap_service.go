package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/model"
	"shiftmate/backend/internal/repository"
	"shiftmate/backend/pkg/database"
	pkgerrors "shiftmate/backend/pkg/errors"
	"shiftmate/backend/pkg/metrics"
)

// SwapService 换班状态机
//
// 状态：pending → {accepted, declined, cancelled}，终态不可再迁移。
// 两条流程共用状态枚举：
//   - 公开挂单：Initiate / AcceptOpen / Cancel
//   - 定向互换：ProposeDirect / AcceptDirect / Decline / Cancel
//
// 不变量：班次 is_up_for_swap 为 true 当且仅当存在以其为发起班次的待处理公开挂单；
// 一个班次同时最多只有一条待处理的发起申请。is_up_for_swap 只在本服务与认领服务的迁移中写入。
type SwapService interface {
	Initiate(ctx context.Context, orgID, shiftID, userID string) (*dto.SwapRequestResponse, error)
	AcceptOpen(ctx context.Context, orgID, swapID, userID string) (*dto.SwapRequestResponse, error)
	ProposeDirect(ctx context.Context, orgID, shiftID, targetShiftID, userID string) (*dto.SwapRequestResponse, error)
	AcceptDirect(ctx context.Context, orgID, swapID, userID string) (*dto.SwapRequestResponse, error)
	// Accept 按申请形态分派到 AcceptOpen / AcceptDirect
	Accept(ctx context.Context, orgID, swapID, userID string) (*dto.SwapRequestResponse, error)
	Decline(ctx context.Context, orgID, swapID, userID string) (*dto.SwapRequestResponse, error)
	Cancel(ctx context.Context, orgID, swapID, userID string) error

	ListAvailable(ctx context.Context, orgID string) ([]dto.SwapRequestResponse, error)
	ListReceived(ctx context.Context, orgID, userID string) ([]dto.SwapRequestResponse, error)
	ListSent(ctx context.Context, orgID, userID string) ([]dto.SwapRequestResponse, error)
}

type swapService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewSwapService 创建 SwapService 实例
func NewSwapService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) SwapService {
	return &swapService{repo: repo, notifier: notifier, logger: logger}
}

// lockRequest 锁定换班申请，并通过发起班次校验组织归属
func (s *swapService) lockRequest(ctx context.Context, tx *repository.Repository, orgID, swapID string) (*model.SwapRequest, error) {
	req, err := tx.SwapRequest.GetByIDForUpdate(ctx, swapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}
	shift, err := tx.Shift.GetByID(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}
	if shift.OrganizationID != orgID {
		return nil, ErrSwapNotFound
	}
	return req, nil
}

// ensureNoPendingOffer 一个班次最多只有一条待处理的发起申请
func ensureNoPendingOffer(ctx context.Context, tx *repository.Repository, shiftID string) error {
	_, err := tx.SwapRequest.FindPendingByOfferingShift(ctx, shiftID)
	switch {
	case err == nil:
		return ErrSwapAlreadyOffered
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return err
	}
}

// ═══════════════════════════════════════════════════════════
// 公开挂单
// ═══════════════════════════════════════════════════════════

func (s *swapService) Initiate(ctx context.Context, orgID, shiftID, userID string) (*dto.SwapRequestResponse, error) {
	var req *model.SwapRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		shift, err := lockShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}
		if !shift.IsOwnedBy(userID) {
			return ErrShiftNotOwner
		}
		if err := ensureNoPendingOffer(ctx, tx, shift.ShiftID); err != nil {
			return err
		}

		req = &model.SwapRequest{
			ShiftID:          shift.ShiftID,
			RequestingUserID: userID,
			Status:           model.SwapStatusPending,
		}
		if err := tx.SwapRequest.Create(ctx, req); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrSwapAlreadyOffered
			}
			return err
		}

		shift.IsUpForSwap = true
		return tx.Shift.Update(ctx, shift)
	})
	if err != nil {
		return nil, s.fail("发起换班挂单失败", err)
	}

	metrics.SwapTransition(req.Flow(), string(model.SwapStatusPending))
	s.logger.Info("班次已挂出换班",
		zap.String("swap_request_id", req.SwapRequestID),
		zap.String("shift_id", shiftID),
	)
	return toSwapResponse(req), nil
}

// AcceptOpen 接受公开挂单：接班人通过重叠检查后取得班次
func (s *swapService) AcceptOpen(ctx context.Context, orgID, swapID, userID string) (*dto.SwapRequestResponse, error) {
	var req *model.SwapRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		req, err = s.lockRequest(ctx, tx, orgID, swapID)
		if err != nil {
			return err
		}
		return s.acceptOpen(ctx, tx, orgID, req, userID)
	})
	if err != nil {
		return nil, s.fail("接受换班挂单失败", err)
	}

	metrics.SwapTransition(req.Flow(), string(model.SwapStatusAccepted))
	s.logger.Info("换班挂单已被接受",
		zap.String("swap_request_id", swapID),
		zap.String("accepted_by", userID),
	)
	return toSwapResponse(req), nil
}

func (s *swapService) acceptOpen(ctx context.Context, tx *repository.Repository, orgID string, req *model.SwapRequest, userID string) error {
	if req.IsDirect() {
		return ErrSwapNotOpen
	}
	if req.Status != model.SwapStatusPending {
		return ErrSwapNotPending
	}
	if req.RequestingUserID == userID {
		return ErrSwapOwnListing
	}

	shift, err := lockShift(ctx, tx, orgID, req.ShiftID)
	if err != nil {
		return err
	}
	if err := lockMembers(ctx, tx, orgID, ErrUserNotFound, userID); err != nil {
		return err
	}

	overlap, err := HasOverlap(ctx, tx.Shift, userID, shift.Interval())
	if err != nil {
		return err
	}
	if overlap {
		metrics.OverlapConflict("accept_open")
		return pkgerrors.Wrapf(ErrSwapCollision, "接班人在该时段已有班次")
	}

	shift.UserID = &userID
	shift.IsUpForSwap = false
	if err := tx.Shift.Update(ctx, shift); err != nil {
		return err
	}

	req.Status = model.SwapStatusAccepted
	req.TargetUserID = &userID
	if err := tx.SwapRequest.Update(ctx, req); err != nil {
		return err
	}
	return supersedePending(ctx, tx, req.SwapRequestID, shift.ShiftID)
}

// ═══════════════════════════════════════════════════════════
// 定向互换
// ═══════════════════════════════════════════════════════════

func (s *swapService) ProposeDirect(ctx context.Context, orgID, shiftID, targetShiftID, userID string) (*dto.SwapRequestResponse, error) {
	if shiftID == targetShiftID {
		return nil, ErrSwapSameShift
	}

	var (
		req        *model.SwapRequest
		targetUser *model.User
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		mine, target, err := lockShiftPair(ctx, tx, orgID, shiftID, targetShiftID)
		if err != nil {
			return err
		}
		if !mine.IsOwnedBy(userID) {
			return ErrShiftNotOwner
		}
		if target.IsUnassigned() {
			return ErrSwapTargetUnassigned
		}
		if target.IsOwnedBy(userID) {
			return ErrSwapSelfTarget
		}

		targetUser, err = tx.User.GetByID(ctx, *target.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if !targetUser.BelongsTo(orgID) {
			return ErrUserNotFound
		}

		if err := ensureNoPendingOffer(ctx, tx, mine.ShiftID); err != nil {
			return err
		}

		req = &model.SwapRequest{
			ShiftID:          mine.ShiftID,
			RequestingUserID: userID,
			TargetUserID:     target.UserID,
			TargetShiftID:    &target.ShiftID,
			Status:           model.SwapStatusPending,
		}
		if err := tx.SwapRequest.Create(ctx, req); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrSwapAlreadyOffered
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("发起定向互换失败", err)
	}

	metrics.SwapTransition(req.Flow(), string(model.SwapStatusPending))
	s.logger.Info("定向互换已发起",
		zap.String("swap_request_id", req.SwapRequestID),
		zap.String("target_user_id", targetUser.UserID),
	)

	dispatchNotification(ctx, s.notifier, s.logger, Notification{
		Type:           NotificationSwapProposed,
		RecipientID:    targetUser.UserID,
		RecipientEmail: targetUser.Email,
		Data: map[string]string{
			"swap_request_id":    req.SwapRequestID,
			"shift_id":           req.ShiftID,
			"target_shift_id":    targetShiftID,
			"requesting_user_id": userID,
		},
	})
	return toSwapResponse(req), nil
}

// AcceptDirect 接受定向互换
//
// 双向重叠检查均排除互换中的两个班次：
//   - 发起人对目标班次的时段
//   - 被邀请人对发起班次的时段
func (s *swapService) AcceptDirect(ctx context.Context, orgID, swapID, userID string) (*dto.SwapRequestResponse, error) {
	var req *model.SwapRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		req, err = s.lockRequest(ctx, tx, orgID, swapID)
		if err != nil {
			return err
		}
		return s.acceptDirect(ctx, tx, orgID, req, userID)
	})
	if err != nil {
		return nil, s.fail("接受定向互换失败", err)
	}

	metrics.SwapTransition(req.Flow(), string(model.SwapStatusAccepted))
	s.logger.Info("定向互换已完成", zap.String("swap_request_id", swapID))
	return toSwapResponse(req), nil
}

func (s *swapService) acceptDirect(ctx context.Context, tx *repository.Repository, orgID string, req *model.SwapRequest, userID string) error {
	if !req.IsDirect() {
		return ErrSwapNotDirect
	}
	if !req.IsTargetedAt(userID) {
		return ErrSwapNotTarget
	}
	if req.Status != model.SwapStatusPending {
		return ErrSwapNotPending
	}

	offered, target, err := lockShiftPair(ctx, tx, orgID, req.ShiftID, *req.TargetShiftID)
	if err != nil {
		return err
	}
	requesterID := req.RequestingUserID
	if !offered.IsOwnedBy(requesterID) || !target.IsOwnedBy(userID) {
		return ErrSwapStale
	}
	if err := lockMembers(ctx, tx, orgID, ErrUserNotFound, requesterID, userID); err != nil {
		return err
	}

	exclude := []string{offered.ShiftID, target.ShiftID}
	overlap, err := HasOverlap(ctx, tx.Shift, requesterID, target.Interval(), exclude...)
	if err != nil {
		return err
	}
	if overlap {
		metrics.OverlapConflict("accept_direct")
		return pkgerrors.Wrapf(ErrSwapCollision, "发起人在目标班次时段已有其他班次")
	}
	overlap, err = HasOverlap(ctx, tx.Shift, userID, offered.Interval(), exclude...)
	if err != nil {
		return err
	}
	if overlap {
		metrics.OverlapConflict("accept_direct")
		return pkgerrors.Wrapf(ErrSwapCollision, "被邀请人在发起班次时段已有其他班次")
	}

	offered.UserID, target.UserID = target.UserID, offered.UserID
	offered.IsUpForSwap = false
	target.IsUpForSwap = false
	for _, shift := range []*model.Shift{offered, target} {
		if err := tx.Shift.Update(ctx, shift); err != nil {
			return err
		}
	}

	req.Status = model.SwapStatusAccepted
	if err := tx.SwapRequest.Update(ctx, req); err != nil {
		return err
	}
	return supersedePending(ctx, tx, req.SwapRequestID, offered.ShiftID, target.ShiftID)
}

// Accept 公开挂单与定向互换共用同一个接受入口
func (s *swapService) Accept(ctx context.Context, orgID, swapID, userID string) (*dto.SwapRequestResponse, error) {
	req, err := s.repo.SwapRequest.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		s.logger.Error("查询换班申请失败", zap.String("swap_request_id", swapID), zap.Error(err))
		return nil, err
	}
	if req.IsDirect() {
		return s.AcceptDirect(ctx, orgID, swapID, userID)
	}
	return s.AcceptOpen(ctx, orgID, swapID, userID)
}

// Decline 拒绝定向互换，记录保留
func (s *swapService) Decline(ctx context.Context, orgID, swapID, userID string) (*dto.SwapRequestResponse, error) {
	var req *model.SwapRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		req, err = s.lockRequest(ctx, tx, orgID, swapID)
		if err != nil {
			return err
		}
		if !req.IsTargetedAt(userID) {
			return ErrSwapNotTarget
		}
		if req.Status != model.SwapStatusPending {
			return ErrSwapNotPending
		}
		req.Status = model.SwapStatusDeclined
		return tx.SwapRequest.Update(ctx, req)
	})
	if err != nil {
		return nil, s.fail("拒绝换班申请失败", err)
	}

	metrics.SwapTransition(req.Flow(), string(model.SwapStatusDeclined))
	return toSwapResponse(req), nil
}

// Cancel 发起人撤回申请：撤下换班标记后删除记录
func (s *swapService) Cancel(ctx context.Context, orgID, swapID, userID string) error {
	var req *model.SwapRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		req, err = s.lockRequest(ctx, tx, orgID, swapID)
		if err != nil {
			return err
		}
		if req.RequestingUserID != userID {
			return ErrSwapNotRequester
		}
		if req.Status != model.SwapStatusPending {
			return ErrSwapNotPending
		}

		if !req.IsDirect() {
			shift, err := lockShift(ctx, tx, orgID, req.ShiftID)
			if err != nil {
				return err
			}
			if shift.IsUpForSwap {
				shift.IsUpForSwap = false
				if err := tx.Shift.Update(ctx, shift); err != nil {
					return err
				}
			}
		}
		return tx.SwapRequest.Delete(ctx, req.SwapRequestID)
	})
	if err != nil {
		return s.fail("取消换班申请失败", err)
	}

	metrics.SwapTransition(req.Flow(), string(model.SwapStatusCancelled))
	s.logger.Info("换班申请已取消", zap.String("swap_request_id", swapID))
	return nil
}

// ═══════════════════════════════════════════════════════════
// 查询
// ═══════════════════════════════════════════════════════════

func (s *swapService) ListAvailable(ctx context.Context, orgID string) ([]dto.SwapRequestResponse, error) {
	reqs, err := s.repo.SwapRequest.ListAvailable(ctx, orgID)
	if err != nil {
		s.logger.Error("查询换班市场失败", zap.Error(err))
		return nil, err
	}
	return toSwapResponses(reqs), nil
}

func (s *swapService) ListReceived(ctx context.Context, orgID, userID string) ([]dto.SwapRequestResponse, error) {
	reqs, err := s.repo.SwapRequest.ListReceived(ctx, orgID, userID)
	if err != nil {
		s.logger.Error("查询收到的换班申请失败", zap.Error(err))
		return nil, err
	}
	return toSwapResponses(reqs), nil
}

func (s *swapService) ListSent(ctx context.Context, orgID, userID string) ([]dto.SwapRequestResponse, error) {
	reqs, err := s.repo.SwapRequest.ListSent(ctx, orgID, userID)
	if err != nil {
		s.logger.Error("查询发出的换班申请失败", zap.Error(err))
		return nil, err
	}
	return toSwapResponses(reqs), nil
}

// fail 并发中止转为 Conflict；存储错误记录日志
func (s *swapService) fail(msg string, err error) error {
	err = translateTxError(err)
	if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
		s.logger.Error(msg, zap.Error(err))
	}
	return err
}
