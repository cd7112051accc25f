package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftmate/backend/config"
	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/model"
	"shiftmate/backend/internal/repository"
	pkgerrors "shiftmate/backend/pkg/errors"
	"shiftmate/backend/pkg/metrics"
)

// ClaimService 认领业务接口
type ClaimService interface {
	// Take 认领未分配或已挂出的班次
	Take(ctx context.Context, orgID, shiftID, userID string) (*dto.ShiftResponse, error)
	// CancelSwapListing 撤回自己挂出且尚未被接受的班次
	CancelSwapListing(ctx context.Context, orgID, shiftID, userID string) (*dto.ShiftResponse, error)
}

type claimService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewClaimService 创建 ClaimService 实例
func NewClaimService(repo *repository.Repository, scheduleCfg config.ScheduleConfig, logger *zap.Logger) ClaimService {
	return &claimService{repo: repo, loc: scheduleCfg.Location(), logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Take 认领班次
// ═══════════════════════════════════════════════════════════
//
// 校验顺序：
//  1. 班次存在且属于本组织
//  2. 班次可认领（未分配或已挂出），且不是自己的
//  3. 认领人存在且属于本组织（加行锁）
//  4. 同日互斥：认领人当天（排班时区）没有其他班次
//  5. 重叠检查：覆盖跨零点的班次
//
// 挂出中的班次被认领时，对应公开挂单记为已接受，接班人写入 target_user_id。

func (s *claimService) Take(ctx context.Context, orgID, shiftID, userID string) (*dto.ShiftResponse, error) {
	var shift *model.Shift
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		shift, err = lockShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}
		if !shift.IsClaimable() {
			return ErrShiftNotAvailable
		}
		if shift.IsOwnedBy(userID) {
			return ErrShiftAlreadyOwned
		}
		if err := lockMembers(ctx, tx, orgID, ErrUserNotFound, userID); err != nil {
			return err
		}

		dayStart, dayEnd := s.calendarDay(shift.StartTime)
		sameDay, err := tx.Shift.CountStartingBetween(ctx, userID, dayStart, dayEnd)
		if err != nil {
			return err
		}
		if sameDay > 0 {
			return pkgerrors.Wrapf(ErrShiftSameDay, "%s 当天已有班次，不能重复认领",
				shift.StartTime.In(s.loc).Format("2006-01-02"))
		}

		overlap, err := HasOverlap(ctx, tx.Shift, userID, shift.Interval())
		if err != nil {
			return err
		}
		if overlap {
			metrics.OverlapConflict("take")
			return ErrShiftOverlap
		}

		var listingID string
		if shift.IsUpForSwap {
			listing, err := tx.SwapRequest.FindPendingByOfferingShift(ctx, shift.ShiftID)
			switch {
			case err == nil:
				listing.Status = model.SwapStatusAccepted
				listing.TargetUserID = &userID
				if err := tx.SwapRequest.Update(ctx, listing); err != nil {
					return err
				}
				listingID = listing.SwapRequestID
				metrics.SwapTransition(listing.Flow(), string(model.SwapStatusAccepted))
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		shift.UserID = &userID
		shift.IsUpForSwap = false
		if err := tx.Shift.Update(ctx, shift); err != nil {
			return err
		}
		return supersedePending(ctx, tx, listingID, shift.ShiftID)
	})
	if err != nil {
		err = translateTxError(err)
		s.recordClaim(err)
		if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
			s.logger.Error("认领班次失败", zap.String("shift_id", shiftID), zap.Error(err))
		}
		return nil, err
	}

	s.recordClaim(nil)
	s.logger.Info("班次已被认领", zap.String("shift_id", shiftID), zap.String("user_id", userID))
	return toShiftResponse(shift), nil
}

// calendarDay 返回 t 在排班时区所在日历日的 [00:00, 次日 00:00)
func (s *claimService) calendarDay(t time.Time) (time.Time, time.Time) {
	local := t.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func (s *claimService) recordClaim(err error) {
	switch {
	case err == nil:
		metrics.ShiftClaim("success")
	case pkgerrors.KindOf(err) == pkgerrors.KindConflict:
		metrics.ShiftClaim("conflict")
	default:
		metrics.ShiftClaim("rejected")
	}
}

// ═══════════════════════════════════════════════════════════
// CancelSwapListing 撤回挂单
// ═══════════════════════════════════════════════════════════

func (s *claimService) CancelSwapListing(ctx context.Context, orgID, shiftID, userID string) (*dto.ShiftResponse, error) {
	var shift *model.Shift
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		shift, err = lockShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}
		if !shift.IsOwnedBy(userID) {
			return ErrShiftNotOwner
		}
		if !shift.IsUpForSwap {
			return ErrShiftNotListed
		}

		listing, err := tx.SwapRequest.FindPendingByOfferingShift(ctx, shift.ShiftID)
		switch {
		case err == nil:
			if err := tx.SwapRequest.Delete(ctx, listing.SwapRequestID); err != nil {
				return err
			}
			metrics.SwapTransition(listing.Flow(), string(model.SwapStatusCancelled))
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		shift.IsUpForSwap = false
		return tx.Shift.Update(ctx, shift)
	})
	if err != nil {
		err = translateTxError(err)
		if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
			s.logger.Error("撤回挂单失败", zap.String("shift_id", shiftID), zap.Error(err))
		}
		return nil, err
	}
	return toShiftResponse(shift), nil
}
