package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftmate/backend/config"
	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/model"
	"shiftmate/backend/internal/repository"
	pkgerrors "shiftmate/backend/pkg/errors"
	"shiftmate/backend/pkg/metrics"
)

// ShiftService 班次业务接口（经理及以上调用写操作，权限由路由层校验）
type ShiftService interface {
	Create(ctx context.Context, orgID string, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error)
	CreateRecurring(ctx context.Context, orgID string, req *dto.CreateRecurringShiftRequest) ([]dto.ShiftResponse, error)
	GetByID(ctx context.Context, orgID, shiftID string) (*dto.ShiftResponse, error)
	Update(ctx context.Context, orgID, shiftID string, req *dto.UpdateShiftRequest) (*dto.ShiftResponse, error)
	Delete(ctx context.Context, orgID, shiftID string) error
	ListByOrganization(ctx context.Context, orgID string, onlyAssigned bool) ([]dto.ShiftResponse, error)
	ListClaimable(ctx context.Context, orgID string) ([]dto.ShiftResponse, error)
	ListByUser(ctx context.Context, orgID, userID string) ([]dto.ShiftResponse, error)
}

type shiftService struct {
	repo        *repository.Repository
	scheduleCfg config.ScheduleConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(repo *repository.Repository, scheduleCfg config.ScheduleConfig, logger *zap.Logger) ShiftService {
	return &shiftService{repo: repo, scheduleCfg: scheduleCfg, logger: logger, now: time.Now}
}

// validateInterval 结束晚于开始，且开始不早于当前时间
func (s *shiftService) validateInterval(start, end time.Time) (model.Interval, error) {
	iv := model.Interval{Start: start.UTC(), End: end.UTC()}
	if !iv.Valid() {
		return iv, ErrShiftInvalidInterval
	}
	if iv.Start.Before(s.now()) {
		return iv, ErrShiftStartInPast
	}
	return iv, nil
}

// ────────────────────── Create ──────────────────────

func (s *shiftService) Create(ctx context.Context, orgID string, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error) {
	iv, err := s.validateInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	shift := &model.Shift{
		OrganizationID: orgID,
		UserID:         req.UserID,
		StartTime:      iv.Start,
		EndTime:        iv.End,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if shift.UserID != nil {
			if err := s.checkAssignable(ctx, tx, orgID, *shift.UserID, iv, "create"); err != nil {
				return err
			}
		}
		return tx.Shift.Create(ctx, shift)
	})
	if err != nil {
		return nil, s.fail("创建班次失败", translateTxError(err))
	}

	s.logger.Info("班次已创建", zap.String("shift_id", shift.ShiftID), zap.String("organization_id", orgID))
	return toShiftResponse(shift), nil
}

// checkAssignable 锁定目标员工并做重叠检查
func (s *shiftService) checkAssignable(ctx context.Context, tx *repository.Repository, orgID, userID string, iv model.Interval, op string, excludeIDs ...string) error {
	if err := lockMembers(ctx, tx, orgID, ErrAssigneeNotFound, userID); err != nil {
		return err
	}
	overlap, err := HasOverlap(ctx, tx.Shift, userID, iv, excludeIDs...)
	if err != nil {
		return err
	}
	if overlap {
		metrics.OverlapConflict(op)
		return ErrShiftOverlap
	}
	return nil
}

// ────────────────────── CreateRecurring ──────────────────────
//
// RRULE 以首个班次开始时间为 DTSTART，在排班时区内展开，
// 每个实例时长与首个班次一致；全部校验通过后在同一事务内创建。

func (s *shiftService) CreateRecurring(ctx context.Context, orgID string, req *dto.CreateRecurringShiftRequest) ([]dto.ShiftResponse, error) {
	first, err := s.validateInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	starts, err := s.expandRecurrence(req.RRule, first.Start)
	if err != nil {
		return nil, err
	}

	duration := first.Duration()
	shifts := make([]*model.Shift, 0, len(starts))
	for _, start := range starts {
		shifts = append(shifts, &model.Shift{
			OrganizationID: orgID,
			UserID:         req.UserID,
			StartTime:      start.UTC(),
			EndTime:        start.UTC().Add(duration),
		})
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if req.UserID != nil {
			if err := lockMembers(ctx, tx, orgID, ErrAssigneeNotFound, *req.UserID); err != nil {
				return err
			}
			for i, shift := range shifts {
				overlap, err := HasOverlap(ctx, tx.Shift, *req.UserID, shift.Interval())
				if err != nil {
					return err
				}
				if overlap {
					metrics.OverlapConflict("create_recurring")
					return pkgerrors.Wrapf(ErrShiftOverlap, "第 %d 个班次（%s）与该员工已有班次重叠",
						i+1, shift.StartTime.In(s.scheduleCfg.Location()).Format("2006-01-02 15:04"))
				}
			}
		}
		return tx.Shift.BatchCreate(ctx, shifts)
	})
	if err != nil {
		return nil, s.fail("批量创建班次失败", translateTxError(err))
	}

	s.logger.Info("重复班次已创建",
		zap.String("organization_id", orgID),
		zap.Int("count", len(shifts)),
	)

	result := make([]dto.ShiftResponse, 0, len(shifts))
	for _, shift := range shifts {
		result = append(result, *toShiftResponse(shift))
	}
	return result, nil
}

// expandRecurrence 展开 RRULE；无终止条件或超过上限时拒绝
func (s *shiftService) expandRecurrence(rule string, dtstart time.Time) ([]time.Time, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrRecurrenceInvalid, "重复规则无效: %v", err)
	}

	limit := s.scheduleCfg.MaxRecurringOccurrences
	if opt.Count == 0 && opt.Until.IsZero() {
		return nil, pkgerrors.Wrapf(ErrRecurrenceInvalid, "重复规则必须包含 COUNT 或 UNTIL")
	}
	if opt.Count > limit {
		return nil, pkgerrors.Wrapf(ErrRecurrenceTooMany, "重复班次最多 %d 个", limit)
	}
	if opt.Count == 0 {
		// 仅有 UNTIL 时多取一个用于判断是否超限
		opt.Count = limit + 1
	}
	opt.Dtstart = dtstart.In(s.scheduleCfg.Location())

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrRecurrenceInvalid, "重复规则无效: %v", err)
	}
	starts := r.All()
	if len(starts) == 0 {
		return nil, pkgerrors.Wrapf(ErrRecurrenceInvalid, "重复规则未产生任何班次")
	}
	if len(starts) > limit {
		return nil, pkgerrors.Wrapf(ErrRecurrenceTooMany, "重复班次最多 %d 个", limit)
	}
	return starts, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *shiftService) GetByID(ctx context.Context, orgID, shiftID string) (*dto.ShiftResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}
	if shift.OrganizationID != orgID {
		return nil, ErrShiftNotFound
	}
	return toShiftResponse(shift), nil
}

// ────────────────────── Update ──────────────────────
//
// 整体替换时间与归属。归属变化时：
//   - 新员工需通过重叠检查（排除本班次）
//   - 撤下换班标记，并取消所有引用本班次的待处理申请

func (s *shiftService) Update(ctx context.Context, orgID, shiftID string, req *dto.UpdateShiftRequest) (*dto.ShiftResponse, error) {
	iv := model.Interval{Start: req.StartTime.UTC(), End: req.EndTime.UTC()}
	if !iv.Valid() {
		return nil, ErrShiftInvalidInterval
	}

	var shift *model.Shift
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		shift, err = lockShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}

		ownerChanged := !sameOwner(shift.UserID, req.UserID)
		if req.UserID != nil {
			if err := s.checkAssignable(ctx, tx, orgID, *req.UserID, iv, "update", shift.ShiftID); err != nil {
				return err
			}
		}

		shift.StartTime = iv.Start
		shift.EndTime = iv.End
		shift.UserID = req.UserID
		if ownerChanged {
			shift.IsUpForSwap = false
		}
		if err := tx.Shift.Update(ctx, shift); err != nil {
			return err
		}
		if ownerChanged {
			return supersedePending(ctx, tx, "", shift.ShiftID)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("更新班次失败", translateTxError(err))
	}

	return toShiftResponse(shift), nil
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ────────────────────── Delete ──────────────────────
//
// 同一事务内：待处理申请置为已取消 → 删除所有引用本班次的申请 → 删除班次

func (s *shiftService) Delete(ctx context.Context, orgID, shiftID string) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		shift, err := lockShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}
		if err := supersedePending(ctx, tx, "", shift.ShiftID); err != nil {
			return err
		}
		ids, err := tx.SwapRequest.ListIDsReferencing(ctx, []string{shift.ShiftID}, nil)
		if err != nil {
			return err
		}
		if err := tx.SwapRequest.DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		return tx.Shift.Delete(ctx, shift.ShiftID)
	})
	if err != nil {
		return s.fail("删除班次失败", translateTxError(err))
	}

	s.logger.Info("班次已删除", zap.String("shift_id", shiftID))
	return nil
}

// ────────────────────── 查询 ──────────────────────

func (s *shiftService) ListByOrganization(ctx context.Context, orgID string, onlyAssigned bool) ([]dto.ShiftResponse, error) {
	shifts, err := s.repo.Shift.ListByOrganization(ctx, orgID, onlyAssigned)
	if err != nil {
		s.logger.Error("查询组织班次失败", zap.Error(err))
		return nil, err
	}
	return toShiftResponses(shifts), nil
}

func (s *shiftService) ListClaimable(ctx context.Context, orgID string) ([]dto.ShiftResponse, error) {
	shifts, err := s.repo.Shift.ListClaimable(ctx, orgID)
	if err != nil {
		s.logger.Error("查询可认领班次失败", zap.Error(err))
		return nil, err
	}
	return toShiftResponses(shifts), nil
}

func (s *shiftService) ListByUser(ctx context.Context, orgID, userID string) ([]dto.ShiftResponse, error) {
	shifts, err := s.repo.Shift.ListByUser(ctx, orgID, userID)
	if err != nil {
		s.logger.Error("查询个人班次失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toShiftResponses(shifts), nil
}

// fail 业务错误原样返回；存储错误记录日志后返回
func (s *shiftService) fail(msg string, err error) error {
	if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
		s.logger.Error(msg, zap.Error(err))
	}
	return err
}
