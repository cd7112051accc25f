package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shiftmate/backend/internal/model"
	pkgerrors "shiftmate/backend/pkg/errors"
)

// ShiftRepository 班次数据访问接口
// 所有查询均带 organization_id 条件，由调用方传入当前身份所属组织
type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	BatchCreate(ctx context.Context, shifts []*model.Shift) error
	GetByID(ctx context.Context, id string) (*model.Shift, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Shift, error)
	ListByOrganization(ctx context.Context, orgID string, onlyAssigned bool) ([]model.Shift, error)
	// ListClaimable 未分配或已挂到换班市场的班次
	ListClaimable(ctx context.Context, orgID string) ([]model.Shift, error)
	ListByUser(ctx context.Context, orgID, userID string) ([]model.Shift, error)
	// ListByOrganizationBetween 开始时间落在 [from, to) 的班次，导出使用
	ListByOrganizationBetween(ctx context.Context, orgID string, from, to time.Time) ([]model.Shift, error)
	// CountOverlapping 统计用户名下与区间重叠的班次数，excludeIDs 中的班次不参与比较
	CountOverlapping(ctx context.Context, userID string, iv model.Interval, excludeIDs []string) (int64, error)
	// CountStartingBetween 统计用户名下开始时间落在 [from, to) 的班次数
	CountStartingBetween(ctx context.Context, userID string, from, to time.Time) (int64, error)
	// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, shift *model.Shift) error
	Delete(ctx context.Context, id string) error
	ListIDsByOrganization(ctx context.Context, orgID string) ([]string, error)
	ListIDsByUser(ctx context.Context, userID string) ([]string, error)
	// UnassignByUser 将用户名下所有班次置为未分配并撤下换班标记
	UnassignByUser(ctx context.Context, userID string) error
	DeleteByIDs(ctx context.Context, ids []string) error
}

type shiftRepo struct {
	db *gorm.DB
}

// NewShiftRepo 创建 ShiftRepository 实例
func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *shiftRepo) BatchCreate(ctx context.Context, shifts []*model.Shift) error {
	if len(shifts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(shifts, 100).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := forUpdate(r.db.WithContext(ctx)).
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) ListByOrganization(ctx context.Context, orgID string, onlyAssigned bool) ([]model.Shift, error) {
	var shifts []model.Shift
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", orgID)
	if onlyAssigned {
		q = q.Where("user_id IS NOT NULL")
	}
	err := q.Order("start_time ASC").Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) ListClaimable(ctx context.Context, orgID string) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ? AND (is_up_for_swap = ? OR user_id IS NULL)", orgID, true).
		Order("start_time ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) ListByUser(ctx context.Context, orgID, userID string) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Order("start_time ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) ListByOrganizationBetween(ctx context.Context, orgID string, from, to time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ? AND start_time >= ? AND start_time < ?", orgID, from, to).
		Order("start_time ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) CountOverlapping(ctx context.Context, userID string, iv model.Interval, excludeIDs []string) (int64, error) {
	var n int64
	// 半开区间：existing.start < candidate.end AND existing.end > candidate.start
	q := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("user_id = ? AND start_time < ? AND end_time > ?", userID, iv.End, iv.Start)
	if len(excludeIDs) > 0 {
		q = q.Where("shift_id NOT IN ?", excludeIDs)
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *shiftRepo) CountStartingBetween(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from, to).
		Count(&n).Error
	return n, err
}

func (r *shiftRepo) Update(ctx context.Context, shift *model.Shift) error {
	result := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("shift_id = ? AND version = ?", shift.ShiftID, shift.Version).
		Updates(map[string]interface{}{
			"user_id":        shift.UserID,
			"start_time":     shift.StartTime,
			"end_time":       shift.EndTime,
			"is_up_for_swap": shift.IsUpForSwap,
			"version":        shift.NextVersion(),
			"updated_at":     gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	shift.Advance()
	return nil
}

func (r *shiftRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("shift_id = ?", id).
		Delete(&model.Shift{}).Error
}

func (r *shiftRepo) ListIDsByOrganization(ctx context.Context, orgID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("organization_id = ?", orgID).
		Pluck("shift_id", &ids).Error
	return ids, err
}

func (r *shiftRepo) ListIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("user_id = ?", userID).
		Pluck("shift_id", &ids).Error
	return ids, err
}

func (r *shiftRepo) UnassignByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Shift{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"user_id":        gorm.Expr("NULL"),
			"is_up_for_swap": false,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *shiftRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("shift_id IN ?", ids).
		Delete(&model.Shift{}).Error
}
