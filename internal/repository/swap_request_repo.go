package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"shiftmate/backend/internal/model"
	pkgerrors "shiftmate/backend/pkg/errors"
)

// SwapRequestRepository 换班申请数据访问接口
type SwapRequestRepository interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	// GetByID 预加载双方班次与用户
	GetByID(ctx context.Context, id string) (*model.SwapRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error)
	// Update 乐观锁更新状态与目标用户：version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, req *model.SwapRequest) error
	Delete(ctx context.Context, id string) error
	// FindPendingByOfferingShift 查找以该班次为发起班次的待处理申请，无则返回 gorm.ErrRecordNotFound
	FindPendingByOfferingShift(ctx context.Context, shiftID string) (*model.SwapRequest, error)
	// ListAvailable 组织内待处理的公开挂单
	ListAvailable(ctx context.Context, orgID string) ([]model.SwapRequest, error)
	ListReceived(ctx context.Context, orgID, userID string) ([]model.SwapRequest, error)
	ListSent(ctx context.Context, orgID, userID string) ([]model.SwapRequest, error)
	// CancelPendingReferencing 将以发起或目标身份引用任一班次的待处理申请置为已取消，exceptID 除外
	CancelPendingReferencing(ctx context.Context, shiftIDs []string, exceptID string) (int64, error)
	// ListIDsReferencing 收集引用任一班次或任一用户（发起方/目标方）的申请 ID
	ListIDsReferencing(ctx context.Context, shiftIDs, userIDs []string) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

type swapRequestRepo struct {
	db *gorm.DB
}

// NewSwapRequestRepo 创建 SwapRequestRepository 实例
func NewSwapRequestRepo(db *gorm.DB) SwapRequestRepository {
	return &swapRequestRepo{db: db}
}

func (r *swapRequestRepo) Create(ctx context.Context, req *model.SwapRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *swapRequestRepo) GetByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := r.withDetails(r.db.WithContext(ctx)).
		Where("swap_request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *swapRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := forUpdate(r.db.WithContext(ctx)).
		Where("swap_request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *swapRequestRepo) Update(ctx context.Context, req *model.SwapRequest) error {
	result := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("swap_request_id = ? AND version = ?", req.SwapRequestID, req.Version).
		Updates(map[string]interface{}{
			"status":         req.Status,
			"target_user_id": req.TargetUserID,
			"version":        req.NextVersion(),
			"updated_at":     gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	req.Advance()
	return nil
}

func (r *swapRequestRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("swap_request_id = ?", id).
		Delete(&model.SwapRequest{}).Error
}

func (r *swapRequestRepo) FindPendingByOfferingShift(ctx context.Context, shiftID string) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := forUpdate(r.db.WithContext(ctx)).
		Where("shift_id = ? AND status = ?", shiftID, model.SwapStatusPending).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *swapRequestRepo) ListAvailable(ctx context.Context, orgID string) ([]model.SwapRequest, error) {
	var reqs []model.SwapRequest
	err := r.scoped(ctx, orgID).
		Where("swap_requests.status = ? AND swap_requests.target_shift_id IS NULL", model.SwapStatusPending).
		Order("swap_requests.created_at ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *swapRequestRepo) ListReceived(ctx context.Context, orgID, userID string) ([]model.SwapRequest, error) {
	var reqs []model.SwapRequest
	err := r.scoped(ctx, orgID).
		Where("swap_requests.status = ? AND swap_requests.target_user_id = ?", model.SwapStatusPending, userID).
		Order("swap_requests.created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *swapRequestRepo) ListSent(ctx context.Context, orgID, userID string) ([]model.SwapRequest, error) {
	var reqs []model.SwapRequest
	err := r.scoped(ctx, orgID).
		Where("swap_requests.status = ? AND swap_requests.requesting_user_id = ?", model.SwapStatusPending, userID).
		Order("swap_requests.created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *swapRequestRepo) CancelPendingReferencing(ctx context.Context, shiftIDs []string, exceptID string) (int64, error) {
	if len(shiftIDs) == 0 {
		return 0, nil
	}
	q := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("status = ? AND (shift_id IN ? OR target_shift_id IN ?)", model.SwapStatusPending, shiftIDs, shiftIDs)
	if exceptID != "" {
		q = q.Where("swap_request_id <> ?", exceptID)
	}
	result := q.Updates(map[string]interface{}{
		"status":     model.SwapStatusCancelled,
		"version":    gorm.Expr("version + 1"),
		"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
	})
	return result.RowsAffected, result.Error
}

func (r *swapRequestRepo) ListIDsReferencing(ctx context.Context, shiftIDs, userIDs []string) ([]string, error) {
	var (
		conds []string
		args  []interface{}
	)
	if len(shiftIDs) > 0 {
		conds = append(conds, "shift_id IN ? OR target_shift_id IN ?")
		args = append(args, shiftIDs, shiftIDs)
	}
	if len(userIDs) > 0 {
		conds = append(conds, "requesting_user_id IN ? OR target_user_id IN ?")
		args = append(args, userIDs, userIDs)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where(strings.Join(conds, " OR "), args...).
		Pluck("swap_request_id", &ids).Error
	return ids, err
}

func (r *swapRequestRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("swap_request_id IN ?", ids).
		Delete(&model.SwapRequest{}).Error
}

// ── 内部辅助 ──

func (r *swapRequestRepo) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Shift").
		Preload("TargetShift").
		Preload("RequestingUser").
		Preload("TargetUser")
}

// scoped 通过发起班次关联到组织，防止跨租户可见
func (r *swapRequestRepo) scoped(ctx context.Context, orgID string) *gorm.DB {
	return r.withDetails(r.db.WithContext(ctx)).
		Joins("JOIN shifts ON shifts.shift_id = swap_requests.shift_id").
		Where("shifts.organization_id = ?", orgID)
}
