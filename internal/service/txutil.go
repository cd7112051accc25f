package service

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"shiftmate/backend/internal/model"
	"shiftmate/backend/internal/repository"
	"shiftmate/backend/pkg/database"
	pkgerrors "shiftmate/backend/pkg/errors"
	"shiftmate/backend/pkg/metrics"
)

// ── 事务内加锁辅助 ──
//
// 加锁顺序：换班申请 → 班次（按 ID 升序）→ 用户（按 ID 升序）

// lockShift 锁定班次；不存在或跨组织一律返回 ErrShiftNotFound
func lockShift(ctx context.Context, tx *repository.Repository, orgID, shiftID string) (*model.Shift, error) {
	shift, err := tx.Shift.GetByIDForUpdate(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	if shift.OrganizationID != orgID {
		return nil, ErrShiftNotFound
	}
	return shift, nil
}

// lockShiftPair 按 ID 升序锁定两个班次，返回顺序与入参一致
func lockShiftPair(ctx context.Context, tx *repository.Repository, orgID, firstID, secondID string) (*model.Shift, *model.Shift, error) {
	ids := []string{firstID, secondID}
	sort.Strings(ids)

	locked := make(map[string]*model.Shift, 2)
	for _, id := range ids {
		shift, err := lockShift(ctx, tx, orgID, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = shift
	}
	return locked[firstID], locked[secondID], nil
}

// lockMembers 按 ID 升序锁定组织成员；不存在或跨组织返回 notFound
func lockMembers(ctx context.Context, tx *repository.Repository, orgID string, notFound *pkgerrors.Error, userIDs ...string) error {
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)

	var prev string
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		prev = id
		user, err := tx.User.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound
			}
			return err
		}
		if !user.BelongsTo(orgID) {
			return notFound
		}
	}
	return nil
}

// supersedePending 班次易主后，取消其余引用这些班次的待处理申请
func supersedePending(ctx context.Context, tx *repository.Repository, exceptID string, shiftIDs ...string) error {
	n, err := tx.SwapRequest.CancelPendingReferencing(ctx, shiftIDs, exceptID)
	if err != nil {
		return err
	}
	for i := int64(0); i < n; i++ {
		metrics.SwapTransition("superseded", string(model.SwapStatusCancelled))
	}
	return nil
}

// errConcurrentUpdate 死锁或序列化失败，由客户端重试
var errConcurrentUpdate = pkgerrors.Wrapf(pkgerrors.ErrConflict, "操作与其他请求并发冲突，请重试")

// translateTxError 将存储层的并发中止转换为 Conflict，其余错误原样返回
func translateTxError(err error) error {
	if err != nil && database.IsConcurrencyAbort(err) {
		return errConcurrentUpdate
	}
	return err
}
