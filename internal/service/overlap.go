package service

import (
	"context"

	"shiftmate/backend/internal/model"
	"shiftmate/backend/internal/repository"
)

// ── 重叠检查 ──────────────────────────────────────────────
//
// 仅扫描 userID 名下的班次，半开区间比较：首尾相接不算重叠。
// excludeIDs 用于排除正在编辑的班次，或互换中双方让出的两个班次。
// 调用方必须传入事务内的 ShiftRepository，使读取与随后的写入处于同一事务。
// ─────────────────────────────────────────────────────────────

// HasOverlap 判断用户是否已持有与区间重叠的班次
func HasOverlap(ctx context.Context, shifts repository.ShiftRepository, userID string, iv model.Interval, excludeIDs ...string) (bool, error) {
	n, err := shifts.CountOverlapping(ctx, userID, iv, excludeIDs)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
