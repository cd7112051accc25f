package service

import (
	pkgerrors "shiftmate/backend/pkg/errors"
)

// ── 班次模块业务错误 ──

var (
	ErrShiftNotFound        = pkgerrors.New(pkgerrors.KindNotFound, "班次不存在")
	ErrShiftInvalidInterval = pkgerrors.New(pkgerrors.KindValidation, "结束时间必须晚于开始时间")
	ErrShiftStartInPast     = pkgerrors.New(pkgerrors.KindValidation, "开始时间不能早于当前时间")
	ErrShiftOverlap         = pkgerrors.New(pkgerrors.KindConflict, "该员工在此时段已有班次")
	ErrShiftNotOwner        = pkgerrors.New(pkgerrors.KindForbidden, "只能操作自己的班次")
	ErrAssigneeNotFound     = pkgerrors.New(pkgerrors.KindNotFound, "指定的员工不存在")
	ErrRecurrenceInvalid    = pkgerrors.New(pkgerrors.KindValidation, "重复规则无效")
	ErrRecurrenceTooMany    = pkgerrors.New(pkgerrors.KindValidation, "重复班次数量超过上限")
	ErrExportRangeInvalid   = pkgerrors.New(pkgerrors.KindValidation, "导出时间范围无效")
)

// ── 认领模块业务错误 ──

var (
	ErrShiftNotAvailable = pkgerrors.New(pkgerrors.KindConflict, "班次不可认领")
	ErrShiftSameDay      = pkgerrors.New(pkgerrors.KindConflict, "当天已有班次，不能重复认领")
	ErrShiftAlreadyOwned = pkgerrors.New(pkgerrors.KindConflict, "不能认领自己的班次")
	ErrShiftNotListed    = pkgerrors.New(pkgerrors.KindConflict, "班次未挂出换班")
)

// ── 换班模块业务错误 ──

var (
	ErrSwapNotFound         = pkgerrors.New(pkgerrors.KindNotFound, "换班申请不存在")
	ErrSwapNotPending       = pkgerrors.New(pkgerrors.KindConflict, "换班申请已处理")
	ErrSwapAlreadyOffered   = pkgerrors.New(pkgerrors.KindConflict, "该班次已有待处理的换班申请")
	ErrSwapNotOpen          = pkgerrors.New(pkgerrors.KindConflict, "该申请不是公开挂单")
	ErrSwapNotDirect        = pkgerrors.New(pkgerrors.KindConflict, "该申请不是定向互换")
	ErrSwapStale            = pkgerrors.New(pkgerrors.KindConflict, "班次归属已变化，申请失效")
	ErrSwapCollision        = pkgerrors.New(pkgerrors.KindConflict, "换班后将出现时间重叠")
	ErrSwapNotRequester     = pkgerrors.New(pkgerrors.KindForbidden, "只有发起人可以取消申请")
	ErrSwapNotTarget        = pkgerrors.New(pkgerrors.KindForbidden, "只有被邀请人可以处理该申请")
	ErrSwapOwnListing       = pkgerrors.New(pkgerrors.KindForbidden, "不能接受自己的挂单")
	ErrSwapSelfTarget       = pkgerrors.New(pkgerrors.KindValidation, "不能与自己互换班次")
	ErrSwapSameShift        = pkgerrors.New(pkgerrors.KindValidation, "不能与同一班次互换")
	ErrSwapTargetUnassigned = pkgerrors.New(pkgerrors.KindValidation, "目标班次未分配，无法互换")
)

// ── 组织模块业务错误 ──

var (
	ErrOrgNotFound     = pkgerrors.New(pkgerrors.KindNotFound, "组织不存在")
	ErrOrgNameRequired = pkgerrors.New(pkgerrors.KindValidation, "组织名称不能为空")
	ErrOrgNameTooLong  = pkgerrors.New(pkgerrors.KindValidation, "组织名称不能超过 100 个字符")
	ErrOrgNameExists   = pkgerrors.New(pkgerrors.KindConflict, "组织名称已存在")
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound       = pkgerrors.New(pkgerrors.KindNotFound, "用户不存在")
	ErrEmailExists        = pkgerrors.New(pkgerrors.KindConflict, "邮箱已被使用")
	ErrPasswordTooShort   = pkgerrors.New(pkgerrors.KindValidation, "密码长度不能少于 8 位")
	ErrNameRequired       = pkgerrors.New(pkgerrors.KindValidation, "姓名不能为空")
	ErrUserOrgRequired    = pkgerrors.New(pkgerrors.KindValidation, "非超级管理员必须属于某个组织")
	ErrUserSelfRoleChange = pkgerrors.New(pkgerrors.KindForbidden, "不能修改自己的角色")
	ErrUserSelfDelete     = pkgerrors.New(pkgerrors.KindForbidden, "不能删除自己")
	ErrRoleNotGrantable   = pkgerrors.New(pkgerrors.KindForbidden, "无权授予该角色")
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = pkgerrors.New(pkgerrors.KindValidation, "邮箱或密码错误")
	ErrResetTokenInvalid  = pkgerrors.New(pkgerrors.KindValidation, "重置令牌无效或已过期")
)
