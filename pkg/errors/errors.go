package errors

import (
	"errors"
	"fmt"
)

// Kind 业务错误分类，由传输层映射为具体状态码
type Kind int

const (
	// KindInternal 未分类错误（存储故障等），调用方视为通用失败
	KindInternal Kind = iota
	// KindNotFound 实体不存在，或跨组织访问（不暴露存在性）
	KindNotFound
	// KindForbidden 已认证但无权操作（非所有者、非目标用户）
	KindForbidden
	// KindConflict 状态前置条件不满足（非待处理、时间重叠、不可认领、重名）
	KindConflict
	// KindValidation 输入格式错误（结束早于开始、过去时间、必填为空）
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error 带分类的业务错误
type Error struct {
	Kind    Kind
	Message string
	// sentinel 指向派生来源，使 errors.Is(err, 哨兵) 成立
	sentinel *Error
}

// New 创建业务哨兵错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

// Is 派生错误与其哨兵视为同一错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.sentinel != nil && e.sentinel == t)
}

// Wrapf 基于哨兵生成带具体信息的错误，分类与哨兵一致
func Wrapf(sentinel *Error, format string, args ...interface{}) *Error {
	root := sentinel
	if sentinel.sentinel != nil {
		root = sentinel.sentinel
	}
	return &Error{
		Kind:     sentinel.Kind,
		Message:  fmt.Sprintf(format, args...),
		sentinel: root,
	}
}

// KindOf 提取错误分类；非业务错误返回 KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf 提取面向用户的错误信息
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "服务器内部错误"
}

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = New(KindConflict, "数据已被其他操作修改，请刷新后重试")

// ── 通用哨兵 ──

var (
	ErrNotFound   = New(KindNotFound, "资源不存在")
	ErrForbidden  = New(KindForbidden, "无权执行此操作")
	ErrConflict   = New(KindConflict, "操作与当前状态冲突")
	ErrValidation = New(KindValidation, "参数校验失败")
)
