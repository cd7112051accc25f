package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapf_MatchesSentinel(t *testing.T) {
	sentinel := New(KindConflict, "时间冲突")
	err := Wrapf(sentinel, "用户 %s 在该时段已有班次", "张三")

	if !errors.Is(err, sentinel) {
		t.Fatal("期望派生错误匹配哨兵")
	}
	if err.Error() != "用户 张三 在该时段已有班次" {
		t.Errorf("错误信息不符: %s", err.Error())
	}
	if KindOf(err) != KindConflict {
		t.Errorf("期望 KindConflict，实际=%s", KindOf(err))
	}
}

func TestWrapf_NestedKeepsRoot(t *testing.T) {
	sentinel := New(KindNotFound, "不存在")
	first := Wrapf(sentinel, "班次 %d 不存在", 1)
	second := Wrapf(first, "再次包装")

	if !errors.Is(second, sentinel) {
		t.Fatal("多次包装后仍应匹配原始哨兵")
	}
}

func TestIs_DifferentSentinels(t *testing.T) {
	a := New(KindConflict, "a")
	b := New(KindConflict, "a")
	if errors.Is(a, b) {
		t.Error("不同哨兵即使信息相同也不应相等")
	}
}

func TestKindOf_WrappedWithFmt(t *testing.T) {
	err := fmt.Errorf("外层: %w", ErrOptimisticLock)
	if KindOf(err) != KindConflict {
		t.Errorf("期望通过 %%w 包装后仍识别为 Conflict，实际=%s", KindOf(err))
	}
	if MessageOf(err) != ErrOptimisticLock.Message {
		t.Errorf("MessageOf 应返回业务信息，实际=%s", MessageOf(err))
	}
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("connection refused")
	if KindOf(err) != KindInternal {
		t.Errorf("普通错误应归类为 internal，实际=%s", KindOf(err))
	}
	if MessageOf(err) != "服务器内部错误" {
		t.Errorf("普通错误不应暴露原始信息，实际=%s", MessageOf(err))
	}
}
