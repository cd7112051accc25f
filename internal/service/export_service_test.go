package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func setupTestExportService() (*fixture, ExportService) {
	f := newFixture()
	return f, NewExportService(f.repo, testScheduleConfig(), zap.NewNop())
}

// ── ExportRoster 测试 ──

func TestExportService_ExportRoster_InvalidRange(t *testing.T) {
	f, svc := setupTestExportService()

	_, _, err := svc.ExportRoster(context.Background(), f.orgID, f.at(24), f.at(0))
	if !errors.Is(err, ErrExportRangeInvalid) {
		t.Errorf("期望 ErrExportRangeInvalid，实际: %v", err)
	}
	_, _, err = svc.ExportRoster(context.Background(), f.orgID, f.at(0), f.at(24*400))
	if !errors.Is(err, ErrExportRangeInvalid) {
		t.Errorf("超过一年应拒绝，实际: %v", err)
	}
}

func TestExportService_ExportRoster_Success(t *testing.T) {
	f, svc := setupTestExportService()
	alice := f.addUser("Alice")
	f.addShift(alice, 9, 17)
	f.addShift("", 33, 41)
	f.addShift(alice, 24*10, 24*10+8) // 超出导出范围

	buf, filename, err := svc.ExportRoster(context.Background(), f.orgID, f.at(0), f.at(24*7))
	if err != nil {
		t.Fatalf("ExportRoster 应成功: %v", err)
	}
	if !strings.HasPrefix(filename, "roster_") || !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名不符: %s", filename)
	}

	xf, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("生成的文件应可被解析: %v", err)
	}
	defer xf.Close()

	rows, err := xf.GetRows("排班表")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	// 标题 + 表头 + 2 个班次
	if len(rows) != 4 {
		t.Fatalf("期望 4 行，实际 %d", len(rows))
	}
	if rows[2][1] != "09:00" || rows[2][4] != "Alice Test" {
		t.Errorf("第一行数据不符: %v", rows[2])
	}
	if rows[3][4] != "未分配" {
		t.Errorf("未分配班次员工列应为“未分配”，实际: %v", rows[3])
	}
}

// ── ExportCalendar 测试 ──

func TestExportService_ExportCalendar(t *testing.T) {
	f, svc := setupTestExportService()
	alice := f.addUser("Alice")
	bob := f.addUser("Bob")
	mine := f.addShift(alice, 9, 17)
	f.addShift(bob, 33, 41)

	buf, filename, err := svc.ExportCalendar(context.Background(), f.orgID, alice)
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}
	if filename != "shifts.ics" {
		t.Errorf("文件名不符: %s", filename)
	}

	body := buf.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") {
		t.Fatal("应输出 iCalendar 格式")
	}
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 1 {
		t.Errorf("期望 1 个事件，实际 %d", n)
	}
	if !strings.Contains(body, mine+"@shiftmate") {
		t.Error("事件 UID 应包含班次 ID")
	}
	if !strings.Contains(body, f.at(9).Format("20060102T150405Z")) {
		t.Error("DTSTART 应为 UTC 时间")
	}
}
