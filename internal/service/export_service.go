package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"shiftmate/backend/config"
	"shiftmate/backend/internal/repository"
	pkgerrors "shiftmate/backend/pkg/errors"
)

// 单次导出最长跨度
const maxExportRange = 366 * 24 * time.Hour

// ExportService 导出业务接口
//
// 设计说明：
//   - 排班表导出为 Excel (.xlsx)，一行一个班次，时间按排班时区展示
//   - 个人班次导出为 iCalendar (.ics)，时间保持 UTC
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportRoster 导出组织在 [from, to) 内开始的班次
	ExportRoster(ctx context.Context, orgID string, from, to time.Time) (*bytes.Buffer, string, error)
	// ExportCalendar 导出个人班次日历
	ExportCalendar(ctx context.Context, orgID, userID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, scheduleCfg config.ScheduleConfig, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: scheduleCfg.Location(), logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportRoster 导出排班表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "排班表"
//   - 第 1 行标题，第 2 行表头：日期 | 开始 | 结束 | 时长(小时) | 员工 | 邮箱 | 换班中
//   - 未分配班次员工列为“未分配”

func (s *exportService) ExportRoster(ctx context.Context, orgID string, from, to time.Time) (*bytes.Buffer, string, error) {
	if !to.After(from) || to.Sub(from) > maxExportRange {
		return nil, "", ErrExportRangeInvalid
	}

	shifts, err := s.repo.Shift.ListByOrganizationBetween(ctx, orgID, from.UTC(), to.UTC())
	if err != nil {
		s.logger.Error("查询导出班次失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "排班表"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", s.generateFailed(err)
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	widths := map[string]float64{"A": 12, "B": 8, "C": 8, "D": 12, "E": 20, "F": 28, "G": 10}
	for col, w := range widths {
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	title := fmt.Sprintf("排班表 %s ~ %s", from.In(s.loc).Format("2006-01-02"), to.In(s.loc).Format("2006-01-02"))
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", "G1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"日期", "开始", "结束", "时长(小时)", "员工", "邮箱", "换班中"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "G2", headerStyle)

	// 数据行
	row := 3
	for _, shift := range shifts {
		start := shift.StartTime.In(s.loc)
		end := shift.EndTime.In(s.loc)

		assignee, email := "未分配", ""
		if shift.User != nil {
			assignee = shift.User.FullName()
			email = shift.User.Email
		}
		listed := "否"
		if shift.IsUpForSwap {
			listed = "是"
		}

		values := []interface{}{
			start.Format("2006-01-02"),
			start.Format("15:04"),
			end.Format("15:04"),
			shift.Interval().Duration().Hours(),
			assignee,
			email,
			listed,
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", s.generateFailed(err)
	}

	filename := fmt.Sprintf("roster_%s_%s.xlsx", from.In(s.loc).Format("20060102"), to.In(s.loc).Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 个人班次日历
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, orgID, userID string) (*bytes.Buffer, string, error) {
	shifts, err := s.repo.Shift.ListByUser(ctx, orgID, userID)
	if err != nil {
		s.logger.Error("查询个人班次失败", zap.String("user_id", userID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//shiftmate//shifts//ZH")

	stamp := s.now().UTC()
	for _, shift := range shifts {
		event := cal.AddEvent(shift.ShiftID + "@shiftmate")
		event.SetDtStampTime(stamp)
		event.SetModifiedAt(shift.UpdatedAt.UTC())
		event.SetStartAt(shift.StartTime.UTC())
		event.SetEndAt(shift.EndTime.UTC())
		summary := "班次"
		if shift.IsUpForSwap {
			summary = "班次（换班中）"
		}
		event.SetSummary(summary)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, "shifts.ics", nil
}

// ── 辅助函数 ──

var errExportGenerate = pkgerrors.New(pkgerrors.KindInternal, "生成导出文件失败")

func (s *exportService) generateFailed(err error) error {
	s.logger.Error("生成 Excel 失败", zap.Error(err))
	return errExportGenerate
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
