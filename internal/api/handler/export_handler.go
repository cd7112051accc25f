package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Roster 导出组织排班表
// GET /api/v1/shifts/export?from=2025-03-01&to=2025-04-01
func (h *ExportHandler) Roster(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	var req dto.ShiftExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportRoster(c.Request.Context(), caller.OrganizationID, req.From, req.To)
	if err != nil {
		respondError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeXLSX)
}

// Calendar 导出个人班次日历
// GET /api/v1/shifts/my/calendar.ics
func (h *ExportHandler) Calendar(c *gin.Context) {
	caller, ok := MustGetMember(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), caller.OrganizationID, caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeICS)
}

// sendFile 设置下载响应头并写出文件
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
