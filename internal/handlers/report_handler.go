package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IMSA-2025/portal-service/internal/services"
	"github.com/IMSA-2025/portal-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// UsersReport serves the admin user export as an XLSX attachment.
func (h *ReportHandler) UsersReport(c *gin.Context) {
	report, err := h.reportService.UsersReport(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.serveWorkbook(c, report, "users")
}

// DownloadsReport serves the download statistics export.
func (h *ReportHandler) DownloadsReport(c *gin.Context) {
	report, err := h.reportService.DownloadsReport(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.serveWorkbook(c, report, "downloads")
}

func (h *ReportHandler) serveWorkbook(c *gin.Context, report io.Reader, name string) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, report); err != nil {
		h.LogError(c, "report write failed", err)
	}
}
