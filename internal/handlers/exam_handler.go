package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/services"
	"github.com/IMSA-2025/portal-service/internal/utils"
)

type ExamHandler struct {
	BaseHandler
	examService services.ExamService
}

func NewExamHandler(examService services.ExamService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		examService: examService,
	}
}

// CreateExam accepts a multipart form: metadata fields plus a "file" part.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	upload, file, ok := openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	req := services.CreateExamRequest{
		CourseCode: c.PostForm("course_code"),
		CourseName: c.PostForm("course_name"),
		Year:       parseIntForm(c, "year"),
		Semester:   c.PostForm("semester"),
		ExamType:   c.PostForm("exam_type"),
	}
	if professor := strings.TrimSpace(c.PostForm("professor")); professor != "" {
		req.Professor = &professor
	}

	h.LogRequest(c, "uploading exam", "course_code", req.CourseCode, "file", upload.FileName)

	resp, err := h.examService.Create(c.Request.Context(), CurrentUser(c), req, upload)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ExamHandler) GetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	resp, err := h.examService.GetByID(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ExamHandler) ListExams(c *gin.Context) {
	resp, err := h.examService.List(c.Request.Context(), CurrentUser(c), examFiltersFromQuery(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.examService.Update(c.Request.Context(), CurrentUser(c), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReplaceExamFile swaps the stored file while keeping the record.
func (h *ExamHandler) ReplaceExamFile(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	upload, file, ok := openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	resp, err := h.examService.ReplaceFile(c.Request.Context(), CurrentUser(c), id, upload)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), CurrentUser(c), id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Exam deleted"})
}

// DownloadExam streams the file. Paid-member gating happens in the service
// so the counter and the guard stay together.
func (h *ExamHandler) DownloadExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	result, err := h.examService.Download(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	defer result.Content.Close()

	streamFile(c, result)
}

// PreviewExam streams the file inline without counting a download.
func (h *ExamHandler) PreviewExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	result, err := h.examService.Preview(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	defer result.Content.Close()

	c.DataFromReader(http.StatusOK, result.Size, "application/octet-stream", result.Content, map[string]string{
		"Content-Disposition": "inline",
	})
}

func examFiltersFromQuery(c *gin.Context) repositories.ExamFilters {
	filters := repositories.ExamFilters{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filters.Limit, filters.Offset = paginationFromQuery(c)

	if v := strings.TrimSpace(c.Query("course_code")); v != "" {
		filters.CourseCode = &v
	}
	if v := strings.TrimSpace(c.Query("professor")); v != "" {
		filters.Professor = &v
	}
	if v := c.Query("year"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			filters.Year = &year
		}
	}
	if v := c.Query("semester"); v != "" {
		semester := models.Semester(v)
		filters.Semester = &semester
	}
	if v := c.Query("exam_type"); v != "" {
		examType := models.ExamType(v)
		filters.ExamType = &examType
	}
	if v := c.Query("uploader_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			uid := uint(id)
			filters.UploaderID = &uid
		}
	}
	return filters
}

// openUpload extracts the "file" part of a multipart request. On failure it
// writes a 400 and returns ok=false.
func openUpload(c *gin.Context) (services.Upload, multipart.File, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "A file is required",
			Details: err.Error(),
		})
		return services.Upload{}, nil, false
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Uploaded file could not be read",
		})
		return services.Upload{}, nil, false
	}

	return services.Upload{
		FileName:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	}, file, true
}

func parseIntForm(c *gin.Context, name string) int {
	v, _ := strconv.Atoi(c.PostForm(name))
	return v
}

// streamFile writes a stored file to the response with an attachment
// disposition. The RFC 5987 filename* form carries non-ASCII names.
func streamFile(c *gin.Context, result *services.DownloadResult) {
	disposition := fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		asciiFallback(result.FileName), url.PathEscape(result.FileName))

	c.DataFromReader(http.StatusOK, result.Size, "application/octet-stream", result.Content, map[string]string{
		"Content-Disposition": disposition,
	})
}

func asciiFallback(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 128 && r != '"' && r != '\\' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
