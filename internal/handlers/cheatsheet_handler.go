package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/services"
	"github.com/IMSA-2025/portal-service/internal/utils"
)

type CheatSheetHandler struct {
	BaseHandler
	sheetService services.CheatSheetService
}

func NewCheatSheetHandler(sheetService services.CheatSheetService, logger utils.Logger) *CheatSheetHandler {
	return &CheatSheetHandler{
		BaseHandler:  NewBaseHandler(logger),
		sheetService: sheetService,
	}
}

// CreateCheatSheet accepts a multipart form: metadata fields plus a "file"
// part. Tags arrive as a comma-separated "tags" field.
func (h *CheatSheetHandler) CreateCheatSheet(c *gin.Context) {
	upload, file, ok := openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	req := services.CreateCheatSheetRequest{
		CourseCode: c.PostForm("course_code"),
		CourseName: c.PostForm("course_name"),
		Title:      c.PostForm("title"),
		Tags:       splitTags(c.PostForm("tags")),
	}
	if professor := strings.TrimSpace(c.PostForm("professor")); professor != "" {
		req.Professor = &professor
	}
	if description := strings.TrimSpace(c.PostForm("description")); description != "" {
		req.Description = &description
	}

	h.LogRequest(c, "uploading cheat sheet", "course_code", req.CourseCode, "file", upload.FileName)

	resp, err := h.sheetService.Create(c.Request.Context(), CurrentUser(c), req, upload)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *CheatSheetHandler) GetCheatSheet(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	resp, err := h.sheetService.GetByID(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CheatSheetHandler) ListCheatSheets(c *gin.Context) {
	resp, err := h.sheetService.List(c.Request.Context(), CurrentUser(c), sheetFiltersFromQuery(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CheatSheetHandler) UpdateCheatSheet(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateCheatSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.sheetService.Update(c.Request.Context(), CurrentUser(c), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReplaceCheatSheetFile swaps the stored file while keeping the record.
func (h *CheatSheetHandler) ReplaceCheatSheetFile(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	upload, file, ok := openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	resp, err := h.sheetService.ReplaceFile(c.Request.Context(), CurrentUser(c), id, upload)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CheatSheetHandler) DeleteCheatSheet(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.sheetService.Delete(c.Request.Context(), CurrentUser(c), id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Cheat sheet deleted"})
}

func (h *CheatSheetHandler) DownloadCheatSheet(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	result, err := h.sheetService.Download(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	defer result.Content.Close()

	streamFile(c, result)
}

// PreviewCheatSheet streams the file inline without counting a download.
func (h *CheatSheetHandler) PreviewCheatSheet(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	result, err := h.sheetService.Preview(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	defer result.Content.Close()

	c.DataFromReader(http.StatusOK, result.Size, "application/octet-stream", result.Content, map[string]string{
		"Content-Disposition": "inline",
	})
}

func sheetFiltersFromQuery(c *gin.Context) repositories.CheatSheetFilters {
	filters := repositories.CheatSheetFilters{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filters.Limit, filters.Offset = paginationFromQuery(c)

	if v := strings.TrimSpace(c.Query("course_code")); v != "" {
		filters.CourseCode = &v
	}
	if v := strings.ToLower(strings.TrimSpace(c.Query("tag"))); v != "" {
		filters.Tag = &v
	}
	if v := c.Query("uploader_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			uid := uint(id)
			filters.UploaderID = &uid
		}
	}
	return filters
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
