package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/services"
	"github.com/IMSA-2025/portal-service/internal/utils"
)

type ReviewHandler struct {
	BaseHandler
	reviewService services.ReviewService
}

func NewReviewHandler(reviewService services.ReviewService, logger utils.Logger) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler:   NewBaseHandler(logger),
		reviewService: reviewService,
	}
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var req services.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.reviewService.Create(c.Request.Context(), CurrentUser(c), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ReviewHandler) GetReview(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	resp, err := h.reviewService.GetByID(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) ListReviews(c *gin.Context) {
	resp, err := h.reviewService.List(c.Request.Context(), CurrentUser(c), reviewFiltersFromQuery(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.reviewService.Update(c.Request.Context(), CurrentUser(c), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.reviewService.Delete(c.Request.Context(), CurrentUser(c), id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Review deleted"})
}

// GetCourseStatistics returns aggregated review ratings for a course.
func (h *ReviewHandler) GetCourseStatistics(c *gin.Context) {
	courseCode := strings.TrimSpace(c.Param("code"))
	if courseCode == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid course code"})
		return
	}

	stats, err := h.reviewService.CourseStatistics(c.Request.Context(), courseCode)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *ReviewHandler) ListCourses(c *gin.Context) {
	limit, offset := paginationFromQuery(c)
	resp, err := h.reviewService.ListCourses(c.Request.Context(), c.Query("search"), limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func reviewFiltersFromQuery(c *gin.Context) repositories.ReviewFilters {
	filters := repositories.ReviewFilters{
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
	if v := c.Query("author_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			uid := uint(id)
			filters.AuthorID = &uid
		}
	}
	return filters
}
