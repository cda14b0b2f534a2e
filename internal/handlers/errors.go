package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IMSA-2025/portal-service/internal/services"
	"github.com/IMSA-2025/portal-service/internal/validator"
)

// handleServiceError translates service-layer errors into HTTP responses.
// All handlers funnel failures through here so a given error always maps
// to the same status code.
func handleServiceError(c *gin.Context, err error) {
	var fieldErrors validator.FieldErrors
	if errors.As(err, &fieldErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: fieldErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message:         permissionError.Error(),
			RequiresPayment: permissionError.RequiresPayment,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{"rule": businessRuleError.Rule},
		})
		return
	}

	var storageError *services.StorageError
	if errors.As(err, &storageError) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "File storage failure",
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrExamNotFound),
		errors.Is(err, services.ErrCheatSheetNotFound),
		errors.Is(err, services.ErrReviewNotFound),
		errors.Is(err, services.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrFileMissing):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Stored file is missing"})

	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid credentials"})

	case errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Token expired"})

	case errors.Is(err, services.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid token"})

	case errors.Is(err, services.ErrDuplicateUsername),
		errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrDuplicateStudentID),
		errors.Is(err, services.ErrDuplicateReview):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrLastAdmin),
		errors.Is(err, services.ErrSelfDelete):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrFileTypeBlocked):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Message: err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
