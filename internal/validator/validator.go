package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/IMSA-2025/portal-service/internal/models"
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

// FieldErrors is the error returned for failed struct validation.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	if len(fe) == 1 {
		return fmt.Sprintf("validation failed: %s %s", fe[0].Field, fe[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(fe))
}

var courseCodeRe = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{3,4}$`)

// Validator wraps go-playground/validator with the portal's custom rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterValidation("semester", func(fl validator.FieldLevel) bool {
		switch models.Semester(fl.Field().String()) {
		case models.SemesterFirst, models.SemesterSecond, models.SemesterSummer:
			return true
		}
		return false
	})

	v.RegisterValidation("exam_type", func(fl validator.FieldLevel) bool {
		switch models.ExamType(fl.Field().String()) {
		case models.ExamMidterm, models.ExamFinal, models.ExamQuiz, models.ExamMakeup:
			return true
		}
		return false
	})

	v.RegisterValidation("course_code", func(fl validator.FieldLevel) bool {
		return courseCodeRe.MatchString(strings.ToUpper(fl.Field().String()))
	})

	v.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.ValidRole(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Validate validates a struct and returns FieldErrors on failure, nil
// otherwise.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors FieldErrors
	for _, fe := range err.(validator.ValidationErrors) {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return fieldErrors
}

func messageFor(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "email":
		return "must be a valid email address"
	case "semester":
		return "must be 1, 2 or summer"
	case "exam_type":
		return "must be midterm, final, quiz or makeup"
	case "course_code":
		return "must look like a course code (e.g. IM1001)"
	case "user_role":
		return "must be admin, member or user"
	case "gte":
		return fmt.Sprintf("must be %s or more", err.Param())
	case "lte":
		return fmt.Sprintf("must be %s or less", err.Param())
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
