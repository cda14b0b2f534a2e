package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer. Handlers translate these
// to HTTP status codes in one place.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrExamNotFound       = errors.New("exam not found")
	ErrCheatSheetNotFound = errors.New("cheat sheet not found")
	ErrReviewNotFound     = errors.New("review not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrFileMissing        = errors.New("stored file is missing")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")

	ErrDuplicateUsername  = errors.New("username already taken")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateStudentID = errors.New("student id already registered")
	ErrDuplicateReview    = errors.New("review already exists for this course offering")

	ErrLastAdmin       = errors.New("cannot remove the last admin")
	ErrSelfDelete      = errors.New("cannot delete own account")
	ErrFileTooLarge    = errors.New("file exceeds the size limit")
	ErrFileTypeBlocked = errors.New("file type not allowed")
)

// PermissionError is returned when the caller is authenticated but not
// allowed to perform the operation. RequiresPayment marks denials caused by
// the paid-member gate so the client can route to an upgrade prompt.
type PermissionError struct {
	Action          string
	RequiresPayment bool
}

func (e *PermissionError) Error() string {
	if e.RequiresPayment {
		return fmt.Sprintf("membership fee required to %s", e.Action)
	}
	return fmt.Sprintf("not allowed to %s", e.Action)
}

// NewPermissionError builds a plain permission denial.
func NewPermissionError(action string) *PermissionError {
	return &PermissionError{Action: action}
}

// NewPaymentRequiredError builds a paid-member gate denial.
func NewPaymentRequiredError(action string) *PermissionError {
	return &PermissionError{Action: action, RequiresPayment: true}
}

// BusinessRuleError is returned when an operation violates a domain rule
// that is neither a validation failure nor a permission problem.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

// StorageError wraps a file-store failure so handlers can distinguish
// storage trouble from database trouble.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
