// Package repositories defines the persistence interfaces the service
// layer depends on. Implementations live in subpackages (postgres).
package repositories

import (
	"context"
	"errors"

	"github.com/IMSA-2025/portal-service/internal/models"
)

// ErrNotFound is returned by Get operations when no row matches.
// Implementations translate their driver's not-found error to this one so
// callers never import the driver.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert or update violates a unique
// constraint.
var ErrDuplicate = errors.New("duplicate record")

// UserFilters narrows user listings.
type UserFilters struct {
	Role      *models.UserRole
	FeePaid   *bool
	Search    string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// ExamFilters narrows exam listings.
type ExamFilters struct {
	CourseCode *string
	Professor  *string
	Year       *int
	Semester   *models.Semester
	ExamType   *models.ExamType
	UploaderID *uint
	Search     string
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

// CheatSheetFilters narrows cheat-sheet listings. Cheat sheets carry no
// offering fields, so unlike exams there is no year or semester filter.
type CheatSheetFilters struct {
	CourseCode *string
	Tag        *string
	UploaderID *uint
	Search     string
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

// ReviewFilters narrows review listings.
type ReviewFilters struct {
	CourseCode *string
	Professor  *string
	Year       *int
	Semester   *models.Semester
	AuthorID   *uint
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByStudentID(ctx context.Context, studentID string) (*models.User, error)
	List(ctx context.Context, filters UserFilters) ([]models.User, int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	CountAdmins(ctx context.Context) (int64, error)
}

// ExamRepository persists exam records.
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	List(ctx context.Context, filters ExamFilters) ([]models.Exam, int64, error)
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id uint) error
	// IncrementDownloadCount bumps the counter atomically in SQL so
	// concurrent downloads never lose increments.
	IncrementDownloadCount(ctx context.Context, id uint) error
	TopDownloaded(ctx context.Context, limit int) ([]models.Exam, error)
}

// CheatSheetRepository persists cheat-sheet records.
type CheatSheetRepository interface {
	Create(ctx context.Context, sheet *models.CheatSheet) error
	GetByID(ctx context.Context, id uint) (*models.CheatSheet, error)
	List(ctx context.Context, filters CheatSheetFilters) ([]models.CheatSheet, int64, error)
	Update(ctx context.Context, sheet *models.CheatSheet) error
	Delete(ctx context.Context, id uint) error
	IncrementDownloadCount(ctx context.Context, id uint) error
	TopDownloaded(ctx context.Context, limit int) ([]models.CheatSheet, error)
}

// ReviewRepository persists course reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.CourseReview) error
	GetByID(ctx context.Context, id uint) (*models.CourseReview, error)
	// GetByTuple looks up the review identified by the uniqueness tuple.
	GetByTuple(ctx context.Context, courseCode, professor string, year int, semester models.Semester, authorID uint) (*models.CourseReview, error)
	List(ctx context.Context, filters ReviewFilters) ([]models.CourseReview, int64, error)
	Update(ctx context.Context, review *models.CourseReview) error
	Delete(ctx context.Context, id uint) error
	Statistics(ctx context.Context, courseCode string) (*models.CourseStatistics, error)
}

// CourseRepository persists the course catalog derived from uploads and
// reviews.
type CourseRepository interface {
	Upsert(ctx context.Context, course *models.Course) error
	GetByCode(ctx context.Context, code string) (*models.Course, error)
	List(ctx context.Context, search string, limit, offset int) ([]models.Course, int64, error)
}

// Repository aggregates entity repositories and transaction control. The
// Repository passed to a WithTransaction callback runs every operation in
// that transaction.
type Repository interface {
	User() UserRepository
	Exam() ExamRepository
	CheatSheet() CheatSheetRepository
	Review() ReviewRepository
	Course() CourseRepository

	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
