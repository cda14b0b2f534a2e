package services

import (
	"context"
	"io"
	"time"

	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
)

// ===== AUTH DTOs =====

type RegisterRequest struct {
	StudentID string `json:"student_id" validate:"required,min=4,max=32"`
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FullName  string `json:"full_name" validate:"required,min=2,max=100"`
}

// LoginRequest accepts a username, email or student id in Login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AuthResponse struct {
	User   *models.User `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

// ===== USER DTOs =====

type UpdateProfileRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=100"`
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,user_role"`
}

type SetFeePaidRequest struct {
	FeePaid bool `json:"fee_paid"`
}

type UserListResponse struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

// ===== UPLOAD DTOs =====

// Upload carries the file stream plus the metadata the client supplied
// about it. Size and ContentType come from the multipart header; the size
// is re-checked while copying.
type Upload struct {
	FileName    string
	Size        int64
	ContentType string
	Content     io.Reader
}

type CreateExamRequest struct {
	CourseCode string  `json:"course_code" validate:"required,course_code"`
	CourseName string  `json:"course_name" validate:"required,max=128"`
	Professor  *string `json:"professor" validate:"omitempty,max=64"`
	Year       int     `json:"year" validate:"required,gte=2000,lte=2100"`
	Semester   string  `json:"semester" validate:"required,semester"`
	ExamType   string  `json:"exam_type" validate:"required,exam_type"`
}

type UpdateExamRequest struct {
	CourseCode *string `json:"course_code" validate:"omitempty,course_code"`
	CourseName *string `json:"course_name" validate:"omitempty,max=128"`
	Professor  *string `json:"professor" validate:"omitempty,max=64"`
	Year       *int    `json:"year" validate:"omitempty,gte=2000,lte=2100"`
	Semester   *string `json:"semester" validate:"omitempty,semester"`
	ExamType   *string `json:"exam_type" validate:"omitempty,exam_type"`
}

type ExamResponse struct {
	*models.Exam
	Uploader  models.UploaderInfo `json:"uploader"`
	CanEdit   bool                `json:"can_edit"`
	CanDelete bool                `json:"can_delete"`
}

type ExamListResponse struct {
	Exams []*ExamResponse `json:"exams"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type CreateCheatSheetRequest struct {
	CourseCode  string   `json:"course_code" validate:"required,course_code"`
	CourseName  string   `json:"course_name" validate:"required,max=128"`
	Professor   *string  `json:"professor" validate:"omitempty,max=64"`
	Title       string   `json:"title" validate:"required,min=3,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=32"`
}

type UpdateCheatSheetRequest struct {
	CourseCode  *string  `json:"course_code" validate:"omitempty,course_code"`
	CourseName  *string  `json:"course_name" validate:"omitempty,max=128"`
	Professor   *string  `json:"professor" validate:"omitempty,max=64"`
	Title       *string  `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=32"`
}

type CheatSheetResponse struct {
	*models.CheatSheet
	Uploader  models.UploaderInfo `json:"uploader"`
	CanEdit   bool                `json:"can_edit"`
	CanDelete bool                `json:"can_delete"`
}

type CheatSheetListResponse struct {
	CheatSheets []*CheatSheetResponse `json:"cheat_sheets"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
}

// DownloadResult streams a stored file back to the handler. The handler
// closes Content after writing the response.
type DownloadResult struct {
	FileName string
	Size     int64
	Content  io.ReadCloser
}

// ===== REVIEW DTOs =====

type CreateReviewRequest struct {
	CourseCode string  `json:"course_code" validate:"required,course_code"`
	CourseName string  `json:"course_name" validate:"required,max=128"`
	Professor  string  `json:"professor" validate:"required,max=64"`
	Year       int     `json:"year" validate:"required,gte=2000,lte=2100"`
	Semester   string  `json:"semester" validate:"required,semester"`
	Overall    float64 `json:"overall" validate:"required,gte=1,lte=5"`
	Difficulty int     `json:"difficulty" validate:"required,gte=1,lte=5"`
	Workload   int     `json:"workload" validate:"required,gte=1,lte=5"`
	Usefulness int     `json:"usefulness" validate:"required,gte=1,lte=5"`
	Comment    string  `json:"comment" validate:"omitempty,max=2000"`
	Anonymous  bool    `json:"anonymous"`
}

type UpdateReviewRequest struct {
	Overall    *float64 `json:"overall" validate:"omitempty,gte=1,lte=5"`
	Difficulty *int     `json:"difficulty" validate:"omitempty,gte=1,lte=5"`
	Workload   *int     `json:"workload" validate:"omitempty,gte=1,lte=5"`
	Usefulness *int     `json:"usefulness" validate:"omitempty,gte=1,lte=5"`
	Comment    *string  `json:"comment" validate:"omitempty,max=2000"`
	Anonymous  *bool    `json:"anonymous"`
}

// ReviewResponse hides the author for anonymous reviews, except from the
// author themselves and admins.
type ReviewResponse struct {
	*models.CourseReview
	Author *models.UploaderInfo `json:"author,omitempty"`
}

type ReviewListResponse struct {
	Reviews []*ReviewResponse `json:"reviews"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
}

type CourseListResponse struct {
	Courses []models.Course `json:"courses"`
	Total   int64           `json:"total"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error)
	ChangePassword(ctx context.Context, userID uint, req ChangePasswordRequest) error
}

type UserService interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	List(ctx context.Context, actor *models.User, filters repositories.UserFilters) (*UserListResponse, error)
	UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*models.User, error)
	SetRole(ctx context.Context, actor *models.User, targetID uint, req SetRoleRequest) (*models.User, error)
	SetFeePaid(ctx context.Context, actor *models.User, targetID uint, req SetFeePaidRequest) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, targetID uint) error
}

type ExamService interface {
	Create(ctx context.Context, actor *models.User, req CreateExamRequest, upload Upload) (*ExamResponse, error)
	GetByID(ctx context.Context, actor *models.User, id uint) (*ExamResponse, error)
	List(ctx context.Context, actor *models.User, filters repositories.ExamFilters) (*ExamListResponse, error)
	Update(ctx context.Context, actor *models.User, id uint, req UpdateExamRequest) (*ExamResponse, error)
	ReplaceFile(ctx context.Context, actor *models.User, id uint, upload Upload) (*ExamResponse, error)
	Delete(ctx context.Context, actor *models.User, id uint) error
	Download(ctx context.Context, actor *models.User, id uint) (*DownloadResult, error)
	// Preview streams the file without bumping the download counter. The
	// paid-member gate applies the same as Download.
	Preview(ctx context.Context, actor *models.User, id uint) (*DownloadResult, error)
}

type CheatSheetService interface {
	Create(ctx context.Context, actor *models.User, req CreateCheatSheetRequest, upload Upload) (*CheatSheetResponse, error)
	GetByID(ctx context.Context, actor *models.User, id uint) (*CheatSheetResponse, error)
	List(ctx context.Context, actor *models.User, filters repositories.CheatSheetFilters) (*CheatSheetListResponse, error)
	Update(ctx context.Context, actor *models.User, id uint, req UpdateCheatSheetRequest) (*CheatSheetResponse, error)
	ReplaceFile(ctx context.Context, actor *models.User, id uint, upload Upload) (*CheatSheetResponse, error)
	Delete(ctx context.Context, actor *models.User, id uint) error
	Download(ctx context.Context, actor *models.User, id uint) (*DownloadResult, error)
	// Preview streams the file without bumping the download counter.
	Preview(ctx context.Context, actor *models.User, id uint) (*DownloadResult, error)
}

type ReviewService interface {
	Create(ctx context.Context, actor *models.User, req CreateReviewRequest) (*ReviewResponse, error)
	GetByID(ctx context.Context, actor *models.User, id uint) (*ReviewResponse, error)
	List(ctx context.Context, actor *models.User, filters repositories.ReviewFilters) (*ReviewListResponse, error)
	Update(ctx context.Context, actor *models.User, id uint, req UpdateReviewRequest) (*ReviewResponse, error)
	Delete(ctx context.Context, actor *models.User, id uint) error
	CourseStatistics(ctx context.Context, courseCode string) (*models.CourseStatistics, error)
	ListCourses(ctx context.Context, search string, limit, offset int) (*CourseListResponse, error)
}

// ReportService renders admin exports as XLSX workbooks.
type ReportService interface {
	UsersReport(ctx context.Context) (io.Reader, error)
	DownloadsReport(ctx context.Context) (io.Reader, error)
}

// ServiceManager aggregates the services handed to the handler layer.
type ServiceManager interface {
	Auth() AuthService
	User() UserService
	Exam() ExamService
	CheatSheet() CheatSheetService
	Review() ReviewService
	Report() ReportService
	HealthCheck(ctx context.Context) error
}
