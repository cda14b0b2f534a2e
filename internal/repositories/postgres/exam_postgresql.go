package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
)

// ExamPostgreSQL implements repositories.ExamRepository.
type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) *ExamPostgreSQL {
	return &ExamPostgreSQL{db: db}
}

func (r *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	return translateError(r.db.WithContext(ctx).Create(exam).Error)
}

func (r *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := r.db.WithContext(ctx).
		Preload("Uploader").
		First(&exam, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &exam, nil
}

func (r *ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]models.Exam, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Exam{})

	if filters.CourseCode != nil {
		query = query.Where("course_code = ?", strings.ToUpper(*filters.CourseCode))
	}
	if filters.Professor != nil {
		query = query.Where("professor = ?", *filters.Professor)
	}
	if filters.Year != nil {
		query = query.Where("year = ?", *filters.Year)
	}
	if filters.Semester != nil {
		query = query.Where("semester = ?", *filters.Semester)
	}
	if filters.ExamType != nil {
		query = query.Where("exam_type = ?", *filters.ExamType)
	}
	if filters.UploaderID != nil {
		query = query.Where("uploader_id = ?", *filters.UploaderID)
	}
	query = applySearch(query, filters.Search, "course_code", "course_name", "professor")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	allowed := map[string]bool{
		"created_at":     true,
		"year":           true,
		"course_code":    true,
		"download_count": true,
		"id":             true,
	}
	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset, allowed)

	var exams []models.Exam
	if err := query.Preload("Uploader").Find(&exams).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return exams, total, nil
}

func (r *ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	return translateError(r.db.WithContext(ctx).Save(exam).Error)
}

func (r *ExamPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Exam{}, id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// IncrementDownloadCount bumps the counter in SQL. A read-modify-write
// through the struct would lose increments under concurrent downloads.
func (r *ExamPostgreSQL) IncrementDownloadCount(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ExamPostgreSQL) TopDownloaded(ctx context.Context, limit int) ([]models.Exam, error) {
	if limit <= 0 {
		limit = 10
	}
	var exams []models.Exam
	err := r.db.WithContext(ctx).
		Order("download_count DESC").
		Limit(limit).
		Find(&exams).Error
	if err != nil {
		return nil, translateError(err)
	}
	return exams, nil
}
