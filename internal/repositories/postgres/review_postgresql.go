package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
)

// ReviewPostgreSQL implements repositories.ReviewRepository.
type ReviewPostgreSQL struct {
	db *gorm.DB
}

func NewReviewPostgreSQL(db *gorm.DB) *ReviewPostgreSQL {
	return &ReviewPostgreSQL{db: db}
}

func (r *ReviewPostgreSQL) Create(ctx context.Context, review *models.CourseReview) error {
	return translateError(r.db.WithContext(ctx).Create(review).Error)
}

func (r *ReviewPostgreSQL) GetByID(ctx context.Context, id uint) (*models.CourseReview, error) {
	var review models.CourseReview
	err := r.db.WithContext(ctx).
		Preload("Author").
		First(&review, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &review, nil
}

func (r *ReviewPostgreSQL) GetByTuple(ctx context.Context, courseCode, professor string, year int, semester models.Semester, authorID uint) (*models.CourseReview, error) {
	var review models.CourseReview
	err := r.db.WithContext(ctx).
		Where("course_code = ? AND professor = ? AND year = ? AND semester = ? AND author_id = ?",
			strings.ToUpper(courseCode), professor, year, semester, authorID).
		First(&review).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &review, nil
}

func (r *ReviewPostgreSQL) List(ctx context.Context, filters repositories.ReviewFilters) ([]models.CourseReview, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CourseReview{})

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
	if filters.AuthorID != nil {
		query = query.Where("author_id = ?", *filters.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	allowed := map[string]bool{
		"created_at": true,
		"overall":    true,
		"year":       true,
		"id":         true,
	}
	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset, allowed)

	var reviews []models.CourseReview
	if err := query.Preload("Author").Find(&reviews).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return reviews, total, nil
}

func (r *ReviewPostgreSQL) Update(ctx context.Context, review *models.CourseReview) error {
	return translateError(r.db.WithContext(ctx).Save(review).Error)
}

func (r *ReviewPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.CourseReview{}, id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Statistics aggregates ratings for one course code in a single query.
func (r *ReviewPostgreSQL) Statistics(ctx context.Context, courseCode string) (*models.CourseStatistics, error) {
	courseCode = strings.ToUpper(courseCode)

	var stats models.CourseStatistics
	err := r.db.WithContext(ctx).
		Model(&models.CourseReview{}).
		Select(`
			COUNT(*) AS review_count,
			COALESCE(AVG(overall), 0) AS avg_overall,
			COALESCE(AVG(difficulty), 0) AS avg_difficulty,
			COALESCE(AVG(workload), 0) AS avg_workload,
			COALESCE(AVG(usefulness), 0) AS avg_usefulness`).
		Where("course_code = ?", courseCode).
		Scan(&stats).Error
	if err != nil {
		return nil, translateError(err)
	}

	stats.CourseCode = courseCode
	var name string
	r.db.WithContext(ctx).
		Model(&models.CourseReview{}).
		Where("course_code = ?", courseCode).
		Order("created_at DESC").
		Limit(1).
		Pluck("course_name", &name)
	stats.CourseName = name

	return &stats, nil
}
