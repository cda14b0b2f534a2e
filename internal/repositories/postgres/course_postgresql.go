package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IMSA-2025/portal-service/internal/models"
)

// CoursePostgreSQL implements repositories.CourseRepository.
type CoursePostgreSQL struct {
	db *gorm.DB
}

func NewCoursePostgreSQL(db *gorm.DB) *CoursePostgreSQL {
	return &CoursePostgreSQL{db: db}
}

// Upsert inserts the course or refreshes its name if the code exists.
func (r *CoursePostgreSQL) Upsert(ctx context.Context, course *models.Course) error {
	course.Code = strings.ToUpper(course.Code)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(course).Error
	return translateError(err)
}

func (r *CoursePostgreSQL) GetByCode(ctx context.Context, code string) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&course).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &course, nil
}

func (r *CoursePostgreSQL) List(ctx context.Context, search string, limit, offset int) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{})
	query = applySearch(query, search, "code", "name")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query = query.Order("code ASC").Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}

	var courses []models.Course
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return courses, total, nil
}
