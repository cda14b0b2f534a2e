package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
)

// CheatSheetPostgreSQL implements repositories.CheatSheetRepository.
type CheatSheetPostgreSQL struct {
	db *gorm.DB
}

func NewCheatSheetPostgreSQL(db *gorm.DB) *CheatSheetPostgreSQL {
	return &CheatSheetPostgreSQL{db: db}
}

func (r *CheatSheetPostgreSQL) Create(ctx context.Context, sheet *models.CheatSheet) error {
	return translateError(r.db.WithContext(ctx).Create(sheet).Error)
}

func (r *CheatSheetPostgreSQL) GetByID(ctx context.Context, id uint) (*models.CheatSheet, error) {
	var sheet models.CheatSheet
	err := r.db.WithContext(ctx).
		Preload("Uploader").
		First(&sheet, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &sheet, nil
}

func (r *CheatSheetPostgreSQL) List(ctx context.Context, filters repositories.CheatSheetFilters) ([]models.CheatSheet, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CheatSheet{})

	if filters.CourseCode != nil {
		query = query.Where("course_code = ?", strings.ToUpper(*filters.CourseCode))
	}
	if filters.UploaderID != nil {
		query = query.Where("uploader_id = ?", *filters.UploaderID)
	}
	if filters.Tag != nil {
		// Tags is a jsonb array; containment matches a single tag exactly.
		needle, err := json.Marshal([]string{*filters.Tag})
		if err == nil {
			query = query.Where("tags @> ?", string(needle))
		}
	}
	query = applySearch(query, filters.Search, "title", "description", "course_code")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	allowed := map[string]bool{
		"created_at":     true,
		"title":          true,
		"course_code":    true,
		"download_count": true,
		"id":             true,
	}
	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset, allowed)

	var sheets []models.CheatSheet
	if err := query.Preload("Uploader").Find(&sheets).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return sheets, total, nil
}

func (r *CheatSheetPostgreSQL) Update(ctx context.Context, sheet *models.CheatSheet) error {
	return translateError(r.db.WithContext(ctx).Save(sheet).Error)
}

func (r *CheatSheetPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.CheatSheet{}, id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *CheatSheetPostgreSQL) IncrementDownloadCount(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.CheatSheet{}).
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

func (r *CheatSheetPostgreSQL) TopDownloaded(ctx context.Context, limit int) ([]models.CheatSheet, error) {
	if limit <= 0 {
		limit = 10
	}
	var sheets []models.CheatSheet
	err := r.db.WithContext(ctx).
		Order("download_count DESC").
		Limit(limit).
		Find(&sheets).Error
	if err != nil {
		return nil, translateError(err)
	}
	return sheets, nil
}
