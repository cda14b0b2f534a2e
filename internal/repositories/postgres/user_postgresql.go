package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
)

// UserPostgreSQL implements repositories.UserRepository.
type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) *UserPostgreSQL {
	return &UserPostgreSQL{db: db}
}

func (r *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *UserPostgreSQL) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *UserPostgreSQL) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *UserPostgreSQL) GetByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *UserPostgreSQL) List(ctx context.Context, filters repositories.UserFilters) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.FeePaid != nil {
		query = query.Where("fee_paid = ?", *filters.FeePaid)
	}
	query = applySearch(query, filters.Search, "username", "full_name", "email", "student_id")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	allowed := map[string]bool{
		"created_at": true,
		"username":   true,
		"full_name":  true,
		"role":       true,
		"id":         true,
	}
	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset, allowed)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return users, total, nil
}

func (r *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Save(user).Error)
}

func (r *UserPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// CountAdmins locks the admin rows while counting them. Inside a
// transaction this serializes concurrent demotions and deletions, so two
// of them cannot both observe a second admin and together remove the last
// one. FOR UPDATE cannot ride on an aggregate, hence the id fetch.
func (r *UserPostgreSQL) CountAdmins(ctx context.Context) (int64, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("role = ?", models.RoleAdmin).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, translateError(err)
	}
	return int64(len(ids)), nil
}
