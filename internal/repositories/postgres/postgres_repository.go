package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/IMSA-2025/portal-service/internal/cache"
	"github.com/IMSA-2025/portal-service/internal/repositories"
)

// PostgreSQLRepository implements the aggregate Repository interface.
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	user       repositories.UserRepository
	exam       repositories.ExamRepository
	cheatSheet repositories.CheatSheetRepository
	review     repositories.ReviewRepository
	course     repositories.CourseRepository
}

// RepositoryConfig holds the connections repositories are built from.
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewPostgreSQLRepository wires all entity repositories over one gorm DB.
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cache.NewCacheManager(config.RedisClient),
	}
	repo.initEntityRepos(config.DB)
	return repo
}

func (r *PostgreSQLRepository) initEntityRepos(db *gorm.DB) {
	r.user = NewUserPostgreSQL(db)
	r.exam = NewExamPostgreSQL(db)
	r.cheatSheet = NewCheatSheetPostgreSQL(db)
	r.review = NewReviewPostgreSQL(db)
	r.course = NewCoursePostgreSQL(db)
}

func (r *PostgreSQLRepository) User() repositories.UserRepository             { return r.user }
func (r *PostgreSQLRepository) Exam() repositories.ExamRepository             { return r.exam }
func (r *PostgreSQLRepository) CheatSheet() repositories.CheatSheetRepository { return r.cheatSheet }
func (r *PostgreSQLRepository) Review() repositories.ReviewRepository         { return r.review }
func (r *PostgreSQLRepository) Course() repositories.CourseRepository         { return r.course }

// WithTransaction executes fn inside one database transaction. Every
// repository reached through the callback's Repository runs on the
// transaction; returning an error rolls everything back.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
		}
		txRepo.initEntityRepos(tx)
		return fn(txRepo)
	})
}

// Ping checks database and cache connectivity.
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping: %w", err)
		}
	}
	return nil
}

// Close closes the database and cache connections.
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	return nil
}
