package services

import (
	"context"
	"log/slog"

	"github.com/IMSA-2025/portal-service/internal/auth"
	"github.com/IMSA-2025/portal-service/internal/cache"
	"github.com/IMSA-2025/portal-service/internal/config"
	"github.com/IMSA-2025/portal-service/internal/events"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/storage"
	"github.com/IMSA-2025/portal-service/internal/validator"
)

// ServiceManagerConfig bundles the dependencies every service is built from.
type ServiceManagerConfig struct {
	Repo      repositories.Repository
	Store     storage.FileStore
	Tokens    *auth.TokenService
	Publisher events.Publisher
	Cache     *cache.CacheManager
	Upload    config.UploadConfig
	Logger    *slog.Logger
	Validator *validator.Validator
}

type serviceManager struct {
	repo repositories.Repository

	authService       AuthService
	userService       UserService
	examService       ExamService
	cheatSheetService CheatSheetService
	reviewService     ReviewService
	reportService     ReportService
}

// NewServiceManager wires all services over shared dependencies.
func NewServiceManager(cfg ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repo:              cfg.Repo,
		authService:       NewAuthService(cfg.Repo, cfg.Tokens, cfg.Logger, cfg.Validator),
		userService:       NewUserService(cfg.Repo, cfg.Publisher, cfg.Cache, cfg.Logger, cfg.Validator),
		examService:       NewExamService(cfg.Repo, cfg.Store, cfg.Publisher, cfg.Cache, cfg.Upload, cfg.Logger, cfg.Validator),
		cheatSheetService: NewCheatSheetService(cfg.Repo, cfg.Store, cfg.Publisher, cfg.Cache, cfg.Upload, cfg.Logger, cfg.Validator),
		reviewService:     NewReviewService(cfg.Repo, cfg.Cache, cfg.Logger, cfg.Validator),
		reportService:     NewReportService(cfg.Repo, cfg.Logger),
	}
}

func (sm *serviceManager) Auth() AuthService             { return sm.authService }
func (sm *serviceManager) User() UserService             { return sm.userService }
func (sm *serviceManager) Exam() ExamService             { return sm.examService }
func (sm *serviceManager) CheatSheet() CheatSheetService { return sm.cheatSheetService }
func (sm *serviceManager) Review() ReviewService         { return sm.reviewService }
func (sm *serviceManager) Report() ReportService         { return sm.reportService }

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	return sm.repo.Ping(ctx)
}
