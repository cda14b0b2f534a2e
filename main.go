package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/IMSA-2025/portal-service/internal/auth"
	"github.com/IMSA-2025/portal-service/internal/cache"
	"github.com/IMSA-2025/portal-service/internal/config"
	"github.com/IMSA-2025/portal-service/internal/events"
	"github.com/IMSA-2025/portal-service/internal/handlers"
	"github.com/IMSA-2025/portal-service/internal/repositories/postgres"
	"github.com/IMSA-2025/portal-service/internal/services"
	"github.com/IMSA-2025/portal-service/internal/storage"
	"github.com/IMSA-2025/portal-service/internal/utils"
	"github.com/IMSA-2025/portal-service/internal/validator"
	"github.com/IMSA-2025/portal-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis: %v", err)
		}
	}

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})

	store, err := storage.NewLocalStore(cfg.Upload.RootDir, cfg.Upload.TempDir)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	var publisher events.Publisher
	if len(cfg.Events.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize Kafka publisher: %v", err)
		}
	} else {
		publisher = events.NewGoChannelPublisher(cfg.Events.Topic, slogLogger)
	}

	tokens := auth.NewTokenService(cfg.JWT)
	v := validator.New()

	serviceManager := services.NewServiceManager(services.ServiceManagerConfig{
		Repo:      repo,
		Store:     store,
		Tokens:    tokens,
		Publisher: publisher,
		Cache:     cache.NewCacheManager(redisClient),
		Upload:    cfg.Upload,
		Logger:    slogLogger,
		Validator: v,
	})

	cleanup := services.NewCleanupService(store, cfg.Sweep, slogLogger)
	cleanup.Start(context.Background())

	handlerManager := handlers.NewHandlerManager(serviceManager, tokens, repo.User(), logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	cleanup.Stop()

	if err := publisher.Close(); err != nil {
		log.Printf("Failed to close event publisher: %v", err)
	}

	if err := repo.Close(); err != nil {
		log.Printf("Failed to close repositories: %v", err)
	}

	logger.Info("Server exited")
}
