package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IMSA-2025/portal-service/internal/auth"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/services"
	"github.com/IMSA-2025/portal-service/internal/utils"
)

type HandlerManager struct {
	authHandler    *AuthHandler
	userHandler    *UserHandler
	examHandler    *ExamHandler
	sheetHandler   *CheatSheetHandler
	reviewHandler  *ReviewHandler
	reportHandler  *ReportHandler
	authMiddleware *AuthMiddleware
	serviceManager services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	tokens *auth.TokenService,
	userRepo repositories.UserRepository,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:    NewAuthHandler(serviceManager.Auth(), logger),
		userHandler:    NewUserHandler(serviceManager.User(), logger),
		examHandler:    NewExamHandler(serviceManager.Exam(), logger),
		sheetHandler:   NewCheatSheetHandler(serviceManager.CheatSheet(), logger),
		reviewHandler:  NewReviewHandler(serviceManager.Review(), logger),
		reportHandler:  NewReportHandler(serviceManager.Report(), logger),
		authMiddleware: NewAuthMiddleware(tokens, userRepo),
		serviceManager: serviceManager,
	}
}

// SetupRoutes registers all API routes. Download and preview routes accept
// the token as a query parameter as well as the Authorization header; every
// other route takes the header only.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Public authentication routes.
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", hm.authHandler.Register)
		authRoutes.POST("/login", hm.authHandler.Login)
		authRoutes.POST("/refresh", hm.authHandler.Refresh)
		authRoutes.POST("/change-password", hm.authMiddleware.Authenticate(), hm.authHandler.ChangePassword)
	}

	// Browsing is public. A token, when supplied, still resolves the
	// account so listings can mark what the caller may edit.
	browse := v1.Group("")
	browse.Use(hm.authMiddleware.AuthenticateOptional())
	{
		browse.GET("/exams", hm.examHandler.ListExams)
		browse.GET("/exams/:id", hm.examHandler.GetExam)
		browse.GET("/cheat-sheets", hm.sheetHandler.ListCheatSheets)
		browse.GET("/cheat-sheets/:id", hm.sheetHandler.GetCheatSheet)
		browse.GET("/reviews", hm.reviewHandler.ListReviews)
		browse.GET("/reviews/:id", hm.reviewHandler.GetReview)
		browse.GET("/courses", hm.reviewHandler.ListCourses)
		browse.GET("/courses/:code/statistics", hm.reviewHandler.GetCourseStatistics)
	}

	authed := v1.Group("")
	authed.Use(hm.authMiddleware.Authenticate())
	{
		// Exam archive. Only admins author it; the download sits behind
		// the paid-member gate, enforced in the service.
		exams := authed.Group("/exams")
		{
			exams.POST("", hm.authMiddleware.RequireAdmin(), hm.examHandler.CreateExam)
			exams.PUT("/:id", hm.examHandler.UpdateExam)
			exams.PUT("/:id/file", hm.examHandler.ReplaceExamFile)
			exams.DELETE("/:id", hm.examHandler.DeleteExam)
		}

		sheets := authed.Group("/cheat-sheets")
		{
			sheets.POST("", hm.authMiddleware.RequireAdmin(), hm.sheetHandler.CreateCheatSheet)
			sheets.PUT("/:id", hm.sheetHandler.UpdateCheatSheet)
			sheets.PUT("/:id/file", hm.sheetHandler.ReplaceCheatSheetFile)
			sheets.DELETE("/:id", hm.sheetHandler.DeleteCheatSheet)
		}

		reviews := authed.Group("/reviews")
		{
			reviews.POST("", hm.reviewHandler.CreateReview)
			reviews.PUT("/:id", hm.reviewHandler.UpdateReview)
			reviews.DELETE("/:id", hm.reviewHandler.DeleteReview)
		}

		users := authed.Group("/users")
		{
			users.GET("/me", hm.userHandler.Me)
			users.PUT("/me", hm.userHandler.UpdateMe)
			users.GET("", hm.authMiddleware.RequireAdmin(), hm.userHandler.ListUsers)
			users.GET("/:id", hm.authMiddleware.RequireAdmin(), hm.userHandler.GetUser)
			users.PATCH("/:id/role", hm.authMiddleware.RequireAdmin(), hm.userHandler.SetRole)
			users.PATCH("/:id/fee-status", hm.authMiddleware.RequireAdmin(), hm.userHandler.SetFeePaid)
			users.DELETE("/:id", hm.authMiddleware.RequireAdmin(), hm.userHandler.DeleteUser)
		}

		admin := authed.Group("/admin")
		admin.Use(hm.authMiddleware.RequireAdmin())
		{
			admin.GET("/reports/users.xlsx", hm.reportHandler.UsersReport)
			admin.GET("/reports/downloads.xlsx", hm.reportHandler.DownloadsReport)
		}
	}

	// File-streaming routes accept ?token= for plain link navigation.
	streaming := v1.Group("")
	streaming.Use(hm.authMiddleware.AuthenticateAllowQueryToken())
	{
		streaming.GET("/exams/:id/download", hm.examHandler.DownloadExam)
		streaming.GET("/exams/:id/preview", hm.examHandler.PreviewExam)
		streaming.GET("/cheat-sheets/:id/download", hm.sheetHandler.DownloadCheatSheet)
		streaming.GET("/cheat-sheets/:id/preview", hm.sheetHandler.PreviewCheatSheet)
	}

	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "portal-service",
		})
	})
}
