package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scholarsphere/internal/app/controllers"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/middleware"
	"github.com/yigit/scholarsphere/internal/pkg/websocket"
)

// Controllers groups the HTTP handlers mounted by SetupRouter
type Controllers struct {
	Auth         *controllers.AuthController
	Scholarship  *controllers.ScholarshipController
	Application  *controllers.ApplicationController
	Review       *controllers.ReviewController
	Notification *controllers.NotificationController
	Analytics    *controllers.AnalyticsController
	WebSocket    *websocket.Handler
}

// RateLimits configures the limiter applied to auth and application submission
type RateLimits struct {
	Limiter    middleware.Limiter
	AuthLimit  int
	ApplyLimit int
	Window     time.Duration
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	c Controllers,
	authMiddleware *middleware.AuthMiddleware,
	limits RateLimits,
) {
	v1 := router.Group("/api/v1")

	authLimit := middleware.RateLimit(limits.Limiter, middleware.ByIP("auth"), limits.AuthLimit, limits.Window)
	applyLimit := middleware.RateLimit(limits.Limiter, middleware.ByUser("apply"), limits.ApplyLimit, limits.Window)

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authLimit, c.Auth.Register)
		auth.POST("/login", authLimit, c.Auth.Login)
		auth.POST("/refresh", authLimit, c.Auth.RefreshToken)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	adminOnly := authMiddleware.RolesRequired(models.RoleAdmin)
	studentOnly := authMiddleware.RolesRequired(models.RoleStudent)
	staffOnly := authMiddleware.RolesRequired(models.RoleOSAS, models.RoleAdmin)
	osasOnly := authMiddleware.RolesRequired(models.RoleOSAS)

	authenticated.POST("/auth/logout", c.Auth.Logout)
	authenticated.GET("/profile", c.Auth.GetProfile)
	authenticated.PUT("/profile", c.Auth.UpdateProfile)

	scholarships := authenticated.Group("/scholarships")
	{
		scholarships.GET("", c.Scholarship.ListScholarships)
		scholarships.GET("/:id", c.Scholarship.GetScholarship)
		scholarships.POST("/:id/applications", studentOnly, applyLimit, c.Application.SubmitApplication)

		admin := scholarships.Group("")
		admin.Use(adminOnly)
		{
			admin.POST("", c.Scholarship.CreateScholarship)
			admin.PUT("/:id", c.Scholarship.UpdateScholarship)
			admin.DELETE("/:id", c.Scholarship.DeleteScholarship)
			admin.POST("/:id/toggle-active", c.Scholarship.ToggleActive)
			admin.POST("/:id/requirements", c.Scholarship.AddRequirement)
			admin.DELETE("/:id/requirements/:reqId", c.Scholarship.DeleteRequirement)
			admin.PUT("/:id/document-requirements", c.Scholarship.SetDocumentRequirements)
			admin.GET("/:id/analytics", c.Scholarship.ScholarshipAnalytics)
		}
	}

	authenticated.GET("/document-requirements", c.Scholarship.ListDocumentCatalogue)
	authenticated.POST("/document-requirements", adminOnly, c.Scholarship.CreateDocumentRequirement)

	applications := authenticated.Group("/applications")
	{
		// Students download their own documents, staff any
		applications.GET("/:id/documents/:docId", c.Application.DownloadDocument)

		mine := applications.Group("")
		mine.Use(studentOnly)
		{
			mine.GET("/mine", c.Application.ListMyApplications)
			mine.GET("/:id", c.Application.GetMyApplication)
			mine.PUT("/:id", c.Application.UpdateMyApplication)
			mine.POST("/:id/documents", c.Application.UploadDocument)
			mine.DELETE("/:id/documents/:docId", c.Application.DeleteDocument)
		}
	}

	review := authenticated.Group("/review")
	review.Use(staffOnly)
	{
		review.GET("/queue", c.Review.ReviewQueue)
		review.GET("/applications/:id", c.Review.GetApplication)
		review.POST("/applications/:id/assign", c.Review.AssignToMe)
		review.POST("/applications/:id/recommendation", osasOnly, c.Review.Recommend)
	}

	approvals := authenticated.Group("/approvals")
	approvals.Use(adminOnly)
	{
		approvals.GET("/pending", c.Review.PendingApprovals)
		approvals.GET("/history", c.Review.DecisionHistory)
		approvals.POST("/applications/:id/decision", c.Review.FinalDecision)
	}

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", c.Notification.ListNotifications)
		notifications.GET("/unread-count", c.Notification.UnreadCount)
		notifications.POST("/:id/read", c.Notification.MarkRead)
		notifications.POST("/read-all", c.Notification.MarkAllRead)
	}

	analytics := authenticated.Group("/analytics")
	{
		analytics.GET("/dashboard", c.Analytics.Dashboard)
		analytics.GET("/overview", adminOnly, c.Analytics.Overview)
		analytics.GET("/scholarships", adminOnly, c.Analytics.ScholarshipPerformance)
	}

	// The browser WebSocket API cannot set headers, so JWTAuth also reads ?token=
	if c.WebSocket != nil {
		authenticated.GET("/ws/notifications", c.WebSocket.HandleConnection)
	}

	// Health check endpoint (public)
	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})
}
