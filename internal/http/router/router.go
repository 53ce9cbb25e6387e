package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/feedreach-backend/internal/authz"
	"github.com/ignatzorin/feedreach-backend/internal/config"
	"github.com/ignatzorin/feedreach-backend/internal/http/handlers"
	"github.com/ignatzorin/feedreach-backend/internal/http/middleware"
	newHandler "github.com/ignatzorin/feedreach-backend/internal/interface/http/handler"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	"github.com/ignatzorin/feedreach-backend/internal/metrics"
	"github.com/ignatzorin/feedreach-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	tokenManager middleware.AccessParser,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	notificationHandler *handlers.NotificationHandler,
	reviewHandler *handlers.ReviewHandler,
	verificationHandler *handlers.VerificationHandler,
	adminHandler *handlers.AdminHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	mediaHandler *handlers.MediaHandler,
	aiHandler *handlers.AIHandler,
	geoHandler *handlers.GeoHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	// Пожертвования (Clean Architecture)
	donationHandler *newHandler.DonationHandler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(metrics.Middleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "маршрут не найден")
	})

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.StaticFS(service.MediaPrefix, http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware("auth", cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/firebase", authHandler.LoginExternal)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/password/forgot", authHandler.ForgotPassword)
		authGroup.POST("/password/reset", authHandler.ResetPassword)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/me", authHandler.Me)
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", middleware.UUIDValidator("id"), authHandler.DeleteSession)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/leaderboard", leaderboardHandler.Top)
	api.GET("/users/:id", middleware.UUIDValidator("id"), profileHandler.GetPublic)
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListUserReviews)
	api.GET("/geo/reverse", geoHandler.Reverse)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", profileHandler.GetMe)
		protected.PUT("/profile", profileHandler.UpdateMe)

		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), notificationHandler.DeleteNotification)

		protected.GET("/donations", donationHandler.ListDonations)
		protected.GET("/donations/summary", donationHandler.ImpactSummary)
		protected.GET("/donations/:id", middleware.UUIDValidator("id"), donationHandler.GetDonation)
		protected.POST("/donations", middleware.RequireCapability(authz.DonationCreate), donationHandler.CreateDonation)
		protected.PUT("/donations/:id", middleware.UUIDValidator("id"), middleware.RequireCapability(authz.DonationCreate), donationHandler.UpdateDonation)
		protected.DELETE("/donations/:id", middleware.UUIDValidator("id"), middleware.RequireCapability(authz.DonationCreate), donationHandler.DeleteDonation)
		protected.POST("/donations/:id/accept", middleware.UUIDValidator("id"), middleware.RequireCapability(authz.DonationAccept), donationHandler.AcceptDonation)
		protected.POST("/donations/:id/status", middleware.UUIDValidator("id"), middleware.RequireCapability(authz.DonationUpdateStatus), donationHandler.UpdateStatus)
		protected.POST("/donations/:id/reviews", middleware.UUIDValidator("id"), middleware.RequireCapability(authz.ReviewSubmit), reviewHandler.CreateReview)

		protected.POST("/verification", middleware.RequireCapability(authz.VerificationSubmit), verificationHandler.Submit)

		protected.POST("/media", mediaHandler.Upload)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), mediaHandler.DeleteMedia)
	}

	aiGroup := api.Group("/ai")
	aiGroup.Use(middleware.AuthMiddleware(tokenManager))
	aiGroup.Use(middleware.RequireCapability(authz.AIAnalyze))
	aiGroup.Use(middleware.RateLimitMiddleware("ai", cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		aiGroup.POST("/analyze", aiHandler.AnalyzeFood)
		aiGroup.POST("/recipes", aiHandler.SuggestRecipes)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager))
	{
		admin.GET("/users", middleware.RequireCapability(authz.AdminUsers), adminHandler.ListUsers)
		admin.POST("/users/:id/status", middleware.UUIDValidator("id"), middleware.RequireCapability(authz.AdminUsers), adminHandler.SetStatus)
		admin.POST("/users/:id/warnings", middleware.UUIDValidator("id"), middleware.RequireCapability(authz.AdminUsers), adminHandler.Warn)

		admin.GET("/verifications", middleware.RequireCapability(authz.AdminVerification), verificationHandler.Pending)
		admin.POST("/verifications/:id/approve", middleware.UUIDValidator("id"), middleware.RequireCapability(authz.AdminVerification), verificationHandler.Approve)
		admin.POST("/verifications/:id/reject", middleware.UUIDValidator("id"), middleware.RequireCapability(authz.AdminVerification), verificationHandler.Reject)

		admin.GET("/notifications", middleware.RequireCapability(authz.AdminNotifications), adminHandler.History)
		admin.POST("/notifications", middleware.RequireCapability(authz.AdminNotifications), adminHandler.Broadcast)

		admin.GET("/stats", middleware.RequireCapability(authz.AdminStats), adminHandler.Stats)
	}

	return r
}
