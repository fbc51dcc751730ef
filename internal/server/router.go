package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/funnelform/funnelform-backend/internal/handlers"
	"github.com/funnelform/funnelform-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	QuizHandler      *handlers.QuizHandler
	SessionHandler   *handlers.SessionHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	UploadHandler    *handlers.UploadHandler
	AuthMiddleware   *middleware.AuthMiddleware
	AllowedOrigins   string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}
	if cfg.AllowedOrigins == "*" || cfg.AllowedOrigins == "" {
		// Session endpoints are hit from storefronts on arbitrary domains.
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	router.Use(cors.New(corsConfig))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", cfg.AuthHandler.Register)
			auth.POST("/login", cfg.AuthHandler.Login)
			auth.POST("/refresh", cfg.AuthHandler.Refresh)
			auth.POST("/logout", cfg.AuthHandler.Logout)
			auth.POST("/verify-email", cfg.AuthHandler.VerifyEmail)
			auth.POST("/resend-verification", cfg.AuthHandler.ResendVerification)
			auth.POST("/request-password-reset", cfg.AuthHandler.RequestPasswordReset)
			auth.POST("/reset-password", cfg.AuthHandler.ResetPassword)
		}

		// Widget-facing, no auth: the embed script and end users call these.
		api.GET("/quizzes/:quizId/content", cfg.QuizHandler.Content)
		api.POST("/sessions", cfg.SessionHandler.Start)
		api.PATCH("/sessions/:sessionId", cfg.SessionHandler.Update)
		api.POST("/sessions/:sessionId/answers", cfg.SessionHandler.SubmitAnswer)
		api.POST("/sessions/:sessionId/complete", cfg.SessionHandler.Complete)
		api.GET("/sessions/:sessionId/utm", cfg.SessionHandler.UTMParams)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		protected.POST("/quizzes", cfg.QuizHandler.Create)
		protected.GET("/quizzes", cfg.QuizHandler.List)
		protected.GET("/quizzes/:quizId", cfg.QuizHandler.Get)
		protected.PUT("/quizzes/:quizId", cfg.QuizHandler.Update)
		protected.DELETE("/quizzes/:quizId", cfg.QuizHandler.Delete)
		protected.POST("/quizzes/:quizId/publish", cfg.QuizHandler.Publish)

		protected.GET("/quizzes/:quizId/analytics/drop-rate", cfg.AnalyticsHandler.DropRate)
		protected.GET("/quizzes/:quizId/analytics/funnel", cfg.AnalyticsHandler.Funnel)
		protected.GET("/quizzes/:quizId/analytics/questions/:questionId/distribution", cfg.AnalyticsHandler.Distribution)
		protected.GET("/quizzes/:quizId/analytics/utm", cfg.AnalyticsHandler.UTM)
		protected.GET("/quizzes/:quizId/analytics/stats", cfg.AnalyticsHandler.Stats)
		protected.GET("/quizzes/:quizId/analytics/daily", cfg.AnalyticsHandler.Daily)

		protected.GET("/uploads/signature", cfg.UploadHandler.Signature)
	}

	return router
}
