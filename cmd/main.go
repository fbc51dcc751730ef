package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/funnelform/funnelform-backend/internal/db"
	"github.com/funnelform/funnelform-backend/internal/handlers"
	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/middleware"
	"github.com/funnelform/funnelform-backend/internal/platform/cloudinary"
	"github.com/funnelform/funnelform-backend/internal/platform/sendgrid"
	"github.com/funnelform/funnelform-backend/internal/platform/shopify"
	"github.com/funnelform/funnelform-backend/internal/repos"
	"github.com/funnelform/funnelform-backend/internal/server"
	"github.com/funnelform/funnelform-backend/internal/services"
	"github.com/funnelform/funnelform-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	tokenSalt := utils.GetEnv("TOKEN_SALT", "defaultsalt", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 2592000, log)
	appBaseURL := utils.GetEnv("APP_BASE_URL", "http://localhost:3000", log)
	publicBaseURL := utils.GetEnv("PUBLIC_BASE_URL", "http://localhost:8080", log)
	allowedOrigins := utils.GetEnv("CORS_ALLOWED_ORIGINS", "*", log)
	port := utils.GetEnv("PORT", "8080", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	refreshTokenRepo := repos.NewRefreshTokenRepo(thePG, log)
	emailTokenRepo := repos.NewEmailTokenRepo(thePG, log)
	quizRepo := repos.NewQuizRepo(thePG, log)
	questionRepo := repos.NewQuestionRepo(thePG, log)
	optionRepo := repos.NewAnswerOptionRepo(thePG, log)
	sessionRepo := repos.NewSessionRepo(thePG, log)
	answerRepo := repos.NewAnswerRepo(thePG, log)

	// Platform clients. Each is optional in local development: a missing
	// credential disables the feature instead of blocking startup.
	sendgridClient, err := sendgrid.NewFromEnv(log)
	if err != nil {
		log.Warn("SendGrid init failed, outbound email disabled", "error", err)
	}
	shopifyClient, err := shopify.NewFromEnv(log)
	if err != nil {
		log.Warn("Shopify init failed, publishing disabled", "error", err)
	}
	cloudinaryClient, err := cloudinary.NewFromEnv(log)
	if err != nil {
		log.Warn("Cloudinary init failed, uploads disabled", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	emailService := services.NewEmailService(log, sendgridClient, appBaseURL)
	authService := services.NewAuthService(
		thePG, log,
		userRepo, refreshTokenRepo, emailTokenRepo,
		emailService,
		jwtSecretKey, tokenSalt,
		time.Duration(accessTokenTTL)*time.Second,
		time.Duration(refreshTokenTTL)*time.Second,
	)
	quizService := services.NewQuizService(thePG, log, quizRepo, questionRepo, optionRepo, shopifyClient, publicBaseURL)
	contentService := services.NewContentService(thePG, log, quizRepo)
	sessionService := services.NewSessionService(thePG, log, quizRepo, sessionRepo, answerRepo)
	analyticsService := services.NewAnalyticsService(thePG, log, quizRepo)

	// Handlers
	log.Info("Setting up Handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	quizHandler := handlers.NewQuizHandler(quizService, contentService, cloudinaryClient)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	uploadHandler := handlers.NewUploadHandler(cloudinaryClient)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:      authHandler,
		QuizHandler:      quizHandler,
		SessionHandler:   sessionHandler,
		AnalyticsHandler: analyticsHandler,
		UploadHandler:    uploadHandler,
		AuthMiddleware:   authMiddleware,
		AllowedOrigins:   allowedOrigins,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
