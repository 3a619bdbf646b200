package app

import (
	"context"
	"fmt"

	"platefuel_backend/database"
	"platefuel_backend/internal/billing"
	"platefuel_backend/internal/config"
	"platefuel_backend/internal/email"
	"platefuel_backend/internal/genai"
	"platefuel_backend/internal/handlers"
	"platefuel_backend/internal/logger"
	"platefuel_backend/internal/middleware"
	"platefuel_backend/internal/repositories"
	"platefuel_backend/internal/routes"
	"platefuel_backend/internal/services"
	"platefuel_backend/internal/validator"
	"platefuel_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.Migrate(gormDB); err != nil {
		logger.Fatal("Database migration failed", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWorkers(ctx, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	serviceContainer, repos := initializeServices(cfg)
	appHandlers := initializeHandlers(serviceContainer, repos, cfg)

	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter
}

func initializeServices(cfg *config.Config) (*services.ServiceContainer, *repositories.RepositoryContainer) {
	var emailProvider email.Provider
	if cfg.Email.Enabled {
		emailProvider = email.NewGomailSender(cfg)
	} else {
		logger.Warn("Email delivery disabled, using noop provider")
		emailProvider = email.NoopProvider{}
	}

	gateway := billing.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.BaseURL)
	generator := genai.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL)

	repos := repositories.NewRepositoryContainer()
	return services.NewServiceContainer(repos, gateway, generator, emailProvider, cfg), repos
}

func initializeHandlers(container *services.ServiceContainer, repos *repositories.RepositoryContainer, cfg *config.Config) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		HealthHandler:       handlers.NewHealthHandler(baseHandler),
		ProfileHandler:      handlers.NewProfileHandler(baseHandler, container.Profile),
		SubscriptionHandler: handlers.NewSubscriptionHandler(baseHandler, container.Subscription),
		WebhookHandler:      handlers.NewWebhookHandler(baseHandler, container.Subscription, repos.WebhookEvent, cfg),
		MealPlanHandler:     handlers.NewMealPlanHandler(baseHandler, container.MealPlan),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.App.PublicOrigin))
	router.Use(middleware.DBMiddleware(db))

	return router
}

func startWorkers(ctx context.Context, db *gorm.DB) {
	subscriptionWorker := workers.NewSubscriptionWorker(
		db,
		repositories.NewSubscriptionRepository(),
		repositories.NewProfileRepository(),
	)
	subscriptionWorker.Start(ctx)
	logger.Info("Subscription worker started")
}
