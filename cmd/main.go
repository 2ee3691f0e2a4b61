package main

import (
	"github.com/kawamasaya/well-board/internal/handler"
	"github.com/kawamasaya/well-board/internal/middleware"
	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/internal/scoring"
	"github.com/kawamasaya/well-board/internal/store"
	"github.com/kawamasaya/well-board/pkg/config"
	"github.com/kawamasaya/well-board/pkg/database"
	"github.com/kawamasaya/well-board/pkg/jwtutil"
	"github.com/kawamasaya/well-board/pkg/logger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	wbprometheus "github.com/kawamasaya/well-board/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("well-board")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting well-board service...", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(
		&model.Tenant{},
		&model.TenantRequest{},
		&model.User{},
		&model.Team{},
		&model.Entry{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})

	// Domain collaborators
	entryStore := store.NewEntryStore(db)
	scorer := scoring.NewGateway(&cfg.Scoring)

	authHandler := handler.NewAuthHandler(db, jwtUtil)
	tenantHandler := handler.NewTenantHandler(db)
	tenantRequestHandler := handler.NewTenantRequestHandler(db)
	userHandler := handler.NewUserHandler(db)
	teamHandler := handler.NewTeamHandler(db)
	entryHandler := handler.NewEntryHandler(entryStore, scorer)
	teamEntryHandler := handler.NewTeamEntryHandler(db, entryStore)

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(wbprometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", tenantRequestHandler.Create)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtUtil))

	// Tenant administration
	api.GET("/tenants", tenantHandler.List)
	api.GET("/tenant-requests", tenantRequestHandler.List)
	api.POST("/tenant-requests/:id/approve", tenantRequestHandler.Approve)
	api.POST("/tenant-requests/:id/reject", tenantRequestHandler.Reject)

	// Tenant-scoped resources
	tenant := api.Group("/tenants/:tenant_id")
	tenant.GET("", tenantHandler.Get)

	tenant.GET("/teams", teamHandler.List)
	tenant.POST("/teams", teamHandler.Create)
	tenant.GET("/teams/:id", teamHandler.Get)
	tenant.PUT("/teams/:id", teamHandler.Update)
	tenant.DELETE("/teams/:id", teamHandler.Delete)

	tenant.GET("/users", userHandler.List)
	tenant.POST("/users", userHandler.Create)
	tenant.GET("/users/:id", userHandler.Get)
	tenant.PUT("/users/:id", userHandler.Update)
	tenant.DELETE("/users/:id", userHandler.Delete)

	tenant.GET("/entries", entryHandler.List)
	tenant.POST("/entries", entryHandler.Create)
	tenant.GET("/entries/:id", entryHandler.Get)
	tenant.PUT("/entries/:id", entryHandler.Update)

	tenant.GET("/team-entries", teamEntryHandler.List)

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
