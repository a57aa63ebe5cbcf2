package main

import (
	"fmt"
	"net/http"

	"fieldos/internal/handler"
	"fieldos/internal/middleware"
	"fieldos/pkg/cache"
	"fieldos/pkg/config"
	"fieldos/pkg/database"
	"fieldos/pkg/jwtutil"
	"fieldos/pkg/logger"
	"fieldos/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting FieldOS service...", cfg.LogConfig()...)

	// Initialize database
	if err := database.Initialize(database.DBConfig{
		DSN:             cfg.DB.GetDSN(),
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.LogLevel,
	}); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize the optional redis tenant cache
	if err := cache.Initialize(&cfg.Redis); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	if cache.Enabled() {
		log.Info("Tenant cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true

	// Route-level errors (404 on unknown paths, 405 on wrong verbs) go out
	// in the same envelope as handler responses
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		message := "Internal server error"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			message = fmt.Sprintf("%v", he.Message)
		}
		if !c.Response().Committed {
			_ = c.JSON(code, echo.Map{"status": "error", "message": message})
		}
	}

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// API routes - all require a valid session and a resolved tenant context.
	// The subscription gate inside RequireTenantContext rejects canceled
	// tenants on every one of these.
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)
	api.Use(middleware.RequireTenantContext)

	api.GET("/tenant-config", handler.TenantConfig)
	api.GET("/reps", handler.ListReps)
	api.GET("/addresses", handler.ListAddresses)
	api.POST("/assign-address", handler.AssignAddress)
	api.POST("/disposition", handler.RecordDisposition)
	api.GET("/metrics", handler.FieldMetrics)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
