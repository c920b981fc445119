package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appposting "github.com/hera/finance/internal/application/posting"
	"github.com/hera/finance/internal/domain/shared"
	"github.com/hera/finance/internal/infrastructure/auth"
	"github.com/hera/finance/internal/infrastructure/cache"
	"github.com/hera/finance/internal/infrastructure/config"
	"github.com/hera/finance/internal/infrastructure/fiscal"
	"github.com/hera/finance/internal/infrastructure/logger"
	"github.com/hera/finance/internal/infrastructure/persistence"
	"github.com/hera/finance/internal/infrastructure/telemetry"
	"github.com/hera/finance/internal/interfaces/http/handler"
	"github.com/hera/finance/internal/interfaces/http/middleware"
	"github.com/hera/finance/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting finance engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	journalRepo := persistence.NewGormJournalRepository(db.DB)
	ruleRepo := persistence.NewGormRuleRepository(db.DB)
	orgConfigRepo := persistence.NewGormOrgConfigRepository(db.DB)
	fiscalPeriodRepo := persistence.NewGormFiscalPeriodRepository(db.DB)
	masterDataRepo := persistence.NewGormMasterDataRepository(db.DB)

	// Fiscal period validation service
	fiscalService := fiscal.NewService(fiscalPeriodRepo, log)

	// Posting metrics (OpenTelemetry)
	metrics, err := telemetry.NewPostingMetrics(log)
	if err != nil {
		log.Fatal("Failed to initialize posting metrics", zap.Error(err))
	}

	// Idempotency store (Redis, optionally falling back to in-memory)
	var idemStore shared.IdempotencyStore
	if cfg.Idempotency.Enabled {
		factory := cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(cfg.Idempotency.AllowInMemory),
		)
		idemStore, err = factory.Create()
		if err != nil {
			log.Fatal("Failed to initialize idempotency store", zap.Error(err))
		}
		log.Info("Idempotency store initialized", zap.Duration("ttl", cfg.Idempotency.TTL))
	}

	// Per-organization processor registry
	registry := appposting.NewProcessorRegistry(appposting.RegistryDeps{
		Rules:       ruleRepo,
		Configs:     orgConfigRepo,
		Fiscal:      fiscalService,
		Master:      masterDataRepo,
		Store:       journalRepo,
		Finder:      journalRepo,
		Idempotency: idemStore,
		IdemConfig: shared.IdempotencyConfig{
			TTL:     cfg.Idempotency.TTL,
			Enabled: cfg.Idempotency.Enabled,
		},
		Metrics: metrics,
		Logger:  log,
	})

	// JWT verification for API authentication
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	financeEventHandler := handler.NewFinanceEventHandler(registry)
	journalReviewHandler := handler.NewJournalReviewHandler(journalRepo)
	adminHandler := handler.NewAdminHandler(registry)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - OpenTelemetry spans
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.App.Name,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Authentication and organization scoping for all API routes
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/api/v1/ping"},
		Logger:     log,
	}))
	r.Use(middleware.OrganizationMiddlewareWithConfig(middleware.OrganizationMiddlewareConfig{
		HeaderEnabled: cfg.App.Env != "production",
		JWTEnabled:    true,
		SkipPaths:     []string{"/api/v1/ping"},
		Required:      false,
		Logger:        log,
	}))

	// Finance domain routes
	financeRoutes := router.NewDomainGroup("finance", "/finance")
	financeRoutes.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "finance service ready"})
	})

	// Event posting
	financeRoutes.POST("/events", financeEventHandler.PostEvent)
	financeRoutes.POST("/revenue", financeEventHandler.PostRevenue)
	financeRoutes.POST("/expense", financeEventHandler.PostExpense)

	// Staged journal review
	financeRoutes.GET("/staged", journalReviewHandler.ListStaged)
	financeRoutes.POST("/staged/:ref/approve", journalReviewHandler.ApproveStaged)
	financeRoutes.POST("/staged/:ref/discard", journalReviewHandler.DiscardStaged)

	// Journal audit trail
	financeRoutes.GET("/journals", journalReviewHandler.ListJournalsByOrigin)

	// Processor cache administration
	financeRoutes.POST("/organizations/:id/reload", adminHandler.ReloadOrganization)
	financeRoutes.POST("/organizations/reload", adminHandler.ReloadAll)

	r.Register(financeRoutes)

	// Setup routes
	r.Setup()

	// Simple ping at root API level for basic liveness checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
