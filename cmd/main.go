package main

import (
	"context"
	"time"

	"github.com/chetgo/sahod-solutions/internal/clock"
	"github.com/chetgo/sahod-solutions/internal/handler"
	"github.com/chetgo/sahod-solutions/internal/middleware"
	"github.com/chetgo/sahod-solutions/internal/model"
	"github.com/chetgo/sahod-solutions/internal/repository"
	"github.com/chetgo/sahod-solutions/internal/service"
	"github.com/chetgo/sahod-solutions/pkg/config"
	"github.com/chetgo/sahod-solutions/pkg/database"
	"github.com/chetgo/sahod-solutions/pkg/jwtutil"
	"github.com/chetgo/sahod-solutions/pkg/logger"
	"github.com/chetgo/sahod-solutions/prometheus"

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
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting registration service...", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(db,
		&model.SubdomainRecord{},
		&model.RegistrationDraft{},
		&model.Company{},
		&model.User{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Wire repositories and services
	clk := clock.NewSystem()
	subdomainRepo := repository.NewSubdomainRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)

	registry := service.NewSubdomainRegistry(subdomainRepo, clk, log,
		service.WithReservationTTL(cfg.Registration.ReservationTTL),
		service.WithSweepBatchSize(cfg.Registration.SweepBatchSize),
		service.WithReservedNames(cfg.Registration.ReservedSubdomains),
	)
	sessions := service.NewSessionManager(registrationRepo, registry, clk, log,
		service.WithDraftTTL(cfg.Registration.DraftTTL),
		service.WithTrialPeriod(cfg.Registration.TrialPeriod),
	)
	autosaver := service.NewAutoSaver(sessions, cfg.Registration.AutosaveWindow, log)
	defer autosaver.Close()

	subdomainHandler := handler.NewSubdomainHandler(registry)
	registrationHandler := handler.NewRegistrationHandler(sessions, autosaver)
	companyHandler := handler.NewCompanyHandler(registrationRepo)

	// Periodic sweep of expired subdomain reservations
	if cfg.Registration.SweepInterval > 0 {
		go runSweeper(registry, cfg.Registration.SweepInterval, log)
	}

	// Initialize Echo framework
	e := echo.New()

	// Tenant-portal hosts are rewritten onto /company/:subdomain before routing
	e.Pre(middleware.SubdomainRewrite(cfg.Registration.BaseDomain))

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Signup wizard routes - anonymous by design
	api := e.Group("/api")
	api.GET("/subdomains/availability", subdomainHandler.CheckAvailability)
	api.POST("/registrations", registrationHandler.Create)
	api.PUT("/registrations/:id/steps/:step", registrationHandler.SaveStep)
	api.GET("/registrations/:id", registrationHandler.GetDraft)
	api.POST("/registrations/:id/complete", registrationHandler.Complete)

	// Company records require the acting identity to match
	companies := api.Group("/companies")
	companies.Use(middleware.AuthMiddleware)
	companies.GET("/:id", companyHandler.GetCompany)

	// Tenant portal entry, targeted by the host rewrite
	e.GET("/company/:subdomain", companyHandler.Portal)

	// Internal operations for external schedulers
	internal := e.Group("/internal")
	internal.POST("/subdomains/sweep", subdomainHandler.Sweep)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

// runSweeper deletes lapsed subdomain reservations on a fixed cadence.
// Lazy deletion during availability checks handles the common case;
// this catches names nobody asks about again.
func runSweeper(registry *service.SubdomainRegistry, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		count, err := registry.SweepExpired(context.Background())
		if err != nil {
			log.Error("reservation sweep failed", zap.Error(err))
			continue
		}
		if count > 0 {
			prometheus.SweptReservationCounter.Add(float64(count))
			log.Info("reservation sweep finished", zap.Int("deleted", count))
		}
	}
}
