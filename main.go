// Package main provides the HTTP server entry point for the QR scan tracker
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/qrtrack/app/handlers"
	"github.com/amirphl/qrtrack/app/middleware"
	"github.com/amirphl/qrtrack/app/router"
	"github.com/amirphl/qrtrack/app/scheduler"
	"github.com/amirphl/qrtrack/app/services"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/amirphl/qrtrack/config"
	"github.com/amirphl/qrtrack/database"
	"github.com/amirphl/qrtrack/logging"
	"github.com/amirphl/qrtrack/repository"
	"github.com/amirphl/qrtrack/utils"
	"github.com/gofiber/fiber/v3"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting qrtrack...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	_, logCloser := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	defer logCloser.Close()

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop taking requests first so in-flight scans can still reach the database
	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	log.Println("Server stopped")
}

func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, func() {
		if err := database.Close(db); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	})

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		applied, err := database.Migrate(ctx, db, cfg.Database)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Printf("Database migrated (%d new migrations)", applied)
	}

	// Redis is an accelerator; without it lookups go to the database and the
	// maintenance lock is process-local
	rdb, err := database.OpenRedis(cfg.Cache)
	if err != nil {
		log.Printf("Warning: redis unavailable, continuing without cache: %v", err)
		rdb = nil
	}
	if rdb != nil {
		stopMonitor := database.StartRedisHealthMonitor(context.Background(), rdb, cfg.Cache.HealthInterval)
		stopFuncs = append(stopFuncs, func() {
			stopMonitor()
			_ = rdb.Close()
		})
	}

	clientInfo, err := services.NewClientInfoService(cfg.GeoIP.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	stopFuncs = append(stopFuncs, func() { _ = clientInfo.Close() })

	var authMiddleware *middleware.AuthMiddleware
	if cfg.Security.AdminAuthEnabled {
		tokenService, err := services.NewTokenService(
			cfg.JWT.AccessTokenTTL,
			cfg.JWT.Issuer,
			cfg.JWT.Audience,
			cfg.JWT.UseRSAKeys,
			cfg.JWT.PrivateKey,
			cfg.JWT.PublicKey,
			cfg.JWT.SecretKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize token service: %w", err)
		}
		authMiddleware = middleware.NewAuthMiddleware(tokenService)
	}

	// Repositories
	qrRepo := repository.NewQRCodeRepository(db)
	scanRepo := repository.NewScanRepository(db)

	// Business flows
	destinationCache := businessflow.NewDestinationCache(qrRepo, rdb, cfg.Cache.RedisPrefix, cfg.Cache.DestinationTTL)
	locker := businessflow.NewMaintenanceLocker(rdb, cfg.Cache.RedisPrefix, cfg.Maintenance.LockTTL)

	scanFlow := businessflow.NewScanFlow(qrRepo, scanRepo, db, destinationCache, clientInfo)
	qrCodeFlow := businessflow.NewQRCodeFlow(
		qrRepo,
		scanRepo,
		db,
		destinationCache,
		services.NewShortCodeGenerator(),
		services.NewQRRenderer(utils.QRImageSize),
		cfg.App.ShortCodeRetries,
	)
	analyticsFlow := businessflow.NewAnalyticsFlow(qrRepo, scanRepo, cfg.App.DefaultScanLimit, cfg.App.DefaultTimelineLen)
	driftFlow := businessflow.NewDriftFlow(qrRepo, scanRepo)
	reconcileFlow := businessflow.NewReconcileFlow(qrRepo, scanRepo, db, locker)

	// Handlers
	h := router.Handlers{
		Redirect:    handlers.NewRedirectHandler(scanFlow),
		QRCode:      handlers.NewQRCodeHandler(qrCodeFlow, cfg.App.PublicBaseURL),
		Analytics:   handlers.NewAnalyticsHandler(analyticsFlow, cfg.App.PublicBaseURL),
		Maintenance: handlers.NewMaintenanceHandler(driftFlow, reconcileFlow, cfg.Maintenance.ReconcileTimeout),
		Health:      handlers.NewHealthHandler(db, rdb, cfg.Deployment.Version),
	}

	appRouter := router.NewFiberRouter(cfg, h, authMiddleware)

	if cfg.Maintenance.ReconcileInterval > 0 {
		sched := scheduler.NewReconcileScheduler(reconcileFlow, log.Default(), cfg.Maintenance.ReconcileInterval, cfg.Maintenance.ReconcileTimeout)
		stopFuncs = append(stopFuncs, sched.Start(context.Background()))
		log.Printf("Reconcile scheduler started (every %s)", cfg.Maintenance.ReconcileInterval)
	}

	fiberRouter := appRouter.(*router.FiberRouter)
	return &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
