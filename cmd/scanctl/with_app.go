package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirphl/qrtrack/app/services"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/amirphl/qrtrack/config"
	"github.com/amirphl/qrtrack/database"
	"github.com/amirphl/qrtrack/logging"
	"github.com/amirphl/qrtrack/repository"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// cliApp is what every subcommand works against
type cliApp struct {
	Config    *config.ProductionConfig
	DB        *gorm.DB
	Drift     businessflow.DriftFlow
	Reconcile businessflow.ReconcileFlow
	close     func()
}

func (a *cliApp) Close() {
	if a.close != nil {
		a.close()
	}
}

// tokenService builds the admin token signer from the JWT settings
func (a *cliApp) tokenService() (services.TokenService, error) {
	jwt := a.Config.JWT
	return services.NewTokenService(jwt.AccessTokenTTL, jwt.Issuer, jwt.Audience, jwt.UseRSAKeys, jwt.PrivateKey, jwt.PublicKey, jwt.SecretKey)
}

type appOpener func(ctx context.Context) (*cliApp, error)

// openApp wires the store and maintenance flows from the environment
func openApp(ctx context.Context) (*cliApp, error) {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Sharing redis with the server makes the CLI respect a reconcile already running there
	var rdb *redis.Client
	if rdb, err = database.OpenRedis(cfg.Cache); err != nil {
		logging.Warn(ctx, "redis unavailable, using a process-local maintenance lock", logging.Err(err))
		rdb = nil
	}

	return newCLIApp(cfg, db, rdb, func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = database.Close(db)
	}), nil
}

func newCLIApp(cfg *config.ProductionConfig, db *gorm.DB, rdb *redis.Client, closeFn func()) *cliApp {
	qrRepo := repository.NewQRCodeRepository(db)
	scanRepo := repository.NewScanRepository(db)
	locker := businessflow.NewMaintenanceLocker(rdb, cfg.Cache.RedisPrefix, cfg.Maintenance.LockTTL)
	return &cliApp{
		Config:    cfg,
		DB:        db,
		Drift:     businessflow.NewDriftFlow(qrRepo, scanRepo),
		Reconcile: businessflow.NewReconcileFlow(qrRepo, scanRepo, db, locker),
		close:     closeFn,
	}
}

// withApp opens the application for the duration of one command
func withApp(open appOpener, run func(cmd *cobra.Command, app *cliApp) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := open(ctx)
		if err != nil {
			logging.Error(ctx, "bootstrap failed", logging.Err(err))
			return fmt.Errorf("open application: %w", err)
		}
		defer app.Close()

		logging.Debug(ctx, "application opened", slog.String("driver", app.Config.Database.Driver))
		return run(cmd, app)
	}
}
