package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/rollcall/internal/rollcall/http"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags.
var BuildVersion = "v0.1.0"

// Application is the attendance service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	identity *Identity

	issuerService       *service.IssuerService
	redeemerService     *service.RedeemerService
	directoryService    *service.DirectoryService
	attendanceService   *service.AttendanceService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialized.
func New(cfg Config) (*Application, error) {
	logger := slogx.New(slogx.Config{
		Service: "rollcall",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	return NewWithLogger(cfg, logger)
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg Config, logger *slog.Logger) (*Application, error) {
	app := &Application{cfg: cfg, logger: logger}
	ctx := context.Background()

	db, err := OpenMigratedStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	identity, err := InitIdentity(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize session keys: %w", err)
	}
	app.identity = identity

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until a shutdown signal or a
// server failure.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	if app.identity.Remote != nil {
		app.identity.Remote.Start()
	}

	app.logger.Info("rollcall starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"identity", app.cfg.IdentityMode,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops background workers and closes
// the store. An in-flight redemption either commits or rolls back.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down rollcall...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	if app.identity.Remote != nil {
		app.identity.Remote.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("rollcall stopped")
	return nil
}

func (app *Application) initServices() {
	app.issuerService = &service.IssuerService{
		Store:    app.db,
		TTL:      app.cfg.TokenTTL,
		MaxUses:  app.cfg.TokenMaxUses,
		Cooldown: app.cfg.IssueCooldown,
	}
	app.redeemerService = &service.RedeemerService{
		Store:           app.db,
		RetainExhausted: app.cfg.RetainExhausted,
		MaxAttempts:     app.cfg.RedeemMaxAttempts,
	}
	app.directoryService = &service.DirectoryService{Store: app.db}
	app.attendanceService = &service.AttendanceService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.TokenRetention,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.identity.Keys,
		app.identity.Verifier,
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.CORSAllowedOrigins,
	)

	router.PublishJWKS = app.identity.Signer != nil
	router.Limits = app.cfg.RateLimits
	router.IssuerService = app.issuerService
	router.RedeemerService = app.redeemerService
	router.DirectoryService = app.directoryService
	router.AttendanceService = app.attendanceService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
