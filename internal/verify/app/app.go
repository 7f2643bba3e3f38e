package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/gateway"
	httpapi "github.com/aussiebroadwan/doorman/internal/verify/http"
	"github.com/aussiebroadwan/doorman/internal/verify/service"
	"github.com/aussiebroadwan/doorman/internal/verify/store"
	"github.com/aussiebroadwan/doorman/internal/verify/store/drivers/sqlite"
	"github.com/aussiebroadwan/doorman/pkg/httpx"
	"github.com/aussiebroadwan/doorman/pkg/privx"
	"github.com/aussiebroadwan/doorman/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the verification service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	privacy privx.Policy

	// Gateways. Logging stand-ins until a chat transport is wired in.
	messaging gateway.Messaging
	community gateway.Community

	// Services
	directory           *service.Directory
	sessions            *service.Sessions
	limiter             *service.Limiter
	ledger              *service.Ledger
	decisions           *service.Decisions
	flow                *service.Flow
	commands            *service.Commands
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "doorman",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	privacy, err := privx.FromName(cfg.PrivacyPolicy, cfg.PrivacyKeyFile)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize privacy policy: %w", err)
	}
	app.privacy = privacy

	app.messaging = &gateway.LoggingMessenger{Logger: app.logger}
	app.community = &gateway.LoggingCommunity{Logger: app.logger}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("doorman starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down doorman...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("doorman stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.directory = &service.Directory{
		Store:   app.db,
		Privacy: app.privacy,
	}

	app.limiter = &service.Limiter{
		Rules: map[string]service.LimitRule{
			service.ActionStart:         {Max: app.cfg.StartLimit, Window: app.cfg.StartWindow},
			service.ActionContactSubmit: {Max: app.cfg.ContactLimit, Window: app.cfg.ContactWindow},
		},
	}

	app.sessions = &service.Sessions{
		TTL:        app.cfg.SessionTTL,
		AutoSubmit: app.cfg.AutoSubmit,
	}

	app.ledger = &service.Ledger{
		Store:     app.db,
		Community: app.community,
	}

	app.flow = &service.Flow{
		Directory:  app.directory,
		Ledger:     app.ledger,
		Sessions:   app.sessions,
		Limiter:    app.limiter,
		Messaging:  app.messaging,
		OperatorID: app.cfg.OperatorID,
	}
	app.sessions.OnSubmit = app.flow.SubmitCode

	app.decisions = &service.Decisions{
		OperatorID: app.cfg.OperatorID,
		Directory:  app.directory,
		Ledger:     app.ledger,
		Sessions:   app.sessions,
		Messaging:  app.messaging,
	}

	app.commands = &service.Commands{
		OperatorID: app.cfg.OperatorID,
		Flow:       app.flow,
		Directory:  app.directory,
		Ledger:     app.ledger,
		Decisions:  app.decisions,
		Messaging:  app.messaging,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.sessions,
		app.limiter,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	verifier := &httpx.TokenVerifier{
		Secret: []byte(app.cfg.TokenSecret),
		Issuer: app.cfg.TokenIssuer,
	}

	router := httpapi.NewRouter(verifier, BuildVersion, app.db, app.logger)

	// Wire services to router
	router.Flow = app.flow
	router.Directory = app.directory
	router.Ledger = app.ledger
	router.Decisions = app.decisions
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Commands exposes the operator command surface for transports that
// deliver chat messages directly to the process.
func (app *Application) Commands() *service.Commands {
	return app.commands
}
