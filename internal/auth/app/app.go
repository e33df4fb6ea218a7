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

	httpapi "github.com/aussiebroadwan/authd/internal/auth/http"
	"github.com/aussiebroadwan/authd/internal/auth/mail"
	"github.com/aussiebroadwan/authd/internal/auth/metrics"
	"github.com/aussiebroadwan/authd/internal/auth/service"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/aussiebroadwan/authd/internal/auth/store/drivers/postgres"
	redisstore "github.com/aussiebroadwan/authd/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/authd/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authd/pkg/clockx"
	"github.com/aussiebroadwan/authd/pkg/cryptox"
	"github.com/aussiebroadwan/authd/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	sessions    store.Sessions
	redisClient *redis.Client // only with the redis session backend
	registry    *prometheus.Registry

	// Services
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "authd",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		logger: NewLogger(cfg),
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initSessions(ctx); err != nil {
		_ = app.closeStores()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until ctx is cancelled, a shutdown
// signal arrives or the server fails.
func (app *Application) Run(ctx context.Context) error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.HTTP.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
	case <-ctx.Done():
		app.logger.Info("shutdown requested", "reason", context.Cause(ctx))
	}

	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.HTTP.ShutdownGrace)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the routed HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

func (app *Application) closeStores() error {
	var errs []error
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStore connects the configured SQL driver without migrating it.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.DB.Driver {
	case "postgres":
		db, err := postgres.NewStore(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "sqlite":
		db, err := sqlite.NewStore(sqlite.FileDSN(cfg.DB.DSN))
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open sqlite").Wrap(err)
		}
		return db, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return oops.Code("MIGRATION_FAILED").With("driver", app.cfg.DB.Driver).Wrap(err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DB.Driver)
	return nil
}

// initSessions selects the session backend. Users and codes always live in
// the SQL store.
func (app *Application) initSessions(ctx context.Context) error {
	if app.cfg.Sessions.Backend != "redis" {
		app.sessions = app.db.Sessions()
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     app.cfg.Redis.Addr,
		Password: app.cfg.Redis.Password,
		DB:       app.cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return oops.Code("REDIS_CONNECT_FAILED").With("addr", app.cfg.Redis.Addr).Wrap(err)
	}
	app.redisClient = rdb
	app.sessions = redisstore.NewSessionStore(rdb, app.cfg.Redis.Prefix)

	app.logger.Info("redis session backend enabled", "addr", app.cfg.Redis.Addr)
	return nil
}

// NewMailer builds the configured transport behind a retrying wrapper.
func NewMailer(cfg Config) mail.Mailer {
	var next mail.Mailer
	switch cfg.Mail.Driver {
	case "smtp":
		next = &mail.SMTPMailer{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.Mail.From,
		}
	default:
		next = mail.LogMailer{From: cfg.Mail.From}
	}
	return mail.RetryMailer{Next: next, Retries: uint64(cfg.Mail.Retries)}
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	clock := clockx.System{}

	codec, err := InitTokenCodec(app.cfg, clock, app.logger)
	if err != nil {
		return err
	}

	pepper, err := cryptox.LoadOrGeneratePepper(app.cfg.Pepper.File)
	if err != nil {
		return oops.Code("PEPPER_UNAVAILABLE").With("path", app.cfg.Pepper.File).Wrap(err)
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.RegisterMetrics(app.registry)

	app.authService = &service.AuthService{
		Users:     app.db.Users(),
		Sessions:  app.sessions,
		Codes:     app.db.VerificationCodes(),
		Hasher:    cryptox.NewPasswordHasher(pepper),
		Codec:     codec,
		Mailer:    NewMailer(app.cfg),
		Clock:     clock,
		AppOrigin: app.cfg.App.Origin,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.sessions,
		app.db.VerificationCodes(),
		clock,
		app.logger,
		app.cfg.Housekeeping.Interval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.authService, httpapi.CookieConfig{
		Secure:     app.cfg.Env != "dev",
		AccessTTL:  app.cfg.JWT.AccessTTL,
		RefreshTTL: service.SessionTTL,
	}, BuildVersion, app.logger)

	router.Gatherer = app.registry
	router.Checks = []httpapi.ReadyCheck{{Name: "database", Pinger: app.db}}
	if p, ok := app.sessions.(httpapi.Pinger); ok && app.redisClient != nil {
		router.Checks = append(router.Checks, httpapi.ReadyCheck{Name: "sessions", Pinger: p})
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// RunHousekeeping performs a single cleanup pass outside the server loop.
func (app *Application) RunHousekeeping(ctx context.Context) service.HousekeepingResult {
	return app.housekeepingService.RunOnce(ctx)
}

// Close releases the stores of an application that was never Run.
func (app *Application) Close() error {
	return app.closeStores()
}
