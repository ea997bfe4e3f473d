package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stabledesk/internal/account"
	"stabledesk/internal/api"
	"stabledesk/internal/audit"
	"stabledesk/internal/business"
	"stabledesk/internal/config"
	"stabledesk/internal/daemon"
	"stabledesk/internal/dashboard"
	"stabledesk/internal/database"
	"stabledesk/internal/logger"
	"stabledesk/internal/openfga"
	"stabledesk/internal/organisation"
	"stabledesk/internal/provisioning"
	"stabledesk/internal/ratelimit"
	"stabledesk/internal/storage"
	"stabledesk/internal/stripe"
	"stabledesk/internal/telemetry"
	"stabledesk/internal/validator"

	"github.com/gofiber/storage/postgres/v3"
	"github.com/shopspring/decimal"
)

const (
	abandonedRunInterval = time.Minute
	abandonedRunMaxAge   = 15 * time.Minute
	shutdownTimeout      = 10 * time.Second
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "stabledesk:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
		}
	}()

	log := logger.New(cfg).Logger

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return err
	}

	decimal.MarshalJSONWithoutQuotes = true

	// Set up Postgres connection
	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns)); err != nil {
		log.Error("Failed to initialize database", "error", err)
		return err
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Error("Database is not reachable", "error", err)
		return err
	}

	sessionStorage := postgres.New(postgres.Config{
		ConnectionURI: cfg.Database.URL,
		Table:         api.SessionTable,
		Reset:         false,
		GCInterval:    10 * time.Second,
	})
	defer sessionStorage.Close()
	sessions := api.NewSessionStore(sessionStorage, cfg.Server)

	var loginLimiter api.LoginLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := ratelimit.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			return err
		}
		defer redisClient.Close()
		loginLimiter = ratelimit.NewLoginLimiter(log, ratelimit.NewRedisCounter(redisClient), cfg.Server.LoginMaxAttempts, cfg.Server.LoginWindow)
	} else {
		log.Warn("REDIS_URL is not set, login attempts are limited per process")
	}

	photos, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Error("Failed to initialize photo storage", "error", err)
		return err
	}

	authz, err := openfga.NewClient(log, cfg.OpenFGA)
	if err != nil {
		return err
	}
	if err := authz.Ping(ctx); err != nil {
		log.Error("OpenFGA is not reachable", "error", err)
		return err
	}

	billing := stripe.NewClient(log, cfg.Stripe)

	v := validator.New()
	auditor := audit.NewAuditor(log, &db)
	authenticator := account.NewAuthenticator(log, &db, v, auditor)
	accounts := account.NewManager(log, &db, v)
	organisations := organisation.NewManager(log, &db, v, authz, auditor)
	provisioner := provisioning.NewProvisioner(log, provisioning.NewDatabaseBackend(&db), v, accounts, billing, authz, auditor, metrics)
	businessManager := business.NewManager(log, &db, v, photos, auditor, metrics)
	dashboardService := dashboard.NewService(log, &db)

	if _, err := authenticator.EnsureBootstrapOperator(ctx, account.CreateOperatorParam{
		Email:    cfg.Bootstrap.AdminEmail,
		Name:     cfg.Bootstrap.AdminName,
		Password: cfg.Bootstrap.AdminPassword,
	}); err != nil {
		log.Error("Failed to bootstrap operator", "error", err)
		return err
	}

	app := api.NewApp(api.Deps{
		Logger:        log,
		Server:        cfg.Server,
		DB:            &db,
		Sessions:      sessions,
		Validator:     v,
		LoginLimiter:  loginLimiter,
		Authenticator: authenticator,
		Accounts:      accounts,
		Organisations: organisations,
		Provisioner:   provisioner,
		Business:      businessManager,
		Dashboard:     dashboardService,
		Auditor:       auditor,
		Metrics:       metrics,
	})

	manager := daemon.NewDaemonManager(log)
	manager.Add("abandoned-provisioning-runs", daemon.AbandonedRunsTask(log, provisioner, abandonedRunInterval, abandonedRunMaxAge))

	log.Info("Starting supervised daemons...")
	manager.Start(ctx)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server...", "addr", addr)
		serverErr <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("HTTP server stopped", "error", err)
			cancel()
			manager.Wait()
			return err
		}
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("Error shutting down HTTP server", "error", err)
	}

	manager.Wait()
	log.Info("All daemons stopped")
	return nil
}
