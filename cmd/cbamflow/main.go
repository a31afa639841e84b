package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cbamflow/cbamflow/internal/app"
	"github.com/cbamflow/cbamflow/internal/auth"
	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/company"
	"github.com/cbamflow/cbamflow/internal/dashboard"
	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/declaration"
	"github.com/cbamflow/cbamflow/internal/emissions"
	"github.com/cbamflow/cbamflow/internal/installation"
	"github.com/cbamflow/cbamflow/internal/observability"
	"github.com/cbamflow/cbamflow/internal/platform/cache"
	"github.com/cbamflow/cbamflow/internal/platform/db"
	"github.com/cbamflow/cbamflow/internal/refdata"
	"github.com/cbamflow/cbamflow/internal/reporting"
	"github.com/cbamflow/cbamflow/internal/shared"
	"github.com/cbamflow/cbamflow/internal/supplier"
	"github.com/cbamflow/cbamflow/internal/tenant"
	"github.com/cbamflow/cbamflow/internal/users"
	"github.com/cbamflow/cbamflow/jobs"
	"github.com/cbamflow/cbamflow/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Sessions and the job queue both live in Redis, so a dead Redis is
	// fatal at startup.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "cbamflow_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	store := datastore.NewPGStore(pool)
	resolver := tenant.NewResolver(auth.SessionClaims{}, store)
	authzMW := authz.Middleware{Logger: logger}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, authzMW)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	companyHandler := company.NewHandler(logger, company.NewService())
	installationHandler := installation.NewHandler(logger, installation.NewService())
	emissionsHandler := emissions.NewHandler(logger, emissions.NewService())
	supplierHandler := supplier.NewHandler(logger, supplier.NewService(logger, jobsClient, cfg.BaseURL))
	declarationHandler := declaration.NewHandler(logger, declaration.NewService())
	dashboardHandler := dashboard.NewHandler(logger, dashboard.NewService())
	refdataHandler := refdata.NewHandler(logger, refdata.NewService(logger, store, redisClient))

	pdfClient := report.NewClient(cfg.GotenbergURL)
	reportingHandler := reporting.NewHandler(logger, reporting.NewService(pdfClient))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		Resolver:            resolver,
		Authz:               authzMW,
		AuthHandler:         authHandler,
		UsersHandler:        usersHandler,
		CompanyHandler:      companyHandler,
		InstallationHandler: installationHandler,
		EmissionsHandler:    emissionsHandler,
		SupplierHandler:     supplierHandler,
		DeclarationHandler:  declarationHandler,
		DashboardHandler:    dashboardHandler,
		RefdataHandler:      refdataHandler,
		ReportingHandler:    reportingHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
