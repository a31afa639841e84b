package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cbamflow/cbamflow/internal/app"
	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/platform/cache"
	"github.com/cbamflow/cbamflow/internal/platform/db"
	"github.com/cbamflow/cbamflow/internal/refdata"
	"github.com/cbamflow/cbamflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	store := datastore.NewPGStore(pool)
	refdataService := refdata.NewService(logger, store, redisClient)

	anomalyJob := jobs.NewAnomalyScanJob(pool, logger, nil)
	warmupJob := jobs.NewRefdataWarmupJob(refdataService, logger, nil)
	reminderJob := jobs.NewDeclarationReminderJob(&jobs.PGDeclarationRepository{Pool: pool}, jobsClient, logger, nil)

	anomalyTask, err := jobs.NewAnomalyScanTask(12, 2.5)
	if err != nil {
		logger.Error("build anomaly task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewRefdataWarmupTask(true)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	reminderTask, err := jobs.NewDeclarationReminderTask(0)
	if err != nil {
		logger.Error("build reminder task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskEmissionsAnomalyScan, Handler: anomalyJob.Handle},
			{Type: jobs.TaskRefdataWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskDeclarationReminder, Handler: reminderJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: anomalyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 6 * * 1", Task: reminderTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// View refresh and integrity checks talk straight to Postgres; they
	// run on local tickers instead of the queue.
	go runEvery(ctx, time.Hour, func(ctx context.Context) {
		if err := jobs.RefreshEmissionViews(ctx, pool, logger); err != nil {
			logger.Warn("emission views refresh", slog.Any("error", err))
		}
	})
	go runEvery(ctx, 24*time.Hour, func(ctx context.Context) {
		if err := jobs.RunTenantIntegrityCheck(ctx, pool, logger); err != nil {
			logger.Warn("tenant integrity check", slog.Any("error", err))
		}
	})

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
