package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/civicgrid/resident-portal/internal/cron"
	"github.com/civicgrid/resident-portal/internal/inventory"
	"github.com/civicgrid/resident-portal/pkg/config"
	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/logger"
	"github.com/civicgrid/resident-portal/pkg/metrics"
	"github.com/civicgrid/resident-portal/pkg/migrate"
	"github.com/civicgrid/resident-portal/pkg/outbox"
	"github.com/civicgrid/resident-portal/pkg/redis"
)

const (
	serviceName   = "cron-worker"
	lockKeyFormat = "portal:cron-worker:lock:%s"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	outboxRepo := outbox.NewRepository(dbClient.DB())
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           logg,
		DB:               dbClient,
		Repository:       outboxRepo,
		Retention:        time.Duration(cfg.Cron.OutboxRetentionDays) * 24 * time.Hour,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return err
	}
	audit, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{
		Logger:  logg,
		Auditor: inventory.NewAuditor(dbClient.DB()),
		Gauge:   jobMetrics,
	})
	if err != nil {
		return err
	}

	dlqReport, err := cron.NewDLQReportJob(cron.DLQReportJobParams{
		Logger:      logg,
		Repository:  outbox.NewDLQRepository(dbClient.DB()),
		Pending:     outboxRepo,
		MaxAttempts: cfg.Outbox.MaxAttempts,
		Window:      cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	// The lease outlives one cycle so a slow run is never overlapped.
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 2*cfg.Cron.Interval)
	if err != nil {
		return err
	}

	jobs, err := cron.NewRegistry(retention, audit, dlqReport)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    service.Interval().String(),
		"jobs":        jobs.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if runErr := service.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
