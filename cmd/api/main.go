package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/civicgrid/resident-portal/api/routes"
	"github.com/civicgrid/resident-portal/internal/batches"
	"github.com/civicgrid/resident-portal/internal/claims"
	"github.com/civicgrid/resident-portal/internal/inventory"
	"github.com/civicgrid/resident-portal/internal/reporting"
	"github.com/civicgrid/resident-portal/internal/residents"
	"github.com/civicgrid/resident-portal/pkg/config"
	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/logger"
	"github.com/civicgrid/resident-portal/pkg/metrics"
	"github.com/civicgrid/resident-portal/pkg/migrate"
	"github.com/civicgrid/resident-portal/pkg/outbox"
	"github.com/civicgrid/resident-portal/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := buildServices(dbClient, logg, metrics.NewClaimMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, metrics.NewHTTPMetrics(registry), services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func buildServices(dbClient *db.Client, logg *logger.Logger, claimMetrics *metrics.ClaimMetrics) (routes.Services, error) {
	conn := dbClient.DB()
	inventoryRepo := inventory.NewRepository(conn)
	batchRepo := batches.NewRepository(conn)
	claimRepo := claims.NewRepository(conn)
	residentRepo := residents.NewRepository(conn)
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, events, logg)
	if err != nil {
		return routes.Services{}, err
	}
	batchService, err := batches.NewService(batchRepo, inventoryRepo, residentRepo, dbClient, events, logg)
	if err != nil {
		return routes.Services{}, err
	}
	claimService, err := claims.NewService(claims.Deps{
		Repo:      claimRepo,
		Batches:   batchRepo,
		Inventory: inventoryRepo,
		Residents: residentRepo,
		Tx:        dbClient,
		Outbox:    events,
		Metrics:   claimMetrics,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	reportingService, err := reporting.NewService(batchRepo, claimRepo, residentRepo)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Inventory: inventoryService,
		Batches:   batchService,
		Claims:    claimService,
		Reporting: reportingService,
	}, nil
}
