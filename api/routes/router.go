package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicgrid/resident-portal/api/controllers"
	"github.com/civicgrid/resident-portal/api/middleware"
	"github.com/civicgrid/resident-portal/internal/batches"
	"github.com/civicgrid/resident-portal/internal/claims"
	"github.com/civicgrid/resident-portal/internal/inventory"
	"github.com/civicgrid/resident-portal/internal/reporting"
	"github.com/civicgrid/resident-portal/pkg/config"
	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/logger"
	"github.com/civicgrid/resident-portal/pkg/metrics"
)

// CoordinationStore is the redis surface the router needs: idempotency records,
// rate-limit counters, access-session lookups and a readiness ping.
type CoordinationStore interface {
	middleware.ReplayStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
	HasAccessSession(ctx context.Context, accessID string) (bool, error)
	Ping(ctx context.Context) error
}

// Services bundles the ledger services mounted under /api/v1.
type Services struct {
	Inventory inventory.Service
	Batches   batches.Service
	Claims    claims.Service
	Reporting reporting.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store CoordinationStore,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	services Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.Metrics(httpMetrics),
	)

	var (
		verifier   middleware.SessionVerifier
		idemStore  middleware.ReplayStore
		limitStore interface {
			IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
			RateLimitKey(scope string) string
		}
		redisPinger controllers.Pinger
	)
	if store != nil {
		verifier, limitStore, redisPinger = store, store, store
		if cfg.FeatureFlags.Idempotency {
			idemStore = store
		}
	}
	var dbPinger controllers.Pinger
	if dbP != nil {
		dbPinger = dbP
	}

	idempotent := middleware.Idempotency(idemStore, logg)
	claimPolicy := middleware.NewRateLimitPolicy("claim", cfg.RateLimit.ClaimWindow, cfg.RateLimit.ClaimLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, verifier, logg))

		r.Get("/getBenefit/{userId}", controllers.ResidentBenefits(services.Reporting, logg))
		r.Get("/claim-stats/{userId}", controllers.ResidentClaimStats(services.Reporting, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireElevated(logg))

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", controllers.InventoryList(services.Inventory, logg))
				r.With(idempotent).Post("/", controllers.InventoryCreate(services.Inventory, logg))
				r.Put("/{itemId}", controllers.InventoryUpdate(services.Inventory, logg))
				r.Delete("/{itemId}", controllers.InventoryDelete(services.Inventory, logg))
			})

			r.Get("/batches", controllers.BatchList(services.Batches, logg))
			r.Get("/batches/{batchId}", controllers.BatchDetail(services.Batches, logg))

			r.Route("/distribution", func(r chi.Router) {
				r.Get("/all", controllers.DistributionFeed(services.Reporting, logg))
				r.With(idempotent).Post("/batch-generate", controllers.BatchGenerate(services.Batches, logg))
				r.Get("/{batchId}", controllers.DistributionRoster(services.Reporting, logg))
			})

			r.With(
				middleware.RateLimit(claimPolicy, limitStore, logg),
				idempotent,
			).Patch("/claim", controllers.Claim(services.Claims, logg))
		})
	})

	return r
}
