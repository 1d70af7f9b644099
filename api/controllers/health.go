package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/civicgrid/resident-portal/api/responses"
	"github.com/civicgrid/resident-portal/pkg/config"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is anything the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Portal-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis; a failing dependency answers 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Portal-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		var failed *pkgerrors.Error
		for name, pinger := range map[string]Pinger{"database": dbPinger, "redis": redisPinger} {
			if pinger == nil {
				checks[name] = "skipped"
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				continue
			}
			checks[name] = "ok"
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed.WithDetails(checks))
			return
		}
		if logg != nil {
			logg.Debug(logg.WithField(r.Context(), "checks", checks), "health.ready")
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
