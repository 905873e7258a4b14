// Package httpapi assembles the HTTP surface: middleware, the per-domain
// handlers, and the operational endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	caseshandler "drs/internal/cases/handler"
	gsmahandler "drs/internal/gsma/handler"
	notificationhandler "drs/internal/notification/handler"
	"drs/internal/platform/middleware"
	quotahandler "drs/internal/quota/handler"
	reviewhandler "drs/internal/review/handler"
	"drs/pkg/platform/httputil"
)

// Pinger reports the health of a backing dependency.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps carries everything the router mounts. Nil handlers and health probes
// are skipped, which keeps partial wiring (tests, memory-only runs) simple.
type Deps struct {
	Auth          middleware.Validator
	Cases         *caseshandler.Handler
	Review        *reviewhandler.Handler
	Notifications *notificationhandler.Handler
	Quota         *quotahandler.Handler
	GSMA          *gsmahandler.Handler

	DB     Pinger
	Redis  interface{ Health(ctx context.Context) error }
	Logger *slog.Logger
}

// New builds the chi router with the standard middleware stack.
func New(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestMetadata)

	r.Get("/healthz", healthHandler(deps))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(middleware.RequireAuth(deps.Auth, logger))
		}
		if deps.Cases != nil {
			deps.Cases.Register(r)
		}
		if deps.Review != nil {
			deps.Review.Register(r)
		}
		if deps.Notifications != nil {
			deps.Notifications.Register(r)
		}
		if deps.Quota != nil {
			deps.Quota.Register(r)
		}
		if deps.GSMA != nil {
			deps.GSMA.Register(r)
		}
	})

	return r
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if deps.DB != nil {
			if err := deps.DB.PingContext(ctx); err != nil {
				checks["database"] = err.Error()
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}
		if deps.Redis != nil {
			if err := deps.Redis.Health(ctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, checks)
	}
}
