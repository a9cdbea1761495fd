package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/datavault/internal/http/middlewares"
)

// Pinger es lo mínimo que necesitamos de cada dependencia para /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps agrupa lo que el router necesita además de los handlers.
type RouterDeps struct {
	Handlers *Handlers
	Registry prometheus.Registerer

	// Dependencias consultadas por /readyz. Nil = no se chequea.
	Catalog Pinger
	Bus     Pinger
}

// NewRouter arma el mux completo: middlewares globales, rutas v1 y
// endpoints operacionales (/healthz, /readyz, /metrics).
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	metricsHandler := RegisterMetrics(deps.Registry)

	r.Use(
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
		WithMetrics(),
	)

	r.Route("/v1/datasets", func(r chi.Router) {
		r.Post("/", deps.Handlers.Ingest)
		r.Get("/", deps.Handlers.ListVersions)
		r.Get("/active", deps.Handlers.GetActive)
		r.Get("/{versionID}", deps.Handlers.GetVersion)
		r.Get("/{versionID}/payload", deps.Handlers.GetPayload)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyz(deps.Catalog, deps.Bus))
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	return r
}

func readyz(catalog, bus Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type check struct {
			name string
			p    Pinger
		}
		for _, c := range []check{{"catalog", catalog}, {"events", bus}} {
			if c.p == nil {
				continue
			}
			if err := c.p.Ping(r.Context()); err != nil {
				WriteError(w, http.StatusServiceUnavailable, "not_ready", c.name+" unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
