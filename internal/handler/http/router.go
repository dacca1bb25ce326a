package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/odds-analytics-service/internal/metrics"
)

// ReadyCheck is one dependency checked by /ready
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterConfig holds HTTP routing configuration
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration // e.g., 30 * time.Second
}

// NewRouter builds the service's HTTP routes
func NewRouter(
	odds *OddsHandler,
	generation *GenerationHandler,
	checks []ReadyCheck,
	cfg RouterConfig,
	logger zerolog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health and monitoring endpoints
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(checks, logger))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

		r.Get("/events", odds.GetEvents)
		r.Get("/events/live", odds.GetLiveEvents)
		r.Get("/leagues", odds.GetLeagues)
		r.Get("/sports", odds.GetSports)
		r.Get("/bookmakers", odds.GetBookmakers)
		r.Get("/participants", odds.GetParticipants)
		r.Get("/participants/{participant_id}", odds.GetParticipant)
		r.Get("/odds", odds.GetOdds)
		r.Get("/odds/movements", odds.GetMovements)
		r.Get("/value-bets", odds.GetValueBets)
		r.Get("/arbitrage", odds.GetArbitrage)

		r.Post("/generate", generation.Generate)
		r.Get("/files/{request_id}", generation.GetFile)
	})

	return r
}

// healthHandler returns 200 if service is running
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// readyHandler returns 200 when every check passes
func readyHandler(checks []ReadyCheck, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.Warn().Err(err).Str("dependency", c.Name).Msg("readiness check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(c.Name + " unavailable"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}
