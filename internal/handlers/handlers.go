package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openhoops/match-predictor/internal/logic"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// MaxIngestBodySize limits game log uploads to 16MB
const MaxIngestBodySize = 16 << 20

// QueueDepther reports the depth of the audit queue
type QueueDepther interface {
	QueueDepth() int
}

// CheckFunc is one readiness probe
type CheckFunc func(ctx context.Context) error

type Config struct {
	Prediction     logic.PredictionService
	AuditStats     logic.AuditStatsService // nil when the audit trail is disabled
	AuditQueue     QueueDepther
	Checks         map[string]CheckFunc
	AllowedOrigins []string
	// Requests per second allowed on the prediction endpoint; zero disables limiting
	RateLimit      float64
	RateLimitBurst int
	Logger         *zap.Logger
}

type Handler struct {
	prediction     logic.PredictionService
	auditStats     logic.AuditStatsService
	queue          QueueDepther
	checks         map[string]CheckFunc
	allowedOrigins []string
	limiter        *rate.Limiter
	logger         *zap.SugaredLogger
}

func New(cfg Config) *Handler {
	h := &Handler{
		prediction:     cfg.Prediction,
		auditStats:     cfg.AuditStats,
		queue:          cfg.AuditQueue,
		checks:         cfg.Checks,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         cfg.Logger.Sugar(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return h
}

// Routes builds the HTTP router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(h.RateLimitMiddleware).Post("/predict", h.PredictMatch)
		r.Get("/predictions/history", h.GetPredictionHistory)
		r.Get("/predictions/audit", h.GetAuditStats)

		r.Get("/teams", h.GetTeams)
		r.Get("/teams/compare/{teamA}/{teamB}", h.CompareTeams)
		r.Get("/teams/{id}/features", h.GetTeamFeatures)

		r.Post("/games", h.IngestGames)

		r.Get("/model", h.GetModelInfo)
		r.Post("/model/reload", h.ReloadModel)
	})

	return r
}
