package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/openhoops/match-predictor/internal/artifact"
	"github.com/openhoops/match-predictor/internal/datasource"
	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/logic"
	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/predictor"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint. The service is ready when every dependency answers
// and a model is loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]bool, len(names)+1)
	allHealthy := true
	for _, name := range names {
		err := h.checks[name](ctx)
		checks[name] = err == nil
		if err != nil {
			allHealthy = false
			h.logger.Warnw("Readiness check failed", "check", name, "error", err)
		}
	}

	_, err := h.prediction.ModelInfo()
	checks["model"] = err == nil
	if err != nil {
		allHealthy = false
	}

	body := map[string]interface{}{
		"ready":  allHealthy,
		"checks": checks,
	}
	if h.queue != nil {
		body["queueDepth"] = h.queue.QueueDepth()
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, body)
}

// RateLimitMiddleware rejects requests above the configured rate with 429
func (h *Handler) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			h.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError maps service errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		validationErrs validator.ValidationErrors
		missing        *models.MissingFeatureError
		unknown        *features.UnknownCategoryError
		loadErr        *artifact.ArtifactLoadError
	)

	switch {
	case errors.As(err, &validationErrs), errors.As(err, &missing), errors.Is(err, logic.ErrInvalidAuditQuery):
		h.errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unknown):
		h.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, logic.ErrTeamNotFound), errors.Is(err, features.ErrNoGames):
		h.errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, predictor.ErrModelNotLoaded):
		h.errorResponse(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, datasource.ErrSourceUnavailable):
		h.logger.Errorw("Historical data source unavailable", "error", err)
		h.errorResponse(w, http.StatusServiceUnavailable, "Historical data source unavailable")
	case errors.As(err, &loadErr):
		h.logger.Errorw("Model artifact could not be loaded", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, err.Error())
	default:
		h.logger.Errorw("Request failed", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
