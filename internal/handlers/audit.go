package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/openhoops/match-predictor/internal/models"
)

// GetAuditStats aggregates the prediction audit trail
// @Summary Prediction Audit Stats
// @Tags Predictions
// @Produce json
// @Param dimension query string false "model_version, home_team, away_team, winner, feature_source or day"
// @Param metric query string false "predictions, confidence, home_win_prob or home_pick_rate"
// @Param model_version query string false "Only this model version"
// @Param team_id query int false "Only matchups involving this team"
// @Param start query string false "RFC3339 or YYYY-MM-DD"
// @Param end query string false "RFC3339 or YYYY-MM-DD"
// @Param limit query int false "Max buckets (default 100)"
// @Success 200 {array} models.AuditBucket
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 503 {object} map[string]string "Audit trail disabled"
// @Router /predictions/audit [get]
func (h *Handler) GetAuditStats(w http.ResponseWriter, r *http.Request) {
	if h.auditStats == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "Prediction audit is not configured")
		return
	}

	q := r.URL.Query()
	req := models.AuditQuery{
		Dimension:    q.Get("dimension"),
		Metric:       q.Get("metric"),
		ModelVersion: q.Get("model_version"),
	}

	var err error
	if v := q.Get("team_id"); v != "" {
		if req.TeamID, err = strconv.ParseInt(v, 10, 64); err != nil {
			h.errorResponse(w, http.StatusBadRequest, "Invalid team_id")
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil {
			h.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
	}
	if req.Start, err = parseTimeParam(q.Get("start")); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid start")
		return
	}
	if req.End, err = parseTimeParam(q.Get("end")); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid end")
		return
	}

	buckets, err := h.auditStats.AuditStats(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, buckets)
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
