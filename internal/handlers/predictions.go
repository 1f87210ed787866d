package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/openhoops/match-predictor/internal/datasource"
	"github.com/openhoops/match-predictor/internal/models"
)

// PredictMatch returns the home-win probability for a matchup
// @Summary Predict Match
// @Description Team feature vectors may be supplied; missing ones are derived from stored game logs
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body models.MatchPredictionRequest true "Matchup"
// @Success 200 {object} models.Prediction
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Unknown team"
// @Failure 422 {object} map[string]string "Team not seen during training"
// @Failure 429 {object} map[string]string "Rate limited"
// @Failure 503 {object} map[string]string "Model not loaded"
// @Router /predict [post]
func (h *Handler) PredictMatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	defer r.Body.Close()

	var req models.MatchPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pred, err := h.prediction.PredictMatch(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, pred)
}

// GetPredictionHistory returns every prediction served since startup
// @Summary Prediction History
// @Tags Predictions
// @Produce json
// @Success 200 {array} models.HistoricalPrediction
// @Router /predictions/history [get]
func (h *Handler) GetPredictionHistory(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.prediction.History())
}

// GetTeams lists known teams
// @Summary List Teams
// @Tags Teams
// @Produce json
// @Success 200 {array} models.Team
// @Router /teams [get]
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.prediction.Teams(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, teams)
}

// GetTeamFeatures returns a team's current feature vector
// @Summary Team Features
// @Tags Teams
// @Produce json
// @Param id path int true "Team ID"
// @Param season query string false "Season, e.g. 2023-24"
// @Success 200 {object} models.TeamFeatures
// @Failure 404 {object} map[string]string "Not Found"
// @Router /teams/{id}/features [get]
func (h *Handler) GetTeamFeatures(w http.ResponseWriter, r *http.Request) {
	id, ok := h.teamIDParam(w, r, "id")
	if !ok {
		return
	}

	tf, err := h.prediction.TeamFeatures(r.Context(), id, r.URL.Query().Get("season"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, tf)
}

// CompareTeams returns per-feature differences between two teams
// @Summary Compare Teams
// @Tags Teams
// @Produce json
// @Param teamA path int true "Team A ID"
// @Param teamB path int true "Team B ID"
// @Param season query string false "Season"
// @Success 200 {object} models.TeamComparison
// @Router /teams/compare/{teamA}/{teamB} [get]
func (h *Handler) CompareTeams(w http.ResponseWriter, r *http.Request) {
	a, ok := h.teamIDParam(w, r, "teamA")
	if !ok {
		return
	}
	b, ok := h.teamIDParam(w, r, "teamB")
	if !ok {
		return
	}

	cmp, err := h.prediction.CompareTeams(r.Context(), a, b, r.URL.Query().Get("season"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, cmp)
}

// IngestGames stores team game log rows
// @Summary Ingest Game Logs
// @Description Accepts a JSON array of game rows, or a CSV export with Content-Type text/csv
// @Tags Ingestion
// @Accept json
// @Accept text/csv
// @Produce json
// @Param body body []models.GameRecord true "Game rows"
// @Success 202 {object} models.IngestGamesResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 413 {object} map[string]string "Too Large"
// @Router /games [post]
func (h *Handler) IngestGames(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxIngestBodySize)
	defer r.Body.Close()

	var (
		games []models.GameRecord
		err   error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		games, err = datasource.LoadCSV(r.Body)
	} else {
		err = json.NewDecoder(r.Body).Decode(&games)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.logger.Warnw("Failed to decode game rows", "error", err)
		h.errorResponse(w, http.StatusBadRequest, "Invalid game rows")
		return
	}
	if len(games) == 0 {
		h.errorResponse(w, http.StatusBadRequest, "No game rows")
		return
	}

	resp, err := h.prediction.IngestGames(r.Context(), games)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusAccepted, resp)
}

// GetModelInfo describes the serving model
// @Summary Model Info
// @Tags Model
// @Produce json
// @Success 200 {object} models.ModelInfo
// @Failure 503 {object} map[string]string "Model not loaded"
// @Router /model [get]
func (h *Handler) GetModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.prediction.ModelInfo()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, info)
}

// ReloadModel reloads the artifact from disk
// @Summary Reload Model
// @Description On failure the previous model keeps serving
// @Tags Model
// @Produce json
// @Success 200 {object} models.ModelInfo
// @Failure 500 {object} map[string]string "Artifact could not be loaded"
// @Router /model/reload [post]
func (h *Handler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	info, err := h.prediction.ReloadModel(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Infow("Model reloaded", "version", info.Version)
	h.jsonResponse(w, http.StatusOK, info)
}

func (h *Handler) teamIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.errorResponse(w, http.StatusBadRequest, "Invalid team ID")
		return 0, false
	}
	return id, true
}
