package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/artifact"
	"github.com/openhoops/match-predictor/internal/datasource"
	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/logic"
	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/predictor"
)

var (
	lakers  = models.Team{ID: 1610612747, Abbreviation: "LAL", Name: "Los Angeles Lakers"}
	celtics = models.Team{ID: 1610612738, Abbreviation: "BOS", Name: "Boston Celtics"}
)

func newTestHandler(svc *MockPredictionService) *Handler {
	return New(Config{
		Prediction: svc,
		Logger:     zap.NewNop(),
	})
}

func serve(h *Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body["error"]
}

func TestPredictMatch_Success(t *testing.T) {
	var got models.MatchPredictionRequest
	svc := &MockPredictionService{
		PredictMatchFunc: func(ctx context.Context, req models.MatchPredictionRequest) (*models.Prediction, error) {
			got = req
			return &models.Prediction{
				HomeTeam:        lakers,
				AwayTeam:        celtics,
				HomeWinProb:     0.7,
				AwayWinProb:     0.3,
				PredictedWinner: lakers,
				Confidence:      0.4,
			}, nil
		},
	}
	h := newTestHandler(svc)

	body := `{"home_team_id":1610612747,"away_team_id":1610612738,"home_team_stats":{"pts_avg5":110},"season":"2023-24"}`
	w := serve(h, http.MethodPost, "/api/v1/predict", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got.HomeTeamID != lakers.ID || got.AwayTeamID != celtics.ID || got.Season != "2023-24" {
		t.Errorf("request not passed through: %+v", got)
	}
	if got.HomeFeatures["pts_avg5"] != 110 || got.AwayFeatures != nil {
		t.Errorf("feature maps not passed through: %+v", got)
	}

	var pred models.Prediction
	if err := json.NewDecoder(w.Body).Decode(&pred); err != nil {
		t.Fatalf("failed to decode prediction: %v", err)
	}
	if pred.PredictedWinner.ID != lakers.ID || pred.HomeWinProb != 0.7 {
		t.Errorf("unexpected prediction %+v", pred)
	}
}

func TestPredictMatch_InvalidBody(t *testing.T) {
	called := false
	h := newTestHandler(&MockPredictionService{
		PredictMatchFunc: func(ctx context.Context, req models.MatchPredictionRequest) (*models.Prediction, error) {
			called = true
			return nil, nil
		},
	})

	w := serve(h, http.MethodPost, "/api/v1/predict", `{"home_team_id":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if called {
		t.Error("service should not be called for an undecodable body")
	}
}

func TestPredictMatch_ErrorStatus(t *testing.T) {
	validationErr := models.NewValidator().Struct(models.MatchPredictionRequest{HomeTeamID: 1, AwayTeamID: 1})
	if validationErr == nil {
		t.Fatal("expected a validation error for identical teams")
	}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"Validation", validationErr, http.StatusBadRequest},
		{"Missing Feature", fmt.Errorf("home team: %w", &models.MissingFeatureError{Keys: []string{"stl_avg5"}}), http.StatusBadRequest},
		{"Unknown Category", &features.UnknownCategoryError{TeamID: 99}, http.StatusUnprocessableEntity},
		{"Team Not Found", fmt.Errorf("team 7: %w", logic.ErrTeamNotFound), http.StatusNotFound},
		{"No Games", fmt.Errorf("away team: %w", features.ErrNoGames), http.StatusNotFound},
		{"Model Not Loaded", predictor.ErrModelNotLoaded, http.StatusServiceUnavailable},
		{"Source Unavailable", &datasource.UnavailableError{Op: "teams", Attempts: 3, Err: errors.New("dial tcp")}, http.StatusServiceUnavailable},
		{"Unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&MockPredictionService{
				PredictMatchFunc: func(ctx context.Context, req models.MatchPredictionRequest) (*models.Prediction, error) {
					return nil, tt.err
				},
			})

			w := serve(h, http.MethodPost, "/api/v1/predict", `{"home_team_id":1,"away_team_id":2}`)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if msg := decodeError(t, w); msg == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestPredictMatch_InternalErrorIsNotLeaked(t *testing.T) {
	h := newTestHandler(&MockPredictionService{
		PredictMatchFunc: func(ctx context.Context, req models.MatchPredictionRequest) (*models.Prediction, error) {
			return nil, errors.New("pq: password authentication failed")
		},
	})

	w := serve(h, http.MethodPost, "/api/v1/predict", `{"home_team_id":1,"away_team_id":2}`)
	if msg := decodeError(t, w); strings.Contains(msg, "password") {
		t.Errorf("internal error leaked to client: %q", msg)
	}
}

func TestPredictMatch_RateLimited(t *testing.T) {
	h := New(Config{
		Prediction:     &MockPredictionService{},
		RateLimit:      0.001,
		RateLimitBurst: 1,
		Logger:         zap.NewNop(),
	})
	router := h.Routes()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(`{"home_team_id":1,"away_team_id":2}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected [200 429], got %v", codes)
	}

	// Other endpoints are not limited
	w := serve(h, http.MethodGet, "/api/v1/predictions/history", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected history to be served, got %d", w.Code)
	}
}

func TestGetPredictionHistory(t *testing.T) {
	h := newTestHandler(&MockPredictionService{
		HistoryFunc: func() []models.HistoricalPrediction {
			return []models.HistoricalPrediction{
				{ID: 1, Prediction: models.Prediction{HomeTeam: lakers, AwayTeam: celtics}},
				{ID: 2, Prediction: models.Prediction{HomeTeam: celtics, AwayTeam: lakers}},
			}
		},
	})

	w := serve(h, http.MethodGet, "/api/v1/predictions/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var got []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(got) != 2 || got[0]["id"].(float64) != 1 {
		t.Fatalf("unexpected history %v", got)
	}
	if v, ok := got[0]["actual_winner"]; !ok || v != nil {
		t.Errorf("actual_winner should be present and null, got %v", v)
	}
	if v, ok := got[0]["is_correct"]; !ok || v != nil {
		t.Errorf("is_correct should be present and null, got %v", v)
	}
}

func TestGetPredictionHistory_EmptyIsArray(t *testing.T) {
	h := newTestHandler(&MockPredictionService{})

	w := serve(h, http.MethodGet, "/api/v1/predictions/history", "")
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestGetTeams(t *testing.T) {
	h := newTestHandler(&MockPredictionService{
		TeamsFunc: func(ctx context.Context) ([]models.Team, error) {
			return []models.Team{celtics, lakers}, nil
		},
	})

	w := serve(h, http.MethodGet, "/api/v1/teams", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var teams []models.Team
	if err := json.NewDecoder(w.Body).Decode(&teams); err != nil {
		t.Fatalf("failed to decode teams: %v", err)
	}
	if len(teams) != 2 || teams[1].Abbreviation != "LAL" {
		t.Errorf("unexpected teams %+v", teams)
	}
}

func TestGetTeamFeatures(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		err            error
		expectedStatus int
		expectedSeason string
	}{
		{"Happy Path", "/api/v1/teams/1610612747/features?season=2022-23", nil, http.StatusOK, "2022-23"},
		{"Default Season", "/api/v1/teams/1610612747/features", nil, http.StatusOK, ""},
		{"Bad ID", "/api/v1/teams/lakers/features", nil, http.StatusBadRequest, ""},
		{"Negative ID", "/api/v1/teams/-3/features", nil, http.StatusBadRequest, ""},
		{"Unknown Team", "/api/v1/teams/7/features", fmt.Errorf("team 7: %w", logic.ErrTeamNotFound), http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID int64
			var gotSeason string
			h := newTestHandler(&MockPredictionService{
				TeamFeaturesFunc: func(ctx context.Context, teamID int64, season string) (*models.TeamFeatures, error) {
					gotID, gotSeason = teamID, season
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.TeamFeatures{Team: lakers, Features: models.TeamFeatureVector{TeamID: lakers.ID, PtsAvg5: 112}}, nil
				},
			})

			w := serve(h, http.MethodGet, tt.path, "")
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			if gotID != lakers.ID || gotSeason != tt.expectedSeason {
				t.Errorf("expected (%d, %q), got (%d, %q)", lakers.ID, tt.expectedSeason, gotID, gotSeason)
			}
			var tf models.TeamFeatures
			if err := json.NewDecoder(w.Body).Decode(&tf); err != nil {
				t.Fatalf("failed to decode features: %v", err)
			}
			if tf.Features.PtsAvg5 != 112 {
				t.Errorf("expected pts_avg5 112, got %v", tf.Features.PtsAvg5)
			}
		})
	}
}

func TestCompareTeams(t *testing.T) {
	var gotA, gotB int64
	h := newTestHandler(&MockPredictionService{
		CompareTeamsFunc: func(ctx context.Context, a, b int64, season string) (*models.TeamComparison, error) {
			gotA, gotB = a, b
			return &models.TeamComparison{
				TeamA:  lakers,
				TeamB:  celtics,
				Deltas: []models.FeatureDelta{{Feature: "pts_avg5", TeamA: 110, TeamB: 104, Difference: 6}},
			}, nil
		},
	})

	w := serve(h, http.MethodGet, "/api/v1/teams/compare/1610612747/1610612738", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if gotA != lakers.ID || gotB != celtics.ID {
		t.Errorf("expected ids passed in order, got %d %d", gotA, gotB)
	}
	var cmp models.TeamComparison
	if err := json.NewDecoder(w.Body).Decode(&cmp); err != nil {
		t.Fatalf("failed to decode comparison: %v", err)
	}
	if len(cmp.Deltas) != 1 || cmp.Deltas[0].Difference != 6 {
		t.Errorf("unexpected comparison %+v", cmp)
	}

	w = serve(h, http.MethodGet, "/api/v1/teams/compare/1610612747/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for a bad id, got %d", w.Code)
	}
}

func TestIngestGames(t *testing.T) {
	csvBody := "SEASON_ID,TEAM_ID,TEAM_ABBREVIATION,GAME_ID,GAME_DATE,MATCHUP,WL,PTS\n" +
		"22023,1610612747,LAL,0022300001,2023-10-24,LAL @ DEN,L,107\n" +
		"22023,1610612743,DEN,0022300001,2023-10-24,DEN vs. LAL,W,119\n"

	tests := []struct {
		name           string
		body           string
		headers        []string
		expectedStatus int
		expectedRows   int
	}{
		{
			name:           "JSON Rows",
			body:           `[{"TEAM_ID":1610612747,"TEAM_ABBREVIATION":"LAL","GAME_ID":"0022300001","GAME_DATE":"2023-10-24","MATCHUP":"LAL @ DEN","WL":"L","PTS":107}]`,
			expectedStatus: http.StatusAccepted,
			expectedRows:   1,
		},
		{
			name:           "CSV Rows",
			body:           csvBody,
			headers:        []string{"Content-Type", "text/csv; charset=utf-8"},
			expectedStatus: http.StatusAccepted,
			expectedRows:   2,
		},
		{
			name:           "Invalid JSON",
			body:           `[{"TEAM_ID":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Empty Array",
			body:           `[]`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "CSV Without Team Column",
			body:           "GAME_ID,PTS\n1,100\n",
			headers:        []string{"Content-Type", "text/csv"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []models.GameRecord
			h := newTestHandler(&MockPredictionService{
				IngestGamesFunc: func(ctx context.Context, games []models.GameRecord) (*models.IngestGamesResponse, error) {
					got = games
					return &models.IngestGamesResponse{Accepted: len(games)}, nil
				},
			})

			w := serve(h, http.MethodPost, "/api/v1/games", tt.body, tt.headers...)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if len(got) != tt.expectedRows {
				t.Errorf("expected %d rows passed to the service, got %d", tt.expectedRows, len(got))
			}
		})
	}
}

func TestIngestGames_TooLarge(t *testing.T) {
	h := newTestHandler(&MockPredictionService{})

	body := "[" + strings.Repeat(`{"TEAM_ID":1},`, MaxIngestBodySize/14+1) + `{"TEAM_ID":1}]`
	w := serve(h, http.MethodPost, "/api/v1/games", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", w.Code)
	}
}

func TestModelEndpoints(t *testing.T) {
	info := &models.ModelInfo{Version: "20240101T000000Z", SchemaVersion: "v1", TestAccuracy: 0.66, Teams: 30}

	t.Run("Info Not Loaded", func(t *testing.T) {
		h := newTestHandler(&MockPredictionService{})
		w := serve(h, http.MethodGet, "/api/v1/model", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", w.Code)
		}
	})

	t.Run("Info", func(t *testing.T) {
		h := newTestHandler(&MockPredictionService{
			ModelInfoFunc: func() (*models.ModelInfo, error) { return info, nil },
		})
		w := serve(h, http.MethodGet, "/api/v1/model", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var got models.ModelInfo
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode model info: %v", err)
		}
		if got.Version != info.Version || got.Teams != 30 {
			t.Errorf("unexpected model info %+v", got)
		}
	})

	t.Run("Reload Failure", func(t *testing.T) {
		h := newTestHandler(&MockPredictionService{
			ReloadModelFunc: func(ctx context.Context) (*models.ModelInfo, error) {
				return nil, &artifact.ArtifactLoadError{Path: "models/x_encoders.json", Part: "encoders", Err: errors.New("no such file")}
			},
		})
		w := serve(h, http.MethodPost, "/api/v1/model/reload", "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", w.Code)
		}
		if msg := decodeError(t, w); !strings.Contains(msg, "encoders") {
			t.Errorf("expected the failing part in the message, got %q", msg)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		h := newTestHandler(&MockPredictionService{
			ReloadModelFunc: func(ctx context.Context) (*models.ModelInfo, error) { return info, nil },
		})
		w := serve(h, http.MethodPost, "/api/v1/model/reload", "")
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&MockPredictionService{})
	w := serve(h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
}

func TestReady(t *testing.T) {
	loaded := func() (*models.ModelInfo, error) { return &models.ModelInfo{Version: "v"}, nil }
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name           string
		checks         map[string]CheckFunc
		modelInfo      func() (*models.ModelInfo, error)
		expectedStatus int
	}{
		{"All Healthy", map[string]CheckFunc{"postgres": ok, "redis": ok}, loaded, http.StatusOK},
		{"Redis Down", map[string]CheckFunc{"postgres": ok, "redis": down}, loaded, http.StatusServiceUnavailable},
		{"No Model", map[string]CheckFunc{"postgres": ok}, nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(Config{
				Prediction: &MockPredictionService{ModelInfoFunc: tt.modelInfo},
				AuditQueue: &MockQueue{Depth: 3},
				Checks:     tt.checks,
				Logger:     zap.NewNop(),
			})

			w := serve(h, http.MethodGet, "/ready", "")
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var body struct {
				Ready      bool            `json:"ready"`
				Checks     map[string]bool `json:"checks"`
				QueueDepth int             `json:"queueDepth"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode readiness: %v", err)
			}
			if body.Ready != (tt.expectedStatus == http.StatusOK) {
				t.Errorf("ready flag %v does not match status", body.Ready)
			}
			if len(body.Checks) != len(tt.checks)+1 {
				t.Errorf("expected %d checks, got %v", len(tt.checks)+1, body.Checks)
			}
			if body.QueueDepth != 3 {
				t.Errorf("expected queue depth 3, got %d", body.QueueDepth)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(&MockPredictionService{})
	w := serve(h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}
