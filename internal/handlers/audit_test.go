package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/logic"
	"github.com/openhoops/match-predictor/internal/models"
)

func TestGetAuditStats_Disabled(t *testing.T) {
	h := newTestHandler(&MockPredictionService{})

	w := serve(h, http.MethodGet, "/api/v1/predictions/audit", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestGetAuditStats(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		serviceErr     error
		expectedStatus int
		check          func(t *testing.T, req models.AuditQuery)
	}{
		{
			name:           "Parses Filters",
			query:          "?dimension=model_version&metric=confidence&model_version=v2&team_id=1610612747&start=2024-01-01&end=2024-02-01T12:00:00Z&limit=5",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, req models.AuditQuery) {
				if req.Dimension != "model_version" || req.Metric != "confidence" || req.ModelVersion != "v2" {
					t.Errorf("unexpected request %+v", req)
				}
				if req.TeamID != 1610612747 || req.Limit != 5 {
					t.Errorf("unexpected numeric filters %+v", req)
				}
				if !req.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("unexpected start %v", req.Start)
				}
				if !req.End.Equal(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)) {
					t.Errorf("unexpected end %v", req.End)
				}
			},
		},
		{name: "Bad Team", query: "?team_id=lakers", expectedStatus: http.StatusBadRequest},
		{name: "Bad Limit", query: "?limit=ten", expectedStatus: http.StatusBadRequest},
		{name: "Bad Start", query: "?start=yesterday", expectedStatus: http.StatusBadRequest},
		{
			name:           "Invalid Dimension",
			query:          "?dimension=nope",
			serviceErr:     fmt.Errorf("%w: dimension %q", logic.ErrInvalidAuditQuery, "nope"),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got models.AuditQuery
			h := New(Config{
				Prediction: &MockPredictionService{},
				AuditStats: &MockAuditStats{
					AuditStatsFunc: func(ctx context.Context, req models.AuditQuery) ([]models.AuditBucket, error) {
						got = req
						if tt.serviceErr != nil {
							return nil, tt.serviceErr
						}
						return []models.AuditBucket{{Label: "v2", Value: 0.4, Count: 10}}, nil
					},
				},
				Logger: zap.NewNop(),
			})

			w := serve(h, http.MethodGet, "/api/v1/predictions/audit"+tt.query, "")
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.check != nil {
				tt.check(t, got)
				var buckets []models.AuditBucket
				if err := json.NewDecoder(w.Body).Decode(&buckets); err != nil {
					t.Fatalf("failed to decode buckets: %v", err)
				}
				if len(buckets) != 1 || buckets[0].Count != 10 {
					t.Errorf("unexpected buckets %+v", buckets)
				}
			}
		})
	}
}
