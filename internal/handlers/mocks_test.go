package handlers

import (
	"context"

	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/predictor"
)

// MockPredictionService
type MockPredictionService struct {
	PredictMatchFunc func(ctx context.Context, req models.MatchPredictionRequest) (*models.Prediction, error)
	HistoryFunc      func() []models.HistoricalPrediction
	TeamsFunc        func(ctx context.Context) ([]models.Team, error)
	TeamFeaturesFunc func(ctx context.Context, teamID int64, season string) (*models.TeamFeatures, error)
	CompareTeamsFunc func(ctx context.Context, a, b int64, season string) (*models.TeamComparison, error)
	ModelInfoFunc    func() (*models.ModelInfo, error)
	ReloadModelFunc  func(ctx context.Context) (*models.ModelInfo, error)
	IngestGamesFunc  func(ctx context.Context, games []models.GameRecord) (*models.IngestGamesResponse, error)
}

func (m *MockPredictionService) PredictMatch(ctx context.Context, req models.MatchPredictionRequest) (*models.Prediction, error) {
	if m.PredictMatchFunc != nil {
		return m.PredictMatchFunc(ctx, req)
	}
	return &models.Prediction{}, nil
}

func (m *MockPredictionService) History() []models.HistoricalPrediction {
	if m.HistoryFunc != nil {
		return m.HistoryFunc()
	}
	return []models.HistoricalPrediction{}
}

func (m *MockPredictionService) Teams(ctx context.Context) ([]models.Team, error) {
	if m.TeamsFunc != nil {
		return m.TeamsFunc(ctx)
	}
	return nil, nil
}

func (m *MockPredictionService) TeamFeatures(ctx context.Context, teamID int64, season string) (*models.TeamFeatures, error) {
	if m.TeamFeaturesFunc != nil {
		return m.TeamFeaturesFunc(ctx, teamID, season)
	}
	return &models.TeamFeatures{}, nil
}

func (m *MockPredictionService) CompareTeams(ctx context.Context, a, b int64, season string) (*models.TeamComparison, error) {
	if m.CompareTeamsFunc != nil {
		return m.CompareTeamsFunc(ctx, a, b, season)
	}
	return &models.TeamComparison{}, nil
}

func (m *MockPredictionService) ModelInfo() (*models.ModelInfo, error) {
	if m.ModelInfoFunc != nil {
		return m.ModelInfoFunc()
	}
	return nil, predictor.ErrModelNotLoaded
}

func (m *MockPredictionService) ReloadModel(ctx context.Context) (*models.ModelInfo, error) {
	if m.ReloadModelFunc != nil {
		return m.ReloadModelFunc(ctx)
	}
	return &models.ModelInfo{}, nil
}

func (m *MockPredictionService) IngestGames(ctx context.Context, games []models.GameRecord) (*models.IngestGamesResponse, error) {
	if m.IngestGamesFunc != nil {
		return m.IngestGamesFunc(ctx, games)
	}
	return &models.IngestGamesResponse{Accepted: len(games)}, nil
}

type MockQueue struct {
	Depth int
}

func (m *MockQueue) QueueDepth() int { return m.Depth }

type MockAuditStats struct {
	AuditStatsFunc func(ctx context.Context, req models.AuditQuery) ([]models.AuditBucket, error)
}

func (m *MockAuditStats) AuditStats(ctx context.Context, req models.AuditQuery) ([]models.AuditBucket, error) {
	if m.AuditStatsFunc != nil {
		return m.AuditStatsFunc(ctx, req)
	}
	return []models.AuditBucket{}, nil
}
