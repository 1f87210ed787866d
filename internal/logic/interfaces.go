package logic

import (
	"context"
	"errors"

	"github.com/openhoops/match-predictor/internal/artifact"
	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/worker"
)

// ErrTeamNotFound is returned when a team ID is absent from the directory.
var ErrTeamNotFound = errors.New("team not found")

// MatchPredictor is the inference side of the trained model
type MatchPredictor interface {
	PredictMatch(homeID, awayID int64, home, away models.TeamFeatureVector) (float64, error)
	Current() *artifact.Artifact
	LoadFrom(base string) error
}

// AuditQueue receives served predictions for the audit trail
type AuditQueue interface {
	Enqueue(job worker.Job) bool
}

// PredictionService is the facade the HTTP layer talks to
type PredictionService interface {
	PredictMatch(ctx context.Context, req models.MatchPredictionRequest) (*models.Prediction, error)
	History() []models.HistoricalPrediction
	Teams(ctx context.Context) ([]models.Team, error)
	TeamFeatures(ctx context.Context, teamID int64, season string) (*models.TeamFeatures, error)
	CompareTeams(ctx context.Context, teamA, teamB int64, season string) (*models.TeamComparison, error)
	ModelInfo() (*models.ModelInfo, error)
	ReloadModel(ctx context.Context) (*models.ModelInfo, error)
	IngestGames(ctx context.Context, games []models.GameRecord) (*models.IngestGamesResponse, error)
}
