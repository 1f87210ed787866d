package models

import "time"

// Prediction is the outcome forecast for one match, from the home side.
type Prediction struct {
	HomeTeam        Team      `json:"home_team"`
	AwayTeam        Team      `json:"away_team"`
	HomeWinProb     float64   `json:"home_win_probability"`
	AwayWinProb     float64   `json:"away_win_probability"`
	PredictedWinner Team      `json:"predicted_winner"`
	Confidence      float64   `json:"confidence"`
	ModelVersion    string    `json:"model_version,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// HistoricalPrediction is an entry of the prediction history.
// Outcomes are not reconciled yet, so ActualWinner and IsCorrect stay nil.
type HistoricalPrediction struct {
	ID           int64      `json:"id"`
	Prediction   Prediction `json:"prediction"`
	ActualWinner *Team      `json:"actual_winner"`
	IsCorrect    *bool      `json:"is_correct"`
	CreatedAt    time.Time  `json:"created_at"`
}

// MatchPredictionRequest asks for a home-win probability. Feature vectors
// are optional; missing ones are derived from stored game logs.
type MatchPredictionRequest struct {
	HomeTeamID   int64              `json:"home_team_id" validate:"required"`
	AwayTeamID   int64              `json:"away_team_id" validate:"required,nefield=HomeTeamID"`
	HomeFeatures map[string]float64 `json:"home_team_stats,omitempty"`
	AwayFeatures map[string]float64 `json:"away_team_stats,omitempty"`
	Season       string             `json:"season,omitempty"`
}

// FeatureDelta is one row of a team comparison.
type FeatureDelta struct {
	Feature    string  `json:"feature"`
	TeamA      float64 `json:"team_a"`
	TeamB      float64 `json:"team_b"`
	Difference float64 `json:"difference"`
}

// TeamComparison compares two teams' latest feature vectors.
type TeamComparison struct {
	TeamA  Team           `json:"team_a"`
	TeamB  Team           `json:"team_b"`
	Deltas []FeatureDelta `json:"deltas"`
}

// TeamFeatures is a team with its current feature vector.
type TeamFeatures struct {
	Team     Team              `json:"team"`
	Features TeamFeatureVector `json:"features"`
}

// ModelInfo describes the artifact currently serving predictions.
type ModelInfo struct {
	Version       string    `json:"version"`
	SchemaVersion string    `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	TestAccuracy  float64   `json:"test_accuracy"`
	TrainAccuracy float64   `json:"train_accuracy"`
	Epochs        int       `json:"epochs"`
	Teams         int       `json:"teams"`
}

// IngestGamesResponse reports the outcome of a game log upload.
type IngestGamesResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}
