package logic

import (
	"context"
	"sync"

	"github.com/openhoops/match-predictor/internal/artifact"
	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/worker"
)

// MockPredictor implements MatchPredictor for testing
type MockPredictor struct {
	PredictFunc  func(homeID, awayID int64, home, away models.TeamFeatureVector) (float64, error)
	LoadFromFunc func(base string) error
	Artifact     *artifact.Artifact
}

func (m *MockPredictor) PredictMatch(homeID, awayID int64, home, away models.TeamFeatureVector) (float64, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(homeID, awayID, home, away)
	}
	return 0.5, nil
}

func (m *MockPredictor) Current() *artifact.Artifact { return m.Artifact }

func (m *MockPredictor) LoadFrom(base string) error {
	if m.LoadFromFunc != nil {
		return m.LoadFromFunc(base)
	}
	return nil
}

// MockGames implements datasource.GameReader and GameWriter for testing
type MockGames struct {
	mu        sync.Mutex
	TeamList  []models.Team
	Games     map[int64][]models.GameRecord
	Inserted  []models.GameRecord
	TeamsErr  error
	teamCalls int
	gameCalls int
}

func (m *MockGames) GamesBySeason(ctx context.Context, season string) ([]models.GameRecord, error) {
	var out []models.GameRecord
	for _, g := range m.Games {
		out = append(out, g...)
	}
	return out, nil
}

func (m *MockGames) GamesByTeam(ctx context.Context, teamID int64, season string) ([]models.GameRecord, error) {
	m.mu.Lock()
	m.gameCalls++
	m.mu.Unlock()
	return m.Games[teamID], nil
}

func (m *MockGames) Teams(ctx context.Context) ([]models.Team, error) {
	m.mu.Lock()
	m.teamCalls++
	m.mu.Unlock()
	return m.TeamList, m.TeamsErr
}

func (m *MockGames) InsertGames(ctx context.Context, games []models.GameRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inserted = append(m.Inserted, games...)
	return len(games), nil
}

// MockAudit implements AuditQueue for testing
type MockAudit struct {
	mu   sync.Mutex
	Jobs []worker.Job
	Full bool
}

func (m *MockAudit) Enqueue(job worker.Job) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Full {
		return false
	}
	m.Jobs = append(m.Jobs, job)
	return true
}
