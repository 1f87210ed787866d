package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openhoops/match-predictor/internal/datasource"
	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/predictor"
	"github.com/openhoops/match-predictor/internal/worker"
)

// PredictionConfig wires the prediction service.
type PredictionConfig struct {
	Predictor MatchPredictor
	Games     datasource.GameReader
	Writer    datasource.GameWriter
	Cache     *datasource.Cache
	Audit     AuditQueue
	ModelPath string
	Season    string
	Logger    *zap.Logger
}

type predictionService struct {
	predictor MatchPredictor
	writer    datasource.GameWriter
	cache     *datasource.Cache
	audit     AuditQueue
	history   *HistoryLog
	teams     *teamDirectory
	features  *featureProvider
	validate  *validator.Validate
	modelPath string
	season    string
	logger    *zap.SugaredLogger
}

func NewPredictionService(cfg PredictionConfig) PredictionService {
	return &predictionService{
		predictor: cfg.Predictor,
		writer:    cfg.Writer,
		cache:     cfg.Cache,
		audit:     cfg.Audit,
		history:   NewHistoryLog(),
		teams:     &teamDirectory{games: cfg.Games},
		features: &featureProvider{
			games:  cfg.Games,
			cache:  cfg.Cache,
			engine: features.NewEngine(cfg.Logger),
			logger: cfg.Logger.Sugar(),
		},
		validate:  models.NewValidator(),
		modelPath: cfg.ModelPath,
		season:    cfg.Season,
		logger:    cfg.Logger.Sugar(),
	}
}

// PredictMatch resolves both teams and their feature vectors concurrently,
// runs inference and records the result. Request-supplied feature maps take
// precedence over vectors derived from stored game logs.
func (s *predictionService) PredictMatch(ctx context.Context, req models.MatchPredictionRequest) (*models.Prediction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	season := s.seasonOr(req.Season)

	var home, away models.Team
	var homeVec, awayVec models.TeamFeatureVector
	source := worker.SourceRequest

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		home, err = s.teams.lookup(gctx, req.HomeTeamID)
		return err
	})
	g.Go(func() (err error) {
		away, err = s.teams.lookup(gctx, req.AwayTeamID)
		return err
	})
	if req.HomeFeatures == nil || req.AwayFeatures == nil {
		source = worker.SourceHistory
	}
	g.Go(func() (err error) {
		homeVec, err = s.resolveFeatures(gctx, req.HomeTeamID, req.HomeFeatures, season)
		if err != nil {
			return fmt.Errorf("home team: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		awayVec, err = s.resolveFeatures(gctx, req.AwayTeamID, req.AwayFeatures, season)
		if err != nil {
			return fmt.Errorf("away team: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prob, err := s.predictor.PredictMatch(req.HomeTeamID, req.AwayTeamID, homeVec, awayVec)
	if err != nil {
		s.logger.Warnw("Prediction failed",
			"homeTeamID", req.HomeTeamID,
			"awayTeamID", req.AwayTeamID,
			"error", err,
		)
		return nil, err
	}

	winner := away
	if prob > 0.5 {
		winner = home
	}
	pred := models.Prediction{
		HomeTeam:        home,
		AwayTeam:        away,
		HomeWinProb:     prob,
		AwayWinProb:     1 - prob,
		PredictedWinner: winner,
		Confidence:      math.Abs(2*prob - 1),
		RequestID:       uuid.NewString(),
		Timestamp:       time.Now().UTC(),
	}
	if a := s.predictor.Current(); a != nil {
		pred.ModelVersion = a.Version
	}

	s.history.Append(pred)
	if s.audit != nil && !s.audit.Enqueue(worker.Job{Prediction: pred, FeatureSource: source, Timestamp: pred.Timestamp}) {
		s.logger.Warnw("Prediction not audited", "requestID", pred.RequestID)
	}

	s.logger.Infow("Prediction served",
		"requestID", pred.RequestID,
		"home", home.Abbreviation,
		"away", away.Abbreviation,
		"homeWinProb", prob,
		"featureSource", source,
	)
	return &pred, nil
}

func (s *predictionService) resolveFeatures(ctx context.Context, teamID int64, supplied map[string]float64, season string) (models.TeamFeatureVector, error) {
	if supplied != nil {
		return models.FeatureVectorFromMap(teamID, supplied)
	}
	return s.features.latest(ctx, teamID, season)
}

func (s *predictionService) History() []models.HistoricalPrediction {
	return s.history.List()
}

func (s *predictionService) Teams(ctx context.Context) ([]models.Team, error) {
	return s.teams.all(ctx)
}

func (s *predictionService) TeamFeatures(ctx context.Context, teamID int64, season string) (*models.TeamFeatures, error) {
	team, err := s.teams.lookup(ctx, teamID)
	if err != nil {
		return nil, err
	}
	vec, err := s.features.latest(ctx, teamID, s.seasonOr(season))
	if err != nil {
		return nil, err
	}
	return &models.TeamFeatures{Team: team, Features: vec}, nil
}

// CompareTeams returns the per-feature difference (A minus B) of two teams'
// current vectors, in feature order.
func (s *predictionService) CompareTeams(ctx context.Context, teamA, teamB int64, season string) (*models.TeamComparison, error) {
	var a, b *models.TeamFeatures
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = s.TeamFeatures(gctx, teamA, season)
		return err
	})
	g.Go(func() (err error) {
		b, err = s.TeamFeatures(gctx, teamB, season)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmp := &models.TeamComparison{TeamA: a.Team, TeamB: b.Team}
	for _, name := range models.FeatureNames() {
		va, _ := a.Features.Value(name)
		vb, _ := b.Features.Value(name)
		cmp.Deltas = append(cmp.Deltas, models.FeatureDelta{
			Feature:    name,
			TeamA:      va,
			TeamB:      vb,
			Difference: va - vb,
		})
	}
	return cmp, nil
}

func (s *predictionService) ModelInfo() (*models.ModelInfo, error) {
	a := s.predictor.Current()
	if a == nil {
		return nil, predictor.ErrModelNotLoaded
	}
	return &models.ModelInfo{
		Version:       a.Version,
		SchemaVersion: a.SchemaVersion,
		CreatedAt:     a.CreatedAt,
		TestAccuracy:  a.Summary.TestAccuracy,
		TrainAccuracy: a.Summary.TrainAccuracy,
		Epochs:        a.Summary.Epochs,
		Teams:         a.Encoder.Len(),
	}, nil
}

// ReloadModel loads the artifact at the configured path. On failure the
// current model keeps serving.
func (s *predictionService) ReloadModel(ctx context.Context) (*models.ModelInfo, error) {
	if err := s.predictor.LoadFrom(s.modelPath); err != nil {
		s.logger.Errorw("Model reload failed", "path", s.modelPath, "error", err)
		return nil, err
	}
	return s.ModelInfo()
}

// IngestGames validates and stores game log rows. Invalid rows are counted
// as rejected; the rest are written in one batch and their cached reads
// are dropped.
func (s *predictionService) IngestGames(ctx context.Context, games []models.GameRecord) (*models.IngestGamesResponse, error) {
	if s.writer == nil {
		return nil, errors.New("game ingestion is not configured")
	}
	resp := &models.IngestGamesResponse{}
	valid := make([]models.GameRecord, 0, len(games))
	for _, g := range games {
		if err := s.validate.Struct(g); err != nil {
			resp.Rejected++
			continue
		}
		if _, err := g.Date(); err != nil {
			resp.Rejected++
			continue
		}
		valid = append(valid, g)
	}
	if len(valid) == 0 {
		return resp, nil
	}

	n, err := s.writer.InsertGames(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("failed to store games: %w", err)
	}
	resp.Accepted = n

	if s.cache != nil {
		bySeason := make(map[string][]int64)
		for _, g := range valid {
			season := s.seasonOr(g.SeasonID)
			bySeason[season] = append(bySeason[season], g.TeamID)
		}
		seasons := make([]string, 0, len(bySeason))
		for season := range bySeason {
			seasons = append(seasons, season)
		}
		sort.Strings(seasons)
		for _, season := range seasons {
			if err := s.cache.Invalidate(ctx, season, bySeason[season]...); err != nil {
				s.logger.Warnw("Cache invalidation failed", "season", season, "error", err)
			}
		}
	}

	s.logger.Infow("Games ingested", "accepted", resp.Accepted, "rejected", resp.Rejected)
	return resp, nil
}

func (s *predictionService) seasonOr(season string) string {
	if season == "" {
		return models.NormalizeSeason(s.season)
	}
	return models.NormalizeSeason(season)
}
