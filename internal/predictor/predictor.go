package predictor

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/artifact"
	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/nn"
)

// Predictor serves home-win probabilities from the currently installed
// artifact. The artifact pointer is swapped atomically; every inference
// reads one snapshot and never mutates it.
type Predictor struct {
	schema   features.Schema
	current  atomic.Pointer[artifact.Artifact]
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

// New creates a predictor with no model installed.
func New(schema features.Schema, logger *zap.Logger) *Predictor {
	return &Predictor{
		schema:   schema,
		validate: models.NewValidator(),
		logger:   logger.Sugar(),
	}
}

// Swap installs a, replacing the current artifact for all later calls.
func (p *Predictor) Swap(a *artifact.Artifact) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("swap artifact: %w", err)
	}
	if err := a.CompatibleWith(p.schema); err != nil {
		return fmt.Errorf("swap artifact: %w", err)
	}
	prev := p.current.Swap(a)
	modelSwaps.Inc()
	prevVersion := ""
	if prev != nil {
		prevVersion = prev.Version
	}
	p.logger.Infow("Serving model artifact", "version", a.Version, "previous", prevVersion)
	return nil
}

// LoadFrom loads the artifact under base and installs it. On failure the
// current artifact stays in place.
func (p *Predictor) LoadFrom(base string) error {
	a, err := artifact.Load(base, p.schema)
	if err != nil {
		return err
	}
	return p.Swap(a)
}

// Current returns the installed artifact, or nil.
func (p *Predictor) Current() *artifact.Artifact {
	return p.current.Load()
}

// Schema returns the feature schema the predictor assembles inputs with.
func (p *Predictor) Schema() features.Schema { return p.schema }

// PredictMatch returns the probability that the home team wins. The input
// row is built from the home team's features with is_home = 1; away
// features are validated but do not enter the row. The away-win
// probability is 1 minus the result.
func (p *Predictor) PredictMatch(homeID, awayID int64, home, away models.TeamFeatureVector) (prob float64, err error) {
	start := time.Now()
	defer func() {
		inferenceDuration.Observe(time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		inferenceTotal.WithLabelValues(result).Inc()
	}()

	a := p.current.Load()
	if a == nil {
		return 0, ErrModelNotLoaded
	}
	if err := p.validate.Struct(home); err != nil {
		return 0, fmt.Errorf("home team features: %w", err)
	}
	if err := p.validate.Struct(away); err != nil {
		return 0, fmt.Errorf("away team features: %w", err)
	}

	homeCode, err := a.Encoder.Transform(homeID)
	if err != nil {
		return 0, err
	}
	awayCode, err := a.Encoder.Transform(awayID)
	if err != nil {
		return 0, err
	}
	row, err := p.schema.Vector(homeCode, awayCode, home)
	if err != nil {
		return 0, err
	}
	scaled, err := a.Scaler.TransformRow(row)
	if err != nil {
		return 0, fmt.Errorf("scale features: %w", err)
	}
	x, err := nn.FromRows([][]float64{scaled})
	if err != nil {
		return 0, err
	}
	probs, err := a.Network.PredictProba(x)
	if err != nil {
		return 0, fmt.Errorf("forward pass: %w", err)
	}
	return probs[0], nil
}

// PredictMatchFromMaps is PredictMatch for dict-shaped feature payloads.
// A missing key fails with *models.MissingFeatureError.
func (p *Predictor) PredictMatchFromMaps(homeID, awayID int64, home, away map[string]float64) (float64, error) {
	hv, err := models.FeatureVectorFromMap(homeID, home)
	if err != nil {
		return 0, fmt.Errorf("home team features: %w", err)
	}
	av, err := models.FeatureVectorFromMap(awayID, away)
	if err != nil {
		return 0, fmt.Errorf("away team features: %w", err)
	}
	return p.PredictMatch(homeID, awayID, hv, av)
}
