package matrix

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/features"
)

// Default split parameters.
const (
	DefaultTestSize = 0.2
	DefaultSeed     = 42
)

// ConfigurationError names schema columns absent from the derived table.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("feature matrix: columns not present after derivation: %s", strings.Join(e.Missing, ", "))
}

// Dataset is a split, standardized design matrix.
type Dataset struct {
	Columns    []string
	XTrain     [][]float64
	XTest      [][]float64
	YTrain     []float64
	YTest      []float64
	Scaler     *StandardScaler
	TrainIndex []int
	TestIndex  []int
}

// Builder selects schema columns from a derived table, splits rows and
// standardizes them.
type Builder struct {
	Schema   features.Schema
	Label    string
	TestSize float64
	Seed     int64
	logger   *zap.SugaredLogger
}

// NewBuilder returns a builder for the canonical schema with default split
// parameters.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{
		Schema:   features.CanonicalSchema,
		Label:    features.ColWin,
		TestSize: DefaultTestSize,
		Seed:     DefaultSeed,
		logger:   logger.Sugar(),
	}
}

// Select returns the schema columns as row-major X and the label vector.
func (b *Builder) Select(f *features.Frame) ([][]float64, []float64, error) {
	cols := make([][]float64, len(b.Schema.Columns))
	var missing []string
	for j, name := range b.Schema.Columns {
		v, ok := f.Float(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[j] = v
	}
	y, ok := f.Float(b.Label)
	if !ok {
		missing = append(missing, b.Label)
	}
	if len(missing) > 0 {
		return nil, nil, &ConfigurationError{Missing: missing}
	}

	X := make([][]float64, f.Len())
	for i := range X {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c[i]
		}
		X[i] = row
	}
	return X, append([]float64(nil), y...), nil
}

// Build selects, splits and standardizes. The scaler is fit on the training
// partition only.
func (b *Builder) Build(f *features.Frame) (*Dataset, error) {
	X, y, err := b.Select(f)
	if err != nil {
		return nil, err
	}
	trainIdx, testIdx, err := StratifiedSplit(y, b.TestSize, b.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	pick := func(idx []int) ([][]float64, []float64) {
		xs := make([][]float64, len(idx))
		ys := make([]float64, len(idx))
		for k, i := range idx {
			xs[k] = X[i]
			ys[k] = y[i]
		}
		return xs, ys
	}
	rawTrain, yTrain := pick(trainIdx)
	rawTest, yTest := pick(testIdx)

	scaler := &StandardScaler{}
	if err := scaler.Fit(rawTrain); err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	xTrain, err := scaler.Transform(rawTrain)
	if err != nil {
		return nil, err
	}
	xTest, err := scaler.Transform(rawTest)
	if err != nil {
		return nil, err
	}

	b.logger.Infow("Built feature matrix",
		"schema", b.Schema.Version,
		"rows", len(X),
		"train", len(trainIdx),
		"test", len(testIdx),
		"seed", b.Seed,
	)

	return &Dataset{
		Columns:    append([]string(nil), b.Schema.Columns...),
		XTrain:     xTrain,
		XTest:      xTest,
		YTrain:     yTrain,
		YTest:      yTest,
		Scaler:     scaler,
		TrainIndex: trainIdx,
		TestIndex:  testIdx,
	}, nil
}
