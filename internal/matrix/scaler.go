package matrix

import (
	"errors"
	"fmt"
	"math"
)

// ErrScalerNotFitted is returned when transforming before Fit or restore.
var ErrScalerNotFitted = errors.New("scaler not fitted")

// StandardScaler standardizes columns to zero mean and unit variance using
// population statistics. Columns with zero variance keep scale 1.
type StandardScaler struct {
	Mean     []float64 `json:"mean"`
	Var      []float64 `json:"var"`
	Scale    []float64 `json:"scale"`
	NSamples int       `json:"n_samples"`
}

// NewStandardScaler restores a fitted scaler from persisted statistics.
func NewStandardScaler(mean, variance, scale []float64, nSamples int) (*StandardScaler, error) {
	if len(mean) == 0 || len(mean) != len(variance) || len(mean) != len(scale) {
		return nil, fmt.Errorf("scaler: inconsistent widths mean=%d var=%d scale=%d", len(mean), len(variance), len(scale))
	}
	for i, s := range scale {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("scaler: invalid scale %v at column %d", s, i)
		}
	}
	return &StandardScaler{
		Mean:     append([]float64(nil), mean...),
		Var:      append([]float64(nil), variance...),
		Scale:    append([]float64(nil), scale...),
		NSamples: nSamples,
	}, nil
}

// Fit computes column statistics of X.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("scaler: fit on empty matrix")
	}
	width := len(X[0])
	mean := make([]float64, width)
	for r, row := range X {
		if len(row) != width {
			return fmt.Errorf("scaler: row %d has width %d, want %d", r, len(row), width)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(X))
	for j := range mean {
		mean[j] /= n
	}
	variance := make([]float64, width)
	for _, row := range X {
		for j, v := range row {
			d := v - mean[j]
			variance[j] += d * d
		}
	}
	scale := make([]float64, width)
	for j := range variance {
		variance[j] /= n
		scale[j] = math.Sqrt(variance[j])
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	s.Mean, s.Var, s.Scale, s.NSamples = mean, variance, scale, len(X)
	return nil
}

// Fitted reports whether statistics are available.
func (s *StandardScaler) Fitted() bool {
	return s != nil && len(s.Scale) > 0
}

// Width returns the number of columns the scaler was fit on.
func (s *StandardScaler) Width() int { return len(s.Mean) }

// TransformRow standardizes one row into a new slice.
func (s *StandardScaler) TransformRow(x []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, ErrScalerNotFitted
	}
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: row width %d, fitted on %d", len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Transform standardizes every row of X into a new matrix.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		r, err := s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}
