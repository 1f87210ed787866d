// Package artifact persists a trained model as two co-located JSON parts
// under a shared base path:
//
//	<base>.network.json   layer parameters, batch-norm statistics, architecture
//	<base>_encoders.json  team encoder classes and scaler statistics
//
// Both parts carry the same artifact version; Load accepts them only as a
// matching pair.
package artifact

import (
	"errors"
	"fmt"
	"time"

	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/matrix"
	"github.com/openhoops/match-predictor/internal/nn"
)

// Part names used in errors and logs.
const (
	PartNetwork  = "network"
	PartEncoders = "encoders"
)

// NetworkPath returns the network part's path for base.
func NetworkPath(base string) string { return base + ".network.json" }

// EncodersPath returns the encoders part's path for base.
func EncodersPath(base string) string { return base + "_encoders.json" }

// TrainingSummary records how an artifact was produced.
type TrainingSummary struct {
	Epochs        int     `json:"epochs"`
	BestEpoch     int     `json:"best_epoch"`
	StoppedEarly  bool    `json:"stopped_early"`
	FinalLoss     float64 `json:"final_loss"`
	FinalValLoss  float64 `json:"final_val_loss"`
	TrainAccuracy float64 `json:"train_accuracy"`
	TestAccuracy  float64 `json:"test_accuracy"`
	TrainRows     int     `json:"train_rows"`
	TestRows      int     `json:"test_rows"`
	Seed          int64   `json:"seed"`
}

// Artifact is a trained network with the encoder and scaler fitted
// alongside it. The three are only valid together.
type Artifact struct {
	Version       string
	SchemaVersion string
	Columns       []string
	CreatedAt     time.Time
	Network       *nn.Network
	Encoder       *features.TeamEncoder
	Scaler        *matrix.StandardScaler
	Summary       TrainingSummary
}

// Validate checks that every part is present and widths agree with the
// schema the artifact was trained on.
func (a *Artifact) Validate() error {
	switch {
	case a == nil:
		return errors.New("nil artifact")
	case a.Version == "":
		return errors.New("artifact has no version")
	case a.Network == nil:
		return errors.New("artifact has no network")
	case a.Encoder == nil || a.Encoder.Len() == 0:
		return errors.New("artifact has no team encoder")
	case !a.Scaler.Fitted():
		return errors.New("artifact has no fitted scaler")
	}
	width := len(a.Columns)
	if a.Network.InputWidth != width {
		return fmt.Errorf("network input width %d, feature count %d", a.Network.InputWidth, width)
	}
	if a.Scaler.Width() != width {
		return fmt.Errorf("scaler width %d, feature count %d", a.Scaler.Width(), width)
	}
	return nil
}

// CompatibleWith reports whether the artifact was trained on schema s.
func (a *Artifact) CompatibleWith(s features.Schema) error {
	if a.SchemaVersion != s.Version {
		return fmt.Errorf("schema version %q, serving %q", a.SchemaVersion, s.Version)
	}
	if len(a.Columns) != len(s.Columns) {
		return fmt.Errorf("feature count %d, serving %d", len(a.Columns), len(s.Columns))
	}
	for i, c := range s.Columns {
		if a.Columns[i] != c {
			return fmt.Errorf("feature %d is %q, serving %q", i, a.Columns[i], c)
		}
	}
	return nil
}

// ArtifactLoadError reports a missing, corrupt or incompatible artifact part.
type ArtifactLoadError struct {
	Path string
	Part string
	Err  error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load artifact %s part (%s): %v", e.Part, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }
