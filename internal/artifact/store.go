package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/matrix"
	"github.com/openhoops/match-predictor/internal/nn"
)

type header struct {
	ArtifactVersion string `json:"artifact_version"`
	SchemaVersion   string `json:"schema_version"`
	FeatureCount    int    `json:"feature_count"`
}

type networkPart struct {
	header
	CreatedAt time.Time       `json:"created_at"`
	Summary   TrainingSummary `json:"training_summary"`
	Network   nn.NetworkSpec  `json:"network"`
}

type encodersPart struct {
	header
	Columns     []string              `json:"columns"`
	TeamClasses []int64               `json:"team_classes"`
	Scaler      matrix.StandardScaler `json:"scaler"`
}

// Save writes both parts of a under base. Each part is written to a
// temporary file and renamed into place, network first, so the encoders
// part appearing marks a complete artifact.
func Save(a *Artifact, base string) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}

	h := header{
		ArtifactVersion: a.Version,
		SchemaVersion:   a.SchemaVersion,
		FeatureCount:    len(a.Columns),
	}
	net := networkPart{
		header:    h,
		CreatedAt: a.CreatedAt,
		Summary:   a.Summary,
		Network:   a.Network.Spec(),
	}
	enc := encodersPart{
		header:      h,
		Columns:     a.Columns,
		TeamClasses: a.Encoder.Classes(),
		Scaler:      *a.Scaler,
	}
	if err := writeJSON(NetworkPath(base), net); err != nil {
		return fmt.Errorf("save artifact %s part: %w", PartNetwork, err)
	}
	if err := writeJSON(EncodersPath(base), enc); err != nil {
		return fmt.Errorf("save artifact %s part: %w", PartEncoders, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads both parts under base and returns the artifact only if they
// form a complete, matching pair compatible with schema. On any failure it
// returns an *ArtifactLoadError and no artifact.
func Load(base string, schema features.Schema) (*Artifact, error) {
	var net networkPart
	if err := readJSON(NetworkPath(base), &net); err != nil {
		return nil, &ArtifactLoadError{Path: NetworkPath(base), Part: PartNetwork, Err: err}
	}
	var enc encodersPart
	if err := readJSON(EncodersPath(base), &enc); err != nil {
		return nil, &ArtifactLoadError{Path: EncodersPath(base), Part: PartEncoders, Err: err}
	}

	encErr := func(err error) error {
		return &ArtifactLoadError{Path: EncodersPath(base), Part: PartEncoders, Err: err}
	}
	if net.ArtifactVersion == "" || net.ArtifactVersion != enc.ArtifactVersion {
		return nil, encErr(fmt.Errorf("version %q does not match network version %q", enc.ArtifactVersion, net.ArtifactVersion))
	}
	if net.SchemaVersion != enc.SchemaVersion || net.FeatureCount != enc.FeatureCount {
		return nil, encErr(fmt.Errorf("schema %s/%d does not match network schema %s/%d",
			enc.SchemaVersion, enc.FeatureCount, net.SchemaVersion, net.FeatureCount))
	}
	if len(enc.Columns) != enc.FeatureCount {
		return nil, encErr(fmt.Errorf("%d columns listed, feature count %d", len(enc.Columns), enc.FeatureCount))
	}

	network, err := nn.FromSpec(net.Network)
	if err != nil {
		return nil, &ArtifactLoadError{Path: NetworkPath(base), Part: PartNetwork, Err: err}
	}
	encoder, err := features.NewTeamEncoder(enc.TeamClasses)
	if err != nil {
		return nil, encErr(err)
	}
	scaler, err := matrix.NewStandardScaler(enc.Scaler.Mean, enc.Scaler.Var, enc.Scaler.Scale, enc.Scaler.NSamples)
	if err != nil {
		return nil, encErr(err)
	}

	a := &Artifact{
		Version:       net.ArtifactVersion,
		SchemaVersion: net.SchemaVersion,
		Columns:       enc.Columns,
		CreatedAt:     net.CreatedAt,
		Network:       network,
		Encoder:       encoder,
		Scaler:        scaler,
		Summary:       net.Summary,
	}
	if err := a.Validate(); err != nil {
		return nil, encErr(err)
	}
	if err := a.CompatibleWith(schema); err != nil {
		return nil, encErr(err)
	}
	return a, nil
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// Exists reports whether both parts are present under base.
func Exists(base string) bool {
	for _, p := range []string{NetworkPath(base), EncodersPath(base)} {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return false
		}
	}
	return true
}
