package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/artifact"
	"github.com/openhoops/match-predictor/internal/config"
	"github.com/openhoops/match-predictor/internal/evaluation"
	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/matrix"
	"github.com/openhoops/match-predictor/internal/nn"
)

// EpochMetrics are the per-epoch training statistics. Validation fields
// are zero when training runs without a validation slice.
type EpochMetrics struct {
	Epoch       int     `json:"epoch"`
	Loss        float64 `json:"loss"`
	Accuracy    float64 `json:"accuracy"`
	ValLoss     float64 `json:"val_loss"`
	ValAccuracy float64 `json:"val_accuracy"`
	LR          float64 `json:"lr"`
}

// TrainResult reports what a training run did.
type TrainResult struct {
	History       []EpochMetrics
	StoppedEarly  bool
	BestEpoch     int
	FitRows       int
	ValRows       int
	TrainAccuracy float64
	Test          *evaluation.Report
	Dataset       *matrix.Dataset
	Derived       *features.Derived
}

// Trainer runs the full pipeline from raw game rows to a model artifact.
type Trainer struct {
	cfg     config.TrainingConfig
	schema  features.Schema
	engine  *features.Engine
	builder *matrix.Builder
	logger  *zap.SugaredLogger
}

// NewTrainer creates a trainer for the canonical schema.
func NewTrainer(cfg config.TrainingConfig, logger *zap.Logger) *Trainer {
	b := matrix.NewBuilder(logger)
	b.Seed = cfg.Seed
	b.TestSize = cfg.TestSize
	return &Trainer{
		cfg:     cfg,
		schema:  features.CanonicalSchema,
		engine:  features.NewEngine(logger),
		builder: b,
		logger:  logger.Sugar(),
	}
}

// Train derives features, builds the split matrix, fits the network and
// evaluates it on the held-out partition. ctx is checked between epochs.
func (t *Trainer) Train(ctx context.Context, raw *features.Frame) (*artifact.Artifact, *TrainResult, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("training config: %w", err)
	}
	derived, err := t.engine.Derive(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("derive features: %w", err)
	}
	ds, err := t.builder.Build(derived.Frame)
	if err != nil {
		return nil, nil, fmt.Errorf("build feature matrix: %w", err)
	}

	xTrain, err := nn.FromRows(ds.XTrain)
	if err != nil {
		return nil, nil, t.fail(&TrainingError{Rows: len(ds.XTrain), Err: err})
	}
	// Trailing slice of the training partition, disjoint from the rows fitted on.
	split := int(float64(xTrain.Rows) * (1 - t.cfg.ValidationSplit))
	if split < 1 {
		return nil, nil, t.fail(&TrainingError{Rows: xTrain.Rows, Cols: xTrain.Cols,
			Err: errors.New("no rows left to fit after the validation split")})
	}
	fitIdx := seq(0, split)
	valIdx := seq(split, xTrain.Rows)
	xFit, yFit := xTrain.SelectRows(fitIdx), ds.YTrain[:split]
	xVal, yVal := xTrain.SelectRows(valIdx), ds.YTrain[split:]

	net := nn.NewMLP(nn.MLPConfig{
		Input:       t.schema.Width(),
		Hidden:      t.cfg.Hidden,
		DropoutRate: t.cfg.DropoutRate,
		BNMomentum:  t.cfg.BNMomentum,
		BNEpsilon:   t.cfg.BNEpsilon,
		Seed:        t.cfg.Seed,
	})
	opt := nn.NewAdam(t.cfg.LearningRate)
	stopper := newPlateau(t.cfg.EarlyStoppingPatience)
	schedule := &lrSchedule{plateau: newPlateau(t.cfg.ReduceLRPatience), factor: t.cfg.ReduceLRFactor, min: t.cfg.MinLearningRate}
	shuffle := rand.New(rand.NewSource(t.cfg.Seed))

	res := &TrainResult{FitRows: xFit.Rows, ValRows: xVal.Rows, Dataset: ds, Derived: derived}
	var best nn.NetworkSpec

	t.logger.Infow("Training started",
		"fit_rows", xFit.Rows,
		"val_rows", xVal.Rows,
		"test_rows", len(ds.XTest),
		"epochs", t.cfg.Epochs,
		"batch_size", t.cfg.BatchSize,
	)

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, t.fail(&TrainingError{Epoch: epoch, Rows: xFit.Rows, Cols: xFit.Cols, Err: err})
		}

		m, err := t.runEpoch(net, opt, shuffle, xFit, yFit, epoch)
		if err != nil {
			return nil, nil, t.fail(err)
		}
		monitor := m.Loss
		if xVal.Rows > 0 {
			p, err := net.PredictProba(xVal)
			if err != nil {
				return nil, nil, t.fail(&TrainingError{Epoch: epoch, Rows: xVal.Rows, Cols: xVal.Cols, Err: err})
			}
			m.ValLoss = nn.BinaryCrossEntropy(p, yVal)
			m.ValAccuracy = nn.Accuracy(p, yVal, t.cfg.Threshold)
			if math.IsNaN(m.ValLoss) || math.IsInf(m.ValLoss, 0) {
				return nil, nil, t.fail(&TrainingError{Epoch: epoch, Rows: xVal.Rows, Cols: xVal.Cols,
					Err: fmt.Errorf("non-finite validation loss %v", m.ValLoss)})
			}
			monitor = m.ValLoss
		}
		res.History = append(res.History, m)
		trainingEpochs.Inc()
		trainingLoss.WithLabelValues("train").Set(m.Loss)
		trainingLoss.WithLabelValues("validation").Set(m.ValLoss)
		learningRate.Set(m.LR)

		improved, exhausted := stopper.observe(monitor)
		if improved {
			best = net.Spec()
			res.BestEpoch = epoch
		}
		if exhausted {
			res.StoppedEarly = true
			t.logger.Infow("Early stopping", "epoch", epoch, "best_epoch", res.BestEpoch, "best_loss", stopper.best)
			break
		}
		if lr := schedule.next(opt.LR, monitor); lr != opt.LR {
			t.logger.Infow("Reducing learning rate", "epoch", epoch, "from", opt.LR, "to", lr)
			opt.LR = lr
		}
	}
	if res.StoppedEarly {
		if err := net.Restore(best); err != nil {
			return nil, nil, t.fail(&TrainingError{Epoch: res.BestEpoch, Err: fmt.Errorf("restore best weights: %w", err)})
		}
	}

	fitProba, err := net.PredictProba(xFit)
	if err != nil {
		return nil, nil, t.fail(&TrainingError{Rows: xFit.Rows, Cols: xFit.Cols, Err: err})
	}
	res.TrainAccuracy = nn.Accuracy(fitProba, yFit, t.cfg.Threshold)

	xTest, err := nn.FromRows(ds.XTest)
	if err != nil {
		return nil, nil, t.fail(&TrainingError{Rows: len(ds.XTest), Err: err})
	}
	testProba, err := net.PredictProba(xTest)
	if err != nil {
		return nil, nil, t.fail(&TrainingError{Rows: xTest.Rows, Cols: xTest.Cols, Err: err})
	}
	res.Test, err = evaluation.EvaluateProba(ds.YTest, testProba, t.cfg.Threshold)
	if err != nil {
		return nil, nil, t.fail(&TrainingError{Rows: xTest.Rows, Cols: xTest.Cols, Err: err})
	}

	last := res.History[len(res.History)-1]
	art := &artifact.Artifact{
		Version:       uuid.NewString(),
		SchemaVersion: t.schema.Version,
		Columns:       append([]string(nil), t.schema.Columns...),
		CreatedAt:     time.Now().UTC(),
		Network:       net,
		Encoder:       derived.Encoder,
		Scaler:        ds.Scaler,
		Summary: artifact.TrainingSummary{
			Epochs:        len(res.History),
			BestEpoch:     res.BestEpoch,
			StoppedEarly:  res.StoppedEarly,
			FinalLoss:     last.Loss,
			FinalValLoss:  last.ValLoss,
			TrainAccuracy: res.TrainAccuracy,
			TestAccuracy:  res.Test.Accuracy,
			TrainRows:     len(ds.XTrain),
			TestRows:      len(ds.XTest),
			Seed:          t.cfg.Seed,
		},
	}

	t.logger.Infow("Training finished",
		"version", art.Version,
		"epochs", len(res.History),
		"stopped_early", res.StoppedEarly,
		"train_accuracy", res.TrainAccuracy,
		"test_accuracy", res.Test.Accuracy,
	)
	return art, res, nil
}

// runEpoch makes one shuffled pass over the fit rows in mini-batches.
func (t *Trainer) runEpoch(net *nn.Network, opt *nn.Adam, rng *rand.Rand, x *nn.Matrix, y []float64, epoch int) (EpochMetrics, *TrainingError) {
	perm := rng.Perm(x.Rows)
	var lossSum, hits float64
	for b, start := 1, 0; start < x.Rows; b, start = b+1, start+t.cfg.BatchSize {
		end := start + t.cfg.BatchSize
		if end > x.Rows {
			end = x.Rows
		}
		idx := perm[start:end]
		xb := x.SelectRows(idx)
		yb := make([]float64, len(idx))
		for k, i := range idx {
			yb[k] = y[i]
		}

		logits := net.Forward(xb, true)
		if logits.Rows != len(yb) || logits.Cols != 1 {
			return EpochMetrics{}, &TrainingError{Epoch: epoch, Batch: b, Rows: xb.Rows, Cols: xb.Cols,
				Err: fmt.Errorf("network output %dx%d for %d labels", logits.Rows, logits.Cols, len(yb))}
		}
		p := make([]float64, len(yb))
		for k := range p {
			p[k] = nn.Sigmoid(logits.At(k, 0))
		}
		loss := nn.BinaryCrossEntropy(p, yb)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return EpochMetrics{}, &TrainingError{Epoch: epoch, Batch: b, Rows: xb.Rows, Cols: xb.Cols,
				Err: fmt.Errorf("non-finite loss %v", loss)}
		}
		lossSum += loss * float64(len(yb))
		hits += nn.Accuracy(p, yb, t.cfg.Threshold) * float64(len(yb))

		net.Backward(nn.LogitGrad(p, yb))
		opt.Step(net.Params())
	}
	n := float64(x.Rows)
	return EpochMetrics{Epoch: epoch, Loss: lossSum / n, Accuracy: hits / n, LR: opt.LR}, nil
}

func (t *Trainer) fail(err *TrainingError) error {
	t.logger.Errorw("Training failed",
		"epoch", err.Epoch,
		"batch", err.Batch,
		"rows", err.Rows,
		"cols", err.Cols,
		"error", err.Err,
	)
	return err
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
