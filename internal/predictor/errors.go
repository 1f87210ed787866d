package predictor

import (
	"errors"
	"fmt"
)

// ErrModelNotLoaded is returned by inference before any artifact is installed.
var ErrModelNotLoaded = errors.New("model not loaded")

// TrainingError is an unrecoverable failure inside the training loop.
// Epoch and Batch are 1-based; zero means the failure happened outside
// an epoch or batch. Rows and Cols are the shape being processed.
type TrainingError struct {
	Epoch int
	Batch int
	Rows  int
	Cols  int
	Err   error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training failed at epoch %d batch %d (shape %dx%d): %v", e.Epoch, e.Batch, e.Rows, e.Cols, e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }
