package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/features"
)

// Watcher reloads the artifact under a base path whenever its encoders
// part is replaced, and hands every successfully loaded artifact to
// OnLoad. A failed reload is logged and the caller keeps its current model.
type Watcher struct {
	Base     string
	Schema   features.Schema
	OnLoad   func(*Artifact)
	Debounce time.Duration

	logger *zap.SugaredLogger
}

// NewWatcher creates a watcher for base.
func NewWatcher(base string, schema features.Schema, onLoad func(*Artifact), logger *zap.Logger) *Watcher {
	return &Watcher{
		Base:     base,
		Schema:   schema,
		OnLoad:   onLoad,
		Debounce: 250 * time.Millisecond,
		logger:   logger.Sugar(),
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create artifact watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	// Renames replace the file, so watch the directory rather than the file.
	dir := filepath.Dir(w.Base)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	target := filepath.Clean(EncodersPath(w.Base))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				pending = time.After(w.Debounce)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("Artifact watcher error", "error", werr)
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	a, err := Load(w.Base, w.Schema)
	if err != nil {
		w.logger.Errorw("Artifact reload failed, keeping current model", "base", w.Base, "error", err)
		return
	}
	w.logger.Infow("Artifact reloaded", "version", a.Version, "created_at", a.CreatedAt)
	w.OnLoad(a)
}
