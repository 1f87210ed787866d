package logic

import (
	"sync"
	"time"

	"github.com/openhoops/match-predictor/internal/models"
)

// HistoryLog is the append-only, in-memory record of served predictions.
// IDs start at 1 and follow insertion order.
type HistoryLog struct {
	mu      sync.Mutex
	entries []models.HistoricalPrediction
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

// Append records p and returns the stored entry.
func (h *HistoryLog) Append(p models.Prediction) models.HistoricalPrediction {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry := models.HistoricalPrediction{
		ID:         int64(len(h.entries) + 1),
		Prediction: p,
		CreatedAt:  time.Now().UTC(),
	}
	h.entries = append(h.entries, entry)
	return entry
}

// List returns a copy of all entries in insertion order.
func (h *HistoryLog) List() []models.HistoricalPrediction {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.HistoricalPrediction, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *HistoryLog) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
