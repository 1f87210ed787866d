package logic

import (
	"sync"
	"testing"

	"github.com/openhoops/match-predictor/internal/models"
)

func TestHistoryLog_SequentialIDs(t *testing.T) {
	h := NewHistoryLog()
	for i := 0; i < 3; i++ {
		e := h.Append(models.Prediction{HomeWinProb: float64(i) / 10})
		if e.ID != int64(i+1) {
			t.Errorf("entry %d has ID %d", i, e.ID)
		}
	}
	list := h.List()
	if len(list) != 3 || list[2].Prediction.HomeWinProb != 0.2 {
		t.Fatalf("unexpected history: %+v", list)
	}
	if list[0].ActualWinner != nil || list[0].IsCorrect != nil {
		t.Error("outcome fields should be unset")
	}

	// List returns a copy.
	list[0].ID = 99
	if h.List()[0].ID != 1 {
		t.Error("mutating the returned slice changed the log")
	}
}

func TestHistoryLog_ConcurrentAppends(t *testing.T) {
	h := NewHistoryLog()
	const writers, each = 16, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				h.Append(models.Prediction{})
			}
		}()
	}
	wg.Wait()

	list := h.List()
	if len(list) != writers*each {
		t.Fatalf("len = %d, want %d", len(list), writers*each)
	}
	for i, e := range list {
		if e.ID != int64(i+1) {
			t.Fatalf("entry %d has ID %d; IDs must be 1..N in insertion order", i, e.ID)
		}
	}
}
