// Package datasource reads and stores the historical team game logs the
// feature engine consumes.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/models"
)

// ErrSourceUnavailable is matched by errors.Is when a read failed after all
// retries. An empty result is not an error.
var ErrSourceUnavailable = errors.New("historical data source unavailable")

// UnavailableError carries the operation and the last underlying failure.
type UnavailableError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v after %d attempts: %v", e.Op, ErrSourceUnavailable, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrSourceUnavailable }

// GameReader is read access to historical game logs.
type GameReader interface {
	GamesBySeason(ctx context.Context, season string) ([]models.GameRecord, error)
	GamesByTeam(ctx context.Context, teamID int64, season string) ([]models.GameRecord, error)
	Teams(ctx context.Context) ([]models.Team, error)
}

// GameWriter persists game logs, replacing rows with the same game and team.
type GameWriter interface {
	InsertGames(ctx context.Context, games []models.GameRecord) (int, error)
}

const maxBackoff = 10 * time.Second

// Source wraps a GameReader with bounded retry and exponential backoff.
type Source struct {
	reader   GameReader
	attempts int
	backoff  time.Duration
	logger   *zap.SugaredLogger
}

// NewSource wraps r. attempts below 1 are treated as 1.
func NewSource(r GameReader, attempts int, backoff time.Duration, logger *zap.Logger) *Source {
	if attempts < 1 {
		attempts = 1
	}
	return &Source{reader: r, attempts: attempts, backoff: backoff, logger: logger.Sugar()}
}

func (s *Source) GamesBySeason(ctx context.Context, season string) ([]models.GameRecord, error) {
	var out []models.GameRecord
	err := s.do(ctx, "games by season", func(ctx context.Context) (err error) {
		out, err = s.reader.GamesBySeason(ctx, season)
		return err
	})
	return out, err
}

func (s *Source) GamesByTeam(ctx context.Context, teamID int64, season string) ([]models.GameRecord, error) {
	var out []models.GameRecord
	err := s.do(ctx, "games by team", func(ctx context.Context) (err error) {
		out, err = s.reader.GamesByTeam(ctx, teamID, season)
		return err
	})
	return out, err
}

func (s *Source) Teams(ctx context.Context) ([]models.Team, error) {
	var out []models.Team
	err := s.do(ctx, "teams", func(ctx context.Context) (err error) {
		out, err = s.reader.Teams(ctx)
		return err
	})
	return out, err
}

func (s *Source) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if attempt == s.attempts {
			break
		}
		wait := time.Duration(float64(s.backoff) * math.Pow(2, float64(attempt-1)))
		if wait > maxBackoff {
			wait = maxBackoff
		}
		s.logger.Warnw("Data source read failed, retrying",
			"op", op,
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(wait):
		}
	}
	s.logger.Errorw("Data source unavailable", "op", op, "attempts", s.attempts, "error", err)
	return &UnavailableError{Op: op, Attempts: s.attempts, Err: err}
}
