package features

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoGames is returned when a team has no rows in a derived table.
var ErrNoGames = errors.New("no games for team")

// FeatureDerivationError aborts derivation: required raw columns are
// absent or a raw cell cannot be interpreted. No table is returned with it.
type FeatureDerivationError struct {
	Missing []string
	Row     int
	Err     error
}

func (e *FeatureDerivationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("feature derivation: missing raw columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("feature derivation: row %d: %v", e.Row, e.Err)
}

func (e *FeatureDerivationError) Unwrap() error { return e.Err }

// UnknownCategoryError is returned when encoding a team identifier the
// encoder was never fit on.
type UnknownCategoryError struct {
	TeamID int64
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown team id %d: not seen during training", e.TeamID)
}
