package features

import (
	"fmt"
	"strings"

	"github.com/openhoops/match-predictor/internal/models"
)

// Derived columns.
const (
	ColWin               = "win"
	ColIsOvertime        = "is_overtime"
	ColFTDrawingRate     = "ft_drawing_rate"
	ColFTDrawingRateAvg5 = "ft_drawing_rate_avg5"
	ColWinStreak5        = "win_streak5"
	ColOvertimeRate10    = "overtime_rate10"
	ColIsHome            = "is_home"
	ColOpponentAbbrev    = "opponent_abbrev"
	ColOpponentID        = "opponent_id"
	ColH2HWinRate        = "h2h_win_rate"
	ColTeamIDEncoded     = "team_id_encoded"
	ColOpponentEncoded   = "opponent_id_encoded"
)

// RollingStats are the raw stats averaged over each rolling window.
var RollingStats = []string{
	ColPoints, ColFGPct, ColFTPct, ColFG3Pct, ColAssists,
	ColRebounds, ColFTA, ColTurnovers, ColSteals, ColBlocks,
}

// RollingWindows are the window sizes, in games, of the rolling averages.
var RollingWindows = []int{5, 10}

// RollingColumn names the rolling average of stat over window games.
func RollingColumn(stat string, window int) string {
	return fmt.Sprintf("%s_avg%d", strings.ToLower(stat), window)
}

// Schema is a versioned, ordered list of model input columns. Training and
// inference both assemble vectors through it.
type Schema struct {
	Version string
	Columns []string
}

// CanonicalSchema is the feature layout the network is trained on.
var CanonicalSchema = Schema{
	Version: "v1",
	Columns: []string{
		ColTeamIDEncoded,
		ColOpponentEncoded,
		ColIsHome,
		"pts_avg5",
		"fg_pct_avg5",
		"ft_pct_avg5",
		"fg3_pct_avg5",
		"ast_avg5",
		"reb_avg5",
		"fta_avg5",
		ColFTDrawingRateAvg5,
		ColWinStreak5,
		"tov_avg5",
		"stl_avg5",
		ColOvertimeRate10,
	},
}

// Width returns the number of input columns.
func (s Schema) Width() int { return len(s.Columns) }

// Vector assembles one input row from the home team's perspective:
// team codes in the first two slots, is_home fixed to 1 and the team's
// rolling features for the rest.
func (s Schema) Vector(teamCode, opponentCode int, tf models.TeamFeatureVector) ([]float64, error) {
	out := make([]float64, len(s.Columns))
	for i, col := range s.Columns {
		switch col {
		case ColTeamIDEncoded:
			out[i] = float64(teamCode)
		case ColOpponentEncoded:
			out[i] = float64(opponentCode)
		case ColIsHome:
			out[i] = 1
		default:
			v, ok := tf.Value(col)
			if !ok {
				return nil, fmt.Errorf("schema %s: column %s has no team feature", s.Version, col)
			}
			out[i] = v
		}
	}
	return out, nil
}
