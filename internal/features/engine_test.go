package features

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/models"
)

func game(team int64, abbr, date, matchup, wl string, pts float64) models.GameRecord {
	return models.GameRecord{
		TeamID:           team,
		TeamAbbreviation: abbr,
		GameID:           fmt.Sprintf("%s-%d", date, team),
		GameDate:         date,
		Matchup:          matchup,
		WL:               wl,
		Minutes:          240,
		Points:           pts,
		FGA:              80,
		FGPct:            0.45,
		FTPct:            0.8,
		FG3Pct:           0.35,
		FTA:              20,
		Assists:          22,
		Rebounds:         44,
		Turnovers:        12,
		Steals:           7,
		Blocks:           5,
	}
}

// meeting returns both rows of one game, home team first.
func meeting(date string, homeWins bool, homePts, awayPts float64) []models.GameRecord {
	hw, aw := "W", "L"
	if !homeWins {
		hw, aw = "L", "W"
	}
	return []models.GameRecord{
		game(1, "AAA", date, "AAA vs. BBB", hw, homePts),
		game(2, "BBB", date, "BBB @ AAA", aw, awayPts),
	}
}

func derive(t *testing.T, recs []models.GameRecord) *Derived {
	t.Helper()
	d, err := NewEngine(zap.NewNop()).Derive(FrameFromRecords(recs))
	require.NoError(t, err)
	return d
}

func colOf(t *testing.T, d *Derived, name string) []float64 {
	t.Helper()
	v, ok := d.Frame.Float(name)
	require.True(t, ok, "missing column %s", name)
	return v
}

func TestDerive_RollingMeanBelowWindowIsCumulative(t *testing.T) {
	// Input deliberately out of date order.
	recs := []models.GameRecord{
		game(1, "AAA", "2024-01-03", "AAA vs. BBB", "W", 120),
		game(1, "AAA", "2024-01-01", "AAA @ BBB", "L", 100),
		game(1, "AAA", "2024-01-02", "AAA vs. BBB", "W", 110),
	}
	d := derive(t, recs)

	avg5 := colOf(t, d, "pts_avg5")
	avg10 := colOf(t, d, "pts_avg10")
	assert.Equal(t, 110.0, avg5[0])
	assert.Equal(t, 100.0, avg5[1])
	assert.Equal(t, 105.0, avg5[2])
	assert.Equal(t, avg5, avg10)

	streak := colOf(t, d, ColWinStreak5)
	assert.Equal(t, []float64{2, 0, 1}, streak)
}

func TestDerive_RollingWindowEvictsOldGames(t *testing.T) {
	var recs []models.GameRecord
	for i := 1; i <= 7; i++ {
		recs = append(recs, game(1, "AAA", fmt.Sprintf("2024-01-%02d", i), "AAA vs. BBB", "W", float64(i)))
	}
	d := derive(t, recs)

	avg5 := colOf(t, d, "pts_avg5")
	avg10 := colOf(t, d, "pts_avg10")
	assert.Equal(t, 5.0, avg5[6])
	assert.Equal(t, 4.0, avg10[6])
	assert.Equal(t, 5.0, colOf(t, d, ColWinStreak5)[6])
}

func TestDerive_NoUndefinedValuesFromWindowing(t *testing.T) {
	var recs []models.GameRecord
	recs = append(recs, meeting("2024-01-01", true, 110, 100)...)
	recs = append(recs, meeting("2024-01-03", false, 95, 101)...)
	d := derive(t, recs)

	for _, name := range CanonicalSchema.Columns {
		for i, v := range colOf(t, d, name) {
			assert.False(t, math.IsNaN(v), "%s[%d] is NaN", name, i)
		}
	}
	assert.Zero(t, d.Fill.Total())
}

func TestDerive_FTDrawingRateZeroWhenNoFieldGoalAttempts(t *testing.T) {
	recs := meeting("2024-01-01", true, 100, 90)
	recs[0].FGA = 0
	recs[0].FTA = 30
	recs[1].FGA = 80
	recs[1].FTA = 20
	d := derive(t, recs)

	rate := colOf(t, d, ColFTDrawingRate)
	assert.Equal(t, 0.0, rate[0])
	assert.Equal(t, 0.25, rate[1])
	assert.Equal(t, 0.0, colOf(t, d, ColFTDrawingRateAvg5)[0])
}

func TestDerive_HeadToHead(t *testing.T) {
	var recs []models.GameRecord
	recs = append(recs, meeting("2024-01-01", true, 110, 100)...)
	recs = append(recs, meeting("2024-01-05", false, 90, 100)...)
	recs = append(recs, meeting("2024-01-09", true, 105, 99)...)
	d := derive(t, recs)

	h2h := colOf(t, d, ColH2HWinRate)
	// Team 1 rows at 0, 2, 4.
	assert.Equal(t, 0.5, h2h[0])
	assert.Equal(t, 1.0, h2h[2])
	assert.Equal(t, 0.5, h2h[4])
	// Team 2 rows at 1, 3, 5.
	assert.Equal(t, 0.5, h2h[1])
	assert.Equal(t, 0.0, h2h[3])
	assert.Equal(t, 0.5, h2h[5])
}

func TestDerive_HeadToHeadExcludesSameDay(t *testing.T) {
	recs := []models.GameRecord{
		game(1, "AAA", "2024-01-01", "AAA vs. BBB", "W", 100),
		game(1, "AAA", "2024-01-01", "AAA vs. BBB", "W", 100),
		game(2, "BBB", "2024-01-01", "BBB @ AAA", "L", 90),
	}
	d := derive(t, recs)

	h2h := colOf(t, d, ColH2HWinRate)
	assert.Equal(t, 0.5, h2h[0])
	assert.Equal(t, 0.5, h2h[1])
}

func TestDerive_HomeAwayAndOpponent(t *testing.T) {
	d := derive(t, meeting("2024-01-01", true, 110, 100))

	assert.Equal(t, []float64{1, 0}, colOf(t, d, ColIsHome))
	assert.Equal(t, []float64{2, 1}, colOf(t, d, ColOpponentID))
	abbrevs, _ := d.Frame.Strings(ColOpponentAbbrev)
	assert.Equal(t, []string{"BBB", "AAA"}, abbrevs)

	assert.Equal(t, []float64{0, 1}, colOf(t, d, ColTeamIDEncoded))
	assert.Equal(t, []float64{1, 0}, colOf(t, d, ColOpponentEncoded))
}

func TestDerive_OvertimeRate(t *testing.T) {
	recs := []models.GameRecord{
		game(1, "AAA", "2024-01-01", "AAA vs. BBB", "W", 100),
		game(1, "AAA", "2024-01-02", "AAA vs. BBB", "W", 100),
	}
	recs[1].Minutes = 265
	d := derive(t, recs)

	assert.Equal(t, []float64{0, 1}, colOf(t, d, ColIsOvertime))
	assert.Equal(t, []float64{0, 0.5}, colOf(t, d, ColOvertimeRate10))
}

func TestDerive_UnresolvedOpponentIsFilledAndReported(t *testing.T) {
	recs := []models.GameRecord{
		game(1, "AAA", "2024-01-01", "AAA vs. ZZZ", "W", 100),
		game(1, "AAA", "2024-01-02", "AAA @ BBB", "L", 90),
		game(2, "BBB", "2024-01-02", "BBB vs. AAA", "W", 95),
	}
	d := derive(t, recs)

	assert.Equal(t, 1, d.Fill[ColOpponentID])
	assert.Equal(t, 0.0, colOf(t, d, ColOpponentID)[0])
	assert.Equal(t, 0.5, colOf(t, d, ColH2HWinRate)[0])
	// The filled 0 stays out of the identifier space.
	assert.Equal(t, []int64{1, 2}, d.Encoder.Classes())
	assert.Equal(t, []float64{0, 1, 0}, colOf(t, d, ColOpponentEncoded))

	_, err := d.Encoder.Transform(0)
	var uce *UnknownCategoryError
	assert.True(t, errors.As(err, &uce))
}

func TestDerive_FirstAbbreviationPairWins(t *testing.T) {
	recs := []models.GameRecord{
		game(1, "AAA", "2024-01-01", "AAA vs. BBB", "W", 100),
		game(2, "BBB", "2024-01-01", "BBB @ AAA", "L", 90),
		game(9, "AAA", "2024-01-03", "AAA @ BBB", "L", 88),
		game(2, "BBB", "2024-01-03", "BBB vs. AAA", "W", 97),
	}
	d := derive(t, recs)

	opp := colOf(t, d, ColOpponentID)
	assert.Equal(t, 1.0, opp[1])
	assert.Equal(t, 1.0, opp[3])
}

func TestDerive_MissingColumns(t *testing.T) {
	raw := FrameFromRecords(meeting("2024-01-01", true, 100, 90))
	stripped := NewFrame(raw.Len())
	for _, c := range raw.Columns() {
		if c == ColFTA || c == ColMatchup {
			continue
		}
		if v, ok := raw.Float(c); ok {
			require.NoError(t, stripped.SetFloat(c, v))
		} else if s, ok := raw.Strings(c); ok {
			require.NoError(t, stripped.SetString(c, s))
		}
	}

	d, err := NewEngine(zap.NewNop()).Derive(stripped)
	assert.Nil(t, d)
	var fde *FeatureDerivationError
	require.True(t, errors.As(err, &fde))
	assert.Equal(t, []string{ColFTA, ColMatchup}, fde.Missing)
}

func TestDerive_BadDate(t *testing.T) {
	recs := meeting("2024-01-01", true, 100, 90)
	recs[1].GameDate = "not a date"

	_, err := NewEngine(zap.NewNop()).Derive(FrameFromRecords(recs))
	var fde *FeatureDerivationError
	require.True(t, errors.As(err, &fde))
	assert.Equal(t, 1, fde.Row)
}

func TestDerive_DoesNotMutateInput(t *testing.T) {
	raw := FrameFromRecords(meeting("2024-01-01", true, 100, 90))
	before := raw.Columns()
	pts, _ := raw.Float(ColPoints)
	ptsBefore := append([]float64(nil), pts...)

	_, err := NewEngine(zap.NewNop()).Derive(raw)
	require.NoError(t, err)

	assert.Equal(t, before, raw.Columns())
	assert.False(t, raw.Has(ColWin))
	after, _ := raw.Float(ColPoints)
	assert.Equal(t, ptsBefore, after)
}

func TestLatestFeatures(t *testing.T) {
	var recs []models.GameRecord
	recs = append(recs, meeting("2024-01-05", true, 120, 100)...)
	recs = append(recs, meeting("2024-01-01", false, 100, 110)...)
	engine := NewEngine(zap.NewNop())
	d, err := engine.Derive(FrameFromRecords(recs))
	require.NoError(t, err)

	v, err := engine.LatestFeatures(d, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.TeamID)
	assert.Equal(t, 5, v.AsOf.Day())
	assert.Equal(t, 110.0, v.PtsAvg5)
	assert.Equal(t, 1.0, v.WinStreak5)

	_, err = engine.LatestFeatures(d, 99)
	assert.ErrorIs(t, err, ErrNoGames)
}
