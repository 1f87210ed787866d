package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/models"
)

// RegulationMinutes is the summed player-minutes of a regulation game
// (48 minutes x 5 players). Anything above it went to overtime.
const RegulationMinutes = 240.0

// neutralH2H is the head-to-head rate before two teams have ever met.
const neutralH2H = 0.5

var requiredText = []string{ColGameDate, ColTeamAbbreviation, ColMatchup, ColWL}

var requiredNumeric = []string{
	ColTeamID, ColMinutes, ColPoints, ColFGA, ColFGPct, ColFTPct, ColFG3Pct,
	ColAssists, ColRebounds, ColFTA, ColTurnovers, ColSteals, ColBlocks,
}

type column struct {
	name string
	vals []float64
}

// FillReport counts undefined cells replaced with 0, per column.
type FillReport map[string]int

// Total returns the number of filled cells across all columns.
func (r FillReport) Total() int {
	n := 0
	for _, c := range r {
		n += c
	}
	return n
}

// Derived is the feature table produced by Engine.Derive together with the
// encoder fit on it.
type Derived struct {
	Frame   *Frame
	Encoder *TeamEncoder
	Fill    FillReport
	dates   []time.Time
}

// Dates returns the parsed game date of every row.
func (d *Derived) Dates() []time.Time {
	return append([]time.Time(nil), d.dates...)
}

// TeamAbbreviations maps every team in the table to its abbreviation.
func (d *Derived) TeamAbbreviations() map[int64]string {
	ids, _ := d.Frame.Float(ColTeamID)
	abbrevs, _ := d.Frame.Strings(ColTeamAbbreviation)
	out := make(map[int64]string)
	for i, id := range ids {
		out[int64(id)] = abbrevs[i]
	}
	return out
}

// Engine derives model features from raw per-game team rows.
type Engine struct {
	logger *zap.SugaredLogger
}

// NewEngine creates a feature engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger.Sugar()}
}

// Derive augments a raw game table with rolling, streak, head-to-head and
// encoded identifier columns. The input frame is not modified.
func (e *Engine) Derive(raw *Frame) (*Derived, error) {
	var missing []string
	for _, c := range requiredText {
		if _, ok := raw.Strings(c); !ok {
			missing = append(missing, c)
		}
	}
	for _, c := range requiredNumeric {
		if _, ok := raw.Float(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &FeatureDerivationError{Missing: missing}
	}

	n := raw.Len()
	out := raw.Clone()
	col := func(name string) []float64 { v, _ := out.Float(name); return v }
	text := func(name string) []string { v, _ := out.Strings(name); return v }

	dates := make([]time.Time, n)
	for i, s := range text(ColGameDate) {
		d, err := models.ParseGameDate(s)
		if err != nil {
			return nil, &FeatureDerivationError{Row: i, Err: err}
		}
		dates[i] = d
	}
	teamIDs := col(ColTeamID)
	for i, id := range teamIDs {
		if math.IsNaN(id) {
			return nil, &FeatureDerivationError{Row: i, Err: fmt.Errorf("undefined %s", ColTeamID)}
		}
	}

	// Per-team row order: date ascending, input order on ties.
	byTeam := make(map[int64][]int)
	for i, id := range teamIDs {
		byTeam[int64(id)] = append(byTeam[int64(id)], i)
	}
	for _, rows := range byTeam {
		sort.SliceStable(rows, func(a, b int) bool { return dates[rows[a]].Before(dates[rows[b]]) })
	}

	win := make([]float64, n)
	for i, r := range text(ColWL) {
		if r == "W" {
			win[i] = 1
		}
	}
	overtime := make([]float64, n)
	for i, m := range col(ColMinutes) {
		if m > RegulationMinutes {
			overtime[i] = 1
		}
	}
	drawRate := make([]float64, n)
	fta, fga := col(ColFTA), col(ColFGA)
	for i := range drawRate {
		switch {
		case math.IsNaN(fta[i]) || math.IsNaN(fga[i]):
			drawRate[i] = math.NaN()
		case fga[i] > 0:
			drawRate[i] = fta[i] / fga[i]
		}
	}

	derived := []column{
		{ColWin, win},
		{ColIsOvertime, overtime},
		{ColFTDrawingRate, drawRate},
	}

	for _, stat := range RollingStats {
		src := col(stat)
		for _, w := range RollingWindows {
			dst := make([]float64, n)
			for _, rows := range byTeam {
				rollingMean(src, rows, w, dst)
			}
			derived = append(derived, column{RollingColumn(stat, w), dst})
		}
	}

	drawAvg := make([]float64, n)
	streak := make([]float64, n)
	otRate := make([]float64, n)
	for _, rows := range byTeam {
		rollingMean(drawRate, rows, 5, drawAvg)
		rollingSum(win, rows, 5, streak)
		rollingMean(overtime, rows, 10, otRate)
	}

	matchups := text(ColMatchup)
	abbrevToID := make(map[string]float64)
	for i, a := range text(ColTeamAbbreviation) {
		if _, ok := abbrevToID[a]; !ok {
			abbrevToID[a] = teamIDs[i]
		}
	}
	isHome := make([]float64, n)
	oppAbbrev := make([]string, n)
	oppID := make([]float64, n)
	unresolved := make([]bool, n)
	for i, m := range matchups {
		if models.IsHomeMatchup(m) {
			isHome[i] = 1
		}
		oppAbbrev[i] = models.OpponentAbbreviation(m)
		if id, ok := abbrevToID[oppAbbrev[i]]; ok {
			oppID[i] = id
		} else {
			oppID[i] = math.NaN()
			unresolved[i] = true
		}
	}

	h2h := make([]float64, n)
	for _, rows := range byTeam {
		headToHead(rows, oppID, win, dates, h2h)
	}

	derived = append(derived, []column{
		{ColFTDrawingRateAvg5, drawAvg},
		{ColWinStreak5, streak},
		{ColOvertimeRate10, otRate},
		{ColIsHome, isHome},
		{ColOpponentID, oppID},
		{ColH2HWinRate, h2h},
	}...)
	for _, d := range derived {
		if err := out.SetFloat(d.name, d.vals); err != nil {
			return nil, &FeatureDerivationError{Row: -1, Err: err}
		}
	}
	if err := out.SetString(ColOpponentAbbrev, oppAbbrev); err != nil {
		return nil, &FeatureDerivationError{Row: -1, Err: err}
	}

	fill := FillReport{}
	for _, name := range out.Columns() {
		vals, ok := out.Float(name)
		if !ok {
			continue
		}
		cnt := countNaN(vals)
		if cnt == 0 {
			continue
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = 0
			}
		}
		fill[name] = cnt
		e.logger.Warnw("Filled undefined feature cells with 0", "column", name, "count", cnt)
	}

	// Unresolved opponents stay out of the identifier space and encode as 0.
	teamInts := make([]int64, n)
	oppInts := make([]int64, 0, n)
	for i := range teamInts {
		teamInts[i] = int64(teamIDs[i])
		if !unresolved[i] {
			oppInts = append(oppInts, int64(oppID[i]))
		}
	}
	enc := FitTeamEncoder(teamInts, oppInts)
	teamCodes := make([]float64, n)
	oppCodes := make([]float64, n)
	for i := range teamCodes {
		tc, _ := enc.Transform(teamInts[i])
		teamCodes[i] = float64(tc)
		if !unresolved[i] {
			oc, _ := enc.Transform(int64(oppID[i]))
			oppCodes[i] = float64(oc)
		}
	}
	_ = out.SetFloat(ColTeamIDEncoded, teamCodes)
	_ = out.SetFloat(ColOpponentEncoded, oppCodes)

	e.logger.Infow("Derived features",
		"rows", n,
		"teams", len(byTeam),
		"encoded_ids", enc.Len(),
		"filled_cells", fill.Total(),
	)

	return &Derived{Frame: out, Encoder: enc, Fill: fill, dates: dates}, nil
}

// LatestFeatures returns the team's feature vector from its most recent
// row in the derived table.
func (e *Engine) LatestFeatures(d *Derived, teamID int64) (models.TeamFeatureVector, error) {
	ids, _ := d.Frame.Float(ColTeamID)
	best := -1
	for i, id := range ids {
		if int64(id) != teamID {
			continue
		}
		if best < 0 || !d.dates[i].Before(d.dates[best]) {
			best = i
		}
	}
	if best < 0 {
		return models.TeamFeatureVector{}, fmt.Errorf("team %d: %w", teamID, ErrNoGames)
	}

	v := models.TeamFeatureVector{TeamID: teamID, AsOf: d.dates[best]}
	for _, name := range models.FeatureNames() {
		vals, ok := d.Frame.Float(name)
		if !ok {
			return models.TeamFeatureVector{}, fmt.Errorf("derived table lacks %s", name)
		}
		v.Set(name, vals[best])
	}
	return v, nil
}

// rollingMean writes, for each row in order, the mean of the defined
// values among the trailing window rows (current included).
func rollingMean(src []float64, order []int, window int, dst []float64) {
	rolling(src, order, window, dst, func(sum float64, cnt int) float64 { return sum / float64(cnt) })
}

func rollingSum(src []float64, order []int, window int, dst []float64) {
	rolling(src, order, window, dst, func(sum float64, _ int) float64 { return sum })
}

// rolling skips undefined cells; a window without any defined value is NaN.
func rolling(src []float64, order []int, window int, dst []float64, agg func(float64, int) float64) {
	for k, row := range order {
		lo := k - window + 1
		if lo < 0 {
			lo = 0
		}
		sum, cnt := 0.0, 0
		for _, j := range order[lo : k+1] {
			if math.IsNaN(src[j]) {
				continue
			}
			sum += src[j]
			cnt++
		}
		if cnt == 0 {
			dst[row] = math.NaN()
			continue
		}
		dst[row] = agg(sum, cnt)
	}
}

// headToHead fills dst for one team's date-ordered rows with the win rate
// over strictly earlier meetings with the same opponent.
func headToHead(rows []int, oppID, win []float64, dates []time.Time, dst []float64) {
	byOpp := make(map[int64][]int)
	for _, r := range rows {
		if math.IsNaN(oppID[r]) {
			dst[r] = neutralH2H
			continue
		}
		o := int64(oppID[r])
		byOpp[o] = append(byOpp[o], r)
	}
	for _, meetings := range byOpp {
		var wins, games float64
		for i := 0; i < len(meetings); {
			j := i
			for j < len(meetings) && dates[meetings[j]].Equal(dates[meetings[i]]) {
				j++
			}
			rate := neutralH2H
			if games > 0 {
				rate = wins / games
			}
			for _, r := range meetings[i:j] {
				dst[r] = rate
			}
			for _, r := range meetings[i:j] {
				wins += win[r]
				games++
			}
			i = j
		}
	}
}
