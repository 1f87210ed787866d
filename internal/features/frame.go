package features

import (
	"fmt"
	"math"

	"github.com/openhoops/match-predictor/internal/models"
)

// Raw columns as delivered by the statistics provider.
const (
	ColGameDate         = "GAME_DATE"
	ColGameID           = "GAME_ID"
	ColTeamID           = "TEAM_ID"
	ColTeamAbbreviation = "TEAM_ABBREVIATION"
	ColMatchup          = "MATCHUP"
	ColWL               = "WL"
	ColMinutes          = "MIN"
	ColPoints           = "PTS"
	ColFGA              = "FGA"
	ColFGPct            = "FG_PCT"
	ColFTPct            = "FT_PCT"
	ColFG3Pct           = "FG3_PCT"
	ColAssists          = "AST"
	ColRebounds         = "REB"
	ColFTA              = "FTA"
	ColTurnovers        = "TOV"
	ColSteals           = "STL"
	ColBlocks           = "BLK"
)

// Frame is a column-oriented table of equal-length numeric and string
// columns. Column order is insertion order.
type Frame struct {
	n     int
	num   map[string][]float64
	str   map[string][]string
	order []string
}

// NewFrame returns an empty frame with n rows.
func NewFrame(n int) *Frame {
	return &Frame{
		n:   n,
		num: make(map[string][]float64),
		str: make(map[string][]string),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// SetFloat adds or replaces a numeric column.
func (f *Frame) SetFloat(name string, vals []float64) error {
	if len(vals) != f.n {
		return fmt.Errorf("column %s has %d rows, frame has %d", name, len(vals), f.n)
	}
	if _, ok := f.str[name]; ok {
		delete(f.str, name)
	} else if _, ok := f.num[name]; !ok {
		f.order = append(f.order, name)
	}
	f.num[name] = vals
	return nil
}

// SetString adds or replaces a string column.
func (f *Frame) SetString(name string, vals []string) error {
	if len(vals) != f.n {
		return fmt.Errorf("column %s has %d rows, frame has %d", name, len(vals), f.n)
	}
	if _, ok := f.num[name]; ok {
		delete(f.num, name)
	} else if _, ok := f.str[name]; !ok {
		f.order = append(f.order, name)
	}
	f.str[name] = vals
	return nil
}

// Float returns a numeric column. The slice is shared with the frame.
func (f *Frame) Float(name string) ([]float64, bool) {
	v, ok := f.num[name]
	return v, ok
}

// Strings returns a string column. The slice is shared with the frame.
func (f *Frame) Strings(name string) ([]string, bool) {
	v, ok := f.str[name]
	return v, ok
}

// Has reports whether the frame carries a column of either kind.
func (f *Frame) Has(name string) bool {
	if _, ok := f.num[name]; ok {
		return true
	}
	_, ok := f.str[name]
	return ok
}

// Columns returns column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Clone deep-copies the frame.
func (f *Frame) Clone() *Frame {
	c := NewFrame(f.n)
	c.order = append([]string(nil), f.order...)
	for k, v := range f.num {
		c.num[k] = append([]float64(nil), v...)
	}
	for k, v := range f.str {
		c.str[k] = append([]string(nil), v...)
	}
	return c
}

// FrameFromRecords builds a raw frame from decoded game records.
func FrameFromRecords(recs []models.GameRecord) *Frame {
	n := len(recs)
	f := NewFrame(n)

	dates := make([]string, n)
	gameIDs := make([]string, n)
	abbrevs := make([]string, n)
	matchups := make([]string, n)
	wl := make([]string, n)
	teamIDs := make([]float64, n)
	numeric := map[string][]float64{}
	numericOrder := []string{ColMinutes, ColPoints, ColFGA, ColFGPct, ColFTPct, ColFG3Pct,
		ColAssists, ColRebounds, ColFTA, ColTurnovers, ColSteals, ColBlocks}
	for _, c := range numericOrder {
		numeric[c] = make([]float64, n)
	}

	for i, r := range recs {
		dates[i] = r.GameDate
		gameIDs[i] = r.GameID
		abbrevs[i] = r.TeamAbbreviation
		matchups[i] = r.Matchup
		wl[i] = r.WL
		teamIDs[i] = float64(r.TeamID)
		numeric[ColMinutes][i] = r.Minutes
		numeric[ColPoints][i] = r.Points
		numeric[ColFGA][i] = r.FGA
		numeric[ColFGPct][i] = r.FGPct
		numeric[ColFTPct][i] = r.FTPct
		numeric[ColFG3Pct][i] = r.FG3Pct
		numeric[ColAssists][i] = r.Assists
		numeric[ColRebounds][i] = r.Rebounds
		numeric[ColFTA][i] = r.FTA
		numeric[ColTurnovers][i] = r.Turnovers
		numeric[ColSteals][i] = r.Steals
		numeric[ColBlocks][i] = r.Blocks
	}

	// lengths match by construction
	_ = f.SetString(ColGameDate, dates)
	_ = f.SetString(ColGameID, gameIDs)
	_ = f.SetFloat(ColTeamID, teamIDs)
	_ = f.SetString(ColTeamAbbreviation, abbrevs)
	_ = f.SetString(ColMatchup, matchups)
	_ = f.SetString(ColWL, wl)
	for _, c := range numericOrder {
		_ = f.SetFloat(c, numeric[c])
	}
	return f
}

// countNaN returns the number of undefined cells in a column.
func countNaN(vals []float64) int {
	n := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
