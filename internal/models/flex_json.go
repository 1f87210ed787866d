package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// targets maps each provider column onto the record field it fills.
func (g *GameRecord) targets() (map[string]*string, map[string]*float64) {
	text := map[string]*string{
		"SEASON_ID":         &g.SeasonID,
		"TEAM_ABBREVIATION": &g.TeamAbbreviation,
		"TEAM_NAME":         &g.TeamName,
		"GAME_ID":           &g.GameID,
		"GAME_DATE":         &g.GameDate,
		"MATCHUP":           &g.Matchup,
		"WL":                &g.WL,
	}
	stats := map[string]*float64{
		"MIN":     &g.Minutes,
		"PTS":     &g.Points,
		"FGA":     &g.FGA,
		"FG_PCT":  &g.FGPct,
		"FG3_PCT": &g.FG3Pct,
		"FT_PCT":  &g.FTPct,
		"FTA":     &g.FTA,
		"AST":     &g.Assists,
		"REB":     &g.Rebounds,
		"TOV":     &g.Turnovers,
		"STL":     &g.Steals,
		"BLK":     &g.Blocks,
	}
	return text, stats
}

// UnmarshalJSON accepts both string-encoded and native JSON values.
// Stats feeds and spreadsheet exports frequently quote every cell
// ("PTS": "112") and emit numeric game IDs. Empty and null cells leave the
// field at its zero value.
func (g *GameRecord) UnmarshalJSON(data []byte) error {
	type plain GameRecord
	if err := json.Unmarshal(data, (*plain)(g)); err == nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("game record: %w", err)
	}

	*g = GameRecord{}
	text, stats := g.targets()
	for key, val := range raw {
		cell, ok := cellText(val)
		if !ok {
			continue
		}
		switch {
		case key == "TEAM_ID":
			if n, err := strconv.ParseFloat(cell, 64); err == nil {
				g.TeamID = int64(n)
			}
		case text[key] != nil:
			*text[key] = cell
		case stats[key] != nil:
			if n, err := strconv.ParseFloat(cell, 64); err == nil {
				*stats[key] = n
			}
		}
	}
	return nil
}

// cellText returns a JSON string's contents or a number literal's text.
func cellText(val json.RawMessage) (string, bool) {
	val = bytes.TrimSpace(val)
	if len(val) == 0 || bytes.Equal(val, []byte("null")) {
		return "", false
	}
	if val[0] == '"' {
		var s string
		if err := json.Unmarshal(val, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	}
	return string(val), true
}
