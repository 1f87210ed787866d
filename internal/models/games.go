package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GameRecord is one team's box score line for one game, as delivered by the
// statistics provider. Opponent and home/away are derived from Matchup.
type GameRecord struct {
	SeasonID         string  `json:"SEASON_ID"`
	TeamID           int64   `json:"TEAM_ID" validate:"required"`
	TeamAbbreviation string  `json:"TEAM_ABBREVIATION" validate:"required"`
	TeamName         string  `json:"TEAM_NAME,omitempty"`
	GameID           string  `json:"GAME_ID" validate:"required"`
	GameDate         string  `json:"GAME_DATE" validate:"required"`
	Matchup          string  `json:"MATCHUP" validate:"required"`
	WL               string  `json:"WL" validate:"omitempty,oneof=W L"`
	Minutes          float64 `json:"MIN" validate:"gte=0"`
	Points           float64 `json:"PTS" validate:"gte=0"`
	FGA              float64 `json:"FGA" validate:"gte=0"`
	FGPct            float64 `json:"FG_PCT" validate:"gte=0,lte=1"`
	FG3Pct           float64 `json:"FG3_PCT" validate:"gte=0,lte=1"`
	FTPct            float64 `json:"FT_PCT" validate:"gte=0,lte=1"`
	FTA              float64 `json:"FTA" validate:"gte=0"`
	Assists          float64 `json:"AST" validate:"gte=0"`
	Rebounds         float64 `json:"REB" validate:"gte=0"`
	Turnovers        float64 `json:"TOV" validate:"gte=0"`
	Steals           float64 `json:"STL" validate:"gte=0"`
	Blocks           float64 `json:"BLK" validate:"gte=0"`
}

// gameDateLayouts are the date encodings seen in provider exports.
var gameDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"Jan 02, 2006",
	"01/02/2006",
}

// ParseGameDate parses a GAME_DATE value in any of the known layouts.
func ParseGameDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range gameDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Provider exports upper-case month names ("APR 13, 2025")
	if len(s) > 3 {
		if t, err := time.Parse("Jan 02, 2006", s[:1]+strings.ToLower(s[1:3])+s[3:]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized game date %q", s)
}

// Date returns the parsed GameDate.
func (g GameRecord) Date() (time.Time, error) {
	return ParseGameDate(g.GameDate)
}

// IsHome reports whether the matchup descriptor marks this row as the home side.
func (g GameRecord) IsHome() bool {
	return IsHomeMatchup(g.Matchup)
}

// IsHomeMatchup reports whether a matchup descriptor ("LAL vs. BOS" / "LAL @ BOS")
// is written from the home team's perspective.
func IsHomeMatchup(matchup string) bool {
	return strings.Contains(matchup, "vs.")
}

// OpponentAbbreviation extracts the opponent's abbreviation from a matchup
// descriptor: the last token for away games, the text after "vs." otherwise.
func OpponentAbbreviation(matchup string) string {
	if strings.Contains(matchup, "@") {
		fields := strings.Fields(matchup)
		if len(fields) == 0 {
			return ""
		}
		return fields[len(fields)-1]
	}
	parts := strings.Split(matchup, "vs.")
	return strings.TrimSpace(parts[len(parts)-1])
}

// NormalizeSeason converts provider season identifiers to the "2023-24"
// form. "22023" (season type digit plus start year) and "2023" both map to
// "2023-24"; anything unrecognized is returned trimmed but unchanged.
func NormalizeSeason(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 7 && s[4] == '-' {
		return s
	}
	digits := s
	if len(digits) == 5 {
		digits = digits[1:]
	}
	year, err := strconv.Atoi(digits)
	if err != nil || len(digits) != 4 {
		return s
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// Team is the display metadata for a franchise.
type Team struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}
