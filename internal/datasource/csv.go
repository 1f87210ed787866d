package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/openhoops/match-predictor/internal/models"
)

type csvField struct {
	text func(*models.GameRecord) *string
	num  func(*models.GameRecord) *float64
}

// csvFields maps provider export headers to GameRecord fields.
var csvFields = map[string]csvField{
	"SEASON_ID":         {text: func(g *models.GameRecord) *string { return &g.SeasonID }},
	"TEAM_ABBREVIATION": {text: func(g *models.GameRecord) *string { return &g.TeamAbbreviation }},
	"TEAM_NAME":         {text: func(g *models.GameRecord) *string { return &g.TeamName }},
	"GAME_ID":           {text: func(g *models.GameRecord) *string { return &g.GameID }},
	"GAME_DATE":         {text: func(g *models.GameRecord) *string { return &g.GameDate }},
	"MATCHUP":           {text: func(g *models.GameRecord) *string { return &g.Matchup }},
	"WL":                {text: func(g *models.GameRecord) *string { return &g.WL }},
	"MIN":               {num: func(g *models.GameRecord) *float64 { return &g.Minutes }},
	"PTS":               {num: func(g *models.GameRecord) *float64 { return &g.Points }},
	"FGA":               {num: func(g *models.GameRecord) *float64 { return &g.FGA }},
	"FG_PCT":            {num: func(g *models.GameRecord) *float64 { return &g.FGPct }},
	"FG3_PCT":           {num: func(g *models.GameRecord) *float64 { return &g.FG3Pct }},
	"FT_PCT":            {num: func(g *models.GameRecord) *float64 { return &g.FTPct }},
	"FTA":               {num: func(g *models.GameRecord) *float64 { return &g.FTA }},
	"AST":               {num: func(g *models.GameRecord) *float64 { return &g.Assists }},
	"REB":               {num: func(g *models.GameRecord) *float64 { return &g.Rebounds }},
	"TOV":               {num: func(g *models.GameRecord) *float64 { return &g.Turnovers }},
	"STL":               {num: func(g *models.GameRecord) *float64 { return &g.Steals }},
	"BLK":               {num: func(g *models.GameRecord) *float64 { return &g.Blocks }},
}

// csvHeader is the column order WriteCSV emits.
var csvHeader = []string{
	"SEASON_ID", "TEAM_ID", "TEAM_ABBREVIATION", "TEAM_NAME", "GAME_ID", "GAME_DATE", "MATCHUP", "WL",
	"MIN", "PTS", "FGA", "FG_PCT", "FG3_PCT", "FT_PCT", "FTA", "AST", "REB", "TOV", "STL", "BLK",
}

// LoadCSV reads a provider game-log export. Columns are matched by header;
// unknown columns are ignored and empty numeric cells become NaN. TEAM_ID
// is required.
func LoadCSV(r io.Reader) ([]models.GameRecord, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header = append([]string(nil), header...)

	teamIDCol := -1
	cols := make([]csvField, len(header))
	known := make([]bool, len(header))
	for i, h := range header {
		h = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if h == "TEAM_ID" {
			teamIDCol = i
			continue
		}
		cols[i], known[i] = csvFields[h]
	}
	if teamIDCol < 0 {
		return nil, errors.New("csv is missing the TEAM_ID column")
	}

	var games []models.GameRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		var g models.GameRecord
		for _, p := range []*float64{&g.Minutes, &g.Points, &g.FGA, &g.FGPct, &g.FG3Pct, &g.FTPct,
			&g.FTA, &g.Assists, &g.Rebounds, &g.Turnovers, &g.Steals, &g.Blocks} {
			*p = math.NaN()
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec[teamIDCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: TEAM_ID %q: %w", line, rec[teamIDCol], err)
		}
		g.TeamID = id

		for i, cell := range rec {
			if !known[i] {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cols[i].text != nil {
				*cols[i].text(&g) = cell
				continue
			}
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: %s %q: %w", line, header[i], cell, err)
			}
			*cols[i].num(&g) = v
		}
		games = append(games, g)
	}
	return games, nil
}

// LoadCSVFile is LoadCSV over a file on disk.
func LoadCSVFile(path string) ([]models.GameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f)
}

// WriteCSV writes games in the provider export layout LoadCSV reads.
// NaN values are written as empty cells.
func WriteCSV(w io.Writer, games []models.GameRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	num := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	for _, g := range games {
		row := []string{
			g.SeasonID, strconv.FormatInt(g.TeamID, 10), g.TeamAbbreviation, g.TeamName, g.GameID, g.GameDate, g.Matchup, g.WL,
			num(g.Minutes), num(g.Points), num(g.FGA), num(g.FGPct), num(g.FG3Pct), num(g.FTPct),
			num(g.FTA), num(g.Assists), num(g.Rebounds), num(g.Turnovers), num(g.Steals), num(g.Blocks),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
