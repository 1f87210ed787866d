// Package synth generates synthetic team game logs for seeding a store
// and exercising the training pipeline without provider data.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/models"
)

// FirstTeamID is the ID given to the first generated team; the rest follow.
const FirstTeamID int64 = 1610612737

var abbreviations = []string{
	"ATL", "BOS", "CLE", "NOP", "CHI", "DAL", "DEN", "GSW", "HOU", "LAC",
	"LAL", "MIA", "MIL", "MIN", "BKN", "NYK", "ORL", "IND", "PHI", "PHX",
	"POR", "SAC", "SAS", "OKC", "TOR", "UTA", "MEM", "WAS", "DET", "CHA",
}

// LeagueConfig controls the generated season.
type LeagueConfig struct {
	Teams      int
	Rounds     int
	StartYear  int
	StartDate  time.Time
	Seed       int64
	HomeEdge   float64
	Overtime   float64
	PointScale float64
}

// DefaultLeagueConfig is a 30-team season where every team plays 60 games.
func DefaultLeagueConfig() LeagueConfig {
	return LeagueConfig{
		Teams:      30,
		Rounds:     60,
		StartYear:  2023,
		StartDate:  time.Date(2023, 10, 24, 0, 0, 0, 0, time.UTC),
		Seed:       42,
		HomeEdge:   2.5,
		Overtime:   0.06,
		PointScale: 6,
	}
}

// Team is a generated franchise with its hidden strength rating.
type Team struct {
	models.Team
	Strength float64
}

// League is a generated season.
type League struct {
	Teams []Team
	Games []models.GameRecord
}

// Generate builds a season: each round pairs every team once (one bye when
// the count is odd) and plays the round on its own day. Stronger teams
// score more on average, so outcomes are learnable but noisy.
func Generate(cfg LeagueConfig) (*League, error) {
	if cfg.Teams < 2 || cfg.Teams > len(abbreviations) {
		return nil, fmt.Errorf("teams must be between 2 and %d", len(abbreviations))
	}
	if cfg.Rounds <= 0 {
		return nil, fmt.Errorf("rounds must be positive")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	lg := &League{Teams: make([]Team, cfg.Teams)}
	for i := range lg.Teams {
		abbr := abbreviations[i]
		lg.Teams[i] = Team{
			Team: models.Team{
				ID:           FirstTeamID + int64(i),
				Abbreviation: abbr,
				Name:         abbr + " Synthetic",
			},
			Strength: rng.NormFloat64(),
		}
	}

	season := fmt.Sprintf("2%d", cfg.StartYear)
	seq := 0
	order := rng.Perm(cfg.Teams)
	for round := 0; round < cfg.Rounds; round++ {
		date := cfg.StartDate.AddDate(0, 0, round).Format("2006-01-02")
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for k := 0; k+1 < len(order); k += 2 {
			seq++
			home, away := &lg.Teams[order[k]], &lg.Teams[order[k+1]]
			gameID := fmt.Sprintf("002%02d%05d", cfg.StartYear%100, seq)
			hr, ar := playGame(rng, cfg, home, away)
			for _, r := range []*models.GameRecord{&hr, &ar} {
				r.SeasonID = season
				r.GameID = gameID
				r.GameDate = date
			}
			lg.Games = append(lg.Games, hr, ar)
		}
	}
	return lg, nil
}

func playGame(rng *rand.Rand, cfg LeagueConfig, home, away *Team) (models.GameRecord, models.GameRecord) {
	homePts := 110 + cfg.HomeEdge + cfg.PointScale*home.Strength + 11*rng.NormFloat64()
	awayPts := 110 + cfg.PointScale*away.Strength + 11*rng.NormFloat64()
	homePts, awayPts = math.Round(homePts), math.Round(awayPts)

	minutes := features.RegulationMinutes
	if homePts == awayPts || rng.Float64() < cfg.Overtime {
		minutes += 25
		homePts += math.Round(8 + 3*rng.NormFloat64())
		awayPts += math.Round(8 + 3*rng.NormFloat64())
		if homePts == awayPts {
			homePts++
		}
	}

	hr := statLine(rng, home, homePts, homePts > awayPts, minutes)
	ar := statLine(rng, away, awayPts, awayPts > homePts, minutes)
	hr.Matchup = fmt.Sprintf("%s vs. %s", home.Abbreviation, away.Abbreviation)
	ar.Matchup = fmt.Sprintf("%s @ %s", away.Abbreviation, home.Abbreviation)
	return hr, ar
}

func statLine(rng *rand.Rand, t *Team, pts float64, won bool, minutes float64) models.GameRecord {
	edge := 0.0
	wl := "L"
	if won {
		edge = 1
		wl = "W"
	}
	noise := func(mean, sd float64) float64 { return math.Max(0, mean+sd*rng.NormFloat64()) }
	pct := func(mean, sd float64) float64 {
		return math.Round(math.Min(1, noise(mean, sd))*1000) / 1000
	}
	return models.GameRecord{
		TeamID:           t.ID,
		TeamAbbreviation: t.Abbreviation,
		TeamName:         t.Name,
		WL:               wl,
		Minutes:          minutes,
		Points:           pts,
		FGA:              math.Round(noise(88, 5)),
		FGPct:            pct(0.455+0.02*edge, 0.035),
		FG3Pct:           pct(0.355+0.02*edge, 0.05),
		FTPct:            pct(0.78, 0.06),
		FTA:              math.Round(noise(22, 5)),
		Assists:          math.Round(noise(24+2*edge, 4)),
		Rebounds:         math.Round(noise(43+2*edge, 5)),
		Turnovers:        math.Round(noise(13.5-edge, 3)),
		Steals:           math.Round(noise(7.5+0.5*edge+0.5*t.Strength, 2.5)),
		Blocks:           math.Round(noise(5, 2)),
	}
}
