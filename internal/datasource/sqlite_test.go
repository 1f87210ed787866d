package datasource

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/openhoops/match-predictor/internal/models"
)

func TestSQLiteStore_InsertAndRead(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "snap", "games.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	games := []models.GameRecord{
		{SeasonID: "22023", TeamID: 1, TeamAbbreviation: "AAA", TeamName: "Alphas", GameID: "g1", GameDate: "2024-01-02",
			Matchup: "AAA vs. BBB", WL: "W", Minutes: 240, Points: 110, FGA: 85, FTA: math.NaN()},
		{SeasonID: "22023", TeamID: 2, TeamAbbreviation: "BBB", GameID: "g1", GameDate: "2024-01-02",
			Matchup: "BBB @ AAA", WL: "L", Minutes: 240, Points: 100, FGA: 90, FTA: 15},
		{SeasonID: "22023", TeamID: 1, TeamAbbreviation: "AAA", TeamName: "Alphas", GameID: "g2", GameDate: "JAN 05, 2024",
			Matchup: "AAA @ BBB", WL: "L", Minutes: 265, Points: 98, FGA: 80, FTA: 10},
	}
	n, err := store.InsertGames(ctx, games)
	if err != nil || n != 3 {
		t.Fatalf("InsertGames = (%d, %v), want (3, nil)", n, err)
	}
	// Replacing the same rows keeps one copy.
	if _, err := store.InsertGames(ctx, games); err != nil {
		t.Fatalf("InsertGames again: %v", err)
	}

	season, err := store.GamesBySeason(ctx, "2023-24")
	if err != nil {
		t.Fatalf("GamesBySeason: %v", err)
	}
	if len(season) != 3 {
		t.Fatalf("got %d season games, want 3", len(season))
	}
	if !math.IsNaN(season[0].FTA) {
		t.Errorf("NULL FTA should read back as NaN, got %v", season[0].FTA)
	}
	if season[2].GameDate != "2024-01-05" || season[2].Minutes != 265 {
		t.Errorf("unexpected last game: %+v", season[2])
	}

	team, err := store.GamesByTeam(ctx, 1, "22023")
	if err != nil {
		t.Fatalf("GamesByTeam: %v", err)
	}
	if len(team) != 2 {
		t.Errorf("got %d team games, want 2", len(team))
	}

	teams, err := store.Teams(ctx)
	if err != nil {
		t.Fatalf("Teams: %v", err)
	}
	if len(teams) != 2 || teams[0].Name != "Alphas" || teams[1].Abbreviation != "BBB" {
		t.Errorf("unexpected teams: %+v", teams)
	}
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")
	store, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	_, err = store.InsertGames(context.Background(), []models.GameRecord{{
		SeasonID: "2023-24", TeamID: 9, TeamAbbreviation: "NNN", GameID: "x", GameDate: "2024-02-01", Matchup: "NNN vs. MMM",
	}})
	if err != nil {
		t.Fatalf("InsertGames: %v", err)
	}
	store.Close()

	store, err = OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	teams, err := store.Teams(context.Background())
	if err != nil || len(teams) != 1 {
		t.Fatalf("Teams after reopen = (%v, %v)", teams, err)
	}
}

func TestSQLiteStore_RejectsBadDate(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer store.Close()
	_, err = store.InsertGames(context.Background(), []models.GameRecord{{TeamID: 1, GameID: "g", GameDate: "someday"}})
	if err == nil {
		t.Fatal("expected date parse error")
	}
}

func TestPgxMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/hoops?sslmode=disable": "pgx5://u:p@db:5432/hoops?sslmode=disable",
		"postgresql://db/hoops":                        "pgx5://db/hoops",
		"pgx5://db/hoops":                              "pgx5://db/hoops",
	}
	for in, want := range tests {
		if got := pgxMigrateURL(in); got != want {
			t.Errorf("pgxMigrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}
