package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/openhoops/match-predictor/internal/models"
)

// SQLiteStore is a single-file snapshot of game logs for offline training.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the snapshot at path and
// applies the schema migrations.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	if err := MigrateSQLite(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const sqliteGameColumns = `season, team_id, team_abbreviation, team_name, game_id, game_date, matchup,
	COALESCE(wl, ''), minutes, pts, fga, fg_pct, fg3_pct, ft_pct, fta, ast, reb, tov, stl, blk`

func (s *SQLiteStore) GamesBySeason(ctx context.Context, season string) ([]models.GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteGameColumns+`
		FROM games WHERE season = ? ORDER BY game_date, game_id, team_id`, models.NormalizeSeason(season))
	if err != nil {
		return nil, fmt.Errorf("query season games: %w", err)
	}
	return scanSQLiteGames(rows)
}

func (s *SQLiteStore) GamesByTeam(ctx context.Context, teamID int64, season string) ([]models.GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteGameColumns+`
		FROM games WHERE team_id = ? AND season = ? ORDER BY game_date, game_id`, teamID, models.NormalizeSeason(season))
	if err != nil {
		return nil, fmt.Errorf("query team games: %w", err)
	}
	return scanSQLiteGames(rows)
}

// Teams lists every team present in the snapshot, using the most recent
// abbreviation and name recorded for it.
func (s *SQLiteStore) Teams(ctx context.Context) ([]models.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.team_id, g.team_name, g.team_abbreviation
		FROM games g
		WHERE g.game_date = (SELECT MAX(game_date) FROM games WHERE team_id = g.team_id)
		GROUP BY g.team_id
		ORDER BY g.team_id`)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Abbreviation); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// InsertGames replaces rows with the same game and team in one transaction.
func (s *SQLiteStore) InsertGames(ctx context.Context, games []models.GameRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO games (
		game_id, team_id, season, team_abbreviation, team_name, game_date, matchup, wl,
		minutes, pts, fga, fg_pct, fg3_pct, ft_pct, fta, ast, reb, tov, stl, blk
	) VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range games {
		date, err := g.Date()
		if err != nil {
			return 0, fmt.Errorf("game %s team %d: %w", g.GameID, g.TeamID, err)
		}
		_, err = stmt.ExecContext(ctx,
			g.GameID, g.TeamID, models.NormalizeSeason(g.SeasonID), g.TeamAbbreviation, g.TeamName,
			date.Format("2006-01-02"), g.Matchup, g.WL,
			nullable(g.Minutes), nullable(g.Points), nullable(g.FGA), nullable(g.FGPct),
			nullable(g.FG3Pct), nullable(g.FTPct), nullable(g.FTA), nullable(g.Assists),
			nullable(g.Rebounds), nullable(g.Turnovers), nullable(g.Steals), nullable(g.Blocks),
		)
		if err != nil {
			return 0, fmt.Errorf("insert game %s team %d: %w", g.GameID, g.TeamID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(games), nil
}

// nullable stores NaN as NULL; SQLite has no NaN.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func scanSQLiteGames(rows *sql.Rows) ([]models.GameRecord, error) {
	defer rows.Close()
	var games []models.GameRecord
	for rows.Next() {
		var g models.GameRecord
		var stats [12]sql.NullFloat64
		err := rows.Scan(&g.SeasonID, &g.TeamID, &g.TeamAbbreviation, &g.TeamName, &g.GameID, &g.GameDate,
			&g.Matchup, &g.WL, &stats[0], &stats[1], &stats[2], &stats[3], &stats[4], &stats[5],
			&stats[6], &stats[7], &stats[8], &stats[9], &stats[10], &stats[11])
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		dst := []*float64{&g.Minutes, &g.Points, &g.FGA, &g.FGPct, &g.FG3Pct, &g.FTPct,
			&g.FTA, &g.Assists, &g.Rebounds, &g.Turnovers, &g.Steals, &g.Blocks}
		for i, v := range stats {
			*dst[i] = math.NaN()
			if v.Valid {
				*dst[i] = v.Float64
			}
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
