package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openhoops/match-predictor/internal/models"
)

// PgPool is the subset of *pgxpool.Pool the store uses.
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PgStore keeps game logs and the team directory in PostgreSQL.
type PgStore struct {
	pg PgPool
}

func NewPgStore(pg PgPool) *PgStore {
	return &PgStore{pg: pg}
}

// Missing box score values are stored as NULL and read back as NaN.
const gameColumns = `
	g.season, g.team_id, g.team_abbreviation, COALESCE(t.name, ''), g.game_id, g.game_date,
	g.matchup, COALESCE(g.wl, ''),
	COALESCE(g.minutes, 'NaN'), COALESCE(g.pts, 'NaN'), COALESCE(g.fga, 'NaN'),
	COALESCE(g.fg_pct, 'NaN'), COALESCE(g.fg3_pct, 'NaN'), COALESCE(g.ft_pct, 'NaN'),
	COALESCE(g.fta, 'NaN'), COALESCE(g.ast, 'NaN'), COALESCE(g.reb, 'NaN'),
	COALESCE(g.tov, 'NaN'), COALESCE(g.stl, 'NaN'), COALESCE(g.blk, 'NaN')`

func (s *PgStore) GamesBySeason(ctx context.Context, season string) ([]models.GameRecord, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT `+gameColumns+`
		FROM games g
		LEFT JOIN teams t ON t.id = g.team_id
		WHERE g.season = $1
		ORDER BY g.game_date, g.game_id, g.team_id
	`, models.NormalizeSeason(season))
	if err != nil {
		return nil, fmt.Errorf("failed to query season games: %w", err)
	}
	return scanGames(rows)
}

func (s *PgStore) GamesByTeam(ctx context.Context, teamID int64, season string) ([]models.GameRecord, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT `+gameColumns+`
		FROM games g
		LEFT JOIN teams t ON t.id = g.team_id
		WHERE g.team_id = $1 AND g.season = $2
		ORDER BY g.game_date, g.game_id
	`, teamID, models.NormalizeSeason(season))
	if err != nil {
		return nil, fmt.Errorf("failed to query team games: %w", err)
	}
	return scanGames(rows)
}

func (s *PgStore) Teams(ctx context.Context) ([]models.Team, error) {
	rows, err := s.pg.Query(ctx, `SELECT id, name, abbreviation FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Abbreviation); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// InsertGames upserts the teams and game rows in one batch.
func (s *PgStore) InsertGames(ctx context.Context, games []models.GameRecord) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	seen := make(map[int64]bool)
	for _, g := range games {
		if seen[g.TeamID] {
			continue
		}
		seen[g.TeamID] = true
		batch.Queue(`
			INSERT INTO teams (id, abbreviation, name, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (id) DO UPDATE SET
				abbreviation = EXCLUDED.abbreviation,
				name = CASE WHEN EXCLUDED.name = '' THEN teams.name ELSE EXCLUDED.name END,
				updated_at = NOW()
		`, g.TeamID, g.TeamAbbreviation, g.TeamName)
	}
	for _, g := range games {
		date, err := g.Date()
		if err != nil {
			return 0, fmt.Errorf("game %s team %d: %w", g.GameID, g.TeamID, err)
		}
		batch.Queue(`
			INSERT INTO games (game_id, team_id, season, team_abbreviation, game_date, matchup, wl,
				minutes, pts, fga, fg_pct, fg3_pct, ft_pct, fta, ast, reb, tov, stl, blk)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (game_id, team_id) DO UPDATE SET
				season = EXCLUDED.season, team_abbreviation = EXCLUDED.team_abbreviation,
				game_date = EXCLUDED.game_date, matchup = EXCLUDED.matchup, wl = EXCLUDED.wl,
				minutes = EXCLUDED.minutes, pts = EXCLUDED.pts, fga = EXCLUDED.fga,
				fg_pct = EXCLUDED.fg_pct, fg3_pct = EXCLUDED.fg3_pct, ft_pct = EXCLUDED.ft_pct,
				fta = EXCLUDED.fta, ast = EXCLUDED.ast, reb = EXCLUDED.reb, tov = EXCLUDED.tov,
				stl = EXCLUDED.stl, blk = EXCLUDED.blk, ingested_at = NOW()
		`, g.GameID, g.TeamID, models.NormalizeSeason(g.SeasonID), g.TeamAbbreviation, date, g.Matchup, g.WL,
			g.Minutes, g.Points, g.FGA, g.FGPct, g.FG3Pct, g.FTPct, g.FTA, g.Assists, g.Rebounds,
			g.Turnovers, g.Steals, g.Blocks)
	}

	br := s.pg.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return 0, fmt.Errorf("failed to insert games: %w", err)
		}
	}
	return len(games), nil
}

// Ping checks the connection.
func (s *PgStore) Ping(ctx context.Context) error {
	var one int
	return s.pg.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func scanGames(rows pgx.Rows) ([]models.GameRecord, error) {
	defer rows.Close()
	var games []models.GameRecord
	for rows.Next() {
		var g models.GameRecord
		var date time.Time
		err := rows.Scan(&g.SeasonID, &g.TeamID, &g.TeamAbbreviation, &g.TeamName, &g.GameID, &date,
			&g.Matchup, &g.WL, &g.Minutes, &g.Points, &g.FGA, &g.FGPct, &g.FG3Pct, &g.FTPct,
			&g.FTA, &g.Assists, &g.Rebounds, &g.Turnovers, &g.Steals, &g.Blocks)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		g.GameDate = date.Format("2006-01-02")
		games = append(games, g)
	}
	return games, rows.Err()
}
