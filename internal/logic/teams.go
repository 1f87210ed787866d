package logic

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/openhoops/match-predictor/internal/datasource"
	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/models"
)

// teamDirectory resolves team metadata. Concurrent lookups share one read
// of the team list.
type teamDirectory struct {
	games datasource.GameReader
	group singleflight.Group
}

func (d *teamDirectory) all(ctx context.Context) ([]models.Team, error) {
	v, err, _ := d.group.Do("teams", func() (interface{}, error) {
		return d.games.Teams(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	return v.([]models.Team), nil
}

func (d *teamDirectory) lookup(ctx context.Context, id int64) (models.Team, error) {
	teams, err := d.all(ctx)
	if err != nil {
		return models.Team{}, err
	}
	for _, t := range teams {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Team{}, fmt.Errorf("team %d: %w", id, ErrTeamNotFound)
}

// featureProvider derives a team's current feature vector from its stored
// game log, caching the result in Redis.
type featureProvider struct {
	games  datasource.GameReader
	cache  *datasource.Cache
	engine *features.Engine
	group  singleflight.Group
	logger *zap.SugaredLogger
}

func (f *featureProvider) latest(ctx context.Context, teamID int64, season string) (models.TeamFeatureVector, error) {
	key := datasource.TeamFeaturesKey(teamID, season)
	if f.cache != nil {
		var v models.TeamFeatureVector
		hit, err := f.cache.GetJSON(ctx, key, &v)
		if err != nil {
			f.logger.Warnw("Feature cache read failed", "teamID", teamID, "error", err)
		}
		if hit {
			return v, nil
		}
	}

	res, err, _ := f.group.Do(strconv.FormatInt(teamID, 10)+"/"+season, func() (interface{}, error) {
		games, err := f.games.GamesByTeam(ctx, teamID, season)
		if err != nil {
			return nil, err
		}
		if len(games) == 0 {
			return nil, fmt.Errorf("team %d season %s: %w", teamID, season, features.ErrNoGames)
		}
		derived, err := f.engine.Derive(features.FrameFromRecords(games))
		if err != nil {
			return nil, err
		}
		return f.engine.LatestFeatures(derived, teamID)
	})
	if err != nil {
		return models.TeamFeatureVector{}, err
	}
	v := res.(models.TeamFeatureVector)

	if f.cache != nil {
		if err := f.cache.SetJSON(ctx, key, v); err != nil {
			f.logger.Warnw("Feature cache write failed", "teamID", teamID, "error", err)
		}
	}
	return v, nil
}

