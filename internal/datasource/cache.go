package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/models"
)

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const TeamsKey = "teams:all"

func SeasonGamesKey(season string) string {
	return "games:season:" + models.NormalizeSeason(season)
}

func TeamGamesKey(teamID int64, season string) string {
	return fmt.Sprintf("games:team:%d:%s", teamID, models.NormalizeSeason(season))
}

func TeamFeaturesKey(teamID int64, season string) string {
	return fmt.Sprintf("team:features:%d:%s", teamID, models.NormalizeSeason(season))
}

// Cache stores JSON values in Redis with a fixed TTL.
type Cache struct {
	rdb RedisClient
	ttl time.Duration
}

func NewCache(rdb RedisClient, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// GetJSON decodes the value at key into dst. A missing key reports false
// with no error.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Invalidate drops the cached entries derived from games of the given teams
// in season.
func (c *Cache) Invalidate(ctx context.Context, season string, teamIDs ...int64) error {
	keys := []string{TeamsKey, SeasonGamesKey(season)}
	for _, id := range teamIDs {
		keys = append(keys, TeamGamesKey(id, season), TeamFeaturesKey(id, season))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// CachedReader serves reads from the cache and fills it from the wrapped
// reader on a miss. Cache failures are logged and fall through to the
// reader. Empty results and rows JSON cannot encode (NaN stats) are
// served without being cached.
type CachedReader struct {
	next   GameReader
	cache  *Cache
	logger *zap.SugaredLogger
}

func NewCachedReader(next GameReader, cache *Cache, logger *zap.Logger) *CachedReader {
	return &CachedReader{next: next, cache: cache, logger: logger.Sugar()}
}

func (r *CachedReader) GamesBySeason(ctx context.Context, season string) ([]models.GameRecord, error) {
	return cached(ctx, r, SeasonGamesKey(season), func() ([]models.GameRecord, error) {
		return r.next.GamesBySeason(ctx, season)
	})
}

func (r *CachedReader) GamesByTeam(ctx context.Context, teamID int64, season string) ([]models.GameRecord, error) {
	return cached(ctx, r, TeamGamesKey(teamID, season), func() ([]models.GameRecord, error) {
		return r.next.GamesByTeam(ctx, teamID, season)
	})
}

func (r *CachedReader) Teams(ctx context.Context) ([]models.Team, error) {
	return cached(ctx, r, TeamsKey, func() ([]models.Team, error) {
		return r.next.Teams(ctx)
	})
}

func cached[T any](ctx context.Context, r *CachedReader, key string, load func() ([]T, error)) ([]T, error) {
	var out []T
	hit, err := r.cache.GetJSON(ctx, key, &out)
	if err != nil {
		r.logger.Warnw("Cache read failed", "key", key, "error", err)
	}
	if hit {
		return out, nil
	}
	out, err = load()
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := r.cache.SetJSON(ctx, key, out); err != nil {
		r.logger.Warnw("Cache write failed", "key", key, "error", err)
	}
	return out, nil
}
