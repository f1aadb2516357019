package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
)

// setIfVersion writes a profile entry only while the user's version counter
// still holds the value read before the database load.
var setIfVersion = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[2]) or '0')
if current ~= tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// ProfileCache is a read-through cache for profiles and leaderboards.
// Failures are logged and reported as misses.
//
// Every change bumps a per-user version counter. A reader takes the version
// before loading from the database and the fill is dropped when a write
// landed in between, so a stale load never outlives the write that
// invalidated it.
type ProfileCache struct {
	rdb            redis.Cmdable
	profileTTL     time.Duration
	leaderboardTTL time.Duration
	log            *logger.Logger
}

func NewProfileCache(rdb redis.Cmdable, profileTTL, leaderboardTTL time.Duration, log *logger.Logger) *ProfileCache {
	return &ProfileCache{
		rdb:            rdb,
		profileTTL:     profileTTL,
		leaderboardTTL: leaderboardTTL,
		log:            log.With("component", "profile_cache"),
	}
}

func (c *ProfileCache) GetProfile(ctx context.Context, userID int64) (*models.Profile, bool) {
	raw, err := c.rdb.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("profile cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		c.log.Warn("profile cache entry corrupt", "user_id", userID, "error", err)
		return nil, false
	}
	return &p, true
}

// ProfileVersion returns the user's change counter. ok is false when Redis
// cannot answer, in which case the caller skips the fill.
func (c *ProfileCache) ProfileVersion(ctx context.Context, userID int64) (int64, bool) {
	v, err := c.rdb.Get(ctx, profileVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.Warn("profile version read failed", "user_id", userID, "error", err)
		return 0, false
	}
	return v, true
}

// SetProfile caches p if no change was recorded since version was read.
func (c *ProfileCache) SetProfile(ctx context.Context, p *models.Profile, version int64) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	ttl := max(c.profileTTL.Milliseconds(), 1)
	keys := []string{profileKey(p.UserID), profileVersionKey(p.UserID)}
	stored, err := setIfVersion.Run(ctx, c.rdb, keys, raw, version, ttl).Int()
	if err != nil {
		c.log.Warn("profile cache write failed", "user_id", p.UserID, "error", err)
		return
	}
	if stored == 0 {
		c.log.Debug("stale profile fill skipped", "user_id", p.UserID, "version", version)
	}
}

// GetLeaderboard returns the cached board for a given limit.
func (c *ProfileCache) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool) {
	raw, err := c.rdb.HGet(ctx, leaderboardKey, strconv.Itoa(limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("leaderboard cache read failed", "error", err)
		}
		return nil, false
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// SetLeaderboard stores the board under its limit. All limits share one key
// so a single delete invalidates every cached size.
func (c *ProfileCache) SetLeaderboard(ctx context.Context, limit int, entries []models.LeaderboardEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, leaderboardKey, strconv.Itoa(limit), raw)
	pipe.Expire(ctx, leaderboardKey, c.leaderboardTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("leaderboard cache write failed", "error", err)
	}
}

// ProfileChanged bumps the user's version and drops the cached profile, and
// the leaderboards when XP moved.
func (c *ProfileCache) ProfileChanged(ctx context.Context, userID int64, xpChanged bool) {
	keys := []string{profileKey(userID)}
	if xpChanged {
		keys = append(keys, leaderboardKey)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, profileVersionKey(userID))
	// The counter outlives any entry filled under an older value.
	pipe.Expire(ctx, profileVersionKey(userID), 2*c.profileTTL)
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("cache invalidation failed", "user_id", userID, "error", err)
	}
}
