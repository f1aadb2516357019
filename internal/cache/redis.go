package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/skillforge/backend/internal/config"
)

const (
	profileKeyPrefix = "profile:"
	leaderboardKey   = "leaderboard"
	revokedKeyPrefix = "auth:revoked:"
)

// RedisClient wraps the go-redis client.
type RedisClient struct {
	*redis.Client
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{rdb}, nil
}

func profileKey(userID int64) string {
	return fmt.Sprintf("%s%d", profileKeyPrefix, userID)
}

func profileVersionKey(userID int64) string {
	return profileKey(userID) + ":ver"
}
