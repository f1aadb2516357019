package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList remembers logged-out token ids until the tokens expire.
type RevocationList struct {
	rdb redis.Cmdable
}

func NewRevocationList(rdb redis.Cmdable) *RevocationList {
	return &RevocationList{rdb: rdb}
}

// Revoke blocks jti for ttl. Tokens already past expiry need no entry.
func (r *RevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

func (r *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
