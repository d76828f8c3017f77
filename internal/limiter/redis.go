package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps counters in Redis so several devserver instances share lockouts.
// The failure counter expires with the window; the block is a separate key
// expiring after BlockFor.
type Redis struct {
	rdb    redis.Cmdable
	p      Policy
	prefix string
}

// NewRedis constructs a Redis-backed limiter.
func NewRedis(rdb redis.Cmdable, p Policy) *Redis {
	return &Redis{rdb: rdb, p: p.normalized(), prefix: "flasheng:limiter:"}
}

func (l *Redis) keys(email string, ipHash []byte) (fails, block string) {
	base := l.prefix + email + ":" + hex.EncodeToString(ipHash)
	return base + ":fails", base + ":block"
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *Redis) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	_, block := l.keys(email, ipHash)
	ttl, err := l.rdb.PTTL(ctx, block).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

// Success resets counters for (email, ip).
func (l *Redis) Success(ctx context.Context, email string, ipHash []byte) error {
	fails, block := l.keys(email, ipHash)
	return l.rdb.Del(ctx, fails, block).Err()
}

// Failure records a failed attempt; may set a block.
func (l *Redis) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := l.keys(email, ipHash)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, fails)
	pipe.PExpire(ctx, fails, l.p.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	if int(incr.Val()) < l.p.MaxFails {
		return false, 0, nil
	}
	if err := l.rdb.Set(ctx, block, "1", l.p.BlockFor).Err(); err != nil {
		return false, 0, err
	}
	return true, l.p.BlockFor, nil
}
