package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/flasheng/internal/errs"
)

// Redis keeps the token under a fixed key, expiring it with the JWT.
type Redis struct {
	rdb   redis.Cmdable
	key   string
	s     settings
	owned *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(rdb redis.Cmdable, key string, opts ...Option) *Redis {
	if key == "" {
		key = "flasheng_token"
	}
	return &Redis{rdb: rdb, key: key, s: apply(opts)}
}

// Save replaces the stored token.
func (r *Redis) Save(ctx context.Context, token string) error {
	var ttl time.Duration
	if exp, ok := Expiry(token); ok {
		if d := exp.Sub(r.s.now()); d > 0 {
			ttl = d
		}
	}
	return r.rdb.Set(ctx, r.key, token, ttl).Err()
}

// Load returns the stored token.
func (r *Redis) Load(ctx context.Context) (string, error) {
	tok, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.ErrNoToken
	}
	if err != nil {
		return "", err
	}
	if tok == "" || expired(tok, r.s.now()) {
		return "", errs.ErrNoToken
	}
	return tok, nil
}

// Clear deletes the key.
func (r *Redis) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}

// Close releases a client created by New.
func (r *Redis) Close() error {
	if r.owned == nil {
		return nil
	}
	return r.owned.Close()
}
