// Package tokenstore persists the single active bearer token.
package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/and161185/flasheng/internal/config"
)

// Store holds at most one token. Load returns errs.ErrNoToken when none is
// stored or the stored token is past its exp claim.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Option tunes a store.
type Option func(*settings)

type settings struct {
	now func() time.Time
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option { return func(s *settings) { s.now = now } }

func apply(opts []Option) settings {
	s := settings{now: time.Now}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Expiry reads the exp claim without verifying the signature.
// ok is false for opaque (non-JWT) tokens or tokens without exp.
func Expiry(token string) (exp time.Time, ok bool) {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseUnverified(token, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func expired(token string, now time.Time) bool {
	exp, ok := Expiry(token)
	return ok && !now.Before(exp)
}

// New builds the store selected by cfg.
func New(cfg config.TokenConfig, opts ...Option) (Store, error) {
	switch cfg.Store {
	case config.StoreFile:
		dir := cfg.Dir
		if dir == "" {
			dir = config.Dir()
		}
		return NewFile(dir, cfg.Passphrase, opts...), nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		r := NewRedis(rdb, cfg.Key, opts...)
		r.owned = rdb
		return r, nil
	case config.StoreMemory:
		return NewMemory(opts...), nil
	default:
		return nil, fmt.Errorf("tokenstore: unknown store %q", cfg.Store)
	}
}
