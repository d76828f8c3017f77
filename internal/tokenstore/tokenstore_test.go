package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/and161185/flasheng/internal/config"
	"github.com/and161185/flasheng/internal/errs"
)

func jwtExpiring(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

var (
	_ Store = (*File)(nil)
	_ Store = (*Redis)(nil)
	_ Store = (*Memory)(nil)
)

func TestExpiry(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := Expiry(jwtExpiring(t, exp))
	if !ok || !got.Equal(exp) {
		t.Fatalf("Expiry=%v ok=%v want %v", got, ok, exp)
	}
	if _, ok := Expiry("abc"); ok {
		t.Fatalf("opaque token must have no expiry")
	}
}

// contract runs the common behaviour every store must satisfy.
func contract(t *testing.T, s Store, clock *time.Time) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx); !errors.Is(err, errs.ErrNoToken) {
		t.Fatalf("empty store: want ErrNoToken, got %v", err)
	}
	if err := s.Save(ctx, "abc"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if tok, err := s.Load(ctx); err != nil || tok != "abc" {
		t.Fatalf("Load: %q %v", tok, err)
	}
	if err := s.Save(ctx, "def"); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	if tok, _ := s.Load(ctx); tok != "def" {
		t.Fatalf("only one token may be active, got %q", tok)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear must be idempotent: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, errs.ErrNoToken) {
		t.Fatalf("after Clear: want ErrNoToken, got %v", err)
	}

	jwtTok := jwtExpiring(t, clock.Add(time.Minute))
	if err := s.Save(ctx, jwtTok); err != nil {
		t.Fatalf("Save jwt: %v", err)
	}
	if tok, err := s.Load(ctx); err != nil || tok != jwtTok {
		t.Fatalf("Load jwt: %v", err)
	}
	*clock = clock.Add(2 * time.Minute)
	if _, err := s.Load(ctx); !errors.Is(err, errs.ErrNoToken) {
		t.Fatalf("expired jwt: want ErrNoToken, got %v", err)
	}
}

func TestMemory_Contract(t *testing.T) {
	t.Parallel()
	now := time.Now()
	contract(t, NewMemory(WithClock(func() time.Time { return now })), &now)
}

func TestFile_Contract(t *testing.T) {
	t.Parallel()
	now := time.Now()
	contract(t, NewFile(t.TempDir(), "", WithClock(func() time.Time { return now })), &now)
}

func TestFile_SealedContract(t *testing.T) {
	t.Parallel()
	now := time.Now()
	contract(t, NewFile(t.TempDir(), "s3cret", WithClock(func() time.Time { return now })), &now)
}

func TestRedis_Contract(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	now := time.Now()
	contract(t, NewRedis(rdb, "flasheng_token", WithClock(func() time.Time { return now })), &now)
}

func TestRedis_TTLFromExp(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedis(rdb, "")
	if err := s.Save(context.Background(), jwtExpiring(t, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ttl := mr.TTL("flasheng_token")
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl=%v", ttl)
	}
	if err := s.Save(context.Background(), "opaque"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if mr.TTL("flasheng_token") != 0 {
		t.Fatalf("opaque tokens have no ttl")
	}
}

func TestFile_PermsAndSealedAtRest(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "flasheng")
	f := NewFile(dir, "pass")
	if err := f.Save(context.Background(), "plain-secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("perm=%v", st.Mode().Perm())
	}
	b, _ := os.ReadFile(f.Path())
	if strings.Contains(string(b), "plain-secret") {
		t.Fatalf("sealed file leaks token: %s", b)
	}

	if _, err := NewFile(dir, "").Load(context.Background()); err == nil {
		t.Fatalf("sealed file without passphrase must fail")
	}
	if _, err := NewFile(dir, "wrong").Load(context.Background()); err == nil {
		t.Fatalf("wrong passphrase must fail")
	}
}

func TestNew_Kinds(t *testing.T) {
	t.Parallel()

	s, err := New(config.TokenConfig{Store: config.StoreFile, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if _, ok := s.(*File); !ok {
		t.Fatalf("want *File, got %T", s)
	}
	s, err = New(config.TokenConfig{Store: config.StoreMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("want *Memory, got %T", s)
	}
	mr := miniredis.RunT(t)
	s, err = New(config.TokenConfig{Store: config.StoreRedis, RedisAddr: mr.Addr(), Key: "k"})
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	r, ok := s.(*Redis)
	if !ok {
		t.Fatalf("want *Redis, got %T", s)
	}
	if err := r.Save(context.Background(), "x"); err != nil {
		t.Fatalf("redis save: %v", err)
	}
	if got, _ := mr.Get("k"); got != "x" {
		t.Fatalf("redis key: %q", got)
	}
	_ = r.Close()

	if _, err := New(config.TokenConfig{Store: "s3"}); err == nil {
		t.Fatalf("unknown store must fail")
	}
}
