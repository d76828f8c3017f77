package limiter

import (
	"context"
	"encoding/hex"
	"sync"
	"time"
)

type entry struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

// Memory keeps counters in process memory.
type Memory struct {
	mu  sync.Mutex
	p   Policy
	now func() time.Time
	m   map[string]*entry
}

// NewMemory creates an in-memory limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{p: p.normalized(), now: time.Now, m: make(map[string]*entry)}
}

func key(email string, ipHash []byte) string { return email + "|" + hex.EncodeToString(ipHash) }

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *Memory) Allow(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[key(email, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success resets counters for (email, ip).
func (l *Memory) Success(_ context.Context, email string, ipHash []byte) error {
	l.mu.Lock()
	delete(l.m, key(email, ipHash))
	l.mu.Unlock()
	return nil
}

// Failure records a failed attempt. The counter restarts when the previous
// failure is older than the window.
func (l *Memory) Failure(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	k := key(email, ipHash)
	e, ok := l.m[k]
	if !ok {
		e = &entry{}
		l.m[k] = e
	}
	if now.Sub(e.updatedAt) > l.p.Window {
		e.fails = 0
	}
	e.fails++
	e.updatedAt = now
	if e.fails >= l.p.MaxFails {
		e.blockedUntil = now.Add(l.p.BlockFor)
		return true, l.p.BlockFor, nil
	}
	return false, 0, nil
}
