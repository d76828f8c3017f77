package tokenstore

import (
	"context"
	"sync"

	"github.com/and161185/flasheng/internal/errs"
)

// Memory keeps the token in process memory.
type Memory struct {
	mu  sync.RWMutex
	tok string
	s   settings
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...Option) *Memory { return &Memory{s: apply(opts)} }

// Save replaces the stored token.
func (m *Memory) Save(_ context.Context, token string) error {
	m.mu.Lock()
	m.tok = token
	m.mu.Unlock()
	return nil
}

// Load returns the stored token.
func (m *Memory) Load(_ context.Context) (string, error) {
	m.mu.RLock()
	tok := m.tok
	m.mu.RUnlock()
	if tok == "" || expired(tok, m.s.now()) {
		return "", errs.ErrNoToken
	}
	return tok, nil
}

// Clear forgets the token.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.tok = ""
	m.mu.Unlock()
	return nil
}
