// Package store holds the process-wide client state: the authenticated
// session and the cart/practice queue. Both are explicit objects created by
// the app and injected where needed.
package store

import (
	"context"
	"net/url"
	"sync"
)

// API is the part of the transport client the stores use.
type API interface {
	JSON(ctx context.Context, method, path string, query url.Values, in, out any) error
}

// subscribers is a small listener registry. Callbacks run outside any lock.
type subscribers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (s *subscribers[T]) add(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

func (s *subscribers[T]) emit(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
