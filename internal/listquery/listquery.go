// Package listquery implements the paginated search/filter/sort state
// shared by every list view (catalog, flashcards, orders, admin tables).
package listquery

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/model"
)

// DefaultDebounce is the free-text search delay.
const DefaultDebounce = 300 * time.Millisecond

// Filters is a list-specific filter shape. Values must omit empty fields.
type Filters interface {
	comparable
	Values() url.Values
}

// State is the full query of a list view.
type State[F Filters] struct {
	Search   string
	Filters  F
	SortBy   string
	SortDir  string
	Page     int
	PageSize int
}

// Query encodes the state as request parameters.
func (s State[F]) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(s.Page))
	q.Set("size", strconv.Itoa(s.PageSize))
	if s.SortBy != "" {
		q.Set("sortBy", s.SortBy)
	}
	if s.SortDir != "" {
		q.Set("sortDir", s.SortDir)
	}
	if s.Search != "" {
		q.Set("search", s.Search)
	}
	for k, vs := range s.Filters.Values() {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	return q
}

// Result is what the view renders.
type Result[T any] struct {
	Page    model.Page[T]
	Loading bool
	Err     error
	ErrMsg  string
}

// Fetcher loads one page for a query.
type Fetcher[T any, F Filters] func(ctx context.Context, st State[F]) (model.Page[T], error)

// Options tunes a Controller.
type Options struct {
	// Debounce delays search-triggered fetches. Zero uses DefaultDebounce;
	// a negative value disables debouncing.
	Debounce time.Duration
	// AfterFunc schedules a debounced fetch. Tests replace it to fire manually.
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
	// ClearOnError drops the displayed page when a fetch fails.
	ClearOnError bool
	// ErrorFallback is the message shown when the error carries none.
	ErrorFallback string
	Log           *zap.Logger
}

// Controller owns one list view's query and its latest result.
type Controller[T any, F Filters] struct {
	fetch    Fetcher[T, F]
	defaults State[F]
	opts     Options
	log      *zap.Logger

	mu      sync.Mutex
	state   State[F]
	result  Result[T]
	seq     uint64
	pending func() bool
	ctx     context.Context

	subMu sync.Mutex
	subs  []func(Result[T])
}

// New creates a controller starting from defaults. Nothing is fetched until Load.
func New[T any, F Filters](fetch Fetcher[T, F], defaults State[F], opts Options) *Controller[T, F] {
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) func() bool { return time.AfterFunc(d, f).Stop }
	}
	if opts.ErrorFallback == "" {
		opts.ErrorFallback = "Failed to load data"
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller[T, F]{
		fetch:    fetch,
		defaults: defaults,
		opts:     opts,
		log:      log.Named("list"),
		state:    defaults,
		ctx:      context.Background(),
	}
}

// Bind sets the context used by fetches triggered from setters.
func (c *Controller[T, F]) Bind(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
}

// State returns the current query.
func (c *Controller[T, F]) State() State[F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the latest applied result.
func (c *Controller[T, F]) Result() Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Subscribe registers fn for every result change.
func (c *Controller[T, F]) Subscribe(fn func(Result[T])) {
	c.subMu.Lock()
	c.subs = append(c.subs, fn)
	c.subMu.Unlock()
}

func (c *Controller[T, F]) emit(r Result[T]) {
	c.subMu.Lock()
	subs := slices.Clone(c.subs)
	c.subMu.Unlock()
	for _, fn := range subs {
		fn(r)
	}
}

// Load fetches the current query. Views call it on mount.
func (c *Controller[T, F]) Load(ctx context.Context) error {
	return c.run(ctx)
}

// Retry re-issues the last query unchanged.
func (c *Controller[T, F]) Retry(ctx context.Context) error {
	return c.run(ctx)
}

// SetSearch updates the search term and resets to the first page. The
// fetch is debounced; only the last term typed within the window is fetched.
func (c *Controller[T, F]) SetSearch(s string) {
	c.mu.Lock()
	if c.state.Search == s {
		c.mu.Unlock()
		return
	}
	c.state.Search = s
	c.state.Page = 0
	if c.pending != nil {
		c.pending()
	}
	ctx := c.ctx
	if c.opts.Debounce < 0 {
		c.pending = nil
		c.mu.Unlock()
		c.background(ctx)
		return
	}
	c.pending = c.opts.AfterFunc(c.opts.Debounce, func() { c.background(ctx) })
	c.mu.Unlock()
}

// SetFilters replaces the filters and resets to the first page.
func (c *Controller[T, F]) SetFilters(ctx context.Context, f F) error {
	return c.update(ctx, func(s *State[F]) bool {
		if s.Filters == f {
			return false
		}
		s.Filters, s.Page = f, 0
		return true
	})
}

// SetSort changes ordering and resets to the first page.
func (c *Controller[T, F]) SetSort(ctx context.Context, by, dir string) error {
	return c.update(ctx, func(s *State[F]) bool {
		if s.SortBy == by && s.SortDir == dir {
			return false
		}
		s.SortBy, s.SortDir, s.Page = by, dir, 0
		return true
	})
}

// SetPage moves to page n, keeping everything else.
func (c *Controller[T, F]) SetPage(ctx context.Context, n int) error {
	if n < 0 {
		n = 0
	}
	return c.update(ctx, func(s *State[F]) bool {
		if s.Page == n {
			return false
		}
		s.Page = n
		return true
	})
}

// SetPageSize changes the page size and resets to the first page.
func (c *Controller[T, F]) SetPageSize(ctx context.Context, n int) error {
	return c.update(ctx, func(s *State[F]) bool {
		if n <= 0 || s.PageSize == n {
			return false
		}
		s.PageSize, s.Page = n, 0
		return true
	})
}

// Clear restores every field to its default and fetches.
func (c *Controller[T, F]) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.state = c.defaults
	c.cancelPendingLocked()
	c.mu.Unlock()
	return c.run(ctx)
}

// Reset restores the defaults and drops the displayed result without fetching.
// It is used when the session ends.
func (c *Controller[T, F]) Reset() {
	c.mu.Lock()
	c.state = c.defaults
	c.cancelPendingLocked()
	c.seq++
	c.result = Result[T]{}
	r := c.result
	c.mu.Unlock()
	c.emit(r)
}

func (c *Controller[T, F]) cancelPendingLocked() {
	if c.pending != nil {
		c.pending()
		c.pending = nil
	}
}

func (c *Controller[T, F]) update(ctx context.Context, mutate func(*State[F]) bool) error {
	c.mu.Lock()
	changed := mutate(&c.state)
	if changed {
		c.cancelPendingLocked()
	}
	c.mu.Unlock()
	if !changed {
		return nil
	}
	return c.run(ctx)
}

func (c *Controller[T, F]) background(ctx context.Context) {
	if err := c.run(ctx); err != nil {
		c.log.Debug("debounced fetch failed", zap.Error(err))
	}
}

// run issues one fetch for the current state. A result is applied only if
// no newer fetch was started meanwhile.
func (c *Controller[T, F]) run(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	st := c.state
	c.result.Loading = true
	loading := c.result
	c.mu.Unlock()
	c.emit(loading)

	page, err := c.fetch(ctx, st)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.log.Debug("stale list result discarded", zap.Uint64("seq", seq))
		return err
	}
	if err != nil {
		c.result.Loading = false
		c.result.Err = err
		c.result.ErrMsg = errs.Message(err, c.opts.ErrorFallback)
		if c.opts.ClearOnError {
			c.result.Page = model.Page[T]{}
		}
	} else {
		if page.Content == nil {
			page.Content = []T{}
		}
		c.result = Result[T]{Page: page}
	}
	r := c.result
	c.mu.Unlock()
	c.emit(r)
	return err
}
