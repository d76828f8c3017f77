package listquery

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/model"
)

// recorder is a Fetcher that remembers every query it was asked for.
type recorder struct {
	mu      sync.Mutex
	queries []State[CardFilters]
	err     error
}

func (r *recorder) fetch(_ context.Context, st State[CardFilters]) (model.Page[string], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, st)
	if r.err != nil {
		return model.Page[string]{}, r.err
	}
	return model.Page[string]{Content: []string{st.Search}, Number: st.Page, TotalPages: 5, Size: st.PageSize}, nil
}

func (r *recorder) last() State[CardFilters] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries[len(r.queries)-1]
}

func (r *recorder) n() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

// manualTimer captures debounced callbacks so tests can fire them.
type manualTimer struct {
	mu  sync.Mutex
	fns []func()
	off []bool
}

func (m *manualTimer) after(_ time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.fns)
	m.fns = append(m.fns, f)
	m.off = append(m.off, false)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		was := !m.off[i]
		m.off[i] = true
		return was
	}
}

func (m *manualTimer) fireAll() {
	m.mu.Lock()
	var run []func()
	for i, f := range m.fns {
		if !m.off[i] {
			m.off[i] = true
			run = append(run, f)
		}
	}
	m.mu.Unlock()
	for _, f := range run {
		f()
	}
}

var defaults = State[CardFilters]{SortBy: "createdAt", SortDir: "desc", PageSize: 12}

func newController(r *recorder, mt *manualTimer, opts Options) *Controller[string, CardFilters] {
	if mt != nil {
		opts.AfterFunc = mt.after
	}
	return New[string, CardFilters](r.fetch, defaults, opts)
}

func TestQuery_Encoding(t *testing.T) {
	t.Parallel()
	st := State[CardFilters]{Search: "cat", Filters: CardFilters{Category: "Animals"}, SortBy: "englishWord", SortDir: "asc", Page: 2, PageSize: 12}
	assert.Equal(t, "category=Animals&page=2&search=cat&size=12&sortBy=englishWord&sortDir=asc", st.Query().Encode())

	empty := State[CardFilters]{PageSize: 10}
	assert.Equal(t, "page=0&size=10", empty.Query().Encode())

	o := OrderFilters{CustomerName: "Jane", OrderID: "7"}
	assert.Equal(t, "customerName=Jane&orderId=7", o.Values().Encode())
	assert.Equal(t, "maxPrice=20", PriceRange{MaxPrice: "20"}.Values().Encode())
}

func TestFilterResetLaw(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := &recorder{}
	mt := &manualTimer{}
	c := newController(r, mt, Options{})

	require.NoError(t, c.SetPage(ctx, 3))
	assert.Equal(t, 3, r.last().Page)

	require.NoError(t, c.SetFilters(ctx, CardFilters{Difficulty: "Advanced"}))
	assert.Equal(t, "0", r.last().Query().Get("page"))

	require.NoError(t, c.SetPage(ctx, 2))
	require.NoError(t, c.SetSort(ctx, "englishWord", "asc"))
	assert.Equal(t, 0, r.last().Page)

	require.NoError(t, c.SetPage(ctx, 4))
	c.SetSearch("dog")
	mt.fireAll()
	assert.Equal(t, 0, r.last().Page)
	assert.Equal(t, "dog", r.last().Search)
	assert.Equal(t, "Advanced", r.last().Filters.Difficulty, "page change does not reset other fields")
}

func TestSetPage_KeepsOtherFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := &recorder{}
	c := newController(r, nil, Options{Debounce: -1})

	c.SetSearch("cat")
	require.NoError(t, c.SetFilters(ctx, CardFilters{Category: "Animals"}))
	require.NoError(t, c.SetPage(ctx, 2))
	got := r.last()
	assert.Equal(t, "cat", got.Search)
	assert.Equal(t, "Animals", got.Filters.Category)
	assert.Equal(t, 2, got.Page)
}

func TestSetPageSize_ResetsPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := &recorder{}
	c := newController(r, nil, Options{Debounce: -1})

	require.NoError(t, c.SetPage(ctx, 3))
	require.NoError(t, c.SetPageSize(ctx, 24))
	assert.Equal(t, 24, r.last().PageSize)
	assert.Equal(t, 0, r.last().Page)

	n := r.n()
	require.NoError(t, c.SetPageSize(ctx, 0))
	assert.Equal(t, n, r.n())
}

func TestSearch_Debounced(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	mt := &manualTimer{}
	c := newController(r, mt, Options{})

	c.SetSearch("c")
	c.SetSearch("ca")
	c.SetSearch("cat")
	assert.Zero(t, r.n(), "nothing fetched before the debounce fires")
	mt.fireAll()
	require.Equal(t, 1, r.n())
	assert.Equal(t, "cat", r.last().Search)
	assert.Equal(t, []string{"cat"}, c.Result().Page.Content)
}

func TestSearch_RealTimer(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	c := newController(r, nil, Options{Debounce: 10 * time.Millisecond})

	c.SetSearch("cat")
	require.Eventually(t, func() bool { return r.n() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "cat", r.last().Search)
}

func TestClear_RestoresDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := &recorder{}
	c := newController(r, nil, Options{Debounce: -1})

	c.SetSearch("cat")
	require.NoError(t, c.SetFilters(ctx, CardFilters{Category: "Food"}))
	require.NoError(t, c.SetSort(ctx, "translation", "asc"))
	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, defaults, r.last())
	assert.Equal(t, defaults, c.State())
}

func TestErrorKeepsContentAndRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := &recorder{}
	c := newController(r, nil, Options{ErrorFallback: "Failed to load flashcards"})

	require.NoError(t, c.Load(ctx))
	require.Len(t, c.Result().Page.Content, 1)

	r.err = errs.NewAPIError(http.MethodGet, "/flashcards", http.StatusInternalServerError, "")
	require.Error(t, c.SetPage(ctx, 1))
	res := c.Result()
	assert.Equal(t, "Failed to load flashcards", res.ErrMsg)
	assert.ErrorIs(t, res.Err, errs.ErrServer)
	assert.Len(t, res.Page.Content, 1, "previous content stays visible")

	r.err = nil
	before := r.last()
	require.NoError(t, c.Retry(ctx))
	assert.Equal(t, before, r.last())
	assert.NoError(t, c.Result().Err)
}

func TestErrorClearsContentWhenConfigured(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := &recorder{}
	c := newController(r, nil, Options{ClearOnError: true})

	require.NoError(t, c.Load(ctx))
	r.err = errors.New("boom")
	require.Error(t, c.Retry(ctx))
	assert.Empty(t, c.Result().Page.Content)
	assert.Equal(t, "Failed to load data", c.Result().ErrMsg)
}

func TestStaleResultDiscarded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	slowEntered := make(chan struct{})
	release := make(chan struct{})

	fetch := func(_ context.Context, st State[CardFilters]) (model.Page[string], error) {
		if st.Page == 1 {
			close(slowEntered)
			<-release
			return model.Page[string]{Content: []string{"slow"}, Number: 1}, nil
		}
		return model.Page[string]{Content: []string{"fast"}, Number: st.Page}, nil
	}
	c := New[string, CardFilters](fetch, defaults, Options{})

	done := make(chan error, 1)
	go func() { done <- c.SetPage(ctx, 1) }()
	<-slowEntered
	require.NoError(t, c.SetPage(ctx, 2))
	close(release)
	require.NoError(t, <-done)

	res := c.Result()
	assert.Equal(t, []string{"fast"}, res.Page.Content)
	assert.Equal(t, 2, res.Page.Number)
}

func TestReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := &recorder{}
	c := newController(r, nil, Options{Debounce: -1})
	var seen []Result[string]
	c.Subscribe(func(res Result[string]) { seen = append(seen, res) })

	require.NoError(t, c.SetFilters(ctx, CardFilters{Category: "Food"}))
	calls := r.n()
	c.Reset()
	assert.Equal(t, calls, r.n())
	assert.Equal(t, defaults, c.State())
	assert.Empty(t, c.Result().Page.Content)
	require.NotEmpty(t, seen)
	assert.Empty(t, seen[len(seen)-1].Page.Content)
}

func TestSubscribe_EverySubscriberSeesResult(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	c := newController(r, nil, Options{Debounce: -1})
	var first, second []Result[string]
	c.Subscribe(func(res Result[string]) {
		first = append(first, res)
		if len(first) == 1 {
			// registering from inside a callback must not block
			c.Subscribe(func(res Result[string]) { second = append(second, res) })
		}
	})

	require.NoError(t, c.Load(context.Background()))
	require.NotEmpty(t, first)
	require.NoError(t, c.SetPage(context.Background(), 1))
	require.NotEmpty(t, second)
	assert.Equal(t, 1, second[len(second)-1].Page.Number)
}
