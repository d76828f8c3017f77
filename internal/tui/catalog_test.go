package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/listquery"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/store"
)

var _ Articles = (*listquery.Controller[model.Article, listquery.PriceRange])(nil)

var _ Cart = (*store.Queue)(nil)

type fakeCart struct {
	mu    sync.Mutex
	added []store.Item
	err   error
}

var _ Cart = (*fakeCart)(nil)

func (f *fakeCart) AddToQueue(_ context.Context, item store.Item, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, item)
	return nil
}

func (f *fakeCart) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

type catalogFixture struct {
	mu      sync.Mutex
	queries []listquery.State[listquery.PriceRange]
	cart    *fakeCart
	c       *Catalog
}

func articles() []model.Article {
	return []model.Article{
		{ID: 1, Name: "Mug", Price: decimal.RequireFromString("9.99"), Currency: "USD", AvailableQuantity: 3},
		{ID: 2, Name: "Poster", Price: decimal.RequireFromString("4.50"), Currency: "USD"},
	}
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	f := &catalogFixture{cart: &fakeCart{}}
	fetch := func(_ context.Context, st listquery.State[listquery.PriceRange]) (model.Page[model.Article], error) {
		f.mu.Lock()
		f.queries = append(f.queries, st)
		f.mu.Unlock()
		return model.Page[model.Article]{Content: articles(), Number: st.Page, TotalPages: 2, TotalElements: 4, Size: 2}, nil
	}
	ctrl := listquery.New(fetch, listquery.State[listquery.PriceRange]{SortBy: "name", SortDir: "asc", PageSize: 2},
		listquery.Options{Debounce: -1, Log: zaptest.NewLogger(t)})
	f.c = NewCatalog(context.Background(), ctrl, f.cart)
	return f
}

func (f *catalogFixture) last() listquery.State[listquery.PriceRange] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

// loaded runs the initial fetch and feeds its result into the model.
func (f *catalogFixture) loaded(t *testing.T) {
	t.Helper()
	require.Nil(t, f.c.load()())
	f.c.Update(f.c.waitForChange()())
}

func key(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestCatalog_RendersLoadedPage(t *testing.T) {
	t.Parallel()
	f := newCatalogFixture(t)
	f.loaded(t)

	view := f.c.View()
	assert.Contains(t, view, "Mug")
	assert.Contains(t, view, "9.99 USD")
	assert.Contains(t, view, "out")
	assert.Contains(t, view, "Page 1 of 2")
	assert.Contains(t, view, "cart: 0")
}

func TestCatalog_PagesForwardAndBack(t *testing.T) {
	t.Parallel()
	f := newCatalogFixture(t)
	f.loaded(t)

	_, cmd := f.c.Update(key("n"))
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())
	assert.Equal(t, 1, f.last().Page)
	f.c.Update(f.c.waitForChange()())
	assert.Contains(t, f.c.View(), "Page 2 of 2")

	// No page after the last one.
	_, cmd = f.c.Update(key("n"))
	assert.Nil(t, cmd)

	_, cmd = f.c.Update(key("p"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 0, f.last().Page)
}

func TestCatalog_SearchTypesIntoController(t *testing.T) {
	t.Parallel()
	f := newCatalogFixture(t)
	f.loaded(t)

	f.c.Update(key("/"))
	f.c.Update(key("m"))
	f.c.Update(key("u"))
	assert.Equal(t, "mu", f.last().Search)
	assert.Equal(t, 0, f.last().Page)

	// q types into the search box instead of quitting.
	f.c.Update(key("q"))
	assert.Equal(t, "muq", f.last().Search)

	f.c.Update(tea.KeyMsg{Type: tea.KeyEsc})
	_, cmd := f.c.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestCatalog_AddsSelectedToCart(t *testing.T) {
	t.Parallel()
	f := newCatalogFixture(t)
	f.loaded(t)

	_, cmd := f.c.Update(key("a"))
	require.NotNil(t, cmd)
	f.c.Update(cmd())
	require.Len(t, f.cart.added, 1)
	assert.Equal(t, store.Item{Ref: 1, Available: 3}, f.cart.added[0])
	assert.Contains(t, f.c.View(), `Added "Mug" to cart`)

	f.c.Update(tea.KeyMsg{Type: tea.KeyDown})
	sel, ok := f.c.Selected()
	require.True(t, ok)
	assert.Equal(t, "Poster", sel.Name)
	_, cmd = f.c.Update(key("a"))
	assert.Nil(t, cmd)
	assert.Contains(t, f.c.View(), "Out of stock")
}

func TestCatalog_ShowsActionErrors(t *testing.T) {
	t.Parallel()
	f := newCatalogFixture(t)
	f.cart.err = &errs.APIError{Status: 422, Message: "Requested quantity exceeds available stock (3)", Kind: errs.KindValidation}
	f.loaded(t)

	_, cmd := f.c.Update(key("a"))
	require.NotNil(t, cmd)
	f.c.Update(cmd())
	assert.Contains(t, f.c.View(), "Requested quantity exceeds available stock (3)")

	f.c.Update(actionMsg{err: errors.New("boom")})
	assert.Contains(t, f.c.View(), "Request failed")
}
