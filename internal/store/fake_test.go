package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/model"
)

type call struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeAPI is an in-memory stand-in for the HTTP API. Handlers get the
// decoded JSON body and return a value that is re-encoded into out.
type fakeAPI struct {
	mu       sync.Mutex
	calls    []call
	handlers map[string]func(body map[string]any) (any, error)
}

var _ API = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{handlers: map[string]func(map[string]any) (any, error){}}
}

func (f *fakeAPI) on(method, path string, h func(body map[string]any) (any, error)) {
	f.mu.Lock()
	f.handlers[method+" "+path] = h
	f.mu.Unlock()
}

func (f *fakeAPI) JSON(_ context.Context, method, path string, _ url.Values, in, out any) error {
	var body map[string]any
	if in != nil {
		b, _ := json.Marshal(in)
		_ = json.Unmarshal(b, &body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{Method: method, Path: path, Body: body})
	h, ok := f.handlers[method+" "+path]
	f.mu.Unlock()
	if !ok {
		return errs.NewAPIError(method, path, http.StatusNotFound, "no handler")
	}
	res, err := h(body)
	if err != nil {
		return err
	}
	if out != nil && res != nil {
		b, _ := json.Marshal(res)
		return json.Unmarshal(b, out)
	}
	return nil
}

func (f *fakeAPI) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeCart is a tiny server-side cart with authoritative totals.
type fakeCart struct {
	mu     sync.Mutex
	next   int64
	lines  []model.QueueItem
	prices map[int64]decimal.Decimal
	stock  map[int64]int
}

func newFakeCart() *fakeCart {
	return &fakeCart{
		next:   1,
		prices: map[int64]decimal.Decimal{1: decimal.RequireFromString("2.50"), 2: decimal.RequireFromString("10.00")},
		stock:  map[int64]int{1: 10, 2: 3},
	}
}

func (c *fakeCart) snapshot() model.Queue {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := model.Queue{Items: append([]model.QueueItem{}, c.lines...), TotalPrice: decimal.Zero, Currency: "USD"}
	for _, l := range c.lines {
		q.TotalPrice = q.TotalPrice.Add(l.LineTotal)
		q.TotalItems += l.Quantity
	}
	return q
}

func num(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

func (c *fakeCart) install(f *fakeAPI) {
	f.on(http.MethodGet, "/cart", func(map[string]any) (any, error) { return c.snapshot(), nil })
	f.on(http.MethodPost, "/cart", func(b map[string]any) (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		ref, qty := num(b["articleId"]), int(num(b["quantity"]))
		for i := range c.lines {
			if c.lines[i].ArticleID == ref {
				c.lines[i].Quantity += qty
				c.lines[i].LineTotal = c.prices[ref].Mul(decimal.NewFromInt(int64(c.lines[i].Quantity)))
				return nil, nil
			}
		}
		c.lines = append(c.lines, model.QueueItem{
			ID: c.next, ArticleID: ref, Quantity: qty, UnitPrice: c.prices[ref],
			AvailableQuantity: c.stock[ref], LineTotal: c.prices[ref].Mul(decimal.NewFromInt(int64(qty))),
		})
		c.next++
		return nil, nil
	})
	for id := int64(1); id <= 5; id++ {
		path := "/cart/" + strconv.FormatInt(id, 10)
		f.on(http.MethodPut, path, func(b map[string]any) (any, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i := range c.lines {
				if c.lines[i].ID == id {
					c.lines[i].Quantity = int(num(b["quantity"]))
					c.lines[i].LineTotal = c.lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(c.lines[i].Quantity)))
					return nil, nil
				}
			}
			return nil, errs.NewAPIError(http.MethodPut, path, http.StatusNotFound, "Cart item not found")
		})
		f.on(http.MethodDelete, path, func(map[string]any) (any, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i := range c.lines {
				if c.lines[i].ID == id {
					c.lines = append(c.lines[:i], c.lines[i+1:]...)
					return nil, nil
				}
			}
			return nil, errs.NewAPIError(http.MethodDelete, path, http.StatusNotFound, "Cart item not found")
		})
	}
	f.on(http.MethodDelete, "/cart/clear", func(map[string]any) (any, error) {
		c.mu.Lock()
		c.lines = nil
		c.mu.Unlock()
		return nil, nil
	})
}

func failing(status int, msg string) func(map[string]any) (any, error) {
	return func(map[string]any) (any, error) {
		return nil, errs.NewAPIError("X", "/x", status, msg)
	}
}

func describe(q model.Queue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%s:", q.TotalItems, q.TotalPrice.StringFixed(2))
	for _, it := range q.Items {
		fmt.Fprintf(&b, " %d=%d", it.ArticleID, it.Quantity)
	}
	return b.String()
}
