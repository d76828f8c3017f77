package devserver

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/and161185/flasheng/internal/model"
)

const maxPageSize = 100

// listParams are the paging and sorting parameters shared by list endpoints.
type listParams struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
	Search  string
	Query   url.Values
}

func parseList(r *http.Request, defSize int) listParams {
	q := r.URL.Query()
	p := listParams{
		Page:    atoi(q.Get("page"), 0),
		Size:    atoi(q.Get("size"), defSize),
		SortBy:  q.Get("sortBy"),
		SortDir: strings.ToLower(q.Get("sortDir")),
		Search:  strings.ToLower(strings.TrimSpace(q.Get("search"))),
		Query:   q,
	}
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defSize
	}
	p.Size = min(p.Size, maxPageSize)
	return p
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// sortBy orders items by the comparator named key, falling back to def.
func sortBy[T any](items []T, cmps map[string]func(a, b T) int, key, def, dir string) {
	c, ok := cmps[key]
	if !ok {
		c = cmps[def]
	}
	slices.SortStableFunc(items, func(a, b T) int {
		if dir == "desc" {
			return c(b, a)
		}
		return c(a, b)
	})
}

func paginate[T any](items []T, p listParams) model.Page[T] {
	total := len(items)
	start := min(p.Page*p.Size, total)
	end := min(start+p.Size, total)
	content := make([]T, end-start)
	copy(content, items[start:end])
	return model.Page[T]{
		Content:       content,
		Number:        p.Page,
		TotalPages:    (total + p.Size - 1) / p.Size,
		TotalElements: int64(total),
		Size:          p.Size,
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
