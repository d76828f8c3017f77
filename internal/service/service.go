// Package service wraps the FlashEng API resources used by the views:
// articles, flashcards, orders and the user profile.
package service

import (
	"context"
	"net/url"
	"strconv"

	"github.com/and161185/flasheng/internal/listquery"
	"github.com/and161185/flasheng/internal/notify"
)

// API is the part of the transport client the services use.
type API interface {
	JSON(ctx context.Context, method, path string, query url.Values, in, out any) error
	Upload(ctx context.Context, path, field, filename, contentType string, data []byte, out any) error
}

func idPath(base string, id int64) string { return base + "/" + strconv.FormatInt(id, 10) }

func orNop(n notify.Notifier) notify.Notifier {
	if n == nil {
		return notify.Nop{}
	}
	return n
}

// queryOf encodes any list state.
func queryOf[F listquery.Filters](st listquery.State[F]) url.Values { return st.Query() }
