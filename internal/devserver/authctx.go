package devserver

import (
	"context"
	"time"
)

type ctxKey string

const principalKey ctxKey = "flasheng.principal"

// principal is the authenticated caller of a request.
type principal struct {
	UserID  int64
	TokenID string
	Expires time.Time
}

// withPrincipal stores the authenticated caller in context.
func withPrincipal(ctx context.Context, p principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// principalFrom fetches the caller from context.
func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey).(principal)
	return p, ok
}
