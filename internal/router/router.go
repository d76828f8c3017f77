// Package router maps client routes to guarded destinations.
package router

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Client routes.
const (
	Login           = "/login"
	Register        = "/register"
	Home            = "/home"
	Flashcards      = "/flashcards"
	Cart            = "/cart"
	Checkout        = "/checkout"
	Orders          = "/orders"
	Profile         = "/profile"
	AdminArticles   = "/admin/articles"
	AdminFlashcards = "/admin/flashcards"
	AdminOrders     = "/admin/orders"
)

// Access is who may see a route.
type Access int

const (
	// GuestOnly routes bounce authenticated users to Home.
	GuestOnly Access = iota
	// Protected routes need a session.
	Protected
	// AdminOnly routes need an administrator session.
	AdminOnly
)

// Route is one entry of the route table.
type Route struct {
	Path   string
	Access Access
	// NeedsQueue routes bounce to Home while the queue is empty.
	NeedsQueue bool
}

// DefaultRoutes is the application route table.
var DefaultRoutes = []Route{
	{Path: Login, Access: GuestOnly},
	{Path: Register, Access: GuestOnly},
	{Path: Home, Access: Protected},
	{Path: Flashcards, Access: Protected},
	{Path: Cart, Access: Protected},
	{Path: Checkout, Access: Protected, NeedsQueue: true},
	{Path: Orders, Access: Protected},
	{Path: Profile, Access: Protected},
	{Path: AdminArticles, Access: AdminOnly},
	{Path: AdminFlashcards, Access: AdminOnly},
	{Path: AdminOrders, Access: AdminOnly},
}

// Legacy paths kept working after renames.
var Legacy = map[string]string{
	"/cards":  Flashcards,
	"/basket": Cart,
}

// SessionView is what guards need to know about the session.
type SessionView interface {
	Checked() bool
	Authenticated() bool
	Admin() bool
}

// QueueView is what guards need to know about the queue.
type QueueView interface {
	Count() int
}

// Decision is the outcome of resolving a requested path.
type Decision struct {
	Requested  string
	Path       string
	Redirected bool
	Route      Route
}

// Router resolves paths against a route table.
type Router struct {
	routes map[string]Route
	nav    Navigator
	log    *zap.Logger
}

// New creates a router over routes (DefaultRoutes when nil).
func New(routes []Route, nav Navigator, log *zap.Logger) *Router {
	if routes == nil {
		routes = DefaultRoutes
	}
	if nav == nil {
		nav = &History{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{routes: make(map[string]Route, len(routes)), nav: nav, log: log.Named("router")}
	for _, rt := range routes {
		r.routes[rt.Path] = rt
	}
	return r
}

// Navigator returns where navigations are recorded.
func (r *Router) Navigator() Navigator { return r.nav }

func clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// Resolve applies the guards to path. It never performs I/O.
func (r *Router) Resolve(path string, s SessionView, q QueueView) Decision {
	req := clean(path)
	d := Decision{Requested: path}
	authed := s != nil && s.Checked() && s.Authenticated()

	target := req
	if to, ok := Legacy[target]; ok {
		target = to
	}
	rt, ok := r.routes[target]
	if !ok {
		if authed {
			target = Home
		} else {
			target = Login
		}
		rt = r.routes[target]
	}

	switch rt.Access {
	case GuestOnly:
		if authed {
			target = Home
		}
	case Protected:
		if !authed {
			target = Login
		}
	case AdminOnly:
		switch {
		case !authed:
			target = Login
		case !s.Admin():
			target = Home
		}
	}
	if r.routes[target].NeedsQueue && (q == nil || q.Count() == 0) {
		target = Home
	}

	d.Path = target
	d.Route = r.routes[target]
	d.Redirected = target != req
	return d
}

// Navigate resolves path and records the resulting location.
func (r *Router) Navigate(ctx context.Context, path string, s SessionView, q QueueView) Decision {
	d := r.Resolve(path, s, q)
	if d.Redirected {
		r.log.Debug("redirect", zap.String("from", path), zap.String("to", d.Path))
	}
	r.nav.Go(ctx, d.Path)
	return d
}

// Navigator records the current location.
type Navigator interface {
	Go(ctx context.Context, path string)
	Current() string
}

// History is an in-memory Navigator that keeps every visited path.
type History struct {
	mu    sync.Mutex
	paths []string
	subs  []func(string)
}

func (h *History) Go(_ context.Context, path string) {
	h.mu.Lock()
	h.paths = append(h.paths, path)
	subs := slices.Clone(h.subs)
	h.mu.Unlock()
	for _, fn := range subs {
		fn(path)
	}
}

// Current is the last visited path, or "" before any navigation.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.paths) == 0 {
		return ""
	}
	return h.paths[len(h.paths)-1]
}

// Paths returns every visited path in order.
func (h *History) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

// OnChange registers fn for every navigation.
func (h *History) OnChange(fn func(path string)) {
	h.mu.Lock()
	h.subs = append(h.subs, fn)
	h.mu.Unlock()
}
