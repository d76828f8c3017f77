// Package app composes the FlashEng client: token store, API transport,
// session and queue stores, resource services, list controllers and router.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/flasheng/internal/config"
	"github.com/and161185/flasheng/internal/listquery"
	"github.com/and161185/flasheng/internal/metrics"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/notify"
	"github.com/and161185/flasheng/internal/router"
	"github.com/and161185/flasheng/internal/service"
	"github.com/and161185/flasheng/internal/store"
	"github.com/and161185/flasheng/internal/tokenstore"
	"github.com/and161185/flasheng/internal/transport"
	"github.com/and161185/flasheng/internal/validate"
)

// List controller aliases for the views.
type (
	ArticleList   = listquery.Controller[model.Article, listquery.PriceRange]
	FlashcardList = listquery.Controller[model.Flashcard, listquery.CardFilters]
	OrderList     = listquery.Controller[model.Order, listquery.OrderFilters]
)

// App is the assembled client.
type App struct {
	cfg     *config.Config
	log     *zap.Logger
	notify  notify.Notifier
	tokens  tokenstore.Store
	client  *transport.Client
	metrics *metrics.HTTP
	router  *router.Router

	session *store.Session
	queue   *store.Queue

	articles   *service.ArticleServiceImpl
	flashcards *service.FlashcardServiceImpl
	orders     *service.OrderServiceImpl
	profile    *service.ProfileServiceImpl

	catalog       *ArticleList
	adminArticles *ArticleList
	cards         *FlashcardList
	myOrders      *OrderList
	adminOrders   *OrderList
}

type options struct {
	tokens     tokenstore.Store
	notifier   notify.Notifier
	httpClient *http.Client
	nav        router.Navigator
	metrics    *metrics.HTTP
	now        func() time.Time
	afterFunc  func(d time.Duration, f func()) (stop func() bool)
}

// Option customizes New.
type Option func(*options)

// WithTokenStore replaces the store selected by cfg.Token.
func WithTokenStore(s tokenstore.Store) Option { return func(o *options) { o.tokens = s } }

// WithNotifier sets where user-visible messages go. Defaults to the logger.
func WithNotifier(n notify.Notifier) Option { return func(o *options) { o.notifier = n } }

// WithHTTPClient replaces the transport's underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.httpClient = hc } }

// WithNavigator records navigations somewhere other than an in-memory history.
func WithNavigator(nav router.Navigator) Option { return func(o *options) { o.nav = nav } }

// WithMetrics records client requests in m even when cfg.Metrics is disabled.
func WithMetrics(m *metrics.HTTP) Option { return func(o *options) { o.metrics = m } }

// WithClock overrides time.Now for form validation.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithAfterFunc replaces the list controllers' debounce scheduler.
func WithAfterFunc(fn func(d time.Duration, f func()) (stop func() bool)) Option {
	return func(o *options) { o.afterFunc = fn }
}

// New builds the client from cfg. Nothing touches the network until Start.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if log == nil {
		log = zap.NewNop()
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	a := &App{cfg: cfg, log: log}

	a.tokens = o.tokens
	if a.tokens == nil {
		ts, err := tokenstore.New(cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("token store: %w", err)
		}
		a.tokens = ts
	}

	a.notify = o.notifier
	if a.notify == nil {
		a.notify = notify.NewLog(log)
	}

	a.metrics = o.metrics
	if a.metrics == nil && cfg.Metrics.Enabled {
		a.metrics = metrics.NewHTTP("flasheng_client")
	}

	topts := []transport.Option{
		transport.WithTokenSource(transport.TokenSourceFunc(a.tokens.Load)),
		transport.WithUnauthorizedHandler(a.onUnauthorized),
	}
	if a.metrics != nil {
		topts = append(topts, transport.WithMetrics(a.metrics))
	}
	if o.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(o.httpClient))
	}
	if cfg.API.Tracing {
		topts = append(topts, transport.WithTracing())
	}
	client, err := transport.New(transport.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		ClientID:   cfg.API.ClientID,
		APIVersion: cfg.API.Version,
		RateLimit:  cfg.API.RateLimit,
		Burst:      cfg.API.Burst,
	}, log, topts...)
	if err != nil {
		_ = a.closeTokens()
		return nil, err
	}
	a.client = client

	var vopts []validate.Option
	if o.now != nil {
		vopts = append(vopts, validate.WithClock(o.now))
	}
	v := validate.New(vopts...)

	a.session = store.NewSession(client, a.tokens, v, a.notify, log)
	a.queue = store.NewQueue(client, store.VariantByName(cfg.Queue.Variant), a.notify, log)

	a.articles = service.NewArticleService(client, v, a.notify)
	a.flashcards = service.NewFlashcardService(client, v, a.notify)
	a.orders = service.NewOrderService(client, v, a.notify)
	a.profile = service.NewProfileService(client, v, a.notify)

	lopts := func(fallback string) listquery.Options {
		return listquery.Options{
			Debounce:      cfg.List.Debounce,
			AfterFunc:     o.afterFunc,
			ErrorFallback: fallback,
			Log:           log,
		}
	}
	a.catalog = listquery.New(a.articles.List, service.DefaultArticleQuery(cfg.List.CatalogPageSize), lopts("Failed to load articles"))
	a.adminArticles = listquery.New(a.articles.AdminList, service.DefaultArticleQuery(cfg.List.CatalogPageSize), lopts("Failed to load articles"))
	a.cards = listquery.New(a.flashcards.List, service.DefaultFlashcardQuery(cfg.List.FlashcardPageSize), lopts("Failed to load flashcards"))
	a.myOrders = listquery.New(a.orders.MyOrders, service.DefaultMyOrdersQuery(cfg.List.OrderPageSize), lopts("Failed to load orders"))
	a.adminOrders = listquery.New(a.orders.AdminOrders, service.DefaultAdminOrdersQuery(cfg.List.OrderPageSize), lopts("Failed to load orders"))

	a.router = router.New(nil, o.nav, log)

	// Logout and the 401 policy both end here.
	a.session.OnEnd(func(context.Context) {
		a.queue.ResetQueue()
		a.resetLists()
	})
	return a, nil
}

// onUnauthorized is the global 401 policy.
func (a *App) onUnauthorized(ctx context.Context) {
	a.log.Info("session rejected by API")
	a.session.Invalidate(ctx)
	a.Navigate(ctx, router.Login)
}

func (a *App) resetLists() {
	a.catalog.Reset()
	a.adminArticles.Reset()
	a.cards.Reset()
	a.myOrders.Reset()
	a.adminOrders.Reset()
}

// Start restores the session from the stored token and, when it is still
// valid, loads the queue.
func (a *App) Start(ctx context.Context) (model.Session, bool) {
	sess, ok := a.session.CheckSession(ctx)
	if !ok {
		return model.Session{}, false
	}
	if err := a.queue.FetchQueue(ctx); err != nil {
		a.log.Warn("initial queue fetch failed", zap.Error(err))
	}
	return sess, true
}

// Login authenticates and loads the queue of the new session.
func (a *App) Login(ctx context.Context, c model.Credentials) (model.Session, error) {
	sess, err := a.session.Login(ctx, c)
	if err != nil {
		return model.Session{}, err
	}
	if err := a.queue.FetchQueue(ctx); err != nil {
		a.log.Warn("queue fetch after login failed", zap.Error(err))
	}
	return sess, nil
}

// Signup registers and loads the (empty) queue of the new session.
func (a *App) Signup(ctx context.Context, r model.SignupRequest) (model.Session, error) {
	sess, err := a.session.Signup(ctx, r)
	if err != nil {
		return model.Session{}, err
	}
	if err := a.queue.FetchQueue(ctx); err != nil {
		a.log.Warn("queue fetch after signup failed", zap.Error(err))
	}
	return sess, nil
}

// Logout ends the session and returns to the login page.
func (a *App) Logout(ctx context.Context) {
	a.session.Logout(ctx)
	a.Navigate(ctx, router.Login)
}

// PlaceOrder submits the checkout form against the current cart.
func (a *App) PlaceOrder(ctx context.Context, c model.Checkout) (model.Order, error) {
	return a.orders.Place(ctx, c, a.queue)
}

// Navigate applies the route guards for the current session and queue.
func (a *App) Navigate(ctx context.Context, path string) router.Decision {
	return a.router.Navigate(ctx, path, a.session, a.queue)
}

// Resolve is Navigate without recording the location.
func (a *App) Resolve(path string) router.Decision {
	return a.router.Resolve(path, a.session, a.queue)
}

func (a *App) Config() *config.Config    { return a.cfg }
func (a *App) Session() *store.Session   { return a.session }
func (a *App) Queue() *store.Queue       { return a.queue }
func (a *App) Router() *router.Router    { return a.router }
func (a *App) Client() *transport.Client { return a.client }
func (a *App) Metrics() *metrics.HTTP    { return a.metrics }

func (a *App) Articles() service.ArticleService           { return a.articles }
func (a *App) FlashcardService() service.FlashcardService { return a.flashcards }
func (a *App) Orders() service.OrderService               { return a.orders }
func (a *App) Profile() service.ProfileService            { return a.profile }

// Catalog is the article list shown on the home page.
func (a *App) Catalog() *ArticleList { return a.catalog }

// AdminArticles is the article list of the admin page.
func (a *App) AdminArticles() *ArticleList { return a.adminArticles }

// Flashcards is the flashcard catalog list.
func (a *App) Flashcards() *FlashcardList { return a.cards }

// MyOrders is the caller's order history.
func (a *App) MyOrders() *OrderList { return a.myOrders }

// AdminOrders is the all-orders list of the admin page.
func (a *App) AdminOrders() *OrderList { return a.adminOrders }

// Close releases the token store connection, if it holds one.
func (a *App) Close() error {
	return a.closeTokens()
}

func (a *App) closeTokens() error {
	if c, ok := a.tokens.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
