// Package devserver is an in-memory FlashEng API for local development and
// end-to-end tests of the client.
package devserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/and161185/flasheng/internal/config"
	pkgcrypto "github.com/and161185/flasheng/internal/crypto"
	"github.com/and161185/flasheng/internal/limiter"
	"github.com/and161185/flasheng/internal/metrics"
	"github.com/and161185/flasheng/internal/validate"
)

// Config holds the server settings.
type Config struct {
	JWTKey         []byte
	AccessTTL      time.Duration
	SeedArticles   int
	SeedFlashcards int
	AdminEmail     string
	AdminPassword  string
	Seed           uint64 // gofakeit seed, 0 picks a random one
	Hash           pkgcrypto.Params
}

// ConfigFrom maps the file/env configuration onto Config.
func ConfigFrom(c config.DevServerConfig) Config {
	return Config{
		JWTKey:         []byte(c.JWTKey),
		AccessTTL:      c.AccessTTL,
		SeedArticles:   c.SeedArticles,
		SeedFlashcards: c.SeedFlashcards,
		AdminEmail:     c.AdminEmail,
		AdminPassword:  c.AdminPassword,
	}
}

// Server wires the in-memory store into HTTP handlers.
type Server struct {
	cfg     Config
	log     *zap.Logger
	lim     limiter.Limiter
	v       *validate.Validator
	db      *memDB
	metrics *metrics.HTTP
	tracing bool
	now     func() time.Time
	handler http.Handler
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.HTTP) Option { return func(s *Server) { s.metrics = m } }

// WithTracing wraps the handler with otelhttp.
func WithTracing() Option { return func(s *Server) { s.tracing = true } }

// WithClock overrides time.Now for token issuance and order dates.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// New constructs a seeded server. A nil limiter means an in-memory one
// with the default policy.
func New(cfg Config, lim limiter.Limiter, log *zap.Logger, opts ...Option) (*Server, error) {
	if len(cfg.JWTKey) == 0 {
		return nil, errors.New("devserver: missing jwt signing key")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.Hash == (pkgcrypto.Params{}) {
		cfg.Hash = pkgcrypto.DefaultParams
	}
	if lim == nil {
		lim = limiter.NewMemory(limiter.DefaultPolicy)
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{cfg: cfg, log: log, lim: lim, db: newMemDB(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.v = validate.New(validate.WithClock(s.now))
	if err := s.seed(); err != nil {
		return nil, err
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler: /api/... plus /metrics when enabled.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) stamp() string { return s.now().UTC().Format(time.RFC3339) }

func (s *Server) routes() http.Handler {
	missing := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r := mux.NewRouter()
	r.NotFoundHandler = missing
	r.MethodNotAllowedHandler = notAllowed
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	// Subrouters answer mismatches themselves.
	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = missing
	api.MethodNotAllowedHandler = notAllowed
	api.Use(s.observe)

	private := func(h http.HandlerFunc) http.Handler { return s.authenticate(h) }
	admin := func(h http.HandlerFunc) http.Handler { return s.authenticate(s.requireAdmin(h)) }

	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	api.Handle("/auth/check", private(s.check)).Methods(http.MethodGet)
	api.Handle("/auth/logout", private(s.logout)).Methods(http.MethodPost)

	api.Handle("/articles", private(s.listArticles)).Methods(http.MethodGet)
	api.Handle("/admin/articles", admin(s.listArticles)).Methods(http.MethodGet)
	api.Handle("/admin/articles", admin(s.createArticle)).Methods(http.MethodPost)
	api.Handle("/admin/articles/{id:[0-9]+}", admin(s.updateArticle)).Methods(http.MethodPut)
	api.Handle("/admin/articles/{id:[0-9]+}", admin(s.deleteArticle)).Methods(http.MethodDelete)

	api.Handle("/flashcards", private(s.listFlashcards)).Methods(http.MethodGet)
	api.Handle("/flashcards", admin(s.createFlashcard)).Methods(http.MethodPost)
	api.Handle("/flashcards/{id:[0-9]+}", admin(s.updateFlashcard)).Methods(http.MethodPut)
	api.Handle("/flashcards/{id:[0-9]+}", admin(s.deleteFlashcard)).Methods(http.MethodDelete)

	for prefix, k := range map[string]queueKind{"/cart": cartKind, "/practice-queue": practiceKind} {
		api.Handle(prefix, private(s.getQueue(k))).Methods(http.MethodGet)
		api.Handle(prefix, private(s.addToQueue(k))).Methods(http.MethodPost)
		api.Handle(prefix+"/clear", private(s.clearQueue(k))).Methods(http.MethodDelete)
		api.Handle(prefix+"/{id:[0-9]+}", private(s.updateLine(k))).Methods(http.MethodPut)
		api.Handle(prefix+"/{id:[0-9]+}", private(s.removeLine(k))).Methods(http.MethodDelete)
	}
	api.Handle("/practice-sessions", private(s.startPractice)).Methods(http.MethodPost)

	api.Handle("/orders", private(s.placeOrder)).Methods(http.MethodPost)
	api.Handle("/orders/my", private(s.myOrders)).Methods(http.MethodGet)
	api.Handle("/admin/orders", admin(s.adminOrders)).Methods(http.MethodGet)
	api.Handle("/admin/orders/{id:[0-9]+}", admin(s.adminOrder)).Methods(http.MethodGet)

	api.Handle("/profile", private(s.getProfile)).Methods(http.MethodGet)
	api.Handle("/profile", private(s.updateProfile)).Methods(http.MethodPut)
	api.Handle("/profile/password", private(s.changePassword)).Methods(http.MethodPut)
	api.Handle("/profile/image", private(s.uploadImage)).Methods(http.MethodPost)
	api.Handle("/users/{id:[0-9]+}", private(s.updateUser)).Methods(http.MethodPut)
	api.HandleFunc("/uploads/{name}", s.serveImage).Methods(http.MethodGet)

	var h http.Handler = r
	h = logging(s.log)(h)
	h = recoverer(s.log)(h)
	if s.tracing {
		h = otelhttp.NewHandler(h, "flasheng-devserver")
	}
	return h
}
