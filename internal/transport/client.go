// Package transport implements the FlashEng HTTP/JSON client: fixed base URL,
// default headers, request timeout, bearer attachment and centralized
// handling of error responses.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/metrics"
)

// Header names attached to every request.
const (
	HeaderClient     = "X-Client"
	HeaderAPIVersion = "X-API-Version"
	HeaderRequestID  = "X-Request-ID"
)

// TokenSource supplies the bearer token for outgoing requests.
// It returns errs.ErrNoToken (or an empty string) when no token is stored.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Options are the fixed connection parameters.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	ClientID   string
	APIVersion string
	RateLimit  float64 // requests per second; 0 disables
	Burst      int
}

// Client sends requests to the API. It is safe for concurrent use.
type Client struct {
	http           *http.Client
	base           *url.URL
	headers        map[string]string
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	limiter        *rate.Limiter
	metrics        *metrics.HTTP
	tracing        bool
	log            *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option { return func(c *Client) { c.tokens = ts } }

// WithUnauthorizedHandler registers the global 401 policy.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithMetrics records every request in m.
func WithMetrics(m *metrics.HTTP) Option { return func(c *Client) { c.metrics = m } }

// WithHTTPClient replaces the underlying client; its Timeout is overwritten by Options.Timeout.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithTracing wraps the round tripper with otelhttp client spans.
func WithTracing() Option { return func(c *Client) { c.tracing = true } }

// New validates opts and builds a Client.
func New(opts Options, log *zap.Logger, options ...Option) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("transport: base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("transport: invalid base URL %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		http:    &http.Client{},
		base:    base,
		headers: map[string]string{"Accept": "application/json"},
		log:     log.Named("http"),
	}
	if opts.ClientID != "" {
		c.headers[HeaderClient] = opts.ClientID
	}
	if opts.APIVersion != "" {
		c.headers[HeaderAPIVersion] = opts.APIVersion
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	for _, o := range options {
		o(c)
	}
	c.http.Timeout = opts.Timeout
	if c.tracing {
		rt := c.http.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		c.http.Transport = otelhttp.NewTransport(rt)
	}
	return c, nil
}

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON-encoded when non-nil.
	Body any
	// RawBody is sent as is with ContentType when Body is nil.
	RawBody     io.Reader
	ContentType string
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Do sends req. Non-2xx statuses return the response together with an
// *errs.APIError; transport failures return an *errs.NetworkError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	route := routeOf(req.Path)
	done := c.metrics.Begin(req.Method, route)

	httpReq, err := c.build(ctx, req)
	if err != nil {
		c.log.Error("request setup failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("category", string(errs.KindRequest)),
			zap.Error(err),
		)
		done(string(errs.KindRequest))
		return nil, err
	}
	reqID := httpReq.Header.Get(HeaderRequestID)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			nerr := &errs.NetworkError{Method: req.Method, Path: req.Path, Timeout: isTimeout(err), Err: err}
			done(string(errs.Classify(nerr)))
			return nil, nerr
		}
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	dur := time.Since(start)
	if err != nil {
		nerr := &errs.NetworkError{Method: req.Method, Path: req.Path, Timeout: isTimeout(err), Err: err}
		c.log.Error("API unreachable",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("category", string(errs.Classify(nerr))),
			zap.Duration("dur", dur),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		done(string(errs.Classify(nerr)))
		return nil, nerr
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		nerr := &errs.NetworkError{Method: req.Method, Path: req.Path, Timeout: isTimeout(err), Err: fmt.Errorf("read body: %w", err)}
		done(string(errs.Classify(nerr)))
		return nil, nerr
	}
	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body, Duration: time.Since(start)}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.log.Debug("api",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("dur", resp.Duration),
			zap.String("request_id", reqID),
		)
		done("ok")
		return resp, nil
	}

	apiErr := errs.NewAPIError(req.Method, req.Path, resp.StatusCode, errorMessage(body))
	c.logFailure(apiErr, resp.Duration, reqID)
	done(string(apiErr.Kind))

	if apiErr.Kind == errs.KindUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
	return resp, apiErr
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	u := c.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	contentType := req.ContentType
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	} else if req.RawBody != nil {
		body = req.RawBody
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	id, err := uuid.NewV4()
	if err == nil {
		httpReq.Header.Set(HeaderRequestID, id.String())
	}

	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		switch {
		case err == nil && tok != "":
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		case err != nil && !errors.Is(err, errs.ErrNoToken):
			c.log.Warn("token source failed", zap.Error(err))
		}
	}
	return httpReq, nil
}

func (c *Client) logFailure(e *errs.APIError, dur time.Duration, reqID string) {
	fields := []zap.Field{
		zap.String("method", e.Method),
		zap.String("path", e.Path),
		zap.Int("status", e.Status),
		zap.String("category", string(e.Kind)),
		zap.Duration("dur", dur),
		zap.String("request_id", reqID),
	}
	switch e.Kind {
	case errs.KindUnauthorized:
		c.log.Warn("unauthorized, redirecting to login", fields...)
	case errs.KindForbidden:
		c.log.Warn("access denied", fields...)
	case errs.KindNotFound:
		c.log.Warn("resource not found", fields...)
	case errs.KindValidation:
		c.log.Warn("validation failed", append(fields, zap.String("message", e.Message))...)
	case errs.KindServer:
		c.log.Error("server error", fields...)
	default:
		c.log.Warn("request failed", fields...)
	}
}

// errorMessage extracts message, error or errors from an error body.
func errorMessage(body []byte) string {
	var m map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &m) != nil {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		var s string
		if raw, ok := m[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	raw, ok := m["errors"]
	if !ok {
		return ""
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, "; ")
	}
	var fields map[string]string
	if json.Unmarshal(raw, &fields) == nil {
		parts := make([]string, 0, len(fields))
		for k, v := range fields {
			parts = append(parts, k+": "+v)
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// routeOf replaces numeric path segments with {id} to bound metric cardinality.
func routeOf(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s != "" && strings.Trim(s, "0123456789") == "" {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}
