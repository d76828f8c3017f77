package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind is a coarse error category used for logging and metrics labels.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindServer       Kind = "server"
	KindNetwork      Kind = "network"
	KindTimeout      Kind = "timeout"
	KindRequest      Kind = "request"
	KindOther        Kind = "other"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string // server-provided text, may be empty
	Method  string
	Path    string
	Kind    Kind
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// Unwrap exposes the sentinel matching the status code.
func (e *APIError) Unwrap() error { return FromStatus(e.Status) }

// NewAPIError builds an APIError and classifies it.
func NewAPIError(method, path string, status int, msg string) *APIError {
	return &APIError{Status: status, Message: msg, Method: method, Path: path, Kind: KindOf(status)}
}

// FromStatus maps an HTTP status onto a sentinel. 2xx maps to nil.
func FromStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrServer
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

// KindOf classifies a status code.
func KindOf(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindOther
	}
}

// NetworkError reports a request that produced no response.
type NetworkError struct {
	Method  string
	Path    string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: %v: %v", e.Method, e.Path, ErrTimeout, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Method, e.Path, ErrNetwork, e.Err)
}

// Unwrap matches ErrNetwork always, ErrTimeout on deadline expiry, and the cause.
func (e *NetworkError) Unwrap() []error {
	out := []error{ErrNetwork}
	if e.Timeout {
		out = append(out, ErrTimeout)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Classify returns the category of any error produced by the transport.
func Classify(err error) Kind {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Kind
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindOther
	}
}

// Message returns user-visible text for err: the server's message when
// available, the joined field errors for local validation, else fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var fe FieldErrors
	if errors.As(err, &fe) && len(fe) > 0 {
		return fe.Error()
	}
	return fallback
}

// FieldErrors maps form field names to validation messages.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := fe.Fields()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Fields returns the failing field names in sorted order.
func (fe FieldErrors) Fields() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unwrap lets errors.Is(err, ErrValidation) match local validation failures.
func (fe FieldErrors) Unwrap() error { return ErrValidation }

// OrNil returns nil for an empty map so callers can return it directly.
func (fe FieldErrors) OrNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
