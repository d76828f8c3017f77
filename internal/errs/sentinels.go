// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Sentinels shared by the transport, stores and services.
var (
	// ErrUnauthorized indicates a missing or rejected bearer token (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the session lacks the required role (HTTP 403).
	ErrForbidden = errors.New("access denied")

	// ErrNotFound indicates the requested entity does not exist (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates rejected input, either locally or by the server (HTTP 400/422).
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a state conflict reported by the server (HTTP 409).
	ErrConflict = errors.New("conflict")

	// ErrServer indicates a server-side failure (HTTP 5xx).
	ErrServer = errors.New("server error")

	// ErrNetwork indicates no response was received.
	ErrNetwork = errors.New("API unreachable")

	// ErrTimeout indicates the request deadline expired before a response arrived.
	ErrTimeout = errors.New("request timed out")

	// ErrRateLimited indicates temporary lockout or throttling (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrResync indicates a mutation succeeded but the follow-up refresh failed.
	ErrResync = errors.New("resync failed")

	// ErrEmptyQueue indicates an operation that needs at least one queued line.
	ErrEmptyQueue = errors.New("queue is empty")

	// ErrSubmitting indicates a form whose previous submission has not settled.
	ErrSubmitting = errors.New("submission in progress")

	// ErrNoSession indicates an operation that needs an authenticated session.
	ErrNoSession = errors.New("no active session")

	// ErrNoToken indicates no usable bearer token is stored.
	ErrNoToken = errors.New("no valid token (login required)")
)
