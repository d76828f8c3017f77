package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/logger"
)

// apiError is a handler failure with the status and message sent to the client.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return fmt.Sprintf("%d: %s", e.status, e.msg) }

func failf(status int, format string, args ...any) error {
	return &apiError{status: status, msg: fmt.Sprintf(format, args...)}
}

func notFound(what string) error { return failf(http.StatusNotFound, "%s not found", what) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// fail maps err to a response: field errors are 422 with an errors map,
// apiError carries its own status, anything else is a logged 500.
func (*Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var fe errs.FieldErrors
	var ae *apiError
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fe})
	case errors.As(err, &ae):
		writeMessage(w, ae.status, ae.msg)
	default:
		logger.FromContext(r.Context()).Error("handler failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		return failf(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}
