package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/signalsfoundry/sattrack/internal/logging"
	"github.com/signalsfoundry/sattrack/registry"
)

var (
	// ErrNotFound is used when a named observer or TLE does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest covers malformed request bodies.
	ErrBadRequest = errors.New("bad request")
)

// statusFor maps registry and handler errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrValidation), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrDuplicateKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var verr *registry.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}

	log := logging.LoggerFromContext(r.Context())
	if log == nil {
		log = logging.Noop()
	}
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", logging.Err(err))
	} else {
		log.Debug(r.Context(), "request rejected", logging.Int("status", status), logging.Err(err))
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
