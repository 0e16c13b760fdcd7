// pkg/network/errors.go
package network

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opd-ai/go-orbitsim/pkg/auth"
	"github.com/opd-ai/go-orbitsim/pkg/engine"
	"github.com/opd-ai/go-orbitsim/pkg/session"
	"github.com/opd-ai/go-orbitsim/pkg/validation"
)

// errBadRequest marks malformed input caught before reaching a session.
var errBadRequest = errors.New("bad request")

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, validation.ErrRateLimited), errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrSendFailure):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrCapacity):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrMissionOver),
		errors.Is(err, engine.ErrNotSupported),
		errors.Is(err, engine.ErrSubsystemOffline),
		errors.Is(err, engine.ErrBurnInProgress),
		errors.Is(err, engine.ErrInsufficientFuel),
		errors.Is(err, engine.ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, session.ErrUnknownMission),
		errors.Is(err, engine.ErrUnknownAction),
		errors.Is(err, engine.ErrUnknownSubsystem),
		errors.Is(err, engine.ErrUnknownStrength),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrNotFound),
		errors.Is(err, auth.ErrExpired),
		errors.Is(err, auth.ErrMismatch),
		errors.Is(err, auth.ErrAlreadyUsed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Telemetry any    `json:"telemetry,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": ...}. Internal errors are not echoed.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
