package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/doorman/internal/verify/service"
	"github.com/aussiebroadwan/doorman/internal/verify/store"
	"github.com/aussiebroadwan/doorman/pkg/httpx"
	"github.com/aussiebroadwan/doorman/pkg/slogx"
)

// writeServiceError maps domain errors onto the wire. Anything
// unrecognised is a 500 with the detail kept server-side.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many attempts, try again later")
	case errors.Is(err, service.ErrSessionExpired):
		httpx.WriteError(w, http.StatusGone, "session_expired", "The verification session has expired")
	case errors.Is(err, service.ErrNoSession), errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "No such registrant or session")
	case errors.Is(err, service.ErrInvalidState):
		httpx.WriteError(w, http.StatusConflict, "invalid_state", "Operation not valid in the current state")
	case errors.Is(err, service.ErrNotOperator):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "Only the operator may do that")
	case errors.Is(err, service.ErrGatewayFailure):
		httpx.WriteError(w, http.StatusBadGateway, "gateway_failure", "Community backend rejected the request")
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
