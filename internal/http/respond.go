package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/core"
	"finboard/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

// errBadRequest marks a body or path that could not be decoded.
var errBadRequest = errors.New("bad request")

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrInvalidDate,
	core.ErrInvalidWindow,
	core.ErrEmptyName,
	core.ErrEmptyCategory,
	core.ErrDescriptionLong,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to a status code and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity, v.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}

// writeError answers with the mapped status and logs server-side failures.
// No partial body is ever written alongside an error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithOwner(ownerFromRequest(r)))
	}
	writeJSON(w, status, errorBody{Error: msg})
}
