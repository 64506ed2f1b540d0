package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/pkg/log"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Status int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to encode response")
	}
}

// writeError maps err onto a status code: NotFound 404, Conflict 409, InvalidInput 400,
// ServiceUnavailable and injected faults 503, anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, core.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, core.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, core.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, core.ErrServiceUnavailable):
		status, code = http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	case errors.Is(err, core.ErrTransientFault):
		status, code = http.StatusServiceUnavailable, "TRANSIENT_FAULT"
	}

	if status >= http.StatusInternalServerError {
		requestLogger(r).Error(err, "Request failed", "status", status)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code, Status: status})
}
