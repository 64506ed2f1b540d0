package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/health"
)

type healthHandler struct {
	state   *health.State
	checker *health.Checker
}

func (h *healthHandler) setReady(w http.ResponseWriter, r *http.Request) {
	ready, err := pathBool(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.state.SetReady(r.Context(), ready)
	writeText(w, http.StatusOK, fmt.Sprintf("Readiness state set to: %t", ready))
}

func (h *healthHandler) setLive(w http.ResponseWriter, r *http.Request) {
	live, err := pathBool(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.state.SetLive(r.Context(), live)
	writeText(w, http.StatusOK, fmt.Sprintf("Liveness state set to: %t", live))
}

func (h *healthHandler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Status())
}

// aggregate answers 200 when UP and 503 otherwise.
func (h *healthHandler) aggregate(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeError(w, r, fmt.Errorf("aggregate health is not configured"))
		return
	}

	report := h.checker.Aggregate(r.Context())
	code := http.StatusOK
	if report.Status != health.StatusUp {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func (h *healthHandler) livez(w http.ResponseWriter, _ *http.Request) {
	probe(w, h.state.Live())
}

func (h *healthHandler) readyz(w http.ResponseWriter, _ *http.Request) {
	probe(w, h.state.Ready())
}

func probe(w http.ResponseWriter, ok bool) {
	if ok {
		writeText(w, http.StatusOK, "ok")
		return
	}
	writeText(w, http.StatusServiceUnavailable, "unavailable")
}

func pathBool(r *http.Request) (bool, error) {
	raw := mux.Vars(r)["status"]
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: status must be true or false, got %q", core.ErrInvalidInput, raw)
	}
	return v, nil
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
