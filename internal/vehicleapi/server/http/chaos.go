package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/chaos"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
)

type chaosHandler struct {
	ctrl *chaos.Controller
}

func (h *chaosHandler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

func (h *chaosHandler) enable(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Enable())
}

func (h *chaosHandler) disable(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Disable())
}

func (h *chaosHandler) assaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Assaults())
}

func (h *chaosHandler) updateAssaults(w http.ResponseWriter, r *http.Request) {
	u, err := chaos.DecodeAssaultsUpdate(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.UpdateAssaults(u))
}

func (h *chaosHandler) latency(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	active := q.requiredBool("active")
	from := q.intOr("from", chaos.DefaultLatencyFrom)
	to := q.intOr("to", chaos.DefaultLatencyTo)
	if q.err != nil {
		writeError(w, r, q.err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.ConfigureLatency(active, from, to))
}

func (h *chaosHandler) exceptions(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	active := q.requiredBool("active")
	kind := q.stringOr("exceptionClass", chaos.DefaultExceptionType)
	message := q.stringOr("message", chaos.DefaultExceptionMessage)
	if q.err != nil {
		writeError(w, r, q.err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.ConfigureExceptions(active, kind, message))
}

func (h *chaosHandler) memory(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	active := q.requiredBool("active")
	megabytes := q.intOr("memoryMegabytes", chaos.DefaultMemoryMegabytes)
	wait := q.int64Or("millisWaitNextMemoryKill", chaos.DefaultMemoryWait)
	if q.err != nil {
		writeError(w, r, q.err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.ConfigureMemory(active, megabytes, wait))
}

func (h *chaosHandler) watchers(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	ws := chaos.Watchers{
		Controller:     q.boolOr("controller", true),
		RestController: q.boolOr("restController", true),
		Service:        q.boolOr("service", true),
		Repository:     q.boolOr("repository", true),
		Component:      q.boolOr("component", true),
	}
	if q.err != nil {
		writeError(w, r, q.err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.ConfigureWatchers(ws))
}

// query parses request parameters, keeping the first error.
type query struct {
	r   *http.Request
	err error
}

func (q *query) lookup(name string) (string, bool) {
	values, ok := q.r.URL.Query()[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (q *query) fail(name, raw, want string) {
	if q.err == nil {
		q.err = fmt.Errorf("%w: parameter %s must be %s, got %q", core.ErrInvalidInput, name, want, raw)
	}
}

func (q *query) requiredBool(name string) bool {
	raw, ok := q.lookup(name)
	if !ok {
		if q.err == nil {
			q.err = fmt.Errorf("%w: parameter %s is required", core.ErrInvalidInput, name)
		}
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, raw, "a boolean")
	}
	return v
}

func (q *query) boolOr(name string, def bool) bool {
	raw, ok := q.lookup(name)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, raw, "a boolean")
		return def
	}
	return v
}

func (q *query) intOr(name string, def int) int {
	raw, ok := q.lookup(name)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, raw, "an integer")
		return def
	}
	return v
}

func (q *query) int64Or(name string, def int64) int64 {
	raw, ok := q.lookup(name)
	if !ok {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		q.fail(name, raw, "an integer")
		return def
	}
	return v
}

// stringOr returns def only when the parameter is absent; an empty value is passed through.
func (q *query) stringOr(name, def string) string {
	raw, ok := q.lookup(name)
	if !ok {
		return def
	}
	return raw
}
