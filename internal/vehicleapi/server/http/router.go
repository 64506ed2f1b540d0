package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/chaos"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/health"
)

// Deps are the components served over HTTP.
type Deps struct {
	Vehicles  core.VehicleService
	Chaos     *chaos.Controller
	Assaulter *chaos.Assaulter
	Health    *health.State
	Checker   *health.Checker

	// Metrics is mounted on MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string
}

// NewRouter builds the route table of the service.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(withRequestID, withRecovery, withAccessLog)

	api := r.PathPrefix("/api").Subrouter()

	vh := &vehicleHandler{svc: d.Vehicles}
	vr := api.PathPrefix("/vehicles").Subrouter()
	if d.Assaulter != nil {
		vr.Use(withAssaults(d.Assaulter))
	}
	vr.HandleFunc("", vh.list).Methods(http.MethodGet)
	vr.HandleFunc("", vh.create).Methods(http.MethodPost)
	vr.HandleFunc("/{id:[0-9]+}", vh.get).Methods(http.MethodGet)
	vr.HandleFunc("/{id:[0-9]+}", vh.update).Methods(http.MethodPut)
	vr.HandleFunc("/{id:[0-9]+}", vh.delete).Methods(http.MethodDelete)

	ch := &chaosHandler{ctrl: d.Chaos}
	cr := api.PathPrefix("/chaos-monkey").Subrouter()
	cr.HandleFunc("/status", ch.status).Methods(http.MethodGet)
	cr.HandleFunc("/enable", ch.enable).Methods(http.MethodPost)
	cr.HandleFunc("/disable", ch.disable).Methods(http.MethodPost)
	cr.HandleFunc("/assaults", ch.assaults).Methods(http.MethodGet)
	cr.HandleFunc("/assaults", ch.updateAssaults).Methods(http.MethodPost)
	cr.HandleFunc("/assaults/latency", ch.latency).Methods(http.MethodPost)
	cr.HandleFunc("/assaults/exceptions", ch.exceptions).Methods(http.MethodPost)
	cr.HandleFunc("/assaults/memory", ch.memory).Methods(http.MethodPost)
	cr.HandleFunc("/watchers", ch.watchers).Methods(http.MethodPost)

	hh := &healthHandler{state: d.Health, checker: d.Checker}
	hr := api.PathPrefix("/health").Subrouter()
	hr.HandleFunc("", hh.aggregate).Methods(http.MethodGet)
	hr.HandleFunc("/status", hh.status).Methods(http.MethodGet)
	hr.HandleFunc("/ready/{status}", hh.setReady).Methods(http.MethodPost)
	hr.HandleFunc("/live/{status}", hh.setLive).Methods(http.MethodPost)

	r.HandleFunc("/healthz", hh.livez).Methods(http.MethodGet)
	r.HandleFunc("/readyz", hh.readyz).Methods(http.MethodGet)

	if d.Metrics != nil && d.MetricsPath != "" {
		r.Handle(d.MetricsPath, d.Metrics).Methods(http.MethodGet)
	}

	r.NotFoundHandler = withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no route for " + r.URL.Path, Code: "NOT_FOUND", Status: http.StatusNotFound})
	}))
	r.MethodNotAllowedHandler = withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: r.Method + " not allowed", Code: "METHOD_NOT_ALLOWED", Status: http.StatusMethodNotAllowed})
	}))
	return r
}
