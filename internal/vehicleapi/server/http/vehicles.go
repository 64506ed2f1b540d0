package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
)

type vehicleHandler struct {
	svc core.VehicleService
}

func (h *vehicleHandler) list(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.svc.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *vehicleHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *vehicleHandler) create(w http.ResponseWriter, r *http.Request) {
	v, err := decodeVehicle(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.svc.Create(r.Context(), v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/vehicles/%d", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (h *vehicleHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := decodeVehicle(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), id, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *vehicleHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid vehicle id %q", core.ErrInvalidInput, raw)
	}
	return id, nil
}

func decodeVehicle(r *http.Request) (*model.Vehicle, error) {
	var v model.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: malformed vehicle: %v", core.ErrInvalidInput, err)
	}
	return &v, nil
}
