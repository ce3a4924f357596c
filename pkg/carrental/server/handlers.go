package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/search"
)

// GetCars defines a GET handler to search listings
func (h *httpServer) GetCars(w http.ResponseWriter, r *http.Request) {
	log := h.log.With("request_id", requestID(r))

	q, err := parseCarsQuery(r.URL.Query(), h.limits)
	if err != nil {
		log.Warn("cars query validation failed: %v", err)
		h.writeError(w, r, err)
		return
	}

	req, page := q.Request()
	res, err := h.search.Search(r.Context(), req, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	log.Info("cars: mode=%s keywords=%q count=%d page=%d/%d", res.Mode, res.Keywords.String(), res.Count, res.Page, res.TotalPages)
	if res.Malformed > 0 {
		log.Warn("cars: %d listings with malformed pickup data", res.Malformed)
	}

	h.writeJSON(w, http.StatusOK, newCarsResponse(res))
}

// GetCar defines a GET handler returning the first listing of one car
func (h *httpServer) GetCar(w http.ResponseWriter, r *http.Request) {
	id, err := validateCarID(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.search.Listing(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newListingResponse(*item))
}

// GetFilters defines a GET handler listing the available filter values
func (h *httpServer) GetFilters(w http.ResponseWriter, r *http.Request) {
	f, err := h.catalog.Filters(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

// GetLocations defines a GET handler listing pickup cities
func (h *httpServer) GetLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.catalog.Locations(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, locs)
}

// Health reports liveness, and database reachability when a pinger is set.
func (h *httpServer) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.Error("health: database ping failed: %v", err)
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "unreachable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *httpServer) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Car Rental API",
		"status":  "running",
		"version": Version,
	})
}

func (h *httpServer) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Detail: "no route for " + r.URL.Path})
}

func (h *httpServer) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method_not_allowed", Detail: r.Method + " is not supported"})
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// writeError maps service errors to status codes. Repository details are
// logged, not returned.
func (h *httpServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.log.With("request_id", requestID(r))
	switch {
	case errors.Is(err, search.ErrInvalidParameter):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_parameter", Detail: err.Error()})
	case errors.Is(err, search.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Detail: "Car not found"})
	case errors.Is(err, search.ErrRepository):
		log.Error("%s %s: %v", r.Method, r.URL.Path, err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "repository_failure", Detail: "database error, try again later"})
	default:
		log.Error("%s %s: %v", r.Method, r.URL.Path, err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Detail: "internal server error"})
	}
}

func (h *httpServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response: %v", err)
	}
}
