package wifi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/EmpoweredVote/wifi-points/internal/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Handlers serves the REST surface of the query engine.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// helper: write JSON with a specific HTTP status code
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
		return
	}

	utils.LoggerFromContext(r.Context()).Error("request failed", zap.Error(err))

	if IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
		writeJSONStatus(w, http.StatusServiceUnavailable, errorResponse{
			Error:     "store temporarily unavailable",
			Retryable: true,
		})
		return
	}
	writeJSONStatus(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

func floatParam(r *http.Request, name string, def *float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		if def == nil {
			return 0, &ValidationError{Field: name, Reason: "is required"}
		}
		return *def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Field: name, Reason: "must be a number"}
	}
	return f, nil
}

func pageParams(r *http.Request) (page, pageSize int, err error) {
	if page, err = intParam(r, "page", DefaultPage); err != nil {
		return 0, 0, err
	}
	// Accept both page_size and pageSize.
	name := "page_size"
	if r.URL.Query().Get(name) == "" && r.URL.Query().Get("pageSize") != "" {
		name = "pageSize"
	}
	if pageSize, err = intParam(r, name, DefaultPageSize); err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

// ListPoints handles GET /points?page&page_size&neighborhood&district.
func (h *Handlers) ListPoints(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	out, err := h.svc.List(r.Context(), ListParams{
		Page:         page,
		PageSize:     pageSize,
		Neighborhood: q.Get("neighborhood"),
		District:     q.Get("district"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, out)
}

// GetPoint handles GET /points/{id}.
func (h *Handlers) GetPoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ap, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ap == nil {
		writeJSONStatus(w, http.StatusNotFound, errorResponse{Error: "access point not found"})
		return
	}
	writeJSON(w, ap)
}

// PointsNear handles GET /points/near?lat&lon&radius&page&page_size.
func (h *Handlers) PointsNear(w http.ResponseWriter, r *http.Request) {
	lat, err := floatParam(r, "lat", nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lon, err := floatParam(r, "lon", nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	def := DefaultRadiusMeters
	radius, err := floatParam(r, "radius", &def)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.svc.Near(r.Context(), NearParams{
		Latitude:     lat,
		Longitude:    lon,
		RadiusMeters: radius,
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, out)
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		utils.LoggerFromContext(r.Context()).Warn("health check failed", zap.Error(err))
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
