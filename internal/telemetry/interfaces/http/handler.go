package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"fleet-cloud/internal/auth"
	"fleet-cloud/internal/observability/metrics"
	"fleet-cloud/internal/telemetry/application"
	telemetry "fleet-cloud/internal/telemetry/domain"
)

// Handler serves the robot-facing telemetry endpoints. All routes
// require the robot auth guard upstream.
type Handler struct {
	service *application.Service
	logger  *log.Logger
}

// NewHandler constructs the handler.
func NewHandler(service *application.Service, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("telemetry handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger}, nil
}

// ServeHTTP routes telemetry requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	robot, ok := auth.RobotFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/api/v1/robots/telemetry" && r.Method == http.MethodPost:
		h.ingest(w, r, robot.ID)
	case r.URL.Path == "/api/v1/robots/me/telemetry" && r.Method == http.MethodGet:
		h.latest(w, r, robot.ID)
	case r.URL.Path == "/api/v1/robots/me/telemetry/history" && r.Method == http.MethodGet:
		h.history(w, r, robot.ID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, robotID string) {
	start := time.Now()

	var report telemetry.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		metrics.IngestObserve(metrics.ResultError, time.Since(start).Seconds())
		metrics.IngestErrorInc("decode")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	result, err := h.service.Ingest(r.Context(), robotID, report)
	switch {
	case errors.Is(err, telemetry.ErrInvalidReport):
		metrics.IngestObserve(metrics.ResultError, time.Since(start).Seconds())
		metrics.IngestErrorInc("validation")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, application.ErrUnavailable):
		metrics.IngestObserve(metrics.ResultError, time.Since(start).Seconds())
		metrics.IngestErrorInc("unavailable")
		http.Error(w, "temporarily unavailable, retry", http.StatusServiceUnavailable)
		return
	case err != nil:
		metrics.IngestObserve(metrics.ResultError, time.Since(start).Seconds())
		http.Error(w, "ingest error", http.StatusInternalServerError)
		return
	}

	metrics.IngestObserve(metrics.ResultSuccess, time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request, robotID string) {
	result, err := h.service.Latest(r.Context(), robotID)
	if err != nil {
		http.Error(w, "temporarily unavailable, retry", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, robotID string) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	records, total, err := h.service.History(r.Context(), robotID, page, limit)
	if err != nil {
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows": records,
		"meta": map[string]int{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
