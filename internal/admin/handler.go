package admin

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"fleet-cloud/internal/audit"
	"fleet-cloud/internal/auth"
	robotsapp "fleet-cloud/internal/robots/application"
	telemetry "fleet-cloud/internal/telemetry/domain"
)

// Handler serves the admin read surface: paginated robot and telemetry
// listings, log tailing, and history exports. Admin JWT enforcement
// happens upstream.
type Handler struct {
	robots  *robotsapp.Service
	history telemetry.HistoryRepository
	auditor audit.Logger
	logPath string
	logger  *log.Logger
}

// NewHandler constructs the admin handler.
func NewHandler(robots *robotsapp.Service, history telemetry.HistoryRepository, auditor audit.Logger, logPath string, logger *log.Logger) (*Handler, error) {
	if robots == nil {
		return nil, errors.New("admin handler: nil robots service")
	}
	if history == nil {
		return nil, errors.New("admin handler: nil history repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{robots: robots, history: history, auditor: auditor, logPath: logPath, logger: logger}, nil
}

// ServeHTTP routes admin requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/admin/robots":
		h.listRobots(w, r)
	case "/api/v1/admin/telemetry":
		h.listTelemetry(w, r)
	case "/api/v1/admin/logs":
		h.logs(w, r)
	case "/api/v1/admin/exports/telemetry.xlsx":
		h.export(w, r, "xlsx")
	case "/api/v1/admin/exports/telemetry.pdf":
		h.export(w, r, "pdf")
	default:
		http.NotFound(w, r)
	}
}

type pageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func (h *Handler) listRobots(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r, 50)
	views, total, err := h.robots.List(r.Context(), page, limit)
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": views, "meta": meta(page, limit, total)})
}

func (h *Handler) listTelemetry(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r, 50)
	records, total, err := h.history.List(r.Context(), page, limit)
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": records, "meta": meta(page, limit, total)})
}

func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, TailLogFile(h.logPath, limit))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, format string) {
	page, limit := pageParams(r, 200)
	records, _, err := h.history.List(r.Context(), page, limit)
	if err != nil {
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	var payload []byte
	var contentType, filename string
	switch format {
	case "xlsx":
		payload, err = BuildTelemetryXLSX(records)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "telemetry.xlsx"
	case "pdf":
		payload, err = BuildTelemetryPDF(records)
		contentType = "application/pdf"
		filename = "telemetry.pdf"
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Printf("admin export error format=%s err=%v", format, err)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	if h.auditor != nil {
		_ = h.auditor.Log(r.Context(), audit.Entry{
			Actor:        auth.AdminSubjectFromContext(r.Context()),
			Action:       "telemetry.export",
			ResourceType: "telemetry_history",
			ResourceID:   format,
		})
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(payload)
}

func meta(page, limit, total int) pageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return pageMeta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

func pageParams(r *http.Request, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
