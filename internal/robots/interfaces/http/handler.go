package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"fleet-cloud/internal/audit"
	"fleet-cloud/internal/auth"
	"fleet-cloud/internal/robots/application"
	robots "fleet-cloud/internal/robots/domain"
)

// Handler serves the robot registry endpoints.
type Handler struct {
	service *application.Service
	auditor audit.Logger
	logger  *log.Logger
}

// NewHandler constructs the handler.
func NewHandler(service *application.Service, auditor audit.Logger, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("robots handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, auditor: auditor, logger: logger}, nil
}

// ServeHTTP routes registry requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/robots" && r.Method == http.MethodPost:
		h.register(w, r)
	case r.URL.Path == "/api/v1/robots" && r.Method == http.MethodGet:
		h.list(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/robots/") && r.Method == http.MethodGet:
		h.get(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/robots/") && r.Method == http.MethodDelete:
		h.delete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type registerRequest struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	robot, apiKey, err := h.service.Register(r.Context(), req.Name, req.Model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.auditor != nil {
		_ = h.auditor.Log(r.Context(), audit.Entry{
			Actor:        "public",
			Action:       "robots.create",
			ResourceType: "robot",
			ResourceID:   robot.ID,
		})
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": robot.ID, "apiKey": apiKey})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	views, _, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/robots/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	view, err := h.service.Get(r.Context(), id)
	if errors.Is(err, robots.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "get error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/robots/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	err := h.service.Delete(r.Context(), id)
	if errors.Is(err, robots.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "delete error", http.StatusInternalServerError)
		return
	}
	if h.auditor != nil {
		_ = h.auditor.Log(r.Context(), audit.Entry{
			Actor:        auth.AdminSubjectFromContext(r.Context()),
			Action:       "robots.delete",
			ResourceType: "robot",
			ResourceID:   id,
		})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// MeHandler returns the authenticated robot's own identity.
type MeHandler struct{}

// ServeHTTP echoes the robot injected by the auth guard.
func (MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	robot, ok := auth.RobotFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        robot.ID,
		"name":      robot.Name,
		"model":     robot.Model,
		"createdAt": robot.CreatedAt,
	})
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return page, limit
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
