package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mfontaine/dispensary-scraper/internal/jobs"
	"github.com/mfontaine/dispensary-scraper/internal/models"
)

type Handlers struct {
	jobs              *jobs.Manager
	defaultCategories []models.Category
	logger            *slog.Logger
}

func NewHandlers(jobs *jobs.Manager, defaultCategories []models.Category, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:              jobs,
		defaultCategories: defaultCategories,
		logger:            logger,
	}
}

// CreateRunRequest represents a new scraping run request. Categories are
// optional; the configured defaults apply when omitted.
type CreateRunRequest struct {
	Categories []models.Category `json:"categories,omitempty"`
}

// CreateRunResponse represents the run creation response
type CreateRunResponse struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateRun handles new scraping run creation
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	categories := req.Categories
	if len(categories) == 0 {
		categories = h.defaultCategories
	}
	for _, c := range categories {
		if err := c.Validate(); err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	run, err := h.jobs.StartRun(categories)
	if err != nil {
		if errors.Is(err, jobs.ErrRunInProgress) {
			h.respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to start run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to start run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateRunResponse{
		RunID:   run.ID,
		Status:  string(run.Status),
		Message: "Run accepted",
	})
}

// GetRun handles run status retrieval
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, ok := h.jobs.GetRun(runID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

// ListRuns handles listing all runs
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.ListRuns())
}

// Health handles liveness checks
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
