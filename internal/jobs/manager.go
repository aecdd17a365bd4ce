package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfontaine/dispensary-scraper/internal/models"
)

var ErrRunInProgress = errors.New("a scraping run is already in progress")

// RunFunc executes one full scraping run for the given categories.
type RunFunc func(ctx context.Context, categories []models.Category) *models.RunResult

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run tracks one scraping run through the API surface. Runs live only as
// long as the process; history belongs to the warehouse.
type Run struct {
	ID          string            `json:"id"`
	Status      Status            `json:"status"`
	Categories  []models.Category `json:"categories"`
	Result      *models.RunResult `json:"result,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Manager owns the run registry. Only one run executes at a time since
// there is exactly one browser session per process.
type Manager struct {
	baseCtx context.Context
	runFn   RunFunc
	logger  *slog.Logger

	mu     sync.RWMutex
	runs   map[string]*Run
	active bool
}

func NewManager(ctx context.Context, runFn RunFunc, logger *slog.Logger) *Manager {
	return &Manager{
		baseCtx: ctx,
		runFn:   runFn,
		logger:  logger.With("component", "job_manager"),
		runs:    make(map[string]*Run),
	}
}

// StartRun registers a run and executes it in the background. Returns
// ErrRunInProgress while another run is active.
func (m *Manager) StartRun(categories []models.Category) (*Run, error) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return nil, ErrRunInProgress
	}

	run := &Run{
		ID:         uuid.New().String(),
		Status:     StatusPending,
		Categories: categories,
		CreatedAt:  time.Now(),
	}
	m.runs[run.ID] = run
	m.active = true
	snapshot := *run
	m.mu.Unlock()

	m.logger.Info("run accepted", "id", run.ID, "categories", len(categories))

	go m.execute(run.ID, categories)

	return &snapshot, nil
}

func (m *Manager) execute(id string, categories []models.Category) {
	now := time.Now()
	m.update(id, func(run *Run) {
		run.Status = StatusRunning
		run.StartedAt = &now
	})

	result := m.runFn(m.baseCtx, categories)

	done := time.Now()
	m.mu.Lock()
	m.active = false
	if run, ok := m.runs[id]; ok {
		run.Result = result
		run.CompletedAt = &done
		if result.Success {
			run.Status = StatusCompleted
		} else {
			run.Status = StatusFailed
			run.Error = result.ErrorMessage
		}
	}
	m.mu.Unlock()

	m.logger.Info("run finished", "id", id,
		"success", result.Success, "products", result.TotalProducts)
}

func (m *Manager) update(id string, fn func(*Run)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[id]; ok {
		fn(run)
	}
}

// GetRun returns a snapshot of one run.
func (m *Manager) GetRun(id string) (*Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, false
	}
	snapshot := *run
	return &snapshot, true
}

// ListRuns returns snapshots of every run this process has seen.
func (m *Manager) ListRuns() []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		snapshot := *run
		out = append(out, &snapshot)
	}
	return out
}
