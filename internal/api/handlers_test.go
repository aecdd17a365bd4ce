package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfontaine/dispensary-scraper/internal/jobs"
	"github.com/mfontaine/dispensary-scraper/internal/models"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

var defaultCategories = []models.Category{
	{Path: "/category/flower/whole-flower", Label: "Whole Flower", Prefix: "trulieve_FL_whole_flower"},
}

func newRouter(runFn jobs.RunFunc) (*chi.Mux, *jobs.Manager) {
	manager := jobs.NewManager(context.Background(), runFn, testLogger())
	handlers := NewHandlers(manager, defaultCategories, testLogger())

	r := chi.NewRouter()
	r.Get("/health", handlers.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", handlers.CreateRun)
		r.Get("/runs", handlers.ListRuns)
		r.Get("/runs/{runID}", handlers.GetRun)
	})
	return r, manager
}

func successRunFn(captured *[]models.Category) jobs.RunFunc {
	return func(ctx context.Context, categories []models.Category) *models.RunResult {
		if captured != nil {
			*captured = categories
		}
		result := &models.RunResult{Success: true, CategoriesScraped: len(categories)}
		result.Finalize()
		return result
	}
}

func waitForStatus(t *testing.T, m *jobs.Manager, id string, want jobs.Status) *jobs.Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, ok := m.GetRun(id)
		require.True(t, ok)
		if run.Status == want {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s never reached status %s", id, want)
	return nil
}

func TestCreateRun_DefaultCategories(t *testing.T) {
	var captured []models.Category
	router, manager := newRouter(successRunFn(&captured))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, string(jobs.StatusPending), resp.Status)

	waitForStatus(t, manager, resp.RunID, jobs.StatusCompleted)
	assert.Equal(t, defaultCategories, captured)
}

func TestCreateRun_ExplicitCategories(t *testing.T) {
	var captured []models.Category
	router, manager := newRouter(successRunFn(&captured))

	body, err := json.Marshal(CreateRunRequest{Categories: []models.Category{
		{Path: "/category/flower/pre-rolls", Label: "Pre-Rolls", Prefix: "trulieve_FL_pre_rolls"},
	}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	waitForStatus(t, manager, resp.RunID, jobs.StatusCompleted)

	require.Len(t, captured, 1)
	assert.Equal(t, "Pre-Rolls", captured[0].Label)
}

func TestCreateRun_InvalidBody(t *testing.T) {
	router, _ := newRouter(successRunFn(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRun_InvalidCategory(t *testing.T) {
	router, _ := newRouter(successRunFn(nil))

	body, err := json.Marshal(CreateRunRequest{Categories: []models.Category{
		{Path: "", Label: "Whole Flower", Prefix: "trulieve_FL_whole_flower"},
	}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRun_ConflictWhileRunning(t *testing.T) {
	release := make(chan struct{})
	runFn := func(ctx context.Context, categories []models.Category) *models.RunResult {
		<-release
		return &models.RunResult{Success: true}
	}
	router, manager := newRouter(runFn)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))
	require.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusConflict, second.Code)

	var resp CreateRunResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))
	close(release)
	waitForStatus(t, manager, resp.RunID, jobs.StatusCompleted)
}

func TestGetRun(t *testing.T) {
	router, manager := newRouter(successRunFn(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	waitForStatus(t, manager, created.RunID, jobs.StatusCompleted)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+created.RunID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var run jobs.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, created.RunID, run.ID)
	assert.Equal(t, jobs.StatusCompleted, run.Status)
	require.NotNil(t, run.Result)
	assert.True(t, run.Result.Success)
}

func TestGetRun_NotFound(t *testing.T) {
	router, _ := newRouter(successRunFn(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/unknown-id", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns(t *testing.T) {
	router, manager := newRouter(successRunFn(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	waitForStatus(t, manager, created.RunID, jobs.StatusCompleted)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []jobs.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)
}

func TestHealth(t *testing.T) {
	router, _ := newRouter(successRunFn(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
