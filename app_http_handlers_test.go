package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compareset/compare"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api")
	{
		api.GET("/jobs", getAllJobsHandler)
		api.GET("/jobs/:job_id", getJobStatusHandler)
		api.POST("/jobs/:job_id/cancel", cancelJobHandler)
		api.GET("/presets", getPresetsHandler)
	}
	return router
}

func TestGetPresetsHandler(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/presets", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var presets []compare.Preset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presets))
	require.Len(t, presets, 3)
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"strict", "balanced", "loose"}, names)
}

func TestGetJobStatusHandlerNotFound(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetJobStatusHandler(t *testing.T) {
	router := newTestRouter()

	job := &Job{
		ID:        "status-test",
		Status:    "in_progress",
		Mode:      "raster",
		Preset:    "balanced",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	jobStore.addJob(job)
	jobStore.updateProgress(job.ID, 2, 5)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/status-test", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "in_progress", resp["status"])
	assert.Equal(t, float64(2), resp["pages_done"])
	assert.Equal(t, float64(5), resp["total_pages"])
	assert.NotContains(t, resp, "result")
}

func TestCancelJobHandlerPending(t *testing.T) {
	router := newTestRouter()

	job := &Job{
		ID:        "cancel-test",
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	jobStore.addJob(job)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/cancel-test/cancel", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	// A pending job with no canceller flips straight to cancelled.
	got, _ := jobStore.getJob("cancel-test")
	assert.Equal(t, "cancelled", got.Status)
}

func TestCancelJobHandlerFinished(t *testing.T) {
	router := newTestRouter()

	job := &Job{
		ID:        "done-test",
		Status:    "completed",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	jobStore.addJob(job)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/done-test/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
