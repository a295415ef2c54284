package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riimtools/internal/modules/runs"
	testingpkg "github.com/aristath/riimtools/internal/testing"
)

func setupRouter(t *testing.T) (chi.Router, *testingpkg.MockExecutor) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db, cleanup := testingpkg.NewTestDB(t, "riim")
	t.Cleanup(cleanup)

	exec := testingpkg.NewMockExecutor()
	repo := runs.NewRepository(db.Conn(), logger)
	service := runs.NewService(repo, exec, nil, "mock", runs.Defaults{Shots: 200, Seed: 1, Workers: 1, ErrorParam: 0.1, ResampleCount: 4}, logger)

	router := chi.NewRouter()
	router.Route("/api", NewHandler(service, logger).RegisterRoutes)
	return router, exec
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	}
	return w, response
}

func TestHandleRIIM_EmptyBodyRunsDemo(t *testing.T) {
	router, exec := setupRouter(t)

	w, response := do(t, router, "POST", "/api/mitigation/riim", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "riim", data["method"])
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, "alternating_cx", data["circuit_name"])
	assert.InDelta(t, 1.0, data["estimate"].(float64), 1e-9)
	assert.Len(t, data["points"], 3)
	assert.Contains(t, response, "metadata")
	assert.Len(t, exec.Requests(), 3)
}

func TestHandleFIIMAndSampled(t *testing.T) {
	router, _ := setupRouter(t)

	w, response := do(t, router, "POST", "/api/mitigation/fiim", map[string]interface{}{
		"scale_factors": []float64{1, 2, 3, 4},
		"degree":        1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "fiim", data["method"])
	assert.Len(t, data["points"], 4)

	w, response = do(t, router, "POST", "/api/mitigation/riim-sampled", map[string]interface{}{"resample_count": 6})
	require.Equal(t, http.StatusOK, w.Code)
	data = response["data"].(map[string]interface{})
	assert.Equal(t, "riim_sampled", data["method"])
	assert.Len(t, data["samples"], 6)
}

func TestHandleMitigation_Errors(t *testing.T) {
	router, exec := setupRouter(t)

	req := httptest.NewRequest("POST", "/api/mitigation/riim", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, "POST", "/api/mitigation/riim", map[string]interface{}{"scale_factors": []float64{0.5, 2}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "scale factor below 1")

	w, _ = do(t, router, "POST", "/api/mitigation/riim", map[string]interface{}{"scale_factors": []float64{2, 2}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "a single distinct factor cannot be extrapolated")

	exec.SetError(errors.New("backend offline"))
	w, response := do(t, router, "POST", "/api/mitigation/riim", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, response["error"], "backend offline")
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "failed", data["status"])
}

func TestHandleRuns(t *testing.T) {
	router, _ := setupRouter(t)

	w, response := do(t, router, "GET", "/api/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, response["data"])

	_, created := do(t, router, "POST", "/api/mitigation/riim", nil)
	id := created["data"].(map[string]interface{})["id"].(string)
	do(t, router, "POST", "/api/mitigation/riim", nil)

	w, response = do(t, router, "GET", "/api/runs?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"], 1)

	w, response = do(t, router, "GET", "/api/runs/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, response["data"].(map[string]interface{})["id"])

	w, _ = do(t, router, "GET", "/api/runs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, router, "GET", "/api/runs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, logger)

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(chi.NewRouter())
	})
}
