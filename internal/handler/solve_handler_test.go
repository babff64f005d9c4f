package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/shlwsh/aicourse-scheduler/internal/dto"
	"github.com/shlwsh/aicourse-scheduler/internal/solver"
	appErrors "github.com/shlwsh/aicourse-scheduler/pkg/errors"
)

type solveRunnerMock struct {
	captured dto.SolveRequest
	solveErr error
	jobErr   error
}

func (m *solveRunnerMock) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	m.captured = req
	if m.solveErr != nil {
		return nil, m.solveErr
	}
	return &dto.SolveResponse{Status: solver.StatusSuccess, Cost: 2.5}, nil
}

func (m *solveRunnerMock) Enqueue(ctx context.Context, req dto.SolveRequest) (*dto.JobResponse, error) {
	return &dto.JobResponse{JobID: "job-1", State: dto.JobQueued}, nil
}

func (m *solveRunnerMock) Job(id string) (*dto.JobResponse, error) {
	if m.jobErr != nil {
		return nil, m.jobErr
	}
	return &dto.JobResponse{JobID: id, State: dto.JobDone}, nil
}

func (m *solveRunnerMock) SuggestSwaps(ctx context.Context, req dto.SwapSuggestRequest) (*dto.SwapSuggestResponse, error) {
	return &dto.SwapSuggestResponse{Chains: []solver.SwapChain{{CostDelta: -1}}}, nil
}

func postContext(t *testing.T, path string, payload []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func TestSolveHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &solveRunnerMock{}
	handler := &SolveHandler{service: mockSvc}

	c, w := postContext(t, "/api/v1/solve", []byte(`{"persist":true}`))
	handler.Solve(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, mockSvc.captured.Persist)

	var envelope struct {
		Data dto.SolveResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, solver.StatusSuccess, envelope.Data.Status)
}

func TestSolveHandlerMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &SolveHandler{service: &solveRunnerMock{}}

	c, w := postContext(t, "/api/v1/solve", []byte(`{"persist":`))
	handler.Solve(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSolveHandlerServiceErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &solveRunnerMock{
		solveErr: appErrors.Clone(appErrors.ErrDataIntegrity, "broken references"),
	}
	handler := &SolveHandler{service: mockSvc}

	c, w := postContext(t, "/api/v1/solve", []byte(`{}`))
	handler.Solve(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSolveHandlerAsyncAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &SolveHandler{service: &solveRunnerMock{}}

	c, w := postContext(t, "/api/v1/solve/async", []byte(`{}`))
	handler.SolveAsync(c)

	require.Equal(t, http.StatusAccepted, w.Code)

	var envelope struct {
		Data dto.JobResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "job-1", envelope.Data.JobID)
	require.Equal(t, dto.JobQueued, envelope.Data.State)
}

func TestSolveHandlerJobNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &SolveHandler{service: &solveRunnerMock{
		jobErr: appErrors.Clone(appErrors.ErrNotFound, "solve job not found or expired"),
	}}

	router := gin.New()
	router.GET("/api/v1/solve/jobs/:id", handler.Job)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/solve/jobs/nope", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSolveHandlerSuggestSwaps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &SolveHandler{service: &solveRunnerMock{}}

	payload := []byte(`{"history_id":"hist-1","change":{"remove":{"curriculum_id":1,"session_index":0,"slot":2,"venue_id":1}}}`)
	c, w := postContext(t, "/api/v1/swaps/suggest", payload)
	handler.SuggestSwaps(c)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.SwapSuggestResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Chains, 1)
}
