package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"

	"github.com/shlwsh/aicourse-scheduler/internal/dto"
	"github.com/shlwsh/aicourse-scheduler/internal/models"
	appErrors "github.com/shlwsh/aicourse-scheduler/pkg/errors"
)

type historyReaderMock struct {
	history *models.ScheduleHistory
	metas   []models.ScheduleHistoryMeta
	err     error

	deletedID string
}

func (m *historyReaderMock) History(ctx context.Context, id string) (*models.ScheduleHistory, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

func (m *historyReaderMock) ListHistory(ctx context.Context, query dto.HistoryQuery) ([]models.ScheduleHistoryMeta, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.metas, nil
}

func (m *historyReaderMock) DeleteHistory(ctx context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func historyRouter(handler *HistoryHandler) *gin.Engine {
	router := gin.New()
	router.GET("/api/v1/history", handler.List)
	router.GET("/api/v1/history/:id", handler.Get)
	router.DELETE("/api/v1/history/:id", handler.Delete)
	return router
}

func TestHistoryHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &historyReaderMock{history: &models.ScheduleHistory{
		ID:           "hist-1",
		CreatedAt:    time.Now().UTC(),
		Cost:         1.5,
		ScheduleJSON: types.JSONText(`{"assignments":[]}`),
	}}
	router := historyRouter(&HistoryHandler{service: mockSvc})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/history/hist-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.ScheduleHistory `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "hist-1", envelope.Data.ID)
}

func TestHistoryHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &historyReaderMock{err: appErrors.Clone(appErrors.ErrNotFound, "schedule history not found")}
	router := historyRouter(&HistoryHandler{service: mockSvc})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/history/missing", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryHandlerListWithCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &historyReaderMock{metas: []models.ScheduleHistoryMeta{
		{ID: "hist-1", Cost: 1},
		{ID: "hist-2", Cost: 2},
	}}
	router := historyRouter(&HistoryHandler{service: mockSvc})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/history?limit=5", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.ScheduleHistoryMeta `json:"data"`
		Meta map[string]interface{}       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	require.EqualValues(t, 2, envelope.Meta["count"])
}

func TestHistoryHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &historyReaderMock{}
	router := historyRouter(&HistoryHandler{service: mockSvc})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/v1/history/hist-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "hist-1", mockSvc.deletedID)
}
