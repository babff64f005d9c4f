package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shlwsh/aicourse-scheduler/internal/dto"
	"github.com/shlwsh/aicourse-scheduler/internal/models"
	"github.com/shlwsh/aicourse-scheduler/internal/service"
	appErrors "github.com/shlwsh/aicourse-scheduler/pkg/errors"
	"github.com/shlwsh/aicourse-scheduler/pkg/response"
)

type historyReader interface {
	History(ctx context.Context, id string) (*models.ScheduleHistory, error)
	ListHistory(ctx context.Context, query dto.HistoryQuery) ([]models.ScheduleHistoryMeta, error)
	DeleteHistory(ctx context.Context, id string) error
}

// HistoryHandler exposes stored schedule endpoints.
type HistoryHandler struct {
	service historyReader
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(svc *service.SolveService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

// List returns recent schedule history metadata.
func (h *HistoryHandler) List(c *gin.Context) {
	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid history query"))
		return
	}
	metas, err := h.service.ListHistory(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metas, map[string]interface{}{"count": len(metas)})
}

// Get returns a single stored schedule by id.
func (h *HistoryHandler) Get(c *gin.Context) {
	history, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history)
}

// Delete removes a stored schedule.
func (h *HistoryHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteHistory(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
