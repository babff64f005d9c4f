package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shlwsh/aicourse-scheduler/internal/dto"
	"github.com/shlwsh/aicourse-scheduler/internal/service"
	appErrors "github.com/shlwsh/aicourse-scheduler/pkg/errors"
	"github.com/shlwsh/aicourse-scheduler/pkg/response"
)

type solveRunner interface {
	Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error)
	Enqueue(ctx context.Context, req dto.SolveRequest) (*dto.JobResponse, error)
	Job(id string) (*dto.JobResponse, error)
	SuggestSwaps(ctx context.Context, req dto.SwapSuggestRequest) (*dto.SwapSuggestResponse, error)
}

// SolveHandler exposes the solve and swap-suggestion endpoints.
type SolveHandler struct {
	service solveRunner
}

// NewSolveHandler constructs the handler.
func NewSolveHandler(svc *service.SolveService) *SolveHandler {
	return &SolveHandler{service: svc}
}

// Solve runs a synchronous solve of the stored problem.
func (h *SolveHandler) Solve(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	result, err := h.service.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// SolveAsync queues a solve and returns a job descriptor.
func (h *SolveHandler) SolveAsync(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	job, err := h.service.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Job reports the state of a queued solve.
func (h *SolveHandler) Job(c *gin.Context) {
	job, err := h.service.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// SuggestSwaps proposes repair chains for a target change.
func (h *SolveHandler) SuggestSwaps(c *gin.Context) {
	var req dto.SwapSuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid swap payload"))
		return
	}
	result, err := h.service.SuggestSwaps(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
