package dto

import (
	"time"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
	"github.com/shlwsh/aicourse-scheduler/internal/solver"
)

// SolveOptions are per-request overrides of the configured solver options.
// Absent fields keep the server defaults.
type SolveOptions struct {
	DaysPerWeek             *int     `json:"days_per_week,omitempty" validate:"omitempty,gt=0"`
	PeriodsPerDay           *int     `json:"periods_per_day,omitempty" validate:"omitempty,gt=0"`
	WeightTeacherSpread     *float64 `json:"weight_teacher_spread,omitempty" validate:"omitempty,gte=0"`
	WeightClassContinuity   *float64 `json:"weight_class_continuity,omitempty" validate:"omitempty,gte=0"`
	WeightSubjectSpacing    *float64 `json:"weight_subject_spacing,omitempty" validate:"omitempty,gte=0"`
	WeightPreferredPeriod   *float64 `json:"weight_preferred_period,omitempty" validate:"omitempty,gte=0"`
	NodeBudgetPerRestart    *int     `json:"node_budget_per_restart,omitempty" validate:"omitempty,gt=0"`
	MaxRestarts             *int     `json:"max_restarts,omitempty" validate:"omitempty,gte=0"`
	WallClockBudgetMS       *int     `json:"wall_clock_budget_ms,omitempty" validate:"omitempty,gt=0"`
	AllowSameDaySameSubject *bool    `json:"allow_same_day_same_subject,omitempty"`
	ParallelRestarts        *int     `json:"parallel_restarts,omitempty" validate:"omitempty,gte=1"`
	RNGSeed                 *int64   `json:"rng_seed,omitempty"`
}

// SolveRequest asks for a full solve of the stored problem.
type SolveRequest struct {
	Options *SolveOptions `json:"options,omitempty"`
	// Persist controls whether a successful schedule is written to history.
	Persist bool `json:"persist"`
}

// SolveResponse carries the solve outcome.
type SolveResponse struct {
	Status         solver.Status           `json:"status"`
	Cost           float64                 `json:"cost"`
	Schedule       *models.Schedule        `json:"schedule,omitempty"`
	UnmetCurricula []int64                 `json:"unmet_curricula,omitempty"`
	Reason         solver.InfeasibleReason `json:"reason,omitempty"`
	Stats          solver.Stats            `json:"stats"`
	HistoryID      string                  `json:"history_id,omitempty"`
}

// JobState is the lifecycle of an async solve job.
type JobState string

const (
	JobQueued  JobState = "QUEUED"
	JobRunning JobState = "RUNNING"
	JobDone    JobState = "DONE"
	JobFailed  JobState = "FAILED"
)

// JobResponse reports an async solve job.
type JobResponse struct {
	JobID      string         `json:"job_id"`
	State      JobState       `json:"state"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	Result     *SolveResponse `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// SwapSuggestRequest asks for repair chains applying a target change to a
// schedule, referenced by history id or passed inline.
type SwapSuggestRequest struct {
	HistoryID string              `json:"history_id,omitempty"`
	Schedule  *models.Schedule    `json:"schedule,omitempty"`
	Change    solver.TargetChange `json:"change"`
	Options   *SolveOptions       `json:"options,omitempty"`
}

// SwapSuggestResponse lists repair chains, best ranked first.
type SwapSuggestResponse struct {
	Chains []solver.SwapChain `json:"chains"`
}

// HistoryQuery filters history listings.
type HistoryQuery struct {
	Limit int `form:"limit" validate:"omitempty,gt=0,lte=100"`
}
