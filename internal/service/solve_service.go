package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/shlwsh/aicourse-scheduler/internal/dto"
	"github.com/shlwsh/aicourse-scheduler/internal/models"
	"github.com/shlwsh/aicourse-scheduler/internal/solver"
	appErrors "github.com/shlwsh/aicourse-scheduler/pkg/errors"
	"github.com/shlwsh/aicourse-scheduler/pkg/jobs"
	"github.com/shlwsh/aicourse-scheduler/pkg/metrics"
)

type problemRepository interface {
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListClasses(ctx context.Context) ([]models.Class, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListVenues(ctx context.Context) ([]models.Venue, error)
	ListCurricula(ctx context.Context) ([]models.Curriculum, error)
	ListFixedCourses(ctx context.Context) ([]models.FixedCourse, error)
	ListExclusions(ctx context.Context) ([]models.Exclusion, error)
}

type historyRepository interface {
	Insert(ctx context.Context, history *models.ScheduleHistory) (string, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleHistory, error)
	List(ctx context.Context, limit int) ([]models.ScheduleHistoryMeta, error)
	Delete(ctx context.Context, id string) error
}

// SolveService orchestrates problem loading, solving, swap suggestion, and
// schedule persistence.
type SolveService struct {
	problems  problemRepository
	history   historyRepository
	redis     *redis.Client
	redisTTL  time.Duration
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	collector *metrics.Collector

	defaults solver.Config

	jobMu    sync.RWMutex
	jobState map[string]*dto.JobResponse
	jobTTL   time.Duration
}

// SolveServiceConfig wires the tunables the service needs beyond its
// collaborators.
type SolveServiceConfig struct {
	Defaults     solver.Config
	RedisTTL     time.Duration
	JobResultTTL time.Duration
}

// NewSolveService wires solver dependencies. Redis and metrics are optional.
func NewSolveService(
	problems problemRepository,
	history historyRepository,
	redisClient *redis.Client,
	queue *jobs.Queue,
	validate *validator.Validate,
	logger *zap.Logger,
	collector *metrics.Collector,
	cfg SolveServiceConfig,
) *SolveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RedisTTL <= 0 {
		cfg.RedisTTL = 10 * time.Minute
	}
	if cfg.JobResultTTL <= 0 {
		cfg.JobResultTTL = time.Hour
	}
	return &SolveService{
		problems:  problems,
		history:   history,
		redis:     redisClient,
		redisTTL:  cfg.RedisTTL,
		queue:     queue,
		validator: validate,
		logger:    logger,
		collector: collector,
		defaults:  cfg.Defaults,
		jobState:  make(map[string]*dto.JobResponse),
		jobTTL:    cfg.JobResultTTL,
	}
}

// Solve runs a synchronous solve of the stored problem.
func (s *SolveService) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve payload")
	}
	cfg := s.applyOptions(req.Options)

	model, err := s.compile(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var result *solver.Result
	if cfg.ParallelRestarts > 1 {
		result, err = solver.SolveParallel(ctx, model, s.logger, cfg.ParallelRestarts)
	} else {
		result, err = solver.New(model, s.logger).Solve(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "solve failed")
	}

	if s.collector != nil {
		s.collector.ObserveSolve(string(result.Status), result.Cost,
			result.Stats.Nodes, result.Stats.Restarts,
			result.Stats.CacheHits, result.Stats.CacheMisses, result.Stats.Elapsed)
	}

	resp := &dto.SolveResponse{
		Status:         result.Status,
		Cost:           result.Cost,
		Schedule:       result.Schedule,
		UnmetCurricula: result.UnmetCurricula,
		Reason:         result.Reason,
		Stats:          result.Stats,
	}

	if req.Persist && result.Status == solver.StatusSuccess {
		id, err := s.persist(ctx, result)
		if err != nil {
			return nil, err
		}
		resp.HistoryID = id
	}
	return resp, nil
}

// Enqueue schedules an async solve and returns its job descriptor.
func (s *SolveService) Enqueue(ctx context.Context, req dto.SolveRequest) (*dto.JobResponse, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "async solve queue unavailable")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve payload")
	}

	job := &dto.JobResponse{
		JobID:      uuid.NewString(),
		State:      dto.JobQueued,
		EnqueuedAt: time.Now().UTC(),
	}
	s.jobMu.Lock()
	s.jobState[job.JobID] = job
	s.jobMu.Unlock()

	err := s.queue.Enqueue(jobs.Job{
		ID:   job.JobID,
		Type: "solve",
		Run: func(runCtx context.Context) error {
			s.setJobState(job.JobID, dto.JobRunning, nil, "")
			resp, solveErr := s.Solve(runCtx, req)
			if solveErr != nil {
				s.setJobState(job.JobID, dto.JobFailed, nil, solveErr.Error())
				return solveErr
			}
			s.setJobState(job.JobID, dto.JobDone, resp, "")
			return nil
		},
	})
	if err != nil {
		s.jobMu.Lock()
		delete(s.jobState, job.JobID)
		s.jobMu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue solve")
	}
	return job, nil
}

// Job returns the state of an async solve. Finished jobs expire after the
// configured TTL.
func (s *SolveService) Job(id string) (*dto.JobResponse, error) {
	s.jobMu.RLock()
	job, ok := s.jobState[id]
	s.jobMu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found or expired")
	}
	if job.State == dto.JobDone || job.State == dto.JobFailed {
		if time.Since(job.EnqueuedAt) > s.jobTTL {
			s.jobMu.Lock()
			delete(s.jobState, id)
			s.jobMu.Unlock()
			return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found or expired")
		}
	}
	copied := *job
	return &copied, nil
}

func (s *SolveService) setJobState(id string, state dto.JobState, result *dto.SolveResponse, errMsg string) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if job, ok := s.jobState[id]; ok {
		job.State = state
		job.Result = result
		job.Error = errMsg
	}
}

// SuggestSwaps proposes minimal repair chains for a target change against a
// stored or inline schedule.
func (s *SolveService) SuggestSwaps(ctx context.Context, req dto.SwapSuggestRequest) (*dto.SwapSuggestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid swap payload")
	}

	schedule := req.Schedule
	if schedule == nil {
		if req.HistoryID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "either schedule or history_id is required")
		}
		history, err := s.History(ctx, req.HistoryID)
		if err != nil {
			return nil, err
		}
		var stored models.Schedule
		if err := json.Unmarshal(history.ScheduleJSON, &stored); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode stored schedule")
		}
		schedule = &stored
	}

	cfg := s.applyOptions(req.Options)
	model, err := s.compile(ctx, cfg)
	if err != nil {
		return nil, err
	}

	chains, err := solver.NewSuggester(model, s.logger).Suggest(schedule, req.Change)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "swap suggestion failed")
	}
	return &dto.SwapSuggestResponse{Chains: chains}, nil
}

// History returns one stored schedule, consulting the Redis read-through
// cache first when configured.
func (s *SolveService) History(ctx context.Context, id string) (*models.ScheduleHistory, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "history id is required")
	}
	key := "schedule_history:" + id

	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var cached models.ScheduleHistory
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	history, err := s.history.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule history not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule history")
	}

	if s.redis != nil {
		if raw, err := json.Marshal(history); err == nil {
			_ = s.redis.Set(ctx, key, raw, s.redisTTL).Err()
		}
	}
	return history, nil
}

// ListHistory returns recent history metadata.
func (s *SolveService) ListHistory(ctx context.Context, query dto.HistoryQuery) ([]models.ScheduleHistoryMeta, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid history query")
	}
	metas, err := s.history.List(ctx, query.Limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule history")
	}
	return metas, nil
}

// DeleteHistory removes a stored schedule and invalidates its cache entry.
func (s *SolveService) DeleteHistory(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "history id is required")
	}
	if err := s.history.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule history not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule history")
	}
	if s.redis != nil {
		_ = s.redis.Del(ctx, "schedule_history:"+id).Err()
	}
	return nil
}

// compile loads the problem and compiles it under cfg, mapping the solver's
// load-time failures onto the service error taxonomy.
func (s *SolveService) compile(ctx context.Context, cfg solver.Config) (*solver.Model, error) {
	problem, err := s.loadProblem(ctx)
	if err != nil {
		return nil, err
	}
	model, err := solver.Compile(problem, cfg)
	if err != nil {
		var integrity *solver.DataIntegrityError
		if errors.As(err, &integrity) {
			return nil, appErrors.Wrap(err, appErrors.ErrDataIntegrity.Code, appErrors.ErrDataIntegrity.Status, integrity.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidConfig.Code, appErrors.ErrInvalidConfig.Status, err.Error())
	}
	s.logger.Debug("problem compiled",
		zap.Int("curricula", len(problem.Curricula)),
		zap.Int("fixed_courses", len(problem.FixedCourses)),
		zap.Int64s("curriculum_ids", lo.Map(problem.Curricula, func(c models.Curriculum, _ int) int64 { return c.ID })))
	return model, nil
}

func (s *SolveService) loadProblem(ctx context.Context) (*solver.Problem, error) {
	wrap := func(err error, what string) error {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s", what))
	}
	teachers, err := s.problems.ListTeachers(ctx)
	if err != nil {
		return nil, wrap(err, "teachers")
	}
	classes, err := s.problems.ListClasses(ctx)
	if err != nil {
		return nil, wrap(err, "classes")
	}
	subjects, err := s.problems.ListSubjects(ctx)
	if err != nil {
		return nil, wrap(err, "subjects")
	}
	venues, err := s.problems.ListVenues(ctx)
	if err != nil {
		return nil, wrap(err, "venues")
	}
	curricula, err := s.problems.ListCurricula(ctx)
	if err != nil {
		return nil, wrap(err, "curricula")
	}
	fixed, err := s.problems.ListFixedCourses(ctx)
	if err != nil {
		return nil, wrap(err, "fixed courses")
	}
	exclusions, err := s.problems.ListExclusions(ctx)
	if err != nil {
		return nil, wrap(err, "exclusions")
	}
	return &solver.Problem{
		Teachers:     teachers,
		Classes:      classes,
		Subjects:     subjects,
		Venues:       venues,
		Curricula:    curricula,
		FixedCourses: fixed,
		Exclusions:   exclusions,
	}, nil
}

func (s *SolveService) persist(ctx context.Context, result *solver.Result) (string, error) {
	raw, err := json.Marshal(result.Schedule)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	id, err := s.history.Insert(ctx, &models.ScheduleHistory{
		Cost:         result.Cost,
		ScheduleJSON: types.JSONText(raw),
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
	}
	return id, nil
}

// applyOptions overlays request overrides onto the configured defaults.
func (s *SolveService) applyOptions(opts *dto.SolveOptions) solver.Config {
	cfg := s.defaults
	if opts == nil {
		return cfg
	}
	if opts.DaysPerWeek != nil {
		cfg.DaysPerWeek = *opts.DaysPerWeek
	}
	if opts.PeriodsPerDay != nil {
		cfg.PeriodsPerDay = *opts.PeriodsPerDay
	}
	if opts.WeightTeacherSpread != nil {
		cfg.Weights.TeacherSpread = *opts.WeightTeacherSpread
	}
	if opts.WeightClassContinuity != nil {
		cfg.Weights.ClassContinuity = *opts.WeightClassContinuity
	}
	if opts.WeightSubjectSpacing != nil {
		cfg.Weights.SubjectSpacing = *opts.WeightSubjectSpacing
	}
	if opts.WeightPreferredPeriod != nil {
		cfg.Weights.PreferredPeriod = *opts.WeightPreferredPeriod
	}
	if opts.NodeBudgetPerRestart != nil {
		cfg.NodeBudgetPerRestart = *opts.NodeBudgetPerRestart
	}
	if opts.MaxRestarts != nil {
		cfg.MaxRestarts = *opts.MaxRestarts
	}
	if opts.WallClockBudgetMS != nil {
		cfg.WallClockBudget = time.Duration(*opts.WallClockBudgetMS) * time.Millisecond
	}
	if opts.AllowSameDaySameSubject != nil {
		cfg.AllowSameDaySameSubject = *opts.AllowSameDaySameSubject
	}
	if opts.ParallelRestarts != nil {
		cfg.ParallelRestarts = *opts.ParallelRestarts
	}
	if opts.RNGSeed != nil {
		cfg.RNGSeed = *opts.RNGSeed
	}
	return cfg
}
