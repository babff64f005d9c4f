package solver

import (
	"context"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// Status is the outcome class of a solve.
type Status string

const (
	StatusSuccess        Status = "SUCCESS"
	StatusPartialSuccess Status = "PARTIAL_SUCCESS"
	StatusInfeasible     Status = "INFEASIBLE"
	StatusCancelled      Status = "CANCELLED"
)

// InfeasibleReason explains an infeasible outcome.
type InfeasibleReason string

const (
	ReasonFixedCourseConflict InfeasibleReason = "FIXED_COURSE_CONFLICT"
	ReasonDomainWipeout       InfeasibleReason = "DOMAIN_WIPEOUT"
	ReasonTimeout             InfeasibleReason = "TIMEOUT"
)

// Phase is the externally observable lifecycle of a solver instance.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSearching
	PhaseImproving
	PhaseDone
)

// Stats aggregates counters from one solve.
type Stats struct {
	Nodes       int64         `json:"nodes"`
	Restarts    int           `json:"restarts"`
	CacheHits   uint64        `json:"cache_hits"`
	CacheMisses uint64        `json:"cache_misses"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Result is the outcome of a solve. Status selects which fields are set:
// Success and PartialSuccess carry a schedule and cost, Infeasible carries a
// reason, Cancelled carries neither unless a complete schedule was already
// found (in which case the solve reports Success per the cancellation
// contract).
type Result struct {
	Status         Status           `json:"status"`
	Schedule       *models.Schedule `json:"schedule,omitempty"`
	Cost           float64          `json:"cost"`
	UnmetCurricula []int64          `json:"unmet_curricula,omitempty"`
	Reason         InfeasibleReason `json:"reason,omitempty"`
	Stats          Stats            `json:"stats"`
}

// Solver runs backtracking search over a compiled model. A solver instance
// is single-use per Solve call but safe to reuse sequentially.
type Solver struct {
	model    *Model
	detector *Detector
	eval     *Evaluator
	cache    *CostCache
	logger   *zap.Logger
	phase    atomic.Int32
}

// New builds a solver over a compiled model. A nil logger defaults to a nop.
func New(m *Model, logger *zap.Logger) *Solver {
	return NewWithCache(m, logger, NewCostCache(m.cfg.CostCacheCapacity))
}

// NewWithCache builds a solver sharing an existing cost cache. Parallel
// restart workers use this so the cache is the only shared structure.
func NewWithCache(m *Model, logger *zap.Logger, cache *CostCache) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewCostCache(m.cfg.CostCacheCapacity)
	}
	return &Solver{
		model:    m,
		detector: NewDetector(m),
		eval:     NewEvaluator(m, cache),
		cache:    cache,
		logger:   logger,
	}
}

// Phase reports the solver's current lifecycle phase.
func (s *Solver) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Solver) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

// variable identifies one unassigned session: the curriculum index plus the
// session index within that curriculum.
type variable struct {
	cur     int
	session int
}

// bestCell holds the best complete schedule found so far. Shared between
// restart workers; see parallel.go.
type bestCell struct {
	schedule *models.Schedule
	cost     float64
	found    bool
}

type search struct {
	solver   *Solver
	ctx      context.Context
	deadline time.Time
	rng      *rand.Rand

	st       *State
	vars     []variable
	assigned []bool
	unsorted int // count of unassigned variables

	nodes     int64
	budget    int64
	deadEnds  map[Hash]struct{}
	best      *bestCell
	stopCause searchStop

	// deepest partial assignment seen, snapshotted because backtracking
	// unwinds the state before the search returns
	partial    *models.Schedule
	partialLen int
}

type searchStop int

const (
	stopNone searchStop = iota
	stopBudget
	stopCancelled
	stopOptimal
)

// Solve loads fixed courses, runs restart-bounded backtracking, and maps the
// outcome to a result per the error contract. Hard-constraint violations
// during search are recovered locally and never surface.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	start := time.Now()
	s.setPhase(PhaseLoading)
	defer s.setPhase(PhaseDone)

	if s.model.cfg.WallClockBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.model.cfg.WallClockBudget)
		defer cancel()
	}

	seed := s.model.cfg.RNGSeed
	if seed == 0 {
		seed = int64(s.model.fingerprint)
	}

	if _, conflict := s.placeFixed(NewState(s.model)); conflict != nil {
		s.logger.Warn("fixed courses conflict, aborting before search",
			zap.String("conflict", conflict.String()))
		return s.finish(&Result{Status: StatusInfeasible, Reason: ReasonFixedCourseConflict}, start, 0, 0), nil
	}
	vars := s.freeVariables()
	for _, v := range vars {
		if len(s.model.curricula[v.cur].domain) == 0 {
			return s.finish(&Result{Status: StatusInfeasible, Reason: ReasonDomainWipeout}, start, 0, 0), nil
		}
	}

	best := &bestCell{}
	var bestPartial *models.Schedule
	bestPartialLen := 0
	restarts := 0
	var totalNodes int64
	cancelled := false

	s.setPhase(PhaseSearching)
	for attempt := 0; attempt <= s.model.cfg.MaxRestarts; attempt++ {
		st, conflict := s.placeFixed(NewState(s.model))
		if conflict != nil {
			return s.finish(&Result{Status: StatusInfeasible, Reason: ReasonFixedCourseConflict}, start, restarts, totalNodes), nil
		}

		run := &search{
			solver:   s,
			ctx:      ctx,
			rng:      rand.New(rand.NewSource(seed + int64(attempt))),
			st:       st,
			vars:     vars,
			assigned: make([]bool, len(vars)),
			unsorted: len(vars),
			budget:   int64(s.model.cfg.NodeBudgetPerRestart),
			deadEnds: make(map[Hash]struct{}),
			best:     best,
		}
		if dl, ok := ctx.Deadline(); ok {
			run.deadline = dl
		}

		run.backtrack(0)
		totalNodes += run.nodes
		restarts = attempt

		if best.found {
			s.setPhase(PhaseImproving)
		}
		if run.stopCause == stopCancelled {
			cancelled = true
			break
		}
		if run.stopCause == stopOptimal {
			break
		}
		if run.partialLen > bestPartialLen {
			bestPartial = run.partial
			bestPartialLen = run.partialLen
		}
		s.logger.Debug("restart exhausted",
			zap.Int("attempt", attempt),
			zap.Int64("nodes", run.nodes),
			zap.Bool("complete_found", best.found))
	}

	switch {
	case best.found:
		return s.finish(&Result{Status: StatusSuccess, Schedule: best.schedule, Cost: best.cost}, start, restarts, totalNodes), nil
	case cancelled:
		return s.finish(&Result{Status: StatusCancelled}, start, restarts, totalNodes), nil
	case bestPartial != nil:
		res := &Result{
			Status:         StatusPartialSuccess,
			Schedule:       bestPartial,
			Cost:           s.eval.Evaluate(bestPartial.Assignments),
			UnmetCurricula: s.unmet(bestPartial.Assignments),
		}
		return s.finish(res, start, restarts, totalNodes), nil
	default:
		return s.finish(&Result{Status: StatusInfeasible, Reason: ReasonTimeout}, start, restarts, totalNodes), nil
	}
}

func (s *Solver) finish(res *Result, start time.Time, restarts int, nodes int64) *Result {
	hits, misses := s.cache.Stats()
	res.Stats = Stats{
		Nodes:       nodes,
		Restarts:    restarts,
		CacheHits:   hits,
		CacheMisses: misses,
		Elapsed:     time.Since(start),
	}
	s.logger.Info("solve finished",
		zap.String("status", string(res.Status)),
		zap.Float64("cost", res.Cost),
		zap.Int64("nodes", nodes),
		zap.Int("restarts", restarts),
		zap.Duration("elapsed", res.Stats.Elapsed))
	return res
}

// placeFixed pushes every fixed course as a pinned assignment, validating
// each against the state built so far. The first conflict aborts: fixed
// courses alone violating a hard constraint is proven infeasibility.
func (s *Solver) placeFixed(st *State) (*State, *Conflict) {
	for _, info := range s.model.curricula {
		pins := s.model.fixedByCur[info.c.ID]
		for i, fc := range pins {
			a := models.Assignment{
				CurriculumID: fc.CurriculumID,
				SessionIndex: i,
				Slot:         fc.Slot,
				VenueID:      fc.VenueID,
			}
			if conflicts := s.detector.Check(a, st); len(conflicts) > 0 {
				c := conflicts[0]
				return nil, &c
			}
			if err := st.Push(a); err != nil {
				c := Conflict{Kind: ConflictFixedCourseOverwrite, Slot: fc.Slot, FixedCourseID: fc.ID}
				return nil, &c
			}
		}
	}
	return st, nil
}

// freeVariables lists the sessions left open after pinning, in a stable
// order. Fixed courses occupy the lowest session indexes.
func (s *Solver) freeVariables() []variable {
	var vars []variable
	for idx, info := range s.model.curricula {
		pinned := len(s.model.fixedByCur[info.c.ID])
		for session := pinned; session < info.c.TargetSessions; session++ {
			vars = append(vars, variable{cur: idx, session: session})
		}
	}
	return vars
}

func (s *Solver) unmet(assignments []models.Assignment) []int64 {
	placed := make(map[int64]int, len(s.model.curricula))
	for _, a := range assignments {
		placed[a.CurriculumID]++
	}
	var out []int64
	for _, info := range s.model.curricula {
		if placed[info.c.ID] < info.c.TargetSessions {
			out = append(out, info.c.ID)
		}
	}
	return out
}

// backtrack is the recursive search. It returns false when the current
// subtree should be abandoned for good (budget, cancellation, or optimal
// found); true means the caller should keep trying siblings.
func (r *search) backtrack(depth int) bool {
	r.nodes++
	if r.st.Len() > r.partialLen {
		r.partial = r.st.Schedule()
		r.partialLen = r.st.Len()
	}
	if r.ctx.Err() != nil || (!r.deadline.IsZero() && time.Now().After(r.deadline)) {
		r.stopCause = stopCancelled
		return false
	}
	if r.nodes > r.budget {
		r.stopCause = stopBudget
		return false
	}

	if r.unsorted == 0 {
		cost := r.solver.eval.EvaluateState(r.st)
		if !r.best.found || cost < r.best.cost {
			r.best.schedule = r.st.Schedule()
			r.best.cost = cost
			r.best.found = true
			// Improvement resets the node budget for this restart.
			r.budget = r.nodes + int64(r.solver.model.cfg.NodeBudgetPerRestart)
			r.solver.logger.Debug("complete schedule found", zap.Float64("cost", cost))
		}
		if r.best.cost == 0 {
			r.stopCause = stopOptimal
			return false
		}
		return true
	}

	// Memoized dead-end: this exact partial state was already proven barren.
	if _, seen := r.deadEnds[r.st.Hash()]; seen {
		return true
	}

	// Bound pruning against the best complete cost.
	if r.best.found {
		if r.solver.eval.LowerBound(r.st.Assignments()) >= r.best.cost {
			return true
		}
	}

	vi, candidates := r.selectVariable()
	if vi < 0 {
		// Domain wipeout under the current partial assignment.
		r.deadEnds[r.st.Hash()] = struct{}{}
		return true
	}

	r.orderValues(r.vars[vi], candidates)

	r.assigned[vi] = true
	r.unsorted--
	progressed := false
	for _, p := range candidates {
		a := models.Assignment{
			CurriculumID: r.solver.model.curricula[r.vars[vi].cur].c.ID,
			SessionIndex: r.vars[vi].session,
			Slot:         p.Slot,
			VenueID:      p.VenueID,
		}
		if len(r.solver.detector.Check(a, r.st)) > 0 {
			continue
		}
		if err := r.st.Push(a); err != nil {
			continue
		}
		if r.forwardCheck() {
			progressed = true
			if !r.backtrack(depth + 1) {
				_, _ = r.st.Pop()
				r.assigned[vi] = false
				r.unsorted++
				return false
			}
		}
		if _, err := r.st.Pop(); err != nil {
			break
		}
	}
	r.assigned[vi] = false
	r.unsorted++

	if !progressed {
		r.deadEnds[r.st.Hash()] = struct{}{}
	}
	return true
}

// selectVariable applies the MRV heuristic with a degree tie-break: the
// unassigned variable with the fewest feasible placements wins; ties go to
// the curriculum constraining the most peers. Returns -1 on wipeout.
func (r *search) selectVariable() (int, []Placement) {
	bestIdx := -1
	var bestCandidates []Placement
	bestCount := int(^uint(0) >> 1)
	bestDegree := -1

	for i, v := range r.vars {
		if r.assigned[i] {
			continue
		}
		info := r.solver.model.curricula[v.cur]
		var feasible []Placement
		for _, p := range info.domain {
			a := models.Assignment{CurriculumID: info.c.ID, SessionIndex: v.session, Slot: p.Slot, VenueID: p.VenueID}
			if len(r.solver.detector.Check(a, r.st)) == 0 {
				feasible = append(feasible, p)
			}
		}
		if len(feasible) == 0 {
			return -1, nil
		}
		degree := len(info.peers)
		if len(feasible) < bestCount || (len(feasible) == bestCount && degree > bestDegree) {
			bestIdx = i
			bestCandidates = feasible
			bestCount = len(feasible)
			bestDegree = degree
		}
	}
	return bestIdx, bestCandidates
}

// orderValues sorts candidates least-constraining first: placements whose
// slot appears in fewer peer domains are preferred, then lower soft-cost
// delta, then a seeded shuffle key for tie diversity across restarts.
func (r *search) orderValues(v variable, candidates []Placement) {
	info := r.solver.model.curricula[v.cur]

	slotPressure := make(map[int]int)
	for _, peerIdx := range info.peers {
		if r.curriculumOpen(peerIdx) {
			for _, p := range r.solver.model.curricula[peerIdx].domain {
				slotPressure[p.Slot]++
			}
		}
	}

	type ranked struct {
		p        Placement
		pressure int
		delta    float64
		jitter   uint64
	}
	rs := make([]ranked, len(candidates))
	for i, p := range candidates {
		a := models.Assignment{CurriculumID: info.c.ID, SessionIndex: v.session, Slot: p.Slot, VenueID: p.VenueID}
		rs[i] = ranked{
			p:        p,
			pressure: slotPressure[p.Slot],
			delta:    r.solver.eval.Delta(r.st, a),
			jitter:   splitmix64(uint64(r.rng.Int63()) ^ Tag(a).Lo),
		}
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].pressure != rs[j].pressure {
			return rs[i].pressure < rs[j].pressure
		}
		if rs[i].delta != rs[j].delta {
			return rs[i].delta < rs[j].delta
		}
		return rs[i].jitter < rs[j].jitter
	})
	for i := range rs {
		candidates[i] = rs[i].p
	}
}

func (r *search) curriculumOpen(curIdx int) bool {
	for i, v := range r.vars {
		if v.cur == curIdx && !r.assigned[i] {
			return true
		}
	}
	return false
}

// forwardCheck verifies that every still-unassigned variable keeps at least
// one feasible placement after the latest push. Scanning stops at the first
// surviving placement per variable.
func (r *search) forwardCheck() bool {
	for i, v := range r.vars {
		if r.assigned[i] {
			continue
		}
		info := r.solver.model.curricula[v.cur]
		alive := false
		for _, p := range info.domain {
			a := models.Assignment{CurriculumID: info.c.ID, SessionIndex: v.session, Slot: p.Slot, VenueID: p.VenueID}
			if len(r.solver.detector.Check(a, r.st)) == 0 {
				alive = true
				break
			}
		}
		if !alive {
			return false
		}
	}
	return true
}
