package solver

import (
	"sort"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// Evaluator computes soft costs for assignment sets. All components are
// penalties, so a cost of zero is the optimum.
type Evaluator struct {
	model *Model
	cache *CostCache
}

// NewEvaluator builds an evaluator sharing the given advisory cache. A nil
// cache disables memoization.
func NewEvaluator(m *Model, cache *CostCache) *Evaluator {
	return &Evaluator{model: m, cache: cache}
}

// Evaluate scores an assignment set, consulting the cache first. On a miss
// the cost is recomputed from scratch, never inferred from a similar key.
func (e *Evaluator) Evaluate(assignments []models.Assignment) float64 {
	if e.cache != nil {
		key := HashAssignments(assignments)
		if score, ok := e.cache.Get(key); ok {
			return score
		}
		score := e.compute(assignments)
		e.cache.Put(key, score)
		return score
	}
	return e.compute(assignments)
}

// EvaluateState scores the state's current assignments using its running
// hash, avoiding a rehash of the whole set.
func (e *Evaluator) EvaluateState(st *State) float64 {
	if e.cache != nil {
		if score, ok := e.cache.Get(st.Hash()); ok {
			return score
		}
		score := e.compute(st.Assignments())
		e.cache.Put(st.Hash(), score)
		return score
	}
	return e.compute(st.Assignments())
}

func (e *Evaluator) compute(assignments []models.Assignment) float64 {
	w := e.model.cfg.Weights
	cost := 0.0
	if w.TeacherSpread > 0 {
		cost += w.TeacherSpread * e.teacherSpreadPenalty(assignments)
	}
	if w.ClassContinuity > 0 {
		cost += w.ClassContinuity * e.classContinuityPenalty(assignments)
	}
	if w.SubjectSpacing > 0 {
		cost += w.SubjectSpacing * e.subjectSpacingPenalty(assignments)
	}
	if w.PreferredPeriod > 0 {
		cost += w.PreferredPeriod * e.preferredPeriodPenalty(assignments)
	}
	return cost
}

// LowerBound returns an admissible bound on the final cost of any completion
// of the given partial assignment set. Only the components that can never
// decrease as assignments are added participate: day-spread pairs, subject
// spacing, and off-band placements are permanent once made, while continuity
// gaps can still be filled.
func (e *Evaluator) LowerBound(assignments []models.Assignment) float64 {
	w := e.model.cfg.Weights
	bound := 0.0
	if w.TeacherSpread > 0 {
		bound += w.TeacherSpread * e.teacherSpreadPenalty(assignments)
	}
	if w.SubjectSpacing > 0 {
		bound += w.SubjectSpacing * e.subjectSpacingPenalty(assignments)
	}
	if w.PreferredPeriod > 0 {
		bound += w.PreferredPeriod * e.preferredPeriodPenalty(assignments)
	}
	return bound
}

// Delta estimates the cost change of adding one assignment to the state's
// current set. Used for value ordering only, so an estimate is acceptable.
func (e *Evaluator) Delta(st *State, a models.Assignment) float64 {
	current := st.Assignments()
	extended := make([]models.Assignment, 0, len(current)+1)
	extended = append(extended, current...)
	extended = append(extended, a)
	return e.compute(extended) - e.compute(current)
}

// teacherSpreadPenalty charges one unit per same-day session pair of a
// teacher, favouring sessions spread across the week.
func (e *Evaluator) teacherSpreadPenalty(assignments []models.Assignment) float64 {
	counts := make(map[int64]map[int]int)
	for _, a := range assignments {
		info := e.model.curricula[e.model.curIdx[a.CurriculumID]]
		day := e.model.grid.Day(a.Slot)
		if counts[info.c.TeacherID] == nil {
			counts[info.c.TeacherID] = make(map[int]int)
		}
		counts[info.c.TeacherID][day]++
	}
	penalty := 0.0
	for _, days := range counts {
		for _, n := range days {
			if n > 1 {
				penalty += float64(n*(n-1)) / 2
			}
		}
	}
	return penalty
}

// classContinuityPenalty charges one unit per empty period between a class's
// first and last occupied period of a day.
func (e *Evaluator) classContinuityPenalty(assignments []models.Assignment) float64 {
	periods := make(map[int64]map[int][]int)
	for _, a := range assignments {
		info := e.model.curricula[e.model.curIdx[a.CurriculumID]]
		day := e.model.grid.Day(a.Slot)
		period := e.model.grid.Period(a.Slot)
		for _, classID := range info.members {
			if periods[classID] == nil {
				periods[classID] = make(map[int][]int)
			}
			periods[classID][day] = append(periods[classID][day], period)
		}
	}
	penalty := 0.0
	for _, days := range periods {
		for _, ps := range days {
			if len(ps) < 2 {
				continue
			}
			sort.Ints(ps)
			for i := 0; i < len(ps)-1; i++ {
				if gap := ps[i+1] - ps[i] - 1; gap > 0 {
					penalty += float64(gap)
				}
			}
		}
	}
	return penalty
}

// subjectSpacingPenalty charges one unit per pair of sessions of the same
// (class, subject) on consecutive days. Combined sessions count toward every
// member class, matching the busy bookkeeping.
func (e *Evaluator) subjectSpacingPenalty(assignments []models.Assignment) float64 {
	type key struct {
		classID   int64
		subjectID string
	}
	days := make(map[key][]int)
	for _, a := range assignments {
		info := e.model.curricula[e.model.curIdx[a.CurriculumID]]
		for _, classID := range info.members {
			k := key{classID: classID, subjectID: info.c.SubjectID}
			days[k] = append(days[k], e.model.grid.Day(a.Slot))
		}
	}
	penalty := 0.0
	for _, ds := range days {
		sort.Ints(ds)
		for i := 0; i < len(ds)-1; i++ {
			if ds[i+1]-ds[i] == 1 {
				penalty++
			}
		}
	}
	return penalty
}

// preferredPeriodPenalty charges one unit per session landing outside its
// subject's preferred period band. Subjects with no band contribute nothing.
func (e *Evaluator) preferredPeriodPenalty(assignments []models.Assignment) float64 {
	penalty := 0.0
	for _, a := range assignments {
		info := e.model.curricula[e.model.curIdx[a.CurriculumID]]
		band := e.model.preferredSlots[info.c.SubjectID]
		if band.Count() == 0 {
			continue
		}
		if !band.Has(a.Slot) {
			penalty++
		}
	}
	return penalty
}
