package solver

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// MoveKind distinguishes the two swap-move flavours.
type MoveKind string

const (
	MoveRelocate MoveKind = "move"
	MoveExchange MoveKind = "exchange"
)

// SwapMove is one step of a repair chain: relocate one assignment to a new
// placement, or exchange the placements of two assignments.
type SwapMove struct {
	Kind MoveKind           `json:"kind"`
	A    models.Assignment  `json:"a"`
	To   Placement          `json:"to"`
	B    *models.Assignment `json:"b,omitempty"`
}

// SwapChain is an ordered list of moves that restores feasibility after a
// target change, with the resulting soft-cost delta against the original
// schedule.
type SwapChain struct {
	Moves     []SwapMove `json:"moves"`
	CostDelta float64    `json:"cost_delta"`
}

// TargetChange is the local edit the caller wants applied: insert an
// assignment, remove one, or move one to a new placement. Exactly one field
// must be set.
type TargetChange struct {
	Insert *models.Assignment `json:"insert,omitempty"`
	Remove *models.Assignment `json:"remove,omitempty"`
	Move   *MoveRequest       `json:"move,omitempty"`
}

// MoveRequest names an existing assignment and its desired new placement.
type MoveRequest struct {
	Assignment models.Assignment `json:"assignment"`
	To         Placement         `json:"to"`
}

// Suggester proposes minimal swap chains that apply a target change while
// preserving every hard constraint. It never solves from scratch; it runs a
// bounded breadth-first search over swap moves from the given schedule.
type Suggester struct {
	model    *Model
	detector *Detector
	eval     *Evaluator
	logger   *zap.Logger
}

// NewSuggester builds a suggester over a compiled model.
func NewSuggester(m *Model, logger *zap.Logger) *Suggester {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := NewCostCache(m.cfg.CostCacheCapacity)
	return &Suggester{
		model:    m,
		detector: NewDetector(m),
		eval:     NewEvaluator(m, cache),
		logger:   logger,
	}
}

type swapNode struct {
	assignments []models.Assignment
	chain       []SwapMove
	locked      map[models.Assignment]bool
}

// Suggest returns repair chains of length at most the configured maximum,
// ranked by resulting soft-cost delta. An empty result means no chain within
// the bounds restores feasibility.
func (s *Suggester) Suggest(schedule *models.Schedule, change TargetChange) ([]SwapChain, error) {
	if schedule == nil {
		return nil, fmt.Errorf("suggest: nil schedule")
	}
	start, err := s.applyTarget(schedule.Assignments, change)
	if err != nil {
		return nil, err
	}

	baseCost := s.eval.Evaluate(schedule.Assignments)
	maxChain := s.model.cfg.MaxSwapChain
	frontierLimit := s.model.cfg.SwapFrontierLimit

	visited := map[Hash]struct{}{HashAssignments(start.assignments): {}}
	frontier := []*swapNode{start}
	var found []SwapChain
	expanded := 0

	for len(frontier) > 0 && expanded < frontierLimit {
		node := frontier[0]
		frontier = frontier[1:]
		expanded++

		violating := s.violations(node.assignments)
		if len(violating) == 0 {
			found = append(found, SwapChain{
				Moves:     node.chain,
				CostDelta: s.eval.Evaluate(node.assignments) - baseCost,
			})
			continue
		}
		if len(node.chain) >= maxChain {
			continue
		}

		for _, child := range s.expand(node, violating) {
			key := HashAssignments(child.assignments)
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}
			frontier = append(frontier, child)
			if len(frontier)+expanded >= frontierLimit {
				break
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if len(found[i].Moves) != len(found[j].Moves) {
			return len(found[i].Moves) < len(found[j].Moves)
		}
		return found[i].CostDelta < found[j].CostDelta
	})
	s.logger.Debug("swap suggestion finished",
		zap.Int("expanded", expanded),
		zap.Int("chains", len(found)))
	return found, nil
}

// applyTarget forcibly applies the requested change, producing the (possibly
// infeasible) start node. The touched assignments are locked so the search
// cannot trivially undo the change.
func (s *Suggester) applyTarget(assignments []models.Assignment, change TargetChange) (*swapNode, error) {
	node := &swapNode{
		assignments: append([]models.Assignment(nil), assignments...),
		locked:      make(map[models.Assignment]bool),
	}
	switch {
	case change.Insert != nil:
		a := *change.Insert
		if _, ok := s.model.curIdx[a.CurriculumID]; !ok {
			return nil, fmt.Errorf("suggest insert: unknown curriculum %d", a.CurriculumID)
		}
		if err := s.checkPlacement(a.Slot, a.VenueID); err != nil {
			return nil, fmt.Errorf("suggest insert: %w", err)
		}
		node.assignments = append(node.assignments, a)
		node.locked[a] = true
	case change.Remove != nil:
		idx := indexOf(node.assignments, *change.Remove)
		if idx < 0 {
			return nil, fmt.Errorf("suggest remove: assignment not in schedule")
		}
		node.assignments = append(node.assignments[:idx], node.assignments[idx+1:]...)
	case change.Move != nil:
		idx := indexOf(node.assignments, change.Move.Assignment)
		if idx < 0 {
			return nil, fmt.Errorf("suggest move: assignment not in schedule")
		}
		if err := s.checkPlacement(change.Move.To.Slot, change.Move.To.VenueID); err != nil {
			return nil, fmt.Errorf("suggest move: %w", err)
		}
		moved := node.assignments[idx]
		moved.Slot = change.Move.To.Slot
		moved.VenueID = change.Move.To.VenueID
		node.assignments[idx] = moved
		node.locked[moved] = true
	default:
		return nil, fmt.Errorf("suggest: target change is empty")
	}
	return node, nil
}

// violations replays the assignment set and returns the assignments that
// conflict with the rest of it.
func (s *Suggester) violations(assignments []models.Assignment) []models.Assignment {
	st := NewState(s.model)
	var bad []models.Assignment
	for _, a := range assignments {
		if len(s.detector.Check(a, st)) > 0 {
			bad = append(bad, a)
			continue
		}
		if err := st.Push(a); err != nil {
			bad = append(bad, a)
		}
	}
	return bad
}

// expand generates the children of a node: relocations of a violating
// assignment within its domain, and exchanges between a violating assignment
// and any other movable assignment.
func (s *Suggester) expand(node *swapNode, violating []models.Assignment) []*swapNode {
	var children []*swapNode

	for _, victim := range violating {
		if node.locked[victim] || s.pinned(victim) {
			continue
		}
		domain := s.model.Domain(victim.CurriculumID)

		for _, p := range domain {
			if p.Slot == victim.Slot && p.VenueID == victim.VenueID {
				continue
			}
			moved := victim
			moved.Slot = p.Slot
			moved.VenueID = p.VenueID
			children = append(children, node.child(victim, moved, SwapMove{
				Kind: MoveRelocate, A: victim, To: p,
			}))
		}

		for _, other := range node.assignments {
			other := other
			if other == victim || node.locked[other] || s.pinned(other) {
				continue
			}
			if !s.inDomain(victim.CurriculumID, other.Slot, other.VenueID) ||
				!s.inDomain(other.CurriculumID, victim.Slot, victim.VenueID) {
				continue
			}
			movedVictim := victim
			movedVictim.Slot, movedVictim.VenueID = other.Slot, other.VenueID
			movedOther := other
			movedOther.Slot, movedOther.VenueID = victim.Slot, victim.VenueID

			child := node.child(victim, movedVictim, SwapMove{
				Kind: MoveExchange, A: victim,
				To: Placement{Slot: other.Slot, VenueID: other.VenueID},
				B:  &other,
			})
			if idx := indexOf(child.assignments, other); idx >= 0 {
				child.assignments[idx] = movedOther
			}
			children = append(children, child)
		}
	}
	return children
}

func (node *swapNode) child(old, updated models.Assignment, move SwapMove) *swapNode {
	next := &swapNode{
		assignments: append([]models.Assignment(nil), node.assignments...),
		chain:       append(append([]SwapMove(nil), node.chain...), move),
		locked:      make(map[models.Assignment]bool, len(node.locked)+1),
	}
	for k := range node.locked {
		next.locked[k] = true
	}
	if idx := indexOf(next.assignments, old); idx >= 0 {
		next.assignments[idx] = updated
	}
	return next
}

// checkPlacement rejects targets naming a slot outside the grid or a venue
// the model does not know. The state bookkeeping only tracks known venues.
func (s *Suggester) checkPlacement(slot int, venueID int64) error {
	if !s.model.grid.Contains(slot) {
		return fmt.Errorf("slot %d outside the time grid", slot)
	}
	if _, ok := s.model.venues[venueID]; !ok {
		return fmt.Errorf("unknown venue %d", venueID)
	}
	return nil
}

func (s *Suggester) pinned(a models.Assignment) bool {
	return a.SessionIndex < len(s.model.fixedByCur[a.CurriculumID])
}

func (s *Suggester) inDomain(curriculumID int64, slot int, venueID int64) bool {
	for _, p := range s.model.Domain(curriculumID) {
		if p.Slot == slot && p.VenueID == venueID {
			return true
		}
	}
	return false
}

func indexOf(assignments []models.Assignment, a models.Assignment) int {
	for i := range assignments {
		if assignments[i] == a {
			return i
		}
	}
	return -1
}
