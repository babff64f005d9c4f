package solver

import (
	"fmt"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// parityBits tracks slot occupancy separately for odd and even weeks. A
// WeekEvery assignment occupies both planes.
type parityBits struct {
	odd  SlotMask
	even SlotMask
}

func newParityBits(nslots int) *parityBits {
	return &parityBits{odd: NewSlotMask(nslots), even: NewSlotMask(nslots)}
}

func (p *parityBits) occupy(slot int, week models.WeekType) {
	if week != models.WeekEven {
		p.odd.Set(slot)
	}
	if week != models.WeekOdd {
		p.even.Set(slot)
	}
}

func (p *parityBits) release(slot int, week models.WeekType) {
	if week != models.WeekEven {
		p.odd.Clear(slot)
	}
	if week != models.WeekOdd {
		p.even.Clear(slot)
	}
}

func (p *parityBits) busy(slot int, week models.WeekType) bool {
	if week != models.WeekEven && p.odd.Has(slot) {
		return true
	}
	if week != models.WeekOdd && p.even.Has(slot) {
		return true
	}
	return false
}

// parityLoad counts concurrent sessions per slot on each week plane.
type parityLoad struct {
	odd  []int
	even []int
}

func newParityLoad(nslots int) *parityLoad {
	return &parityLoad{odd: make([]int, nslots), even: make([]int, nslots)}
}

func (p *parityLoad) add(slot, delta int, week models.WeekType) {
	if week != models.WeekEven {
		p.odd[slot] += delta
	}
	if week != models.WeekOdd {
		p.even[slot] += delta
	}
}

func (p *parityLoad) max(slot int, week models.WeekType) int {
	load := 0
	if week != models.WeekEven && p.odd[slot] > load {
		load = p.odd[slot]
	}
	if week != models.WeekOdd && p.even[slot] > load {
		load = p.even[slot]
	}
	return load
}

type sameDayKey struct {
	classID   int64
	subjectID string
	day       int
}

// State is the mutable search state: the assignment stack plus the busy
// structures kept in sync on every push and pop, and the running hash.
type State struct {
	model *Model

	assignments []models.Assignment
	assigned    []int // per curriculum index, sessions currently placed

	teacherBusy map[int64]*parityBits
	classBusy   map[int64]*parityBits
	venueLoad   map[int64]*parityLoad
	teacherDay  map[int64]*parityLoad
	sameDay     map[sameDayKey]int

	hash Hash
}

// NewState returns an empty state over a compiled model.
func NewState(m *Model) *State {
	nslots := m.grid.Slots()
	st := &State{
		model:       m,
		assigned:    make([]int, len(m.curricula)),
		teacherBusy: make(map[int64]*parityBits, len(m.teachers)),
		classBusy:   make(map[int64]*parityBits, len(m.classes)),
		venueLoad:   make(map[int64]*parityLoad, len(m.venues)),
		teacherDay:  make(map[int64]*parityLoad, len(m.teachers)),
		sameDay:     make(map[sameDayKey]int),
	}
	for id := range m.teachers {
		st.teacherBusy[id] = newParityBits(nslots)
		st.teacherDay[id] = newParityLoad(m.grid.Days)
	}
	for id := range m.classes {
		st.classBusy[id] = newParityBits(nslots)
	}
	for id := range m.venues {
		st.venueLoad[id] = newParityLoad(nslots)
	}
	return st
}

// Assignments returns the current assignment stack. The slice is shared;
// callers must not mutate it.
func (st *State) Assignments() []models.Assignment {
	return st.assignments
}

// Hash returns the fingerprint of the current assignment set.
func (st *State) Hash() Hash {
	return st.hash
}

// Len returns the number of placed assignments.
func (st *State) Len() int {
	return len(st.assignments)
}

// Push places an assignment and updates every busy structure. The caller is
// expected to have checked feasibility first.
func (st *State) Push(a models.Assignment) error {
	idx, ok := st.model.curIdx[a.CurriculumID]
	if !ok {
		return fmt.Errorf("push: unknown curriculum %d", a.CurriculumID)
	}
	load, ok := st.venueLoad[a.VenueID]
	if !ok {
		return fmt.Errorf("push: unknown venue %d", a.VenueID)
	}
	info := st.model.curricula[idx]
	week := info.c.WeekType
	day := st.model.grid.Day(a.Slot)

	st.teacherBusy[info.c.TeacherID].occupy(a.Slot, week)
	st.teacherDay[info.c.TeacherID].add(day, 1, week)
	for _, classID := range info.members {
		st.classBusy[classID].occupy(a.Slot, week)
		st.sameDay[sameDayKey{classID: classID, subjectID: info.c.SubjectID, day: day}]++
	}
	load.add(a.Slot, 1, week)

	st.assigned[idx]++
	st.assignments = append(st.assignments, a)
	st.hash = st.hash.Xor(Tag(a))
	return nil
}

// Pop removes the most recent assignment, undoing its updates.
func (st *State) Pop() (models.Assignment, error) {
	if len(st.assignments) == 0 {
		return models.Assignment{}, fmt.Errorf("pop on empty state")
	}
	a := st.assignments[len(st.assignments)-1]
	st.assignments = st.assignments[:len(st.assignments)-1]
	st.remove(a)
	return a, nil
}

// Remove deletes a specific assignment regardless of stack position. Used by
// the swap suggester, which edits complete schedules rather than backtracking.
func (st *State) Remove(a models.Assignment) error {
	for i := len(st.assignments) - 1; i >= 0; i-- {
		if st.assignments[i] == a {
			st.assignments = append(st.assignments[:i], st.assignments[i+1:]...)
			st.remove(a)
			return nil
		}
	}
	return fmt.Errorf("remove: assignment not present (curriculum %d session %d)", a.CurriculumID, a.SessionIndex)
}

func (st *State) remove(a models.Assignment) {
	idx := st.model.curIdx[a.CurriculumID]
	info := st.model.curricula[idx]
	week := info.c.WeekType
	day := st.model.grid.Day(a.Slot)

	st.teacherBusy[info.c.TeacherID].release(a.Slot, week)
	st.teacherDay[info.c.TeacherID].add(day, -1, week)
	for _, classID := range info.members {
		st.classBusy[classID].release(a.Slot, week)
		st.sameDay[sameDayKey{classID: classID, subjectID: info.c.SubjectID, day: day}]--
	}
	st.venueLoad[a.VenueID].add(a.Slot, -1, week)

	st.assigned[idx]--
	st.hash = st.hash.Xor(Tag(a))
}

// Complete reports whether every curriculum has reached its target sessions.
func (st *State) Complete() bool {
	for i, info := range st.model.curricula {
		if st.assigned[i] < info.c.TargetSessions {
			return false
		}
	}
	return true
}

// Schedule snapshots the current assignments into a schedule value.
func (st *State) Schedule() *models.Schedule {
	out := make([]models.Assignment, len(st.assignments))
	copy(out, st.assignments)
	return &models.Schedule{Assignments: out}
}
