package solver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// Problem aggregates everything the solver needs for one solve. Entities are
// read once and stay immutable for the duration of the search.
type Problem struct {
	Teachers     []models.Teacher
	Classes      []models.Class
	Subjects     []models.Subject
	Venues       []models.Venue
	Curricula    []models.Curriculum
	FixedCourses []models.FixedCourse
	Exclusions   []models.Exclusion
}

// Placement is one candidate (slot, venue) cell for a curriculum session.
type Placement struct {
	Slot    int   `json:"slot"`
	VenueID int64 `json:"venue_id"`
}

// DataIntegrityError reports broken references or malformed records found
// while compiling a problem. The offending ids are listed per issue.
type DataIntegrityError struct {
	Issues []string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("problem data integrity: %s", strings.Join(e.Issues, "; "))
}

type curriculumInfo struct {
	c       *models.Curriculum
	idx     int
	members []int64
	domain  []Placement
	peers   []int
}

// Model is the compiled, solve-ready form of a Problem: lookup tables, folded
// forbidden masks, and the static per-curriculum domains.
type Model struct {
	cfg  Config
	grid TimeGrid

	teachers map[int64]*models.Teacher
	classes  map[int64]*models.Class
	subjects map[string]*models.Subject
	venues   map[int64]*models.Venue

	curricula []*curriculumInfo
	curIdx    map[int64]int

	teacherMask map[int64]SlotMask
	classMask   map[int64]SlotMask
	subjectMask map[string]SlotMask
	venueMask   map[int64]SlotMask

	fixed          []models.FixedCourse
	fixedByCur     map[int64][]models.FixedCourse
	preferredSlots map[string]SlotMask

	fingerprint uint64
}

// Compile validates a problem against a config and builds the derived
// structures the search needs. Referential breakage is returned as a
// *DataIntegrityError; invalid config options fail before any data is read.
func Compile(p *Problem, cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("solver config: %w", err)
	}

	grid := cfg.Grid()
	m := &Model{
		cfg:            cfg,
		grid:           grid,
		teachers:       make(map[int64]*models.Teacher, len(p.Teachers)),
		classes:        make(map[int64]*models.Class, len(p.Classes)),
		subjects:       make(map[string]*models.Subject, len(p.Subjects)),
		venues:         make(map[int64]*models.Venue, len(p.Venues)),
		curIdx:         make(map[int64]int, len(p.Curricula)),
		teacherMask:    make(map[int64]SlotMask, len(p.Teachers)),
		classMask:      make(map[int64]SlotMask, len(p.Classes)),
		subjectMask:    make(map[string]SlotMask, len(p.Subjects)),
		venueMask:      make(map[int64]SlotMask, len(p.Venues)),
		fixedByCur:     make(map[int64][]models.FixedCourse),
		preferredSlots: make(map[string]SlotMask, len(p.Subjects)),
	}

	for i := range p.Teachers {
		t := &p.Teachers[i]
		m.teachers[t.ID] = t
		m.teacherMask[t.ID] = MaskFromInt64(t.ForbiddenMask, grid.Slots())
	}
	for i := range p.Classes {
		c := &p.Classes[i]
		m.classes[c.ID] = c
		m.classMask[c.ID] = NewSlotMask(grid.Slots())
	}
	for i := range p.Subjects {
		s := &p.Subjects[i]
		m.subjects[s.ID] = s
		m.subjectMask[s.ID] = MaskFromInt64(s.ForbiddenMask, grid.Slots())
		m.preferredSlots[s.ID] = expandPreferredPeriods(s.PreferredPeriods, grid)
	}
	for i := range p.Venues {
		v := &p.Venues[i]
		m.venues[v.ID] = v
		m.venueMask[v.ID] = NewSlotMask(grid.Slots())
	}

	var issues []string

	for _, ex := range p.Exclusions {
		if !grid.Contains(ex.Slot) {
			issues = append(issues, fmt.Sprintf("exclusion %d: slot %d outside grid", ex.ID, ex.Slot))
			continue
		}
		switch ex.Kind {
		case models.ExclusionTeacher:
			if mask, ok := m.teacherMask[ex.EntityID]; ok {
				mask.Set(ex.Slot)
			} else {
				issues = append(issues, fmt.Sprintf("exclusion %d: unknown teacher %d", ex.ID, ex.EntityID))
			}
		case models.ExclusionClass:
			if mask, ok := m.classMask[ex.EntityID]; ok {
				mask.Set(ex.Slot)
			} else {
				issues = append(issues, fmt.Sprintf("exclusion %d: unknown class %d", ex.ID, ex.EntityID))
			}
		case models.ExclusionVenue:
			if mask, ok := m.venueMask[ex.EntityID]; ok {
				mask.Set(ex.Slot)
			} else {
				issues = append(issues, fmt.Sprintf("exclusion %d: unknown venue %d", ex.ID, ex.EntityID))
			}
		default:
			issues = append(issues, fmt.Sprintf("exclusion %d: unknown kind %q", ex.ID, ex.Kind))
		}
	}

	venueIDs := lo.Map(p.Venues, func(v models.Venue, _ int) int64 { return v.ID })
	sort.Slice(venueIDs, func(i, j int) bool { return venueIDs[i] < venueIDs[j] })

	for i := range p.Curricula {
		c := &p.Curricula[i]
		info := &curriculumInfo{c: c, idx: i}

		if _, ok := m.teachers[c.TeacherID]; !ok {
			issues = append(issues, fmt.Sprintf("curriculum %d: unknown teacher %d", c.ID, c.TeacherID))
		}
		if _, ok := m.classes[c.ClassID]; !ok {
			issues = append(issues, fmt.Sprintf("curriculum %d: unknown class %d", c.ID, c.ClassID))
		}
		if _, ok := m.subjects[c.SubjectID]; !ok {
			issues = append(issues, fmt.Sprintf("curriculum %d: unknown subject %q", c.ID, c.SubjectID))
		}
		if c.TargetSessions <= 0 {
			issues = append(issues, fmt.Sprintf("curriculum %d: target_sessions must be positive", c.ID))
		}
		if !c.WeekType.Valid() {
			issues = append(issues, fmt.Sprintf("curriculum %d: unknown week type %q", c.ID, c.WeekType))
		}

		members, err := c.MemberClasses()
		if err != nil {
			issues = append(issues, err.Error())
			members = []int64{c.ClassID}
		}
		for _, id := range members {
			if _, ok := m.classes[id]; !ok {
				issues = append(issues, fmt.Sprintf("curriculum %d: unknown combined class %d", c.ID, id))
			}
		}
		info.members = members

		m.curricula = append(m.curricula, info)
		m.curIdx[c.ID] = i
	}

	for _, fc := range p.FixedCourses {
		if _, ok := m.curIdx[fc.CurriculumID]; !ok {
			issues = append(issues, fmt.Sprintf("fixed course %d: unknown curriculum %d", fc.ID, fc.CurriculumID))
			continue
		}
		if _, ok := m.venues[fc.VenueID]; !ok {
			issues = append(issues, fmt.Sprintf("fixed course %d: unknown venue %d", fc.ID, fc.VenueID))
			continue
		}
		if !grid.Contains(fc.Slot) {
			issues = append(issues, fmt.Sprintf("fixed course %d: slot %d outside grid", fc.ID, fc.Slot))
			continue
		}
		m.fixed = append(m.fixed, fc)
		m.fixedByCur[fc.CurriculumID] = append(m.fixedByCur[fc.CurriculumID], fc)
	}
	for id, pins := range m.fixedByCur {
		idx := m.curIdx[id]
		if len(pins) > m.curricula[idx].c.TargetSessions {
			issues = append(issues, fmt.Sprintf("curriculum %d: %d fixed courses exceed target_sessions %d", id, len(pins), m.curricula[idx].c.TargetSessions))
		}
	}

	if len(issues) > 0 {
		return nil, &DataIntegrityError{Issues: issues}
	}

	m.buildDomains(venueIDs)
	m.buildPeers()
	m.fingerprint = m.computeFingerprint()
	return m, nil
}

// forbidden reports whether any static mask rules the slot out for the
// curriculum: teacher mask, subject mask, or any member class mask.
func (m *Model) forbidden(info *curriculumInfo, slot int) bool {
	if m.teacherMask[info.c.TeacherID].Has(slot) {
		return true
	}
	if m.subjectMask[info.c.SubjectID].Has(slot) {
		return true
	}
	for _, classID := range info.members {
		if m.classMask[classID].Has(slot) {
			return true
		}
	}
	return false
}

// buildDomains computes the static candidate list per curriculum: every
// (slot, venue) passing the mask union, venue exclusions, and a venue
// capacity of at least one concurrent session.
func (m *Model) buildDomains(venueIDs []int64) {
	for _, info := range m.curricula {
		for slot := 0; slot < m.grid.Slots(); slot++ {
			if m.forbidden(info, slot) {
				continue
			}
			for _, venueID := range venueIDs {
				if m.venues[venueID].Capacity < 1 {
					continue
				}
				if m.venueMask[venueID].Has(slot) {
					continue
				}
				info.domain = append(info.domain, Placement{Slot: slot, VenueID: venueID})
			}
		}
	}
}

// buildPeers links curricula that can constrain each other: shared teacher or
// an overlapping member class. Venue contention is not tracked here since
// any two curricula may compete for a venue.
func (m *Model) buildPeers() {
	for _, a := range m.curricula {
		for _, b := range m.curricula {
			if a.idx == b.idx {
				continue
			}
			if a.c.TeacherID == b.c.TeacherID || sharesClass(a.members, b.members) {
				a.peers = append(a.peers, b.idx)
			}
		}
	}
}

func sharesClass(a, b []int64) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// computeFingerprint folds every input record into a 64-bit value used for
// the default RNG seed, so identical problems solve identically.
func (m *Model) computeFingerprint() uint64 {
	h := uint64(0x6a09e667f3bcc908)
	mix := func(vals ...uint64) {
		for _, v := range vals {
			h = splitmix64(h ^ v)
		}
	}
	for _, info := range m.curricula {
		c := info.c
		mix(uint64(c.ID), uint64(c.ClassID), uint64(c.TeacherID), uint64(c.TargetSessions))
		mix(hashString(c.SubjectID), hashString(string(c.WeekType)))
		for _, member := range info.members {
			mix(uint64(member))
		}
	}
	for _, fc := range m.fixed {
		mix(uint64(fc.CurriculumID), uint64(fc.Slot), uint64(fc.VenueID))
	}
	teacherIDs := lo.Keys(m.teacherMask)
	sort.Slice(teacherIDs, func(i, j int) bool { return teacherIDs[i] < teacherIDs[j] })
	for _, id := range teacherIDs {
		mix(uint64(id))
		for _, w := range m.teacherMask[id].words {
			mix(w)
		}
	}
	mix(uint64(m.grid.Days), uint64(m.grid.Periods))
	return h
}

func hashString(s string) uint64 {
	h := uint64(1469598103934665603)
	for i := 0; i < len(s); i++ {
		h = (h ^ uint64(s[i])) * 1099511628211
	}
	return h
}

// expandPreferredPeriods turns a per-day period-band bitmask into a full-week
// slot mask marking the preferred slots.
func expandPreferredPeriods(band int64, grid TimeGrid) SlotMask {
	mask := NewSlotMask(grid.Slots())
	if band == 0 {
		return mask
	}
	for day := 0; day < grid.Days; day++ {
		for period := 0; period < grid.Periods; period++ {
			if band&(1<<uint(period)) != 0 {
				mask.Set(grid.Slot(day, period))
			}
		}
	}
	return mask
}

// Curriculum returns the curriculum record for an id, if known.
func (m *Model) Curriculum(id int64) (*models.Curriculum, bool) {
	idx, ok := m.curIdx[id]
	if !ok {
		return nil, false
	}
	return m.curricula[idx].c, true
}

// Domain returns the static candidate placements for a curriculum id.
func (m *Model) Domain(id int64) []Placement {
	idx, ok := m.curIdx[id]
	if !ok {
		return nil
	}
	return m.curricula[idx].domain
}

// Grid returns the compiled time grid.
func (m *Model) Grid() TimeGrid {
	return m.grid
}

// Fingerprint identifies the problem instance; identical inputs produce the
// same value.
func (m *Model) Fingerprint() uint64 {
	return m.fingerprint
}
