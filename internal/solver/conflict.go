package solver

import (
	"fmt"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// ConflictKind names the hard constraint a proposed assignment violates.
type ConflictKind string

const (
	ConflictTeacherBusy          ConflictKind = "TEACHER_BUSY"
	ConflictClassBusy            ConflictKind = "CLASS_BUSY"
	ConflictVenueFull            ConflictKind = "VENUE_FULL"
	ConflictForbiddenSlot        ConflictKind = "FORBIDDEN_SLOT"
	ConflictSameDaySameSubject   ConflictKind = "SAME_DAY_SAME_SUBJECT"
	ConflictWeekParityClash      ConflictKind = "WEEK_PARITY_CLASH"
	ConflictFixedCourseOverwrite ConflictKind = "FIXED_COURSE_OVERWRITE"
)

// ForbiddenReason says which mask ruled a slot out.
type ForbiddenReason string

const (
	ForbiddenByTeacher   ForbiddenReason = "teacher"
	ForbiddenBySubject   ForbiddenReason = "subject"
	ForbiddenByClass     ForbiddenReason = "class"
	ForbiddenByExclusion ForbiddenReason = "exclusion"
)

// Conflict is one violated constraint. Kind selects which fields carry
// meaning; the heuristics and the swap suggester read them to decide what to
// unassign next.
type Conflict struct {
	Kind          ConflictKind    `json:"kind"`
	Slot          int             `json:"slot"`
	Day           int             `json:"day,omitempty"`
	TeacherID     int64           `json:"teacher_id,omitempty"`
	ClassID       int64           `json:"class_id,omitempty"`
	SubjectID     string          `json:"subject_id,omitempty"`
	VenueID       int64           `json:"venue_id,omitempty"`
	Reason        ForbiddenReason `json:"reason,omitempty"`
	OtherID       int64           `json:"other_curriculum_id,omitempty"`
	FixedCourseID int64           `json:"fixed_course_id,omitempty"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s@slot%d", c.Kind, c.Slot)
}

// Detector checks proposed assignments against the current search state. It
// never mutates the state; every check is amortized O(1) via the busy
// bitsets, falling back to an occupant scan only on the conflict path.
type Detector struct {
	model *Model
	// allowSameDay suppresses the same-day-same-subject constraint globally.
	allowSameDay bool
}

// NewDetector builds a detector bound to a compiled model.
func NewDetector(m *Model) *Detector {
	return &Detector{model: m, allowSameDay: m.cfg.AllowSameDaySameSubject}
}

// Check reports every hard constraint the assignment would violate against
// the given state. An empty result means the placement is feasible.
func (d *Detector) Check(a models.Assignment, st *State) []Conflict {
	idx, ok := d.model.curIdx[a.CurriculumID]
	if !ok {
		return []Conflict{{Kind: ConflictForbiddenSlot, Slot: a.Slot, Reason: ForbiddenByExclusion}}
	}
	info := d.model.curricula[idx]
	week := info.c.WeekType
	day := d.model.grid.Day(a.Slot)

	var conflicts []Conflict

	if pin, pinned := d.pinFor(info.c.ID, a.SessionIndex); pinned {
		if pin.Slot != a.Slot || pin.VenueID != a.VenueID {
			conflicts = append(conflicts, Conflict{
				Kind:          ConflictFixedCourseOverwrite,
				Slot:          a.Slot,
				FixedCourseID: pin.ID,
			})
		}
	}

	if !d.model.grid.Contains(a.Slot) {
		conflicts = append(conflicts, Conflict{Kind: ConflictForbiddenSlot, Slot: a.Slot, Reason: ForbiddenByExclusion})
		return conflicts
	}

	if d.model.teacherMask[info.c.TeacherID].Has(a.Slot) {
		conflicts = append(conflicts, Conflict{
			Kind: ConflictForbiddenSlot, Slot: a.Slot,
			Reason: ForbiddenByTeacher, TeacherID: info.c.TeacherID,
		})
	}
	if d.model.subjectMask[info.c.SubjectID].Has(a.Slot) {
		conflicts = append(conflicts, Conflict{
			Kind: ConflictForbiddenSlot, Slot: a.Slot,
			Reason: ForbiddenBySubject, SubjectID: info.c.SubjectID,
		})
	}
	for _, classID := range info.members {
		if d.model.classMask[classID].Has(a.Slot) {
			conflicts = append(conflicts, Conflict{
				Kind: ConflictForbiddenSlot, Slot: a.Slot,
				Reason: ForbiddenByClass, ClassID: classID,
			})
		}
	}
	venue, knownVenue := d.model.venues[a.VenueID]
	if !knownVenue {
		conflicts = append(conflicts, Conflict{
			Kind: ConflictForbiddenSlot, Slot: a.Slot,
			Reason: ForbiddenByExclusion, VenueID: a.VenueID,
		})
	} else if d.model.venueMask[a.VenueID].Has(a.Slot) {
		conflicts = append(conflicts, Conflict{
			Kind: ConflictForbiddenSlot, Slot: a.Slot,
			Reason: ForbiddenByExclusion, VenueID: a.VenueID,
		})
	}

	if st.teacherBusy[info.c.TeacherID].busy(a.Slot, week) {
		conflicts = append(conflicts, d.occupancyConflict(st, a, week, Conflict{
			Kind: ConflictTeacherBusy, Slot: a.Slot, TeacherID: info.c.TeacherID,
		}, func(other *curriculumInfo) bool {
			return other.c.TeacherID == info.c.TeacherID
		}))
	}

	for _, classID := range info.members {
		if st.classBusy[classID].busy(a.Slot, week) {
			cid := classID
			conflicts = append(conflicts, d.occupancyConflict(st, a, week, Conflict{
				Kind: ConflictClassBusy, Slot: a.Slot, ClassID: classID,
			}, func(other *curriculumInfo) bool {
				for _, member := range other.members {
					if member == cid {
						return true
					}
				}
				return false
			}))
		}
	}

	if knownVenue && st.venueLoad[a.VenueID].max(a.Slot, week)+1 > venue.Capacity {
		conflicts = append(conflicts, Conflict{
			Kind: ConflictVenueFull, Slot: a.Slot, VenueID: a.VenueID,
		})
	}

	if teacher := d.model.teachers[info.c.TeacherID]; teacher != nil && teacher.MaxPerDay > 0 {
		if st.teacherDay[info.c.TeacherID].max(day, week)+1 > teacher.MaxPerDay {
			conflicts = append(conflicts, Conflict{
				Kind: ConflictTeacherBusy, Slot: a.Slot, Day: day, TeacherID: info.c.TeacherID,
			})
		}
	}

	if !d.allowSameDay && !d.model.subjects[info.c.SubjectID].AllowSameDay {
		for _, classID := range info.members {
			key := sameDayKey{classID: classID, subjectID: info.c.SubjectID, day: day}
			if st.sameDay[key] > 0 {
				conflicts = append(conflicts, Conflict{
					Kind: ConflictSameDaySameSubject, Slot: a.Slot, Day: day,
					ClassID: classID, SubjectID: info.c.SubjectID,
				})
			}
		}
	}

	return conflicts
}

// occupancyConflict classifies a busy-slot clash. When both the proposed
// assignment and the occupant run on the same single-week parity the clash
// only exists because the parities coincide, so it is reported as a
// WeekParityClash carrying the occupant's curriculum id.
func (d *Detector) occupancyConflict(st *State, a models.Assignment, week models.WeekType, base Conflict, match func(*curriculumInfo) bool) Conflict {
	for _, other := range st.assignments {
		if other.Slot != a.Slot {
			continue
		}
		otherInfo := d.model.curricula[d.model.curIdx[other.CurriculumID]]
		if !match(otherInfo) {
			continue
		}
		if !otherInfo.c.WeekType.Overlaps(week) {
			continue
		}
		if week != models.WeekEvery && otherInfo.c.WeekType != models.WeekEvery {
			return Conflict{
				Kind:    ConflictWeekParityClash,
				Slot:    a.Slot,
				OtherID: other.CurriculumID,
			}
		}
		base.OtherID = other.CurriculumID
		return base
	}
	return base
}

// pinFor returns the fixed course pinning (curriculumID, sessionIndex), if
// any. Fixed courses occupy the lowest session indexes of their curriculum.
func (d *Detector) pinFor(curriculumID int64, sessionIndex int) (models.FixedCourse, bool) {
	pins := d.model.fixedByCur[curriculumID]
	if sessionIndex < len(pins) {
		return pins[sessionIndex], true
	}
	return models.FixedCourse{}, false
}
