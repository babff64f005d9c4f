package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

func kinds(conflicts []Conflict) []ConflictKind {
	out := make([]ConflictKind, len(conflicts))
	for i, c := range conflicts {
		out[i] = c.Kind
	}
	return out
}

func TestDetectorTeacherBusy(t *testing.T) {
	m := mustCompile(t, testProblem(), testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	require.NoError(t, st.Push(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}))

	// curriculum 3 shares teacher 1
	conflicts := detector.Check(models.Assignment{CurriculumID: 3, SessionIndex: 0, Slot: 0, VenueID: 2}, st)
	require.Contains(t, kinds(conflicts), ConflictTeacherBusy)
}

func TestDetectorClassBusy(t *testing.T) {
	m := mustCompile(t, testProblem(), testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	require.NoError(t, st.Push(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}))

	// curriculum 2 shares class 1 but not the teacher
	conflicts := detector.Check(models.Assignment{CurriculumID: 2, SessionIndex: 0, Slot: 0, VenueID: 2}, st)
	require.Contains(t, kinds(conflicts), ConflictClassBusy)
}

func TestDetectorVenueFull(t *testing.T) {
	m := mustCompile(t, testProblem(), testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	require.NoError(t, st.Push(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}))

	// curriculum 4: different teacher and class, same single-capacity venue
	conflicts := detector.Check(models.Assignment{CurriculumID: 4, SessionIndex: 0, Slot: 0, VenueID: 1}, st)
	require.Equal(t, []ConflictKind{ConflictVenueFull}, kinds(conflicts))
}

func TestDetectorForbiddenSlotReasons(t *testing.T) {
	p := testProblem()
	p.Teachers[0].ForbiddenMask = 0b1
	p.Subjects[1].ForbiddenMask = 0b10
	m := mustCompile(t, p, testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	conflicts := detector.Check(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}, st)
	require.Len(t, conflicts, 1)
	require.Equal(t, ConflictForbiddenSlot, conflicts[0].Kind)
	require.Equal(t, ForbiddenByTeacher, conflicts[0].Reason)

	conflicts = detector.Check(models.Assignment{CurriculumID: 2, SessionIndex: 0, Slot: 1, VenueID: 1}, st)
	require.Len(t, conflicts, 1)
	require.Equal(t, ForbiddenBySubject, conflicts[0].Reason)
}

func TestDetectorSameDaySameSubject(t *testing.T) {
	m := mustCompile(t, testProblem(), testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	// day 0, periods 0 and 1 for the same (class, subject)
	require.NoError(t, st.Push(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}))
	conflicts := detector.Check(models.Assignment{CurriculumID: 1, SessionIndex: 1, Slot: 1, VenueID: 1}, st)
	require.Contains(t, kinds(conflicts), ConflictSameDaySameSubject)

	// a different day is fine
	conflicts = detector.Check(models.Assignment{CurriculumID: 1, SessionIndex: 1, Slot: 4, VenueID: 1}, st)
	require.Empty(t, conflicts)
}

func TestDetectorSameDayAllowedBySubject(t *testing.T) {
	p := testProblem()
	p.Subjects[0].AllowSameDay = true
	m := mustCompile(t, p, testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	require.NoError(t, st.Push(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}))
	conflicts := detector.Check(models.Assignment{CurriculumID: 1, SessionIndex: 1, Slot: 1, VenueID: 1}, st)
	require.Empty(t, conflicts)
}

func TestDetectorSameDayAllowedGlobally(t *testing.T) {
	cfg := testConfig()
	cfg.AllowSameDaySameSubject = true
	m := mustCompile(t, testProblem(), cfg)
	detector := NewDetector(m)
	st := NewState(m)

	require.NoError(t, st.Push(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}))
	conflicts := detector.Check(models.Assignment{CurriculumID: 1, SessionIndex: 1, Slot: 1, VenueID: 1}, st)
	require.Empty(t, conflicts)
}

func TestDetectorWeekParity(t *testing.T) {
	p := testProblem()
	p.Curricula = []models.Curriculum{
		{ID: 1, ClassID: 1, SubjectID: "MATH", TeacherID: 1, TargetSessions: 1, WeekType: models.WeekOdd},
		{ID: 2, ClassID: 2, SubjectID: "PHY", TeacherID: 1, TargetSessions: 1, WeekType: models.WeekEven},
		{ID: 3, ClassID: 2, SubjectID: "ENG", TeacherID: 1, TargetSessions: 1, WeekType: models.WeekOdd},
		{ID: 4, ClassID: 2, SubjectID: "MATH", TeacherID: 1, TargetSessions: 1, WeekType: models.WeekEvery},
	}
	m := mustCompile(t, p, testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	require.NoError(t, st.Push(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}))

	// odd and even weeks never meet
	conflicts := detector.Check(models.Assignment{CurriculumID: 2, SessionIndex: 0, Slot: 0, VenueID: 2}, st)
	require.Empty(t, conflicts)

	// same parity on the same slot is a parity clash
	conflicts = detector.Check(models.Assignment{CurriculumID: 3, SessionIndex: 0, Slot: 0, VenueID: 2}, st)
	require.Equal(t, []ConflictKind{ConflictWeekParityClash}, kinds(conflicts))
	require.Equal(t, int64(1), conflicts[0].OtherID)

	// every-week collides with any parity, reported on the busy dimension
	conflicts = detector.Check(models.Assignment{CurriculumID: 4, SessionIndex: 0, Slot: 0, VenueID: 2}, st)
	require.Equal(t, []ConflictKind{ConflictTeacherBusy}, kinds(conflicts))
}

func TestDetectorFixedCourseOverwrite(t *testing.T) {
	p := testProblem()
	p.FixedCourses = []models.FixedCourse{{ID: 7, CurriculumID: 1, Slot: 2, VenueID: 1}}
	m := mustCompile(t, p, testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	conflicts := detector.Check(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 3, VenueID: 1}, st)
	require.Contains(t, kinds(conflicts), ConflictFixedCourseOverwrite)
	require.Equal(t, int64(7), conflicts[0].FixedCourseID)

	// the pinned placement itself is fine
	conflicts = detector.Check(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 2, VenueID: 1}, st)
	require.Empty(t, conflicts)
}

func TestDetectorTeacherMaxPerDay(t *testing.T) {
	p := testProblem()
	p.Teachers[0].MaxPerDay = 1
	m := mustCompile(t, p, testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	require.NoError(t, st.Push(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}))

	// second session for teacher 1 on day 0, different period and class
	conflicts := detector.Check(models.Assignment{CurriculumID: 3, SessionIndex: 0, Slot: 1, VenueID: 1}, st)
	require.Contains(t, kinds(conflicts), ConflictTeacherBusy)

	// day 1 is open
	conflicts = detector.Check(models.Assignment{CurriculumID: 3, SessionIndex: 0, Slot: 4, VenueID: 1}, st)
	require.Empty(t, conflicts)
}

func TestDetectorCombinedClassOccupiesMembers(t *testing.T) {
	p := testProblem()
	p.Curricula = append(p.Curricula, models.Curriculum{
		ID: 5, ClassID: 1, SubjectID: "ENG", TeacherID: 2, TargetSessions: 1,
		IsCombinedClass: true, CombinedClasses: combinedJSON(t, []int64{2}),
		WeekType: models.WeekEvery,
	})
	m := mustCompile(t, p, testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	require.NoError(t, st.Push(models.Assignment{CurriculumID: 5, SessionIndex: 0, Slot: 0, VenueID: 1}))

	// both member classes are busy at slot 0
	conflicts := detector.Check(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 2}, st)
	require.Contains(t, kinds(conflicts), ConflictClassBusy)
	conflicts = detector.Check(models.Assignment{CurriculumID: 3, SessionIndex: 0, Slot: 0, VenueID: 2}, st)
	require.Contains(t, kinds(conflicts), ConflictClassBusy)
}

func TestDetectorCombinedClassSameDayCountsMembers(t *testing.T) {
	p := testProblem()
	p.Curricula = append(p.Curricula, models.Curriculum{
		ID: 5, ClassID: 1, SubjectID: "MATH", TeacherID: 2, TargetSessions: 1,
		IsCombinedClass: true, CombinedClasses: combinedJSON(t, []int64{2}),
		WeekType: models.WeekEvery,
	})
	m := mustCompile(t, p, testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	// combined MATH session for classes {1, 2} on day 0
	require.NoError(t, st.Push(models.Assignment{CurriculumID: 5, SessionIndex: 0, Slot: 0, VenueID: 1}))

	// curriculum 3 is (class 2, MATH): same day, free teacher, free venue
	conflicts := detector.Check(models.Assignment{CurriculumID: 3, SessionIndex: 0, Slot: 1, VenueID: 2}, st)
	require.Equal(t, []ConflictKind{ConflictSameDaySameSubject}, kinds(conflicts))
	require.Equal(t, int64(2), conflicts[0].ClassID)

	// the next day is clear again
	conflicts = detector.Check(models.Assignment{CurriculumID: 3, SessionIndex: 0, Slot: 4, VenueID: 2}, st)
	require.Empty(t, conflicts)
}

func TestDetectorUnknownVenue(t *testing.T) {
	m := mustCompile(t, testProblem(), testConfig())
	detector := NewDetector(m)
	st := NewState(m)

	conflicts := detector.Check(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 99}, st)
	require.Equal(t, []ConflictKind{ConflictForbiddenSlot}, kinds(conflicts))
	require.Equal(t, ForbiddenByExclusion, conflicts[0].Reason)
	require.Equal(t, int64(99), conflicts[0].VenueID)

	err := st.Push(models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 99})
	require.Error(t, err)
	require.Zero(t, st.Len())
}
