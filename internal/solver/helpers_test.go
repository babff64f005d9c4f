package solver

import (
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// testConfig returns a small grid configuration with unit weights so cost
// expectations stay easy to reason about.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DaysPerWeek = 5
	cfg.PeriodsPerDay = 4
	cfg.Weights = Weights{TeacherSpread: 1, ClassContinuity: 1, SubjectSpacing: 1, PreferredPeriod: 1}
	cfg.RNGSeed = 42
	return cfg
}

// testProblem builds a comfortably feasible instance: two teachers, two
// classes, three subjects, two single-capacity venues.
func testProblem() *Problem {
	return &Problem{
		Teachers: []models.Teacher{
			{ID: 1, Name: "Ms. Priya"},
			{ID: 2, Name: "Mr. Okoye"},
		},
		Classes: []models.Class{
			{ID: 1, Name: "10A"},
			{ID: 2, Name: "10B"},
		},
		Subjects: []models.Subject{
			{ID: "MATH", Name: "Mathematics"},
			{ID: "PHY", Name: "Physics"},
			{ID: "ENG", Name: "English"},
		},
		Venues: []models.Venue{
			{ID: 1, Name: "Room 101", Capacity: 1},
			{ID: 2, Name: "Room 102", Capacity: 1},
		},
		Curricula: []models.Curriculum{
			{ID: 1, ClassID: 1, SubjectID: "MATH", TeacherID: 1, TargetSessions: 3, WeekType: models.WeekEvery},
			{ID: 2, ClassID: 1, SubjectID: "PHY", TeacherID: 2, TargetSessions: 2, WeekType: models.WeekEvery},
			{ID: 3, ClassID: 2, SubjectID: "MATH", TeacherID: 1, TargetSessions: 2, WeekType: models.WeekEvery},
			{ID: 4, ClassID: 2, SubjectID: "ENG", TeacherID: 2, TargetSessions: 2, WeekType: models.WeekEvery},
		},
	}
}

func mustCompile(t *testing.T, p *Problem, cfg Config) *Model {
	t.Helper()
	m, err := Compile(p, cfg)
	require.NoError(t, err)
	return m
}

// requireValidSchedule replays a schedule assignment by assignment through a
// fresh detector and fails on the first hard-constraint violation. It also
// checks that every curriculum reached its target session count.
func requireValidSchedule(t *testing.T, m *Model, schedule *models.Schedule) {
	t.Helper()
	require.NotNil(t, schedule)

	st := NewState(m)
	detector := NewDetector(m)
	for _, a := range schedule.Assignments {
		conflicts := detector.Check(a, st)
		require.Emptyf(t, conflicts, "assignment %+v violates %v", a, conflicts)
		require.NoError(t, st.Push(a))
	}
	require.True(t, st.Complete(), "schedule is missing sessions")
}

func combinedJSON(t *testing.T, ids []int64) types.JSONText {
	t.Helper()
	raw, err := json.Marshal(ids)
	require.NoError(t, err)
	return types.JSONText(raw)
}
