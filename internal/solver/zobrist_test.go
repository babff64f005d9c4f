package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

func TestHashOrderIndependence(t *testing.T) {
	a := models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 3, VenueID: 1}
	b := models.Assignment{CurriculumID: 2, SessionIndex: 1, Slot: 7, VenueID: 2}
	c := models.Assignment{CurriculumID: 3, SessionIndex: 0, Slot: 11, VenueID: 1}

	h1 := HashAssignments([]models.Assignment{a, b, c})
	h2 := HashAssignments([]models.Assignment{c, a, b})
	require.Equal(t, h1, h2)
}

func TestHashDistinguishesSets(t *testing.T) {
	a := models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 3, VenueID: 1}
	b := models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 4, VenueID: 1}

	require.NotEqual(t, HashAssignments([]models.Assignment{a}), HashAssignments([]models.Assignment{b}))
	require.NotEqual(t, Tag(a), Tag(b))

	// session index matters even at the same slot
	c := a
	c.SessionIndex = 1
	require.NotEqual(t, Tag(a), Tag(c))
}

func TestHashIncrementalMatchesBatch(t *testing.T) {
	m := mustCompile(t, testProblem(), testConfig())
	st := NewState(m)

	a := models.Assignment{CurriculumID: 1, SessionIndex: 0, Slot: 0, VenueID: 1}
	b := models.Assignment{CurriculumID: 2, SessionIndex: 0, Slot: 1, VenueID: 2}

	require.True(t, st.Hash().Zero())
	require.NoError(t, st.Push(a))
	require.NoError(t, st.Push(b))
	require.Equal(t, HashAssignments([]models.Assignment{a, b}), st.Hash())

	_, err := st.Pop()
	require.NoError(t, err)
	require.Equal(t, HashAssignments([]models.Assignment{a}), st.Hash())

	_, err = st.Pop()
	require.NoError(t, err)
	require.True(t, st.Hash().Zero())
}
