package mipcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimalize/mipcore/model"
)

func TestSetTerminalStatusFirstWriterWins(t *testing.T) {
	st := newSearchState(1e-6, 1e-9, math.Inf(1))
	require.Equal(t, StatusNotSet, st.Status())

	assert.True(t, st.SetTerminalStatus(StatusTimeLimit))
	assert.False(t, st.SetTerminalStatus(StatusOptimal))
	assert.Equal(t, StatusTimeLimit, st.Status())
}

func TestHasIncumbentRequiresFeasibility(t *testing.T) {
	st := newSearchState(1e-6, 1e-9, math.Inf(1))
	assert.False(t, st.HasIncumbent())

	st.Incumbent = []float64{1}
	st.IncumbentObjective = 1
	assert.True(t, st.HasIncumbent())

	// A retained best-effort solution with residual violations does not
	// count as a feasible incumbent.
	st.RowViolation = 0.5
	assert.False(t, st.HasIncumbent())
	st.RowViolation = st.Feastol
	assert.True(t, st.HasIncumbent())
}

func TestMarkBeforeRunBaselines(t *testing.T) {
	st := newSearchState(1e-6, 1e-9, math.Inf(1))
	st.NumNodes = 5
	st.NumLeaves = 3
	st.TotalLpIterations = 1000
	st.HeuristicLpIterations = 100
	st.SepaLpIterations = 50
	st.SbLpIterations = 25

	st.markBeforeRunBaselines()

	assert.Equal(t, int64(5), st.NumNodesBeforeRun)
	assert.Equal(t, int64(3), st.NumLeavesBeforeRun)
	assert.Equal(t, int64(1000), st.TotalLpIterationsBeforeRun)
	assert.Equal(t, int64(100), st.HeuristicLpIterationsBeforeRun)
	assert.Equal(t, int64(50), st.SepaLpIterationsBeforeRun)
	assert.Equal(t, int64(25), st.SbLpIterationsBeforeRun)
}

func TestLimitsToBounds(t *testing.T) {
	t.Run("open primal bound", func(t *testing.T) {
		s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))
		s.state.LowerBound = 3

		dual, primal, gap := s.limitsToBounds()
		assert.Equal(t, 3.0, dual)
		assert.True(t, math.IsInf(primal, 1))
		assert.True(t, math.IsInf(gap, 1))
	})

	t.Run("relative gap in percent", func(t *testing.T) {
		s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))
		s.state.LowerBound = 3
		s.state.UpperBound = 4

		dual, primal, gap := s.limitsToBounds()
		assert.Equal(t, 3.0, dual)
		assert.Equal(t, 4.0, primal)
		assert.InDelta(t, 25.0, gap, 1e-9)
	})

	t.Run("offset shifts into original space", func(t *testing.T) {
		s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))
		s.mdl.Offset = 10
		s.state.LowerBound = 3
		s.state.UpperBound = 4

		dual, primal, _ := s.limitsToBounds()
		assert.Equal(t, 13.0, dual)
		assert.Equal(t, 14.0, primal)
	})

	t.Run("maximize negates both bounds", func(t *testing.T) {
		m := twoColModel()
		m.Sense = model.Maximize
		s := newTestSolver(m, defaultCollaborators(&fakeRelaxation{}))
		s.state.LowerBound = -4
		s.state.UpperBound = -3

		dual, primal, gap := s.limitsToBounds()
		assert.Equal(t, 4.0, dual)
		assert.Equal(t, 3.0, primal)
		assert.InDelta(t, 100.0/3.0, gap, 1e-9)
	})

	t.Run("near-zero bounds snap to zero", func(t *testing.T) {
		s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))
		s.state.LowerBound = 1e-12
		s.state.UpperBound = 1e-12

		dual, primal, gap := s.limitsToBounds()
		assert.Equal(t, 0.0, dual)
		assert.Equal(t, 0.0, primal)
		assert.Equal(t, 0.0, gap)
	})
}
