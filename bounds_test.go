package mipcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckObjIntegrality(t *testing.T) {
	t.Run("integer costs on integer columns", func(t *testing.T) {
		s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))
		s.mdl.ColCost = []float64{3, 0}
		s.checkObjIntegrality()
		require.True(t, s.objective.integral)
		assert.InDelta(t, 1.0/3.0, s.objective.scale, 1e-12)
	})

	t.Run("cost on continuous column disables lattice", func(t *testing.T) {
		s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))
		s.checkObjIntegrality()
		assert.False(t, s.objective.integral)
	})

	t.Run("all zero objective is integral", func(t *testing.T) {
		s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))
		s.mdl.ColCost = []float64{0, 0}
		s.checkObjIntegrality()
		require.True(t, s.objective.integral)
		assert.Equal(t, 1.0, s.objective.scale)
	})
}

func TestComputeNewUpperLimitLattice(t *testing.T) {
	s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))
	s.objective = objectiveIntegrality{integral: true, scale: 1}

	limit := s.computeNewUpperLimit(10.5, 0, 0)
	// Greatest lattice value strictly below 10.5 is 10, loosened by feastol.
	assert.InDelta(t, 10, limit, 2*s.state.Feastol)
	assert.Less(t, limit, 10.5)

	// An integral reference steps one full lattice point down.
	limit = s.computeNewUpperLimit(10.0, 0, 0)
	assert.InDelta(t, 9, limit, 2*s.state.Feastol)
}

func TestComputeNewUpperLimitContinuous(t *testing.T) {
	s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))

	ub := 10.5
	limit := s.computeNewUpperLimit(ub, 0, 0)
	assert.InDelta(t, ub-s.state.Feastol, limit, 1e-12)

	limit = s.computeNewUpperLimit(ub, 1.0, 0)
	assert.InDelta(t, ub-1.0, limit, 1e-12)

	limit = s.computeNewUpperLimit(ub, 0, 0.1)
	assert.InDelta(t, ub-0.1*math.Abs(ub), limit, 1e-12)
}

// The cutoff rule must never exclude a strictly better lattice point: for
// any reference ub, the greatest lattice value strictly below ub stays at or
// below the cutoff.
func TestCutoffNeverExcludesNextLatticePoint(t *testing.T) {
	s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))

	for _, scale := range []float64{1, 2, 5} {
		s.objective = objectiveIntegrality{integral: true, scale: scale}
		for _, ub := range []float64{-7.3, -1, 0, 0.2, 1, 3.5, 10, 123.75} {
			limit := s.computeNewUpperLimit(ub, 0, 0)
			nextBetter := math.Floor(scale*ub-0.5) / scale
			assert.LessOrEqualf(t, nextBetter, limit,
				"scale %g ub %g excludes %g", scale, ub, nextBetter)
			assert.Lessf(t, limit, ub, "scale %g ub %g", scale, ub)
		}
	}
}

func TestAddIncumbentStrictImprovement(t *testing.T) {
	s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))

	require.True(t, s.addIncumbent([]float64{2, 1}, 3, SourceHeuristicRounding))
	require.Equal(t, 3.0, s.state.UpperBound)
	require.Equal(t, int64(1), s.state.NumImprovingSols)
	assert.Equal(t, SourceHeuristicRounding, s.state.IncumbentSource)

	// An equal objective is not an improvement; bounds stay untouched.
	s.addIncumbent([]float64{1, 2}, 3, SourceRandomizedRounding)
	assert.Equal(t, 3.0, s.state.UpperBound)
	assert.Equal(t, int64(1), s.state.NumImprovingSols)
	assert.Equal(t, SourceHeuristicRounding, s.state.IncumbentSource)

	// A strictly better candidate replaces it.
	require.True(t, s.addIncumbent([]float64{1, 0}, 1, SourceFeasibilityPump))
	assert.Equal(t, 1.0, s.state.UpperBound)
	assert.Equal(t, int64(2), s.state.NumImprovingSols)
	assert.Equal(t, SourceFeasibilityPump, s.state.IncumbentSource)
}

func TestAddIncumbentUpperBoundMonotone(t *testing.T) {
	s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))

	objs := []float64{6, 4, 5, 2, 2, 7}
	sols := [][]float64{{3, 3}, {2, 2}, {3, 2}, {1, 1}, {1, 1}, {4, 3}}
	prev := math.Inf(1)
	for i, obj := range objs {
		s.addIncumbent(sols[i], obj, SourceEvaluateNode)
		assert.LessOrEqual(t, s.state.UpperBound, prev)
		prev = s.state.UpperBound
	}
	assert.Equal(t, 2.0, s.state.UpperBound)
}

func TestAddIncumbentPrunesNodeQueue(t *testing.T) {
	s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))

	s.queue.Emplace(0.5, 0.5, 1)
	s.queue.Emplace(5.5, 5.5, 2)
	require.Equal(t, 2, s.queue.NumActiveNodes())

	require.True(t, s.addIncumbent([]float64{2, 1}, 3, SourceSubSolve))
	assert.Equal(t, 1, s.queue.NumActiveNodes())
	assert.Greater(t, s.state.PrunedTreeWeight, 0.0)
}

func TestAddIncumbentContradictionClearsQueue(t *testing.T) {
	s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}))
	d := s.domain.(*fakeDomain)
	d.infeasibleAfter = 0

	s.queue.Emplace(0.5, 0.5, 1)
	require.True(t, s.addIncumbent([]float64{2, 1}, 3, SourceSubSolve))
	assert.Equal(t, 0, s.queue.NumActiveNodes())
	assert.Equal(t, 1.0, s.state.PrunedTreeWeight)
}

func TestSolutionLogReceivesImprovingSolutions(t *testing.T) {
	dir := t.TempDir()
	log, err := openTestSolutionLog(dir)
	require.NoError(t, err)
	defer log.Close()

	s := newTestSolver(twoColModel(), defaultCollaborators(&fakeRelaxation{}),
		WithSolutionLog(log))

	require.True(t, s.addIncumbent([]float64{2, 1}, 3, SourceHeuristicRounding))
	require.True(t, s.addIncumbent([]float64{1, 0}, 1, SourceHeuristicRounding))
	assert.Equal(t, 2, log.NumRecords())
}
