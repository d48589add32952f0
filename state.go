package mipcore

import (
	"math"
)

// ModelStatus is the terminal status of a solve. It is written exactly once;
// the first writer wins and later writes are no-ops.
type ModelStatus uint8

const (
	StatusNotSet ModelStatus = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusUnboundedOrInfeasible
	StatusObjectiveTarget
	StatusTimeLimit
	StatusSolutionLimit
	StatusInterrupt
)

// String implements fmt.Stringer.
func (s ModelStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusUnboundedOrInfeasible:
		return "unbounded-or-infeasible"
	case StatusObjectiveTarget:
		return "objective-target"
	case StatusTimeLimit:
		return "time-limit"
	case StatusSolutionLimit:
		return "solution-limit"
	case StatusInterrupt:
		return "interrupt"
	}
	return "not-set"
}

// SolutionSource tags the provenance of a candidate or incumbent solution.
type SolutionSource uint8

const (
	SourceNone SolutionSource = iota
	SourceBranching
	SourceEvaluateNode
	SourceHeuristicRounding
	SourceCentralRounding
	SourceRandomizedRounding
	SourceFeasibilityPump
	SourceSubSolve
	SourceTrivial
	SourceEmptyModel
	SourceSolveLp
	SourceInitial
)

// String implements fmt.Stringer.
func (s SolutionSource) String() string {
	switch s {
	case SourceBranching:
		return "branching"
	case SourceEvaluateNode:
		return "evaluate-node"
	case SourceHeuristicRounding:
		return "heuristic-rounding"
	case SourceCentralRounding:
		return "central-rounding"
	case SourceRandomizedRounding:
		return "randomized-rounding"
	case SourceFeasibilityPump:
		return "feasibility-pump"
	case SourceSubSolve:
		return "sub-solve"
	case SourceTrivial:
		return "trivial"
	case SourceEmptyModel:
		return "empty-model"
	case SourceSolveLp:
		return "solve-lp"
	case SourceInitial:
		return "initial"
	}
	return "none"
}

// SearchState is the only mutable state shared across the search: bounds,
// the incumbent, and the monotone counters. It is owned by the orchestrator
// and passed by reference to every component; auxiliary tasks never see it.
type SearchState struct {
	// Bounds in the transformed (presolved, minimization) objective space.
	LowerBound float64
	UpperBound float64
	// UpperLimit is the strict cutoff below the upper bound; a candidate
	// must beat it. OptimalityLimit additionally folds in the gap
	// tolerances.
	UpperLimit      float64
	OptimalityLimit float64

	Feastol float64
	Epsilon float64

	// Incumbent in original space. Objective is +inf while none exists.
	Incumbent            []float64
	IncumbentObjective   float64
	IncumbentSource      SolutionSource
	BoundViolation       float64
	IntegralityViolation float64
	RowViolation         float64

	PrunedTreeWeight float64

	// Monotone counters. The BeforeRun baselines are re-established at
	// every restart so per-run progress can be measured; the counters
	// themselves are never decremented.
	NumNodes                       int64
	NumLeaves                      int64
	NumNodesBeforeRun              int64
	NumLeavesBeforeRun             int64
	TotalLpIterations              int64
	HeuristicLpIterations          int64
	SepaLpIterations               int64
	SbLpIterations                 int64
	TotalLpIterationsBeforeRun     int64
	HeuristicLpIterationsBeforeRun int64
	SepaLpIterationsBeforeRun      int64
	SbLpIterationsBeforeRun        int64

	NumRestarts      int
	NumRestartsRoot  int
	NumImprovingSols int64

	status ModelStatus
}

func newSearchState(feastol, epsilon, objectiveBound float64) SearchState {
	return SearchState{
		LowerBound:         math.Inf(-1),
		UpperBound:         math.Inf(1),
		UpperLimit:         objectiveBound,
		OptimalityLimit:    objectiveBound,
		Feastol:            feastol,
		Epsilon:            epsilon,
		IncumbentObjective: math.Inf(1),
	}
}

// SetTerminalStatus records a terminal status. The first writer wins; the
// return value reports whether this call was the writer.
func (s *SearchState) SetTerminalStatus(status ModelStatus) bool {
	if s.status != StatusNotSet {
		return false
	}
	s.status = status
	return true
}

// Status returns the current model status.
func (s *SearchState) Status() ModelStatus { return s.status }

// HasIncumbent reports whether a feasible incumbent exists.
func (s *SearchState) HasIncumbent() bool {
	return s.IncumbentObjective != math.Inf(1) &&
		s.BoundViolation <= s.Feastol &&
		s.IntegralityViolation <= s.Feastol &&
		s.RowViolation <= s.Feastol
}

// markBeforeRunBaselines snapshots every monotone counter at a restart
// boundary.
func (s *SearchState) markBeforeRunBaselines() {
	s.NumNodesBeforeRun = s.NumNodes
	s.NumLeavesBeforeRun = s.NumLeaves
	s.TotalLpIterationsBeforeRun = s.TotalLpIterations
	s.HeuristicLpIterationsBeforeRun = s.HeuristicLpIterations
	s.SepaLpIterationsBeforeRun = s.SepaLpIterations
	s.SbLpIterationsBeforeRun = s.SbLpIterations
}

// countLeaf records a terminal (pruned or solved) root outcome.
func (s *SearchState) countLeaf() {
	s.NumNodes++
	s.NumLeaves++
}
