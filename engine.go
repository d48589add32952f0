package mipcore

import (
	"context"

	"github.com/optimalize/mipcore/model"
)

// RelaxationStatus classifies the outcome of a relaxation resolve.
type RelaxationStatus uint8

const (
	RelaxNotSet RelaxationStatus = iota
	RelaxOptimal
	RelaxInfeasible
	RelaxUnbounded
	RelaxLimitReached
)

// String implements fmt.Stringer.
func (s RelaxationStatus) String() string {
	switch s {
	case RelaxOptimal:
		return "optimal"
	case RelaxInfeasible:
		return "infeasible"
	case RelaxUnbounded:
		return "unbounded"
	case RelaxLimitReached:
		return "limit-reached"
	}
	return "not-set"
}

// RelaxationResult is the outcome of one relaxation resolve.
type RelaxationResult struct {
	Status    RelaxationStatus
	Objective float64
	Solution  []float64
	Duals     []float64
	// FractionalIntegers lists the integer columns whose relaxation value
	// is fractional beyond the feasibility tolerance.
	FractionalIntegers []int
	// DualFeasible reports whether the unscaled dual solution is feasible,
	// making Objective a valid lower bound.
	DualFeasible bool
}

// RelaxationEngine is the continuous relaxation solver driven by the root
// loop. It is invoked synchronously from the orchestration thread and never
// concurrently with itself.
type RelaxationEngine interface {
	// LoadModel installs the current (presolved) model.
	LoadModel(m *model.Model) error

	// Resolve solves the relaxation against the current bounds of the
	// domain engine and returns the classified result.
	Resolve(domain DomainEngine) RelaxationResult

	// SetObjectiveLimit makes the engine stop early once the objective
	// provably exceeds v.
	SetObjectiveLimit(v float64)

	// SetIterationLimit caps the next resolves; n <= 0 removes the cap.
	SetIterationLimit(n int64)

	// Basis returns the current simplex basis.
	Basis() model.Basis

	// SetBasis installs a starting basis.
	SetBasis(b model.Basis)

	// NumIterations returns the cumulative iteration count, used to
	// attribute iterations to work categories.
	NumIterations() int64

	// AvgSolveIterations returns the running average iterations per solve.
	AvgSolveIterations() float64

	// NumRows returns the current row count, which exceeds the model row
	// count when separated cuts are present.
	NumRows() int
}

// PresolveResult is the outcome of a presolve run.
type PresolveResult struct {
	// Model is the presolved model; nil when Status is terminal.
	Model *model.Model
	// Status is StatusNotSet when the search must continue on Model, or a
	// terminal status when presolve alone decided the problem.
	Status ModelStatus
}

// Presolver reduces the model and maps solutions back to the original
// space. The index-map accessors refer to the most recent Run.
type Presolver interface {
	// Run presolves the current model. The basis hint, when valid, is a
	// root basis in the original space.
	Run(rootBasisHint *model.Basis) (PresolveResult, error)

	// UndoPrimal maps a reduced-space solution to the original space.
	UndoPrimal(reduced []float64) []float64

	// ReducedPrimal maps an original-space solution into the current
	// reduced space, used to install an initial incumbent.
	ReducedPrimal(original []float64) []float64

	OrigColIndex(i int) int
	OrigRowIndex(i int) int
	OrigNumCol() int
	OrigNumRow() int

	// AppendCutsToModel extends the postsolve index maps by n cut rows
	// before a restart presolve; RemoveCutsFromModel undoes it after.
	AppendCutsToModel(n int)
	RemoveCutsFromModel(n int)

	// Substitutions returns the number of integer columns eliminated by
	// means other than domain fixing since the last Run.
	Substitutions() int
}

// BoundKind selects which bound of a column to change.
type BoundKind uint8

const (
	BoundLower BoundKind = iota
	BoundUpper
)

// DomainEngine is the constraint propagation engine owning the mutable
// bound domain. It is mutated only by the orchestration thread.
type DomainEngine interface {
	Propagate()
	Infeasible() bool
	ChangeBound(kind BoundKind, col int, value float64)
	ChangedCols() []int
	ClearChangedCols()
	ComputeRowActivities()
	ObjectiveLowerBound() float64
	IsFixed(col int) bool
	ColLower(col int) float64
	ColUpper(col int) float64
}

// Separator runs cut separation rounds against the current relaxation.
type Separator interface {
	// SeparationRound separates cuts for the current relaxation solution
	// and returns the number of cuts added.
	SeparationRound(domain DomainEngine, status RelaxationStatus) int

	// SeparateStoredCuts re-separates the cuts kept in the pool against the
	// current relaxation solution and returns the number of cuts added.
	// Called after a restart, when the pool carries cuts found before the
	// model was reduced.
	SeparateStoredCuts(domain DomainEngine) int

	// NumCuts returns the number of cuts in the pool.
	NumCuts() int
}

// RedcostFixer deduces bound tightenings from relaxation dual values once a
// valid cutoff exists.
type RedcostFixer interface {
	// AddRootRedcost records the dual values of a dual-feasible root solve.
	AddRootRedcost(duals []float64, lpObjective float64)

	// PropagateRootRedcost applies reduced-cost fixing against the given
	// cutoff, tightening bounds through the domain engine.
	PropagateRootRedcost(cutoff float64, domain DomainEngine)
}

// Orbitope is a regular block structure found by symmetry detection.
type Orbitope struct {
	NumRows int
	NumCols int
	// Packing marks an orbitope whose rows form packing constraints,
	// enabling stronger fixing.
	Packing bool
}

// StabilizerOrbits enables orbital fixing derived from the symmetry group.
type StabilizerOrbits interface {
	// OrbitalFixing tightens bounds through the domain engine and returns
	// the number of fixed columns.
	OrbitalFixing(domain DomainEngine) int
}

// Symmetries is the result of one symmetry detection run.
type Symmetries struct {
	NumGenerators   int
	NumPerms        int
	Orbitopes       []Orbitope
	NumOrbitopeCols int
	// Orbits is non-nil when the generators admit stabilizer-orbit fixing.
	Orbits StabilizerOrbits
}

// SymmetryEngine detects permutation symmetries of the presolved model.
// LoadModelAsGraph and InitializeDetection run on the orchestration thread;
// Run executes as a background task on a model snapshot.
type SymmetryEngine interface {
	LoadModelAsGraph(m *model.Model, tol float64)
	InitializeDetection() bool
	Run(ctx context.Context) Symmetries
}

// InteriorPointSolver computes the analytic center of the feasible region by
// solving a zero-objective interior-point relaxation on a model snapshot.
type InteriorPointSolver interface {
	SolveZeroObjective(ctx context.Context, m *model.Model) (center []float64, ok bool)
}

// ContinuousSolver solves a continuous model, used for the one permitted
// repair attempt on an infeasible candidate solution.
type ContinuousSolver interface {
	Solve(m *model.Model) (solution []float64, feasible bool)
}

// Heuristics is the primal heuristics collaborator. Implementations submit
// candidate solutions back through Solver.TrySolution. Any method may be a
// no-op.
type Heuristics interface {
	RandomizedRounding(sol []float64)
	CentralRounding(center []float64)
	RENS(sol []float64)
	FeasibilityPump()
	RootReducedCost()
	Trivial()
}

// PseudoCostEstimator estimates the best attainable objective below the
// current relaxation solution, used to order the root node in the queue.
type PseudoCostEstimator interface {
	BestEstimate(sol []float64, lowerBound float64) float64
}

// Collaborators bundles the external engines consumed by the solver core.
// Relaxation and NewDomain are required; every other collaborator is
// optional and its absence disables the corresponding feature.
type Collaborators struct {
	Relaxation RelaxationEngine

	// NewDomain builds a propagation domain for a (presolved) model; it is
	// re-invoked after every restart.
	NewDomain func(m *model.Model) DomainEngine

	// Presolver enables presolve-triggered restarts. Nil disables both.
	Presolver Presolver

	// NewSeparator builds a cut separator for a model; re-invoked after
	// every restart. Nil disables separation.
	NewSeparator func(m *model.Model) Separator

	// NewRedcostFixer builds the reduced-cost fixer; re-invoked after
	// every restart. Nil disables reduced-cost fixing.
	NewRedcostFixer func(m *model.Model) RedcostFixer

	Heuristics    Heuristics
	Symmetry      SymmetryEngine
	InteriorPoint InteriorPointSolver
	Repair        ContinuousSolver
	Estimator     PseudoCostEstimator
}
