// Package mipcore implements the root-search orchestrator of a
// mixed-integer optimization solver: the iterative cycle of relaxation
// solving, constraint propagation, cutting-plane separation, primal
// heuristics, symmetry-based fixing, and presolve-triggered restarts that
// establishes the first valid lower/upper bound pair before tree search
// begins. It owns the only mutable shared state (bounds, incumbent, column
// classification) that later search nodes read.
//
// The relaxation solver, presolve engine, propagation domain, cut
// separators, symmetry detection, and primal heuristics are external
// collaborators described by the interfaces in this package.
package mipcore

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/optimalize/mipcore/model"
	"github.com/optimalize/mipcore/nodequeue"
)

// Solver is the root-search orchestrator. All methods must be called from a
// single goroutine; auxiliary computations run on background workers but
// only ever against immutable model snapshots.
type Solver struct {
	opts    options
	logger  *Logger
	collabs Collaborators

	origModel *model.Model
	mdl       *model.Model

	state     SearchState
	partition *model.ColumnPartition
	rowProps  []model.RowProperty
	upLocks   []int
	downLocks []int

	relax    RelaxationEngine
	domain   DomainEngine
	sepa     Separator
	redcost  RedcostFixer
	presolve Presolver

	symmetry      SymmetryEngine
	interiorPoint InteriorPointSolver

	queue *nodequeue.Queue

	// incumbent is the reduced-space shadow of the incumbent; discarded at
	// every restart while the original-space incumbent survives.
	incumbent []float64

	rootLp           RelaxationResult
	firstLpSol       []float64
	rootLpSol        []float64
	firstLpObj       float64
	rootLpObj        float64
	firstRootLpIters int64

	rootBasis     model.Basis
	rootBasisHint *model.Basis

	objective       objectiveIntegrality
	maxSepaRounds   int
	maxTreeSizeLog2 int
	numBin          int

	detectSymmetries bool
	symmetries       Symmetries
	globalOrbits     StabilizerOrbits
	symResult        *AsyncResult[symOutcome]

	analyticCenterComputed bool
	analyticCenter         []float64
	centerResult           *AsyncResult[[]float64]

	tasks  *TaskGroup
	runCtx context.Context
	runErr error

	displayLimiter *rate.Limiter
	numDispLines   int
	startTime      time.Time
	running        atomic.Bool
}

// Result is the outcome of a root evaluation run.
type Result struct {
	// Status is the terminal model status, or StatusNotSet when the root
	// was evaluated without closing the bounds; the node queue then holds
	// the root node and tree search can proceed.
	Status ModelStatus

	// Objective and Solution describe the best incumbent in the original
	// space. Objective is +Inf when no solution was found; the solution may
	// carry residual violations when the status is not StatusOptimal, see
	// the violation fields.
	Objective float64
	Solution  []float64
	Source    SolutionSource

	BoundViolation       float64
	IntegralityViolation float64
	RowViolation         float64

	// DualBound and PrimalBound are in the original space, adjusted for the
	// objective sense. Gap is the relative gap in percent.
	DualBound   float64
	PrimalBound float64
	Gap         float64

	NumNodes         int64
	NumLpIterations  int64
	NumRestarts      int
	NumImprovingSols int64
	QueuedNodes      int
}

// New validates the collaborator set and prepares a solver for m. The model
// is snapshotted; the caller may mutate m afterwards.
func New(m *model.Model, collabs Collaborators, optFns ...Option) (*Solver, error) {
	if m == nil {
		return nil, ErrNoModel
	}
	if err := validateModelDims(m); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if collabs.Relaxation == nil {
		return nil, &ErrMissingCollaborator{Name: "Relaxation"}
	}
	if collabs.NewDomain == nil {
		return nil, &ErrMissingCollaborator{Name: "NewDomain"}
	}

	s := &Solver{
		opts:          o,
		logger:        o.logger,
		collabs:       collabs,
		origModel:     m.Snapshot(),
		relax:         collabs.Relaxation,
		symmetry:      collabs.Symmetry,
		interiorPoint: collabs.InteriorPoint,
		queue:         nodequeue.New(),
	}
	return s, nil
}

// validateModelDims rejects models whose slice lengths disagree with the
// stated dimensions before any collaborator sees them.
func validateModelDims(m *model.Model) error {
	for _, cols := range [][]float64{m.ColCost, m.ColLower, m.ColUpper} {
		if len(cols) != m.NumCol {
			return &ErrDimensionMismatch{Expected: m.NumCol, Actual: len(cols)}
		}
	}
	if len(m.Integrality) != 0 && len(m.Integrality) != m.NumCol {
		return &ErrDimensionMismatch{Expected: m.NumCol, Actual: len(m.Integrality)}
	}
	for _, rows := range [][]float64{m.RowLower, m.RowUpper} {
		if len(rows) != m.NumRow {
			return &ErrDimensionMismatch{Expected: m.NumRow, Actual: len(rows)}
		}
	}
	if len(m.AStart) != m.NumCol+1 {
		return &ErrDimensionMismatch{Expected: m.NumCol + 1, Actual: len(m.AStart)}
	}
	return nil
}

// Run performs the full root evaluation: presolve, setup, and the outer
// evaluate-restart loop. It blocks until the root is evaluated or a limit
// fires; ctx cancellation maps to StatusInterrupt. Run is not reentrant.
func (s *Solver) Run(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.runCtx = ctx
	s.runErr = nil
	s.startTime = time.Now()
	s.tasks = NewTaskGroup(ctx, s.opts.maxWorkers)
	defer s.cancelAuxTasks()
	s.displayLimiter = rate.NewLimiter(rate.Every(s.opts.minLoggingInterval), 1)

	s.state = newSearchState(s.opts.feastol, s.opts.epsilon, math.Inf(1))
	if !math.IsInf(s.opts.objectiveBound, 1) {
		// The user bound is stated in the original space; runSetup shifts it
		// into the working space together with the other bookkeeping.
		bound := float64(s.origModel.Sense) * s.opts.objectiveBound
		s.state.UpperLimit = bound
		s.state.OptimalityLimit = bound
	}

	s.maxSepaRounds = s.opts.maxSepaRounds
	if s.opts.submip {
		s.maxSepaRounds = min(s.maxSepaRounds, 5)
	}
	s.analyticCenterComputed = false

	if len(s.opts.initialSolution) != 0 {
		s.adoptInitialSolution()
	}

	if err := s.runPresolve(); err != nil {
		return s.result(), err
	}

	if s.state.Status() == StatusNotSet {
		if err := s.runSetup(); err != nil {
			return s.result(), err
		}
	}

	if s.state.Status() == StatusNotSet {
		if s.state.NumRestarts == 0 {
			// The separation budget scales with the expected tree size of
			// the first run.
			s.maxSepaRounds = min(s.maxSepaRounds,
				int(2*math.Sqrt(float64(s.maxTreeSizeLog2))))
		}
		for {
			outcome := s.evaluateRootNode()
			if outcome != rootRestart {
				break
			}
		}
	}

	s.finalizeStatus()
	s.opts.metrics.RecordRootEvaluation(time.Since(s.startTime))
	s.printDisplayLine(SourceNone)
	return s.result(), s.runErr
}

// adoptInitialSolution audits the user-supplied assignment on the original
// model and stores it as the running best; a feasible one becomes the
// initial incumbent during setup.
func (s *Solver) adoptInitialSolution() {
	sol := s.opts.initialSolution
	if len(sol) != s.origModel.NumCol {
		s.logger.Warn("initial solution has wrong dimension",
			"expected", s.origModel.NumCol, "actual", len(sol))
		return
	}
	audit := auditSolution(s.origModel, sol)
	s.state.Incumbent = append([]float64(nil), sol...)
	s.state.IncumbentObjective = audit.objective.Float64() + s.origModel.Offset
	s.state.IncumbentSource = SourceInitial
	s.state.BoundViolation = audit.boundViol
	s.state.IntegralityViolation = audit.intViol
	s.state.RowViolation = audit.rowViol
}

// runPresolve reduces the original model, or installs the identity reduction
// when presolve is unavailable or disabled.
func (s *Solver) runPresolve() error {
	working := s.workingModel()

	if !s.opts.presolve || s.collabs.Presolver == nil {
		s.presolve = &identityPresolver{m: working}
		s.mdl = working.Snapshot()
		return nil
	}

	s.presolve = s.collabs.Presolver
	res, err := s.presolve.Run(nil)
	if err != nil {
		// Keep a working model installed so the result can still be built.
		s.mdl = working
		s.runErr = err
		s.state.SetTerminalStatus(StatusInterrupt)
		return err
	}
	if res.Status != StatusNotSet {
		s.state.SetTerminalStatus(res.Status)
		if res.Model != nil {
			s.mdl = res.Model
		} else {
			s.mdl = working
		}
		if res.Status == StatusOptimal {
			s.state.UpperBound = 0
			s.transformNewIntegerFeasibleSolution(nil, true, SourceEmptyModel)
			s.state.LowerBound = s.state.UpperBound
		}
		return nil
	}
	s.mdl = res.Model
	return nil
}

// workingModel folds the objective sense into the costs so the search always
// minimizes; the offset moves along so bound reporting can undo the shift.
func (s *Solver) workingModel() *model.Model {
	w := s.origModel.Snapshot()
	if w.Sense == model.Maximize {
		for i := range w.ColCost {
			w.ColCost[i] = -w.ColCost[i]
		}
		w.Offset = -w.Offset
	}
	return w
}

// runSetup classifies columns, caches row properties, installs the initial
// incumbent, and primes the propagation domain for s.mdl. Called once at the
// start and again after every restart.
func (s *Solver) runSetup() error {
	m := s.mdl

	// Shift the objective bookkeeping into the current reduced space.
	s.state.UpperLimit -= m.Offset
	s.state.OptimalityLimit -= m.Offset
	s.state.LowerBound -= m.Offset
	s.state.UpperBound -= m.Offset

	s.domain = s.collabs.NewDomain(m)
	if s.collabs.NewSeparator != nil {
		s.sepa = s.collabs.NewSeparator(m)
	}
	if s.collabs.NewRedcostFixer != nil {
		s.redcost = s.collabs.NewRedcostFixer(m)
	}
	s.queue.SetOptimalityLimit(s.state.OptimalityLimit)

	if s.state.IncumbentObjective < math.Inf(1) {
		s.installStartSolution()
	}

	if m.NumCol == 0 {
		s.addIncumbent(nil, 0, SourceEmptyModel)
	}

	partition, badCol, ok := model.NewColumnPartition(m)
	if !ok {
		return &ErrInvalidVarType{Col: badCol, VarType: m.VarTypeOf(badCol)}
	}
	s.partition = partition

	m.BuildRowwise()
	s.upLocks, s.downLocks = m.ColumnLocks()
	s.rowProps = m.RowProperties(s.state.Epsilon)
	m.RoundIntegralRows(s.rowProps, s.state.Feastol)

	s.domain.ComputeRowActivities()
	s.domain.Propagate()
	if s.domain.Infeasible() {
		s.state.SetTerminalStatus(StatusInfeasible)
		s.state.LowerBound = math.Inf(1)
		s.state.PrunedTreeWeight = 1.0
		return nil
	}

	if m.NumCol == 0 {
		s.state.LowerBound = s.state.UpperBound
		s.state.SetTerminalStatus(StatusOptimal)
		return nil
	}

	if s.checkLimits(0) {
		return nil
	}
	s.domain.ClearChangedCols()

	s.checkObjIntegrality()
	s.rootLp = RelaxationResult{}
	s.rootLpSol = s.rootLpSol[:0]
	s.firstLpSol = s.firstLpSol[:0]

	s.numBin = 0
	s.maxTreeSizeLog2 = 0
	s.partition.IntegerCols(func(i int) bool {
		width := 1.0 + m.ColUpper[i] - m.ColLower[i]
		s.maxTreeSizeLog2 += int(math.Ceil(math.Log2(math.Min(1024.0, width))))
		if m.ColLower[i] == 0 && m.ColUpper[i] == 1 {
			s.numBin++
		}
		return true
	})

	s.basisTransfer()

	s.detectSymmetries = s.opts.detectSymmetries && s.symmetry != nil && s.numBin > 0

	s.logger.LogModelSizes(s.runCtx, s.state.NumRestarts > 0,
		m.NumRow, m.NumCol, s.numBin, s.partition.NumInteger()-s.numBin,
		s.partition.NumImplied(), s.partition.NumContinuous(), m.NumNonzero())

	if math.IsInf(s.state.UpperLimit, 1) {
		s.analyticCenterComputed = false
	}
	s.analyticCenter = nil
	s.symmetries = Symmetries{}
	return nil
}

// ColumnLocks exposes the up and down lock counts of the working model's
// columns for heuristics collaborators picking rounding directions. The
// slices are populated during setup and replaced on restart; callers must
// not modify them.
func (s *Solver) ColumnLocks() (up, down []int) {
	return s.upLocks, s.downLocks
}

// installStartSolution folds a pre-existing original-space solution (user
// supplied or surviving a restart) into the reduced space and, when
// feasible, makes it the bounding incumbent.
func (s *Solver) installStartSolution() {
	s.incumbent = s.presolve.ReducedPrimal(s.state.Incumbent)
	solObj := s.workObjective(s.state.IncumbentObjective) - s.mdl.Offset
	feasible := s.state.HasIncumbent()
	if s.state.NumRestarts == 0 {
		s.logger.Info("start solution",
			"feasible", feasible,
			"objective", s.state.IncumbentObjective,
		)
	}
	if feasible && solObj < s.state.UpperBound {
		s.state.UpperBound = solObj
		newUpperLimit := s.computeNewUpperLimit(solObj, 0, 0)
		s.saveReportMipSolution(newUpperLimit)
		if newUpperLimit < s.state.UpperLimit {
			s.state.UpperLimit = newUpperLimit
			s.state.OptimalityLimit = s.computeNewUpperLimit(solObj, s.opts.absGap, s.opts.relGap)
			s.queue.SetOptimalityLimit(s.state.OptimalityLimit)
		}
	}
}

// finalizeStatus closes the run when the root evaluation alone decided the
// problem: an empty queue means no open nodes remain, so the incumbent (if
// any) is optimal.
func (s *Solver) finalizeStatus() {
	if s.state.Status() != StatusNotSet {
		return
	}
	if s.queue.NumActiveNodes() > 0 {
		return
	}
	if s.state.HasIncumbent() {
		s.state.LowerBound = s.state.UpperBound
		s.state.SetTerminalStatus(StatusOptimal)
		s.logger.LogTerminal(s.runCtx, StatusOptimal, "root evaluation closed the bounds")
		return
	}
	s.state.SetTerminalStatus(StatusInfeasible)
	s.logger.LogTerminal(s.runCtx, StatusInfeasible, "no feasible solution exists")
}

// result snapshots the search state into the public result form.
func (s *Solver) result() Result {
	dual, primal, gapPct := s.limitsToBounds()
	res := Result{
		Status:               s.state.Status(),
		Objective:            s.state.IncumbentObjective,
		Source:               s.state.IncumbentSource,
		BoundViolation:       s.state.BoundViolation,
		IntegralityViolation: s.state.IntegralityViolation,
		RowViolation:         s.state.RowViolation,
		DualBound:            dual,
		PrimalBound:          primal,
		Gap:                  gapPct,
		NumNodes:             s.state.NumNodes,
		NumLpIterations:      s.state.TotalLpIterations,
		NumRestarts:          s.state.NumRestarts,
		NumImprovingSols:     s.state.NumImprovingSols,
		QueuedNodes:          s.queue.NumActiveNodes(),
	}
	if len(s.state.Incumbent) != 0 {
		res.Solution = append([]float64(nil), s.state.Incumbent...)
	}
	return res
}

// TrySolution offers an original-space assignment to the solver as a
// candidate incumbent, as primal heuristics do. It must be called from the
// orchestration goroutine, typically from inside a heuristics collaborator.
func (s *Solver) TrySolution(sol []float64, source SolutionSource) bool {
	return s.trySolution(sol, source)
}

// Bounds returns the current dual and primal bound in the original space.
func (s *Solver) Bounds() (dualBound, primalBound float64) {
	dual, primal, _ := s.limitsToBounds()
	return dual, primal
}

// identityPresolver is the Presolver used when presolve is disabled: the
// reduction is the identity and every index maps to itself.
type identityPresolver struct {
	m *model.Model
}

func (p *identityPresolver) Run(*model.Basis) (PresolveResult, error) {
	return PresolveResult{Model: p.m.Snapshot()}, nil
}

func (p *identityPresolver) UndoPrimal(reduced []float64) []float64 {
	return append([]float64(nil), reduced...)
}

func (p *identityPresolver) ReducedPrimal(original []float64) []float64 {
	return append([]float64(nil), original...)
}

func (p *identityPresolver) OrigColIndex(i int) int { return i }
func (p *identityPresolver) OrigRowIndex(i int) int { return i }
func (p *identityPresolver) OrigNumCol() int { return p.m.NumCol }
func (p *identityPresolver) OrigNumRow() int { return p.m.NumRow }
func (p *identityPresolver) AppendCutsToModel(int) {}
func (p *identityPresolver) RemoveCutsFromModel(int) {}
func (p *identityPresolver) Substitutions() int { return 0 }
