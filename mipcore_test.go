package mipcore

import (
	"context"
	"math"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/optimalize/mipcore/model"
	"github.com/optimalize/mipcore/nodequeue"
	"github.com/optimalize/mipcore/sollog"
)

// fakeRelaxation replays a script of relaxation results; the last entry is
// repeated once the script is exhausted.
type fakeRelaxation struct {
	script   []RelaxationResult
	perSolve int64
	iters    int64
	numRows  int
	basis    model.Basis
	objLimit float64
	resolves int
}

func (f *fakeRelaxation) LoadModel(m *model.Model) error {
	if f.numRows == 0 {
		f.numRows = m.NumRow
	}
	return nil
}

func (f *fakeRelaxation) Resolve(DomainEngine) RelaxationResult {
	f.resolves++
	f.iters += f.perSolve
	if len(f.script) == 0 {
		return RelaxationResult{Status: RelaxOptimal, DualFeasible: true}
	}
	r := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	return r
}

func (f *fakeRelaxation) SetObjectiveLimit(v float64) { f.objLimit = v }
func (f *fakeRelaxation) SetIterationLimit(int64) {}
func (f *fakeRelaxation) Basis() model.Basis { return f.basis }
func (f *fakeRelaxation) SetBasis(b model.Basis) { f.basis = b }
func (f *fakeRelaxation) NumIterations() int64 { return f.iters }
func (f *fakeRelaxation) AvgSolveIterations() float64 { return float64(f.perSolve) }
func (f *fakeRelaxation) NumRows() int { return f.numRows }

// fakeDomain is a minimal propagation domain over explicit bound arrays.
type fakeDomain struct {
	lower, upper []float64
	changed      []int
	infeasible   bool
	propagations int
	// infeasibleAfter makes the domain report a contradiction once the
	// given number of propagation passes completed; <0 disables.
	infeasibleAfter int
}

func newFakeDomain(m *model.Model) *fakeDomain {
	return &fakeDomain{
		lower:           append([]float64(nil), m.ColLower...),
		upper:           append([]float64(nil), m.ColUpper...),
		infeasibleAfter: -1,
	}
}

func (f *fakeDomain) Propagate() {
	f.propagations++
	if f.infeasibleAfter >= 0 && f.propagations > f.infeasibleAfter {
		f.infeasible = true
	}
}

func (f *fakeDomain) Infeasible() bool { return f.infeasible }

func (f *fakeDomain) ChangeBound(kind BoundKind, col int, value float64) {
	if kind == BoundLower {
		f.lower[col] = value
	} else {
		f.upper[col] = value
	}
	f.changed = append(f.changed, col)
}

func (f *fakeDomain) ChangedCols() []int { return f.changed }
func (f *fakeDomain) ClearChangedCols() { f.changed = f.changed[:0] }
func (f *fakeDomain) ComputeRowActivities() {}
func (f *fakeDomain) ObjectiveLowerBound() float64 { return math.Inf(-1) }

func (f *fakeDomain) IsFixed(col int) bool { return f.lower[col] == f.upper[col] }
func (f *fakeDomain) ColLower(col int) float64 { return f.lower[col] }
func (f *fakeDomain) ColUpper(col int) float64 { return f.upper[col] }

// fakeSeparator replays per-round cut counts, then produces zero cuts.
type fakeSeparator struct {
	cutScript []int
	pooled    int
	total     int
	rounds    int
	poolRuns  int
}

func (f *fakeSeparator) SeparationRound(DomainEngine, RelaxationStatus) int {
	f.rounds++
	if len(f.cutScript) == 0 {
		return 0
	}
	n := f.cutScript[0]
	f.cutScript = f.cutScript[1:]
	f.total += n
	return n
}

func (f *fakeSeparator) SeparateStoredCuts(DomainEngine) int {
	f.poolRuns++
	n := f.pooled
	f.pooled = 0
	f.total += n
	return n
}

func (f *fakeSeparator) NumCuts() int { return f.total + f.pooled }

// fakeRepair resolves the repair model by clamping the candidate into its
// bounds, or reports infeasible.
type fakeRepair struct {
	feasible bool
	calls    int
}

func (f *fakeRepair) Solve(m *model.Model) ([]float64, bool) {
	f.calls++
	if !f.feasible {
		return nil, false
	}
	sol := make([]float64, m.NumCol)
	for i := range sol {
		sol[i] = math.Max(m.ColLower[i], math.Min(m.ColUpper[i], 0))
	}
	return sol, true
}

// fakePresolver replays scripted presolve results; index-map accessors refer
// to the model of the most recent Run. Eliminated trailing columns are
// restored from tails on UndoPrimal.
type fakePresolver struct {
	script   []PresolveResult
	tails    [][]float64
	err      error
	runs     int
	lastHint *model.Basis
	origCols int
	origRows int
	subs     int
}

func (p *fakePresolver) Run(hint *model.Basis) (PresolveResult, error) {
	p.lastHint = hint
	if p.err != nil {
		return PresolveResult{}, p.err
	}
	i := p.runs
	if i >= len(p.script) {
		i = len(p.script) - 1
	}
	p.runs++
	res := p.script[i]
	if res.Model != nil {
		res.Model = res.Model.Snapshot()
	}
	return res, nil
}

func (p *fakePresolver) curTail() []float64 {
	if p.runs == 0 || len(p.tails) == 0 {
		return nil
	}
	i := p.runs - 1
	if i >= len(p.tails) {
		i = len(p.tails) - 1
	}
	return p.tails[i]
}

func (p *fakePresolver) UndoPrimal(reduced []float64) []float64 {
	out := append([]float64(nil), reduced...)
	return append(out, p.curTail()...)
}

func (p *fakePresolver) ReducedPrimal(original []float64) []float64 {
	n := len(original) - len(p.curTail())
	return append([]float64(nil), original[:n]...)
}

func (p *fakePresolver) OrigColIndex(i int) int { return i }
func (p *fakePresolver) OrigRowIndex(i int) int { return i }
func (p *fakePresolver) OrigNumCol() int { return p.origCols }
func (p *fakePresolver) OrigNumRow() int { return p.origRows }
func (p *fakePresolver) AppendCutsToModel(int) {}
func (p *fakePresolver) RemoveCutsFromModel(int) {}
func (p *fakePresolver) Substitutions() int { return p.subs }

// fakeOrbits counts orbital fixing invocations without fixing anything.
type fakeOrbits struct {
	calls int
}

func (f *fakeOrbits) OrbitalFixing(DomainEngine) int {
	f.calls++
	return 0
}

// fakeSymmetry reports a scripted detection result.
type fakeSymmetry struct {
	result      Symmetries
	loaded      bool
	initialized bool
	ran         bool
}

func (f *fakeSymmetry) LoadModelAsGraph(*model.Model, float64) { f.loaded = true }

func (f *fakeSymmetry) InitializeDetection() bool {
	f.initialized = true
	return true
}

func (f *fakeSymmetry) Run(context.Context) Symmetries {
	f.ran = true
	return f.result
}

// fakeInteriorPoint returns a scripted analytic center.
type fakeInteriorPoint struct {
	center []float64
	calls  int
}

func (f *fakeInteriorPoint) SolveZeroObjective(context.Context, *model.Model) ([]float64, bool) {
	f.calls++
	if f.center == nil {
		return nil, false
	}
	return append([]float64(nil), f.center...), true
}

// twoColModel is one integer and one continuous column sharing a row:
//
//	min x0 + x1  s.t.  x0 + x1 <= 8,  0 <= x0,x1 <= 10,  x0 integer
func twoColModel() *model.Model {
	return &model.Model{
		NumCol:      2,
		NumRow:      1,
		ColCost:     []float64{1, 1},
		ColLower:    []float64{0, 0},
		ColUpper:    []float64{10, 10},
		RowLower:    []float64{math.Inf(-1)},
		RowUpper:    []float64{8},
		Integrality: []model.VarType{model.Integer, model.Continuous},
		AStart:      []int{0, 1, 2},
		AIndex:      []int{0, 0},
		AValue:      []float64{1, 1},
		Sense:       model.Minimize,
	}
}

// manyIntModel has ten integer columns with unit costs and no rows; the last
// two columns are fixed at 2 by their bounds.
func manyIntModel() *model.Model {
	m := &model.Model{
		NumCol:   10,
		ColLower: []float64{0, 0, 0, 0, 0, 0, 0, 0, 2, 2},
		ColUpper: []float64{3, 3, 3, 3, 3, 3, 3, 3, 2, 2},
		AStart:   make([]int, 11),
		Sense:    model.Minimize,
	}
	m.ColCost = make([]float64, 10)
	m.Integrality = make([]model.VarType, 10)
	for i := range m.ColCost {
		m.ColCost[i] = 1
		m.Integrality[i] = model.Integer
	}
	return m
}

// reducedIntModel is manyIntModel after eliminating its two fixed columns;
// their objective contribution moves into the offset.
func reducedIntModel() *model.Model {
	m := &model.Model{
		NumCol: 8,
		AStart: make([]int, 9),
		Offset: 4,
		Sense:  model.Minimize,
	}
	m.ColCost = make([]float64, 8)
	m.ColLower = make([]float64, 8)
	m.ColUpper = make([]float64, 8)
	m.Integrality = make([]model.VarType, 8)
	for i := range m.ColCost {
		m.ColCost[i] = 1
		m.ColUpper[i] = 3
		m.Integrality[i] = model.Integer
	}
	return m
}

// coverRowModel is two binary columns covering a single row:
//
//	min x0 + x1  s.t.  x0 + x1 >= 1,  x0,x1 binary
func coverRowModel() *model.Model {
	return &model.Model{
		NumCol:      2,
		NumRow:      1,
		ColCost:     []float64{1, 1},
		ColLower:    []float64{0, 0},
		ColUpper:    []float64{1, 1},
		RowLower:    []float64{1},
		RowUpper:    []float64{math.Inf(1)},
		Integrality: []model.VarType{model.Integer, model.Integer},
		AStart:      []int{0, 1, 2},
		AIndex:      []int{0, 0},
		AValue:      []float64{1, 1},
		Sense:       model.Minimize,
	}
}

// emptyModel has no columns and no rows.
func emptyModel() *model.Model {
	return &model.Model{
		AStart: []int{0},
		Sense:  model.Minimize,
	}
}

func defaultCollaborators(relax RelaxationEngine) Collaborators {
	return Collaborators{
		Relaxation: relax,
		NewDomain: func(m *model.Model) DomainEngine {
			return newFakeDomain(m)
		},
	}
}

func openTestSolutionLog(dir string) (*sollog.Log, error) {
	return sollog.Open(filepath.Join(dir, "solutions.mipsol"))
}

// newTestSolver builds a solver with its run-scoped state initialized, for
// tests that drive internal methods directly instead of going through Run.
func newTestSolver(m *model.Model, collabs Collaborators, optFns ...Option) *Solver {
	s, err := New(m, collabs, optFns...)
	if err != nil {
		panic(err)
	}
	s.runCtx = context.Background()
	s.startTime = time.Now()
	s.tasks = NewTaskGroup(context.Background(), s.opts.maxWorkers)
	s.displayLimiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	s.state = newSearchState(s.opts.feastol, s.opts.epsilon, math.Inf(1))
	s.mdl = s.workingModel()
	s.presolve = &identityPresolver{m: s.mdl}
	s.domain = newFakeDomain(s.mdl)
	s.queue = nodequeue.New()
	return s
}
