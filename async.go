package mipcore

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/optimalize/mipcore/model"
)

// AsyncResult holds the outcome of one background task. It is exclusively
// owned by the spawning TaskGroup until Join returns; read-only thereafter.
type AsyncResult[T any] struct {
	done  chan struct{}
	value T
	valid bool
}

// Join blocks until the task finished or was cancelled. ok is false when the
// task was cancelled before producing a value.
func (r *AsyncResult[T]) Join() (value T, ok bool) {
	<-r.done
	return r.value, r.valid
}

// TaskGroup runs auxiliary computations with spawn/join semantics. Tasks
// share no mutable state with the spawner: each receives its inputs by value
// or as a snapshot, and writes only into its own result slot, which becomes
// visible at Join.
type TaskGroup struct {
	eg     *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
}

// NewTaskGroup creates a task group with at most maxWorkers concurrently
// running tasks. Spawning never blocks the caller; excess tasks queue on
// the worker semaphore inside their own goroutine.
func NewTaskGroup(parent context.Context, maxWorkers int) *TaskGroup {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(parent)
	eg, ctx := errgroup.WithContext(ctx)
	return &TaskGroup{
		eg:     eg,
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(int64(maxWorkers)),
	}
}

// Spawn starts fn as a background task. fn must not touch spawner state; it
// reports ok=false when it gave up due to cancellation.
func Spawn[T any](g *TaskGroup, fn func(ctx context.Context) (T, bool)) *AsyncResult[T] {
	r := &AsyncResult[T]{done: make(chan struct{})}
	g.eg.Go(func() error {
		defer close(r.done)
		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			return nil
		}
		defer g.sem.Release(1)
		r.value, r.valid = fn(g.ctx)
		return nil
	})
	return r
}

// Cancel signals all outstanding tasks to stop. Callers must still Wait
// before mutating state the tasks may have snapshotted.
func (g *TaskGroup) Cancel() { g.cancel() }

// Wait blocks until every spawned task has finished.
func (g *TaskGroup) Wait() {
	_ = g.eg.Wait()
}

// startSymmetryDetection loads the presolved model into the symmetry engine
// and, if detection is worthwhile, spawns the search for generators. Must be
// called with no symmetry task in flight.
func (s *Solver) startSymmetryDetection() {
	if s.symmetry == nil {
		s.detectSymmetries = false
		return
	}
	snapshot := s.mdl.Snapshot()
	s.symmetry.LoadModelAsGraph(snapshot, s.state.Epsilon)
	if !s.symmetry.InitializeDetection() {
		s.detectSymmetries = false
		s.symResult = nil
		return
	}
	start := time.Now()
	eng := s.symmetry
	s.symResult = Spawn(s.tasks, func(ctx context.Context) (symOutcome, bool) {
		sym := eng.Run(ctx)
		return symOutcome{sym: sym, detectionTime: time.Since(start)}, true
	})
}

type symOutcome struct {
	sym           Symmetries
	detectionTime time.Duration
}

// finishSymmetryDetection joins the symmetry task and merges its result.
// Zero generators disable detection for the rest of the solve.
func (s *Solver) finishSymmetryDetection(ctx context.Context) {
	if s.symResult == nil {
		return
	}
	out, ok := s.symResult.Join()
	s.symResult = nil
	if !ok {
		return
	}
	s.logger.LogSymmetryDetection(ctx, out.detectionTime, out.sym)
	if out.sym.NumGenerators == 0 {
		s.detectSymmetries = false
		return
	}
	s.symmetries = out.sym
	if out.sym.NumPerms != 0 {
		s.globalOrbits = out.sym.Orbits
	}
}

// startAnalyticCenterComputation spawns the zero-objective interior-point
// solve on an independent model snapshot. Spawned once per model, not per
// restart.
func (s *Solver) startAnalyticCenterComputation() {
	if s.interiorPoint == nil {
		s.analyticCenterComputed = true
		return
	}
	snapshot := s.mdl.Snapshot()
	for i := range snapshot.ColCost {
		snapshot.ColCost[i] = 0
	}
	ipm := s.interiorPoint
	s.centerResult = Spawn(s.tasks, func(ctx context.Context) ([]float64, bool) {
		return ipm.SolveZeroObjective(ctx, snapshot)
	})
}

// finishAnalyticCenterComputation joins the analytic-center task and fixes
// every column sitting within a bound-range-scaled tolerance of one of its
// finite bounds. Fixing goes through the domain engine and may render the
// domain infeasible; the caller then treats the root as pruned.
func (s *Solver) finishAnalyticCenterComputation(ctx context.Context) {
	if s.centerResult == nil {
		s.analyticCenterComputed = true
		return
	}
	center, ok := s.centerResult.Join()
	s.centerResult = nil
	s.analyticCenterComputed = true
	if !ok || len(center) != s.mdl.NumCol {
		return
	}
	s.analyticCenter = center

	numFixed, numIntFixed := 0, 0
	for i := 0; i < s.mdl.NumCol; i++ {
		boundRange := s.domain.ColUpper(i) - s.domain.ColLower(i)
		if boundRange == 0 {
			continue
		}
		tol := s.state.Feastol * math.Min(boundRange, 1.0)

		switch {
		case center[i] <= s.mdl.ColLower[i]+tol:
			s.domain.ChangeBound(BoundUpper, i, s.mdl.ColLower[i])
		case center[i] >= s.mdl.ColUpper[i]-tol:
			s.domain.ChangeBound(BoundLower, i, s.mdl.ColUpper[i])
		default:
			continue
		}
		if s.domain.Infeasible() {
			return
		}
		numFixed++
		if s.mdl.VarTypeOf(i) == model.Integer {
			numIntFixed++
		}
	}
	if numFixed > 0 {
		s.logger.LogAnalyticCenterFixing(ctx, numFixed, numIntFixed)
	}
	s.domain.Propagate()
}

// cancelAuxTasks cancels outstanding auxiliary computations and waits for
// them to drain. Required before any restart so no task holds a stale model
// snapshot while shared state is rebuilt.
func (s *Solver) cancelAuxTasks() {
	s.tasks.Cancel()
	s.tasks.Wait()
	s.symResult = nil
	s.centerResult = nil
	s.tasks = NewTaskGroup(s.runCtx, s.opts.maxWorkers)
}
