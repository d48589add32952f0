package mipcore

import (
	"math"
	"time"

	"github.com/optimalize/mipcore/sollog"
)

type options struct {
	logger  *Logger
	metrics MetricsCollector

	feastol         float64
	epsilon         float64
	absGap          float64
	relGap          float64
	objectiveBound  float64
	objectiveTarget float64

	maxNodes         int64
	maxLeaves        int64
	maxImprovingSols int64
	timeLimit        time.Duration

	heuristicEffort   float64
	detectSymmetries  bool
	presolve          bool
	trivialHeuristics bool
	submip            bool

	maxSepaRounds int
	stallLimit    int
	// Empirically tuned stalling constants; configurable for parity with
	// the tuned defaults but rarely worth changing.
	stallMargin     float64
	smoothingFactor float64
	objImproveFrac  float64
	effortFront     float64
	effortWindow    float64

	restartFixingRate     float64
	postHeurFixingRate    float64
	submipExtraFixingRate float64

	minLoggingInterval time.Duration
	maxWorkers         int

	solutionLog     *sollog.Log
	callback        Callback
	initialSolution []float64
}

func defaultOptions() options {
	return options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},

		feastol:         1e-6,
		epsilon:         1e-9,
		absGap:          1e-6,
		relGap:          1e-4,
		objectiveBound:  math.Inf(1),
		objectiveTarget: math.Inf(-1),

		maxNodes:         math.MaxInt64,
		maxLeaves:        math.MaxInt64,
		maxImprovingSols: math.MaxInt64,

		heuristicEffort:   0.05,
		detectSymmetries:  true,
		presolve:          true,
		trivialHeuristics: true,

		maxSepaRounds: math.MaxInt32,
		stallLimit:    3,

		stallMargin:     0.01,
		smoothingFactor: 1.0 / 3.0,
		objImproveFrac:  0.001,
		effortFront:     0.3,
		effortWindow:    0.8,

		restartFixingRate:     10.0,
		postHeurFixingRate:    2.5,
		submipExtraFixingRate: 7.5,

		minLoggingInterval: 5 * time.Second,
		maxWorkers:         2,
	}
}

// Option configures solver behavior.
type Option func(*options)

// WithLogger sets the structured logger. Nil restores the no-op logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector. Nil restores the no-op
// collector.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithFeasibilityTolerance sets the MIP feasibility tolerance applied to
// bound, row, and integrality violations. The boundary is inclusive: a
// violation equal to the tolerance is feasible.
func WithFeasibilityTolerance(tol float64) Option {
	return func(o *options) { o.feastol = tol }
}

// WithGapTolerances sets the absolute and relative optimality gaps folded
// into the optimality limit. Zero disables the corresponding tightening.
func WithGapTolerances(absGap, relGap float64) Option {
	return func(o *options) {
		o.absGap = absGap
		o.relGap = relGap
	}
}

// WithObjectiveBound sets a known valid upper bound on the objective in the
// original space.
func WithObjectiveBound(bound float64) Option {
	return func(o *options) { o.objectiveBound = bound }
}

// WithObjectiveTarget stops the solve once the incumbent objective reaches
// the target, directionally per objective sense.
func WithObjectiveTarget(target float64) Option {
	return func(o *options) { o.objectiveTarget = target }
}

// WithNodeLimit caps the number of evaluated nodes.
func WithNodeLimit(n int64) Option {
	return func(o *options) { o.maxNodes = n }
}

// WithLeafLimit caps the number of leaf nodes.
func WithLeafLimit(n int64) Option {
	return func(o *options) { o.maxLeaves = n }
}

// WithImprovingSolutionLimit caps the number of accepted improving
// solutions.
func WithImprovingSolutionLimit(n int64) Option {
	return func(o *options) { o.maxImprovingSols = n }
}

// WithTimeLimit caps the wall-clock solve time. Zero means unlimited.
func WithTimeLimit(d time.Duration) Option {
	return func(o *options) { o.timeLimit = d }
}

// WithHeuristicEffort sets the fraction of LP iterations the solver is
// willing to spend on primal heuristics.
func WithHeuristicEffort(effort float64) Option {
	return func(o *options) { o.heuristicEffort = effort }
}

// WithSymmetryDetection toggles background symmetry detection.
func WithSymmetryDetection(enabled bool) Option {
	return func(o *options) { o.detectSymmetries = enabled }
}

// WithPresolve toggles presolve and with it restart capability.
func WithPresolve(enabled bool) Option {
	return func(o *options) { o.presolve = enabled }
}

// WithTrivialHeuristics toggles the trivial heuristics pass.
func WithTrivialHeuristics(enabled bool) Option {
	return func(o *options) { o.trivialHeuristics = enabled }
}

// WithSubSolve marks this solver as a sub-solve spawned by a heuristic,
// which truncates separation and tightens heuristic-effort accounting.
func WithSubSolve(enabled bool) Option {
	return func(o *options) { o.submip = enabled }
}

// WithMaxSeparationRounds caps the number of root separation rounds.
func WithMaxSeparationRounds(n int) Option {
	return func(o *options) { o.maxSepaRounds = n }
}

// WithStallTuning overrides the empirically tuned stall-detection constants:
// the minimum relative improvement of the smoothed progress scalar, the
// exponential smoothing factor, and the objective-movement fraction below
// which a round counts as stalled.
func WithStallTuning(stallMargin, smoothingFactor, objImproveFrac float64) Option {
	return func(o *options) {
		o.stallMargin = stallMargin
		o.smoothingFactor = smoothingFactor
		o.objImproveFrac = objImproveFrac
	}
}

// WithMinLoggingInterval throttles periodic display lines.
func WithMinLoggingInterval(d time.Duration) Option {
	return func(o *options) { o.minLoggingInterval = d }
}

// WithMaxBackgroundWorkers caps concurrent auxiliary computations.
func WithMaxBackgroundWorkers(n int) Option {
	return func(o *options) { o.maxWorkers = n }
}

// WithSolutionLog appends every strictly improving solution to the given
// history log. The solver does not close the log.
func WithSolutionLog(l *sollog.Log) Option {
	return func(o *options) { o.solutionLog = l }
}

// WithCallback installs the user callback surface.
func WithCallback(cb Callback) Option {
	return func(o *options) { o.callback = cb }
}

// WithInitialSolution supplies a known solution in the original space. It is
// validated at setup and adopted as the initial incumbent when feasible.
func WithInitialSolution(sol []float64) Option {
	return func(o *options) { o.initialSolution = append([]float64(nil), sol...) }
}
