package mipcore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems.
type MetricsCollector interface {
	// RecordLpResolve is called after each relaxation resolve with the
	// iteration count it consumed.
	RecordLpResolve(iterations int64, status RelaxationStatus)

	// RecordSeparationRound is called after each separation round with the
	// number of cuts it added.
	RecordSeparationRound(numCuts int)

	// RecordIncumbent is called for every accepted incumbent.
	RecordIncumbent(objective float64, source SolutionSource)

	// RecordRestart is called for every performed restart.
	RecordRestart(root bool)

	// RecordRootEvaluation is called once per completed root evaluation
	// with its wall-clock duration.
	RecordRootEvaluation(duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLpResolve(int64, RelaxationStatus) {}
func (NoopMetricsCollector) RecordSeparationRound(int) {}
func (NoopMetricsCollector) RecordIncumbent(float64, SolutionSource) {}
func (NoopMetricsCollector) RecordRestart(bool) {}
func (NoopMetricsCollector) RecordRootEvaluation(time.Duration) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LpResolves          atomic.Int64
	LpIterations        atomic.Int64
	LpInfeasible        atomic.Int64
	SeparationRounds    atomic.Int64
	CutsAdded           atomic.Int64
	Incumbents          atomic.Int64
	Restarts            atomic.Int64
	RootRestarts        atomic.Int64
	RootEvaluations     atomic.Int64
	RootEvaluationNanos atomic.Int64
}

// RecordLpResolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLpResolve(iterations int64, status RelaxationStatus) {
	b.LpResolves.Add(1)
	b.LpIterations.Add(iterations)
	if status == RelaxInfeasible {
		b.LpInfeasible.Add(1)
	}
}

// RecordSeparationRound implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSeparationRound(numCuts int) {
	b.SeparationRounds.Add(1)
	b.CutsAdded.Add(int64(numCuts))
}

// RecordIncumbent implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIncumbent(float64, SolutionSource) {
	b.Incumbents.Add(1)
}

// RecordRestart implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRestart(root bool) {
	b.Restarts.Add(1)
	if root {
		b.RootRestarts.Add(1)
	}
}

// RecordRootEvaluation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRootEvaluation(duration time.Duration) {
	b.RootEvaluations.Add(1)
	b.RootEvaluationNanos.Add(duration.Nanoseconds())
}
