package mipcore

import (
	"fmt"
	"math"
	"time"
)

// printDisplayLine emits one structured progress line. Lines not tied to a
// new solution are throttled to the configured minimum logging interval.
func (s *Solver) printDisplayLine(source SolutionSource) {
	if source == SourceNone && !s.displayLimiter.Allow() {
		return
	}
	s.numDispLines++

	dualBound, primalBound, relGapPct := s.limitsToBounds()
	explored := 100 * s.state.PrunedTreeWeight

	gap := "inf"
	if !math.IsInf(relGapPct, 1) {
		if relGapPct >= 9999 {
			gap = "Large"
		} else {
			gap = fmt.Sprintf("%.2f%%", relGapPct)
		}
	}

	numCuts := 0
	if s.sepa != nil {
		numCuts = s.sepa.NumCuts()
	}

	s.logger.Info("search progress",
		"src", source.String(),
		"nodes", formatCount(s.state.NumNodes),
		"queued", s.queue.NumActiveNodes(),
		"leaves", formatCount(s.state.NumLeaves-s.state.NumLeavesBeforeRun),
		"explored_pct", fmt.Sprintf("%.2f", explored),
		"dual_bound", formatBound(dualBound),
		"primal_bound", formatBound(primalBound),
		"gap", gap,
		"cuts", numCuts,
		"lp_iters", formatCount(s.state.TotalLpIterations),
		"time", time.Since(s.startTime).Round(100*time.Millisecond).String(),
	)

	s.fireCallback(PointLogging, s.state.IncumbentObjective, nil)
}

// formatCount renders a counter compactly with k/m suffixes once it grows
// past six digits.
func formatCount(v int64) string {
	switch {
	case v < 1_000_000:
		return fmt.Sprintf("%d", v)
	case v < 1_000_000_000:
		return fmt.Sprintf("%dk", v/1000)
	default:
		return fmt.Sprintf("%dm", v/1_000_000)
	}
}

// formatBound renders an objective bound with magnitude-dependent precision.
func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	mag := 0.0
	if v != 0 {
		mag = math.Log10(math.Max(1e-6, math.Abs(v)))
	}
	switch {
	case mag < 4:
		return fmt.Sprintf("%.10g", v)
	case mag < 6:
		return fmt.Sprintf("%.12g", v)
	default:
		return fmt.Sprintf("%.13g", v)
	}
}
