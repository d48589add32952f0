package mipcore

import (
	"math"
	"time"

	"github.com/optimalize/mipcore/model"
)

// CallbackPoint identifies where in the search a callback fires.
type CallbackPoint uint8

const (
	// PointSolution fires for every feasible candidate found.
	PointSolution CallbackPoint = iota
	// PointImprovingSolution fires for every strictly improving incumbent.
	PointImprovingSolution
	// PointLogging fires with every display line.
	PointLogging
	// PointInterrupt polls for user-requested termination; only here is a
	// true return honored as an interrupt.
	PointInterrupt
)

// CallbackData is the read-only snapshot handed to the user callback.
type CallbackData struct {
	RunningTime  time.Duration
	MipNodeCount int64
	PrimalBound  float64
	DualBound    float64
	// MipGap is the relative gap as a fraction, +inf while unbounded.
	MipGap float64
	// ObjectiveValue is the objective of the solution this event refers
	// to, in the original space.
	ObjectiveValue float64
	// Solution is set for solution events, in the original space. It must
	// not be retained or mutated.
	Solution []float64
}

// Callback is the user callback surface. The return value requests early
// termination and is honored only at PointInterrupt.
type Callback func(point CallbackPoint, data CallbackData) bool

// interruptFromCallback fires the callback with current bounds and returns
// its termination request.
func (s *Solver) interruptFromCallback(point CallbackPoint, objective float64) bool {
	return s.fireCallback(point, objective, nil)
}

func (s *Solver) fireCallback(point CallbackPoint, objective float64, solution []float64) bool {
	if s.opts.callback == nil || s.opts.submip {
		return false
	}
	dualBound, primalBound, relGapPct := s.limitsToBounds()
	data := CallbackData{
		RunningTime:    time.Since(s.startTime),
		MipNodeCount:   s.state.NumNodes,
		PrimalBound:    primalBound,
		DualBound:      dualBound,
		MipGap:         1e-2 * relGapPct,
		ObjectiveValue: objective,
		Solution:       solution,
	}
	interrupt := s.opts.callback(point, data)
	// Termination requests are only honored at the interrupt poll.
	return interrupt && point == PointInterrupt
}

// limitsToBounds converts the transformed-space bounds into original-space
// dual/primal bounds and a relative gap in percent.
func (s *Solver) limitsToBounds() (dualBound, primalBound, relGapPct float64) {
	offset := s.mdl.Offset
	dualBound = s.state.LowerBound + offset
	if math.Abs(dualBound) <= s.state.Epsilon {
		dualBound = 0
	}
	primalBound = math.Inf(1)
	relGapPct = math.Inf(1)

	if s.state.UpperBound != math.Inf(1) {
		primalBound = s.state.UpperBound + offset
		if math.Abs(primalBound) <= s.state.Epsilon {
			primalBound = 0
		}
		dualBound = math.Min(dualBound, primalBound)
		if primalBound == 0 {
			if dualBound == 0 {
				relGapPct = 0
			}
		} else {
			relGapPct = 100 * (primalBound - dualBound) / math.Abs(primalBound)
		}
	}
	primalBound = math.Min(s.opts.objectiveBound, primalBound)

	if s.origModel.Sense == model.Maximize {
		dualBound, primalBound = -dualBound, -primalBound
	}
	return dualBound, primalBound, relGapPct
}
