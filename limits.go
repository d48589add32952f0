package mipcore

import (
	"math"
	"time"
)

// checkLimits evaluates every external stop condition before an expensive
// step. It is a pure predicate apart from writing the terminal status, which
// happens exactly once; later calls observing an already-terminal state
// return true without writing.
func (s *Solver) checkLimits(nodeOffset int64) bool {
	// Context cancellation and the user interrupt callback both map to an
	// interrupt status.
	if s.runCtx.Err() != nil {
		if s.state.SetTerminalStatus(StatusInterrupt) {
			s.logger.LogTerminal(s.runCtx, StatusInterrupt, "context cancelled")
		}
		return true
	}
	if !s.opts.submip && s.opts.callback != nil {
		if s.interruptFromCallback(PointInterrupt, s.state.IncumbentObjective) {
			if s.state.SetTerminalStatus(StatusInterrupt) {
				s.logger.LogTerminal(s.runCtx, StatusInterrupt, "user interrupt")
			}
			return true
		}
	}

	// Objective target reached, directionally per objective sense. The
	// incumbent objective is in the original space, independent of sense.
	if !s.opts.submip && s.state.IncumbentObjective < math.Inf(1) &&
		s.opts.objectiveTarget > math.Inf(-1) {
		sense := float64(s.origModel.Sense)
		if sense*s.state.IncumbentObjective < sense*s.opts.objectiveTarget {
			if s.state.SetTerminalStatus(StatusObjectiveTarget) {
				s.logger.LogTerminal(s.runCtx, StatusObjectiveTarget, "reached objective target")
			}
			return true
		}
	}

	if s.opts.maxNodes != math.MaxInt64 && s.state.NumNodes+nodeOffset >= s.opts.maxNodes {
		if s.state.SetTerminalStatus(StatusSolutionLimit) {
			s.logger.LogTerminal(s.runCtx, StatusSolutionLimit, "reached node limit")
		}
		return true
	}

	if s.opts.maxLeaves != math.MaxInt64 && s.state.NumLeaves >= s.opts.maxLeaves {
		if s.state.SetTerminalStatus(StatusSolutionLimit) {
			s.logger.LogTerminal(s.runCtx, StatusSolutionLimit, "reached leaf node limit")
		}
		return true
	}

	if s.opts.maxImprovingSols != math.MaxInt64 && s.state.NumImprovingSols >= s.opts.maxImprovingSols {
		if s.state.SetTerminalStatus(StatusSolutionLimit) {
			s.logger.LogTerminal(s.runCtx, StatusSolutionLimit, "reached improving solution limit")
		}
		return true
	}

	if s.opts.timeLimit > 0 && time.Since(s.startTime) >= s.opts.timeLimit {
		if s.state.SetTerminalStatus(StatusTimeLimit) {
			s.logger.LogTerminal(s.runCtx, StatusTimeLimit, "reached time limit")
		}
		return true
	}

	return false
}
