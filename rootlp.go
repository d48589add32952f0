package mipcore

import (
	"math"
)

// rootLpOutcome classifies one pass of evaluateRootLp.
type rootLpOutcome uint8

const (
	rootLpOptimal rootLpOutcome = iota
	rootLpInfeasible
	rootLpUnbounded
	rootLpPruned
	rootLpLimit
)

// terminal reports whether the outcome discards the root node, either by a
// contradiction or by the lower bound crossing the optimality cutoff.
func (o rootLpOutcome) terminal() bool {
	return o == rootLpInfeasible || o == rootLpPruned
}

// removeFixedIndices drops columns fixed by the domain from the active
// partition so that fractionality checks and fixing rates see only columns
// that can still move.
func (s *Solver) removeFixedIndices() {
	s.partition.RemoveFixed(s.domain.IsFixed)
}

// evaluateRootLp drives propagation and relaxation resolves to a fixed
// point. Each pass propagates the domain, applies orbital fixing when
// stabilizer orbits are available, and resolves the relaxation whenever
// bounds changed since the last solve. An integer feasible relaxation is
// offered to the incumbent tracker; a dual feasible one tightens the global
// lower bound and feeds reduced-cost fixing. The loop ends when a resolve
// leaves the bounds untouched or the node can be discarded.
func (s *Solver) evaluateRootLp() rootLpOutcome {
	for {
		s.domain.Propagate()
		if s.globalOrbits != nil && !s.domain.Infeasible() {
			s.globalOrbits.OrbitalFixing(s.domain)
		}
		if s.domain.Infeasible() {
			s.state.LowerBound = math.Min(math.Inf(1), s.state.UpperBound)
			s.state.PrunedTreeWeight = 1.0
			s.state.countLeaf()
			return rootLpInfeasible
		}

		boundsChanged := len(s.domain.ChangedCols()) > 0
		if boundsChanged {
			s.removeFixedIndices()
			s.domain.ClearChangedCols()
		} else if s.rootLp.Status != RelaxNotSet {
			return s.classifyRootLp()
		}

		before := s.relax.NumIterations()
		s.rootLp = s.relax.Resolve(s.domain)
		iters := s.relax.NumIterations() - before
		s.state.TotalLpIterations += iters
		s.opts.metrics.RecordLpResolve(iters, s.rootLp.Status)

		if s.rootLp.Status == RelaxOptimal {
			if len(s.rootLp.FractionalIntegers) == 0 &&
				s.addIncumbent(s.rootLp.Solution, s.rootLp.Objective, SourceSolveLp) {
				// The relaxation itself is integer feasible, so its objective
				// closes the search regardless of dual feasibility.
				s.state.SetTerminalStatus(StatusOptimal)
				s.state.LowerBound = s.state.UpperBound
				s.state.PrunedTreeWeight = 1.0
				s.state.countLeaf()
				return rootLpPruned
			}
			if s.rootLp.DualFeasible {
				s.state.LowerBound = math.Max(s.state.LowerBound, s.rootLp.Objective)
				if s.redcost != nil {
					s.redcost.AddRootRedcost(s.rootLp.Duals, s.rootLp.Objective)
					if !math.IsInf(s.state.UpperLimit, 1) {
						s.redcost.PropagateRootRedcost(s.state.UpperLimit, s.domain)
					}
				}
			}
			if s.state.LowerBound > s.state.OptimalityLimit {
				s.state.PrunedTreeWeight = 1.0
				s.state.countLeaf()
				return rootLpPruned
			}
			// Reduced-cost fixing or the new cutoff may have moved bounds;
			// re-enter the loop so the relaxation sees them.
			if len(s.domain.ChangedCols()) > 0 || s.domain.Infeasible() {
				continue
			}
		}
		return s.classifyRootLp()
	}
}

func (s *Solver) classifyRootLp() rootLpOutcome {
	switch s.rootLp.Status {
	case RelaxOptimal:
		return rootLpOptimal
	case RelaxInfeasible:
		s.state.LowerBound = math.Min(math.Inf(1), s.state.UpperBound)
		s.state.PrunedTreeWeight = 1.0
		s.state.countLeaf()
		return rootLpInfeasible
	case RelaxUnbounded:
		return rootLpUnbounded
	}
	return rootLpLimit
}
