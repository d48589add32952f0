package mipcore

import (
	"math"

	"github.com/optimalize/mipcore/model"
)

// objectiveIntegrality records whether the transformed objective can only
// take values on an integer-scaled lattice, and the lattice scale.
type objectiveIntegrality struct {
	integral bool
	scale    float64
}

// checkObjIntegrality detects an integral objective: every column with a
// nonzero cost must be integer-typed and the costs must share a common
// integral scale. Detection is conservative; failure to find a scale simply
// disables the lattice cutoff rule.
func (s *Solver) checkObjIntegrality() {
	s.objective = objectiveIntegrality{}

	g := 0.0
	for i, c := range s.mdl.ColCost {
		if c == 0 {
			continue
		}
		if t := s.mdl.VarTypeOf(i); t != model.Integer && t != model.ImplicitInteger {
			return
		}
		g = floatGCD(g, math.Abs(c), s.state.Epsilon)
		if g < s.state.Epsilon {
			return
		}
	}
	if g == 0 {
		// All-zero objective: trivially integral with scale 1.
		s.objective = objectiveIntegrality{integral: true, scale: 1}
		return
	}
	scale := 1.0 / g
	if scale > 1e6 {
		return
	}
	for _, c := range s.mdl.ColCost {
		v := c * scale
		if math.Abs(v-math.Floor(v+0.5)) > s.state.Epsilon*scale {
			return
		}
	}
	s.objective = objectiveIntegrality{integral: true, scale: scale}
	if s.state.NumRestarts == 0 {
		s.logger.Info("objective function is integral", "scale", scale)
	}
}

// floatGCD is the Euclidean gcd on positive doubles with tolerance eps.
func floatGCD(a, b, eps float64) float64 {
	if a == 0 {
		return b
	}
	for b > eps {
		a, b = b, math.Mod(a, b)
	}
	return a
}

// computeNewUpperLimit computes the admissible next cutoff below the
// reference objective ub. For a lattice objective the cutoff is the greatest
// lattice value strictly below ub, tightened by the stronger of the gap
// requirements and loosened by feastol so the true next-best lattice point
// is never excluded. For a continuous objective the cutoff steps below ub by
// feastol and one representable value, then applies the gaps directly.
func (s *Solver) computeNewUpperLimit(ub, absGap, relGap float64) float64 {
	var newLimit float64
	if s.objective.integral {
		scale := s.objective.scale
		newLimit = math.Floor(scale*ub-0.5) / scale

		if relGap != 0 {
			newLimit = math.Min(newLimit,
				ub-math.Ceil(relGap*math.Abs(ub+s.mdl.Offset)*scale-s.state.Epsilon)/scale)
		}
		if absGap != 0 {
			newLimit = math.Min(newLimit,
				ub-math.Ceil(absGap*scale-s.state.Epsilon)/scale)
		}

		// Add the feasibility tolerance so that the next best integer
		// feasible solution is definitely included in the remaining search.
		newLimit += s.state.Feastol
	} else {
		newLimit = math.Min(ub-s.state.Feastol, math.Nextafter(ub, math.Inf(-1)))

		if relGap != 0 {
			newLimit = math.Min(newLimit, ub-relGap*math.Abs(ub+s.mdl.Offset))
		}
		if absGap != 0 {
			newLimit = math.Min(newLimit, ub-absGap)
		}
	}
	return newLimit
}

// addIncumbent offers a candidate in the reduced space to the tracker. The
// candidate is accepted iff strictly better than the current upper bound (or
// adopted as a non-bounding incumbent when none exists). On acceptance the
// cutoffs are recomputed, bound propagation and reduced-cost fixing run, and
// deferred nodes are pruned. The return value reports whether the candidate
// was usable; a propagation contradiction is a side effect recorded in the
// search state, not an error.
func (s *Solver) addIncumbent(sol []float64, solObj float64, source SolutionSource) bool {
	possiblyStore := solObj < s.state.UpperBound
	if !possiblyStore {
		if len(s.incumbent) == 0 {
			s.incumbent = append([]float64(nil), sol...)
		}
		return true
	}

	solObj = s.transformNewIntegerFeasibleSolution(sol, true, source)
	if solObj >= s.state.UpperBound {
		return false
	}
	s.state.UpperBound = solObj
	s.incumbent = append(s.incumbent[:0], sol...)
	s.opts.metrics.RecordIncumbent(s.state.IncumbentObjective, source)
	s.logger.LogIncumbent(s.runCtx, s.state.IncumbentObjective, source)

	newUpperLimit := s.computeNewUpperLimit(solObj, 0, 0)
	if !s.opts.submip {
		s.saveReportMipSolution(newUpperLimit)
	}
	if newUpperLimit < s.state.UpperLimit {
		s.state.NumImprovingSols++
		s.state.UpperLimit = newUpperLimit
		s.state.OptimalityLimit = s.computeNewUpperLimit(solObj, s.opts.absGap, s.opts.relGap)
		s.queue.SetOptimalityLimit(s.state.OptimalityLimit)

		s.domain.Propagate()
		if !s.domain.Infeasible() && s.redcost != nil {
			s.redcost.PropagateRootRedcost(s.state.UpperLimit, s.domain)
		}
		if s.domain.Infeasible() {
			s.state.PrunedTreeWeight = 1.0
			s.queue.Clear()
			return true
		}
		s.state.PrunedTreeWeight += s.queue.PerformBounding(s.state.UpperLimit)
		s.printDisplayLine(source)
	}
	return true
}

// saveReportMipSolution publishes a strictly improving solution to the
// callback surface and the solution history log.
func (s *Solver) saveReportMipSolution(newUpperLimit float64) {
	if s.opts.submip || newUpperLimit >= s.state.UpperLimit {
		return
	}
	s.fireCallback(PointSolution, s.state.IncumbentObjective, s.state.Incumbent)
	s.fireCallback(PointImprovingSolution, s.state.IncumbentObjective, s.state.Incumbent)
	if s.opts.solutionLog != nil {
		if err := s.opts.solutionLog.Append(s.state.IncumbentObjective, s.state.Incumbent); err != nil {
			s.logger.Warn("failed to append improving solution", "error", err)
		}
	}
}
