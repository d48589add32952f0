package mipcore

import (
	"math"

	"github.com/optimalize/mipcore/internal/quad"
	"github.com/optimalize/mipcore/model"
)

// rootOutcome is the result of one full root evaluation. rootRestart means a
// presolve-triggered restart succeeded and the evaluation must re-enter from
// the top on the rebuilt model.
type rootOutcome uint8

const (
	rootDone rootOutcome = iota
	rootRestart
)

// separationProgress tracks stalling of the separation loop. The movement of
// the relaxation solution away from the first root solution is averaged into
// a direction vector; the smoothed alignment of each round's movement with
// that average is the progress scalar. Transient, reset every root
// evaluation.
type separationProgress struct {
	avgDirection []float64
	curDirection []float64
	smooth       float64
	stall        int
	rounds       int
}

// measure folds one separation round's relaxation solution into the progress
// state and updates the stall counter. prevObj is the objective after the
// previous round, firstObj and firstSol belong to the very first root solve.
func (p *separationProgress) measure(o *options, sol, firstSol []float64, obj, prevObj, firstObj float64) {
	var sqrnorm quad.Double
	for i := range p.curDirection {
		p.curDirection[i] = firstSol[i] - sol[i]
		sqrnorm = sqrnorm.AddProduct(p.curDirection[i], p.curDirection[i])
	}

	scale := 1.0 / math.Sqrt(sqrnorm.Float64())
	sqrnorm = quad.Double{}
	var dotproduct quad.Double
	for i := range p.avgDirection {
		p.avgDirection[i] += (scale*p.curDirection[i] - p.avgDirection[i]) / float64(p.rounds)
		sqrnorm = sqrnorm.AddProduct(p.avgDirection[i], p.avgDirection[i])
		dotproduct = dotproduct.AddProduct(p.avgDirection[i], p.curDirection[i])
	}
	progress := dotproduct.Float64() / math.Sqrt(sqrnorm.Float64())

	if p.rounds == 1 {
		p.smooth = progress
		return
	}
	next := (1.0-o.smoothingFactor)*p.smooth + o.smoothingFactor*progress
	if next < p.smooth*(1.0+o.stallMargin) &&
		obj-firstObj <= (prevObj-firstObj)*(1.0+o.objImproveFrac) {
		p.stall++
	} else {
		p.stall = 0
	}
	p.smooth = next
}

// rootSeparationRound runs one separation round, re-evaluates the root
// relaxation, and follows up with a randomized rounding pass when this is a
// sub-solve or no incumbent exists yet. The returned abort is true when the
// root evaluation must end.
func (s *Solver) rootSeparationRound() (ncuts int, abort bool) {
	if s.sepa == nil {
		return 0, false
	}
	before := s.relax.NumIterations()
	ncuts = s.sepa.SeparationRound(s.domain, s.rootLp.Status)
	iters := s.relax.NumIterations() - before
	s.state.TotalLpIterations += iters
	s.state.SepaLpIterations += iters
	s.opts.metrics.RecordSeparationRound(ncuts)

	if s.evaluateRootLp().terminal() {
		return ncuts, true
	}

	if s.collabs.Heuristics != nil && (s.opts.submip || !s.state.HasIncumbent()) {
		s.runHeuristic(func(h Heuristics) { h.RandomizedRounding(s.rootLp.Solution) })
		if s.evaluateRootLp().terminal() {
			return ncuts, true
		}
	}
	return ncuts, false
}

// runHeuristic invokes one heuristic pass and attributes the relaxation
// iterations it consumed to the heuristic category.
func (s *Solver) runHeuristic(fn func(h Heuristics)) {
	if s.collabs.Heuristics == nil {
		return
	}
	before := s.relax.NumIterations()
	fn(s.collabs.Heuristics)
	iters := s.relax.NumIterations() - before
	s.state.TotalLpIterations += iters
	s.state.HeuristicLpIterations += iters
}

// moreHeuristicsAllowed decides whether further primal heuristics fit into
// the effort budget. Sub-solves get a strictly proportional budget. The main
// solve gets a proportional budget plus an initial offset early on; later the
// spent share is estimated against the projected total effort, front-loading
// the budget into the first part of the tree exploration.
func (s *Solver) moreHeuristicsAllowed() bool {
	st := &s.state
	if s.opts.submip {
		return float64(st.HeuristicLpIterations) <
			float64(st.TotalLpIterations)*s.opts.heuristicEffort
	}
	if st.PrunedTreeWeight < 1e-3 &&
		st.NumLeaves-st.NumLeavesBeforeRun < 10 &&
		st.NumNodes-st.NumNodesBeforeRun < 1000 {
		return float64(st.HeuristicLpIterations) <
			float64(st.TotalLpIterations)*s.opts.heuristicEffort+10000
	}
	if st.HeuristicLpIterations <
		100000+((st.TotalLpIterations-st.HeuristicLpIterations-st.SbLpIterations)>>1) {
		heurItersCurrRun := st.HeuristicLpIterations - st.HeuristicLpIterationsBeforeRun
		sbItersCurrRun := st.SbLpIterations - st.SbLpIterationsBeforeRun
		nodeItersCurrRun := st.TotalLpIterations - st.TotalLpIterationsBeforeRun -
			heurItersCurrRun - sbItersCurrRun
		// Project the node iterations of the current run to the full tree by
		// the pruned weight; everything else enters as a constant offset.
		estim := float64(st.HeuristicLpIterations) /
			(float64(st.TotalLpIterations-nodeItersCurrRun) +
				float64(nodeItersCurrRun)/math.Max(0.01, st.PrunedTreeWeight))
		// Spend the budget within the first effortWindow share of the tree,
		// and the effortFront share of it as early as possible.
		share := math.Max(s.opts.effortFront/s.opts.effortWindow,
			math.Min(st.PrunedTreeWeight, s.opts.effortWindow)/s.opts.effortWindow)
		return estim < share*s.opts.heuristicEffort
	}
	return false
}

// inactiveIntegerRate is the percentage of integer columns made inactive
// since setup, by domain fixing or presolve substitutions.
func (s *Solver) inactiveIntegerRate() float64 {
	return s.partition.InactiveIntegerFraction(s.presolve.Substitutions())
}

// canRestart reports whether a presolve-triggered restart is available.
func (s *Solver) canRestart() bool {
	return s.opts.presolve && s.collabs.Presolver != nil
}

// requestRestart cancels auxiliary tasks, performs the restart, and reports
// whether the root evaluation must re-enter. clampRounds, when non-negative,
// caps future separation rounds at the count the current run needed.
func (s *Solver) requestRestart(fixingRate float64, clampRounds int) rootOutcome {
	s.logger.LogRestart(s.runCtx, fixingRate, s.state.NumRestarts+1)
	if clampRounds >= 0 {
		s.maxSepaRounds = min(s.maxSepaRounds, clampRounds)
	}
	s.cancelAuxTasks()
	s.performRestart()
	s.state.NumRestartsRoot++
	s.opts.metrics.RecordRestart(true)
	if s.state.Status() == StatusNotSet {
		return rootRestart
	}
	return rootDone
}

// evaluateRootNode performs one full root evaluation: first relaxation
// solve, separation with stall detection, primal heuristics under the effort
// budget, and the fixing-rate restart decision. The caller loops while it
// returns rootRestart.
func (s *Solver) evaluateRootNode() rootOutcome {
	if s.detectSymmetries {
		s.startSymmetryDetection()
	}
	if !s.analyticCenterComputed {
		s.startAnalyticCenterComputation()
	}

	s.relax.SetIterationLimit(0)
	if err := s.relax.LoadModel(s.mdl); err != nil {
		s.logger.Error("relaxation engine rejected model", "error", err)
		s.state.SetTerminalStatus(StatusInterrupt)
		return rootDone
	}
	s.domain.ClearChangedCols()
	s.relax.SetObjectiveLimit(s.state.UpperLimit)
	s.state.LowerBound = math.Max(s.state.LowerBound, s.domain.ObjectiveLowerBound())

	s.printDisplayLine(SourceNone)

	if s.rootBasis.Valid {
		s.relax.SetBasis(s.rootBasis)
	}

	status := s.evaluateRootLp()
	if s.state.NumRestarts == 0 {
		s.firstRootLpIters = s.state.TotalLpIterations
	}
	if status == rootLpUnbounded {
		s.state.SetTerminalStatus(StatusUnbounded)
		return rootDone
	}
	if status.terminal() {
		return rootDone
	}

	s.firstLpSol = append(s.firstLpSol[:0], s.rootLp.Solution...)
	s.firstLpObj = s.rootLp.Objective
	s.rootLpObj = s.firstLpObj

	if b := s.relax.Basis(); b.Valid && s.relax.NumRows() == s.mdl.NumRow {
		s.rootBasis = b
	} else {
		// The saved root basis must be consistent for the model without
		// cuts; fall back to the slack basis when cut rows are present.
		s.rootBasis = model.SlackBasis(s.mdl.NumCol, s.mdl.NumRow)
	}

	// A non-empty pool at this point means a restart carried cuts over;
	// re-separate them against the fresh root solution before new rounds.
	if s.sepa != nil && s.sepa.NumCuts() != 0 {
		before := s.relax.NumIterations()
		ncuts := s.sepa.SeparateStoredCuts(s.domain)
		iters := s.relax.NumIterations() - before
		s.state.TotalLpIterations += iters
		s.state.SepaLpIterations += iters
		s.opts.metrics.RecordSeparationRound(ncuts)
		if s.evaluateRootLp().terminal() {
			return rootDone
		}
	}

	s.relax.SetIterationLimit(rootIterationLimit(s.relax.AvgSolveIterations()))

	s.runHeuristic(func(h Heuristics) { h.RandomizedRounding(s.firstLpSol) })
	if s.evaluateRootLp().terminal() {
		return rootDone
	}

	s.rootLpObj = s.firstLpObj
	s.removeFixedIndices()
	if s.canRestart() {
		if rate := s.inactiveIntegerRate(); rate >= s.opts.restartFixingRate {
			return s.requestRestart(rate, -1)
		}
	}

	progress := separationProgress{
		avgDirection: make([]float64, s.mdl.NumCol),
		curDirection: make([]float64, s.mdl.NumCol),
	}
	fixingRateBreak := false

	for s.rootLp.Status == RelaxOptimal && len(s.rootLp.FractionalIntegers) > 0 &&
		progress.stall < s.opts.stallLimit {
		s.printDisplayLine(SourceNone)
		if s.checkLimits(0) {
			return rootDone
		}
		if progress.rounds == s.maxSepaRounds {
			break
		}

		s.removeFixedIndices()
		if !s.opts.submip && s.canRestart() &&
			s.inactiveIntegerRate() >= s.opts.restartFixingRate {
			fixingRateBreak = true
			break
		}

		progress.rounds++
		ncuts, abort := s.rootSeparationRound()
		if abort {
			return rootDone
		}

		if progress.rounds >= 5 && !s.opts.submip && !s.analyticCenterComputed {
			if s.checkLimits(0) {
				return rootDone
			}
			s.finishAnalyticCenterComputation(s.runCtx)
			if s.analyticCenter != nil {
				s.runHeuristic(func(h Heuristics) { h.CentralRounding(s.analyticCenter) })
			}
			if s.checkLimits(0) {
				return rootDone
			}
			if s.evaluateRootLp().terminal() {
				return rootDone
			}
		}

		progress.measure(&s.opts, s.rootLp.Solution, s.firstLpSol,
			s.rootLp.Objective, s.rootLpObj, s.firstLpObj)

		s.rootLpObj = s.rootLp.Objective
		s.relax.SetIterationLimit(rootIterationLimit(s.relax.AvgSolveIterations()))
		if ncuts == 0 {
			break
		}
	}

	s.relax.SetIterationLimit(0)
	if s.evaluateRootLp().terminal() {
		return rootDone
	}

	s.rootLpSol = append(s.rootLpSol[:0], s.rootLp.Solution...)
	s.rootLpObj = s.rootLp.Objective
	s.relax.SetIterationLimit(rootIterationLimit(s.relax.AvgSolveIterations()))

	if !s.analyticCenterComputed {
		if s.checkLimits(0) {
			return rootDone
		}
		s.finishAnalyticCenterComputation(s.runCtx)
		if s.analyticCenter != nil {
			s.runHeuristic(func(h Heuristics) { h.CentralRounding(s.analyticCenter) })
		}
		if s.checkLimits(0) {
			return rootDone
		}
		if abort := s.resolveAndSeparateOnce(&progress); abort {
			return rootDone
		}
	}

	s.printDisplayLine(SourceNone)
	if s.checkLimits(0) {
		return rootDone
	}

	if abort := s.runRootHeuristics(&progress); abort {
		return rootDone
	}

	if s.state.LowerBound > s.state.UpperLimit {
		s.state.SetTerminalStatus(StatusOptimal)
		s.state.PrunedTreeWeight = 1.0
		s.state.countLeaf()
		return rootDone
	}

	if abort := s.resolveAndSeparateOnce(&progress); abort {
		return rootDone
	}

	s.removeFixedIndices()
	s.rootLpObj = s.rootLp.Objective

	s.printDisplayLine(SourceNone)

	if s.state.LowerBound <= s.state.UpperLimit {
		if !s.opts.submip && s.canRestart() {
			if !s.analyticCenterComputed {
				s.finishAnalyticCenterComputation(s.runCtx)
			}
			rate := s.inactiveIntegerRate()
			threshold := s.opts.postHeurFixingRate
			if s.opts.submip {
				threshold += s.opts.submipExtraFixingRate
			}
			if rate >= threshold || (rate > 0 && s.state.NumRestarts == 0) {
				clamp := progress.rounds
				if fixingRateBreak {
					clamp = -1
				}
				return s.requestRestart(rate, clamp)
			}
		}

		if s.detectSymmetries {
			s.finishSymmetryDetection(s.runCtx)
			if s.evaluateRootLp().terminal() {
				return rootDone
			}
		}

		// Seed the node queue with the root node so tree search can begin.
		estimate := s.state.LowerBound
		if s.collabs.Estimator != nil {
			estimate = s.collabs.Estimator.BestEstimate(s.rootLp.Solution, s.state.LowerBound)
		}
		s.queue.Emplace(s.state.LowerBound, estimate, 1)
	}
	return rootDone
}

// resolveAndSeparateOnce re-evaluates the relaxation when global bounds
// changed and, if they did, follows with one extra separation round.
func (s *Solver) resolveAndSeparateOnce(progress *separationProgress) (abort bool) {
	separate := len(s.domain.ChangedCols()) > 0
	if s.evaluateRootLp().terminal() {
		return true
	}
	if separate && s.rootLp.Status == RelaxOptimal {
		if _, abort := s.rootSeparationRound(); abort {
			return true
		}
		progress.rounds++
		s.printDisplayLine(SourceNone)
	}
	return false
}

// runRootHeuristics runs the post-separation heuristics under the effort
// budget: reduced-cost restricted search, RENS, the trivial pass, and, while
// no incumbent exists, the feasibility pump.
func (s *Solver) runRootHeuristics(progress *separationProgress) (abort bool) {
	if s.collabs.Heuristics == nil || len(s.rootLpSol) == 0 {
		return false
	}
	if !math.IsInf(s.state.UpperLimit, 1) && !s.moreHeuristicsAllowed() {
		return false
	}

	s.runHeuristic(func(h Heuristics) { h.RootReducedCost() })
	if s.checkLimits(0) {
		return true
	}
	if s.resolveAndSeparateOnce(progress) {
		return true
	}

	if !math.IsInf(s.state.UpperLimit, 1) && !s.moreHeuristicsAllowed() {
		return false
	}
	if s.checkLimits(0) {
		return true
	}
	s.runHeuristic(func(h Heuristics) { h.RENS(s.rootLpSol) })
	if s.checkLimits(0) {
		return true
	}
	if s.resolveAndSeparateOnce(progress) {
		return true
	}
	if s.checkLimits(0) {
		return true
	}

	if s.opts.trivialHeuristics {
		s.runHeuristic(func(h Heuristics) { h.Trivial() })
	}

	if !math.IsInf(s.state.UpperLimit, 1) || s.opts.submip {
		return false
	}
	if s.checkLimits(0) {
		return true
	}
	s.runHeuristic(func(h Heuristics) { h.FeasibilityPump() })
	if s.checkLimits(0) {
		return true
	}
	return s.evaluateRootLp().terminal()
}

// rootIterationLimit caps resolve iterations during separation at ten times
// the running average, with a floor for cheap relaxations.
func rootIterationLimit(avgIters float64) int64 {
	return max(10000, int64(10*avgIters))
}
