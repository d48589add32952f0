package mipcore

import (
	"math"

	"github.com/optimalize/mipcore/model"
)

// performRestart re-presolves the current model and rebuilds every piece of
// state that refers to the reduced space. Bookkeeping bounds are shifted back
// to the original objective space first, since that is the space presolve
// works in; runSetup shifts them into the new reduced space afterwards. The
// incumbent's reduced-space shadow is discarded; the incumbent itself lives
// in original space and survives.
func (s *Solver) performRestart() {
	s.state.NumRestarts++
	s.state.markBeforeRunBaselines()

	numCuts := s.relax.NumRows() - s.mdl.NumRow
	if numCuts > 0 {
		s.presolve.AppendCutsToModel(numCuts)
	}

	// Expand the reduced-space root basis to the original space so the next
	// presolve can hand out a starting basis hint.
	var rootBasisHint *model.Basis
	if s.rootBasis.Valid {
		hint := model.Basis{
			ColStatus: make([]model.BasisStatus, s.presolve.OrigNumCol()),
			RowStatus: make([]model.BasisStatus, s.presolve.OrigNumRow()),
			Valid:     true,
		}
		for i := range hint.RowStatus {
			hint.RowStatus[i] = model.Basic
		}
		for i := 0; i < s.mdl.NumCol; i++ {
			hint.ColStatus[s.presolve.OrigColIndex(i)] = s.rootBasis.ColStatus[i]
		}
		for i := range s.rootBasis.RowStatus {
			hint.RowStatus[s.presolve.OrigRowIndex(i)] = s.rootBasis.RowStatus[i]
		}
		rootBasisHint = &hint
	}

	// Presolve expects the objective bookkeeping in the original space.
	s.state.UpperLimit += s.mdl.Offset
	s.state.OptimalityLimit += s.mdl.Offset
	s.state.UpperBound += s.mdl.Offset
	s.state.LowerBound += s.mdl.Offset

	s.incumbent = s.incumbent[:0]
	s.state.PrunedTreeWeight = 0
	s.queue.Clear()
	s.globalOrbits = nil

	res, err := s.presolve.Run(rootBasisHint)
	if err != nil {
		s.runErr = err
		s.state.SetTerminalStatus(StatusInterrupt)
		return
	}

	if res.Status != StatusNotSet {
		s.state.SetTerminalStatus(res.Status)
		if res.Model != nil {
			s.mdl = res.Model
		}
		s.state.UpperLimit -= s.mdl.Offset
		s.state.OptimalityLimit -= s.mdl.Offset

		if res.Status == StatusOptimal {
			// The remaining model is fully fixed; lift the empty reduced
			// solution to recover the optimal assignment.
			s.state.UpperBound = 0
			s.transformNewIntegerFeasibleSolution(nil, true, SourceEmptyModel)
		} else {
			s.state.UpperBound -= s.mdl.Offset
		}
		s.state.LowerBound = s.state.UpperBound
		if s.state.IncumbentObjective < math.Inf(1) && res.Status == StatusInfeasible {
			// Presolve proved the remaining problem empty while a feasible
			// incumbent exists, so the incumbent is optimal.
			s.state.status = StatusOptimal
		}
		return
	}

	s.mdl = res.Model
	s.rootBasisHint = rootBasisHint
	if err := s.runSetup(); err != nil {
		s.runErr = err
		s.state.SetTerminalStatus(StatusInterrupt)
		return
	}
	s.presolve.RemoveCutsFromModel(numCuts)
	s.rootBasisHint = nil
}

// basisTransfer constructs a starting basis for the reduced model from the
// original-space hint left by a restart. The result is tagged alien since
// the dimensions were mapped, not solved.
func (s *Solver) basisTransfer() {
	if s.rootBasisHint == nil || !s.rootBasisHint.Valid {
		return
	}
	numCol, numRow := s.mdl.NumCol, s.mdl.NumRow
	s.rootBasis = model.Basis{
		ColStatus: make([]model.BasisStatus, numCol),
		RowStatus: make([]model.BasisStatus, numRow),
		Valid:     true,
		Alien:     true,
	}
	for i := 0; i < numRow; i++ {
		s.rootBasis.RowStatus[i] = s.rootBasisHint.RowStatus[s.presolve.OrigRowIndex(i)]
	}
	for i := 0; i < numCol; i++ {
		s.rootBasis.ColStatus[i] = s.rootBasisHint.ColStatus[s.presolve.OrigColIndex(i)]
	}
}
