package mipcore

import (
	"math"
	"strconv"

	"github.com/optimalize/mipcore/internal/quad"
	"github.com/optimalize/mipcore/model"
)

// solutionAudit holds the result of checking a candidate solution against
// the original model in compensated precision.
type solutionAudit struct {
	boundViol float64
	intViol   float64
	rowViol   float64

	worstBoundCol int
	worstIntCol   int
	worstRow      int

	objective quad.Double
}

func (a solutionAudit) feasible(feastol float64) bool {
	return a.boundViol <= feastol && a.intViol <= feastol && a.rowViol <= feastol
}

// auditSolution recomputes bound, integrality and row violations of sol on
// the original model. Row activities and the objective are accumulated in
// compensated arithmetic so that near-tolerance candidates are judged on the
// true residuals rather than on float64 rounding noise.
func auditSolution(m *model.Model, sol []float64) solutionAudit {
	audit := solutionAudit{worstBoundCol: -1, worstIntCol: -1, worstRow: -1}

	for i := 0; i < m.NumCol; i++ {
		v := sol[i]
		audit.objective = audit.objective.AddProduct(m.ColCost[i], v)

		viol := math.Max(m.ColLower[i]-v, v-m.ColUpper[i])
		if viol > audit.boundViol {
			audit.boundViol = viol
			audit.worstBoundCol = i
		}
		if t := m.VarTypeOf(i); t == model.Integer || t == model.ImplicitInteger {
			if viol := math.Abs(v - math.Floor(v+0.5)); viol > audit.intViol {
				audit.intViol = viol
				audit.worstIntCol = i
			}
		}
	}

	activities := make([]quad.Double, m.NumRow)
	for col := 0; col < m.NumCol; col++ {
		v := sol[col]
		if v == 0 {
			continue
		}
		for k := m.AStart[col]; k < m.AStart[col+1]; k++ {
			row := m.AIndex[k]
			activities[row] = activities[row].AddProduct(m.AValue[k], v)
		}
	}
	for row := 0; row < m.NumRow; row++ {
		act := activities[row].Float64()
		viol := math.Max(m.RowLower[row]-act, act-m.RowUpper[row])
		if viol > audit.rowViol {
			audit.rowViol = viol
			audit.worstRow = row
		}
	}
	return audit
}

// transformNewIntegerFeasibleSolution lifts a reduced-space candidate back
// to the original model, audits it there, and installs it as the incumbent
// when it passes. An infeasible lift gets exactly one repair attempt: the
// integer columns are fixed at their rounded values and the continuous part
// is resolved on the original model. The return value is the candidate's
// objective in the working space, or +Inf when the candidate had to be
// rejected.
func (s *Solver) transformNewIntegerFeasibleSolution(reducedSol []float64, possiblyStore bool, source SolutionSource) float64 {
	origSol := s.presolve.UndoPrimal(reducedSol)

	for attempt := 0; attempt < 2; attempt++ {
		audit := auditSolution(s.origModel, origSol)

		if audit.feasible(s.state.Feastol) {
			origObj := audit.objective.Float64() + s.origModel.Offset
			workObj := s.workObjective(audit.objective.Float64())

			if possiblyStore && workObj < s.incumbentWorkObj() {
				s.state.Incumbent = append(s.state.Incumbent[:0], origSol...)
				s.state.IncumbentObjective = origObj
				s.state.IncumbentSource = source
				s.state.BoundViolation = audit.boundViol
				s.state.IntegralityViolation = audit.intViol
				s.state.RowViolation = audit.rowViol
			}
			return workObj
		}

		if attempt > 0 || s.collabs.Repair == nil {
			break
		}

		// Repair attempt: fix the integers at their rounded values and let
		// the continuous part be resolved on the original model.
		repaired, feasible := s.solveRepairLp(origSol)
		if !feasible {
			break
		}
		origSol = repaired
	}

	audit := auditSolution(s.origModel, origSol)
	s.logger.LogRepairFailure(s.runCtx,
		audit.objective.Float64()+s.origModel.Offset,
		audit.boundViol, audit.intViol, audit.rowViol,
		colName(s.origModel, audit.worstBoundCol),
		colName(s.origModel, audit.worstIntCol),
		rowName(s.origModel, audit.worstRow))

	// A feasible best is never replaced by an infeasible candidate, but as
	// long as only infeasible solutions exist the least bad one is kept so
	// early termination can still report something.
	if possiblyStore && !s.state.HasIncumbent() {
		if workObj := s.workObjective(audit.objective.Float64()); workObj < s.incumbentWorkObj() {
			s.state.Incumbent = append(s.state.Incumbent[:0], origSol...)
			s.state.IncumbentObjective = audit.objective.Float64() + s.origModel.Offset
			s.state.IncumbentSource = source
			s.state.BoundViolation = audit.boundViol
			s.state.IntegralityViolation = audit.intViol
			s.state.RowViolation = audit.rowViol
		}
	}
	return math.Inf(1)
}

func colName(m *model.Model, i int) string {
	if i < 0 {
		return "-"
	}
	if i < len(m.ColNames) && m.ColNames[i] != "" {
		return m.ColNames[i]
	}
	return "c" + strconv.Itoa(i)
}

func rowName(m *model.Model, i int) string {
	if i < 0 {
		return "-"
	}
	if i < len(m.RowNames) && m.RowNames[i] != "" {
		return m.RowNames[i]
	}
	return "r" + strconv.Itoa(i)
}

// workObjective maps an original-space objective sum (without the constant
// offset) into the working space, which is always minimization and carries
// the offset separately.
func (s *Solver) workObjective(origObjSum float64) float64 {
	return float64(s.origModel.Sense) * origObjSum
}

// incumbentWorkObj returns the stored incumbent's objective in the working
// space, or +Inf when no incumbent has been stored yet.
func (s *Solver) incumbentWorkObj() float64 {
	if len(s.state.Incumbent) == 0 {
		return math.Inf(1)
	}
	return s.workObjective(s.state.IncumbentObjective - s.origModel.Offset)
}

// solveRepairLp fixes every integer column of the original model at its
// rounded candidate value and resolves the continuous remainder.
func (s *Solver) solveRepairLp(origSol []float64) ([]float64, bool) {
	fixed := s.origModel.Snapshot()
	for i := 0; i < fixed.NumCol; i++ {
		if t := fixed.VarTypeOf(i); t == model.Integer || t == model.ImplicitInteger {
			v := math.Floor(origSol[i] + 0.5)
			fixed.ColLower[i] = v
			fixed.ColUpper[i] = v
		}
	}
	return s.collabs.Repair.Solve(fixed)
}

// TrySolution audits a caller-supplied original-space assignment and, when
// feasible, offers it to the incumbent tracker through the reduced space.
func (s *Solver) trySolution(origSol []float64, source SolutionSource) bool {
	if len(origSol) != s.origModel.NumCol {
		return false
	}
	audit := auditSolution(s.origModel, origSol)
	if !audit.feasible(s.state.Feastol) {
		return false
	}
	reduced := s.presolve.ReducedPrimal(origSol)
	return s.addIncumbent(reduced, s.workObjective(audit.objective.Float64()), source)
}
