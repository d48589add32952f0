package model

import "math"

// Inf is the solver-wide infinity for bounds and objective values.
var Inf = math.Inf(1)

// VarType classifies a column.
type VarType uint8

const (
	// Continuous columns take any value within their bounds.
	Continuous VarType = iota
	// Integer columns must take integral values.
	Integer
	// ImplicitInteger columns are continuous columns detected to take
	// integral values in every feasible solution.
	ImplicitInteger
	// SemiContinuous and SemiInteger must be reformulated away before the
	// model reaches the root orchestrator.
	SemiContinuous
	SemiInteger
)

// String implements fmt.Stringer.
func (v VarType) String() string {
	switch v {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case ImplicitInteger:
		return "implied-integer"
	case SemiContinuous:
		return "semi-continuous"
	case SemiInteger:
		return "semi-integer"
	}
	return "unknown"
}

// Sense is the optimization direction of the original model. Internally the
// solver always minimizes; a maximization model has its costs negated and
// Sense records how to report values back.
type Sense int8

const (
	Minimize Sense = 1
	Maximize Sense = -1
)

// BasisStatus is the simplex status of a column or row.
type BasisStatus uint8

const (
	NonBasic BasisStatus = iota
	Basic
	AtLower
	AtUpper
)

// Basis is a simplex basis snapshot for the relaxation.
type Basis struct {
	ColStatus []BasisStatus
	RowStatus []BasisStatus
	Valid     bool
	// Alien marks a basis transferred from a different model space, which
	// the relaxation engine must repair before use.
	Alien bool
}

// SlackBasis returns the all-slack basis for the given dimensions.
func SlackBasis(numCol, numRow int) Basis {
	b := Basis{
		ColStatus: make([]BasisStatus, numCol),
		RowStatus: make([]BasisStatus, numRow),
		Valid:     true,
	}
	for i := range b.RowStatus {
		b.RowStatus[i] = Basic
	}
	return b
}

// RowProperty caches per-row facts computed once at setup: whether every
// coefficient and participating column is integral, and the maximal absolute
// coefficient used to filter propagation on badly scaled rows.
type RowProperty struct {
	Integral   bool
	MaxAbsCoef float64
}
