package model

import "math"

// Model is a mixed-integer model in standard form:
//
//	min c'x + offset  s.t.  rowLower <= Ax <= rowUpper, colLower <= x <= colUpper
//
// with integrality requirements per column. The matrix is stored column-wise
// (CSC); BuildRowwise derives the row-wise form needed for row activity
// computation and per-row caches.
type Model struct {
	NumCol int
	NumRow int

	ColCost  []float64
	ColLower []float64
	ColUpper []float64
	RowLower []float64
	RowUpper []float64

	Integrality []VarType

	// Column-wise matrix.
	AStart []int
	AIndex []int
	AValue []float64

	Offset float64
	Sense  Sense

	ColNames []string
	RowNames []string

	// Row-wise matrix, valid after BuildRowwise.
	ARStart []int
	ARIndex []int
	ARValue []float64
}

// VarTypeOf returns the integrality class of column i.
func (m *Model) VarTypeOf(i int) VarType {
	if len(m.Integrality) == 0 {
		return Continuous
	}
	return m.Integrality[i]
}

// NumNonzero returns the number of matrix entries.
func (m *Model) NumNonzero() int {
	return len(m.AValue)
}

// BuildRowwise computes the row-wise transpose of the column-wise matrix.
func (m *Model) BuildRowwise() {
	m.ARStart = make([]int, m.NumRow+1)
	m.ARIndex = make([]int, len(m.AIndex))
	m.ARValue = make([]float64, len(m.AValue))

	for _, row := range m.AIndex {
		m.ARStart[row+1]++
	}
	for i := 0; i < m.NumRow; i++ {
		m.ARStart[i+1] += m.ARStart[i]
	}

	pos := make([]int, m.NumRow)
	copy(pos, m.ARStart[:m.NumRow])
	for col := 0; col < m.NumCol; col++ {
		for j := m.AStart[col]; j < m.AStart[col+1]; j++ {
			row := m.AIndex[j]
			m.ARIndex[pos[row]] = col
			m.ARValue[pos[row]] = m.AValue[j]
			pos[row]++
		}
	}
}

// RowProperties scans the row-wise matrix and classifies each row. A row is
// integral when every participating column is integer-typed and every
// coefficient is within epsilon of an integer. The caller may round the
// two-sided range of integral rows inward by the feasibility tolerance.
func (m *Model) RowProperties(epsilon float64) []RowProperty {
	props := make([]RowProperty, m.NumRow)
	for i := 0; i < m.NumRow; i++ {
		maxAbs := 0.0
		integral := true
		for j := m.ARStart[i]; j < m.ARStart[i+1]; j++ {
			v := m.ARValue[j]
			if integral {
				if m.VarTypeOf(m.ARIndex[j]) == Continuous {
					integral = false
				} else if math.Abs(v-math.Floor(v+0.5)) > epsilon {
					integral = false
				}
			}
			if a := math.Abs(v); a > maxAbs {
				maxAbs = a
			}
		}
		props[i] = RowProperty{Integral: integral, MaxAbsCoef: maxAbs}
	}
	return props
}

// RoundIntegralRows tightens the range of every integral row to the nearest
// enclosed integers, loosened by feastol so feasible activities survive.
func (m *Model) RoundIntegralRows(props []RowProperty, feastol float64) {
	for i, p := range props {
		if !p.Integral {
			continue
		}
		if m.RowLower[i] != -Inf {
			m.RowLower[i] = math.Ceil(m.RowLower[i] - feastol)
		}
		if m.RowUpper[i] != Inf {
			m.RowUpper[i] = math.Floor(m.RowUpper[i] + feastol)
		}
	}
}

// ColumnLocks counts, per column, how many rows block it from moving up or
// down. Heuristics use lock counts to pick rounding directions.
func (m *Model) ColumnLocks() (up, down []int) {
	up = make([]int, m.NumCol)
	down = make([]int, m.NumCol)
	for col := 0; col < m.NumCol; col++ {
		for j := m.AStart[col]; j < m.AStart[col+1]; j++ {
			row := m.AIndex[j]
			if m.RowLower[row] != -Inf {
				if m.AValue[j] < 0 {
					up[col]++
				} else {
					down[col]++
				}
			}
			if m.RowUpper[row] != Inf {
				if m.AValue[j] < 0 {
					down[col]++
				} else {
					up[col]++
				}
			}
		}
	}
	return up, down
}

// Snapshot returns a deep copy for use by background tasks. The copy shares
// nothing with the receiver.
func (m *Model) Snapshot() *Model {
	c := &Model{
		NumCol: m.NumCol,
		NumRow: m.NumRow,
		Offset: m.Offset,
		Sense:  m.Sense,
	}
	c.ColCost = append([]float64(nil), m.ColCost...)
	c.ColLower = append([]float64(nil), m.ColLower...)
	c.ColUpper = append([]float64(nil), m.ColUpper...)
	c.RowLower = append([]float64(nil), m.RowLower...)
	c.RowUpper = append([]float64(nil), m.RowUpper...)
	c.Integrality = append([]VarType(nil), m.Integrality...)
	c.AStart = append([]int(nil), m.AStart...)
	c.AIndex = append([]int(nil), m.AIndex...)
	c.AValue = append([]float64(nil), m.AValue...)
	c.ARStart = append([]int(nil), m.ARStart...)
	c.ARIndex = append([]int(nil), m.ARIndex...)
	c.ARValue = append([]float64(nil), m.ARValue...)
	c.ColNames = append([]string(nil), m.ColNames...)
	c.RowNames = append([]string(nil), m.RowNames...)
	return c
}
