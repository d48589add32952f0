package model

import "github.com/RoaringBitmap/roaring/v2"

// ColumnPartition maintains the four disjoint column index sets the search
// reads on every pass: continuous, integer, implied-integer, and their union
// "integral". At setup every column belongs to exactly one of the first
// three sets. Columns detected fixed by propagation are removed from all
// sets and are only reinstated by a full restart re-setup.
type ColumnPartition struct {
	continuous *roaring.Bitmap
	integer    *roaring.Bitmap
	implied    *roaring.Bitmap
	integral   *roaring.Bitmap

	// numIntegerAtSetup is the integer-set cardinality right after setup,
	// the denominator for the inactive-column fraction driving restarts.
	numIntegerAtSetup uint64
}

// NewColumnPartition classifies every column of the model. Semi-continuous
// and semi-integer columns are rejected upstream; here they are treated as
// a contract violation and reported via ok=false with the offending column.
func NewColumnPartition(m *Model) (p *ColumnPartition, badCol int, ok bool) {
	p = &ColumnPartition{
		continuous: roaring.New(),
		integer:    roaring.New(),
		implied:    roaring.New(),
		integral:   roaring.New(),
	}
	for i := 0; i < m.NumCol; i++ {
		switch m.VarTypeOf(i) {
		case Continuous:
			p.continuous.Add(uint32(i))
		case Integer:
			p.integer.Add(uint32(i))
			p.integral.Add(uint32(i))
		case ImplicitInteger:
			p.implied.Add(uint32(i))
			p.integral.Add(uint32(i))
		default:
			return nil, i, false
		}
	}
	p.numIntegerAtSetup = p.integer.GetCardinality()
	return p, -1, true
}

// RemoveFixed drops every column the predicate reports fixed from all sets.
func (p *ColumnPartition) RemoveFixed(isFixed func(col int) bool) {
	for _, set := range []*roaring.Bitmap{p.continuous, p.integer, p.implied, p.integral} {
		var drop []uint32
		it := set.Iterator()
		for it.HasNext() {
			c := it.Next()
			if isFixed(int(c)) {
				drop = append(drop, c)
			}
		}
		for _, c := range drop {
			set.Remove(c)
		}
	}
}

// InactiveIntegerFraction returns the fraction (in percent) of the integer
// columns present at setup that have since become inactive. substitutions
// counts integer columns eliminated by means other than domain fixing.
func (p *ColumnPartition) InactiveIntegerFraction(substitutions int) float64 {
	if p.numIntegerAtSetup == 0 {
		return 0
	}
	active := float64(p.integer.GetCardinality()) - float64(substitutions)
	return 100.0 * (1.0 - active/float64(p.numIntegerAtSetup))
}

// NumInteger returns the current integer-column count.
func (p *ColumnPartition) NumInteger() int { return int(p.integer.GetCardinality()) }

// NumIntegerAtSetup returns the integer-column count captured at setup.
func (p *ColumnPartition) NumIntegerAtSetup() int { return int(p.numIntegerAtSetup) }

// NumContinuous returns the current continuous-column count.
func (p *ColumnPartition) NumContinuous() int { return int(p.continuous.GetCardinality()) }

// NumImplied returns the current implied-integer column count.
func (p *ColumnPartition) NumImplied() int { return int(p.implied.GetCardinality()) }

// ContainsInteger reports whether col is still in the integer set.
func (p *ColumnPartition) ContainsInteger(col int) bool {
	return p.integer.Contains(uint32(col))
}

// IntegralCols iterates the union of integer and implied-integer columns.
func (p *ColumnPartition) IntegralCols(yield func(col int) bool) {
	it := p.integral.Iterator()
	for it.HasNext() {
		if !yield(int(it.Next())) {
			return
		}
	}
}

// IntegerCols iterates the integer columns.
func (p *ColumnPartition) IntegerCols(yield func(col int) bool) {
	it := p.integer.Iterator()
	for it.HasNext() {
		if !yield(int(it.Next())) {
			return
		}
	}
}
