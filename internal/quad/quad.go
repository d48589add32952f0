// Package quad implements double-double ("compensated") arithmetic for
// accumulating objective values and row activities without catastrophic
// cancellation on large models.
//
// A Double carries roughly 106 bits of significand as an unevaluated sum
// hi+lo with |lo| <= ulp(hi)/2. Only the operations needed by the solver
// core are provided: accumulation of sums and products, and conversion
// back to float64.
package quad

import "math"

// Double is an extended-precision value represented as hi + lo.
type Double struct {
	hi float64
	lo float64
}

// New returns a Double holding the exact value v.
func New(v float64) Double {
	return Double{hi: v}
}

// Float64 rounds the value to the nearest float64.
func (d Double) Float64() float64 {
	return d.hi + d.lo
}

// twoSum computes a+b exactly as s+e with s = fl(a+b).
func twoSum(a, b float64) (s, e float64) {
	s = a + b
	bb := s - a
	e = (a - (s - bb)) + (b - bb)
	return s, e
}

// twoProd computes a*b exactly as p+e with p = fl(a*b).
func twoProd(a, b float64) (p, e float64) {
	p = a * b
	e = math.FMA(a, b, -p)
	return p, e
}

// Add returns d + v.
func (d Double) Add(v float64) Double {
	s, e := twoSum(d.hi, v)
	e += d.lo
	s, e = twoSum(s, e)
	return Double{hi: s, lo: e}
}

// AddDouble returns d + o.
func (d Double) AddDouble(o Double) Double {
	s, e := twoSum(d.hi, o.hi)
	e += d.lo + o.lo
	s, e = twoSum(s, e)
	return Double{hi: s, lo: e}
}

// AddProduct returns d + a*b, evaluating the product exactly.
func (d Double) AddProduct(a, b float64) Double {
	if a == 0 || b == 0 {
		return d
	}
	p, pe := twoProd(a, b)
	s, se := twoSum(d.hi, p)
	se += d.lo + pe
	s, se = twoSum(s, se)
	return Double{hi: s, lo: se}
}

// Sub returns d - v.
func (d Double) Sub(v float64) Double {
	return d.Add(-v)
}
