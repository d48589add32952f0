package nodequeue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_OrderedByLowerBound(t *testing.T) {
	q := New()
	q.Emplace(3.0, 3.5, 2)
	q.Emplace(1.0, 1.5, 2)
	q.Emplace(2.0, 2.5, 2)

	n, ok := q.PopBest()
	require.True(t, ok)
	assert.Equal(t, 1.0, n.LowerBound)

	n, ok = q.PopBest()
	require.True(t, ok)
	assert.Equal(t, 2.0, n.LowerBound)

	assert.Equal(t, 1, q.NumActiveNodes())
}

func TestQueue_PerformBounding(t *testing.T) {
	q := New()
	q.Emplace(1.0, 1.0, 2) // weight 0.5
	q.Emplace(5.0, 5.0, 2) // weight 0.5, pruned
	q.Emplace(6.0, 6.0, 3) // weight 0.25, pruned

	pruned := q.PerformBounding(4.0)
	assert.InDelta(t, 0.75, pruned, 1e-12)
	assert.Equal(t, 1, q.NumActiveNodes())
	assert.Equal(t, 1.0, q.BestLowerBound())

	// Nodes at exactly the limit survive.
	q.Emplace(4.0, 4.0, 2)
	assert.Equal(t, 0.0, q.PerformBounding(4.0))
	assert.Equal(t, 2, q.NumActiveNodes())
}

func TestQueue_ClearAndEmpty(t *testing.T) {
	q := New()
	q.Emplace(1.0, 1.0, 1)
	q.Clear()

	assert.Equal(t, 0, q.NumActiveNodes())
	assert.True(t, math.IsInf(q.BestLowerBound(), 1))
	_, ok := q.PopBest()
	assert.False(t, ok)
}
