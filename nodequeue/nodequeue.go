// Package nodequeue implements the deferred search-node queue consumed by
// the root orchestrator. Only the enqueue and bounding/prune contract lives
// here; branching state stored per node is opaque to this package.
package nodequeue

import (
	"container/heap"
	"math"
)

// Node is a deferred search node ordered by its lower bound.
type Node struct {
	LowerBound float64
	Estimate   float64
	// Depth-derived weight contributed to the pruned tree weight when the
	// node is cut off: 2^(1-depth), so the root carries weight 1.
	Depth int

	index int
}

// treeWeight returns the share of the search tree the node represents.
func (n *Node) treeWeight() float64 {
	return math.Pow(0.5, float64(n.Depth-1))
}

// Compile time check to ensure nodeHeap satisfies the heap interface.
var _ heap.Interface = (*nodeHeap)(nil)

type nodeHeap struct {
	items []*Node
}

func (h *nodeHeap) Len() int { return len(h.items) }

func (h *nodeHeap) Less(i, j int) bool {
	if h.items[i].LowerBound != h.items[j].LowerBound {
		return h.items[i].LowerBound < h.items[j].LowerBound
	}
	return h.items[i].Estimate < h.items[j].Estimate
}

func (h *nodeHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index, h.items[j].index = i, j
}

func (h *nodeHeap) Push(x any) {
	n, _ := x.(*Node)
	n.index = len(h.items)
	h.items = append(h.items, n)
}

func (h *nodeHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	h.items = old[:n-1]
	return item
}

// Queue holds deferred search nodes keyed by lower bound.
type Queue struct {
	h               nodeHeap
	optimalityLimit float64
}

// New creates an empty queue with no optimality limit.
func New() *Queue {
	return &Queue{optimalityLimit: math.Inf(1)}
}

// SetOptimalityLimit installs the cutoff used by future bounding passes.
func (q *Queue) SetOptimalityLimit(limit float64) { q.optimalityLimit = limit }

// Emplace adds a node to the queue.
func (q *Queue) Emplace(lowerBound, estimate float64, depth int) {
	heap.Push(&q.h, &Node{LowerBound: lowerBound, Estimate: estimate, Depth: depth})
}

// PopBest removes and returns the node with the smallest lower bound.
func (q *Queue) PopBest() (*Node, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	n, _ := heap.Pop(&q.h).(*Node)
	return n, true
}

// NumActiveNodes returns the number of queued nodes.
func (q *Queue) NumActiveNodes() int { return q.h.Len() }

// PerformBounding removes every node whose lower bound exceeds the given
// upper limit and returns the total tree weight pruned.
func (q *Queue) PerformBounding(upperLimit float64) float64 {
	pruned := 0.0
	kept := q.h.items[:0]
	for _, n := range q.h.items {
		if n.LowerBound > upperLimit {
			pruned += n.treeWeight()
		} else {
			kept = append(kept, n)
		}
	}
	for i := len(kept); i < len(q.h.items); i++ {
		q.h.items[i] = nil
	}
	q.h.items = kept
	heap.Init(&q.h)
	return pruned
}

// Clear drops all nodes, e.g. across a restart boundary.
func (q *Queue) Clear() {
	q.h.items = nil
}

// BestLowerBound returns the smallest queued lower bound, or +inf when the
// queue is empty.
func (q *Queue) BestLowerBound() float64 {
	if q.h.Len() == 0 {
		return math.Inf(1)
	}
	return q.h.items[0].LowerBound
}
