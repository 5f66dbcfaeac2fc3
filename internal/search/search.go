// Package search implements the in-memory nearest-neighbour lookup used by
// the matching stages: given a query vector and a small candidate set held
// entirely in memory, return the k closest items by cosine distance.
package search

import (
	"container/heap"

	"github.com/pushkindt/pushkind-crawlers/internal/vecmath"
)

// Item is one candidate in a search corpus: an opaque ID (a product or
// category primary key) paired with its embedding.
type Item struct {
	ID        int
	Embedding []float32
}

// Match is one result of TopK: the candidate ID and its cosine distance
// from the query (0 = identical direction, 2 = opposite).
type Match struct {
	ID       int
	Distance float64
}

// TopK returns up to k items closest to query by cosine distance, sorted
// ascending by distance. It is a straight linear scan bounded by a
// size-k max-heap, appropriate for the corpus sizes (one crawler's
// products, one hub's categories) this worker deals with — no ANN index is
// built.
func TopK(query []float32, items []Item, k int) []Match {
	if k <= 0 || len(items) == 0 {
		return nil
	}

	h := &maxHeap{}
	heap.Init(h)

	for _, it := range items {
		d := vecmath.CosineDistance(query, it.Embedding)
		if h.Len() < k {
			heap.Push(h, Match{ID: it.ID, Distance: d})
			continue
		}
		if d < (*h)[0].Distance {
			(*h)[0] = Match{ID: it.ID, Distance: d}
			heap.Fix(h, 0)
		}
	}

	out := make([]Match, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Match)
	}
	return out
}

// maxHeap is a container/heap max-heap on Distance, used to keep the
// current worst of the best-k candidates at the root for O(log k)
// eviction.
type maxHeap []Match

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].Distance > h[j].Distance }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(Match)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
