package checker

import "container/heap"

// topPairsByScore keeps the limit highest-scoring pairs and returns them in
// descending score order. A min-heap bounded at limit evicts the weakest
// candidate as new pairs stream in, so memory stays O(limit) even for large
// corpora. Ties keep the pair that appears earlier in corpus order.
func topPairsByScore(pairs []ScanPair, limit int) []ScanPair {
	if limit <= 0 || limit >= len(pairs) {
		return pairs
	}
	h := &scanPairHeap{}
	heap.Init(h)
	for rank, pair := range pairs {
		heap.Push(h, rankedPair{ScanPair: pair, rank: rank})
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	result := make([]ScanPair, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(rankedPair).ScanPair
	}
	return result
}

// rankedPair carries the pair's position in corpus order for tie-breaking.
type rankedPair struct {
	ScanPair
	rank int
}

type scanPairHeap []rankedPair

func (h scanPairHeap) Len() int { return len(h) }

func (h scanPairHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].rank > h[j].rank
}

func (h scanPairHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scanPairHeap) Push(x interface{}) {
	*h = append(*h, x.(rankedPair))
}

func (h *scanPairHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
