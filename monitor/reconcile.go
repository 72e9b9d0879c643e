package monitor

import (
	"container/heap"
	"sort"
	"strconv"

	"github.com/dreamsxin/xperformance/types"
)

// Reconcile returns the process CPU to report for one reading. A zero
// process figure is replaced by the thread sum when threads are busy; a
// positive figure is never lowered.
func Reconcile(reported float64, threads []types.ThreadUsage) float64 {
	if reported != 0 {
		return reported
	}
	var sum float64
	for _, t := range threads {
		sum += t.CPUPercent
	}
	if sum > 0 {
		return sum
	}
	return reported
}

// tidLess orders thread ids numerically when both parse, lexically otherwise.
func tidLess(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}

// ranksAbove reports whether a belongs before b in a top-K listing.
func ranksAbove(a, b types.ThreadUsage) bool {
	if a.CPUPercent != b.CPUPercent {
		return a.CPUPercent > b.CPUPercent
	}
	return tidLess(a.TID, b.TID)
}

// threadHeap keeps the lowest ranked thread at the root.
type threadHeap []types.ThreadUsage

func (h threadHeap) Len() int           { return len(h) }
func (h threadHeap) Less(i, j int) bool { return ranksAbove(h[j], h[i]) }
func (h threadHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *threadHeap) Push(x any) {
	*h = append(*h, x.(types.ThreadUsage))
}

func (h *threadHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopThreads returns at most k threads by CPU, highest first. Ties are
// ordered by thread id. Memory stays bounded by k whatever the input size.
func TopThreads(threads []types.ThreadUsage, k int) []types.ThreadUsage {
	if k <= 0 || len(threads) == 0 {
		return nil
	}

	h := make(threadHeap, 0, k)
	for _, t := range threads {
		if h.Len() < k {
			heap.Push(&h, t)
			continue
		}
		if ranksAbove(t, h[0]) {
			h[0] = t
			heap.Fix(&h, 0)
		}
	}

	out := []types.ThreadUsage(h)
	sort.Slice(out, func(i, j int) bool { return ranksAbove(out[i], out[j]) })
	return out
}
