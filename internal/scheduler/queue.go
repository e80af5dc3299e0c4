package scheduler

import (
	"container/heap"

	"github.com/sandeepkv93/taskplan/internal/model"
)

type queueItem struct {
	block model.PartialBlock
	seq   int
}

// candidateQueue orders oracle candidates by claimed order (missing last),
// then task id, then arrival.
type candidateQueue []queueItem

func (pq candidateQueue) Len() int { return len(pq) }

func (pq candidateQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	switch {
	case a.block.Order == nil && b.block.Order != nil:
		return false
	case a.block.Order != nil && b.block.Order == nil:
		return true
	case a.block.Order != nil && b.block.Order != nil && *a.block.Order != *b.block.Order:
		return *a.block.Order < *b.block.Order
	}
	if c := CompareIDs(a.block.TaskID, b.block.TaskID); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

func (pq candidateQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *candidateQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *candidateQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

// drainCandidates returns raw in processing order without touching raw.
func drainCandidates(raw []model.PartialBlock) []model.PartialBlock {
	pq := make(candidateQueue, 0, len(raw))
	for i, b := range raw {
		pq = append(pq, queueItem{block: b, seq: i})
	}
	heap.Init(&pq)
	out := make([]model.PartialBlock, 0, len(raw))
	for pq.Len() > 0 {
		out = append(out, heap.Pop(&pq).(queueItem).block)
	}
	return out
}
