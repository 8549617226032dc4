package restore

import "container/heap"

// A Queue orders pending tasks by ascending depth; tasks of equal depth are
// served in insertion order. A requeued task keeps its original depth and
// therefore its original priority.
type Queue struct {
	h       taskHeap
	nextSeq uint64
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push inserts the task.
func (q *Queue) Push(t *Task) {
	t.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.h, t)
}

// Pop removes and returns the shallowest pending task, or nil when the queue
// is empty. An empty queue is not an error, it just means no new work can be
// admitted right now.
func (q *Queue) Pop() *Task {
	if len(q.h) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*Task)
}

func (q *Queue) Len() int {
	return len(q.h)
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(*Task)) }

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
