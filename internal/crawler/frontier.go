package crawler

import (
	"container/heap"
	"sync"

	"github.com/calenhart/lorecrawl/internal/types"
)

// Frontier is a thread-safe queue of crawl tasks ordered breadth-first:
// shallower tasks always dispatch before deeper ones, FIFO within a depth.
type Frontier struct {
	mu     sync.Mutex
	pq     taskQueue
	seq    uint64
	closed bool
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	f := &Frontier{pq: make(taskQueue, 0, 1024)}
	heap.Init(&f.pq)
	return f
}

// Push adds a task to the frontier. Pushes to a closed frontier are dropped.
func (f *Frontier) Push(task *types.CrawlTask) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.seq++
	heap.Push(&f.pq, &queued{task: task, seq: f.seq})
}

// TryPop attempts a non-blocking dequeue. Returns nil if empty.
func (f *Frontier) TryPop() *types.CrawlTask {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pq.Len() == 0 {
		return nil
	}
	return heap.Pop(&f.pq).(*queued).task
}

// Len returns the number of queued tasks.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pq.Len()
}

// Close marks the frontier closed so polling workers can exit.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// IsClosed returns true once Close has been called.
func (f *Frontier) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// --- Priority Queue Implementation ---

type queued struct {
	task  *types.CrawlTask
	seq   uint64
	index int
}

type taskQueue []*queued

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].task.Depth != q[j].task.Depth {
		return q[i].task.Depth < q[j].task.Depth
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	n := len(*q)
	item := x.(*queued)
	item.index = n
	*q = append(*q, item)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // GC
	item.index = -1
	*q = old[:n-1]
	return item
}
