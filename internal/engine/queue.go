package engine

import (
	"container/heap"

	"github.com/roach88/runcost/internal/ir"
)

// event is a pending firing of one component.
type event struct {
	Timestamp ir.Timestamp
	Component int   // index into Definition.Components
	Seq       int64 // enqueue order, from Clock
}

// eventHeap implements heap.Interface ordered by (Timestamp, Seq).
type eventHeap []event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Timestamp != h[j].Timestamp {
		return h[i].Timestamp < h[j].Timestamp
	}
	return h[i].Seq < h[j].Seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// eventQueue is a min-priority queue of events keyed by timestamp.
//
// Ties on timestamp pop in enqueue order. The queue does not deduplicate;
// coalescing equal timestamps is the merge loop's job.
type eventQueue struct {
	events eventHeap
	clock  *Clock
}

// newEventQueue creates an empty queue stamping events from clock.
func newEventQueue(clock *Clock, capacity int) *eventQueue {
	return &eventQueue{
		events: make(eventHeap, 0, capacity),
		clock:  clock,
	}
}

// Push schedules component to fire at ts.
func (q *eventQueue) Push(ts ir.Timestamp, component int) {
	heap.Push(&q.events, event{
		Timestamp: ts,
		Component: component,
		Seq:       q.clock.Next(),
	})
}

// Pop removes and returns the earliest event. ok is false when empty.
func (q *eventQueue) Pop() (event, bool) {
	if len(q.events) == 0 {
		return event{}, false
	}
	return heap.Pop(&q.events).(event), true
}

// Len returns the number of pending events.
func (q *eventQueue) Len() int {
	return len(q.events)
}
