package events

import (
	"sync/atomic"
)

const (
	// queueSize must be a power of two
	queueSize = 256
	queueMask = queueSize - 1
)

// Queue carries events from producer goroutines to the single loop
// goroutine without locks.
//
// Push may run on any goroutine: a slot is claimed with a CAS on the
// write index and marked readable through a per-slot published flag,
// so the consumer never observes a half-written event. Consume must
// only run on the loop goroutine. When producers outrun the consumer
// the oldest unread events are dropped.
type Queue struct {
	events    [queueSize]Event
	published [queueSize]atomic.Bool
	head      atomic.Uint64 // next slot to read
	tail      atomic.Uint64 // next slot to write
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push enqueues an event; safe for concurrent producers
func (q *Queue) Push(ev Event) {
	for {
		tail := q.tail.Load()
		if !q.tail.CompareAndSwap(tail, tail+1) {
			continue
		}
		idx := tail & queueMask
		q.events[idx] = ev
		// The slot becomes visible to Consume only after the event is
		// fully stored
		q.published[idx].Store(true)

		// Reclaim the oldest slot when the ring laps the reader
		if head := q.head.Load(); tail+1-head > queueSize {
			q.head.CompareAndSwap(head, tail+1-queueSize)
		}
		return
	}
}

// Consume drains pending events in FIFO order, stopping early at the
// first slot whose producer has not finished publishing. Returns nil
// when nothing is pending.
func (q *Queue) Consume() []Event {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		if tail == head {
			return nil
		}

		avail := tail - head
		if avail > queueSize {
			head = tail - queueSize
			avail = queueSize
		}

		out := make([]Event, 0, avail)
		for i := uint64(0); i < avail; i++ {
			idx := (head + i) & queueMask
			if !q.published[idx].Load() {
				break
			}
			out = append(out, q.events[idx])
			q.published[idx].Store(false)
		}

		if q.head.CompareAndSwap(head, head+uint64(len(out))) {
			if len(out) == 0 {
				return nil
			}
			return out
		}
	}
}
