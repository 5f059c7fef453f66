// Package queue implements the bounded notification queue of a monitored item.
package queue

import (
	"github.com/gammazero/deque"
)

// MaxSize is the largest capacity a queue accepts.
const MaxSize = 5000

// Marker sets (overflow == true) or clears the overflow marker of an item and
// returns the updated item.
type Marker[T any] func(item T, overflow bool) T

// Queue is a bounded FIFO with discard-oldest or discard-newest overflow policy.
// It is not safe for concurrent use; the owning monitored item serializes access.
type Queue[T any] struct {
	items         *deque.Deque[T]
	size          int
	discardOldest bool
	overflow      bool
	mark          Marker[T]
}

// New returns an empty queue. size is clamped to [1, MaxSize]. mark may be nil
// for items that never carry an overflow marker.
func New[T any](size int, discardOldest bool, mark Marker[T]) *Queue[T] {
	if mark == nil {
		mark = func(item T, _ bool) T { return item }
	}
	return &Queue[T]{
		items:         new(deque.Deque[T]),
		size:          ClampSize(size),
		discardOldest: discardOldest,
		mark:          mark,
	}
}

// ClampSize bounds a requested queue size to [1, MaxSize].
func ClampSize(size int) int {
	if size > MaxSize {
		return MaxSize
	}
	if size < 1 {
		return 1
	}
	return size
}

// Push appends item, applying the overflow policy when the queue is full.
// It returns true when an item was dropped or overwritten.
func (q *Queue[T]) Push(item T) bool {
	if q.size == 1 {
		q.items.Clear()
		q.items.PushBack(q.mark(item, false))
		q.overflow = false
		return false
	}
	if q.discardOldest {
		q.items.PushBack(item)
		if q.items.Len() <= q.size {
			return false
		}
		q.items.PopFront()
		q.items.Set(0, q.mark(q.items.Front(), true))
		q.overflow = true
		return true
	}
	if q.items.Len() < q.size {
		q.items.PushBack(item)
		return false
	}
	q.items.Set(q.items.Len()-1, q.mark(item, true))
	q.overflow = true
	return true
}

// Resize changes the capacity and policy, truncating already queued items
// according to the new policy.
func (q *Queue[T]) Resize(size int, discardOldest bool) {
	q.size = ClampSize(size)
	q.discardOldest = discardOldest

	dropped := false
	if q.discardOldest {
		for q.items.Len() > q.size {
			q.items.PopFront()
			dropped = true
		}
		if dropped && q.size > 1 {
			q.items.Set(0, q.mark(q.items.Front(), true))
		}
	} else if q.items.Len() > q.size {
		last := q.items.Back()
		for q.items.Len() > q.size {
			q.items.PopBack()
		}
		dropped = true
		if q.size > 1 {
			last = q.mark(last, true)
		}
		q.items.Set(q.items.Len()-1, last)
	}
	if dropped {
		q.overflow = true
	}

	if q.size <= 1 {
		q.overflow = false
		if q.items.Len() == 1 {
			q.items.Set(0, q.mark(q.items.Front(), false))
		}
	}
}

// Drain removes and returns every queued item in order and resets the
// overflow flag. Items pushed after Drain land in the next drain. An empty
// queue drains to nil.
func (q *Queue[T]) Drain() []T {
	q.overflow = false
	if q.items.Len() == 0 {
		return nil
	}
	old := q.items
	q.items = new(deque.Deque[T])
	out := make([]T, old.Len())
	for i := range out {
		out[i] = old.At(i)
	}
	return out
}

// Clear discards every queued item and resets the overflow flag.
func (q *Queue[T]) Clear() {
	q.items.Clear()
	q.overflow = false
}

// Items returns a copy of the queued items without removing them.
func (q *Queue[T]) Items() []T {
	out := make([]T, q.items.Len())
	for i := range out {
		out[i] = q.items.At(i)
	}
	return out
}

func (q *Queue[T]) Len() int { return q.items.Len() }

func (q *Queue[T]) Size() int { return q.size }

func (q *Queue[T]) DiscardOldest() bool { return q.discardOldest }

// Overflow reports whether an item was dropped or overwritten since the last
// Drain or Clear.
func (q *Queue[T]) Overflow() bool { return q.overflow }
