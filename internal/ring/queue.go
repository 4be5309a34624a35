// SPDX-License-Identifier: EPL-2.0

// Package ring provides a fixed-capacity circular FIFO.
package ring

// Queue is a circular queue of at most Cap elements. The zero value has no
// capacity; use New.
type Queue[T any] struct {
	items []T
	head  int
	size  int
}

func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{items: make([]T, max(capacity, 0))}
}

func (q *Queue[T]) Len() int { return q.size }
func (q *Queue[T]) Cap() int { return len(q.items) }

func (q *Queue[T]) index(i int) int { return (q.head + i) % len(q.items) }

// PushBack appends v and reports false when the queue is full.
func (q *Queue[T]) PushBack(v T) bool {
	if q.size == len(q.items) {
		return false
	}
	q.items[q.index(q.size)] = v
	q.size++

	return true
}

// PushFront prepends v and reports false when the queue is full.
func (q *Queue[T]) PushFront(v T) bool {
	if q.size == len(q.items) {
		return false
	}
	q.head = (q.head - 1 + len(q.items)) % len(q.items)
	q.items[q.head] = v
	q.size++

	return true
}

func (q *Queue[T]) PopFront() (T, bool) {
	var zero T
	if q.size == 0 {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head = q.index(1)
	q.size--

	return v, true
}

func (q *Queue[T]) PopBack() (T, bool) {
	var zero T
	if q.size == 0 {
		return zero, false
	}
	i := q.index(q.size - 1)
	v := q.items[i]
	q.items[i] = zero
	q.size--

	return v, true
}

func (q *Queue[T]) Front() (T, bool) {
	if q.size == 0 {
		var zero T
		return zero, false
	}

	return q.items[q.head], true
}

func (q *Queue[T]) Back() (T, bool) {
	if q.size == 0 {
		var zero T
		return zero, false
	}

	return q.items[q.index(q.size-1)], true
}

func (q *Queue[T]) Clear() {
	clear(q.items)
	q.head = 0
	q.size = 0
}

// Values returns the elements from front to back.
func (q *Queue[T]) Values() []T {
	out := make([]T, q.size)
	for i := range out {
		out[i] = q.items[q.index(i)]
	}

	return out
}
