// Package orderedqueue provides a priority queue that keeps its elements in a
// sorted slice. Insert scans for the insertion point, so it is O(n), while
// ExtractMin and Peek are O(1) on the front of the slice.
//
// Elements that compare as equal are returned in the order they were inserted.
//
// The queue is not safe for concurrent use.
package orderedqueue

import (
	"cmp"
	"errors"

	"golang.org/x/exp/constraints"
)

// ErrEmptyQueue is returned when removing from or peeking into a queue that holds no elements.
var ErrEmptyQueue = errors.New("orderedqueue: queue is empty")

// Comparator returns a negative number when a must come before b, zero when both have the same priority and a
// positive number otherwise.
type Comparator[T any] func(a, b T) int

// Number is the set of types Difference can compare. Unsigned integers are excluded since their subtraction wraps.
type Number interface {
	constraints.Signed | constraints.Float
}

// Compare orders values ascending.
func Compare[T cmp.Ordered](a, b T) int {
	return cmp.Compare(a, b)
}

// Difference orders numbers by the sign of a-b.
//
// NOTE: The result is undefined when the subtraction overflows; use Compare for values near the limits of T.
func Difference[T Number](a, b T) int {
	d := a - b
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// Reverse returns a comparator yielding the opposite order of c.
func Reverse[T any](c Comparator[T]) Comparator[T] {
	return func(a, b T) int { return c(b, a) }
}

// OrderedQueue keeps its elements sorted by a comparator.
type OrderedQueue[T any] struct {
	items []T
	cmp   Comparator[T]
}

// New creates an empty queue ordered by c. It panics if c is nil.
func New[T any](c Comparator[T]) *OrderedQueue[T] {
	if c == nil {
		panic("orderedqueue: nil comparator")
	}

	return &OrderedQueue[T]{cmp: c}
}

// NewOrdered creates an empty queue yielding the smallest value first.
func NewOrdered[T cmp.Ordered]() *OrderedQueue[T] {
	return New[T](Compare[T])
}

// Insert places value before the first element that compares greater than it, so it lands after every element of
// equal priority.
func (q *OrderedQueue[T]) Insert(value T) {
	i := 0
	for i < len(q.items) && q.cmp(q.items[i], value) <= 0 {
		i++
	}

	var zero T
	q.items = append(q.items, zero)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = value
}

// ExtractMin removes and returns the element at the front of the queue.
func (q *OrderedQueue[T]) ExtractMin() (T, error) {
	var zero T

	if len(q.items) == 0 {
		return zero, ErrEmptyQueue
	}

	value := q.items[0]
	q.items[0] = zero // drop the reference held by the backing array
	q.items = q.items[1:]

	if len(q.items) == 0 {
		q.items = nil
	}

	return value, nil
}

// Peek returns the element at the front of the queue without removing it.
func (q *OrderedQueue[T]) Peek() (T, error) {
	if len(q.items) == 0 {
		var zero T
		return zero, ErrEmptyQueue
	}

	return q.items[0], nil
}

// Len returns the number of elements in the queue.
func (q *OrderedQueue[T]) Len() int {
	return len(q.items)
}

// IsEmpty reports whether the queue holds no elements.
func (q *OrderedQueue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// Drain removes every element in order, running fn on each. In the event of an error, draining stops early and the
// error is returned; the element passed to the failing call has already been removed.
func (q *OrderedQueue[T]) Drain(fn func(value T) error) error {
	for {
		value, err := q.ExtractMin()
		if errors.Is(err, ErrEmptyQueue) {
			return nil
		}

		if err := fn(value); err != nil {
			return err
		}
	}
}
