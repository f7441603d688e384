package listqueue

import (
	"container/list"

	"github.com/i5heu/GoOrderedQueue/pkg/orderedqueue"
)

// ListQueue is an ordered queue backed by a doubly linked list.
// Insert walks the list from the front, so it is O(n); extraction unlinks the front node in O(1).
type ListQueue[T any] struct {
	list *list.List
	cmp  orderedqueue.Comparator[T]
}

// New creates an empty ListQueue ordered by cmp. It panics if cmp is nil.
func New[T any](cmp orderedqueue.Comparator[T]) *ListQueue[T] {
	if cmp == nil {
		panic("listqueue: nil comparator")
	}
	return &ListQueue[T]{list: list.New(), cmp: cmp}
}

// Insert links value in front of the first element that compares greater than it.
func (q *ListQueue[T]) Insert(value T) {
	e := q.list.Front()
	for e != nil && q.cmp(e.Value.(T), value) <= 0 {
		e = e.Next()
	}
	if e == nil {
		q.list.PushBack(value)
		return
	}
	q.list.InsertBefore(value, e)
}

// ExtractMin unlinks and returns the front element.
// If the queue is empty it returns orderedqueue.ErrEmptyQueue.
func (q *ListQueue[T]) ExtractMin() (T, error) {
	front := q.list.Front()
	if front == nil {
		var zero T
		return zero, orderedqueue.ErrEmptyQueue
	}
	return q.list.Remove(front).(T), nil
}

// Peek returns the front element without unlinking it.
func (q *ListQueue[T]) Peek() (T, error) {
	front := q.list.Front()
	if front == nil {
		var zero T
		return zero, orderedqueue.ErrEmptyQueue
	}
	return front.Value.(T), nil
}

// Len returns the number of linked elements.
func (q *ListQueue[T]) Len() int {
	return q.list.Len()
}
