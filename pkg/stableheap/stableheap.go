package stableheap

import (
	"container/heap"

	"github.com/i5heu/GoOrderedQueue/pkg/orderedqueue"
)

// entry pairs a value with the order in which it was inserted.
type entry[T any] struct {
	value T
	seq   uint64
}

// entries implements heap.Interface; ties on the comparator fall back to seq.
type entries[T any] struct {
	items []entry[T]
	cmp   orderedqueue.Comparator[T]
}

func (e *entries[T]) Len() int { return len(e.items) }

func (e *entries[T]) Less(i, j int) bool {
	if c := e.cmp(e.items[i].value, e.items[j].value); c != 0 {
		return c < 0
	}
	return e.items[i].seq < e.items[j].seq
}

func (e *entries[T]) Swap(i, j int) { e.items[i], e.items[j] = e.items[j], e.items[i] }

func (e *entries[T]) Push(x any) { e.items = append(e.items, x.(entry[T])) }

func (e *entries[T]) Pop() any {
	n := len(e.items)
	item := e.items[n-1]
	e.items[n-1] = entry[T]{}
	e.items = e.items[:n-1]
	return item
}

// StableHeap is an ordered queue backed by a binary heap.
// Insert and ExtractMin are O(log n). Elements with equal priority are still
// returned in insertion order because every entry carries a sequence number.
type StableHeap[T any] struct {
	inner entries[T]
	next  uint64
}

// New creates an empty StableHeap ordered by cmp. It panics if cmp is nil.
func New[T any](cmp orderedqueue.Comparator[T]) *StableHeap[T] {
	if cmp == nil {
		panic("stableheap: nil comparator")
	}
	return &StableHeap[T]{inner: entries[T]{cmp: cmp}}
}

// Insert adds value to the heap.
func (h *StableHeap[T]) Insert(value T) {
	heap.Push(&h.inner, entry[T]{value: value, seq: h.next})
	h.next++
}

// ExtractMin removes and returns the highest priority element.
// If the heap is empty it returns orderedqueue.ErrEmptyQueue.
func (h *StableHeap[T]) ExtractMin() (T, error) {
	if h.inner.Len() == 0 {
		var zero T
		return zero, orderedqueue.ErrEmptyQueue
	}
	return heap.Pop(&h.inner).(entry[T]).value, nil
}

// Peek returns the highest priority element without removing it.
func (h *StableHeap[T]) Peek() (T, error) {
	if h.inner.Len() == 0 {
		var zero T
		return zero, orderedqueue.ErrEmptyQueue
	}
	return h.inner.items[0].value, nil
}

// Len returns the number of elements in the heap.
func (h *StableHeap[T]) Len() int {
	return h.inner.Len()
}
