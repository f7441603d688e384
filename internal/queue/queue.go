package queue

// OrderedQueueInterface is the contract every ordered queue implementation
// satisfies. It is used both as a type constraint for the testbench and as the
// runtime type the bench stores implementations behind.
type OrderedQueueInterface[T any] interface {
	// Insert adds an element at its priority position. Elements with equal
	// priority must come out in insertion order.
	Insert(T)

	// ExtractMin removes and returns the highest priority element.
	// If the queue is empty it must return a zero T and orderedqueue.ErrEmptyQueue
	// without changing the queue.
	ExtractMin() (T, error)

	// Peek returns the highest priority element without removing it.
	Peek() (T, error)

	// Len returns how many elements are currently queued.
	Len() int
}
