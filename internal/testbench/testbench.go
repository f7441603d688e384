package testbench

import (
	"context"
	"time"

	"github.com/i5heu/GoOrderedQueue/internal/queue"
)

// Config describes one workload: how many elements are inserted before the
// queue is drained again.
type Config struct {
	BatchSize int `yaml:"batch_size"`
}

// Result holds the counters of one timed run.
type Result struct {
	Inserted        int64
	Extracted       int64
	Batches         int64
	OrderViolations int64
	Elapsed         time.Duration
}

// RunTimedTest fills the queue with cfg.BatchSize generated values and drains
// it again, over and over, until testDuration expires. The batch in flight when
// the deadline passes is still drained so every inserted element is extracted.
// Each drained batch is checked with cmp; an extracted element that compares
// less than its predecessor counts as an order violation.
func RunTimedTest[T any, Q queue.OrderedQueueInterface[T]](
	q Q,
	cfg Config,
	testDuration time.Duration,
	valueGenerator func(int) T,
	cmp func(a, b T) int,
) Result {
	start := time.Now()

	// Create a context that will cancel after testDuration.
	ctx, cancel := context.WithTimeout(context.Background(), testDuration)
	defer cancel()

	var (
		res      Result
		msgIndex int
	)

	for ctx.Err() == nil {
		for i := 0; i < cfg.BatchSize; i++ {
			q.Insert(valueGenerator(msgIndex))
			msgIndex++
			res.Inserted++
		}

		var (
			prev    T
			hasPrev bool
		)

		for q.Len() > 0 {
			v, err := q.ExtractMin()
			if err != nil {
				break
			}
			res.Extracted++

			if hasPrev && cmp(prev, v) > 0 {
				res.OrderViolations++
			}
			prev, hasPrev = v, true
		}

		res.Batches++
	}

	res.Elapsed = time.Since(start)
	return res
}
