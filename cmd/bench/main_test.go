package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/i5heu/GoOrderedQueue/internal/queue"
	"github.com/i5heu/GoOrderedQueue/internal/report"
	"github.com/i5heu/GoOrderedQueue/pkg/config"
	"github.com/i5heu/GoOrderedQueue/pkg/listqueue"
	"github.com/i5heu/GoOrderedQueue/pkg/orderedqueue"
	"github.com/i5heu/GoOrderedQueue/pkg/stableheap"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Compile-time enforcement that every implementation satisfies the contract.
var (
	_ queue.OrderedQueueInterface[int] = (*orderedqueue.OrderedQueue[int])(nil)
	_ queue.OrderedQueueInterface[int] = (*listqueue.ListQueue[int])(nil)
	_ queue.OrderedQueueInterface[int] = (*stableheap.StableHeap[int])(nil)
)

// withAllQueues is a test helper that loops over all implementations
// and calls your test function for each one.
// NOTE: Feature filtering is done inside the subtest to avoid skipping at parent level.
func withAllQueues(t *testing.T, testedFeatures []string, fn func(t *testing.T, impl Implementation[int, benchQueue])) {
	t.Helper()
	for _, impl := range getImplementations() {
		impl := impl // capture range variable

		t.Run(impl.name, func(t *testing.T) {
			for _, feature := range testedFeatures {
				found := false
				for _, implFeature := range impl.features {
					if feature == implFeature {
						found = true
						break
					}
				}
				if !found {
					t.Skipf("Skipping: missing feature %q", feature)
				}
			}

			fn(t, impl)
		})
	}
}

func drain(t *testing.T, q benchQueue) []int {
	t.Helper()

	out := make([]int, 0, q.Len())
	for q.Len() > 0 {
		v, err := q.ExtractMin()
		require.NoError(t, err)
		out = append(out, v)
	}

	return out
}

func TestScenarios(t *testing.T) {
	type test struct {
		name     string
		input    []int
		expected []int
	}

	tests := []*test{
		{name: "Unordered", input: []int{5, 3, 8, 1}, expected: []int{1, 3, 5, 8}},
		{name: "Duplicates", input: []int{4, 4, 2}, expected: []int{2, 4, 4}},
		{name: "RoundTrip", input: []int{10}, expected: []int{10}},
	}

	withAllQueues(t, nil, func(t *testing.T, impl Implementation[int, benchQueue]) {
		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				q := impl.newQueue(orderedqueue.Compare[int])
				for _, v := range test.input {
					q.Insert(v)
				}

				require.Equal(t, test.expected, drain(t, q))

				_, err := q.ExtractMin()
				require.ErrorIs(t, err, orderedqueue.ErrEmptyQueue)
			})
		}
	})
}

func TestEmptyQueue(t *testing.T) {
	withAllQueues(t, nil, func(t *testing.T, impl Implementation[int, benchQueue]) {
		q := impl.newQueue(orderedqueue.Compare[int])

		for i := 0; i < 3; i++ {
			v, err := q.ExtractMin()
			require.ErrorIs(t, err, orderedqueue.ErrEmptyQueue)
			require.Zero(t, v)
		}

		_, err := q.Peek()
		require.ErrorIs(t, err, orderedqueue.ErrEmptyQueue)
		require.Zero(t, q.Len())

		q.Insert(42)
		v, err := q.ExtractMin()
		require.NoError(t, err)
		require.Equal(t, 42, v)
	})
}

func TestStableTies(t *testing.T) {
	// Values encode priority*1000 + insertion index; only the priority is compared.
	byPriority := func(a, b int) int { return orderedqueue.Compare(a/1000, b/1000) }

	withAllQueues(t, []string{"Stable"}, func(t *testing.T, impl Implementation[int, benchQueue]) {
		var (
			r     = rand.New(rand.NewSource(1))
			q     = impl.newQueue(byPriority)
			input = make([]int, 900)
		)

		for i := range input {
			input[i] = r.Intn(9)*1000 + i
			q.Insert(input[i])
		}

		expected := append([]int(nil), input...)
		sort.SliceStable(expected, func(i, j int) bool { return expected[i]/1000 < expected[j]/1000 })

		require.Equal(t, expected, drain(t, q))
	})
}

func TestLenAccounting(t *testing.T) {
	withAllQueues(t, nil, func(t *testing.T, impl Implementation[int, benchQueue]) {
		q := impl.newQueue(orderedqueue.Compare[int])

		const n, m = 100, 37

		for i := 0; i < n; i++ {
			q.Insert(valueGenerator(i))
			require.Equal(t, i+1, q.Len())
		}

		for i := 0; i < m; i++ {
			_, err := q.ExtractMin()
			require.NoError(t, err)
		}

		require.Equal(t, n-m, q.Len())
	})
}

func TestPeekMatchesExtract(t *testing.T) {
	withAllQueues(t, nil, func(t *testing.T, impl Implementation[int, benchQueue]) {
		q := impl.newQueue(orderedqueue.Compare[int])

		for i := 0; i < 64; i++ {
			q.Insert(valueGenerator(i))
		}

		for q.Len() > 0 {
			head, err := q.Peek()
			require.NoError(t, err)

			v, err := q.ExtractMin()
			require.NoError(t, err)
			require.Equal(t, head, v)
		}
	})
}

func TestInterleavedMatchesSortedReference(t *testing.T) {
	withAllQueues(t, nil, func(t *testing.T, impl Implementation[int, benchQueue]) {
		var (
			r         = rand.New(rand.NewSource(99))
			q         = impl.newQueue(orderedqueue.Compare[int])
			reference []int
		)

		for i := 0; i < 2000; i++ {
			if r.Intn(3) == 0 && len(reference) > 0 {
				v, err := q.ExtractMin()
				require.NoError(t, err)
				require.Equal(t, reference[0], v)
				reference = reference[1:]
				continue
			}

			v := r.Intn(500)
			q.Insert(v)
			reference = append(reference, v)
			sort.Ints(reference)
		}

		require.Equal(t, reference, drain(t, q))
	})
}

func TestRunBenchmarks(t *testing.T) {
	opts := options{cfg: config.Config{
		Iterations:   2,
		TestDuration: 5 * time.Millisecond,
		Workloads:    []config.Workload{{BatchSize: 8}, {BatchSize: 64}},
	}}

	log := logrus.New()
	log.SetOutput(io.Discard)

	var out bytes.Buffer
	results := runBenchmarks(opts, getImplementations(), log, &out, nil)

	require.Len(t, results, 2*2*len(getImplementations()))
	for _, res := range results {
		require.Zero(t, res.OrderViolations, res.Implementation)
		require.Equal(t, res.NumInserted, res.NumExtracted)
		require.Positive(t, res.Throughput)
	}
	require.Contains(t, out.String(), "[Workload: batch_size=64]")
}

func TestOutputMarkdownTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	old := report.NewSession(report.SystemInfo{})
	old.Benchmarks = []report.BenchmarkResult{{Implementation: "Stale", Throughput: 1}}

	last := report.NewSession(report.SystemInfo{})
	last.Benchmarks = []report.BenchmarkResult{
		{Implementation: "ListQueue", BatchSize: 16, Throughput: 10},
		{Implementation: "StableHeap", BatchSize: 16, Throughput: 30},
	}

	require.NoError(t, report.Append(path, old, last))

	var out bytes.Buffer
	require.NoError(t, outputMarkdownTable(&out, path))

	table := out.String()
	require.NotContains(t, table, "Stale")
	require.Less(t, bytes.Index(out.Bytes(), []byte("StableHeap")), bytes.Index(out.Bytes(), []byte("ListQueue")))
	require.Contains(t, table, "stableheap")
	require.Contains(t, table, "| Description ")
	require.Contains(t, table, "Binary heap that breaks ties with an insertion sequence number.")
	require.Contains(t, table, "Doubly linked list with linear scan insertion.")
}

func TestImplementationsAreDescribed(t *testing.T) {
	for _, impl := range getImplementations() {
		require.NotEmpty(t, impl.description, impl.name)
		require.NotEmpty(t, impl.pkgName, impl.name)
	}
}

func TestOutputMarkdownTableNoSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, report.Append(path))

	require.Error(t, outputMarkdownTable(io.Discard, path))
}

func TestLoadOptions(t *testing.T) {
	opts, markdown, err := loadOptions(flag.NewFlagSet("bench", flag.ContinueOnError), []string{
		"-iter", "3", "-duration", "1s", "-batch", "4, 32", "-json", "-log-level", "debug",
	})
	require.NoError(t, err)
	require.False(t, markdown)
	require.True(t, opts.json)
	require.Equal(t, 3, opts.cfg.Iterations)
	require.Equal(t, time.Second, opts.cfg.TestDuration)
	require.Equal(t, []config.Workload{{BatchSize: 4}, {BatchSize: 32}}, opts.cfg.Workloads)
	require.Equal(t, logrus.DebugLevel, opts.cfg.Level())
	require.Equal(t, config.Default().JSONFile, opts.cfg.JSONFile)
}

func TestLoadOptionsDefaults(t *testing.T) {
	opts, _, err := loadOptions(flag.NewFlagSet("bench", flag.ContinueOnError), nil)
	require.NoError(t, err)
	require.Equal(t, config.Default(), opts.cfg)
}

func TestLoadOptionsInvalid(t *testing.T) {
	for _, args := range [][]string{
		{"-batch", "16,x"},
		{"-iter", "-1"},
		{"-config", filepath.Join(t.TempDir(), "missing.yaml")},
	} {
		fs := flag.NewFlagSet("bench", flag.ContinueOnError)
		fs.SetOutput(io.Discard)

		_, _, err := loadOptions(fs, args)
		require.Error(t, err, args)
	}
}

func BenchmarkInsertExtract(b *testing.B) {
	for _, impl := range getImplementations() {
		for _, size := range []int{16, 1024} {
			b.Run(fmt.Sprintf("%s/batch=%d", impl.name, size), func(b *testing.B) {
				q := impl.newQueue(orderedqueue.Compare[int])
				for i := 0; i < size; i++ {
					q.Insert(valueGenerator(i))
				}

				b.ReportAllocs()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					q.Insert(valueGenerator(i))
					if _, err := q.ExtractMin(); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
