package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i5heu/GoOrderedQueue/internal/queue"
	"github.com/i5heu/GoOrderedQueue/internal/report"
	"github.com/i5heu/GoOrderedQueue/internal/testbench"
	"github.com/i5heu/GoOrderedQueue/pkg/config"
	"github.com/i5heu/GoOrderedQueue/pkg/listqueue"
	"github.com/i5heu/GoOrderedQueue/pkg/orderedqueue"
	"github.com/i5heu/GoOrderedQueue/pkg/stableheap"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// benchQueue is the runtime form of the ordered queue contract used by every implementation.
type benchQueue = queue.OrderedQueueInterface[int]

// Implementation represents a queue implementation.
type Implementation[T any, Q queue.OrderedQueueInterface[T]] struct {
	name        string
	description string
	pkgName     string
	features    []string
	newQueue    func(cmp orderedqueue.Comparator[T]) Q
}

// options are the settings of one bench invocation after merging the config file and the flags.
type options struct {
	cfg      config.Config
	json     bool
	progress bool
}

// outputMarkdownTable loads the JSON file and writes a Markdown table of its last session to w.
func outputMarkdownTable(w io.Writer, jsonFile string) error {
	sessions, err := report.Load(jsonFile)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		return errors.Errorf("no sessions found in %q", jsonFile)
	}

	// Use the last session for the table.
	lastSession := sessions[len(sessions)-1]

	implMetaMap := make(map[string]Implementation[int, benchQueue])
	for _, impl := range getImplementations() {
		implMetaMap[impl.name] = impl
	}

	type tableRow struct {
		implementation string
		pkgName        string
		description    string
		features       string
		batchSize      int
		throughput     float64
	}

	var rows []tableRow
	for _, bench := range lastSession.Benchmarks {
		meta := implMetaMap[bench.Implementation]
		rows = append(rows, tableRow{
			implementation: bench.Implementation,
			pkgName:        meta.pkgName,
			description:    meta.description,
			features:       strings.Join(meta.features, ", "),
			batchSize:      bench.BatchSize,
			throughput:     bench.Throughput,
		})
	}

	// Sort rows by throughput descending.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].throughput > rows[j].throughput
	})

	fmt.Fprintln(w, "## Last Session Benchmark Summary")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Implementation           | Package         | Description                                                      | Features                    | Batch Size | Throughput (elem/sec) |")
	fmt.Fprintln(w, "|--------------------------|-----------------|------------------------------------------------------------------|-----------------------------|------------|-----------------------|")
	for _, r := range rows {
		fmt.Fprintf(w, "| %-24s | %-15s | %-64s | %-27s | %10d | %21.0f |\n",
			r.implementation, r.pkgName, r.description, r.features, r.batchSize, r.throughput)
	}

	return nil
}

// valueGenerator spreads indexes over a small range so every batch contains many equal priorities.
func valueGenerator(i int) int {
	return int(uint32(i) * 2654435761 % 1024)
}

// runBenchmarks runs every implementation against every workload, opts.cfg.Iterations times.
// Each finished run advances bar when it is not nil.
func runBenchmarks(
	opts options,
	impls []Implementation[int, benchQueue],
	log *logrus.Logger,
	out io.Writer,
	bar *progressbar.ProgressBar,
) []report.BenchmarkResult {
	var results []report.BenchmarkResult

	for _, wl := range opts.cfg.Workloads {
		fmt.Fprintf(out, "  [Workload: batch_size=%d]\n", wl.BatchSize)
		for iteration := 1; iteration <= opts.cfg.Iterations; iteration++ {
			fmt.Fprintf(out, "    iteration %d/%d\n", iteration, opts.cfg.Iterations)
			for _, impl := range impls {
				runtime.GC()
				q := impl.newQueue(orderedqueue.Compare[int])

				res := testbench.RunTimedTest[int](q, wl, opts.cfg.TestDuration, valueGenerator, orderedqueue.Compare[int])
				throughput := float64(res.Extracted) / res.Elapsed.Seconds()

				fmt.Fprintf(out, "    %s => inserted=%d, extracted=%d, throughput=%.0f elem/s, took=%v\n",
					impl.name, res.Inserted, res.Extracted, throughput, res.Elapsed)

				entry := log.WithFields(logrus.Fields{
					"implementation": impl.name,
					"batch_size":     wl.BatchSize,
					"iteration":      iteration,
					"batches":        res.Batches,
				})
				if res.OrderViolations > 0 {
					entry.WithField("violations", res.OrderViolations).Error("Queue returned elements out of order")
				} else {
					entry.Debug("Run finished")
				}

				results = append(results, report.BenchmarkResult{
					Implementation:  impl.name,
					BatchSize:       wl.BatchSize,
					NumInserted:     res.Inserted,
					NumExtracted:    res.Extracted,
					NumBatches:      res.Batches,
					OrderViolations: res.OrderViolations,
					TestDuration:    opts.cfg.TestDuration.String(),
					ActualElapsed:   res.Elapsed.String(),
					Throughput:      throughput,
					Timestamp:       time.Now().Unix(),
					GoVersion:       runtime.Version(),
				})

				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}
	}

	return results
}

// parseBatchSizes turns "16,256" into workloads.
func parseBatchSizes(s string) ([]config.Workload, error) {
	var workloads []config.Workload
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid batch size %q", field)
		}
		workloads = append(workloads, config.Workload{BatchSize: n})
	}
	return workloads, nil
}

// loadOptions reads the config file, if any, and applies the flags that were set explicitly.
func loadOptions(fs *flag.FlagSet, args []string) (options, bool, error) {
	var (
		configFile    = fs.String("config", "", "Path to a YAML config file")
		iterations    = fs.Int("iter", 0, "Number of test iterations per workload")
		duration      = fs.Duration("duration", 0, "Duration of each test run")
		batches       = fs.String("batch", "", "Comma separated batch sizes, e.g. 16,256,4096")
		logLevel      = fs.String("log-level", "", "Log level (debug, info, warn, error)")
		jsonExport    = fs.Bool("json", false, "Append results as JSON to the results file")
		jsonFile      = fs.String("jsonfile", "", "Path to the JSON results file")
		markdownTable = fs.Bool("markdown-table", false, "Output markdown table from the JSON results file and exit")
		progressFlag  = fs.Bool("progress", false, "Display a progress bar with ETA")
	)

	if err := fs.Parse(args); err != nil {
		return options{}, false, err
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return options{}, false, err
		}
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "iter":
			cfg.Iterations = *iterations
		case "duration":
			cfg.TestDuration = *duration
		case "batch":
			var workloads []config.Workload
			if workloads, err = parseBatchSizes(*batches); err == nil {
				cfg.Workloads = workloads
			}
		case "log-level":
			cfg.LogLevel = *logLevel
		case "jsonfile":
			cfg.JSONFile = *jsonFile
		}
	})

	if err != nil {
		return options{}, false, err
	}

	if err := cfg.Validate(); err != nil {
		return options{}, false, err
	}

	return options{cfg: cfg, json: *jsonExport, progress: *progressFlag}, *markdownTable, nil
}

func main() {
	log := logrus.New()

	opts, markdownTable, err := loadOptions(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	log.SetLevel(opts.cfg.Level())

	if markdownTable {
		if err := outputMarkdownTable(os.Stdout, opts.cfg.JSONFile); err != nil {
			log.WithError(err).Fatal("Could not build markdown table")
		}
		return
	}

	impls := getImplementations()
	session := report.NewSession(report.GatherSystemInfo())

	log.WithFields(logrus.Fields{
		"session":    session.SessionID,
		"cpu":        session.SystemInfo.CPUModel,
		"iterations": opts.cfg.Iterations,
		"duration":   opts.cfg.TestDuration,
	}).Info("Starting benchmark session")

	var bar *progressbar.ProgressBar
	if opts.progress {
		total := len(opts.cfg.Workloads) * opts.cfg.Iterations * len(impls)
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Progress"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	session.Benchmarks = runBenchmarks(opts, impls, log, os.Stdout, bar)

	if bar != nil {
		_ = bar.Finish()
	}

	if opts.json {
		if err := report.Append(opts.cfg.JSONFile, session); err != nil {
			log.WithError(err).Fatal("Could not write results")
		}
		fmt.Printf("\nWrote results to %s\n", opts.cfg.JSONFile)
	}
}

// getImplementations enumerates our different queue implementations.
func getImplementations() []Implementation[int, benchQueue] {
	return []Implementation[int, benchQueue]{
		{
			name:        "OrderedQueue",
			pkgName:     "orderedqueue",
			description: "Sorted slice with linear scan insertion and O(1) extraction from the front.",
			features:    []string{"Stable", "Linear-Insert"},
			newQueue: func(cmp orderedqueue.Comparator[int]) benchQueue {
				return orderedqueue.New[int](cmp)
			},
		},
		{
			name:        "ListQueue",
			pkgName:     "listqueue",
			description: "Doubly linked list with linear scan insertion.",
			features:    []string{"Stable", "Linear-Insert"},
			newQueue: func(cmp orderedqueue.Comparator[int]) benchQueue {
				return listqueue.New[int](cmp)
			},
		},
		{
			name:        "StableHeap",
			pkgName:     "stableheap",
			description: "Binary heap that breaks ties with an insertion sequence number.",
			features:    []string{"Stable", "Log-Insert"},
			newQueue: func(cmp orderedqueue.Comparator[int]) benchQueue {
				return stableheap.New[int](cmp)
			},
		},
	}
}
