// Package report defines the JSON results file written by cmd/bench and read
// by cmd/buildGraph.
package report

import (
	"bytes"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BenchmarkResult holds results for one test run.
type BenchmarkResult struct {
	Implementation  string  `json:"implementation"`
	BatchSize       int     `json:"batch_size"`
	NumInserted     int64   `json:"num_inserted"`
	NumExtracted    int64   `json:"num_extracted"`
	NumBatches      int64   `json:"num_batches"`
	OrderViolations int64   `json:"order_violations"`
	TestDuration    string  `json:"test_duration"`       // e.g. "2s"
	ActualElapsed   string  `json:"actual_elapsed"`      // measured time
	Throughput      float64 `json:"throughput_elem_sec"` // based on extracted count
	Timestamp       int64   `json:"timestamp"`
	GoVersion       string  `json:"go_version"`
}

// NsPerElement returns the measured time per extracted element, or false if
// the result cannot be used.
func (b BenchmarkResult) NsPerElement() (float64, bool) {
	dur, err := time.ParseDuration(b.ActualElapsed)
	if err != nil || b.NumExtracted == 0 {
		return 0, false
	}
	return float64(dur.Nanoseconds()) / float64(b.NumExtracted), true
}

// SystemInfo holds system information.
type SystemInfo struct {
	NumCPU      int     `json:"num_cpu"`
	CPUModel    string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH      string  `json:"go_arch"`
	TotalMemory uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport represents a complete test session.
type FullReport struct {
	SessionID   string            `json:"session_id"`
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

// NewSession starts a report stamped with a fresh session id and the current time.
func NewSession(info SystemInfo) FullReport {
	return FullReport{
		SessionID:   uuid.NewString(),
		SessionTime: time.Now().Format(time.RFC3339),
		SystemInfo:  info,
	}
}

// GatherSystemInfo collects basic CPU and memory details. Fields that cannot
// be read on this platform are left empty.
func GatherSystemInfo() SystemInfo {
	info := SystemInfo{
		NumCPU: runtime.NumCPU(),
		GOARCH: runtime.GOARCH,
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		info.CPUModel = infos[0].ModelName
		info.CPUSpeedMHz = infos[0].Mhz
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
	}

	return info
}

// Load reads every session stored in path. An empty file holds no sessions.
func Load(path string) ([]FullReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read report %q", path)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, errors.Wrapf(err, "could not decode report %q", path)
	}

	return sessions, nil
}

// Append adds sessions to the report at path, creating the file if it does not exist.
func Append(path string, sessions ...FullReport) error {
	previous, err := Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	data, err := json.MarshalIndent(append(previous, sessions...), "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode report")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "could not write report %q", path)
	}

	return nil
}
