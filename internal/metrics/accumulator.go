package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/tidwall/gjson"

	"github.com/torosent/replayfire/internal/replay"
)

// tookField is the JSON field the target service reports its own
// processing time in (Elasticsearch reports milliseconds).
const tookField = "took"

// Accumulator collects per-response statistics in a thread-safe manner.
// It implements replay.Sink: responses arrive from racing completion
// goroutines in no particular order.
type Accumulator struct {
	mu                sync.Mutex
	hist              *hdrhistogram.Histogram
	statusCounts      map[int]int64
	totalTook         int64
	transportFailures int64
	errorsByType      map[string]int64
	minLatency        time.Duration
	maxLatency        time.Duration
	sumLatency        time.Duration
	responses         int64
}

// Summary represents the accumulated response statistics.
type Summary struct {
	CompletionStatusCounts map[string]int64 `json:"completion_status_counts"`

	// AverageTimePerSuccessfulRequest is the mean service-reported took
	// over all 200 responses. Absent when there were no successes;
	// NoSuccessfulRequests marks that case explicitly.
	AverageTimePerSuccessfulRequest *float64 `json:"average_time_per_successful_request,omitempty"`
	NoSuccessfulRequests            bool     `json:"no_successful_requests,omitempty"`

	TransportFailures int64            `json:"transport_failures,omitempty"`
	Errors            map[string]int64 `json:"errors,omitempty"`

	// Client-observed round-trip latency in milliseconds.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Accumulator{
		hist:         h,
		statusCounts: make(map[int]int64),
		errorsByType: make(map[string]int64),
	}
}

// Process records a response the target produced. Successful responses
// contribute their service-reported took value to the running total.
func (a *Accumulator) Process(resp replay.Response) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.statusCounts[resp.Status]++
	if resp.Status == http.StatusOK {
		a.totalTook += gjson.GetBytes(resp.Body, tookField).Int()
	}
	a.recordLatency(resp.Latency)
}

// ProcessFailure records a transport-level failure as a distinguished
// outcome so one refused connection cannot kill an otherwise successful
// replay.
func (a *Accumulator) ProcessFailure(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.transportFailures++
	errorType := fmt.Sprintf("%T", err)
	if len(errorType) > 30 {
		errorType = errorType[len(errorType)-30:]
	}
	a.errorsByType[FriendlyErrorName(errorType)]++
}

func (a *Accumulator) recordLatency(latency time.Duration) {
	if latency > 0 {
		us := latency.Microseconds()
		if us < a.hist.LowestTrackableValue() {
			us = a.hist.LowestTrackableValue()
		}
		if us > a.hist.HighestTrackableValue() {
			us = a.hist.HighestTrackableValue()
		}
		_ = a.hist.RecordValue(us)
	}
	a.sumLatency += latency

	if a.minLatency == 0 || latency < a.minLatency {
		a.minLatency = latency
	}
	if latency > a.maxLatency {
		a.maxLatency = latency
	}
	a.responses++
}

// Completed returns the number of responses and transport failures seen so
// far. Used by live reporters.
func (a *Accumulator) Completed() (responses, failures int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.responses, a.transportFailures
}

// Summary computes the aggregated statistics.
func (a *Accumulator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	summary := Summary{
		CompletionStatusCounts: make(map[string]int64, len(a.statusCounts)),
		TransportFailures:      a.transportFailures,
	}
	for status, count := range a.statusCounts {
		summary.CompletionStatusCounts[fmt.Sprintf("%d", status)] = count
	}

	if successes := a.statusCounts[http.StatusOK]; successes > 0 {
		avg := float64(a.totalTook) / float64(successes)
		summary.AverageTimePerSuccessfulRequest = &avg
	} else {
		summary.NoSuccessfulRequests = true
	}

	if len(a.errorsByType) > 0 {
		summary.Errors = make(map[string]int64, len(a.errorsByType))
		for k, v := range a.errorsByType {
			summary.Errors[k] = v
		}
	}

	var mean time.Duration
	if a.responses > 0 {
		mean = time.Duration(int64(a.sumLatency) / a.responses)
	}
	summary.MinLatencyMs = float64(a.minLatency) / float64(time.Millisecond)
	summary.MaxLatencyMs = float64(a.maxLatency) / float64(time.Millisecond)
	summary.MeanLatencyMs = float64(mean) / float64(time.Millisecond)
	if a.hist.TotalCount() > 0 {
		summary.P50LatencyMs = float64(a.hist.ValueAtQuantile(50)) / 1000
		summary.P90LatencyMs = float64(a.hist.ValueAtQuantile(90)) / 1000
		summary.P99LatencyMs = float64(a.hist.ValueAtQuantile(99)) / 1000
	}

	return summary
}
