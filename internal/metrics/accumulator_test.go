package metrics

import (
	"errors"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/torosent/replayfire/internal/replay"
)

func TestAccumulatorStatusCountsAndAverageTook(t *testing.T) {
	a := NewAccumulator()

	a.Process(replay.Response{Status: 200, Body: []byte(`{"took":10}`), Latency: 5 * time.Millisecond})
	a.Process(replay.Response{Status: 200, Body: []byte(`{"took":20}`), Latency: 8 * time.Millisecond})
	a.Process(replay.Response{Status: 500, Body: []byte(`{"error":"boom"}`), Latency: 2 * time.Millisecond})

	s := a.Summary()

	if got := s.CompletionStatusCounts["200"]; got != 2 {
		t.Errorf(`CompletionStatusCounts["200"] = %d, want 2`, got)
	}
	if got := s.CompletionStatusCounts["500"]; got != 1 {
		t.Errorf(`CompletionStatusCounts["500"] = %d, want 1`, got)
	}
	if s.AverageTimePerSuccessfulRequest == nil {
		t.Fatal("AverageTimePerSuccessfulRequest = nil, want 15")
	}
	if got := *s.AverageTimePerSuccessfulRequest; got != 15 {
		t.Errorf("AverageTimePerSuccessfulRequest = %g, want 15", got)
	}
	if s.NoSuccessfulRequests {
		t.Error("NoSuccessfulRequests = true, want false")
	}

	responses, failures := a.Completed()
	if responses != 3 || failures != 0 {
		t.Errorf("Completed() = (%d, %d), want (3, 0)", responses, failures)
	}
}

func TestAccumulatorNonOKResponsesSkipTook(t *testing.T) {
	a := NewAccumulator()

	// A 500 carrying a took value must not pollute the success average.
	a.Process(replay.Response{Status: 500, Body: []byte(`{"took":9999}`), Latency: time.Millisecond})
	a.Process(replay.Response{Status: 200, Body: []byte(`{"took":10}`), Latency: time.Millisecond})

	s := a.Summary()
	if s.AverageTimePerSuccessfulRequest == nil || *s.AverageTimePerSuccessfulRequest != 10 {
		t.Errorf("AverageTimePerSuccessfulRequest = %v, want 10", s.AverageTimePerSuccessfulRequest)
	}
}

func TestAccumulatorNoSuccessfulRequests(t *testing.T) {
	a := NewAccumulator()

	a.Process(replay.Response{Status: 503, Body: []byte(`{}`), Latency: time.Millisecond})
	a.Process(replay.Response{Status: 404, Body: nil, Latency: time.Millisecond})

	s := a.Summary()
	if s.AverageTimePerSuccessfulRequest != nil {
		t.Errorf("AverageTimePerSuccessfulRequest = %v, want nil", s.AverageTimePerSuccessfulRequest)
	}
	if !s.NoSuccessfulRequests {
		t.Error("NoSuccessfulRequests = false, want true")
	}
}

func TestAccumulatorEmptySummary(t *testing.T) {
	s := NewAccumulator().Summary()

	if !s.NoSuccessfulRequests {
		t.Error("NoSuccessfulRequests = false, want true for an empty run")
	}
	if len(s.CompletionStatusCounts) != 0 {
		t.Errorf("CompletionStatusCounts = %v, want empty", s.CompletionStatusCounts)
	}
	if s.MeanLatencyMs != 0 || s.P99LatencyMs != 0 {
		t.Error("latency stats should be zero for an empty run")
	}
}

func TestAccumulatorMissingTookField(t *testing.T) {
	a := NewAccumulator()

	a.Process(replay.Response{Status: 200, Body: []byte(`{"hits":[]}`), Latency: time.Millisecond})
	a.Process(replay.Response{Status: 200, Body: []byte(`{"took":30}`), Latency: time.Millisecond})

	// A missing field contributes zero, matching gjson's default.
	s := a.Summary()
	if s.AverageTimePerSuccessfulRequest == nil || *s.AverageTimePerSuccessfulRequest != 15 {
		t.Errorf("AverageTimePerSuccessfulRequest = %v, want 15", s.AverageTimePerSuccessfulRequest)
	}
}

func TestAccumulatorTransportFailures(t *testing.T) {
	a := NewAccumulator()

	a.ProcessFailure(&net.OpError{Op: "dial", Err: errors.New("connection refused")})
	a.ProcessFailure(&net.OpError{Op: "dial", Err: errors.New("connection refused")})
	a.ProcessFailure(&url.Error{Op: "Post", URL: "http://x", Err: errors.New("EOF")})

	s := a.Summary()
	if s.TransportFailures != 3 {
		t.Errorf("TransportFailures = %d, want 3", s.TransportFailures)
	}
	if got := s.Errors["Network error"]; got != 2 {
		t.Errorf(`Errors["Network error"] = %d, want 2`, got)
	}
	if got := s.Errors["Request URL error"]; got != 1 {
		t.Errorf(`Errors["Request URL error"] = %d, want 1`, got)
	}

	responses, failures := a.Completed()
	if responses != 0 || failures != 3 {
		t.Errorf("Completed() = (%d, %d), want (0, 3)", responses, failures)
	}
}

func TestAccumulatorLatencyStats(t *testing.T) {
	a := NewAccumulator()

	a.Process(replay.Response{Status: 200, Body: []byte(`{"took":1}`), Latency: 10 * time.Millisecond})
	a.Process(replay.Response{Status: 200, Body: []byte(`{"took":1}`), Latency: 20 * time.Millisecond})
	a.Process(replay.Response{Status: 200, Body: []byte(`{"took":1}`), Latency: 30 * time.Millisecond})

	s := a.Summary()
	if s.MinLatencyMs != 10 {
		t.Errorf("MinLatencyMs = %g, want 10", s.MinLatencyMs)
	}
	if s.MaxLatencyMs != 30 {
		t.Errorf("MaxLatencyMs = %g, want 30", s.MaxLatencyMs)
	}
	if s.MeanLatencyMs != 20 {
		t.Errorf("MeanLatencyMs = %g, want 20", s.MeanLatencyMs)
	}
	// Histogram quantiles are approximate at 3 significant figures.
	if s.P50LatencyMs < 19 || s.P50LatencyMs > 21 {
		t.Errorf("P50LatencyMs = %g, want ~20", s.P50LatencyMs)
	}
	if s.P99LatencyMs < 29 || s.P99LatencyMs > 31 {
		t.Errorf("P99LatencyMs = %g, want ~30", s.P99LatencyMs)
	}
}

func TestFriendlyErrorName(t *testing.T) {
	tests := []struct {
		typeName string
		want     string
	}{
		{"*net.OpError", "Network error"},
		{"net.OpError", "Network error"},
		{"*url.Error", "Request URL error"},
		{"*context.deadlineExceededError", "Context deadline exceeded"},
		{"", "Unknown error"},
	}
	for _, tt := range tests {
		if got := FriendlyErrorName(tt.typeName); got != tt.want {
			t.Errorf("FriendlyErrorName(%q) = %q, want %q", tt.typeName, got, tt.want)
		}
	}
}
