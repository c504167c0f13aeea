// Package threshold evaluates pass/fail assertions over a finished replay,
// so CI runs can gate on replay health (exit non-zero when the target fell
// too far behind or errored too often).
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/replayfire/internal/output"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric   string  // e.g. "p99", "percentage_behind", "failure_rate"
	Operator string  // "<", "<=", ">", ">=", "=="
	Value    float64 // the threshold value to compare against
	Raw      string  // original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

var thresholdPattern = regexp.MustCompile(`^\s*([a-z0-9_]+)\s*(<=|>=|==|<|>)\s*([0-9.]+)\s*$`)

// Parse parses threshold strings like "p99<250" or "percentage_behind < 0.05".
func Parse(specs []string) ([]Threshold, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	thresholds := make([]Threshold, 0, len(specs))
	for _, raw := range specs {
		match := thresholdPattern.FindStringSubmatch(strings.ToLower(raw))
		if match == nil {
			return nil, fmt.Errorf("invalid threshold %q: expected <metric><op><value>, e.g. p99<250", raw)
		}
		value, err := strconv.ParseFloat(match[3], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold value in %q: %w", raw, err)
		}
		thresholds = append(thresholds, Threshold{
			Metric:   match[1],
			Operator: match[2],
			Value:    value,
			Raw:      strings.TrimSpace(raw),
		})
	}
	return thresholds, nil
}

// Evaluator evaluates thresholds against a replay result.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the provided result.
func (e *Evaluator) Evaluate(result output.Result) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, e.evaluateOne(t, result))
	}
	return results
}

// AllPassed reports whether every evaluated threshold held.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func (e *Evaluator) evaluateOne(t Threshold, result output.Result) Result {
	actual, err := extractMetricValue(t.Metric, result)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    math.NaN(),
			Pass:      false,
			Message:   fmt.Sprintf("%s: %v", t.Raw, err),
		}
	}

	pass := compare(actual, t.Operator, t.Value)
	status := "PASS"
	if !pass {
		status = "FAIL"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s: %s (actual %.4g)", status, t.Raw, actual),
	}
}

func extractMetricValue(metric string, result output.Result) (float64, error) {
	run := result.RunInformation
	acc := result.AccumulatorInformation

	switch metric {
	case "min":
		return acc.MinLatencyMs, nil
	case "max":
		return acc.MaxLatencyMs, nil
	case "mean":
		return acc.MeanLatencyMs, nil
	case "p50":
		return acc.P50LatencyMs, nil
	case "p90":
		return acc.P90LatencyMs, nil
	case "p99":
		return acc.P99LatencyMs, nil
	case "avg_took":
		if acc.AverageTimePerSuccessfulRequest == nil {
			return 0, fmt.Errorf("no successful requests, avg_took undefined")
		}
		return *acc.AverageTimePerSuccessfulRequest, nil
	case "rps":
		return run.AverageRequestsPerSecond, nil
	case "seconds_behind":
		return run.SecondsBehind, nil
	case "percentage_behind":
		return run.PercentageBehind, nil
	case "outstanding":
		return float64(run.NumOutstandingRequests), nil
	case "transport_failures":
		return float64(acc.TransportFailures), nil
	case "failure_rate":
		if run.NumSentRequests == 0 {
			return 0, nil
		}
		return float64(acc.TransportFailures) / float64(run.NumSentRequests), nil
	default:
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
}

func compare(actual float64, operator string, value float64) bool {
	switch operator {
	case "<":
		return actual < value
	case "<=":
		return actual <= value
	case ">":
		return actual > value
	case ">=":
		return actual >= value
	case "==":
		return actual == value
	default:
		return false
	}
}
