package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/replay"
)

// Result is the complete outcome of one replay run.
type Result struct {
	RunInformation         replay.RunStats `json:"run_information"`
	AccumulatorInformation metrics.Summary `json:"accumulator_information"`
}

// PrintJSONResult writes the machine-readable run result.
func PrintJSONResult(w io.Writer, result Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(result)
}

// PrintReport writes a human-readable summary report.
func PrintReport(w io.Writer, result Result) {
	run := result.RunInformation
	acc := result.AccumulatorInformation

	fmt.Fprintln(w, "\n--- Replay Results ---")
	fmt.Fprintf(w, "Run Time:          %.2f min\n", run.RunTimeMinutes)
	fmt.Fprintf(w, "Requests Sent:     %d\n", run.NumSentRequests)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", run.AverageRequestsPerSecond)
	fmt.Fprintf(w, "Outstanding:       %d\n", run.NumOutstandingRequests)
	fmt.Fprintf(w, "Seconds Behind:    %.2f\n", run.SecondsBehind)
	fmt.Fprintf(w, "Percent Behind:    %.1f%%\n", run.PercentageBehind*100)

	fmt.Fprintln(w, "\nStatus Counts:")
	if len(acc.CompletionStatusCounts) == 0 {
		fmt.Fprintln(w, "  None")
	} else {
		codes := make([]string, 0, len(acc.CompletionStatusCounts))
		for code := range acc.CompletionStatusCounts {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "  %s: %d\n", code, acc.CompletionStatusCounts[code])
		}
	}
	if acc.TransportFailures > 0 {
		fmt.Fprintf(w, "  transport failures: %d\n", acc.TransportFailures)
		names := make([]string, 0, len(acc.Errors))
		for name := range acc.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "    - %s: %d\n", name, acc.Errors[name])
		}
	}

	if acc.NoSuccessfulRequests {
		fmt.Fprintln(w, "\nAvg Took:          n/a (no successful requests)")
	} else if acc.AverageTimePerSuccessfulRequest != nil {
		fmt.Fprintf(w, "\nAvg Took:          %.2f ms\n", *acc.AverageTimePerSuccessfulRequest)
	}

	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %.2f ms\n", acc.MinLatencyMs)
	fmt.Fprintf(w, "  Max:             %.2f ms\n", acc.MaxLatencyMs)
	fmt.Fprintf(w, "  Mean:            %.2f ms\n", acc.MeanLatencyMs)
	fmt.Fprintf(w, "  P50:             %.2f ms\n", acc.P50LatencyMs)
	fmt.Fprintf(w, "  P90:             %.2f ms\n", acc.P90LatencyMs)
	fmt.Fprintf(w, "  P99:             %.2f ms\n", acc.P99LatencyMs)
}
