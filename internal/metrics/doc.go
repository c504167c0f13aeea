// Package metrics accumulates per-response statistics during a replay.
//
// The central [Accumulator] type is the replay engine's response sink. It
// histograms responses by status code, totals the target's self-reported
// "took" times for successful responses, and tracks client-observed
// round-trip latency in an HDR histogram.
//
//	acc := metrics.NewAccumulator()
//	// from completion goroutines:
//	acc.Process(resp)
//	acc.ProcessFailure(err)
//	// once the run is over:
//	summary := acc.Summary()
//
// Transport-level failures are recorded as a distinguished outcome with a
// per-error-type breakdown rather than aborting the run.
//
// # Thread Safety
//
// Completions race: Process and ProcessFailure are called from many
// goroutines at once and the Accumulator serializes them with a mutex.
//
// # Zero Successes
//
// When no successful response was seen, [Summary] omits the average took
// time and sets NoSuccessfulRequests instead of dividing by zero.
package metrics
