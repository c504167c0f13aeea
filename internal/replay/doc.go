// Package replay provides the timed-replay engine for replayfire.
//
// The package answers one question: if a captured traffic pattern repeats
// at N-times speed, how does the target service behave? It has three
// moving parts:
//
//   - [Timeline] converts log-relative event timestamps into real
//     wall-clock sleep intervals under a speed multiplier, and keeps the
//     virtual clock continuous when the capture wraps around.
//   - [Dispatcher] fires each request as an independent goroutine without
//     blocking the pacing loop, tracks in-flight units in an owned set and
//     delivers every natural completion to the [Sink] exactly once.
//   - [Controller] drives the pacing loop under a wall-clock budget and,
//     on expiry, cancels and awaits outstanding units before assembling
//     [RunStats].
//
// # Basic Usage
//
//	tl, _ := replay.NewTimeline(2.0)
//	disp := replay.NewDispatcher(transport, sink)
//	ctrl, _ := replay.NewController(replay.Options{
//		Source:     cycler,
//		Timeline:   tl,
//		Dispatcher: disp,
//		Budget:     10 * time.Minute,
//	})
//	stats, err := ctrl.Run(ctx)
//
// # Ordering
//
// Events are dispatched in strict source order at the timeline's schedule;
// completions race and may reach the sink out of order. Cancellation is
// requested only at drain time and is best-effort: a unit that completes
// in the instant before its cancellation lands counts as a normal
// completion.
package replay
