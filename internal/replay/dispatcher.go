package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/torosent/replayfire/internal/source"
)

// Response is the normalized outcome of one dispatched request.
type Response struct {
	Status  int           // HTTP status code
	Body    []byte        // raw response body
	Latency time.Duration // client-observed round-trip time
}

// Transport issues a single captured request against the target service.
type Transport interface {
	RoundTrip(ctx context.Context, ev source.Event) (Response, error)
}

// Sink accumulates per-response statistics. Implementations must be safe
// for concurrent use: completions race and arrive from multiple goroutines.
type Sink interface {
	// Process records a response the target actually produced, whatever
	// its status code.
	Process(Response)

	// ProcessFailure records a transport-level failure (connection error,
	// timeout, malformed response) as a distinguished outcome.
	ProcessFailure(error)
}

// unit is one in-flight dispatched request.
type unit struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error // non-cancellation error observed after cancellation was requested
}

// Dispatcher fires requests as independent goroutines without blocking the
// pacing loop, tracks them in an explicitly owned in-flight set and routes
// each completion to the sink exactly once. A unit cancelled during drain
// produces no sink invocation. Concurrency is unbounded by design; any
// number of units may be outstanding at once.
type Dispatcher struct {
	transport Transport
	sink      Sink

	mu       sync.Mutex
	inflight map[*unit]struct{}
}

// NewDispatcher creates a dispatcher routing completions to sink.
func NewDispatcher(transport Transport, sink Sink) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		sink:      sink,
		inflight:  make(map[*unit]struct{}),
	}
}

// Dispatch issues ev as an independent unit of work and returns without
// waiting for it. The unit inherits cancellation from ctx and can also be
// cancelled individually at drain time.
func (d *Dispatcher) Dispatch(ctx context.Context, ev source.Event) {
	unitCtx, cancel := context.WithCancel(ctx)
	u := &unit{cancel: cancel, done: make(chan struct{})}

	d.mu.Lock()
	d.inflight[u] = struct{}{}
	d.mu.Unlock()

	go func() {
		defer close(u.done)
		defer cancel()

		resp, err := d.transport.RoundTrip(unitCtx, ev)

		// The unit stays in the in-flight set until its sink call has
		// returned, so a drain that snapshots mid-completion still waits
		// for the outcome to be recorded.
		switch {
		case err == nil:
			d.sink.Process(resp)
		case errors.Is(err, context.Canceled):
			// Expected during drain; the sink never sees cancelled units.
		case unitCtx.Err() != nil:
			// A cancelled unit failing with anything other than a
			// cancellation error is a defect and must surface.
			u.err = err
		default:
			d.sink.ProcessFailure(err)
		}

		d.mu.Lock()
		delete(d.inflight, u)
		d.mu.Unlock()
	}()
}

// Outstanding returns the number of units currently in flight.
func (d *Dispatcher) Outstanding() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// Drain cancels every outstanding unit and waits for each one to resolve:
// the sink call of a unit that completed naturally has returned by the
// time Drain does. It returns the number of units that were still in
// flight when the drain began; a unit that completed naturally between the
// snapshot and its cancellation is a benign race and counts as a normal
// completion. A non-cancellation error from a drained unit is returned.
func (d *Dispatcher) Drain() (int, error) {
	d.mu.Lock()
	pending := make([]*unit, 0, len(d.inflight))
	for u := range d.inflight {
		pending = append(pending, u)
	}
	d.mu.Unlock()

	for _, u := range pending {
		u.cancel()
	}

	var errs []error
	for _, u := range pending {
		<-u.done
		if u.err != nil {
			errs = append(errs, u.err)
		}
	}
	return len(pending), errors.Join(errs...)
}
