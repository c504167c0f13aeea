package replay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/replayfire/internal/source"
)

// State is the run controller's lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// EventStream is the logically infinite event sequence the controller
// paces through. wrapped marks the first event of a new capture pass.
// Satisfied by *source.Cycler.
type EventStream interface {
	Next(ctx context.Context) (ev source.Event, wrapped bool, err error)
}

// Options configure the Controller.
type Options struct {
	Source     EventStream   // infinite event sequence (required)
	Timeline   *Timeline     // pacing math (required)
	Dispatcher *Dispatcher   // fire-and-forget dispatch (required)
	Budget     time.Duration // wall-clock run budget (required, > 0)

	// MaxRPS caps the dispatch rate as a safety net on top of the
	// capture's own pacing (0 means uncapped).
	MaxRPS int

	Clock          func() time.Time                            // optional injection for tests
	SleepFunc      func(ctx context.Context, d time.Duration) error // optional injection for tests
	LimiterFactory func(rps int) *rate.Limiter                 // optional injection for tests
}

func (o *Options) normalize() {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.SleepFunc == nil {
		o.SleepFunc = sleepContext
	}
	if o.MaxRPS < 0 {
		o.MaxRPS = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func (o Options) validate() error {
	if o.Source == nil {
		return fmt.Errorf("source is required")
	}
	if o.Timeline == nil {
		return fmt.Errorf("timeline is required")
	}
	if o.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}
	if o.Budget <= 0 {
		return fmt.Errorf("run budget must be positive, got %s", o.Budget)
	}
	return nil
}

// RunStats summarizes one completed run. Field names match the report's
// run_information keys.
type RunStats struct {
	RunTimeMinutes           float64 `json:"run_time_minutes"`
	NumSentRequests          int64   `json:"num_sent_requests"`
	AverageRequestsPerSecond float64 `json:"average_requests_per_second"`
	NumOutstandingRequests   int     `json:"num_outstanding_requests"`
	SecondsBehind            float64 `json:"seconds_behind"`
	PercentageBehind         float64 `json:"percentage_behind"`
}

// Progress is a live snapshot for reporters and the dashboard.
type Progress struct {
	State       State
	Elapsed     time.Duration
	Sent        int64
	Outstanding int
	Behind      time.Duration // schedule lag of the most recent event
}

// Controller drives the pacing loop under a wall-clock budget and, on
// expiry, drains outstanding dispatch units and assembles the run
// statistics. A controller runs exactly once.
type Controller struct {
	opt   Options
	state atomic.Int32
	sent  atomic.Int64
	lag   atomic.Int64 // most recent raw sleep in nanoseconds (may be negative)
	start atomic.Int64 // run start, unix nanoseconds
}

// NewController validates opt and creates a controller in the idle state.
func NewController(opt Options) (*Controller, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	opt.normalize()
	return &Controller{opt: opt}, nil
}

// State returns the controller's current lifecycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Snapshot returns live progress for the current run.
func (c *Controller) Snapshot() Progress {
	var elapsed time.Duration
	if start := c.start.Load(); start != 0 {
		elapsed = c.opt.Clock().Sub(time.Unix(0, start))
	}
	return Progress{
		State:       c.State(),
		Elapsed:     elapsed,
		Sent:        c.sent.Load(),
		Outstanding: c.opt.Dispatcher.Outstanding(),
		Behind:      Behind(time.Duration(c.lag.Load())),
	}
}

// Run executes the replay until the budget expires or ctx is cancelled,
// then drains all in-flight work and returns the run statistics. A fatal
// event-source error aborts pacing immediately; outstanding units are
// still drained before the error is returned.
func (c *Controller) Run(ctx context.Context) (RunStats, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return RunStats{}, fmt.Errorf("controller has already run")
	}

	start := c.opt.Clock()
	c.start.Store(start.UnixNano())

	var limiter *rate.Limiter
	if c.opt.MaxRPS > 0 {
		limiter = c.opt.LimiterFactory(c.opt.MaxRPS)
	}

	var (
		lastSleep time.Duration
		fatalErr  error
	)

	for {
		if ctx.Err() != nil {
			break
		}

		ev, wrapped, err := c.opt.Source.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				fatalErr = fmt.Errorf("event source: %w", err)
			}
			break
		}
		if wrapped {
			c.opt.Timeline.Rewind()
		}

		lastSleep = c.opt.Timeline.NextSleep(ev.Timestamp)
		c.lag.Store(int64(lastSleep))

		pause := lastSleep
		if pause < 0 {
			pause = 0
		}
		// Never sleep past the end of the budget.
		if remaining := c.opt.Budget - c.opt.Clock().Sub(start); pause > remaining {
			pause = remaining
		}
		if pause > 0 {
			if err := c.opt.SleepFunc(ctx, pause); err != nil {
				break
			}
		}

		// Budget is checked before each dispatch, not mid-sleep.
		if c.opt.Clock().Sub(start) >= c.opt.Budget {
			break
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		c.opt.Dispatcher.Dispatch(ctx, ev)
		c.sent.Add(1)
	}

	c.state.Store(int32(StateDraining))
	outstanding, drainErr := c.opt.Dispatcher.Drain()
	elapsed := c.opt.Clock().Sub(start)
	c.state.Store(int32(StateDone))

	stats := c.assembleStats(elapsed, outstanding, lastSleep)
	return stats, errors.Join(fatalErr, drainErr)
}

func (c *Controller) assembleStats(elapsed time.Duration, outstanding int, lastSleep time.Duration) RunStats {
	sent := c.sent.Load()
	stats := RunStats{
		RunTimeMinutes:         elapsed.Minutes(),
		NumSentRequests:        sent,
		NumOutstandingRequests: outstanding,
		SecondsBehind:          Behind(lastSleep).Seconds(),
	}
	if secs := elapsed.Seconds(); secs > 0 {
		stats.AverageRequestsPerSecond = float64(sent) / secs
		// Deliberately not clamped to 1: a value beyond it signals a
		// badly overloaded target.
		stats.PercentageBehind = stats.SecondsBehind / secs
	}
	return stats
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
