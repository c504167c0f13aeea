package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event is a single captured request. Events are immutable once yielded.
type Event struct {
	Timestamp time.Time
	Method    string
	Path      string
	Body      json.RawMessage
}

// Source provides the ordered events of one finite capture.
// A Source must yield the same sequence on every pass; Reset rewinds
// it to the first event. Implementations must be safe for concurrent use.
type Source interface {
	// Next returns the next event of the current pass or ErrExhausted
	// when the pass is complete.
	Next(ctx context.Context) (Event, error)

	// Reset rewinds the source to the start of the capture.
	Reset() error

	// Close releases any resources held by the source.
	Close() error

	// Len returns the number of events in one pass.
	Len() int
}

// ErrExhausted is returned when a source has yielded every event of the
// current pass.
var ErrExhausted = fmt.Errorf("source exhausted: end of capture pass")

// Cycler turns a finite Source into a logically infinite sequence by
// rewinding it whenever a pass completes. The wrapped flag marks the first
// event of a fresh pass so the caller can carry its timeline across the
// boundary; reinterpreting the repeated timestamps is the timeline's job,
// not the source's.
type Cycler struct {
	src Source
}

// NewCycler wraps src. The source must contain at least one event.
func NewCycler(src Source) (*Cycler, error) {
	if src == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if src.Len() == 0 {
		return nil, fmt.Errorf("source has no events to replay")
	}
	return &Cycler{src: src}, nil
}

// Next returns the next event of the infinite sequence. wrapped is true
// when ev is the first event of a new pass over the capture (it is false
// for the very first event of the first pass).
func (c *Cycler) Next(ctx context.Context) (ev Event, wrapped bool, err error) {
	ev, err = c.src.Next(ctx)
	if err == nil {
		return ev, false, nil
	}
	if !errors.Is(err, ErrExhausted) {
		return Event{}, false, err
	}

	if err := c.src.Reset(); err != nil {
		return Event{}, false, fmt.Errorf("reset source: %w", err)
	}
	ev, err = c.src.Next(ctx)
	if err != nil {
		return Event{}, false, fmt.Errorf("source yielded no events after reset: %w", err)
	}
	return ev, true, nil
}

// Close closes the underlying source.
func (c *Cycler) Close() error {
	return c.src.Close()
}
