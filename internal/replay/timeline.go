package replay

import (
	"fmt"
	"time"
)

// Timeline maps log-relative event timestamps onto real wall-clock sleep
// intervals under a speed multiplier. Log time is made continuous across
// capture wraparounds: each time the source rewinds, the log origin is
// shifted backward by the length of one pass, so the virtual clock never
// jumps back even though the timestamps repeat.
type Timeline struct {
	speed float64
	now   func() time.Time

	replayStart   time.Time     // real-clock instant of the first event; zero = unset
	logOrigin     time.Time     // log-relative origin of the current cycle; zero = unset
	logDuration   time.Duration // length of one full pass; 0 = not yet discovered
	lastTimestamp time.Time     // most recent event timestamp observed
}

// NewTimeline creates a timeline for the given speed multiplier. A
// multiplier of 1 replays in real time; values above 1 compress log time
// into less wall-clock time.
func NewTimeline(speed float64) (*Timeline, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("speed multiplier must be positive, got %g", speed)
	}
	return &Timeline{
		speed: speed,
		now:   time.Now,
	}, nil
}

// NextSleep returns how long the caller should wait before dispatching the
// event recorded at eventTime. A negative value means the replay is behind
// schedule; callers clamp before sleeping. Event timestamps are assumed
// non-decreasing within a pass; a violation produces nonsensical sleeps.
func (t *Timeline) NextSleep(eventTime time.Time) time.Duration {
	now := t.now()
	if t.replayStart.IsZero() {
		t.replayStart = now
	}
	if t.logOrigin.IsZero() {
		t.logOrigin = eventTime
	}
	t.lastTimestamp = eventTime

	logElapsed := eventTime.Sub(t.logOrigin)
	realElapsed := time.Duration(float64(now.Sub(t.replayStart)) * t.speed)
	remaining := logElapsed - realElapsed
	return time.Duration(float64(remaining) / t.speed)
}

// Rewind advances the timeline across a capture wraparound. It must be
// called once per cycle boundary, before NextSleep sees the first event of
// the new pass. The pass length is discovered on the first rewind from the
// distance between the cycle's origin and its last event; every rewind then
// shifts the origin backward by that length so log time keeps flowing.
func (t *Timeline) Rewind() {
	if t.logOrigin.IsZero() {
		return
	}
	if t.logDuration == 0 {
		t.logDuration = t.lastTimestamp.Sub(t.logOrigin)
	}
	t.logOrigin = t.logOrigin.Add(-t.logDuration)
}

// Behind reports how far behind schedule the last computed sleep was, as a
// non-negative duration. Zero means the replay was keeping up.
func Behind(lastSleep time.Duration) time.Duration {
	if lastSleep >= 0 {
		return 0
	}
	return -lastSleep
}
