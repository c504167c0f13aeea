package replay

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestTimeline(t *testing.T, speed float64, clock *fakeClock) *Timeline {
	t.Helper()
	tl, err := NewTimeline(speed)
	if err != nil {
		t.Fatalf("NewTimeline(%g) error = %v", speed, err)
	}
	tl.now = clock.Now
	return tl
}

func TestNewTimelineRejectsNonPositiveSpeed(t *testing.T) {
	for _, speed := range []float64{0, -1, -0.5} {
		if _, err := NewTimeline(speed); err == nil {
			t.Errorf("NewTimeline(%g) should fail", speed)
		}
	}
}

func TestTimelineRealtimePacing(t *testing.T) {
	clock := newFakeClock()
	tl := newTestTimeline(t, 1, clock)
	logBase := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	// The first event anchors both clocks; no waiting.
	if got := tl.NextSleep(logBase); got != 0 {
		t.Errorf("first NextSleep() = %v, want 0", got)
	}

	// An event 2s later in the log, with 500ms of real time burned,
	// leaves 1.5s to wait.
	clock.Advance(500 * time.Millisecond)
	if got := tl.NextSleep(logBase.Add(2 * time.Second)); got != 1500*time.Millisecond {
		t.Errorf("NextSleep() = %v, want 1.5s", got)
	}
}

func TestTimelineSpeedMultiplier(t *testing.T) {
	clock := newFakeClock()
	tl := newTestTimeline(t, 2, clock)
	logBase := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	tl.NextSleep(logBase)

	// 4s of log time at 2x compresses to 2s of wall time; 1s has already
	// passed, so 2s of log remains, which is 1s of wall time.
	clock.Advance(1 * time.Second)
	if got := tl.NextSleep(logBase.Add(4 * time.Second)); got != 1*time.Second {
		t.Errorf("NextSleep() at 2x = %v, want 1s", got)
	}
}

func TestTimelineHalfSpeed(t *testing.T) {
	clock := newFakeClock()
	tl := newTestTimeline(t, 0.5, clock)
	logBase := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	tl.NextSleep(logBase)

	// 1s of log time at half speed stretches to 2s of wall time.
	if got := tl.NextSleep(logBase.Add(1 * time.Second)); got != 2*time.Second {
		t.Errorf("NextSleep() at 0.5x = %v, want 2s", got)
	}
}

func TestTimelineBehindSchedule(t *testing.T) {
	clock := newFakeClock()
	tl := newTestTimeline(t, 1, clock)
	logBase := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	tl.NextSleep(logBase)

	// Real time has raced 3s ahead of 1s of log time.
	clock.Advance(3 * time.Second)
	got := tl.NextSleep(logBase.Add(1 * time.Second))
	if got != -2*time.Second {
		t.Errorf("NextSleep() = %v, want -2s", got)
	}
	if Behind(got) != 2*time.Second {
		t.Errorf("Behind(%v) = %v, want 2s", got, Behind(got))
	}
	if Behind(500 * time.Millisecond) != 0 {
		t.Error("Behind() of a positive sleep should be 0")
	}
}

func TestTimelineRewindKeepsLogTimeContinuous(t *testing.T) {
	clock := newFakeClock()
	tl := newTestTimeline(t, 1, clock)
	logBase := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	// One pass: events at +0s and +10s.
	tl.NextSleep(logBase)
	clock.Advance(10 * time.Second)
	tl.NextSleep(logBase.Add(10 * time.Second))

	// The capture wraps. The first event of the new pass repeats the
	// base timestamp, but virtually it happens one pass length after
	// the previous origin, so the replay keeps flowing without a 10s
	// jump backward.
	tl.Rewind()
	got := tl.NextSleep(logBase)
	if got != 0 {
		t.Errorf("NextSleep() after rewind = %v, want 0 (continuous log time)", got)
	}

	// The next event of the second pass paces normally.
	if got := tl.NextSleep(logBase.Add(4 * time.Second)); got != 4*time.Second {
		t.Errorf("NextSleep() = %v, want 4s", got)
	}
}

func TestTimelineRewindReusesDiscoveredPassLength(t *testing.T) {
	clock := newFakeClock()
	tl := newTestTimeline(t, 1, clock)
	logBase := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	tl.NextSleep(logBase)
	clock.Advance(5 * time.Second)
	tl.NextSleep(logBase.Add(5 * time.Second))

	tl.Rewind()
	if tl.logDuration != 5*time.Second {
		t.Fatalf("logDuration = %v, want 5s", tl.logDuration)
	}

	// Second pass runs its events, then wraps again. The pass length is
	// not rediscovered from the shorter second pass.
	tl.NextSleep(logBase)
	clock.Advance(5 * time.Second)
	tl.NextSleep(logBase.Add(5 * time.Second))
	tl.Rewind()

	if tl.logDuration != 5*time.Second {
		t.Errorf("logDuration after second rewind = %v, want 5s", tl.logDuration)
	}
	if got := tl.NextSleep(logBase); got != 0 {
		t.Errorf("NextSleep() on third pass = %v, want 0", got)
	}
}

func TestTimelineRewindBeforeFirstEventIsNoop(t *testing.T) {
	clock := newFakeClock()
	tl := newTestTimeline(t, 1, clock)

	tl.Rewind()

	logBase := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	if got := tl.NextSleep(logBase); got != 0 {
		t.Errorf("NextSleep() = %v, want 0", got)
	}
}
