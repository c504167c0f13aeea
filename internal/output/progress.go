package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/replay"
)

// ProgressReporter displays real-time replay progress.
type ProgressReporter struct {
	controller  *replay.Controller
	accumulator *metrics.Accumulator
	ticker      *time.Ticker
	done        chan struct{}
	finished    chan struct{}
	writer      io.Writer
	active      int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(controller *replay.Controller, accumulator *metrics.Accumulator, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		controller:  controller,
		accumulator: accumulator,
		ticker:      time.NewTicker(interval),
		done:        make(chan struct{}),
		finished:    make(chan struct{}),
		writer:      writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			snap := p.controller.Snapshot()
			responses, failures := p.accumulator.Completed()
			line := fmt.Sprintf("\r[%s] Sent: %d | Completed: %d | Failures: %d | In Flight: %d",
				snap.State, snap.Sent, responses, failures, snap.Outstanding)
			if snap.Behind > 0 {
				line += fmt.Sprintf(" | Behind: %.1fs", snap.Behind.Seconds())
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
