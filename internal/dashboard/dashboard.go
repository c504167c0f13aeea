// Package dashboard renders a live terminal UI for a running replay.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/replay"
)

// RunConfig holds replay parameters for display.
type RunConfig struct {
	LogFile         string
	Target          string // host:port
	SpeedMultiplier float64
	RunTimeMinutes  float64
}

// Dashboard renders live replay metrics with termui.
type Dashboard struct {
	controller   *replay.Controller
	accumulator  *metrics.Accumulator
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid        *ui.Grid
	summaryPara *widgets.Paragraph
	lagSparkle  *widgets.SparklineGroup
	statusList  *widgets.List
	latencyPara *widgets.Paragraph
	lagHistory  []float64
	runConfig   RunConfig
}

// New creates a Dashboard. shutdownFunc is invoked when the user quits
// the UI with q or Ctrl-C.
func New(controller *replay.Controller, accumulator *metrics.Accumulator, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		controller:   controller,
		accumulator:  accumulator,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		lagHistory:   make([]float64, 0, 100),
		runConfig:    cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Replay"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	sparkline := widgets.NewSparkline()
	sparkline.Title = "Behind (s)"
	sparkline.LineColor = ui.ColorRed
	sparkline.Data = []float64{0}

	d.lagSparkle = widgets.NewSparklineGroup(sparkline)
	d.lagSparkle.Title = "Schedule Lag"
	d.lagSparkle.BorderStyle.Fg = ui.ColorCyan

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Counts"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.25,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.35,
			ui.NewCol(1.0, d.lagSparkle),
		),
		ui.NewRow(0.40,
			ui.NewCol(0.5, d.statusList),
			ui.NewCol(0.5, d.latencyPara),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the controller and accumulator.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.controller.Snapshot()
	summary := d.accumulator.Summary()

	d.summaryPara.Text = fmt.Sprintf(
		"Log: %s\nTarget: %s @ %gx speed\nState: %s | Elapsed: %s of %.1f min\nSent: %d | In Flight: %d",
		d.runConfig.LogFile,
		d.runConfig.Target,
		d.runConfig.SpeedMultiplier,
		snap.State,
		snap.Elapsed.Round(time.Second),
		d.runConfig.RunTimeMinutes,
		snap.Sent,
		snap.Outstanding,
	)

	behind := snap.Behind.Seconds()
	d.lagHistory = append(d.lagHistory, behind)
	if len(d.lagHistory) > 100 {
		d.lagHistory = d.lagHistory[1:]
	}
	d.lagSparkle.Sparklines[0].Data = d.lagHistory
	d.lagSparkle.Title = fmt.Sprintf("Schedule Lag | Behind: %.1fs", behind)

	rows := make([]string, 0, len(summary.CompletionStatusCounts)+1)
	codes := make([]string, 0, len(summary.CompletionStatusCounts))
	for code := range summary.CompletionStatusCounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		rows = append(rows, fmt.Sprintf("%s: %d", code, summary.CompletionStatusCounts[code]))
	}
	if summary.TransportFailures > 0 {
		rows = append(rows, fmt.Sprintf("transport failures: %d", summary.TransportFailures))
	}
	if len(rows) == 0 {
		rows = []string{"Awaiting data"}
	}
	d.statusList.Rows = rows

	d.latencyPara.Text = fmt.Sprintf(
		"Min: %.2fms\nMean: %.2fms\nP50: %.2fms\nP90: %.2fms\nP99: %.2fms",
		summary.MinLatencyMs,
		summary.MeanLatencyMs,
		summary.P50LatencyMs,
		summary.P90LatencyMs,
		summary.P99LatencyMs,
	)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}
