package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/replayfire/internal/config"
	"github.com/torosent/replayfire/internal/dashboard"
	"github.com/torosent/replayfire/internal/httpclient"
	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/output"
	"github.com/torosent/replayfire/internal/replay"
	"github.com/torosent/replayfire/internal/source"
	"github.com/torosent/replayfire/internal/threshold"
	"github.com/torosent/replayfire/internal/tracing"
)

const progressInterval = time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.Parse(cfg.Thresholds)
	if err != nil {
		return err
	}

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	cycler, err := source.NewCycler(src)
	if err != nil {
		return err
	}

	timeline, err := replay.NewTimeline(cfg.SpeedMultiplier)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: tracing shutdown: %v\n", err)
		}
	}()

	client := httpclient.NewClient(cfg.Timeout)
	requester, err := httpclient.NewRequester(client, cfg.Host, cfg.Port)
	if err != nil {
		return err
	}
	requester.PropagateTrace = provider.Enabled() && provider.ShouldPropagate()

	transport := tracing.WrapTransport(requester, provider)

	accumulator := metrics.NewAccumulator()
	dispatcher := replay.NewDispatcher(transport, accumulator)

	controller, err := replay.NewController(replay.Options{
		Source:     cycler,
		Timeline:   timeline,
		Dispatcher: dispatcher,
		Budget:     cfg.Budget(),
		MaxRPS:     cfg.MaxRPS,
	})
	if err != nil {
		return err
	}

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(controller, accumulator, dashboard.RunConfig{
			LogFile:         cfg.LogFile,
			Target:          fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			SpeedMultiplier: cfg.SpeedMultiplier,
			RunTimeMinutes:  cfg.RunTimeMinutes,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
		defer dash.Stop()
	}

	var progress *output.ProgressReporter
	if cfg.Progress && !cfg.Dashboard {
		progress = output.NewProgressReporter(controller, accumulator, progressInterval, os.Stderr)
		progress.Start()
		defer func() {
			progress.Stop()
			fmt.Fprintln(os.Stderr)
		}()
	}

	stats, runErr := controller.Run(ctx)

	result := output.Result{
		RunInformation:         stats,
		AccumulatorInformation: accumulator.Summary(),
	}

	if err := output.PrintJSONResult(os.Stdout, result); err != nil {
		return err
	}
	if cfg.Report {
		output.PrintReport(os.Stderr, result)
	}

	if len(thresholds) > 0 {
		evaluator := threshold.NewEvaluator(thresholds)
		results := evaluator.Evaluate(result)
		for _, r := range results {
			fmt.Fprintln(os.Stderr, r.Message)
		}
		if !threshold.AllPassed(results) {
			return errors.New("one or more thresholds failed")
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func newSource(cfg *config.Config) (source.Source, error) {
	switch cfg.LogFormat {
	case config.LogFormatHAR:
		return source.NewHARSource(cfg.LogFile, source.HARFilter{
			IncludeHosts:   cfg.HARHosts,
			IncludeMethods: cfg.HARMethods,
		})
	case config.LogFormatSlowlog, "":
		return source.NewSlowlogSource(cfg.LogFile)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}
}
