package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "replayfire",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Capture flags
	flags.String("log_file", "", "Path to the captured request log to replay")
	flags.String("log_format", string(LogFormatSlowlog), "Capture format: 'slowlog' (Elasticsearch) or 'har'")
	flags.StringSlice("har-host", nil, "Only replay HAR entries for this host (repeatable)")
	flags.StringSlice("har-method", nil, "Only replay HAR entries with this method (repeatable)")

	// Target flags
	flags.String("host", "", "Host of the service to replay against")
	flags.Int("port", 0, "Port of the service to replay against")

	// Replay control flags
	flags.Float64("speed_multiplier", 1, "Speed multiplier - 1 is realtime, 2 replays log time twice as fast, 0.5 is half speed")
	flags.Float64("run_time_minutes", 0, "Wall-clock minutes to keep the replay running")
	flags.Duration("timeout", 0, "Per-request timeout (0 means requests run until the replay ends)")
	flags.Int("max-rps", 0, "Safety cap on dispatched requests per second (0 means uncapped)")

	// Output flags
	flags.Bool("report", false, "Print a human-readable report to stderr in addition to the JSON result")
	flags.Bool("progress", false, "Print a live progress line to stderr")
	flags.Bool("dashboard", false, "Show live terminal dashboard with replay metrics")
	flags.StringSlice("threshold", nil, "Pass/fail assertion over the final stats, e.g. 'p99<250' or 'percentage_behind<0.05' (repeatable)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("otel-endpoint", "", "OTLP endpoint for trace export (empty disables tracing)")
	flags.String("otel-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("otel-insecure", false, "Disable TLS for OTLP export")
	flags.Bool("otel-propagate", false, "Inject W3C trace context headers into replayed requests")
	flags.Float64("otel-sample-rate", 1, "Trace sampling rate between 0.0 and 1.0")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("log_file") {
		val, err := fs.GetString("log_file")
		if err != nil {
			return err
		}
		cfg.LogFile = strings.TrimSpace(val)
	}
	if fs.Changed("log_format") {
		val, err := fs.GetString("log_format")
		if err != nil {
			return err
		}
		cfg.LogFormat = LogFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("har-host") {
		val, err := fs.GetStringSlice("har-host")
		if err != nil {
			return err
		}
		cfg.HARHosts = val
	}
	if fs.Changed("har-method") {
		val, err := fs.GetStringSlice("har-method")
		if err != nil {
			return err
		}
		cfg.HARMethods = val
	}
	if fs.Changed("host") {
		val, err := fs.GetString("host")
		if err != nil {
			return err
		}
		cfg.Host = strings.TrimSpace(val)
	}
	if fs.Changed("port") {
		val, err := fs.GetInt("port")
		if err != nil {
			return err
		}
		cfg.Port = val
	}
	if fs.Changed("speed_multiplier") {
		val, err := fs.GetFloat64("speed_multiplier")
		if err != nil {
			return err
		}
		cfg.SpeedMultiplier = val
	}
	if fs.Changed("run_time_minutes") {
		val, err := fs.GetFloat64("run_time_minutes")
		if err != nil {
			return err
		}
		cfg.RunTimeMinutes = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("max-rps") {
		val, err := fs.GetInt("max-rps")
		if err != nil {
			return err
		}
		cfg.MaxRPS = val
	}
	if fs.Changed("report") {
		val, err := fs.GetBool("report")
		if err != nil {
			return err
		}
		cfg.Report = val
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("otel-endpoint") {
		val, err := fs.GetString("otel-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("otel-protocol") {
		val, err := fs.GetString("otel-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("otel-insecure") {
		val, err := fs.GetBool("otel-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("otel-propagate") {
		val, err := fs.GetBool("otel-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = val
	}
	if fs.Changed("otel-sample-rate") {
		val, err := fs.GetFloat64("otel-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}
