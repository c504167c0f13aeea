package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// LogFormat selects the capture format of the replayed log file.
type LogFormat string

const (
	LogFormatSlowlog LogFormat = "slowlog"
	LogFormatHAR     LogFormat = "har"
)

// Config holds the full replay configuration, merged from a config file
// and command-line flags.
type Config struct {
	LogFile         string        `mapstructure:"log_file"`
	LogFormat       LogFormat     `mapstructure:"log_format"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	SpeedMultiplier float64       `mapstructure:"speed_multiplier"`
	RunTimeMinutes  float64       `mapstructure:"run_time_minutes"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRPS          int           `mapstructure:"max_rps"`
	Report          bool          `mapstructure:"report"`
	Progress        bool          `mapstructure:"progress"`
	Dashboard       bool          `mapstructure:"dashboard"`
	Thresholds      []string      `mapstructure:"thresholds"`
	HARHosts        []string      `mapstructure:"har_hosts"`
	HARMethods      []string      `mapstructure:"har_methods"`
	ConfigFile      string        `mapstructure:"-"`
	Tracing         TracingConfig `mapstructure:"tracing"`
}

// TracingConfig configures OTLP span export for dispatched requests.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether tracing should be initialized at all.
// Only an explicit endpoint turns the span pipeline on.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers are injected into
// replayed requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

// Budget returns the wall-clock run budget.
func (c Config) Budget() time.Duration {
	return time.Duration(c.RunTimeMinutes * float64(time.Minute))
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if strings.TrimSpace(c.LogFile) == "" {
		issues = append(issues, "log_file is required (use --help for usage information)")
	}
	switch c.LogFormat {
	case LogFormatSlowlog, LogFormatHAR:
	default:
		issues = append(issues, fmt.Sprintf("log_format must be %q or %q, got %q", LogFormatSlowlog, LogFormatHAR, c.LogFormat))
	}
	if strings.TrimSpace(c.Host) == "" {
		issues = append(issues, "host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		issues = append(issues, fmt.Sprintf("port must be in 1..65535, got %d", c.Port))
	}
	if c.SpeedMultiplier <= 0 {
		issues = append(issues, fmt.Sprintf("speed_multiplier must be positive, got %g", c.SpeedMultiplier))
	}
	if c.RunTimeMinutes <= 0 {
		issues = append(issues, fmt.Sprintf("run_time_minutes must be positive, got %g", c.RunTimeMinutes))
	}
	if c.Timeout < 0 {
		issues = append(issues, fmt.Sprintf("timeout cannot be negative, got %s", c.Timeout))
	}
	if c.MaxRPS < 0 {
		issues = append(issues, fmt.Sprintf("max_rps cannot be negative, got %d", c.MaxRPS))
	}
	if c.Dashboard && c.Progress {
		warnings = append(warnings, "WARNING: --dashboard replaces the progress line; --progress is ignored.")
	}
	if c.SpeedMultiplier > 100 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High speed multiplier configured (%gx). Ensure you have authorization to test the target system.", c.SpeedMultiplier))
	}

	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
