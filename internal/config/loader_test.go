package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromFlags(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Load([]string{
		"--log_file", "capture.log",
		"--host", "search.internal",
		"--port", "9200",
		"--speed_multiplier", "2.5",
		"--run_time_minutes", "10",
		"--timeout", "30s",
		"--max-rps", "500",
		"--report",
		"--threshold", "p99<250",
		"--threshold", "percentage_behind<0.05",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogFile != "capture.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.LogFormat != LogFormatSlowlog {
		t.Errorf("LogFormat = %q, want slowlog default", cfg.LogFormat)
	}
	if cfg.Host != "search.internal" || cfg.Port != 9200 {
		t.Errorf("target = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.SpeedMultiplier != 2.5 {
		t.Errorf("SpeedMultiplier = %g, want 2.5", cfg.SpeedMultiplier)
	}
	if cfg.RunTimeMinutes != 10 {
		t.Errorf("RunTimeMinutes = %g, want 10", cfg.RunTimeMinutes)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxRPS != 500 {
		t.Errorf("MaxRPS = %d, want 500", cfg.MaxRPS)
	}
	if !cfg.Report {
		t.Error("Report = false, want true")
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds = %v, want 2 entries", cfg.Thresholds)
	}
	if got := cfg.Budget(); got != 10*time.Minute {
		t.Errorf("Budget() = %v, want 10m", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load([]string{"--log_file", "x.log"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SpeedMultiplier != 1 {
		t.Errorf("SpeedMultiplier = %g, want 1", cfg.SpeedMultiplier)
	}
	if cfg.LogFormat != LogFormatSlowlog {
		t.Errorf("LogFormat = %q, want slowlog", cfg.LogFormat)
	}
	if cfg.Tracing.Protocol != "grpc" || cfg.Tracing.SampleRate != 1 {
		t.Errorf("Tracing defaults = %+v", cfg.Tracing)
	}
}

func TestLoadEmptyArgsShowsHelp(t *testing.T) {
	_, err := NewLoader().Load(nil)
	if !errors.Is(err, ErrHelpRequested) {
		t.Errorf("Load(nil) error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadHelpFlag(t *testing.T) {
	_, err := NewLoader().Load([]string{"--help"})
	if !errors.Is(err, ErrHelpRequested) {
		t.Errorf("Load(--help) error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadUnknownFlag(t *testing.T) {
	_, err := NewLoader().Load([]string{"--no-such-flag"})
	if err == nil || errors.Is(err, ErrHelpRequested) {
		t.Errorf("Load() with unknown flag error = %v, want parse failure", err)
	}
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := writeConfigFile(t, "replay.yaml", `
log_file: capture.log
log_format: har
host: search.internal
port: 9200
speed_multiplier: 3
run_time_minutes: 5
max_rps: 100
har_hosts:
  - shop.example.com
tracing:
  endpoint: collector:4317
  protocol: grpc
  insecure: true
  sample_rate: 0.25
  propagate: true
`)

	cfg, err := NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogFile != "capture.log" || cfg.LogFormat != LogFormatHAR {
		t.Errorf("capture = %q %q", cfg.LogFile, cfg.LogFormat)
	}
	if cfg.SpeedMultiplier != 3 || cfg.RunTimeMinutes != 5 {
		t.Errorf("pacing = %g %g", cfg.SpeedMultiplier, cfg.RunTimeMinutes)
	}
	if cfg.MaxRPS != 100 {
		t.Errorf("MaxRPS = %d, want 100", cfg.MaxRPS)
	}
	if len(cfg.HARHosts) != 1 || cfg.HARHosts[0] != "shop.example.com" {
		t.Errorf("HARHosts = %v", cfg.HARHosts)
	}
	if cfg.Tracing.Endpoint != "collector:4317" || !cfg.Tracing.Insecure {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.SampleRate != 0.25 || !cfg.Tracing.Propagate {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, "replay.yaml", `
log_file: capture.log
host: from-file
port: 9200
speed_multiplier: 3
run_time_minutes: 5
`)

	cfg, err := NewLoader().Load([]string{
		"--config", path,
		"--host", "from-flag",
		"--speed_multiplier", "8",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "from-flag" {
		t.Errorf("Host = %q, want flag to win", cfg.Host)
	}
	if cfg.SpeedMultiplier != 8 {
		t.Errorf("SpeedMultiplier = %g, want 8", cfg.SpeedMultiplier)
	}
	// Settings the flags left alone keep their file values.
	if cfg.Port != 9200 || cfg.RunTimeMinutes != 5 {
		t.Errorf("Port = %d, RunTimeMinutes = %g", cfg.Port, cfg.RunTimeMinutes)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := NewLoader().Load([]string{"--config", "/nonexistent/replay.yaml"})
	if err == nil {
		t.Error("Load() with missing config file should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		LogFile:         "capture.log",
		LogFormat:       LogFormatSlowlog,
		Host:            "localhost",
		Port:            9200,
		SpeedMultiplier: 1,
		RunTimeMinutes:  5,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() of a valid config = %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"missing log file", func(c *Config) { c.LogFile = " " }, "log_file"},
		{"bad format", func(c *Config) { c.LogFormat = "pcap" }, "log_format"},
		{"missing host", func(c *Config) { c.Host = "" }, "host"},
		{"bad port", func(c *Config) { c.Port = 0 }, "port"},
		{"huge port", func(c *Config) { c.Port = 99999 }, "port"},
		{"zero speed", func(c *Config) { c.SpeedMultiplier = 0 }, "speed_multiplier"},
		{"negative speed", func(c *Config) { c.SpeedMultiplier = -2 }, "speed_multiplier"},
		{"zero run time", func(c *Config) { c.RunTimeMinutes = 0 }, "run_time_minutes"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"negative max rps", func(c *Config) { c.MaxRPS = -1 }, "max_rps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			var vErr ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() error type = %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should mention %s", err, tt.wantSub)
			}
		})
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	err := Config{}.Validate()
	if err == nil {
		t.Fatal("Validate() of zero config should fail")
	}
	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T", err)
	}
	if len(vErr.Issues()) < 4 {
		t.Errorf("Issues() = %v, want every problem reported at once", vErr.Issues())
	}
}

func TestTracingConfigEnabled(t *testing.T) {
	if (TracingConfig{}).Enabled() {
		t.Error("Enabled() = true without an endpoint")
	}
	if (TracingConfig{Endpoint: "   "}).Enabled() {
		t.Error("Enabled() = true for a blank endpoint")
	}
	if !(TracingConfig{Endpoint: "collector:4317"}).Enabled() {
		t.Error("Enabled() = false with an endpoint")
	}
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	if (TracingConfig{}).Enabled() {
		t.Error("Enabled() = true from environment alone")
	}
}
