package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default harness config
	if cfg.Harness.Strategy != "exclusive-lock" {
		t.Errorf("Harness.Strategy = %q, want %q", cfg.Harness.Strategy, "exclusive-lock")
	}
	if cfg.Harness.Workers != 100 {
		t.Errorf("Harness.Workers = %d, want 100", cfg.Harness.Workers)
	}
	if cfg.Harness.Repetitions != 10000 {
		t.Errorf("Harness.Repetitions = %d, want 10000", cfg.Harness.Repetitions)
	}
	if cfg.Harness.WaitTimeout != 30*time.Second {
		t.Errorf("Harness.WaitTimeout = %v, want 30s", cfg.Harness.WaitTimeout)
	}
	if cfg.Harness.Batch {
		t.Error("Harness.Batch should be false by default")
	}

	// Verify default bench config
	if cfg.Bench.Trials != 5 {
		t.Errorf("Bench.Trials = %d, want 5", cfg.Bench.Trials)
	}
	if len(cfg.Bench.Strategies) != 1 || cfg.Bench.Strategies[0] != "*" {
		t.Errorf("Bench.Strategies = %v, want [*]", cfg.Bench.Strategies)
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging rotation = %d/%d, want 10/3", cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	}

	// Verify default output config
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, "text")
	}
	if cfg.Output.Color != "auto" {
		t.Errorf("Output.Color = %q, want %q", cfg.Output.Color, "auto")
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/syncbench"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "syncbench")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/syncbench/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestResolveLogDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		dir  string
		want string
	}{
		{"", ""},
		{"/var/log/syncbench", "/var/log/syncbench"},
		{"~", home},
		{"~/logs", filepath.Join(home, "logs")},
		{"relative/logs", "relative/logs"},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			l := LoggingConfig{Dir: tt.dir}
			if got := l.ResolveLogDir(); got != tt.want {
				t.Errorf("ResolveLogDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Harness.Strategy != "exclusive-lock" {
		t.Errorf("Get().Harness.Strategy = %q, want %q", cfg.Harness.Strategy, "exclusive-lock")
	}
	if cfg.Harness.WaitTimeout != 30*time.Second {
		t.Errorf("Get().Harness.WaitTimeout = %v, want 30s", cfg.Harness.WaitTimeout)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `harness:
  strategy: rwmutex
  workers: 8
  repetitions: 250
  wait_timeout: 750ms
  batch: true
bench:
  trials: 2
  strategies: ["*-lock", "channel-*"]
output:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Harness.Strategy != "rwmutex" || cfg.Harness.Workers != 8 || cfg.Harness.Repetitions != 250 {
		t.Errorf("harness = %+v", cfg.Harness)
	}
	if cfg.Harness.WaitTimeout != 750*time.Millisecond {
		t.Errorf("WaitTimeout = %v, want 750ms", cfg.Harness.WaitTimeout)
	}
	if !cfg.Harness.Batch {
		t.Error("Batch should be true")
	}
	if cfg.Bench.Trials != 2 || len(cfg.Bench.Strategies) != 2 {
		t.Errorf("bench = %+v", cfg.Bench)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want json", cfg.Output.Format)
	}
	// Unset keys keep their defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("harness.workers", -5)
	viper.Set("output.format", "xml")

	_, err := Load()
	if err == nil {
		t.Fatal("Load should fail on invalid values")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load error is %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("got %d validation errors, want 2: %v", len(verrs), verrs)
	}

	// Get falls back to defaults
	if cfg := Get(); cfg.Harness.Workers != 100 {
		t.Errorf("Get() after invalid load Workers = %d, want default 100", cfg.Harness.Workers)
	}
}
