package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete syncbench configuration
type Config struct {
	Harness HarnessConfig `mapstructure:"harness" yaml:"harness" json:"harness"`
	Bench   BenchConfig   `mapstructure:"bench" yaml:"bench" json:"bench"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
}

// HarnessConfig controls a single run
type HarnessConfig struct {
	// Strategy is the synchronization discipline to exercise (default: "exclusive-lock").
	// Aliases accepted by strategy.ParseKind work here too.
	Strategy string `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	// Workers is the number of concurrent workers W (default: 100)
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
	// Repetitions is the number of increments each worker performs R (default: 10000)
	Repetitions int `mapstructure:"repetitions" yaml:"repetitions" json:"repetitions"`
	// WaitTimeout bounds how long the coordinator waits for completion (default: 30s)
	WaitTimeout time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout" json:"wait_timeout"`
	// Batch has each worker apply its R increments in one call instead of R calls
	Batch bool `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// BenchConfig controls the multi-strategy trial suite
type BenchConfig struct {
	// Trials is how many times each strategy is run (default: 5)
	Trials int `mapstructure:"trials" yaml:"trials" json:"trials"`
	// Strategies are glob patterns over strategy names (default: ["*"])
	Strategies []string `mapstructure:"strategies" yaml:"strategies" json:"strategies"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	// Dir is where syncbench.log is written. Empty logs to stderr.
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	// Compress gzips rotated backups
	Compress bool `mapstructure:"compress" yaml:"compress" json:"compress"`
}

// OutputConfig controls how results are rendered
type OutputConfig struct {
	// Format is "text", "json" or "yaml" (default: "text")
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	// Color is "auto", "always" or "never" (default: "auto")
	Color string `mapstructure:"color" yaml:"color" json:"color"`
}

// ResolveLogDir expands a leading ~ in Dir.
func (l *LoggingConfig) ResolveLogDir() string {
	path := l.Dir
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Harness: HarnessConfig{
			Strategy:    "exclusive-lock",
			Workers:     100,
			Repetitions: 10000,
			WaitTimeout: 30 * time.Second,
			Batch:       false,
		},
		Bench: BenchConfig{
			Trials:     5,
			Strategies: []string{"*"},
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Harness defaults
	viper.SetDefault("harness.strategy", defaults.Harness.Strategy)
	viper.SetDefault("harness.workers", defaults.Harness.Workers)
	viper.SetDefault("harness.repetitions", defaults.Harness.Repetitions)
	viper.SetDefault("harness.wait_timeout", defaults.Harness.WaitTimeout)
	viper.SetDefault("harness.batch", defaults.Harness.Batch)

	// Bench defaults
	viper.SetDefault("bench.trials", defaults.Bench.Trials)
	viper.SetDefault("bench.strategies", defaults.Bench.Strategies)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Output defaults
	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.color", defaults.Output.Color)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "syncbench")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".syncbench"
	}
	return filepath.Join(home, ".config", "syncbench")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
