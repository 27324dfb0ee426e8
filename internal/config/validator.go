package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "harness.workers")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidOutputFormats returns the list of valid result formats
func ValidOutputFormats() []string {
	return []string{"text", "json", "yaml"}
}

// ValidColorModes returns the list of valid output.color values
func ValidColorModes() []string {
	return []string{"auto", "always", "never"}
}

// Upper bounds that keep a single run within memory and goroutine limits.
const (
	maxWorkers     = 1_000_000
	maxRepetitions = 1_000_000_000
	maxTrials      = 10_000
	maxLogSizeMB   = 1000
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateHarness()...)
	errors = append(errors, c.validateBench()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

// validateHarness validates the HarnessConfig
func (c *Config) validateHarness() []ValidationError {
	var errors []ValidationError

	if _, err := strategy.ParseKind(c.Harness.Strategy); err != nil {
		errors = append(errors, ValidationError{
			Field:   "harness.strategy",
			Value:   c.Harness.Strategy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(strategy.Names(), ", ")),
		})
	}

	// Zero workers or repetitions is a valid degenerate run
	if c.Harness.Workers < 0 {
		errors = append(errors, ValidationError{
			Field:   "harness.workers",
			Value:   c.Harness.Workers,
			Message: "must be non-negative",
		})
	} else if c.Harness.Workers > maxWorkers {
		errors = append(errors, ValidationError{
			Field:   "harness.workers",
			Value:   c.Harness.Workers,
			Message: fmt.Sprintf("exceeds maximum of %d", maxWorkers),
		})
	}

	if c.Harness.Repetitions < 0 {
		errors = append(errors, ValidationError{
			Field:   "harness.repetitions",
			Value:   c.Harness.Repetitions,
			Message: "must be non-negative",
		})
	} else if c.Harness.Repetitions > maxRepetitions {
		errors = append(errors, ValidationError{
			Field:   "harness.repetitions",
			Value:   c.Harness.Repetitions,
			Message: fmt.Sprintf("exceeds maximum of %d", maxRepetitions),
		})
	}

	if c.Harness.WaitTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "harness.wait_timeout",
			Value:   c.Harness.WaitTimeout,
			Message: "must be positive",
		})
	} else if c.Harness.WaitTimeout < time.Millisecond {
		errors = append(errors, ValidationError{
			Field:   "harness.wait_timeout",
			Value:   c.Harness.WaitTimeout,
			Message: "must be at least 1ms",
		})
	}

	return errors
}

// validateBench validates the BenchConfig
func (c *Config) validateBench() []ValidationError {
	var errors []ValidationError

	if c.Bench.Trials < 1 {
		errors = append(errors, ValidationError{
			Field:   "bench.trials",
			Value:   c.Bench.Trials,
			Message: "must be at least 1",
		})
	} else if c.Bench.Trials > maxTrials {
		errors = append(errors, ValidationError{
			Field:   "bench.trials",
			Value:   c.Bench.Trials,
			Message: fmt.Sprintf("exceeds maximum of %d", maxTrials),
		})
	}

	for i, pattern := range c.Bench.Strategies {
		field := fmt.Sprintf("bench.strategies[%d]", i)
		if strings.TrimSpace(pattern) == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   pattern,
				Message: "pattern cannot be empty",
			})
			continue
		}
		if _, err := glob.Compile(pattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "path contains invalid null character",
		})
	}

	return errors
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidOutputFormats(), c.Output.Format) {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
		})
	}

	if !slices.Contains(ValidColorModes(), c.Output.Color) {
		errors = append(errors, ValidationError{
			Field:   "output.color",
			Value:   c.Output.Color,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidColorModes(), ", ")),
		})
	}

	return errors
}
