package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/syncbench/internal/config"
	"github.com/Iron-Ham/syncbench/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "syncbench",
	Short: "Compare counter synchronization strategies under concurrency",
	Long: `Syncbench spawns W workers that each add 1 to a shared counter R times,
under a chosen synchronization strategy, and reports whether the final
value equals W*R.

Correct strategies must always match. The unsynchronized strategy shows
lost updates, and the deadlock strategy shows a bounded wait that gives up.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the root command. ctx is canceled on interrupt by the
// caller and reaches every harness run.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/syncbench/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-dir", "", "write syncbench.log to this directory instead of stderr")
	rootCmd.PersistentFlags().StringP("format", "o", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().String("color", "", "color output: auto, always, never")
}

// globalFlags maps config keys to the persistent root flags.
var globalFlags = map[string]string{
	"config":        "config",
	"output.format": "format",
	"output.color":  "color",
	"logging.level": "log-level",
	"logging.dir":   "log-dir",
}

func initConfig() {
	for key, name := range globalFlags {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name))
	}

	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SYNCBENCH")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SYNCBENCH_HARNESS_WAIT_TIMEOUT for harness.wait_timeout
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig returns the merged configuration, or every validation problem
// at once so the user can fix them in one pass.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// createLogger builds the run logger from cfg. Logging failures never stop a
// run; they fall back to a no-op logger with a warning on stderr.
func createLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	logger, err := logging.NewLoggerWithRotation(cfg.Logging.ResolveLogDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}
