package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/syncbench/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify syncbench configuration",
	Long: `View or modify syncbench configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  syncbench config set harness.strategy rw-lock
  syncbench config set harness.wait_timeout 5s
  syncbench config set bench.trials 20

Valid keys:
  harness.strategy      - Strategy for 'syncbench run'
  harness.workers       - Number of concurrent workers
  harness.repetitions   - Increments per worker
  harness.wait_timeout  - Deadlock timeout (e.g. 30s)
  harness.batch         - One call per worker instead of one per increment (true/false)
  bench.trials          - Runs per strategy for 'syncbench bench'
  logging.enabled       - Enable structured logging (true/false)
  logging.level         - debug, info, warn, error
  logging.dir           - Log directory; empty logs to stderr
  output.format         - text, json, yaml
  output.color          - auto, always, never`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/syncbench/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configInitForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if cfg.Output.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "# Config file: (none - using defaults)\n")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// settableKeys maps the keys accepted by 'config set' to their value type.
var settableKeys = map[string]string{
	"harness.strategy":     "string",
	"harness.workers":      "int",
	"harness.repetitions":  "int",
	"harness.wait_timeout": "duration",
	"harness.batch":        "bool",
	"bench.trials":         "int",
	"logging.enabled":      "bool",
	"logging.level":        "string",
	"logging.dir":          "string",
	"output.format":        "string",
	"output.color":         "string",
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'syncbench config set --help' to see valid keys", key)
	}

	var typedValue any
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = n
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected a duration such as 30s", key)
		}
		typedValue = d.String()
	}

	viper.Set(key, typedValue)

	// Range and enum checks live in the validator
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// defaultConfigFile renders the commented config written by 'config init'.
func defaultConfigFile() string {
	d := config.Default()
	return fmt.Sprintf(`# syncbench configuration
# Flags and SYNCBENCH_* environment variables override these values.

# A single run: W workers each add 1 to a counter R times
harness:
  # unsynchronized, exclusive-lock, rw-lock, channel-rendezvous,
  # channel-relay, sequential-join, deadlock
  strategy: %s
  workers: %d
  repetitions: %d
  # How long to wait for workers before reporting a suspected deadlock
  wait_timeout: %s
  # Apply each worker's increments in one call instead of one per increment
  batch: %t

# 'syncbench bench' runs every selected strategy several times
bench:
  trials: %d
  # Names, aliases or glob patterns. Wildcards never select deadlock.
  strategies: [%s]

logging:
  enabled: %t
  # debug, info, warn, error
  level: %s
  # Directory for syncbench.log; empty logs to stderr
  dir: "%s"
  max_size_mb: %d
  max_backups: %d
  compress: %t

output:
  # text, json, yaml
  format: %s
  # auto, always, never
  color: %s
`,
		d.Harness.Strategy, d.Harness.Workers, d.Harness.Repetitions, d.Harness.WaitTimeout, d.Harness.Batch,
		d.Bench.Trials, quoteAll(d.Bench.Strategies),
		d.Logging.Enabled, d.Logging.Level, d.Logging.Dir, d.Logging.MaxSizeMB, d.Logging.MaxBackups, d.Logging.Compress,
		d.Output.Format, d.Output.Color,
	)
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return strings.Join(quoted, ", ")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists at %s\nUse 'syncbench config set' to modify values or --force to overwrite", configFile)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize syncbench's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", config.ConfigFile())
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: SYNCBENCH_* (e.g., SYNCBENCH_HARNESS_WORKERS)")
	return nil
}
