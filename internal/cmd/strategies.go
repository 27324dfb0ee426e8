package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/syncbench/internal/strategy"
)

var strategiesCmd = &cobra.Command{
	Use:     "strategies",
	Aliases: []string{"list"},
	Short:   "List the available synchronization strategies",
	Long: `List every strategy with its properties:

  correct      the final total always equals workers × reps
  shared cell  workers mutate one counter through the strategy's guard
  concurrent   workers run at the same time rather than one after another`,
	Args: cobra.NoArgs,
	RunE: runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return newPrinter(cmd.OutOrStdout(), cfg.Output).kinds(strategy.Kinds())
}
