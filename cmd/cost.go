package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// costCmd sums token usage and cost over every recorded run.
var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Show total token usage and cost across recorded runs",
	Long:  `Calculates and displays the total cost, prompt tokens, and completion tokens across all runs in the history database.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if appInstance.History == nil {
			return fmt.Errorf("run history is disabled; cost totals are unavailable")
		}

		totals, err := appInstance.History.TotalUsage(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get cost summary: %w", err)
		}

		fmt.Println("Usage Cost Summary:")
		fmt.Println("-------------------")
		fmt.Printf("Runs:              %d\n", totals.Runs)
		fmt.Printf("Tickets analyzed:  %d\n", totals.TotalRows)
		fmt.Printf("Prompt tokens:     %d\n", totals.PromptTokens)
		fmt.Printf("Completion tokens: %d\n", totals.CompletionTokens)
		fmt.Printf("Total cost:        $%.6f\n", totals.Cost)
		fmt.Println("-------------------")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(costCmd)
}
