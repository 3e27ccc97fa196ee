package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd lists past runs from the local history database.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past analysis runs",
	Long:  `Displays recent runs recorded in the local history database: what was analyzed, with which model, and what it cost.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if appInstance.History == nil {
			fmt.Println("Run history is disabled (history.disabled in the config).")
			return nil
		}

		runs, err := appInstance.History.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("error listing run history: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Started", "Input", "Model", "Rows", "OK", "Inc", "Fail", "Cost", "Status"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, r := range runs {
			table.Append([]string{
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.InputFile,
				r.Model,
				strconv.Itoa(r.TotalRows),
				strconv.Itoa(r.Complete),
				strconv.Itoa(r.Incomplete),
				strconv.Itoa(r.Failed),
				fmt.Sprintf("$%.4f", r.Cost),
				r.Status,
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
