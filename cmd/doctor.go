package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"triago/internal/config"
	"triago/internal/llm"
	"triago/internal/store"
)

// doctorCmd loads config on its own instead of relying on the root
// PersistentPreRunE, so a broken setup still yields a full report.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, provider client, and the run history store",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		healthy := true

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			fmt.Fprintf(w, "Configuration\t%s\n", color.RedString("failed: %v", err))
			w.Flush()
			return fmt.Errorf("configuration did not load")
		}
		fmt.Fprintf(w, "Configuration\t%s\n", color.GreenString("ok"))

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(w, "Validation\t%s\n", color.RedString("failed: %v", err))
			healthy = false
		} else {
			fmt.Fprintf(w, "Validation\t%s\n", color.GreenString("ok (%d analysis types selected)", len(cfg.Analysis.Types)))
		}

		client, err := llm.New(cmd.Context(), cfg)
		if err != nil {
			fmt.Fprintf(w, "Provider client\t%s\n", color.RedString("failed: %v", err))
			healthy = false
		} else {
			fmt.Fprintf(w, "Provider client\t%s\n", color.GreenString("ok (%s, model %s)", client.Name(), client.Model()))
		}

		switch {
		case cfg.History.Disabled:
			fmt.Fprintf(w, "Run history\t%s\n", color.YellowString("disabled"))
		default:
			history, err := store.NewHistoryStore(cfg.HistoryPath())
			if err != nil {
				fmt.Fprintf(w, "Run history\t%s\n", color.RedString("failed: %v", err))
				healthy = false
			} else {
				fmt.Fprintf(w, "Run history\t%s\n", color.GreenString("ok (%s)", history.Path()))
				history.Close()
			}
		}

		if !healthy {
			w.Flush()
			return fmt.Errorf("one or more checks failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
