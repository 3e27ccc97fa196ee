package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"triago/internal/analysis"
)

// typesCmd lists the analysis catalog. It needs no provider configuration,
// so root's PersistentPreRunE skips app initialization for it.
var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the available analysis types",
	Long:  `Shows every analysis type the model can be asked to run, grouped the way the web form groups them. Closed answer sets are listed next to their type.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, group := range analysis.Groups() {
			fmt.Fprintln(w, color.New(color.Bold).Sprint(group))
			for _, d := range analysis.ByGroup(group) {
				answers := "free text"
				if len(d.Answers) > 0 {
					answers = strings.Join(d.Answers, " | ")
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\n", d.Key(), d.Label(), answers)
			}
			fmt.Fprintln(w)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
