package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"triago/internal/app"
	"triago/internal/clix"
	"triago/internal/job"
	"triago/internal/llm"
	"triago/internal/models"
	"triago/internal/table"
)

var (
	analyzeTypes        []string
	analyzeColumns      string
	analyzeIDColumn     string
	analyzeOutput       string
	analyzeModel        string
	analyzeBatchSize    int
	analyzeConcurrency  int
	analyzeLimit        int
	analyzeExplanations bool
	analyzeIncludeRaw   bool
	analyzeDryRun       bool
	analyzeYes          bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input.csv]",
	Short: "Analyze a ticket file",
	Long: `Reads a CSV of help desk tickets, sends them to the configured model in
batches, and writes a copy of the file with one extra column per analysis
type. Without an input argument the current directory is searched for a
single CSV file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := applyAnalyzeFlags(cmd, a); err != nil {
			return err
		}
		if len(a.Config.Analysis.Types) == 0 {
			return fmt.Errorf("no analysis types selected (use --types or set analysis.types in the config; 'triago types' lists them)")
		}

		inputPath, err := resolveInput(args)
		if err != nil {
			return err
		}
		tbl, err := table.ReadFile(inputPath)
		if err != nil {
			return err
		}
		if analyzeLimit > 0 && tbl.Len() > analyzeLimit {
			fmt.Printf("Limiting run to the first %d of %d tickets.\n", analyzeLimit, tbl.Len())
			tbl.Rows = tbl.Rows[:analyzeLimit]
		}

		columns := clix.ParseColumns(cmd.Flags())
		printOverview(a, tbl, inputPath, columns)

		if analyzeDryRun {
			return printPromptPreview(a, tbl, columns)
		}
		if !analyzeYes && !clix.Confirm(os.Stdin, os.Stdout, "Proceed with the analysis?") {
			fmt.Println("Aborted.")
			return nil
		}

		report, outPath, err := a.AnalyzeTable(cmd.Context(), tbl, filepath.Base(inputPath), app.RunOptions{
			IDColumn:   analyzeIDColumn,
			Columns:    columns,
			OutputPath: analyzeOutput,
		})
		if err != nil {
			return err
		}

		printSummary(report, outPath)
		return nil
	},
}

// applyAnalyzeFlags overrides the loaded configuration with explicitly set
// flags and re-validates the result. A model override rebuilds the client.
func applyAnalyzeFlags(cmd *cobra.Command, a *app.App) error {
	flags := cmd.Flags()
	cfg := a.Config

	if flags.Changed("types") {
		cfg.Analysis.Types = analyzeTypes
	}
	if flags.Changed("explanations") {
		cfg.Analysis.IncludeExplanations = analyzeExplanations
	}
	if flags.Changed("include-raw") {
		cfg.Output.IncludeRaw = analyzeIncludeRaw
	}
	if flags.Changed("batch-size") {
		cfg.Batch.Size = analyzeBatchSize
	}
	if flags.Changed("concurrency") {
		cfg.Batch.Concurrency = analyzeConcurrency
	}
	if flags.Changed("model") {
		cfg.Model = analyzeModel
		client, err := llm.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to build client for model %s: %w", analyzeModel, err)
		}
		a.Client = client
	}
	return cfg.Validate()
}

// resolveInput picks the file to analyze: the positional argument when given,
// otherwise the single CSV file in the working directory.
func resolveInput(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	files, err := table.DiscoverInputs(".")
	if err != nil {
		return "", fmt.Errorf("failed to scan for input files: %w", err)
	}
	switch len(files) {
	case 0:
		return "", fmt.Errorf("no CSV files found in the current directory; pass an input path")
	case 1:
		fmt.Printf("Using %s.\n", files[0])
		return files[0], nil
	default:
		return "", fmt.Errorf("multiple CSV files found (%s); pass the one to analyze", strings.Join(files, ", "))
	}
}

func printOverview(a *app.App, tbl *table.Table, inputPath string, columns []string) {
	idColumn := analyzeIDColumn
	if idColumn == "" {
		idColumn = tbl.DetectIDColumn() + " (detected)"
	}
	columnsDisplay := strings.Join(columns, ", ")
	if columnsDisplay == "" {
		columnsDisplay = "all except the identifier"
	}
	explanations := "no"
	if a.Config.Analysis.IncludeExplanations {
		explanations = "yes"
	}
	batches := (tbl.Len() + a.Config.Batch.Size - 1) / a.Config.Batch.Size

	w := tablewriter.NewWriter(os.Stdout)
	w.SetBorder(false)
	w.SetAlignment(tablewriter.ALIGN_LEFT)
	w.Append([]string{"Input", fmt.Sprintf("%s (%d tickets)", inputPath, tbl.Len())})
	w.Append([]string{"Identifier column", idColumn})
	w.Append([]string{"Ticket columns", columnsDisplay})
	w.Append([]string{"Analysis types", strings.Join(a.Config.Analysis.Types, ", ")})
	w.Append([]string{"Explanations", explanations})
	w.Append([]string{"Model", fmt.Sprintf("%s (%s)", a.Config.Model, a.Config.Provider)})
	w.Append([]string{"Batches", fmt.Sprintf("%d of up to %d tickets, %d in flight", batches, a.Config.Batch.Size, a.Config.Batch.Concurrency)})
	w.Render()
}

// printPromptPreview shows the first batch's prompt without calling the model.
func printPromptPreview(a *app.App, tbl *table.Table, columns []string) error {
	runner, err := job.NewRunner(a.Config, a.Client, nil)
	if err != nil {
		return err
	}
	text, err := runner.Preview(job.Request{Table: tbl, IDColumn: analyzeIDColumn, Columns: columns})
	if err != nil {
		return err
	}
	fmt.Println("\nPrompt for the first batch:")
	fmt.Println("---------------------------")
	fmt.Println(text)
	return nil
}

func printSummary(report *job.Report, outPath string) {
	fmt.Println()
	w := tablewriter.NewWriter(os.Stdout)
	w.SetBorder(false)
	w.SetAlignment(tablewriter.ALIGN_LEFT)
	w.Append([]string{"Status", statusDisplay(report.Status)})
	w.Append([]string{"Complete", color.GreenString("%d", report.Complete)})
	w.Append([]string{"Incomplete", color.YellowString("%d", report.Incomplete)})
	w.Append([]string{"Failed", color.RedString("%d", report.Failed)})
	if len(report.FailedBatches) > 0 {
		w.Append([]string{"Failed batches", color.RedString("%v", report.FailedBatches)})
	}
	w.Append([]string{"Tokens", fmt.Sprintf("%d prompt, %d completion", report.Usage.PromptTokens, report.Usage.CompletionTokens)})
	w.Append([]string{"Cost", fmt.Sprintf("$%.6f", report.Usage.CostUSD)})
	w.Append([]string{"Duration", report.Duration.Round(10 * time.Millisecond).String()})
	w.Append([]string{"Output", outPath})
	w.Render()
}

func statusDisplay(status string) string {
	switch status {
	case models.JobStatusWritten, models.JobStatusMerged:
		return color.GreenString(status)
	case models.JobStatusFailed:
		return color.RedString(status)
	default:
		return status
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVarP(&analyzeTypes, "types", "t", nil, "Analysis types to run (comma separated; see 'triago types')")
	analyzeCmd.Flags().StringVarP(&analyzeColumns, "columns", "c", "", "Ticket columns to send (comma separated, default all except the identifier)")
	analyzeCmd.Flags().StringVar(&analyzeIDColumn, "id-column", "", "Identifier column (default auto-detected)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Output file path (default versioned name under the output directory)")
	analyzeCmd.Flags().StringVarP(&analyzeModel, "model", "m", "", "Model override")
	analyzeCmd.Flags().IntVar(&analyzeBatchSize, "batch-size", 0, "Tickets per model request")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 0, "Batches in flight at once")
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "Only analyze the first N tickets")
	analyzeCmd.Flags().BoolVar(&analyzeExplanations, "explanations", false, "Request a brief explanation per analysis value")
	analyzeCmd.Flags().BoolVar(&analyzeIncludeRaw, "include-raw", false, "Add a raw_response column with the model's reply text")
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "Print the first batch's prompt and exit without calling the model")
	analyzeCmd.Flags().BoolVarP(&analyzeYes, "yes", "y", false, "Skip the confirmation prompt")
}
