// Package app wires configuration, the model client stack, cost tracking,
// and run history into one object the CLI and web front share.
package app

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"triago/internal/config"
	"triago/internal/costtracker"
	"triago/internal/job"
	"triago/internal/llm"
	"triago/internal/models"
	"triago/internal/store"
	"triago/internal/table"
)

type App struct {
	Config  *config.Config
	Client  llm.Client
	Tracker costtracker.Tracker
	History store.RunStore // nil when history is disabled or unavailable
}

// New validates cfg and builds the provider client and its wrapper stack.
// An unusable history database only logs a warning; analysis still runs.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Client: client, Tracker: costtracker.New(cfg.Pricing)}
	if !cfg.History.Disabled {
		history, err := store.NewHistoryStore(cfg.HistoryPath())
		if err != nil {
			log.Warnf("Run history unavailable: %v", err)
		} else {
			app.History = history
		}
	}
	return app, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.History != nil {
		a.History.Close()
	}
}

// RunOptions carries per-invocation choices.
type RunOptions struct {
	IDColumn string
	Columns  []string
	// OutputPath overrides the versioned name under the configured output
	// directory.
	OutputPath string
}

// AnalyzeFile runs the full pipeline over one CSV file and returns the
// report and the written output path.
func (a *App) AnalyzeFile(ctx context.Context, inputPath string, opts RunOptions) (*job.Report, string, error) {
	tbl, err := table.ReadFile(inputPath)
	if err != nil {
		return nil, "", err
	}
	return a.AnalyzeTable(ctx, tbl, filepath.Base(inputPath), opts)
}

// AnalyzeTable runs the pipeline over an already-loaded table (the web form
// uploads land here). The run is recorded in history either way.
func (a *App) AnalyzeTable(ctx context.Context, tbl *table.Table, inputName string, opts RunOptions) (*job.Report, string, error) {
	started := time.Now()
	runner, err := job.NewRunner(a.Config, a.Client, a.Tracker)
	if err != nil {
		return nil, "", err
	}

	report, runErr := runner.Run(ctx, job.Request{Table: tbl, IDColumn: opts.IDColumn, Columns: opts.Columns})
	outPath := ""
	if runErr == nil {
		outPath = opts.OutputPath
		if outPath == "" {
			outPath, err = table.VersionedFilename(a.Config.Output.Dir, a.Config.Output.Prefix, a.Config.Model)
			if err != nil {
				return report, "", err
			}
		}
		if err := tbl.WriteFile(outPath); err != nil {
			return report, "", err
		}
		report.Status = models.JobStatusWritten
		log.Infof("Output written to %s", outPath)
	}

	a.recordRun(ctx, report, inputName, outPath, started)
	if runErr != nil {
		return report, "", runErr
	}
	return report, outPath, nil
}

func (a *App) recordRun(ctx context.Context, report *job.Report, inputName, outputPath string, started time.Time) {
	if a.History == nil || report == nil {
		return
	}
	finished := started.Add(report.Duration)
	run := &models.RunRecord{
		ID:               report.JobID,
		StartedAt:        started,
		FinishedAt:       &finished,
		InputFile:        inputName,
		OutputFile:       outputPath,
		Provider:         a.Client.Name(),
		Model:            a.Client.Model(),
		AnalysisTypes:    strings.Join(a.Config.Analysis.Types, ","),
		TotalRows:        report.TotalRows,
		Complete:         report.Complete,
		Incomplete:       report.Incomplete,
		Failed:           report.Failed,
		PromptTokens:     report.Usage.PromptTokens,
		CompletionTokens: report.Usage.CompletionTokens,
		Cost:             report.Usage.CostUSD,
		Status:           report.Status,
	}
	if err := a.History.RecordRun(ctx, run); err != nil {
		log.Errorf("Failed to record run history: %v", err)
	}
}
