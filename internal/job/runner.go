package job

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"triago/internal/analysis"
	"triago/internal/config"
	"triago/internal/costtracker"
	"triago/internal/llm"
	"triago/internal/merge"
	"triago/internal/models"
	"triago/internal/parse"
	"triago/internal/preprocess"
	"triago/internal/prompt"
	"triago/internal/table"
)

// Runner drives batches through the prompt/complete/parse cycle and merges
// the results. One Runner handles one run at a time.
type Runner struct {
	Client       llm.Client
	Tracker      costtracker.Tracker
	Defs         []analysis.Definition
	Explanations bool
	IncludeRaw   bool
	BatchSize    int
	Concurrency  int
	PreOpts      preprocess.Options
}

// Request names the table to analyze. An empty IDColumn is auto-detected;
// empty Columns means every column except the identifier.
type Request struct {
	Table    *table.Table
	IDColumn string
	Columns  []string
}

// Report summarizes a finished (or failed) run.
type Report struct {
	JobID         uuid.UUID
	Status        string
	Batches       int
	FailedBatches []int
	TotalRows     int
	Complete      int
	Incomplete    int
	Failed        int
	Duration      time.Duration
	Usage         costtracker.Summary
	Err           string
}

// NewRunner builds a Runner from configuration.
func NewRunner(cfg *config.Config, client llm.Client, tracker costtracker.Tracker) (*Runner, error) {
	defs, err := analysis.ParseList(cfg.Analysis.Types)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no analysis types selected", models.ErrConfiguration)
	}
	if cfg.Batch.Size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", models.ErrConfiguration, cfg.Batch.Size)
	}
	concurrency := cfg.Batch.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if tracker == nil {
		tracker = costtracker.Noop()
	}
	return &Runner{
		Client:       client,
		Tracker:      tracker,
		Defs:         defs,
		Explanations: cfg.Analysis.IncludeExplanations,
		IncludeRaw:   cfg.Output.IncludeRaw,
		BatchSize:    cfg.Batch.Size,
		Concurrency:  concurrency,
		PreOpts: preprocess.Options{
			Redact:         cfg.Preprocess.Redact,
			MaxFieldLength: cfg.Preprocess.MaxFieldLength,
		},
	}, nil
}

// Run analyzes req.Table in place. Batches fail independently: a batch whose
// model call runs out of retries (or is rejected) only marks its own tickets
// failed. Authentication and configuration errors abort the whole run, and
// the returned report then has Status failed alongside the error.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	report := &Report{JobID: uuid.New(), Status: models.JobStatusPending, TotalRows: req.Table.Len()}
	fail := func(err error) (*Report, error) {
		report.Status = models.JobStatusFailed
		report.Err = err.Error()
		report.Duration = time.Since(start)
		return report, err
	}

	if len(r.Defs) == 0 {
		return fail(fmt.Errorf("%w: no analysis types selected", models.ErrConfiguration))
	}

	report.Status = models.JobStatusBatching
	batches, idColumn, err := r.resolveBatches(req)
	if err != nil {
		return fail(err)
	}
	report.Batches = len(batches)
	log.Infof("Job %s: %d tickets in %d batches (size %d, concurrency %d)",
		report.JobID, req.Table.Len(), len(batches), r.BatchSize, r.Concurrency)

	report.Status = models.JobStatusSubmitting
	results := make(map[string]models.AnalysisResult, req.Table.Len())
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.Concurrency)
	for _, batch := range batches {
		batch := batch
		eg.Go(func() error {
			batchStart := time.Now()
			res, err := r.processBatch(egCtx, batch)
			if err != nil {
				if errors.Is(err, models.ErrAuthentication) {
					return err
				}
				log.Errorf("Batch %d/%d failed: %v", batch.Index, len(batches), err)
				res = failedResults(batch, err)
				mu.Lock()
				report.FailedBatches = append(report.FailedBatches, batch.Index)
				mu.Unlock()
			} else {
				log.Infof("Batch %d/%d done (%d tickets in %s)",
					batch.Index, len(batches), len(batch.Tickets), time.Since(batchStart).Round(time.Millisecond))
			}
			mu.Lock()
			for id, ar := range res {
				results[id] = ar
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fail(err)
	}
	sort.Ints(report.FailedBatches)

	report.Status = models.JobStatusParsing
	if err := merge.Apply(req.Table, results, r.Defs, merge.Options{
		IDColumn:     idColumn,
		Explanations: r.Explanations,
		IncludeRaw:   r.IncludeRaw,
	}); err != nil {
		return fail(err)
	}
	report.Status = models.JobStatusMerged

	for i := 0; i < req.Table.Len(); i++ {
		switch req.Table.Get(i, merge.StatusColumn) {
		case models.ResultStatusComplete:
			report.Complete++
		case models.ResultStatusIncomplete:
			report.Incomplete++
		default:
			report.Failed++
		}
	}
	report.Duration = time.Since(start)
	report.Usage = r.Tracker.Summary()
	log.Infof("Job %s merged: %d complete, %d incomplete, %d failed in %s",
		report.JobID, report.Complete, report.Incomplete, report.Failed, report.Duration.Round(time.Millisecond))
	return report, nil
}

// resolveBatches applies identifier detection and column defaulting, runs
// every row through preprocessing, and partitions the tickets.
func (r *Runner) resolveBatches(req Request) ([]models.Batch, string, error) {
	idColumn := req.IDColumn
	if idColumn == "" {
		idColumn = req.Table.DetectIDColumn()
	}
	columns := req.Columns
	if len(columns) == 0 {
		for _, c := range req.Table.Columns {
			if c != idColumn {
				columns = append(columns, c)
			}
		}
	}
	for _, c := range columns {
		if !req.Table.HasColumn(c) {
			return nil, "", fmt.Errorf("%w: unknown column %q", models.ErrConfiguration, c)
		}
	}

	tickets := make([]models.Ticket, 0, req.Table.Len())
	for i := 0; i < req.Table.Len(); i++ {
		tickets = append(tickets, preprocess.Ticket(req.Table.RowMap(i), columns, idColumn, r.PreOpts))
	}
	batches, err := Split(tickets, r.BatchSize)
	if err != nil {
		return nil, "", err
	}
	return batches, idColumn, nil
}

// Preview renders the prompt the first batch would be submitted with, without
// calling the model.
func (r *Runner) Preview(req Request) (string, error) {
	batches, _, err := r.resolveBatches(req)
	if err != nil {
		return "", err
	}
	if len(batches) == 0 {
		return "", fmt.Errorf("%w: input table has no rows", models.ErrConfiguration)
	}
	return prompt.Build(batches[0], r.Defs, r.Explanations), nil
}

// processBatch renders the prompt, calls the model once through the wrapper
// stack, records usage, and parses the reply.
func (r *Runner) processBatch(ctx context.Context, batch models.Batch) (map[string]models.AnalysisResult, error) {
	text := prompt.Build(batch, r.Defs, r.Explanations)
	resp, err := r.Client.Complete(ctx, llm.CompletionRequest{System: prompt.System(), Prompt: text})
	if err != nil {
		return nil, err
	}
	if err := r.Tracker.Record(ctx, costtracker.Usage{
		Provider:         r.Client.Name(),
		Model:            r.Client.Model(),
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
	}); err != nil {
		log.Errorf("Failed to record usage for batch %d: %v", batch.Index, err)
	}
	log.Debugf("Batch %d reply: %d chars, %d prompt tokens, %d completion tokens",
		batch.Index, len(resp.Text), resp.PromptTokens, resp.CompletionTokens)

	results := parse.ParseBatch(resp.Text, batch, r.Defs, r.Explanations)
	if r.IncludeRaw {
		for id, res := range results {
			res.Raw = resp.Text
			results[id] = res
		}
	}
	return results, nil
}

func failedResults(batch models.Batch, err error) map[string]models.AnalysisResult {
	out := make(map[string]models.AnalysisResult, len(batch.Tickets))
	for _, tk := range batch.Tickets {
		out[tk.ID] = models.AnalysisResult{TicketID: tk.ID, Status: models.ResultStatusFailed, Err: err.Error()}
	}
	return out
}
