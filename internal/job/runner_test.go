package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triago/internal/analysis"
	"triago/internal/config"
	"triago/internal/costtracker"
	"triago/internal/llm"
	"triago/internal/merge"
	"triago/internal/models"
	"triago/internal/table"
)

var idPattern = regexp.MustCompile(`\(ID: ([^)]+)\)`)

// echoClient answers every prompt with a fenced JSON array echoing back the
// ticket identifiers it finds, with fixed analysis values.
type echoClient struct {
	mu    sync.Mutex
	calls int
}

func (c *echoClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	var objs []map[string]string
	for _, m := range idPattern.FindAllStringSubmatch(req.Prompt, -1) {
		objs = append(objs, map[string]string{
			"ticket_id":        m[1],
			"extract_product":  "Test product",
			"summarize_ticket": "Issue summary",
		})
	}
	data, _ := json.Marshal(objs)
	return llm.CompletionResponse{
		Text:             "```json\n" + string(data) + "\n```",
		PromptTokens:     100,
		CompletionTokens: 50,
	}, nil
}

func (c *echoClient) Name() string  { return "stub" }
func (c *echoClient) Model() string { return "stub-model" }

func ticketFixtures(n int) []models.Ticket {
	tickets := make([]models.Ticket, 0, n)
	for i := 1; i <= n; i++ {
		tickets = append(tickets, models.Ticket{
			ID:      fmt.Sprintf("T-%d", i),
			Columns: []string{"body"},
			Fields:  map[string]string{"body": fmt.Sprintf("Body %d", i)},
		})
	}
	return tickets
}

func ticketsTable(n int) *table.Table {
	tbl := table.New([]string{"ticket_id", "subject", "body"})
	for i := 1; i <= n; i++ {
		tbl.Rows = append(tbl.Rows, []string{
			fmt.Sprintf("T-%d", i),
			fmt.Sprintf("Subject %d", i),
			fmt.Sprintf("Body text for ticket %d.", i),
		})
	}
	return tbl
}

func runnerFor(t *testing.T, client llm.Client) *Runner {
	t.Helper()
	defs, err := analysis.ParseList([]string{"extract_product", "summarize_ticket"})
	require.NoError(t, err)
	return &Runner{
		Client:      client,
		Tracker:     costtracker.New(nil),
		Defs:        defs,
		BatchSize:   2,
		Concurrency: 2,
	}
}

func TestSplitPartitionsInOrder(t *testing.T) {
	batches, err := Split(ticketFixtures(5), 2)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Len(t, batches[0].Tickets, 2)
	assert.Len(t, batches[1].Tickets, 2)
	assert.Len(t, batches[2].Tickets, 1)

	var ids []string
	for i, b := range batches {
		assert.Equal(t, i+1, b.Index)
		for _, tk := range b.Tickets {
			ids = append(ids, tk.ID)
		}
	}
	assert.Equal(t, []string{"T-1", "T-2", "T-3", "T-4", "T-5"}, ids,
		"every ticket appears exactly once, in input order")
}

func TestSplitRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Split(ticketFixtures(3), size)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrConfiguration)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	batches, err := Split(nil, 10)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestRunRoundTrip(t *testing.T) {
	client := &echoClient{}
	runner := runnerFor(t, client)
	tbl := ticketsTable(5)

	report, err := runner.Run(context.Background(), Request{Table: tbl})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusMerged, report.Status)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, 5, report.TotalRows)
	assert.Equal(t, 5, report.Complete)
	assert.Zero(t, report.Incomplete)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.FailedBatches)

	// Five rows, original order, analysis columns filled for each.
	require.Equal(t, 5, tbl.Len())
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("T-%d", i+1), tbl.Get(i, "ticket_id"))
		assert.Equal(t, "Test product", tbl.Get(i, "extract_product"))
		assert.Equal(t, "Issue summary", tbl.Get(i, "summarize_ticket"))
		assert.Equal(t, models.ResultStatusComplete, tbl.Get(i, merge.StatusColumn))
	}

	assert.Equal(t, 3, report.Usage.Requests)
	assert.Equal(t, int64(300), report.Usage.PromptTokens)
	assert.Equal(t, int64(150), report.Usage.CompletionTokens)
}

// flakyClient fails transiently whenever the prompt mentions failOn,
// otherwise behaves like echoClient.
type flakyClient struct {
	echoClient
	failOn string
}

func (c *flakyClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	if strings.Contains(req.Prompt, c.failOn) {
		return llm.CompletionResponse{}, errors.New("status 503")
	}
	return c.echoClient.Complete(ctx, req)
}

func TestRunIsolatesExhaustedBatch(t *testing.T) {
	flaky := &flakyClient{failOn: "(ID: T-3)"}
	client := llm.WithRetry(flaky, llm.RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, Factor: 2})
	runner := runnerFor(t, client)
	tbl := ticketsTable(5)

	report, err := runner.Run(context.Background(), Request{Table: tbl})
	require.NoError(t, err, "one exhausted batch does not fail the job")

	assert.Equal(t, models.JobStatusMerged, report.Status)
	assert.Equal(t, []int{2}, report.FailedBatches)
	assert.Equal(t, 3, report.Complete)
	assert.Equal(t, 2, report.Failed)

	// Batch 2 holds T-3 and T-4; their rows carry the failure, the rest
	// stay complete.
	for i, want := range []string{
		models.ResultStatusComplete,
		models.ResultStatusComplete,
		models.ResultStatusFailed,
		models.ResultStatusFailed,
		models.ResultStatusComplete,
	} {
		assert.Equal(t, want, tbl.Get(i, merge.StatusColumn), "row %d", i)
	}
	assert.Contains(t, tbl.Get(2, merge.ErrorColumn), "model unavailable")
	assert.Equal(t, "N/A", tbl.Get(2, "extract_product"))
}

type authClient struct{ echoClient }

func (c *authClient) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	return llm.CompletionResponse{}, fmt.Errorf("%w: status 401", models.ErrAuthentication)
}

func TestRunAbortsOnAuthenticationError(t *testing.T) {
	client := llm.WithRetry(&authClient{}, llm.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Factor: 2})
	runner := runnerFor(t, client)
	tbl := ticketsTable(4)

	report, err := runner.Run(context.Background(), Request{Table: tbl})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAuthentication)
	assert.Equal(t, models.JobStatusFailed, report.Status)
	assert.NotEmpty(t, report.Err)
	assert.False(t, tbl.HasColumn(merge.StatusColumn), "no partial merge on a fatal error")
}

func TestRunUnknownColumn(t *testing.T) {
	runner := runnerFor(t, &echoClient{})
	tbl := ticketsTable(2)

	report, err := runner.Run(context.Background(), Request{Table: tbl, Columns: []string{"no_such_column"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfiguration)
	assert.Equal(t, models.JobStatusFailed, report.Status)
}

// gaugeClient tracks the highest number of concurrent calls.
type gaugeClient struct {
	echoClient
	mu      sync.Mutex
	current int
	max     int
}

func (c *gaugeClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	c.mu.Lock()
	c.current++
	if c.current > c.max {
		c.max = c.current
	}
	c.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	defer func() {
		c.mu.Lock()
		c.current--
		c.mu.Unlock()
	}()
	return c.echoClient.Complete(ctx, req)
}

func TestRunHonoursConcurrencyLimit(t *testing.T) {
	gauge := &gaugeClient{}
	runner := runnerFor(t, gauge)
	runner.BatchSize = 1
	runner.Concurrency = 2
	tbl := ticketsTable(10)

	report, err := runner.Run(context.Background(), Request{Table: tbl})
	require.NoError(t, err)
	assert.Equal(t, 10, report.Batches)
	assert.LessOrEqual(t, gauge.max, 2)
	assert.Equal(t, 10, report.Complete)
}

func TestNewRunnerValidation(t *testing.T) {
	cfg := &config.Config{}
	cfg.Analysis.Types = []string{"extract_product"}
	cfg.Batch.Size = 10

	runner, err := NewRunner(cfg, &echoClient{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, runner.Concurrency, "zero concurrency normalizes to sequential")
	assert.NotNil(t, runner.Tracker)

	cfg.Batch.Size = 0
	_, err = NewRunner(cfg, &echoClient{}, nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	cfg.Batch.Size = 10
	cfg.Analysis.Types = []string{"not_a_type"}
	_, err = NewRunner(cfg, &echoClient{}, nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	cfg.Analysis.Types = nil
	_, err = NewRunner(cfg, &echoClient{}, nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestRunIncludeRawResponse(t *testing.T) {
	runner := runnerFor(t, &echoClient{})
	runner.IncludeRaw = true
	tbl := ticketsTable(3)

	report, err := runner.Run(context.Background(), Request{Table: tbl})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusMerged, report.Status)

	require.True(t, tbl.HasColumn(merge.RawColumn))
	for i := 0; i < tbl.Len(); i++ {
		raw := tbl.Get(i, merge.RawColumn)
		assert.Contains(t, raw, "```json")
		assert.Contains(t, raw, tbl.Get(i, "ticket_id"))
	}
	// Rows of the same batch share one completion text.
	assert.Equal(t, tbl.Get(0, merge.RawColumn), tbl.Get(1, merge.RawColumn))
	assert.NotEqual(t, tbl.Get(0, merge.RawColumn), tbl.Get(2, merge.RawColumn))
}

func TestPreviewRendersFirstBatchPrompt(t *testing.T) {
	runner := runnerFor(t, &echoClient{})
	text, err := runner.Preview(Request{Table: ticketsTable(5)})
	require.NoError(t, err)

	assert.Contains(t, text, "(ID: T-1)")
	assert.Contains(t, text, "(ID: T-2)")
	assert.NotContains(t, text, "(ID: T-3)", "preview covers only the first batch")
	assert.Contains(t, text, runner.Defs[0].Instruction)

	_, err = runner.Preview(Request{Table: table.New([]string{"ticket_id", "body"})})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
