package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triago/internal/models"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHistoryStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	finished := time.Now().Add(90 * time.Second)
	run := &models.RunRecord{
		StartedAt:        time.Now(),
		FinishedAt:       &finished,
		InputFile:        "tickets.csv",
		OutputFile:       "output/analyzed_tickets_gpt_4o_20250101_000000_v1.csv",
		Provider:         "openai",
		Model:            "gpt-4o",
		AnalysisTypes:    "extract_product,sentiment_analysis",
		TotalRows:        25,
		Complete:         20,
		Incomplete:       3,
		Failed:           2,
		PromptTokens:     12345,
		CompletionTokens: 6789,
		Cost:             0.42,
		Status:           models.JobStatusWritten,
	}
	require.NoError(t, s.RecordRun(ctx, run))
	assert.NotEqual(t, uuid.Nil, run.ID, "an identifier gets assigned on insert")

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "tickets.csv", got.InputFile)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, "extract_product,sentiment_analysis", got.AnalysisTypes)
	assert.Equal(t, 25, got.TotalRows)
	assert.Equal(t, 20, got.Complete)
	assert.Equal(t, 3, got.Incomplete)
	assert.Equal(t, 2, got.Failed)
	assert.Equal(t, int64(12345), got.PromptTokens)
	assert.Equal(t, int64(6789), got.CompletionTokens)
	assert.InDelta(t, 0.42, got.Cost, 1e-9)
	assert.Equal(t, models.JobStatusWritten, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.WithinDuration(t, finished, *got.FinishedAt, time.Second)
}

func TestHistoryStoreOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-3 * time.Hour)

	for i, input := range []string{"first.csv", "second.csv", "third.csv"} {
		run := &models.RunRecord{
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			InputFile: input,
			Provider:  "openai",
			Model:     "gpt-4o",
			Status:    models.JobStatusWritten,
		}
		require.NoError(t, s.RecordRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third.csv", runs[0].InputFile)
	assert.Equal(t, "second.csv", runs[1].InputFile)
}

func TestHistoryStoreCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "history.db")
	s, err := NewHistoryStore(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
	require.NoError(t, s.RecordRun(context.Background(), &models.RunRecord{
		InputFile: "tickets.csv",
		Provider:  "openai",
		Model:     "gpt-4o",
		Status:    models.JobStatusFailed,
	}))
}

func TestHistoryStoreNilFinishedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, &models.RunRecord{
		InputFile: "tickets.csv",
		Provider:  "gemini",
		Model:     "gemini-1.5-flash",
		Status:    models.JobStatusFailed,
	}))

	runs, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].FinishedAt)
}

func TestTotalUsage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.TotalUsage(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Runs)
	assert.Zero(t, empty.Cost)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.RecordRun(ctx, &models.RunRecord{
			InputFile:        "tickets.csv",
			Provider:         "openai",
			Model:            "gpt-4o",
			AnalysisTypes:    "extract_product",
			TotalRows:        10,
			PromptTokens:     int64(100 * i),
			CompletionTokens: int64(50 * i),
			Cost:             0.5,
			Status:           models.JobStatusWritten,
		}))
	}

	totals, err := s.TotalUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Runs)
	assert.Equal(t, int64(30), totals.TotalRows)
	assert.Equal(t, int64(600), totals.PromptTokens)
	assert.Equal(t, int64(300), totals.CompletionTokens)
	assert.InDelta(t, 1.5, totals.Cost, 1e-9)
}
