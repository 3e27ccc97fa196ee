// Package store persists run history in a local sqlite database, so past
// analyses remain inspectable after the process exits.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"triago/internal/models"
)

// RunStore records completed runs and lists past ones.
type RunStore interface {
	RecordRun(ctx context.Context, run *models.RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error)
	TotalUsage(ctx context.Context) (UsageTotals, error)
	Close() error
}

// UsageTotals aggregates token usage and cost across all recorded runs.
type UsageTotals struct {
	Runs             int
	TotalRows        int64
	PromptTokens     int64
	CompletionTokens int64
	Cost             float64
}

// HistoryStore is the sqlite-backed RunStore.
type HistoryStore struct {
	db     *sql.DB
	dbPath string
}

var _ RunStore = (*HistoryStore)(nil)

// NewHistoryStore creates or opens the history database at dbPath, creating
// parent directories as needed.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &HistoryStore{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *HistoryStore) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *HistoryStore) Path() string { return s.dbPath }

func (s *HistoryStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		input_file TEXT NOT NULL,
		output_file TEXT,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		analysis_types TEXT NOT NULL,
		total_rows INTEGER NOT NULL DEFAULT 0,
		complete INTEGER NOT NULL DEFAULT 0,
		incomplete INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun inserts one run. A zero ID or start time is filled in.
func (s *HistoryStore) RecordRun(ctx context.Context, run *models.RunRecord) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO runs (
			id, started_at, finished_at, input_file, output_file,
			provider, model, analysis_types,
			total_rows, complete, incomplete, failed,
			prompt_tokens, completion_tokens, cost, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID.String(), run.StartedAt, run.FinishedAt, run.InputFile, run.OutputFile,
		run.Provider, run.Model, run.AnalysisTypes,
		run.TotalRows, run.Complete, run.Incomplete, run.Failed,
		run.PromptTokens, run.CompletionTokens, run.Cost, run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *HistoryStore) ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, started_at, finished_at, input_file, output_file,
			provider, model, analysis_types,
			total_rows, complete, incomplete, failed,
			prompt_tokens, completion_tokens, cost, status
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		var (
			run models.RunRecord
			id  string
		)
		err := rows.Scan(&id, &run.StartedAt, &run.FinishedAt, &run.InputFile, &run.OutputFile,
			&run.Provider, &run.Model, &run.AnalysisTypes,
			&run.TotalRows, &run.Complete, &run.Incomplete, &run.Failed,
			&run.PromptTokens, &run.CompletionTokens, &run.Cost, &run.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if parsed, err := uuid.Parse(id); err == nil {
			run.ID = parsed
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// TotalUsage sums token counts and cost over every recorded run.
func (s *HistoryStore) TotalUsage(ctx context.Context) (UsageTotals, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(total_rows), 0),
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COALESCE(SUM(cost), 0)
		FROM runs
	`
	var totals UsageTotals
	row := s.db.QueryRowContext(ctx, query)
	if err := row.Scan(&totals.Runs, &totals.TotalRows, &totals.PromptTokens, &totals.CompletionTokens, &totals.Cost); err != nil {
		return UsageTotals{}, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	return totals, nil
}
