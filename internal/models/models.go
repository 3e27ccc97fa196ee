package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket is one row of the input table reduced to the columns selected for
// analysis. Field values are preprocessed copies; the original row is never
// mutated.
type Ticket struct {
	ID      string
	Columns []string // render order for prompts
	Fields  map[string]string
}

// Batch is an ordered group of tickets submitted together in one model
// request. Index is 1-based.
type Batch struct {
	Index   int
	Tickets []Ticket
}

// AnalysisResult holds the structured output recovered for a single ticket.
// Fields is keyed by analysis type (plus "<type>_explanation" keys when
// explanations were requested). Missing lists the expected keys the model
// response did not provide. Err carries the batch-level failure reason when
// Status is ResultStatusFailed.
type AnalysisResult struct {
	TicketID string
	Fields   map[string]string
	Missing  []string
	Status   string
	Err      string
	// Raw is the completion text the result was parsed from, carried only
	// when the run asks for a raw_response output column.
	Raw string
}

// RunRecord mirrors a row of the history store's runs table.
type RunRecord struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	FinishedAt       *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	InputFile        string     `db:"input_file" json:"input_file"`
	OutputFile       string     `db:"output_file" json:"output_file"`
	Provider         string     `db:"provider" json:"provider"`
	Model            string     `db:"model" json:"model"`
	AnalysisTypes    string     `db:"analysis_types" json:"analysis_types"`
	TotalRows        int        `db:"total_rows" json:"total_rows"`
	Complete         int        `db:"complete" json:"complete"`
	Incomplete       int        `db:"incomplete" json:"incomplete"`
	Failed           int        `db:"failed" json:"failed"`
	PromptTokens     int64      `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int64      `db:"completion_tokens" json:"completion_tokens"`
	Cost             float64    `db:"cost" json:"cost"`
	Status           string     `db:"status" json:"status"`
}
