package models

/*
Job and result status constants for use throughout the codebase.
Centralizing these avoids magic strings and improves maintainability.
*/

// Job lifecycle constants. A job moves linearly through these; Failed is the
// only terminal state outside the happy path.
const (
	JobStatusPending    = "pending"
	JobStatusBatching   = "batching"
	JobStatusSubmitting = "submitting"
	JobStatusParsing    = "parsing"
	JobStatusMerged     = "merged"
	JobStatusWritten    = "written"
	JobStatusFailed     = "failed"
)

// Per-ticket result status constants, written to the analysis_status output
// column.
const (
	ResultStatusComplete   = "complete"
	ResultStatusIncomplete = "incomplete"
	ResultStatusFailed     = "failed"
)
