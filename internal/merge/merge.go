// Package merge writes parsed analysis results back into the input table.
// The table keeps its rows in their original order and every original
// column; analysis values, explanations, and two bookkeeping columns are
// appended on the right.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"triago/internal/analysis"
	"triago/internal/models"
	"triago/internal/preprocess"
	"triago/internal/table"
)

// Extra columns appended after the analysis columns.
const (
	RawColumn    = "raw_response"
	StatusColumn = "analysis_status"
	ErrorColumn  = "analysis_error"
)

type Options struct {
	IDColumn     string
	Explanations bool
	// IncludeRaw adds a raw_response column holding the completion text each
	// row was parsed from.
	IncludeRaw bool
}

// Apply merges results into tbl. Every result identifier must correspond to
// a row; rows the results do not cover are written as failed with N/A
// analysis values, so the output always holds one row per input row.
func Apply(tbl *table.Table, results map[string]models.AnalysisResult, defs []analysis.Definition, opts Options) error {
	rowIDs := make([]string, tbl.Len())
	known := make(map[string]bool, tbl.Len())
	for i := range rowIDs {
		rowIDs[i] = preprocess.TicketID(tbl.RowMap(i), opts.IDColumn)
		known[rowIDs[i]] = true
	}

	var unknown []string
	for id := range results {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", models.ErrMerge, strings.Join(unknown, ", "))
	}

	for _, d := range defs {
		tbl.AddColumn(d.Key())
		if opts.Explanations {
			tbl.AddColumn(d.ExplanationKey())
		}
	}
	if opts.IncludeRaw {
		tbl.AddColumn(RawColumn)
	}
	tbl.AddColumn(StatusColumn)
	tbl.AddColumn(ErrorColumn)

	for i, id := range rowIDs {
		res, ok := results[id]
		if !ok {
			res = models.AnalysisResult{
				TicketID: id,
				Status:   models.ResultStatusFailed,
				Err:      "no result produced",
			}
		}
		if err := applyRow(tbl, i, res, defs, opts); err != nil {
			return err
		}
	}
	return nil
}

func applyRow(tbl *table.Table, row int, res models.AnalysisResult, defs []analysis.Definition, opts Options) error {
	for _, d := range defs {
		value := res.Fields[d.Key()]
		if value == "" {
			value = "N/A"
		}
		if err := tbl.Set(row, d.Key(), value); err != nil {
			return err
		}
		if !opts.Explanations {
			continue
		}
		if err := tbl.Set(row, d.ExplanationKey(), res.Fields[d.ExplanationKey()]); err != nil {
			return err
		}
	}
	if opts.IncludeRaw {
		raw := res.Raw
		if raw == "" {
			raw = "N/A"
		}
		if err := tbl.Set(row, RawColumn, raw); err != nil {
			return err
		}
	}
	if err := tbl.Set(row, StatusColumn, res.Status); err != nil {
		return err
	}
	return tbl.Set(row, ErrorColumn, res.Err)
}
