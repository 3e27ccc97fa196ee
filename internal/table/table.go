// Package table reads and writes the tabular ticket files the tool operates
// on. The in-memory representation keeps the original column order and row
// order so output files stay aligned with their input.
package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"triago/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header row plus data rows, all strings.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New creates an empty table with the given columns.
func New(columns []string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

// Read parses CSV data. The first record is the header; every data row must
// have the same width. A UTF-8 byte order mark is stripped and invalid byte
// sequences are replaced, so exports from other tools still parse.
func Read(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: input file is empty", models.ErrConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := New(header)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// ReadFile reads a CSV file from disk.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write serializes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path, creating parent directories as needed.
func (t *Table) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AddColumn appends a new column, filling existing rows with empty cells.
// Adding an existing column is a no-op.
func (t *Table) AddColumn(name string) {
	if t.HasColumn(name) {
		return
	}
	t.Columns = append(t.Columns, name)
	t.index[name] = len(t.Columns) - 1
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
}

// Get returns the cell at (row, column), or "" when the column is unknown or
// the row is ragged.
func (t *Table) Get(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// Set writes the cell at (row, column). Unknown columns are an error;
// ragged rows are padded out first.
func (t *Table) Set(row int, column, value string) error {
	i, ok := t.index[column]
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	if row < 0 || row >= len(t.Rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	for len(t.Rows[row]) <= i {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][i] = value
	return nil
}

// RowMap returns one row keyed by column name.
func (t *Table) RowMap(row int) map[string]string {
	m := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		m[c] = t.Get(row, c)
	}
	return m
}

// DetectIDColumn picks the identifier column: a well-known name when one
// exists, then the first column with an _id suffix, then the first column.
func (t *Table) DetectIDColumn() string {
	if len(t.Columns) == 0 {
		return ""
	}
	for _, want := range []string{"ticket_id", "tracking_index", "id"} {
		for _, c := range t.Columns {
			if strings.EqualFold(c, want) {
				return c
			}
		}
	}
	for _, c := range t.Columns {
		if strings.HasSuffix(strings.ToLower(c), "_id") {
			return c
		}
	}
	return t.Columns[0]
}

// Stats summarizes the table for job overviews.
type Stats struct {
	Rows       int
	Columns    int
	EmptyCells map[string]int
	TotalChars int
}

// Stats computes row/column counts, per-column empty-cell counts, and the
// total character volume of the table.
func (t *Table) Stats() Stats {
	s := Stats{
		Rows:       len(t.Rows),
		Columns:    len(t.Columns),
		EmptyCells: make(map[string]int),
	}
	for _, c := range t.Columns {
		s.EmptyCells[c] = 0
	}
	for i := range t.Rows {
		for _, c := range t.Columns {
			v := t.Get(i, c)
			s.TotalChars += len(v)
			if strings.TrimSpace(v) == "" {
				s.EmptyCells[c]++
			}
		}
	}
	return s
}

// DiscoverInputs lists the CSV files directly under dir, sorted by name.
// Used when the analyze command is invoked without an input path.
func DiscoverInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
