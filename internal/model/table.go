package model

import "strings"

// Null is the marker stored for missing or unparsable values.
const Null = ""

// Row is a single survey response keyed by column name.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get returns the value for col; absent columns read as Null.
func (r Row) Get(col string) string {
	return r[col]
}

// Table is an ordered sequence of rows sharing a uniform column set.
// Row order is preserved so that sampling and tests stay deterministic.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable creates an empty table with the given column set.
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether col is part of the table's column set.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Append adds a row to the table. The row is stored as-is; callers that
// need isolation should pass a clone.
func (t *Table) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// AddColumn appends a column to the column set if not already present.
func (t *Table) AddColumn(col string) {
	if !t.HasColumn(col) {
		t.Columns = append(t.Columns, col)
	}
}

// IsMissing reports whether a raw value counts as null. Empty cells plus
// the "nan"/"None"/"NA" sentinels that upstream tooling writes into CSV
// exports are all treated as missing.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "nan", "None", "NA":
		return true
	}
	return false
}
