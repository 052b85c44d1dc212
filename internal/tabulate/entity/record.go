package entity

import (
	"fmt"
	"slices"
	"sort"
)

// Record is one processed row keyed by column name.
type Record map[string]any

// RowSet is the tabular output of processing an upload batch.
//
// Columns is optional. Processors that know the source order set it. When it
// is empty the header is derived from the records: the first record's keys
// in sorted order, then keys first seen in later records, sorted within each
// record.
type RowSet struct {
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (rs RowSet) Len() int {
	return len(rs.Records)
}

// Header returns the column names used when rendering or serializing rs.
func (rs RowSet) Header() []string {
	if len(rs.Columns) > 0 {
		return rs.Columns
	}

	var header []string
	seen := make(map[string]struct{})
	for _, rec := range rs.Records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			header = append(header, k)
		}
	}

	return header
}

// Head returns a RowSet with at most n records and the same header.
func (rs RowSet) Head(n int) RowSet {
	if n < 0 || n >= len(rs.Records) {
		return rs
	}

	return RowSet{Columns: rs.Header(), Records: rs.Records[:n]}
}

// Cells renders every record as text in header order. Missing keys and nil
// values become empty strings.
func (rs RowSet) Cells() ([]string, [][]string) {
	header := rs.Header()
	rows := make([][]string, 0, len(rs.Records))
	for _, rec := range rs.Records {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = FormatValue(rec[col])
		}
		rows = append(rows, row)
	}

	return header, rows
}

// FormatValue renders a single cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// Append adds other's records to rs, extending the column list with any
// columns rs does not have yet.
func (rs *RowSet) Append(other RowSet) {
	if len(other.Records) == 0 && len(other.Columns) == 0 {
		return
	}

	header := slices.Clone(rs.Header())
	known := make(map[string]struct{}, len(header))
	for _, col := range header {
		known[col] = struct{}{}
	}
	for _, col := range other.Header() {
		if _, ok := known[col]; !ok {
			known[col] = struct{}{}
			header = append(header, col)
		}
	}

	rs.Columns = header
	rs.Records = append(rs.Records, other.Records...)
}
