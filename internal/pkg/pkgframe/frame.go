package pkgframe

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"
)

// Table is a header plus rows of cells, all as text.
type Table struct {
	Columns []string
	Rows    [][]string
}

type options struct {
	comma      rune
	keepHeader bool
}

// Option customizes how a table is read or written.
type Option func(o *options)

// WithDelimiter sets the field delimiter (default ',').
func WithDelimiter(r rune) Option {
	return func(o *options) {
		o.comma = r
	}
}

// KeepHeader makes Decode return header names exactly as written. Without
// it, empty names become X0, X1, ... and duplicates get a _0, _1 suffix.
func KeepHeader() Option {
	return func(o *options) {
		o.keepHeader = true
	}
}

func buildOptions(opts []Option) options {
	o := options{comma: ','}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

//nolint:gochecknoglobals // shared read-only options
var loadOptions = []dataframe.LoadOption{
	dataframe.HasHeader(true),
	dataframe.DetectTypes(false),
	dataframe.NaNValues(nil),
}

// Decode reads a delimited table with a header row.
//
// A leading UTF-8 byte order mark is dropped. Empty input yields an empty
// table; a header without rows yields only columns.
func Decode(r io.Reader, opts ...Option) (Table, error) {
	o := buildOptions(opts)

	reader := csv.NewReader(utfbom.SkipOnly(r))
	reader.Comma = o.comma

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read records: %w", err)
	}

	switch len(records) {
	case 0:
		return Table{}, nil
	case 1:
		return Table{Columns: records[0]}, nil
	}

	if o.keepHeader {
		rows, err := loadBody(len(records[0]), records[1:])
		if err != nil {
			return Table{}, err
		}
		return Table{Columns: records[0], Rows: rows}, nil
	}

	df := dataframe.LoadRecords(records, loadOptions...)
	if df.Err != nil {
		return Table{}, fmt.Errorf("load dataframe: %w", df.Err)
	}

	all := df.Records()

	return Table{Columns: all[0], Rows: all[1:]}, nil
}

// Encode writes t with a header row and no index column. The header is
// written as given.
//
// A table without columns or rows writes nothing and a table without rows
// writes only the header. Rows without any columns are written under a single
// unnamed column so the row count survives a round trip.
func Encode(w io.Writer, t Table, opts ...Option) error {
	o := buildOptions(opts)

	header := t.Columns
	if len(header) == 0 {
		if len(t.Rows) == 0 {
			return nil
		}
		header = []string{""}
	}

	width := len(t.Columns)
	for i, row := range t.Rows {
		if len(row) != width {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), width)
		}
	}

	body := t.Rows
	if len(t.Columns) == 0 {
		body = make([][]string, len(t.Rows))
		for i := range body {
			body[i] = []string{""}
		}
	} else if len(body) > 0 {
		var err error
		if body, err = loadBody(width, body); err != nil {
			return err
		}
	}

	return writeRecords(w, o.comma, append([][]string{header}, body...))
}

// loadBody passes rows through a dataframe under positional column names so
// the caller's header never goes through gota's name fixing.
func loadBody(width int, rows [][]string) ([][]string, error) {
	names := make([]string, width)
	for i := range names {
		names[i] = "c" + strconv.Itoa(i)
	}

	df := dataframe.LoadRecords(append([][]string{names}, rows...), loadOptions...)
	if df.Err != nil {
		return nil, fmt.Errorf("load dataframe: %w", df.Err)
	}

	return df.Records()[1:], nil
}

// writeRecords writes CSV records. encoding/csv writes a lone empty field as
// a blank line, which readers skip, so that record is written as "" instead.
func writeRecords(w io.Writer, comma rune, records [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	for _, rec := range records {
		if len(rec) == 1 && rec[0] == "" {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return err
			}
			continue
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
