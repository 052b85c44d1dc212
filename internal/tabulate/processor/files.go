// Package processor turns the files of an upload batch into rows.
package processor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgframe"
	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
)

var errNotObject = errors.New("json value is not an object")

type decodeFunc func(r io.Reader) (entity.RowSet, error)

// Files reads every supported file in a directory, in name order, and
// concatenates their rows. Supported extensions are .csv, .txt, .tsv, .json,
// .ndjson and .jsonl; anything else is skipped.
type Files struct {
	decoders map[string]decodeFunc
}

// NewFiles returns the default directory processor.
func NewFiles() *Files {
	return &Files{
		decoders: map[string]decodeFunc{
			".csv":    decodeDelimited(','),
			".txt":    decodeDelimited(','),
			".tsv":    decodeDelimited('\t'),
			".json":   decodeJSON,
			".ndjson": decodeNDJSON,
			".jsonl":  decodeNDJSON,
		},
	}
}

// Process reads dir without modifying it.
func (p *Files) Process(ctx context.Context, dir string) (entity.RowSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return entity.RowSet{}, fmt.Errorf("read session dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out entity.RowSet
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return entity.RowSet{}, err
		}
		if !entry.Type().IsRegular() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		decode, ok := p.decoders[ext]
		if !ok {
			slog.WarnContext(ctx, "skipping unsupported file", "file", entry.Name())
			continue
		}

		rows, err := decodeFile(filepath.Join(dir, entry.Name()), decode)
		if err != nil {
			return entity.RowSet{}, fmt.Errorf("process %s: %w", entry.Name(), err)
		}

		slog.DebugContext(ctx, "file processed", "file", entry.Name(), "rows", rows.Len())
		out.Append(rows)
	}

	return out, nil
}

func decodeFile(path string, decode decodeFunc) (entity.RowSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.RowSet{}, err
	}
	defer f.Close()

	return decode(f)
}

func decodeDelimited(comma rune) decodeFunc {
	return func(r io.Reader) (entity.RowSet, error) {
		table, err := pkgframe.Decode(r, pkgframe.WithDelimiter(comma))
		if err != nil {
			return entity.RowSet{}, err
		}

		records := make([]entity.Record, 0, len(table.Rows))
		for _, row := range table.Rows {
			rec := make(entity.Record, len(table.Columns))
			for i, col := range table.Columns {
				rec[col] = row[i]
			}
			records = append(records, rec)
		}

		return entity.RowSet{Columns: table.Columns, Records: records}, nil
	}
}

// decodeJSON accepts an array of objects or a single object. Columns follow
// key order: the first object's keys as written, then new keys in the order
// later objects introduce them.
func decodeJSON(r io.Reader) (entity.RowSet, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return entity.RowSet{}, nil
		}
		return entity.RowSet{}, err
	}

	var cols columns
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return entity.RowSet{}, err
		}

		records := make([]entity.Record, 0, len(items))
		for i, item := range items {
			rec, keys, err := decodeObject(item)
			if err != nil {
				return entity.RowSet{}, fmt.Errorf("item %d: %w", i, err)
			}
			cols.add(keys)
			records = append(records, rec)
		}
		return entity.RowSet{Columns: cols.names, Records: records}, nil
	}

	rec, keys, err := decodeObject(raw)
	if err != nil {
		return entity.RowSet{}, err
	}
	cols.add(keys)

	return entity.RowSet{Columns: cols.names, Records: []entity.Record{rec}}, nil
}

func decodeNDJSON(r io.Reader) (entity.RowSet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		records []entity.Record
		cols    columns
	)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		rec, keys, err := decodeObject([]byte(text))
		if err != nil {
			return entity.RowSet{}, fmt.Errorf("line %d: %w", line, err)
		}
		cols.add(keys)
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return entity.RowSet{}, err
	}

	return entity.RowSet{Columns: cols.names, Records: records}, nil
}

// decodeObject reads one JSON object token by token and returns its keys in
// document order. A repeated key keeps its last value and first position.
func decodeObject(data []byte) (entity.Record, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errNotObject
	}

	rec := make(entity.Record)
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}

		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key] = flatten(v)
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	return rec, keys, nil
}

// columns collects column names in first-seen order.
type columns struct {
	names []string
	seen  map[string]struct{}
}

func (c *columns) add(keys []string) {
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	for _, k := range keys {
		if _, ok := c.seen[k]; ok {
			continue
		}
		c.seen[k] = struct{}{}
		c.names = append(c.names, k)
	}
}

// flatten keeps scalars as they are and re-encodes nested arrays and objects
// as compact JSON so every cell stays a single value.
func flatten(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return v
	}
}
