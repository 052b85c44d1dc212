package processor

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestFilesProcessJSONArray(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"data.json": `[{"a":1,"b":2},{"a":3,"b":4}]`,
	})

	rows, err := NewFiles().Process(context.Background(), dir)
	if err != nil {
		t.Fatalf("Process() err = %v", err)
	}

	header, cells := rows.Cells()
	if !reflect.DeepEqual(header, []string{"a", "b"}) {
		t.Fatalf("header = %v", header)
	}
	if !reflect.DeepEqual(cells, [][]string{{"1", "2"}, {"3", "4"}}) {
		t.Fatalf("cells = %v", cells)
	}
}

func TestFilesProcessJSONKeepsKeyOrder(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"data.json":   `[{"b":1,"a":2},{"z":3,"a":4,"b":5,"a":6}]`,
		"lines.jsonl": "{\"y\":1,\"b\":2}\n",
	})

	rows, err := NewFiles().Process(context.Background(), dir)
	if err != nil {
		t.Fatalf("Process() err = %v", err)
	}

	header, cells := rows.Cells()
	if !reflect.DeepEqual(header, []string{"b", "a", "z", "y"}) {
		t.Fatalf("header = %v", header)
	}
	want := [][]string{
		{"1", "2", "", ""},
		{"5", "6", "3", ""},
		{"2", "", "", "1"},
	}
	if !reflect.DeepEqual(cells, want) {
		t.Fatalf("cells = %v, want %v", cells, want)
	}
}

func TestFilesProcessMixedFormatsInNameOrder(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"1-first.csv":   "name,score\nalice,10\n",
		"2-second.tsv":  "name\tscore\nbob\t20\n",
		"3-third.jsonl": "{\"name\":\"carol\",\"score\":30,\"tags\":[\"x\"]}\n\n{\"name\":\"dave\"}\n",
		"4-single.json": `{"name":"erin","meta":{"k":1.50}}`,
		"README.md":     "# ignored",
	})

	rows, err := NewFiles().Process(context.Background(), dir)
	if err != nil {
		t.Fatalf("Process() err = %v", err)
	}

	header, cells := rows.Cells()
	wantHeader := []string{"name", "score", "tags", "meta"}
	if !reflect.DeepEqual(header, wantHeader) {
		t.Fatalf("header = %v, want %v", header, wantHeader)
	}

	want := [][]string{
		{"alice", "10", "", ""},
		{"bob", "20", "", ""},
		{"carol", "30", `["x"]`, ""},
		{"dave", "", "", ""},
		{"erin", "", "", `{"k":1.50}`},
	}
	if !reflect.DeepEqual(cells, want) {
		t.Fatalf("cells = %v, want %v", cells, want)
	}
}

func TestFilesProcessCSVKeepsColumnOrder(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"order.csv": "\xef\xbb\xbfzeta,alpha\n1,2\n",
	})

	rows, err := NewFiles().Process(context.Background(), dir)
	if err != nil {
		t.Fatalf("Process() err = %v", err)
	}
	if !reflect.DeepEqual(rows.Header(), []string{"zeta", "alpha"}) {
		t.Fatalf("header = %v", rows.Header())
	}
}

func TestFilesProcessErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"malformed csv":    {"bad.csv": "a,b\n1,2,3\n"},
		"json scalar":      {"bad.json": `42`},
		"json array items": {"bad.json": `[{"a":1}, 2]`},
		"ndjson line":      {"bad.ndjson": "{\"a\":1}\nnot-json\n"},
	}

	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			dir := writeFiles(t, files)
			if _, err := NewFiles().Process(context.Background(), dir); err == nil {
				t.Fatal("Process() expected error")
			}
		})
	}
}

func TestFilesProcessEmptyAndMissing(t *testing.T) {
	rows, err := NewFiles().Process(context.Background(), writeFiles(t, map[string]string{"empty.json": ""}))
	if err != nil {
		t.Fatalf("Process() err = %v", err)
	}
	if rows.Len() != 0 {
		t.Fatalf("expected no rows, got %d", rows.Len())
	}

	if _, err := NewFiles().Process(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("Process() expected error for missing dir")
	}
}

func TestFilesProcessCanceled(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.csv": "a\n1\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFiles().Process(ctx, dir); err == nil {
		t.Fatal("Process() expected context error")
	}
}
