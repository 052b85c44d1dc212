package result

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgerror"
	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
)

type store interface {
	Save(ctx context.Context, id string, rows entity.RowSet) error
	Load(ctx context.Context, id string) (entity.RowSet, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
	Prune(ctx context.Context, keep int) (int, error)
}

func newStores(t *testing.T) map[string]store {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "results"), filepath.Join(dir, "processed_data.csv"))
	if err != nil {
		t.Fatalf("NewFileStore() err = %v", err)
	}

	return map[string]store{
		"file":   fs,
		"memory": NewMemoryStore(),
	}
}

func readAll(t *testing.T, s store, id string) string {
	t.Helper()
	rc, err := s.Open(context.Background(), id)
	if err != nil {
		t.Fatalf("Open(%q) err = %v", id, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func sample() entity.RowSet {
	return entity.RowSet{Records: []entity.Record{
		{"a": 1, "b": 2},
		{"a": 3, "b": 4},
	}}
}

func TestStoreSaveAndLoad(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.Save(ctx, "100", sample()); err != nil {
				t.Fatalf("Save() err = %v", err)
			}

			if got := readAll(t, s, "100"); got != "a,b\n1,2\n3,4\n" {
				t.Fatalf("Open(id) = %q", got)
			}
			if got := readAll(t, s, ""); got != "a,b\n1,2\n3,4\n" {
				t.Fatalf("Open(latest) = %q", got)
			}

			rows, err := s.Load(ctx, Latest)
			if err != nil {
				t.Fatalf("Load() err = %v", err)
			}
			want := entity.RowSet{
				Columns: []string{"a", "b"},
				Records: []entity.Record{{"a": "1", "b": "2"}, {"a": "3", "b": "4"}},
			}
			if !reflect.DeepEqual(rows, want) {
				t.Fatalf("Load() = %#v, want %#v", rows, want)
			}
		})
	}
}

func TestStoreLatestIsReplaced(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.Save(ctx, "1", sample()); err != nil {
				t.Fatalf("Save(1) err = %v", err)
			}
			second := entity.RowSet{Columns: []string{"x"}, Records: []entity.Record{{"x": "only"}}}
			if err := s.Save(ctx, "2", second); err != nil {
				t.Fatalf("Save(2) err = %v", err)
			}

			if got := readAll(t, s, Latest); got != "x\nonly\n" {
				t.Fatalf("latest = %q", got)
			}
			if got := readAll(t, s, "1"); got != "a,b\n1,2\n3,4\n" {
				t.Fatalf("first = %q", got)
			}
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.Load(ctx, ""); !errors.Is(err, pkgerror.ErrNotFound) {
				t.Fatalf("Load(latest) err = %v, want ErrNotFound", err)
			}
			if _, err := s.Open(ctx, "missing"); !errors.Is(err, pkgerror.ErrNotFound) {
				t.Fatalf("Open(missing) err = %v, want ErrNotFound", err)
			}
			if _, err := s.Open(ctx, "../../etc/passwd"); !errors.Is(err, pkgerror.ErrNotFound) {
				t.Fatalf("Open(traversal) err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreSaveRejectsBadID(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", Latest, "../x", "a/b"} {
				if err := s.Save(context.Background(), id, sample()); !errors.Is(err, pkgerror.ErrInvalidName) {
					t.Fatalf("Save(%q) err = %v, want ErrInvalidName", id, err)
				}
			}
		})
	}
}

func TestStoreEmptyResult(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Save(ctx, "7", entity.RowSet{}); err != nil {
				t.Fatalf("Save() err = %v", err)
			}

			rows, err := s.Load(ctx, "7")
			if err != nil {
				t.Fatalf("Load() err = %v", err)
			}
			if rows.Len() != 0 {
				t.Fatalf("expected empty rows, got %d", rows.Len())
			}
		})
	}
}

func TestStoreKeepsRowsWithoutColumns(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Save(ctx, "8", entity.RowSet{Records: []entity.Record{{}, {}}}); err != nil {
				t.Fatalf("Save() err = %v", err)
			}

			rows, err := s.Load(ctx, "8")
			if err != nil {
				t.Fatalf("Load() err = %v", err)
			}
			if rows.Len() != 2 {
				t.Fatalf("Load() rows = %d, want 2", rows.Len())
			}
			if got := readAll(t, s, "8"); got != "\"\"\n\"\"\n\"\"\n" {
				t.Fatalf("stored csv = %q", got)
			}
		})
	}
}

func TestStoreWritesHeaderAsGiven(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rows := entity.RowSet{
				Columns: []string{"", "b"},
				Records: []entity.Record{{"": 1, "b": 2}},
			}
			if err := s.Save(ctx, "9", rows); err != nil {
				t.Fatalf("Save() err = %v", err)
			}

			if got := readAll(t, s, "9"); got != ",b\n1,2\n" {
				t.Fatalf("stored csv = %q", got)
			}

			loaded, err := s.Load(ctx, "9")
			if err != nil {
				t.Fatalf("Load() err = %v", err)
			}
			header, cells := loaded.Cells()
			if !reflect.DeepEqual(header, []string{"", "b"}) {
				t.Fatalf("Load() header = %q", header)
			}
			if !reflect.DeepEqual(cells, [][]string{{"1", "2"}}) {
				t.Fatalf("Load() cells = %q", cells)
			}
		})
	}
}

func TestStorePrune(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 5; i++ {
				if err := s.Save(ctx, strconv.Itoa(i), sample()); err != nil {
					t.Fatalf("Save(%d) err = %v", i, err)
				}
			}

			removed, err := s.Prune(ctx, 2)
			if err != nil {
				t.Fatalf("Prune() err = %v", err)
			}
			if removed != 3 {
				t.Fatalf("Prune() removed = %d, want 3", removed)
			}

			for _, id := range []string{"1", "2", "3"} {
				if _, err := s.Open(ctx, id); !errors.Is(err, pkgerror.ErrNotFound) {
					t.Fatalf("Open(%s) err = %v, want ErrNotFound", id, err)
				}
			}
			for _, id := range []string{"4", "5", Latest} {
				_ = readAll(t, s, id)
			}

			if removed, _ := s.Prune(ctx, 0); removed != 0 {
				t.Fatalf("Prune(0) removed = %d, want 0", removed)
			}
		})
	}
}

func TestFileStoreCorruptLatest(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, "processed_data.csv")
	s, err := NewFileStore(filepath.Join(dir, "results"), latest)
	if err != nil {
		t.Fatalf("NewFileStore() err = %v", err)
	}

	if err := os.WriteFile(latest, []byte("a,b\n1,2\n3"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err = s.Load(context.Background(), Latest)
	if err == nil || errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("Load() err = %v, want decode error", err)
	}
}

func TestFileStorePruneFallsBackToModTime(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, "out", "latest.csv")
	s, err := NewFileStore(filepath.Join(dir, "results"), latest)
	if err != nil {
		t.Fatalf("NewFileStore() err = %v", err)
	}

	ctx := context.Background()
	for i, id := range []string{"old-one", "new-one"} {
		if err := s.Save(ctx, id, sample()); err != nil {
			t.Fatalf("Save(%s) err = %v", id, err)
		}
		stamp := time.Now().Add(time.Duration(i-10) * time.Minute)
		if err := os.Chtimes(s.pathOf(id), stamp, stamp); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if removed, err := s.Prune(ctx, 1); err != nil || removed != 1 {
		t.Fatalf("Prune() = %d, %v", removed, err)
	}
	if _, err := s.Open(ctx, "old-one"); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("expected old-one pruned, err = %v", err)
	}
	if _, err := os.Stat(latest); err != nil {
		t.Fatalf("expected latest kept: %v", err)
	}
}
