package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgerror"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkguid"
)

type seqID struct{ n int }

func (s *seqID) Generate() string {
	s.n++
	return fmt.Sprintf("sess-%d", s.n)
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "temp_uploads")

	store, err := NewStore(root, pkguid.NewUUID())
	if err != nil {
		t.Fatalf("NewStore() err = %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("expected root to exist: %v", err)
	}

	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() err = %v", err)
	}
	if filepath.Dir(sess.Path) != root {
		t.Fatalf("session path %q not under root %q", sess.Path, root)
	}

	if err := store.Save(ctx, sess, "a.csv", strings.NewReader("first")); err != nil {
		t.Fatalf("Save() err = %v", err)
	}
	if err := store.Save(ctx, sess, "a.csv", strings.NewReader("second")); err != nil {
		t.Fatalf("Save() again err = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(sess.Path, "a.csv"))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("expected last write to win, got %q", data)
	}

	if err := store.End(ctx, sess); err != nil {
		t.Fatalf("End() err = %v", err)
	}
	if _, err := os.Stat(sess.Path); !os.IsNotExist(err) {
		t.Fatalf("expected session dir removed, stat err = %v", err)
	}
}

func TestStoreBeginRecreatesRootAndRejectsCollision(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "uploads")
	store, err := NewStore(root, &seqID{})
	if err != nil {
		t.Fatalf("NewStore() err = %v", err)
	}

	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("remove root: %v", err)
	}
	if _, err := store.Begin(ctx); err != nil {
		t.Fatalf("Begin() after root removal err = %v", err)
	}

	if err := os.Mkdir(filepath.Join(root, "sess-2"), 0o755); err != nil {
		t.Fatalf("pre-create dir: %v", err)
	}
	if _, err := store.Begin(ctx); err == nil {
		t.Fatal("Begin() expected collision error")
	}
}

func TestStoreSaveRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir(), &seqID{})
	if err != nil {
		t.Fatalf("NewStore() err = %v", err)
	}
	sess, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() err = %v", err)
	}

	for _, name := range []string{"", "..", "../escape.csv", `..\escape.csv`, "a/../../b.csv"} {
		err := store.Save(ctx, sess, name, strings.NewReader("x"))
		if !errors.Is(err, pkgerror.ErrInvalidName) {
			t.Fatalf("Save(%q) err = %v, want ErrInvalidName", name, err)
		}
	}

	if err := store.Save(ctx, sess, "nested/dir/data.csv", strings.NewReader("x")); err != nil {
		t.Fatalf("Save() nested err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(sess.Path, "data.csv")); err != nil {
		t.Fatalf("expected base name to be used: %v", err)
	}
}

func TestCleanFilename(t *testing.T) {
	cases := map[string]string{
		"report.csv":          "report.csv",
		"  spaced.json ":      "spaced.json",
		`C:\Users\me\x.tsv`:   "x.tsv",
		"/etc/passwd":         "passwd",
		"dir/sub/rows.ndjson": "rows.ndjson",
	}
	for in, want := range cases {
		got, err := CleanFilename(in)
		if err != nil {
			t.Fatalf("CleanFilename(%q) err = %v", in, err)
		}
		if got != want {
			t.Fatalf("CleanFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStoreSweep(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewStore(root, &seqID{})
	if err != nil {
		t.Fatalf("NewStore() err = %v", err)
	}

	stale, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() err = %v", err)
	}
	fresh, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() err = %v", err)
	}

	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale.Path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	removed, err := store.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Sweep() err = %v", err)
	}
	if removed != 1 {
		t.Fatalf("Sweep() removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale.Path); !os.IsNotExist(err) {
		t.Fatalf("expected stale session removed")
	}
	if _, err := os.Stat(fresh.Path); err != nil {
		t.Fatalf("expected fresh session kept: %v", err)
	}
}
