package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgerror"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkguid"
	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
)

// Store keeps each upload batch in its own directory under root.
type Store struct {
	root string
	id   pkguid.StringID
}

// NewStore creates root if it does not exist yet.
func NewStore(root string, id pkguid.StringID) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads root: %w", err)
	}

	return &Store{root: root, id: id}, nil
}

// Begin creates a fresh, empty session directory.
func (s *Store) Begin(ctx context.Context) (entity.Session, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return entity.Session{}, fmt.Errorf("create uploads root: %w", err)
	}

	sess := entity.Session{ID: s.id.Generate()}
	sess.Path = filepath.Join(s.root, sess.ID)

	// Mkdir, not MkdirAll: an existing directory means the id collided.
	if err := os.Mkdir(sess.Path, 0o755); err != nil {
		return entity.Session{}, fmt.Errorf("create session dir: %w", err)
	}

	slog.DebugContext(ctx, "session started", "session_id", sess.ID)

	return sess, nil
}

// Save writes content to filename inside the session directory. A file saved
// twice under the same name keeps the last content.
func (s *Store) Save(ctx context.Context, sess entity.Session, filename string, content io.Reader) error {
	name, err := CleanFilename(filename)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(sess.Path, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	n, err := io.Copy(f, content)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}

	slog.DebugContext(ctx, "session file saved", "session_id", sess.ID, "file", name, "bytes", n)

	return nil
}

// End removes the session directory and everything in it.
func (s *Store) End(ctx context.Context, sess entity.Session) error {
	if sess.Path == "" {
		return nil
	}

	if err := os.RemoveAll(sess.Path); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}

	slog.DebugContext(ctx, "session ended", "session_id", sess.ID)

	return nil
}

// Sweep removes session directories last modified before now-olderThan.
// These are leftovers from requests that never reached End.
func (s *Store) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read uploads root: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove stale session %s: %w", entry.Name(), err)
		}
		removed++
	}

	if removed > 0 {
		slog.InfoContext(ctx, "stale sessions removed", "count", removed)
	}

	return removed, nil
}

// CleanFilename reduces a client-supplied name to a plain base name and
// rejects names that would escape the session directory.
func CleanFilename(filename string) (string, error) {
	name := strings.TrimSpace(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || strings.ContainsRune(name, 0) {
		return "", pkgerror.ErrInvalidName
	}

	if strings.Contains(name, "/") {
		for _, segment := range strings.Split(name, "/") {
			if segment == ".." {
				return "", pkgerror.ErrInvalidName
			}
		}
		name = filepath.Base(name)
	}

	if name == "." || name == ".." || name == "/" || name == "" {
		return "", pkgerror.ErrInvalidName
	}

	return name, nil
}
