package result

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgerror"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgframe"
	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
)

const csvExt = ".csv"

// FileStore keeps results as CSV files on disk.
//
// The latest result lives at a single well-known path; each result is also
// written to <dir>/<id>.csv. Files are replaced through a rename, so a reader
// sees either the previous or the new content, never a partial write.
type FileStore struct {
	dir    string
	latest string
}

// NewFileStore creates dir and the parent of latestPath when missing.
func NewFileStore(dir, latestPath string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(latestPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &FileStore{dir: dir, latest: latestPath}, nil
}

func (s *FileStore) Save(ctx context.Context, id string, rows entity.RowSet) error {
	if !validID.MatchString(id) || isLatest(id) {
		return pkgerror.ErrInvalidName
	}

	data, err := encode(rows)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if err := writeFileAtomic(s.pathOf(id), data); err != nil {
		return err
	}
	if err := writeFileAtomic(s.latest, data); err != nil {
		return err
	}

	slog.InfoContext(ctx, "result saved", "result_id", id, "rows", rows.Len(), "bytes", len(data))

	return nil
}

func (s *FileStore) Load(ctx context.Context, id string) (entity.RowSet, error) {
	f, err := s.Open(ctx, id)
	if err != nil {
		return entity.RowSet{}, err
	}
	defer f.Close()

	table, err := pkgframe.Decode(f, pkgframe.KeepHeader())
	if err != nil {
		return entity.RowSet{}, fmt.Errorf("decode result: %w", err)
	}

	return toRowSet(table), nil
}

func (s *FileStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pkgerror.ErrNotFound
		}
		return nil, fmt.Errorf("open result: %w", err)
	}

	return f, nil
}

// Prune deletes per-id files beyond the newest keep. Ids generated by the
// Snowflake generator sort by creation time; other ids fall back to the file
// modification time. The latest file is never touched.
func (s *FileStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read results dir: %w", err)
	}

	type stored struct {
		name  string
		num   int64
		isNum bool
		mod   int64
	}

	files := make([]stored, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, csvExt) {
			continue
		}
		if filepath.Clean(filepath.Join(s.dir, name)) == filepath.Clean(s.latest) {
			continue
		}

		st := stored{name: name}
		if n, err := strconv.ParseInt(strings.TrimSuffix(name, csvExt), 10, 64); err == nil {
			st.num, st.isNum = n, true
		}
		if info, err := entry.Info(); err == nil {
			st.mod = info.ModTime().UnixNano()
		}
		files = append(files, st)
	}

	if len(files) <= keep {
		return 0, nil
	}

	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.isNum && b.isNum {
			return a.num < b.num
		}
		return a.mod < b.mod
	})

	removed := 0
	for _, st := range files[:len(files)-keep] {
		if err := os.Remove(filepath.Join(s.dir, st.name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", st.name, err)
		}
		removed++
	}

	if removed > 0 {
		slog.InfoContext(ctx, "old results pruned", "count", removed, "kept", keep)
	}

	return removed, nil
}

func (s *FileStore) resolve(id string) (string, error) {
	if isLatest(id) {
		return s.latest, nil
	}
	if !validID.MatchString(id) {
		return "", pkgerror.ErrNotFound
	}

	return s.pathOf(id), nil
}

func (s *FileStore) pathOf(id string) string {
	return filepath.Join(s.dir, id+csvExt)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	return nil
}
