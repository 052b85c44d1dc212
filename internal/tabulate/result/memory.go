package result

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/shandysiswandi/tabulate/internal/pkg/pkgerror"
	"github.com/shandysiswandi/tabulate/internal/pkg/pkgframe"
	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
)

// MemoryStore keeps results in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*resultRecord
	order   []string
	latest  string
}

type resultRecord struct {
	rows entity.RowSet
	csv  []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]*resultRecord),
	}
}

func (s *MemoryStore) Save(ctx context.Context, id string, rows entity.RowSet) error {
	if !validID.MatchString(id) || isLatest(id) {
		return pkgerror.ErrInvalidName
	}

	data, err := encode(rows)
	if err != nil {
		return err
	}

	// Keep what a reader of the CSV would see, same as FileStore.
	table, err := pkgframe.Decode(bytes.NewReader(data), pkgframe.KeepHeader())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[id]; exists {
		return pkgerror.NewBusiness("result already exists", pkgerror.CodeConflict)
	}

	s.results[id] = &resultRecord{
		rows: toRowSet(table),
		csv:  data,
	}
	s.order = append(s.order, id)
	s.latest = id

	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (entity.RowSet, error) {
	rec, err := s.get(id)
	if err != nil {
		return entity.RowSet{}, err
	}

	return rec.rows, nil
}

func (s *MemoryStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	rec, err := s.get(id)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(rec.csv)), nil
}

func (s *MemoryStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) <= keep {
		return 0, nil
	}

	drop := s.order[:len(s.order)-keep]
	for _, id := range drop {
		delete(s.results, id)
	}
	s.order = append([]string(nil), s.order[len(drop):]...)

	return len(drop), nil
}

func (s *MemoryStore) get(id string) (*resultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if isLatest(id) {
		id = s.latest
	}

	rec, ok := s.results[id]
	if !ok {
		return nil, pkgerror.ErrNotFound
	}

	return rec, nil
}
