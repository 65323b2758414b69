package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"timing-notion-sync/internal/domain"
)

// Store is an in-memory ports.RecordStore used for dry runs.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.Record // by id
	byKey   map[recordKey]string
}

type recordKey struct{ date, project string }

func NewStore() *Store {
	return &Store{
		records: make(map[string]domain.Record),
		byKey:   make(map[recordKey]string),
	}
}

func (s *Store) FindRecord(ctx context.Context, date, project string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[recordKey{date, project}]
	return id, ok, nil
}

func (s *Store) CreateRecord(ctx context.Context, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := recordKey{rec.Date, rec.Project}
	if _, exists := s.byKey[k]; exists {
		return fmt.Errorf("record already exists: %s %q", rec.Date, rec.Project)
	}
	id := uuid.NewString()
	s.records[id] = rec
	s.byKey[k] = id
	return nil
}

func (s *Store) UpdateRecord(ctx context.Context, id string, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.records[id]
	if !ok {
		return fmt.Errorf("record not found: %s", id)
	}
	delete(s.byKey, recordKey{old.Date, old.Project})
	s.records[id] = rec
	s.byKey[recordKey{rec.Date, rec.Project}] = id
	return nil
}

// Records returns every stored record ordered by date then project.
func (s *Store) Records() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Project < out[j].Project
	})
	return out
}
