package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/makerio90/checklist/internal/storage"
)

var errDiskFull = errors.New("disk full")

// memStore is an in-memory storage.Store that can be told to fail.
type memStore struct {
	mu       sync.Mutex
	records  map[string]storage.Record
	loadErrs map[string]error
	saves    int
	attempts int
	// failSaves makes the next n Save calls fail; -1 fails forever.
	failSaves int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]storage.Record), loadErrs: make(map[string]error)}
}

func (s *memStore) Load(_ context.Context, name string) (storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadErrs[name]; err != nil {
		return storage.Record{}, err
	}
	rec, ok := s.records[name]
	if !ok {
		return storage.Record{}, storage.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *memStore) Save(_ context.Context, in storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failSaves != 0 {
		if s.failSaves > 0 {
			s.failSaves--
		}
		return errDiskFull
	}
	s.saves++
	s.records[in.Name] = in.Clone()
	return nil
}

func (s *memStore) List(context.Context) ([]storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) record(name string) (storage.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[name]
	return rec.Clone(), ok
}

func (s *memStore) counts() (saves, attempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves, s.attempts
}
