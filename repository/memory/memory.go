// Package memory implements repository.Repository with an in-process
// map, grounded on pkg/storage/memory's deep-copy-on-read/write idiom.
package memory

import (
	"context"
	"sync"

	"github.com/noisecore/xxcore/identity"
	"github.com/noisecore/xxcore/repository"
)

// Store is an in-memory repository.Repository, safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[identity.ID]*repository.IdentityRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[identity.ID]*repository.IdentityRecord)}
}

func (s *Store) Upsert(ctx context.Context, rec *repository.IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	cp.PublicKey = append([]byte(nil), rec.PublicKey...)
	if existing, ok := s.records[rec.ID]; ok {
		cp.FirstSeen = existing.FirstSeen
	}
	s.records[rec.ID] = &cp
	return nil
}

func (s *Store) Get(ctx context.Context, id identity.ID) (*repository.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	cp.PublicKey = append([]byte(nil), rec.PublicKey...)
	return &cp, nil
}

func (s *Store) Delete(ctx context.Context, id identity.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
