package memory

import (
	"sync"

	"github.com/mahersayed/supplier-ledger/internal/storage"
)

// Store is an in-memory implementation of storage.Store. It survives nothing,
// which makes it suitable for tests and ephemeral runs only.
type Store struct {
	mu        sync.Mutex
	snapshots map[storage.Collection][]byte
}

func NewStore() *Store {
	return &Store{snapshots: make(map[storage.Collection][]byte)}
}

func (s *Store) Get(collection storage.Collection) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[collection]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(snap))
	copy(out, snap)
	return out, nil
}

func (s *Store) Put(collection storage.Collection, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(snapshot))
	copy(stored, snapshot)
	s.snapshots[collection] = stored
	return nil
}

func (s *Store) Delete(collection storage.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, collection)
	return nil
}

var _ storage.Store = (*Store)(nil)
