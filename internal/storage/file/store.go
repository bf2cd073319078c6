package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mahersayed/supplier-ledger/internal/storage"
)

// Store persists each collection snapshot as one file under a directory.
// Writes go through a temp file and rename, so a crash mid-write leaves the
// previous snapshot intact.
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(collection storage.Collection) string {
	return filepath.Join(s.dir, string(collection)+".json")
}

func (s *Store) Get(collection storage.Collection) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(collection))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", collection, err)
	}
	return data, nil
}

func (s *Store) Put(collection storage.Collection, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path(collection) + ".tmp"
	if err := os.WriteFile(tmp, snapshot, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", collection, err)
	}
	if err := os.Rename(tmp, s.path(collection)); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Delete(collection storage.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(collection))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot %s: %w", collection, err)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
