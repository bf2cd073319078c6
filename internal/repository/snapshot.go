package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mahersayed/supplier-ledger/internal/storage"
)

// loadSnapshot decodes the cached snapshot for a collection. A collection
// that was never written decodes as its zero value.
func loadSnapshot[T any](store storage.Store, c storage.Collection) (T, error) {
	var out T
	snap, err := store.Get(c)
	if errors.Is(err, storage.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("load %s snapshot: %w", c, err)
	}
	if err := json.Unmarshal(snap, &out); err != nil {
		return out, fmt.Errorf("decode %s snapshot: %w", c, err)
	}
	return out, nil
}

// saveSnapshot replaces the cached snapshot for a collection whole.
func saveSnapshot[T any](store storage.Store, c storage.Collection, value T) error {
	snap, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", c, err)
	}
	if err := store.Put(c, snap); err != nil {
		return fmt.Errorf("save %s snapshot: %w", c, err)
	}
	return nil
}
