package storage

import "errors"

// Collection names one cached entity collection. Snapshots are read and
// written whole: partial in-place patching is not part of the contract, so a
// refresh can never interleave with a concurrent partial write.
type Collection string

const (
	Suppliers    Collection = "suppliers"
	Transactions Collection = "transactions"
	Users        Collection = "users"
	Settings     Collection = "settings"
	SyncQueue    Collection = "sync_queue"
)

// ErrNotFound is returned by Get when a collection has never been written.
var ErrNotFound = errors.New("storage: collection not found")

// Store is the durable local cache: the last known snapshot of each entity
// collection, keyed by collection name. Implementations provide durability
// only; all policy lives with the callers.
type Store interface {
	// Get returns the last snapshot written for the collection, or
	// ErrNotFound if none exists.
	Get(collection Collection) ([]byte, error)

	// Put replaces the collection's snapshot.
	Put(collection Collection, snapshot []byte) error

	// Delete removes the collection's snapshot. Deleting an absent
	// collection is not an error.
	Delete(collection Collection) error
}
