// Package queue implements the durable, ordered list of mutations awaiting
// replay against the remote store.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahersayed/supplier-ledger/internal/storage"
)

// ReplayFunc replays one entry against the remote store. It may normalize the
// entry in place (the sync engine rewrites temporary identities to canonical
// ones before attempting), and whatever the entry holds afterwards is what a
// failed entry is persisted with.
type ReplayFunc func(e *Entry) error

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Processed int
	Succeeded int
	Failed    int
}

// Queue is the FIFO mutation queue, persisted whole through a storage.Store
// so pending mutations survive process restarts. Entries are never coalesced:
// three queued edits of the same transaction replay as three updates.
type Queue struct {
	mu      sync.Mutex
	store   storage.Store
	entries []Entry
}

// Open loads the persisted queue from store, or starts empty if none exists.
func Open(store storage.Store) (*Queue, error) {
	q := &Queue{store: store}

	snap, err := store.Get(storage.SyncQueue)
	if errors.Is(err, storage.ErrNotFound) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	if err := json.Unmarshal(snap, &q.entries); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return q, nil
}

// Enqueue validates and durably appends an entry. It never touches the
// network and returns as soon as the entry is persisted.
func (q *Queue) Enqueue(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now()
	}
	if err := e.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, e)
	return q.persistLocked()
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries returns a copy of the pending entries in order.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Drain replays the pending entries in insertion order. Entries for which
// replay returns nil are discarded; failed entries are kept in their relative
// order and become the new head of the queue, ahead of anything enqueued
// while the drain was running. A failure never aborts the pass.
func (q *Queue) Drain(replay ReplayFunc) (DrainResult, error) {
	q.mu.Lock()
	batch := make([]Entry, len(q.entries))
	copy(batch, q.entries)
	q.mu.Unlock()

	var res DrainResult
	if len(batch) == 0 {
		return res, nil
	}

	var failed []Entry
	for i := range batch {
		res.Processed++
		if err := replay(&batch[i]); err != nil {
			res.Failed++
			failed = append(failed, batch[i])
			continue
		}
		res.Succeeded++
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Entries enqueued after the batch snapshot keep their place behind the
	// retained failures, preserving global FIFO order.
	newcomers := q.entries[len(batch):]
	q.entries = append(failed, newcomers...)
	if err := q.persistLocked(); err != nil {
		return res, err
	}
	return res, nil
}

// Clear drops every pending entry. Used only by the destructive reset flow.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	return q.persistLocked()
}

func (q *Queue) persistLocked() error {
	snap, err := json.Marshal(q.entries)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := q.store.Put(storage.SyncQueue, snap); err != nil {
		return fmt.Errorf("persist queue: %w", err)
	}
	return nil
}
