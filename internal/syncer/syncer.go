// Package syncer drains the mutation queue against the remote store whenever
// connectivity returns.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mahersayed/supplier-ledger/internal/connectivity"
	"github.com/mahersayed/supplier-ledger/internal/events"
	"github.com/mahersayed/supplier-ledger/internal/models"
	"github.com/mahersayed/supplier-ledger/internal/queue"
	"github.com/mahersayed/supplier-ledger/internal/remote"
)

// Refresher reloads every cached collection from the remote store. The
// repository implements it; the indirection keeps the dependency one-way.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// Syncer replays queued mutations in insertion order. Each entry is
// independent: a failure is logged and the entry retained, and the pass
// continues. After every pass the caches are refreshed so locally assigned
// temporary identities give way to canonical ones.
type Syncer struct {
	queue     *queue.Queue
	remote    remote.Store
	refresher Refresher
	publisher events.Publisher
	logger    *slog.Logger

	syncing atomic.Bool
}

func New(q *queue.Queue, rs remote.Store, refresher Refresher, publisher events.Publisher, logger *slog.Logger) *Syncer {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		queue:     q,
		remote:    rs,
		refresher: refresher,
		publisher: publisher,
		logger:    logger,
	}
}

// Bind subscribes the syncer to a connectivity monitor: every
// became-reachable transition starts a sync pass in the background.
func (s *Syncer) Bind(m *connectivity.Monitor) {
	m.Subscribe(func(ev connectivity.Event) {
		if ev != connectivity.BecameReachable {
			return
		}
		go func() {
			if _, err := s.Sync(context.Background()); err != nil {
				s.logger.Error("background sync failed", "error", err)
			}
		}()
	})
}

// Syncing reports whether a sync pass is currently running. Advisory only:
// reads and optimistic writes are never blocked by it.
func (s *Syncer) Syncing() bool { return s.syncing.Load() }

// Sync runs one drain pass followed by a full cache refresh. A pass already
// in flight makes Sync a no-op.
func (s *Syncer) Sync(ctx context.Context) (queue.DrainResult, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return queue.DrainResult{}, nil
	}
	defer s.syncing.Store(false)

	// Identity remappings observed during this pass. Entries later in the
	// queue that reference a temporary identity are rewritten in place, so a
	// retained failure carries the canonical identity into the next pass.
	ids := &remap{
		transactions: make(map[int64]int64),
		users:        make(map[int64]int64),
		suppliers:    make(map[string]string),
	}

	res, err := s.queue.Drain(func(e *queue.Entry) error {
		rerr := s.replay(ctx, e, ids)
		if rerr != nil {
			s.logger.Warn("replay failed, entry retained",
				"entry", e.ID, "kind", string(e.Kind), "error", rerr)
		}
		return rerr
	})
	if err != nil {
		return res, err
	}

	// Refresh even after a partial pass: confirmed entries should become
	// canonical everywhere as soon as possible.
	if rerr := s.refresher.RefreshAll(ctx); rerr != nil {
		s.logger.Warn("cache refresh after sync failed", "error", rerr)
	}

	if res.Processed > 0 {
		s.logger.Info("sync pass complete",
			"processed", res.Processed, "succeeded", res.Succeeded, "failed", res.Failed)
	}
	if perr := s.publisher.Publish(events.TopicSyncCompleted, events.SyncCompleted{
		Processed:   res.Processed,
		Succeeded:   res.Succeeded,
		Failed:      res.Failed,
		CompletedAt: time.Now(),
	}); perr != nil {
		s.logger.Warn("sync event publish failed", "error", perr)
	}

	return res, nil
}

// remap carries the temporary-to-canonical identity mappings observed while
// one drain pass replays creates.
type remap struct {
	transactions map[int64]int64
	users        map[int64]int64
	suppliers    map[string]string
}

func (s *Syncer) replay(ctx context.Context, e *queue.Entry, ids *remap) error {
	switch e.Kind {
	case queue.KindCreateSupplier:
		p := e.CreateSupplier
		created, err := s.remote.InsertSupplier(ctx, models.Supplier{
			Name:           p.Name,
			Phone:          p.Phone,
			OpeningBalance: p.OpeningBalance,
		})
		if err != nil {
			return err
		}
		ids.suppliers[p.TempID] = created.ID
		return nil

	case queue.KindCreateTransaction:
		p := e.CreateTransaction
		if strings.HasPrefix(p.Transaction.SupplierID, models.LocalIDPrefix) {
			canonical, ok := ids.suppliers[p.Transaction.SupplierID]
			if !ok {
				return fmt.Errorf("supplier %s not yet created remotely", p.Transaction.SupplierID)
			}
			p.Transaction.SupplierID = canonical
		}
		t := p.Transaction
		t.ID = 0
		t.SupplierName = ""
		created, err := s.remote.InsertTransaction(ctx, t)
		if err != nil {
			return err
		}
		ids.transactions[p.TempID] = created.ID
		return nil

	case queue.KindUpdateTransaction:
		p := e.UpdateTransaction
		if p.ID < 0 {
			canonical, ok := ids.transactions[p.ID]
			if !ok {
				return fmt.Errorf("transaction %d not yet created remotely", p.ID)
			}
			p.ID = canonical
		}
		err := s.remote.UpdateTransaction(ctx, p.ID, p.Patch)
		if remote.IsNotFound(err) {
			// Deleted remotely by another client; last writer wins, nothing
			// left to update.
			s.logger.Warn("update target gone remotely, dropping", "id", p.ID)
			return nil
		}
		return err

	case queue.KindDeleteTransaction:
		p := e.DeleteTransaction
		if p.ID < 0 {
			canonical, ok := ids.transactions[p.ID]
			if !ok {
				return fmt.Errorf("transaction %d not yet created remotely", p.ID)
			}
			p.ID = canonical
		}
		err := s.remote.DeleteTransaction(ctx, p.ID)
		if remote.IsNotFound(err) {
			// Already gone remotely; the intended end state holds.
			return nil
		}
		return err

	case queue.KindCreateUser:
		p := e.CreateUser
		created, err := s.remote.InsertUser(ctx, models.User{Name: p.Name, Code: p.Code})
		if err != nil {
			return err
		}
		ids.users[p.TempID] = created.ID
		return nil

	case queue.KindDeleteUser:
		p := e.DeleteUser
		if p.ID < 0 {
			canonical, ok := ids.users[p.ID]
			if !ok {
				// The user never reached the remote store; nothing to delete.
				return nil
			}
			p.ID = canonical
		}
		err := s.remote.DeleteUser(ctx, p.ID)
		if remote.IsNotFound(err) {
			return nil
		}
		return err

	case queue.KindSaveSettings:
		return s.remote.UpsertSettings(ctx, e.SaveSettings.Settings)

	default:
		return fmt.Errorf("unknown queue entry kind %q", e.Kind)
	}
}
