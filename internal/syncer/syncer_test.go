package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mahersayed/supplier-ledger/internal/events"
	"github.com/mahersayed/supplier-ledger/internal/models"
	"github.com/mahersayed/supplier-ledger/internal/queue"
	remotememory "github.com/mahersayed/supplier-ledger/internal/remote/memory"
	"github.com/mahersayed/supplier-ledger/internal/repository"
	storagememory "github.com/mahersayed/supplier-ledger/internal/storage/memory"
)

type toggleReach struct {
	mu     sync.Mutex
	online bool
}

func (r *toggleReach) Reachable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}

func (r *toggleReach) set(online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online = online
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.SyncCompleted
}

func (p *capturePublisher) Publish(topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sc, ok := event.(events.SyncCompleted); ok {
		p.events = append(p.events, sc)
	}
	return nil
}

type fixture struct {
	repo      *repository.Repository
	remote    *remotememory.Store
	queue     *queue.Queue
	reach     *toggleReach
	publisher *capturePublisher
	syncer    *Syncer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cache := storagememory.NewStore()
	q, err := queue.Open(cache)
	if err != nil {
		t.Fatal(err)
	}
	rs := remotememory.NewStore()
	reach := &toggleReach{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.New(rs, cache, q, reach, logger)
	pub := &capturePublisher{}
	return &fixture{
		repo:      repo,
		remote:    rs,
		queue:     q,
		reach:     reach,
		publisher: pub,
		syncer:    New(q, rs, repo, pub, logger),
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSyncReplaysOfflineWorkWithIdentityRemapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Everything below happens while unreachable: a new supplier, an invoice
	// against its placeholder identity, then an edit of the placeholder
	// transaction.
	sup, err := f.repo.CreateSupplier(ctx, "Acme", "", dec("50"))
	if err != nil {
		t.Fatal(err)
	}
	created, err := f.repo.CreateTransaction(ctx, models.Transaction{
		SupplierID: sup.ID,
		Type:       models.TypeInvoice,
		Amount:     dec("100"),
		Date:       "2024-01-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	amount := dec("120")
	if err := f.repo.UpdateTransaction(ctx, created.ID, models.TransactionPatch{Amount: &amount}); err != nil {
		t.Fatal(err)
	}

	f.reach.set(true)
	res, err := f.syncer.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 3 || res.Succeeded != 3 {
		t.Fatalf("result = %+v, want three successes", res)
	}
	if f.queue.Len() != 0 {
		t.Fatalf("queue still holds %d entries", f.queue.Len())
	}

	remoteSuppliers, err := f.remote.ListSuppliers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(remoteSuppliers) != 1 || remoteSuppliers[0].ID == sup.ID {
		t.Fatalf("supplier identity not replaced: %v", remoteSuppliers)
	}

	transactions, err := f.repo.FetchTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(transactions) != 1 {
		t.Fatalf("got %d transactions after sync, want 1", len(transactions))
	}
	got := transactions[0]
	if got.ID < 0 {
		t.Errorf("transaction still carries placeholder identity %d", got.ID)
	}
	if got.SupplierID != remoteSuppliers[0].ID {
		t.Errorf("transaction supplier %q, want canonical %q", got.SupplierID, remoteSuppliers[0].ID)
	}
	if !got.Amount.Equal(dec("120")) {
		t.Errorf("amount = %s after replayed edit, want 120", got.Amount)
	}
}

func TestSyncRetainsFailedEntriesWithCanonicalIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sup, _ := f.repo.CreateSupplier(ctx, "Acme", "", decimal.Zero)
	created, err := f.repo.CreateTransaction(ctx, models.Transaction{
		SupplierID: sup.ID,
		Type:       models.TypeInvoice,
		Amount:     dec("100"),
		Date:       "2024-01-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	amount := dec("120")
	if err := f.repo.UpdateTransaction(ctx, created.ID, models.TransactionPatch{Amount: &amount}); err != nil {
		t.Fatal(err)
	}

	f.reach.set(true)

	// Let the two creates through, then fail everything else, so the update
	// is retained after the creates it depends on have succeeded.
	f.remote.FailAfter(2, errors.New("rate limited"))
	res, err := f.syncer.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 2 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 2 succeeded 1 failed", res)
	}

	entries := f.queue.Entries()
	if len(entries) != 1 {
		t.Fatalf("queue holds %d entries, want the failed update", len(entries))
	}
	retained := entries[0]
	if retained.Kind != queue.KindUpdateTransaction {
		t.Fatalf("retained kind = %s", retained.Kind)
	}
	if retained.UpdateTransaction.ID < 0 {
		t.Errorf("retained update still references placeholder %d", retained.UpdateTransaction.ID)
	}

	// The next pass completes with the canonical identity.
	f.remote.FailAfter(0, nil)
	res, err = f.syncer.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 1 || f.queue.Len() != 0 {
		t.Fatalf("second pass result = %+v, queue len %d", res, f.queue.Len())
	}
}

func TestSyncDropsDeletesForRecordsAlreadyGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reach.set(true)

	sup, err := f.repo.CreateSupplier(ctx, "Acme", "", decimal.Zero)
	if err != nil {
		t.Fatal(err)
	}
	created, err := f.repo.CreateTransaction(ctx, models.Transaction{
		SupplierID: sup.ID,
		Type:       models.TypeInvoice,
		Amount:     dec("10"),
		Date:       "2024-01-01",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Queue a delete offline, then remove the record remotely before the
	// queue drains, as another client would.
	f.reach.set(false)
	if err := f.repo.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.remote.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatal(err)
	}

	f.reach.set(true)
	res, err := f.syncer.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 0 {
		t.Errorf("delete of an already-deleted record counted as failure: %+v", res)
	}
	if f.queue.Len() != 0 {
		t.Errorf("queue still holds %d entries", f.queue.Len())
	}
}

func TestSyncPublishesCompletionEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.repo.CreateSupplier(ctx, "Acme", "", decimal.Zero); err != nil {
		t.Fatal(err)
	}
	f.reach.set(true)
	if _, err := f.syncer.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	f.publisher.mu.Lock()
	defer f.publisher.mu.Unlock()
	if len(f.publisher.events) != 1 {
		t.Fatalf("published %d completion events, want 1", len(f.publisher.events))
	}
	if got := f.publisher.events[0]; got.Processed != 1 || got.Succeeded != 1 {
		t.Errorf("completion event = %+v", got)
	}
}

func TestSyncGuardsAgainstConcurrentPasses(t *testing.T) {
	f := newFixture(t)
	f.reach.set(true)

	f.syncer.syncing.Store(true)
	res, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 0 {
		t.Errorf("overlapping pass processed %d entries, want 0", res.Processed)
	}
	f.syncer.syncing.Store(false)
}
