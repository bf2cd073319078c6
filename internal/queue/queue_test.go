package queue

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mahersayed/supplier-ledger/internal/models"
	"github.com/mahersayed/supplier-ledger/internal/storage/memory"
)

func createEntry(tempID int64, ref string) Entry {
	return Entry{
		Kind: KindCreateTransaction,
		CreateTransaction: &CreateTransaction{
			TempID: tempID,
			Transaction: models.Transaction{
				ID:              tempID,
				SupplierID:      "sup-1",
				Type:            models.TypeInvoice,
				Amount:          decimal.NewFromInt(10),
				Date:            "2024-01-01",
				ReferenceNumber: ref,
			},
		},
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	store := memory.NewStore()

	q, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(createEntry(-1, "A")); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(createEntry(-2, "B")); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	entries := reopened.Entries()
	if len(entries) != 2 {
		t.Fatalf("reopened queue has %d entries, want 2", len(entries))
	}
	if entries[0].CreateTransaction.Transaction.ReferenceNumber != "A" {
		t.Errorf("entry order not preserved across reopen")
	}
}

func TestEnqueueRejectsMissingPayload(t *testing.T) {
	q, err := Open(memory.NewStore())
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(Entry{Kind: KindCreateTransaction}); err == nil {
		t.Fatal("enqueue accepted an entry with no payload")
	}
	if q.Len() != 0 {
		t.Errorf("rejected entry was persisted")
	}
}

func TestDrainEmptyQueue(t *testing.T) {
	q, err := Open(memory.NewStore())
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	res, err := q.Drain(func(e *Entry) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 0 || res.Processed != 0 {
		t.Errorf("empty drain ran replay %d times, processed %d", calls, res.Processed)
	}
}

func TestDrainRetainsFailuresInOrder(t *testing.T) {
	q, err := Open(memory.NewStore())
	if err != nil {
		t.Fatal(err)
	}
	for i, ref := range []string{"A", "B", "C", "D"} {
		if err := q.Enqueue(createEntry(int64(-1-i), ref)); err != nil {
			t.Fatal(err)
		}
	}

	failRefs := map[string]bool{"B": true, "D": true}
	res, err := q.Drain(func(e *Entry) error {
		if failRefs[e.CreateTransaction.Transaction.ReferenceNumber] {
			return errors.New("remote rejected")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 4 || res.Succeeded != 2 || res.Failed != 2 {
		t.Fatalf("result = %+v, want {4 2 2}", res)
	}

	remaining := q.Entries()
	if len(remaining) != 2 {
		t.Fatalf("queue holds %d entries after drain, want 2", len(remaining))
	}
	if remaining[0].CreateTransaction.Transaction.ReferenceNumber != "B" ||
		remaining[1].CreateTransaction.Transaction.ReferenceNumber != "D" {
		t.Errorf("failed entries not retained in order: %s, %s",
			remaining[0].CreateTransaction.Transaction.ReferenceNumber,
			remaining[1].CreateTransaction.Transaction.ReferenceNumber)
	}
}

func TestDrainKeepsFailuresAheadOfNewcomers(t *testing.T) {
	q, err := Open(memory.NewStore())
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(createEntry(-1, "FAIL")); err != nil {
		t.Fatal(err)
	}

	_, err = q.Drain(func(e *Entry) error {
		// Simulate a mutation arriving while the drain is in flight.
		if err := q.Enqueue(createEntry(-2, "LATE")); err != nil {
			t.Fatal(err)
		}
		return errors.New("remote rejected")
	})
	if err != nil {
		t.Fatal(err)
	}

	entries := q.Entries()
	if len(entries) != 2 {
		t.Fatalf("queue holds %d entries, want 2", len(entries))
	}
	if entries[0].CreateTransaction.Transaction.ReferenceNumber != "FAIL" {
		t.Errorf("retained failure lost its place at the head")
	}
	if entries[1].CreateTransaction.Transaction.ReferenceNumber != "LATE" {
		t.Errorf("mid-drain enqueue lost its place behind the failure")
	}
}

func TestDrainPersistsNormalizedPayload(t *testing.T) {
	store := memory.NewStore()
	q, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	e := Entry{
		Kind:              KindUpdateTransaction,
		UpdateTransaction: &UpdateTransaction{ID: -7},
	}
	if err := q.Enqueue(e); err != nil {
		t.Fatal(err)
	}

	_, err = q.Drain(func(e *Entry) error {
		// Replay normalizes the placeholder identity, then fails.
		e.UpdateTransaction.ID = 42
		return errors.New("remote rejected")
	})
	if err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	entries := reopened.Entries()
	if len(entries) != 1 {
		t.Fatalf("queue holds %d entries, want 1", len(entries))
	}
	if entries[0].UpdateTransaction.ID != 42 {
		t.Errorf("retained entry persisted with id %d, want normalized 42",
			entries[0].UpdateTransaction.ID)
	}
}

func TestClear(t *testing.T) {
	store := memory.NewStore()
	q, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(createEntry(-1, "A")); err != nil {
		t.Fatal(err)
	}
	if err := q.Clear(); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 0 {
		t.Fatalf("queue holds %d entries after clear", q.Len())
	}

	reopened, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Len() != 0 {
		t.Errorf("clear was not persisted")
	}
}

func TestEntryValidateUnknownKind(t *testing.T) {
	e := Entry{Kind: "rename_supplier"}
	if err := e.Validate(); err == nil {
		t.Fatal("unknown kind passed validation")
	}
}
