package file

import (
	"errors"
	"testing"

	"github.com/mahersayed/supplier-ledger/internal/storage"
)

func TestRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	want := []byte(`[{"id":"sup-1"}]`)
	if err := s.Put(storage.Suppliers, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(storage.Suppliers)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestGetMissingCollection(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(storage.Transactions); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(storage.Settings, []byte(`{"company_name":"old"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(storage.Settings, []byte(`{"company_name":"new"}`)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(storage.Settings)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"company_name":"new"}` {
		t.Errorf("got %s after overwrite", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(storage.Users, []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(storage.Users); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(storage.Users); err != nil {
		t.Fatalf("deleting an absent collection: %v", err)
	}
	if _, err := s.Get(storage.Users); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v after delete, want ErrNotFound", err)
	}
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(storage.SyncQueue, []byte(`[{"kind":"create_supplier"}]`)); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Get(storage.SyncQueue)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 {
		t.Error("snapshot lost across reopen")
	}
}
