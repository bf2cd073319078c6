package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahersayed/supplier-ledger/internal/models"
	"github.com/mahersayed/supplier-ledger/internal/remote"
)

// Store is an in-memory implementation of remote.Store. It assigns canonical
// identities the way the hosted backend does, which makes it useful both for
// tests and for running the system without a backend.
type Store struct {
	mu           sync.Mutex
	suppliers    map[string]models.Supplier
	transactions map[int64]models.Transaction
	users        map[int64]models.User
	settings     *models.Settings
	nextTxID     int64
	nextUserID   int64

	offline      bool
	failErr      error
	failAfterN   int
	failAfterErr error
}

func NewStore() *Store {
	return &Store{
		suppliers:    make(map[string]models.Supplier),
		transactions: make(map[int64]models.Transaction),
		users:        make(map[int64]models.User),
		nextTxID:     1,
		nextUserID:   1,
	}
}

// SetOffline makes every operation fail with remote.ErrUnreachable until the
// store is set back online.
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// FailWith makes every operation fail with err until cleared with nil.
// Ping is unaffected, so the store still counts as reachable.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// FailAfter lets the next n operations through and fails every later one
// with err until cleared with FailAfter(0, nil). Ping is unaffected.
func (s *Store) FailAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfterN = n
	s.failAfterErr = err
}

func (s *Store) gate() error {
	if s.offline {
		return remote.ErrUnreachable
	}
	if s.failErr != nil {
		return s.failErr
	}
	if s.failAfterErr != nil {
		if s.failAfterN <= 0 {
			return s.failAfterErr
		}
		s.failAfterN--
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return remote.ErrUnreachable
	}
	return nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return nil, err
	}
	out := make([]models.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, sup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertSupplier(ctx context.Context, sup models.Supplier) (models.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return models.Supplier{}, err
	}
	sup.ID = uuid.NewString()
	sup.CreatedAt = time.Now()
	s.suppliers[sup.ID] = sup
	return sup, nil
}

func (s *Store) ListTransactions(ctx context.Context, f remote.TransactionFilter) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if f.SupplierID != "" && t.SupplierID != f.SupplierID {
			continue
		}
		if !f.From.IsZero() && t.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && t.Date.After(f.To) {
			continue
		}
		if sup, ok := s.suppliers[t.SupplierID]; ok {
			t.SupplierName = sup.Name
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return models.Transaction{}, err
	}
	if _, ok := s.suppliers[t.SupplierID]; !ok {
		return models.Transaction{}, &remote.Error{
			Op:      "insert transaction",
			Code:    "23503",
			Message: "supplier does not exist",
		}
	}
	t.ID = s.nextTxID
	s.nextTxID++
	t.CreatedAt = time.Now()
	t.SupplierName = ""
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id int64, patch models.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return err
	}
	t, ok := s.transactions[id]
	if !ok {
		return remote.ErrNotFound
	}
	s.transactions[id] = patch.Apply(t)
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return err
	}
	if _, ok := s.transactions[id]; !ok {
		return remote.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertUser(ctx context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return models.User{}, err
	}
	u.ID = s.nextUserID
	s.nextUserID++
	u.CreatedAt = time.Now()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return err
	}
	if _, ok := s.users[id]; !ok {
		return remote.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) GetSettings(ctx context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return models.Settings{}, err
	}
	if s.settings == nil {
		return models.Settings{}, remote.ErrNotFound
	}
	return *s.settings, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return err
	}
	s.settings = &settings
	return nil
}

func (s *Store) BulkInsertSuppliers(ctx context.Context, suppliers []models.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return err
	}
	for _, sup := range suppliers {
		s.suppliers[sup.ID] = sup
	}
	return nil
}

func (s *Store) BulkInsertTransactions(ctx context.Context, transactions []models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return err
	}
	for _, t := range transactions {
		s.transactions[t.ID] = t
		if t.ID >= s.nextTxID {
			s.nextTxID = t.ID + 1
		}
	}
	return nil
}

func (s *Store) BulkInsertUsers(ctx context.Context, users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return err
	}
	for _, u := range users {
		s.users[u.ID] = u
		if u.ID >= s.nextUserID {
			s.nextUserID = u.ID + 1
		}
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate(); err != nil {
		return err
	}
	s.transactions = make(map[int64]models.Transaction)
	s.suppliers = make(map[string]models.Supplier)
	return nil
}

var _ remote.Store = (*Store)(nil)
