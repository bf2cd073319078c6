// Package repository is the single entry point for reading and writing
// ledger entities. Per call it either executes directly against the remote
// store or falls back to the local cache plus the mutation queue.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mahersayed/supplier-ledger/internal/models"
	"github.com/mahersayed/supplier-ledger/internal/queue"
	"github.com/mahersayed/supplier-ledger/internal/remote"
	"github.com/mahersayed/supplier-ledger/internal/storage"
)

// ErrOfflineReset is returned when a reset is attempted without
// connectivity. Reset is destructive and must not race with pending queued
// mutations, so it is refused outright rather than queued.
var ErrOfflineReset = errors.New("reset requires connectivity")

// ErrOfflineRestore mirrors ErrOfflineReset for the restore flow.
var ErrOfflineRestore = errors.New("restore requires connectivity")

// Reachability reports the last observed connectivity state.
type Reachability interface {
	Reachable() bool
}

// Repository dispatches every operation between the remote store and the
// offline path. Construct a new Repository to point at a different remote
// store; it holds no reconfigurable connection state.
type Repository struct {
	remote remote.Store
	cache  storage.Store
	queue  *queue.Queue
	reach  Reachability
	logger *slog.Logger

	tempID atomic.Int64
}

func New(rs remote.Store, cache storage.Store, q *queue.Queue, reach Reachability, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{
		remote: rs,
		cache:  cache,
		queue:  q,
		reach:  reach,
		logger: logger,
	}
	// Seed placeholder identities the way the original client did, from the
	// wall clock, so two process runs don't collide; each call decrements.
	r.tempID.Store(-time.Now().UnixMilli())
	return r
}

// Queue exposes the mutation queue, mainly for status reporting.
func (r *Repository) Queue() *queue.Queue { return r.queue }

func (r *Repository) nextTempID() int64 {
	return r.tempID.Add(-1)
}

func (r *Repository) online() bool { return r.reach.Reachable() }

// --- Suppliers ---

func (r *Repository) FetchSuppliers(ctx context.Context) ([]models.Supplier, error) {
	if r.online() {
		suppliers, err := r.remote.ListSuppliers(ctx)
		if err == nil {
			if cerr := saveSnapshot(r.cache, storage.Suppliers, suppliers); cerr != nil {
				r.logger.Warn("supplier cache refresh failed", "error", cerr)
			}
			return suppliers, nil
		}
		if !remote.IsUnreachable(err) {
			return nil, err
		}
		// Connectivity failures on reads fall back to cache silently.
	}
	return loadSnapshot[[]models.Supplier](r.cache, storage.Suppliers)
}

func (r *Repository) CreateSupplier(ctx context.Context, name, phone string, openingBalance decimal.Decimal) (models.Supplier, error) {
	s := models.Supplier{Name: name, Phone: phone, OpeningBalance: openingBalance}
	if err := s.Validate(); err != nil {
		return models.Supplier{}, err
	}

	if r.online() {
		created, err := r.remote.InsertSupplier(ctx, s)
		if err != nil {
			return models.Supplier{}, err
		}
		r.updateSupplierCache(created)
		return created, nil
	}

	s.ID = models.LocalIDPrefix + uuid.NewString()
	s.CreatedAt = time.Now()
	r.updateSupplierCache(s)
	err := r.queue.Enqueue(queue.Entry{
		Kind: queue.KindCreateSupplier,
		CreateSupplier: &queue.CreateSupplier{
			TempID:         s.ID,
			Name:           name,
			Phone:          phone,
			OpeningBalance: openingBalance,
		},
	})
	if err != nil {
		return models.Supplier{}, err
	}
	return s, nil
}

func (r *Repository) updateSupplierCache(s models.Supplier) {
	snapshot, err := loadSnapshot[[]models.Supplier](r.cache, storage.Suppliers)
	if err != nil {
		r.logger.Warn("supplier cache load failed", "error", err)
		return
	}
	if err := saveSnapshot(r.cache, storage.Suppliers, applyCreateSupplier(snapshot, s)); err != nil {
		r.logger.Warn("supplier cache update failed", "error", err)
	}
}

// --- Transactions ---

func (r *Repository) FetchTransactions(ctx context.Context) ([]models.Transaction, error) {
	if r.online() {
		transactions, err := r.remote.ListTransactions(ctx, remote.TransactionFilter{})
		if err == nil {
			if cerr := saveSnapshot(r.cache, storage.Transactions, transactions); cerr != nil {
				r.logger.Warn("transaction cache refresh failed", "error", cerr)
			}
			return transactions, nil
		}
		if !remote.IsUnreachable(err) {
			return nil, err
		}
	}
	return loadSnapshot[[]models.Transaction](r.cache, storage.Transactions)
}

func (r *Repository) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if err := t.Validate(); err != nil {
		return models.Transaction{}, err
	}

	if r.online() {
		created, err := r.remote.InsertTransaction(ctx, t)
		if err != nil {
			return models.Transaction{}, err
		}
		created.SupplierName = r.supplierName(created.SupplierID)
		r.mutateTransactionCache(func(snap []models.Transaction) []models.Transaction {
			return applyCreateTransaction(snap, created)
		})
		return created, nil
	}

	t.ID = r.nextTempID()
	t.CreatedAt = time.Now()
	t.SupplierName = r.supplierName(t.SupplierID)
	r.mutateTransactionCache(func(snap []models.Transaction) []models.Transaction {
		return applyCreateTransaction(snap, t)
	})
	err := r.queue.Enqueue(queue.Entry{
		Kind: queue.KindCreateTransaction,
		CreateTransaction: &queue.CreateTransaction{
			TempID:      t.ID,
			Transaction: t,
		},
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, id int64, patch models.TransactionPatch) error {
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return fmt.Errorf("transaction amount must be positive, got %s", patch.Amount)
	}

	if r.online() {
		if err := r.remote.UpdateTransaction(ctx, id, patch); err != nil {
			return err
		}
		r.mutateTransactionCache(func(snap []models.Transaction) []models.Transaction {
			return applyUpdateTransaction(snap, id, patch)
		})
		return nil
	}

	r.mutateTransactionCache(func(snap []models.Transaction) []models.Transaction {
		return applyUpdateTransaction(snap, id, patch)
	})
	return r.queue.Enqueue(queue.Entry{
		Kind:              queue.KindUpdateTransaction,
		UpdateTransaction: &queue.UpdateTransaction{ID: id, Patch: patch},
	})
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	if r.online() {
		if err := r.remote.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		r.mutateTransactionCache(func(snap []models.Transaction) []models.Transaction {
			return applyDeleteTransaction(snap, id)
		})
		return nil
	}

	r.mutateTransactionCache(func(snap []models.Transaction) []models.Transaction {
		return applyDeleteTransaction(snap, id)
	})
	return r.queue.Enqueue(queue.Entry{
		Kind:              queue.KindDeleteTransaction,
		DeleteTransaction: &queue.DeleteTransaction{ID: id},
	})
}

func (r *Repository) mutateTransactionCache(mutate func([]models.Transaction) []models.Transaction) {
	snapshot, err := loadSnapshot[[]models.Transaction](r.cache, storage.Transactions)
	if err != nil {
		r.logger.Warn("transaction cache load failed", "error", err)
		return
	}
	if err := saveSnapshot(r.cache, storage.Transactions, mutate(snapshot)); err != nil {
		r.logger.Warn("transaction cache update failed", "error", err)
	}
}

func (r *Repository) supplierName(supplierID string) string {
	suppliers, err := loadSnapshot[[]models.Supplier](r.cache, storage.Suppliers)
	if err != nil {
		return ""
	}
	for _, s := range suppliers {
		if s.ID == supplierID {
			return s.Name
		}
	}
	return ""
}

// --- Compound submission ---

// AuxPayment is a settlement recorded alongside an invoice.
type AuxPayment struct {
	Amount          decimal.Decimal `json:"amount"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
}

// AuxReturn is a return deducted alongside an invoice.
type AuxReturn struct {
	Amount            decimal.Decimal `json:"amount"`
	ReceiptReference  string          `json:"receipt_reference,omitempty"`
	OriginalReference string          `json:"original_reference,omitempty"`
	Note              string          `json:"note,omitempty"`
}

// Submission is one user-facing entry: a main transaction plus up to one
// auxiliary payment and one auxiliary return sharing its date. The parts are
// independent creates; there is no atomicity across them.
type Submission struct {
	Transaction models.Transaction `json:"transaction"`

	// OriginalInvoiceNumber annotates a main transaction of type return with
	// the invoice it reverses.
	OriginalInvoiceNumber string `json:"original_invoice_number,omitempty"`

	Payment *AuxPayment `json:"payment,omitempty"`
	Return  *AuxReturn  `json:"return,omitempty"`
}

// Submit records the submission's transactions in order: main, payment,
// return. It returns the transactions actually created; a failure partway
// leaves the earlier creates in place.
func (r *Repository) Submit(ctx context.Context, sub Submission) ([]models.Transaction, error) {
	main := sub.Transaction
	if main.Type == models.TypeReturn && sub.OriginalInvoiceNumber != "" {
		main.Notes = joinNotes(main.Notes, "original invoice "+sub.OriginalInvoiceNumber)
	}

	created, err := r.CreateTransaction(ctx, main)
	if err != nil {
		return nil, err
	}
	out := []models.Transaction{created}

	ref := main.ReferenceNumber
	if ref == "" {
		ref = "-"
	}

	if sub.Payment != nil && sub.Payment.Amount.IsPositive() {
		payment := models.Transaction{
			SupplierID:      main.SupplierID,
			Type:            models.TypePayment,
			Amount:          sub.Payment.Amount,
			Date:            main.Date,
			ReferenceNumber: sub.Payment.ReferenceNumber,
			Notes:           "partial payment for invoice " + ref,
			CreatedBy:       main.CreatedBy,
		}
		p, err := r.CreateTransaction(ctx, payment)
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}

	if sub.Return != nil && sub.Return.Amount.IsPositive() {
		notes := "return deducted on invoice " + ref
		if sub.Return.OriginalReference != "" {
			notes = joinNotes(notes, "original invoice "+sub.Return.OriginalReference)
		}
		if sub.Return.Note != "" {
			notes = joinNotes(notes, sub.Return.Note)
		}
		ret := models.Transaction{
			SupplierID:      main.SupplierID,
			Type:            models.TypeReturn,
			Amount:          sub.Return.Amount,
			Date:            main.Date,
			ReferenceNumber: sub.Return.ReceiptReference,
			Notes:           notes,
			CreatedBy:       main.CreatedBy,
		}
		rt, err := r.CreateTransaction(ctx, ret)
		if err != nil {
			return out, err
		}
		out = append(out, rt)
	}

	return out, nil
}

func joinNotes(a, b string) string {
	if a == "" {
		return b
	}
	return a + " - " + b
}

// --- Users ---

func (r *Repository) FetchUsers(ctx context.Context) ([]models.User, error) {
	if r.online() {
		users, err := r.remote.ListUsers(ctx)
		if err == nil {
			if cerr := saveSnapshot(r.cache, storage.Users, users); cerr != nil {
				r.logger.Warn("user cache refresh failed", "error", cerr)
			}
			return users, nil
		}
		if !remote.IsUnreachable(err) {
			return nil, err
		}
	}
	return loadSnapshot[[]models.User](r.cache, storage.Users)
}

func (r *Repository) CreateUser(ctx context.Context, name, code string) (models.User, error) {
	u := models.User{Name: name, Code: code}
	if err := u.Validate(); err != nil {
		return models.User{}, err
	}

	if r.online() {
		created, err := r.remote.InsertUser(ctx, u)
		if err != nil {
			return models.User{}, err
		}
		r.mutateUserCache(func(snap []models.User) []models.User {
			return applyCreateUser(snap, created)
		})
		return created, nil
	}

	u.ID = r.nextTempID()
	u.CreatedAt = time.Now()
	r.mutateUserCache(func(snap []models.User) []models.User {
		return applyCreateUser(snap, u)
	})
	err := r.queue.Enqueue(queue.Entry{
		Kind:       queue.KindCreateUser,
		CreateUser: &queue.CreateUser{TempID: u.ID, Name: name, Code: code},
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	if r.online() {
		if err := r.remote.DeleteUser(ctx, id); err != nil {
			return err
		}
		r.mutateUserCache(func(snap []models.User) []models.User {
			return applyDeleteUser(snap, id)
		})
		return nil
	}

	r.mutateUserCache(func(snap []models.User) []models.User {
		return applyDeleteUser(snap, id)
	})
	return r.queue.Enqueue(queue.Entry{
		Kind:       queue.KindDeleteUser,
		DeleteUser: &queue.DeleteUser{ID: id},
	})
}

func (r *Repository) mutateUserCache(mutate func([]models.User) []models.User) {
	snapshot, err := loadSnapshot[[]models.User](r.cache, storage.Users)
	if err != nil {
		r.logger.Warn("user cache load failed", "error", err)
		return
	}
	if err := saveSnapshot(r.cache, storage.Users, mutate(snapshot)); err != nil {
		r.logger.Warn("user cache update failed", "error", err)
	}
}

// --- Settings ---

func (r *Repository) FetchSettings(ctx context.Context) (models.Settings, error) {
	if r.online() {
		settings, err := r.remote.GetSettings(ctx)
		if err == nil {
			if cerr := saveSnapshot(r.cache, storage.Settings, &settings); cerr != nil {
				r.logger.Warn("settings cache refresh failed", "error", cerr)
			}
			return settings, nil
		}
		if !remote.IsUnreachable(err) && !remote.IsNotFound(err) {
			return models.Settings{}, err
		}
	}
	cached, err := loadSnapshot[*models.Settings](r.cache, storage.Settings)
	if err != nil {
		return models.Settings{}, err
	}
	if cached == nil {
		return models.DefaultSettings(), nil
	}
	return *cached, nil
}

// SaveSettings writes to the cache first in both paths: settings reads must
// see the new value even if the remote write is still pending.
func (r *Repository) SaveSettings(ctx context.Context, settings models.Settings) error {
	if err := saveSnapshot(r.cache, storage.Settings, &settings); err != nil {
		return err
	}
	if r.online() {
		return r.remote.UpsertSettings(ctx, settings)
	}
	return r.queue.Enqueue(queue.Entry{
		Kind:         queue.KindSaveSettings,
		SaveSettings: &queue.SaveSettings{Settings: settings},
	})
}

// --- Refresh, reset, backup ---

// RefreshAll replaces every cached collection with the remote store's current
// contents. The sync engine calls it after each drain pass so temporary
// identities are replaced by canonical ones.
func (r *Repository) RefreshAll(ctx context.Context) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if suppliers, err := r.remote.ListSuppliers(ctx); err != nil {
		record(err)
	} else {
		record(saveSnapshot(r.cache, storage.Suppliers, suppliers))
	}
	if transactions, err := r.remote.ListTransactions(ctx, remote.TransactionFilter{}); err != nil {
		record(err)
	} else {
		record(saveSnapshot(r.cache, storage.Transactions, transactions))
	}
	if users, err := r.remote.ListUsers(ctx); err != nil {
		record(err)
	} else {
		record(saveSnapshot(r.cache, storage.Users, users))
	}
	settings, err := r.remote.GetSettings(ctx)
	switch {
	case err == nil:
		record(saveSnapshot(r.cache, storage.Settings, &settings))
	case remote.IsNotFound(err):
		// Nothing stored remotely yet; keep whatever the cache has.
	default:
		record(err)
	}

	return firstErr
}

// Reset deletes all supplier and transaction data remotely and locally. It is
// refused while offline: queueing a destructive wipe behind pending mutations
// would be unrecoverable.
func (r *Repository) Reset(ctx context.Context) error {
	if !r.online() {
		return ErrOfflineReset
	}
	if err := r.remote.DeleteAll(ctx); err != nil {
		return err
	}
	if err := r.queue.Clear(); err != nil {
		return err
	}
	if err := r.cache.Delete(storage.Suppliers); err != nil {
		return err
	}
	return r.cache.Delete(storage.Transactions)
}

// Backup bulk-fetches every collection. Offline it serves the cache and
// marks the envelope accordingly.
func (r *Repository) Backup(ctx context.Context) (models.Backup, error) {
	b := models.Backup{BackupDate: time.Now(), Version: "1.0"}

	if !r.online() {
		var err error
		if b.Suppliers, err = loadSnapshot[[]models.Supplier](r.cache, storage.Suppliers); err != nil {
			return models.Backup{}, err
		}
		if b.Transactions, err = loadSnapshot[[]models.Transaction](r.cache, storage.Transactions); err != nil {
			return models.Backup{}, err
		}
		if b.Users, err = loadSnapshot[[]models.User](r.cache, storage.Users); err != nil {
			return models.Backup{}, err
		}
		settings, err := loadSnapshot[*models.Settings](r.cache, storage.Settings)
		if err != nil {
			return models.Backup{}, err
		}
		b.Settings = settings
		b.Offline = true
		return b, nil
	}

	var err error
	if b.Suppliers, err = r.remote.ListSuppliers(ctx); err != nil {
		return models.Backup{}, err
	}
	if b.Transactions, err = r.remote.ListTransactions(ctx, remote.TransactionFilter{}); err != nil {
		return models.Backup{}, err
	}
	if b.Users, err = r.remote.ListUsers(ctx); err != nil {
		return models.Backup{}, err
	}
	settings, err := r.remote.GetSettings(ctx)
	if err == nil {
		b.Settings = &settings
	} else if !remote.IsNotFound(err) {
		return models.Backup{}, err
	}
	return b, nil
}

// Restore validates the backup, wipes existing data, and loads the backup's
// contents in dependency order. Validation happens before any destructive
// step; a malformed backup never wipes anything.
func (r *Repository) Restore(ctx context.Context, b models.Backup) error {
	if !r.online() {
		return ErrOfflineRestore
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid backup: %w", err)
	}

	if err := r.Reset(ctx); err != nil {
		return err
	}
	if err := r.remote.BulkInsertSuppliers(ctx, b.Suppliers); err != nil {
		return err
	}
	if err := r.remote.BulkInsertUsers(ctx, b.Users); err != nil {
		return err
	}
	if err := r.remote.BulkInsertTransactions(ctx, b.Transactions); err != nil {
		return err
	}
	if b.Settings != nil {
		if err := r.remote.UpsertSettings(ctx, *b.Settings); err != nil {
			return err
		}
	}
	return r.RefreshAll(ctx)
}
