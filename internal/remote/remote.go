// Package remote defines the client contract for the authoritative store the
// ledger synchronizes against, along with the structured failures it reports.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/mahersayed/supplier-ledger/internal/models"
)

var (
	// ErrUnreachable marks a connectivity failure: the remote store could
	// not be reached at all. Callers fall back to the local cache for reads
	// and queue writes when they see it.
	ErrUnreachable = errors.New("remote store unreachable")

	// ErrNotFound marks an operation against an entity the remote store
	// does not have.
	ErrNotFound = errors.New("remote entity not found")
)

// Error is a remote rejection: the store was reached and refused the
// operation (constraint violation, bad payload, and so on).
type Error struct {
	Op      string
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote %s: %s (%s)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("remote %s: %s", e.Op, e.Message)
}

// IsUnreachable reports whether err is a connectivity failure.
func IsUnreachable(err error) bool { return errors.Is(err, ErrUnreachable) }

// IsNotFound reports whether err means the target entity does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// TransactionFilter narrows a transaction select. Zero fields are ignored.
type TransactionFilter struct {
	SupplierID string
	From, To   models.Date
}

// Store is the request/response client over the four remote collections.
// Implementations return ErrUnreachable for connectivity failures and
// *Error for rejections, so callers can tell the two apart.
type Store interface {
	// Ping probes reachability without touching any collection.
	Ping(ctx context.Context) error

	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	InsertSupplier(ctx context.Context, s models.Supplier) (models.Supplier, error)

	// ListTransactions returns transactions joined with their supplier name,
	// newest date first.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error)
	InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, patch models.TransactionPatch) error
	DeleteTransaction(ctx context.Context, id int64) error

	ListUsers(ctx context.Context) ([]models.User, error)
	InsertUser(ctx context.Context, u models.User) (models.User, error)
	DeleteUser(ctx context.Context, id int64) error

	// GetSettings returns the single settings row, or ErrNotFound when it
	// has never been written.
	GetSettings(ctx context.Context) (models.Settings, error)
	UpsertSettings(ctx context.Context, s models.Settings) error

	// Bulk operations back restore. Inserts preserve the identities carried
	// by the input.
	BulkInsertSuppliers(ctx context.Context, suppliers []models.Supplier) error
	BulkInsertTransactions(ctx context.Context, transactions []models.Transaction) error
	BulkInsertUsers(ctx context.Context, users []models.User) error

	// DeleteAll wipes transactions and suppliers, in that order.
	DeleteAll(ctx context.Context) error
}
