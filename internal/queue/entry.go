package queue

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mahersayed/supplier-ledger/internal/models"
)

// Kind discriminates the mutation variants the queue can hold.
type Kind string

const (
	KindCreateSupplier    Kind = "create_supplier"
	KindCreateTransaction Kind = "create_transaction"
	KindUpdateTransaction Kind = "update_transaction"
	KindDeleteTransaction Kind = "delete_transaction"
	KindCreateUser        Kind = "create_user"
	KindDeleteUser        Kind = "delete_user"
	KindSaveSettings      Kind = "save_settings"
)

type CreateSupplier struct {
	TempID         string          `json:"temp_id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type CreateTransaction struct {
	TempID      int64              `json:"temp_id"`
	Transaction models.Transaction `json:"transaction"`
}

type UpdateTransaction struct {
	ID    int64                   `json:"id"`
	Patch models.TransactionPatch `json:"patch"`
}

type DeleteTransaction struct {
	ID int64 `json:"id"`
}

type CreateUser struct {
	TempID int64  `json:"temp_id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
}

type DeleteUser struct {
	ID int64 `json:"id"`
}

type SaveSettings struct {
	Settings models.Settings `json:"settings"`
}

// Entry is one pending mutation. Exactly one payload pointer is set, selected
// by Kind; replay logic switches on Kind and can therefore be checked for
// completeness against the constants above.
type Entry struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	EnqueuedAt time.Time `json:"enqueued_at"`

	CreateSupplier    *CreateSupplier    `json:"create_supplier,omitempty"`
	CreateTransaction *CreateTransaction `json:"create_transaction,omitempty"`
	UpdateTransaction *UpdateTransaction `json:"update_transaction,omitempty"`
	DeleteTransaction *DeleteTransaction `json:"delete_transaction,omitempty"`
	CreateUser        *CreateUser        `json:"create_user,omitempty"`
	DeleteUser        *DeleteUser        `json:"delete_user,omitempty"`
	SaveSettings      *SaveSettings      `json:"save_settings,omitempty"`
}

// Validate checks that the payload matching Kind is present.
func (e Entry) Validate() error {
	var ok bool
	switch e.Kind {
	case KindCreateSupplier:
		ok = e.CreateSupplier != nil
	case KindCreateTransaction:
		ok = e.CreateTransaction != nil
	case KindUpdateTransaction:
		ok = e.UpdateTransaction != nil
	case KindDeleteTransaction:
		ok = e.DeleteTransaction != nil
	case KindCreateUser:
		ok = e.CreateUser != nil
	case KindDeleteUser:
		ok = e.DeleteUser != nil
	case KindSaveSettings:
		ok = e.SaveSettings != nil
	default:
		return fmt.Errorf("unknown queue entry kind %q", e.Kind)
	}
	if !ok {
		return fmt.Errorf("queue entry %s missing %s payload", e.ID, e.Kind)
	}
	return nil
}
