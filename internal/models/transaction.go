package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags the direction of a ledger transaction. The amount is
// always stored as a positive magnitude; sign is derived from the type.
type TransactionType string

const (
	TypeInvoice TransactionType = "invoice"
	TypePayment TransactionType = "payment"
	TypeReturn  TransactionType = "return"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeInvoice, TypePayment, TypeReturn:
		return true
	}
	return false
}

// Transaction is a single ledger movement against one supplier.
//
// The identity is assigned by the remote store on confirmed creation. While
// the remote store is unreachable, a locally generated negative placeholder
// identity is used until the pending create is replayed.
type Transaction struct {
	ID              int64           `json:"id"`
	SupplierID      string          `json:"supplier_id"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Date            Date            `json:"date"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at,omitempty"`

	// SupplierName is joined in on fetch for display; never written back.
	SupplierName string `json:"supplier_name,omitempty"`
}

// IsLocal reports whether the transaction carries a placeholder identity.
func (t Transaction) IsLocal() bool { return t.ID < 0 }

// Signed returns the amount with its direction applied: invoices increase the
// amount owed, payments and returns decrease it.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TypeInvoice {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (t Transaction) Validate() error {
	if t.SupplierID == "" {
		return fmt.Errorf("transaction has no supplier")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction amount must be positive, got %s", t.Amount)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction has no date")
	}
	return nil
}

// TransactionPatch carries the editable fields of a transaction. Nil fields
// are left untouched. Type is deliberately absent: the supported flows never
// change a transaction's type after creation.
type TransactionPatch struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Date            *Date            `json:"date,omitempty"`
	ReferenceNumber *string          `json:"reference_number,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
}

// Apply returns t with the patch's non-nil fields applied.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.ReferenceNumber != nil {
		t.ReferenceNumber = *p.ReferenceNumber
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	return t
}
