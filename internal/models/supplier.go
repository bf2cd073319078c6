package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LocalIDPrefix marks supplier identities that were assigned locally while
// the remote store was unreachable. The sync engine replaces them with the
// canonical identity once the create has been confirmed.
const LocalIDPrefix = "local-"

// Supplier is a party the ledger tracks amounts owed to.
type Supplier struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreatedAt      time.Time       `json:"created_at,omitempty"`
}

// IsLocal reports whether the supplier has not yet been confirmed by the
// remote store.
func (s Supplier) IsLocal() bool {
	return strings.HasPrefix(s.ID, LocalIDPrefix)
}

func (s Supplier) Validate() error {
	if s.Name == "" {
		return errors.New("supplier name is required")
	}
	return nil
}
