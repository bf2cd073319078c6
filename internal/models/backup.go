package models

import (
	"fmt"
	"time"
)

// Backup is the envelope produced by a bulk export and consumed by restore.
type Backup struct {
	Suppliers    []Supplier    `json:"suppliers"`
	Transactions []Transaction `json:"transactions"`
	Users        []User        `json:"users"`
	Settings     *Settings     `json:"settings,omitempty"`
	BackupDate   time.Time     `json:"backup_date"`
	Version      string        `json:"version,omitempty"`

	// Offline marks a backup taken from the local cache while the remote
	// store was unreachable; it may lag the authoritative data.
	Offline bool `json:"offline,omitempty"`
}

// Validate checks the backup for internal consistency. Restore must reject a
// malformed backup before any destructive step executes.
func (b Backup) Validate() error {
	ids := make(map[string]bool, len(b.Suppliers))
	for i, s := range b.Suppliers {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("supplier %d: %w", i, err)
		}
		if s.ID == "" {
			return fmt.Errorf("supplier %d (%s) has no id", i, s.Name)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate supplier id %s", s.ID)
		}
		ids[s.ID] = true
	}
	for i, t := range b.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if !ids[t.SupplierID] {
			return fmt.Errorf("transaction %d references unknown supplier %s", i, t.SupplierID)
		}
	}
	for i, u := range b.Users {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
	}
	return nil
}
