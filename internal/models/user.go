package models

import (
	"errors"
	"time"
)

// User is a staff member allowed to record transactions. Users authenticate
// with a short code; password gating itself lives outside the core.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// IsLocal reports whether the user carries a placeholder identity.
func (u User) IsLocal() bool { return u.ID < 0 }

func (u User) Validate() error {
	if u.Name == "" {
		return errors.New("user name is required")
	}
	if u.Code == "" {
		return errors.New("user code is required")
	}
	return nil
}
