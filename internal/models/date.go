package models

import (
	"fmt"
	"time"
)

// Date is a calendar day in ISO form (YYYY-MM-DD), the granularity at which
// ledger transactions are recorded. Lexicographic comparison of two Dates
// matches chronological order for this format.
type Date string

const dateLayout = "2006-01-02"

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// Today returns the current calendar day.
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) String() string { return string(d) }

func (d Date) IsZero() bool { return d == "" }

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool { return d > other }

// Time returns the day at midnight UTC. Invalid dates yield the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}
