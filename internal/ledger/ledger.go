// Package ledger computes balances, statements and summaries from a
// supplier's transaction history. Everything here is a pure function over the
// data model; no I/O, no stored state.
package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mahersayed/supplier-ledger/internal/models"
)

// Entry is one statement row: a transaction plus the running balance after
// applying it.
type Entry struct {
	models.Transaction
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// Totals are the period sums over the rows a statement retains.
type Totals struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// Statement is the derived projection of a supplier's ledger over a date
// window. Entries are in display order, newest date first.
type Statement struct {
	OpeningBalanceAtStart decimal.Decimal `json:"opening_balance_at_start"`
	Entries               []Entry         `json:"entries"`
	Totals                Totals          `json:"totals"`
}

// Filter narrows a statement. Zero Start/End leave that end of the range
// open; both bounds are inclusive. Search matches the reference number,
// case-insensitively. A nil Types set retains every type.
type Filter struct {
	Start  models.Date
	End    models.Date
	Search string
	Types  map[models.TransactionType]bool
}

func (f Filter) inRange(d models.Date) bool {
	if !f.Start.IsZero() && d.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && d.After(f.End) {
		return false
	}
	return true
}

func (f Filter) retains(t models.Transaction) bool {
	if f.Types != nil && !f.Types[t.Type] {
		return false
	}
	if f.Search != "" &&
		!strings.Contains(strings.ToLower(t.ReferenceNumber), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// ComputeStatement builds the supplier's statement for the filter's window.
//
// The balance is a chronological fold over the supplier's full history
// starting from the stored opening balance, never a display-order
// computation. Search and type filters are applied only after running
// balances are attached, so hiding a row never changes the balance shown on
// a visible row.
func ComputeStatement(supplier models.Supplier, transactions []models.Transaction, f Filter) Statement {
	history := make([]models.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if t.SupplierID == supplier.ID {
			history = append(history, t)
		}
	}

	// Canonical chronological order: date ascending, identity as tiebreak.
	sort.SliceStable(history, func(i, j int) bool {
		if history[i].Date != history[j].Date {
			return history[i].Date.Before(history[j].Date)
		}
		return history[i].ID < history[j].ID
	})

	running := supplier.OpeningBalance
	openingAtStart := supplier.OpeningBalance
	var inRange []Entry

	for _, t := range history {
		if !f.Start.IsZero() && t.Date.Before(f.Start) {
			running = running.Add(t.Signed())
			openingAtStart = running
			continue
		}
		if !f.End.IsZero() && t.Date.After(f.End) {
			break
		}
		running = running.Add(t.Signed())
		inRange = append(inRange, Entry{Transaction: t, RunningBalance: running})
	}

	// Filters come after the fold: retained rows keep the balances they
	// were assigned above.
	totals := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	entries := make([]Entry, 0, len(inRange))
	for _, e := range inRange {
		if !f.retains(e.Transaction) {
			continue
		}
		entries = append(entries, e)
		if e.Type == models.TypeInvoice {
			totals.Debit = totals.Debit.Add(e.Amount)
		} else {
			totals.Credit = totals.Credit.Add(e.Amount)
		}
	}

	// Presentation order only; the fold above never uses it.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].ID > entries[j].ID
	})

	return Statement{
		OpeningBalanceAtStart: openingAtStart,
		Entries:               entries,
		Totals:                totals,
	}
}

// SupplierSummary is the dashboard projection: lifetime totals per type and
// the current balance.
type SupplierSummary struct {
	Supplier      models.Supplier `json:"supplier"`
	TotalInvoices decimal.Decimal `json:"total_invoices"`
	TotalPayments decimal.Decimal `json:"total_payments"`
	TotalReturns  decimal.Decimal `json:"total_returns"`
	Balance       decimal.Decimal `json:"balance"`
}

// Summaries computes one summary per supplier over the full transaction set.
// The balance includes the supplier's opening balance.
func Summaries(suppliers []models.Supplier, transactions []models.Transaction) []SupplierSummary {
	bySupplier := make(map[string][]models.Transaction, len(suppliers))
	for _, t := range transactions {
		bySupplier[t.SupplierID] = append(bySupplier[t.SupplierID], t)
	}

	summaries := make([]SupplierSummary, 0, len(suppliers))
	for _, s := range suppliers {
		sum := SupplierSummary{
			Supplier:      s,
			TotalInvoices: decimal.Zero,
			TotalPayments: decimal.Zero,
			TotalReturns:  decimal.Zero,
		}
		for _, t := range bySupplier[s.ID] {
			switch t.Type {
			case models.TypeInvoice:
				sum.TotalInvoices = sum.TotalInvoices.Add(t.Amount)
			case models.TypePayment:
				sum.TotalPayments = sum.TotalPayments.Add(t.Amount)
			case models.TypeReturn:
				sum.TotalReturns = sum.TotalReturns.Add(t.Amount)
			}
		}
		sum.Balance = s.OpeningBalance.
			Add(sum.TotalInvoices).
			Sub(sum.TotalPayments).
			Sub(sum.TotalReturns)
		summaries = append(summaries, sum)
	}
	return summaries
}
