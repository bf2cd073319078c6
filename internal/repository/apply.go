package repository

import (
	"sort"

	"github.com/mahersayed/supplier-ledger/internal/models"
)

// The functions below apply a pending mutation to a cached snapshot and
// return the new snapshot. They are pure: the input slice is not modified.
// Both the optimistic offline path and the online confirm path go through
// them, so cached state always changes the same way.

func applyCreateSupplier(snapshot []models.Supplier, s models.Supplier) []models.Supplier {
	out := make([]models.Supplier, 0, len(snapshot)+1)
	out = append(out, snapshot...)
	out = append(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func applyCreateTransaction(snapshot []models.Transaction, t models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(snapshot)+1)
	out = append(out, t)
	out = append(out, snapshot...)
	sortTransactionsForDisplay(out)
	return out
}

func applyUpdateTransaction(snapshot []models.Transaction, id int64, patch models.TransactionPatch) []models.Transaction {
	out := make([]models.Transaction, len(snapshot))
	for i, t := range snapshot {
		if t.ID == id {
			t = patch.Apply(t)
		}
		out[i] = t
	}
	sortTransactionsForDisplay(out)
	return out
}

func applyDeleteTransaction(snapshot []models.Transaction, id int64) []models.Transaction {
	out := make([]models.Transaction, 0, len(snapshot))
	for _, t := range snapshot {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func applyCreateUser(snapshot []models.User, u models.User) []models.User {
	out := make([]models.User, 0, len(snapshot)+1)
	out = append(out, snapshot...)
	out = append(out, u)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func applyDeleteUser(snapshot []models.User, id int64) []models.User {
	out := make([]models.User, 0, len(snapshot))
	for _, u := range snapshot {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}

// sortTransactionsForDisplay keeps cached transactions in the order the
// remote store serves them: newest date first, identity as tiebreak.
func sortTransactionsForDisplay(transactions []models.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		if transactions[i].Date != transactions[j].Date {
			return transactions[i].Date.After(transactions[j].Date)
		}
		return transactions[i].ID > transactions[j].ID
	})
}
