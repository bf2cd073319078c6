package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mahersayed/supplier-ledger/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tx(id int64, typ models.TransactionType, amount, date string) models.Transaction {
	return models.Transaction{
		ID:         id,
		SupplierID: "sup-1",
		Type:       typ,
		Amount:     dec(amount),
		Date:       models.Date(date),
	}
}

func TestComputeStatementRunningBalance(t *testing.T) {
	supplier := models.Supplier{ID: "sup-1", Name: "Acme", OpeningBalance: decimal.Zero}
	history := []models.Transaction{
		tx(1, models.TypeInvoice, "100", "2024-01-01"),
		tx(2, models.TypePayment, "40", "2024-01-02"),
	}

	st := ComputeStatement(supplier, history, Filter{})

	if len(st.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(st.Entries))
	}
	// Display order is newest first; balances come from the chronological fold.
	if got := st.Entries[0].RunningBalance; !got.Equal(dec("60")) {
		t.Errorf("payment row balance = %s, want 60", got)
	}
	if got := st.Entries[1].RunningBalance; !got.Equal(dec("100")) {
		t.Errorf("invoice row balance = %s, want 100", got)
	}
	if !st.Totals.Debit.Equal(dec("100")) || !st.Totals.Credit.Equal(dec("40")) {
		t.Errorf("totals = {%s %s}, want {100 40}", st.Totals.Debit, st.Totals.Credit)
	}
}

func TestComputeStatementEmptyRangeCarriesOpening(t *testing.T) {
	supplier := models.Supplier{ID: "sup-1", Name: "Acme", OpeningBalance: dec("500")}

	st := ComputeStatement(supplier, nil, Filter{Start: "2024-06-01", End: "2024-06-30"})

	if len(st.Entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(st.Entries))
	}
	if !st.OpeningBalanceAtStart.Equal(dec("500")) {
		t.Errorf("opening at start = %s, want 500", st.OpeningBalanceAtStart)
	}
}

func TestComputeStatementPreWindowFoldsIntoOpening(t *testing.T) {
	supplier := models.Supplier{ID: "sup-1", Name: "Acme", OpeningBalance: dec("100")}
	history := []models.Transaction{
		tx(1, models.TypeInvoice, "200", "2024-01-10"),
		tx(2, models.TypePayment, "50", "2024-01-20"),
		tx(3, models.TypeInvoice, "30", "2024-02-05"),
	}

	st := ComputeStatement(supplier, history, Filter{Start: "2024-02-01"})

	// 100 + 200 - 50 accumulated before the window opens.
	if !st.OpeningBalanceAtStart.Equal(dec("250")) {
		t.Fatalf("opening at start = %s, want 250", st.OpeningBalanceAtStart)
	}
	if len(st.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(st.Entries))
	}
	if !st.Entries[0].RunningBalance.Equal(dec("280")) {
		t.Errorf("in-window balance = %s, want 280", st.Entries[0].RunningBalance)
	}
}

func TestComputeStatementBoundariesInclusive(t *testing.T) {
	supplier := models.Supplier{ID: "sup-1", Name: "Acme"}
	history := []models.Transaction{
		tx(1, models.TypeInvoice, "10", "2024-03-01"),
		tx(2, models.TypeInvoice, "10", "2024-03-15"),
		tx(3, models.TypeInvoice, "10", "2024-03-31"),
		tx(4, models.TypeInvoice, "10", "2024-04-01"),
	}

	st := ComputeStatement(supplier, history, Filter{Start: "2024-03-01", End: "2024-03-31"})

	if len(st.Entries) != 3 {
		t.Fatalf("got %d entries, want 3 (both boundary days included)", len(st.Entries))
	}
}

func TestComputeStatementFiltersDoNotChangeBalances(t *testing.T) {
	supplier := models.Supplier{ID: "sup-1", Name: "Acme"}
	history := []models.Transaction{
		{ID: 1, SupplierID: "sup-1", Type: models.TypeInvoice, Amount: dec("100"), Date: "2024-01-01", ReferenceNumber: "INV-1"},
		{ID: 2, SupplierID: "sup-1", Type: models.TypePayment, Amount: dec("40"), Date: "2024-01-02", ReferenceNumber: "PAY-1"},
		{ID: 3, SupplierID: "sup-1", Type: models.TypeInvoice, Amount: dec("25"), Date: "2024-01-03", ReferenceNumber: "INV-2"},
	}

	full := ComputeStatement(supplier, history, Filter{})
	invoicesOnly := ComputeStatement(supplier, history, Filter{
		Types: map[models.TransactionType]bool{models.TypeInvoice: true},
	})

	balances := make(map[int64]decimal.Decimal)
	for _, e := range full.Entries {
		balances[e.ID] = e.RunningBalance
	}
	for _, e := range invoicesOnly.Entries {
		if e.Type != models.TypeInvoice {
			t.Errorf("type filter retained %s row %d", e.Type, e.ID)
		}
		if !e.RunningBalance.Equal(balances[e.ID]) {
			t.Errorf("row %d balance changed under filter: %s vs %s",
				e.ID, e.RunningBalance, balances[e.ID])
		}
	}
	// Totals cover only retained rows.
	if !invoicesOnly.Totals.Debit.Equal(dec("125")) {
		t.Errorf("filtered debit total = %s, want 125", invoicesOnly.Totals.Debit)
	}
	if !invoicesOnly.Totals.Credit.Equal(decimal.Zero) {
		t.Errorf("filtered credit total = %s, want 0", invoicesOnly.Totals.Credit)
	}
}

func TestComputeStatementSearchMatchesReference(t *testing.T) {
	supplier := models.Supplier{ID: "sup-1", Name: "Acme"}
	history := []models.Transaction{
		{ID: 1, SupplierID: "sup-1", Type: models.TypeInvoice, Amount: dec("100"), Date: "2024-01-01", ReferenceNumber: "INV-100"},
		{ID: 2, SupplierID: "sup-1", Type: models.TypePayment, Amount: dec("40"), Date: "2024-01-02", ReferenceNumber: "PAY-7"},
	}

	st := ComputeStatement(supplier, history, Filter{Search: "inv"})

	if len(st.Entries) != 1 || st.Entries[0].ID != 1 {
		t.Fatalf("search retained %v, want only row 1", st.Entries)
	}
}

func TestComputeStatementIgnoresOtherSuppliers(t *testing.T) {
	supplier := models.Supplier{ID: "sup-1", Name: "Acme"}
	history := []models.Transaction{
		tx(1, models.TypeInvoice, "100", "2024-01-01"),
		{ID: 2, SupplierID: "sup-2", Type: models.TypeInvoice, Amount: dec("999"), Date: "2024-01-01"},
	}

	st := ComputeStatement(supplier, history, Filter{})

	if len(st.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(st.Entries))
	}
	if !st.Entries[0].RunningBalance.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", st.Entries[0].RunningBalance)
	}
}

func TestComputeStatementIdempotent(t *testing.T) {
	supplier := models.Supplier{ID: "sup-1", Name: "Acme", OpeningBalance: dec("50")}
	history := []models.Transaction{
		tx(1, models.TypeInvoice, "100", "2024-01-01"),
		tx(2, models.TypeReturn, "20", "2024-01-05"),
	}

	first := ComputeStatement(supplier, history, Filter{})
	second := ComputeStatement(supplier, history, Filter{})

	if len(first.Entries) != len(second.Entries) {
		t.Fatalf("entry counts differ: %d vs %d", len(first.Entries), len(second.Entries))
	}
	for i := range first.Entries {
		if !first.Entries[i].RunningBalance.Equal(second.Entries[i].RunningBalance) {
			t.Errorf("row %d balance differs across runs", i)
		}
	}
}

func TestSummaries(t *testing.T) {
	suppliers := []models.Supplier{
		{ID: "sup-1", Name: "Acme", OpeningBalance: dec("50")},
		{ID: "sup-2", Name: "Globex"},
	}
	transactions := []models.Transaction{
		tx(1, models.TypeInvoice, "100", "2024-01-01"),
		tx(2, models.TypePayment, "30", "2024-01-02"),
		tx(3, models.TypeReturn, "10", "2024-01-03"),
	}

	summaries := Summaries(suppliers, transactions)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	acme := summaries[0]
	if !acme.TotalInvoices.Equal(dec("100")) || !acme.TotalPayments.Equal(dec("30")) || !acme.TotalReturns.Equal(dec("10")) {
		t.Errorf("acme totals = %s/%s/%s, want 100/30/10",
			acme.TotalInvoices, acme.TotalPayments, acme.TotalReturns)
	}
	// 50 opening + 100 - 30 - 10.
	if !acme.Balance.Equal(dec("110")) {
		t.Errorf("acme balance = %s, want 110", acme.Balance)
	}

	globex := summaries[1]
	if !globex.Balance.Equal(decimal.Zero) {
		t.Errorf("supplier with no transactions: balance = %s, want 0", globex.Balance)
	}
}
