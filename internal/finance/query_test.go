package finance

import (
	"context"
	"testing"

	"financas/internal/core"
	"financas/internal/store"
)

func newServices(t *testing.T) (*QueryService, *MutationService, *Rollover) {
	t.Helper()
	mem := store.NewMemory()
	q := NewQueryService(mem)
	return q, NewMutationService(mem), NewRollover(mem, q, core.TrackedOwners())
}

func mustCreateTx(t *testing.T, m *MutationService, tx core.Transaction) string {
	t.Helper()
	id, err := m.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return id
}

func TestQueryService_GetTransactions(t *testing.T) {
	ctx := context.Background()
	q, m, _ := newServices(t)

	month := core.MonthKey("2026-02")
	mustCreateTx(t, m, core.Transaction{
		Owner: core.OwnerGabriel, Month: month, Kind: core.KindIncome,
		Date: core.NewDate(2026, 2, 5), Category: "Salário",
		Amount: core.Money{Cents: 500000},
	})
	mustCreateTx(t, m, core.Transaction{
		Owner: core.OwnerGabriel, Month: month, Kind: core.KindExpense,
		Date: core.NewDate(2026, 2, 20), Category: "Mercado",
		Amount: core.Money{Cents: 35000},
	})
	mustCreateTx(t, m, core.Transaction{
		Owner: core.OwnerGabriel, Month: month, Kind: core.KindExpense,
		Date: core.NewDate(2026, 2, 3), Category: "Transporte",
		Amount: core.Money{Cents: 8000},
	})
	// Different month and different owner must be filtered out of the
	// single-owner read.
	mustCreateTx(t, m, core.Transaction{
		Owner: core.OwnerGabriel, Month: "2026-01", Kind: core.KindIncome,
		Category: "Salário", Amount: core.Money{Cents: 500000},
	})
	mustCreateTx(t, m, core.Transaction{
		Owner: core.OwnerClara, Month: month, Kind: core.KindIncome,
		Category: "Salário", Amount: core.Money{Cents: 420000},
	})

	got := q.GetTransactions(ctx, core.OwnerGabriel, month)
	if len(got.Incomes) != 1 {
		t.Fatalf("incomes = %d, want 1", len(got.Incomes))
	}
	if len(got.Expenses) != 2 {
		t.Fatalf("expenses = %d, want 2", len(got.Expenses))
	}
	if got.Expenses[0].Category != "Mercado" {
		t.Errorf("expenses not sorted newest first, got %q", got.Expenses[0].Category)
	}

	combined := q.GetTransactions(ctx, core.OwnerAll, month)
	if len(combined.Incomes) != 2 {
		t.Errorf("combined incomes = %d, want 2", len(combined.Incomes))
	}
}

func TestQueryService_GetMonthSnapshot(t *testing.T) {
	ctx := context.Background()
	q, m, _ := newServices(t)

	month := core.MonthKey("2026-02")
	mustCreateTx(t, m, core.Transaction{
		Owner: core.OwnerClara, Month: month, Kind: core.KindIncome,
		Category: "Salário", Amount: core.Money{Cents: 100000},
	})
	mustCreateTx(t, m, core.Transaction{
		Owner: core.OwnerClara, Month: month, Kind: core.KindExpense,
		Category: "Aluguel", Amount: core.Money{Cents: 40000},
	})

	snap := q.GetMonthSnapshot(ctx, core.OwnerClara, month)
	if snap.TotalIncome.Cents != 100000 {
		t.Errorf("total income = %d, want 100000", snap.TotalIncome.Cents)
	}
	if snap.TotalExpense.Cents != 40000 {
		t.Errorf("total expense = %d, want 40000", snap.TotalExpense.Cents)
	}
	if snap.Balance.Cents != 60000 {
		t.Errorf("balance = %d, want 60000", snap.Balance.Cents)
	}
}

func TestQueryService_GetStatements(t *testing.T) {
	ctx := context.Background()
	q, m, _ := newServices(t)

	month := core.MonthKey("2026-02")
	stID, err := m.CreateStatement(ctx, core.Statement{
		Owner: core.OwnerGabriel, Month: month, Card: "CARD-A", DueDay: 10,
		Items: []core.StatementItem{
			{Name: "Academia", Installment: "5 de 12", Amount: core.Money{Cents: 5000}},
			{Name: "Streaming", Installment: "Mensal", Amount: core.Money{Cents: 4000}},
		},
	})
	if err != nil {
		t.Fatalf("CreateStatement: %v", err)
	}

	statements := q.GetStatements(ctx, core.OwnerGabriel, month)
	st, ok := statements[stID]
	if !ok {
		t.Fatalf("statement %s not returned", stID)
	}
	if len(st.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(st.Items))
	}
	if st.Total.Cents != 9000 {
		t.Errorf("total = %d, want 9000", st.Total.Cents)
	}
	if core.SumItems(st.Items) != st.Total {
		t.Errorf("total %d != sum of items %d", st.Total.Cents, core.SumItems(st.Items).Cents)
	}
}

func TestQueryService_GetExchangeRate(t *testing.T) {
	ctx := context.Background()
	q, m, _ := newServices(t)

	month := core.MonthKey("2026-02")
	if rate := q.GetExchangeRate(ctx, month); rate != core.DefaultExchangeRate {
		t.Errorf("unset rate = %v, want fallback %v", rate, core.DefaultExchangeRate)
	}
	if _, ok := q.StoredExchangeRate(ctx, month); ok {
		t.Error("StoredExchangeRate reported a rate before any was set")
	}

	if err := m.SetExchangeRate(ctx, month, 5.12); err != nil {
		t.Fatalf("SetExchangeRate: %v", err)
	}
	if rate := q.GetExchangeRate(ctx, month); rate != 5.12 {
		t.Errorf("rate = %v, want 5.12", rate)
	}
}

func TestQueryService_GetInvestmentOverview(t *testing.T) {
	ctx := context.Background()
	q, m, _ := newServices(t)

	month := core.MonthKey("2026-02")
	if err := m.SetExchangeRate(ctx, month, 5.0); err != nil {
		t.Fatalf("SetExchangeRate: %v", err)
	}
	if _, err := m.CreateInvestment(ctx, core.Investment{
		Owner: core.OwnerGabriel, Month: month, Name: "Tesouro",
		Amount: core.Money{Cents: 100000}, Currency: core.CurrencyBRL,
	}); err != nil {
		t.Fatalf("CreateInvestment: %v", err)
	}
	if _, err := m.CreateInvestment(ctx, core.Investment{
		Owner: core.OwnerClara, Month: month, Name: "ETF",
		Amount: core.Money{Cents: 10000}, Currency: core.CurrencyUSD,
	}); err != nil {
		t.Fatalf("CreateInvestment: %v", err)
	}

	overview := q.GetInvestmentOverview(ctx, core.OwnerAll, month)
	// 1000.00 BRL + 100.00 USD * 5.0
	if overview.Total.Cents != 150000 {
		t.Errorf("portfolio total = %d, want 150000", overview.Total.Cents)
	}
	if overview.Rate != 5.0 {
		t.Errorf("rate = %v, want 5.0", overview.Rate)
	}
}

func TestQueryService_ListMonths(t *testing.T) {
	ctx := context.Background()
	q, m, r := newServices(t)

	mustCreateTx(t, m, core.Transaction{
		Owner: core.OwnerGabriel, Month: "2026-01", Kind: core.KindIncome,
		Category: "Salário", Amount: core.Money{Cents: 100},
	})
	if _, _, err := r.EnsureNextMonth(ctx, "2026-01"); err != nil {
		t.Fatalf("EnsureNextMonth: %v", err)
	}
	if _, _, err := r.EnsureNextMonth(ctx, "2026-02"); err != nil {
		t.Fatalf("EnsureNextMonth: %v", err)
	}

	months := q.ListMonths(ctx)
	if len(months) != 2 {
		t.Fatalf("months = %d, want 2", len(months))
	}
	if months[0].Key != "2026-02" || months[1].Key != "2026-03" {
		t.Errorf("months out of order: %v", months)
	}
	if months[0].Label != "Fevereiro 2026" {
		t.Errorf("label = %q, want Fevereiro 2026", months[0].Label)
	}
}
