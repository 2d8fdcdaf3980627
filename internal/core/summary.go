package core

import "sort"

// TransactionsByKind is the partitioned result of a month's
// transaction query.
type TransactionsByKind struct {
	Incomes  []Transaction
	Expenses []Transaction
}

// MonthSnapshot is the single composed read for one (owner, month)
// pair. Balance here is the only place a month's balance is computed;
// the rollover engine carries exactly this figure forward.
type MonthSnapshot struct {
	Incomes      []Transaction
	Expenses     []Transaction
	Statements   map[string]Statement
	TotalIncome  Money
	TotalExpense Money
	Balance      Money
}

// InvestmentOverview is the combined portfolio value for one month.
type InvestmentOverview struct {
	Total Money
	Rate  float64
}

// SumAmounts totals a transaction list.
func SumAmounts(txs []Transaction) Money {
	var total Money
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}

// SumItems totals a statement's line-items. The statement invariant is
// Total == SumItems(Items) after every item mutation.
func SumItems(items []StatementItem) Money {
	var total Money
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

// SortTransactionsByDateDesc orders newest first; records without a
// date sort last. The sort is stable so equal dates keep store order.
func SortTransactionsByDateDesc(txs []Transaction) {
	sort.SliceStable(txs, func(a, b int) bool {
		da, db := txs[a].Date, txs[b].Date
		if da.IsZero() {
			return false
		}
		if db.IsZero() {
			return true
		}
		return db.Before(da)
	})
}
