// Package sheets defines the outbound export port and the row layout
// shared by its adapters.
package sheets

import (
	"context"

	"financas/internal/core"
)

// SnapshotExporter writes one (owner, month) snapshot to an external
// sheet.
type SnapshotExporter interface {
	ExportMonth(ctx context.Context, owner core.Owner, month core.MonthKey, snapshot core.MonthSnapshot) error
}

// SnapshotRows flattens a month snapshot into spreadsheet rows:
// owner, month, kind, date, category, description, amount in reais.
// Incomes come first, then expenses, then one summary row.
func SnapshotRows(owner core.Owner, month core.MonthKey, snapshot core.MonthSnapshot) [][]any {
	rows := make([][]any, 0, len(snapshot.Incomes)+len(snapshot.Expenses)+1)
	appendTx := func(txs []core.Transaction) {
		for _, tx := range txs {
			rows = append(rows, []any{
				string(owner),
				string(month),
				string(tx.Kind),
				tx.Date.String(),
				tx.Category,
				tx.Description,
				tx.Amount.Reais(),
			})
		}
	}
	appendTx(snapshot.Incomes)
	appendTx(snapshot.Expenses)

	rows = append(rows, []any{
		string(owner),
		string(month),
		"saldo",
		"",
		"",
		"",
		snapshot.Balance.Reais(),
	})
	return rows
}
