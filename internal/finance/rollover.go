package finance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
	"financas/internal/store"
)

// Rollover derives a new month's records from the previous one: the
// leftover balance becomes a carried income record, open installments
// advance one step, investment positions and the exchange rate are
// copied. All derived writes for one generation land in a single
// atomic batch.
//
// The engine is stateless between invocations; everything it needs is
// re-read from the store. The existence probe in EnsureNextMonth is
// advisory, not a lock: two concurrent invocations may both generate,
// and RegenerateMonth is the compensating repair for that.
type Rollover struct {
	store   store.Store
	queries *QueryService
	owners  []core.Owner
	now     func() time.Time
}

func NewRollover(s store.Store, q *QueryService, owners []core.Owner) *Rollover {
	return &Rollover{store: s, queries: q, owners: owners, now: time.Now}
}

// EnsureNextMonth makes sure the month after source exists and returns
// its key. If any transaction already carries the target month-key the
// call is a no-op and generated is false.
func (r *Rollover) EnsureNextMonth(ctx context.Context, source core.MonthKey) (target core.MonthKey, generated bool, err error) {
	if err := source.Validate(); err != nil {
		return "", false, err
	}
	target = source.Next()

	probe, err := r.store.Query(ctx, store.Transactions, "mes", string(target), 1)
	if err != nil {
		// The probe is advisory; treat an unreadable store as absent
		// and let the batch commit be the real gate.
		slog.WarnContext(ctx, "Existence probe failed, assuming month absent", "month", target, "error", err)
	}
	if len(probe) > 0 {
		slog.InfoContext(ctx, "Month already present, skipping generation", "month", target)
		return target, false, nil
	}

	if err := r.Generate(ctx, source, target); err != nil {
		return "", false, err
	}
	return target, true, nil
}

// Generate derives the target month from the source month for every
// configured owner and commits all of it in one batch. On success it
// records the target month in the registry.
func (r *Rollover) Generate(ctx context.Context, source, target core.MonthKey) error {
	var ops []store.Op
	for _, owner := range r.owners {
		ops = append(ops, r.ownerOps(ctx, owner, source, target)...)
	}

	if rate, ok := r.queries.StoredExchangeRate(ctx, source); ok {
		ops = append(ops, store.Set(store.Rates, string(target), core.ExchangeRate{Rate: rate}))
	}

	if err := r.store.BatchWrite(ctx, ops); err != nil {
		slog.ErrorContext(ctx, "Month generation commit failed", "source", source, "target", target, "error", err)
		return fmt.Errorf("generate month %s: %w", target, err)
	}
	slog.InfoContext(ctx, "Month generated", "source", source, "target", target, "writes", len(ops))

	entry := core.MonthEntry{Label: target.Label(), CreatedAt: r.now().UTC()}
	err := r.store.BatchWrite(ctx, []store.Op{store.Set(store.Months, string(target), entry)})
	if err != nil {
		return fmt.Errorf("register month %s: %w", target, err)
	}
	return nil
}

// RegenerateMonth deletes everything recorded under the target month,
// for all owners, and generates it again from the source month. This
// is a destructive repair tool; callers confirm, the engine does not.
func (r *Rollover) RegenerateMonth(ctx context.Context, source, target core.MonthKey) error {
	var ops []store.Op
	for _, collection := range []string{store.Transactions, store.Statements, store.Investments} {
		docs, err := r.store.Query(ctx, collection, "mes", string(target), 0)
		if err != nil {
			return fmt.Errorf("collect %s of month %s: %w", collection, target, err)
		}
		for id := range docs {
			ops = append(ops, store.Delete(collection, id))
			if collection != store.Statements {
				continue
			}
			items, err := r.store.Query(ctx, store.StatementItems, "fatura", id, 0)
			if err != nil {
				return fmt.Errorf("collect items of statement %s: %w", id, err)
			}
			for itemID := range items {
				ops = append(ops, store.Delete(store.StatementItems, itemID))
			}
		}
	}
	ops = append(ops,
		store.Delete(store.Rates, string(target)),
		store.Delete(store.Months, string(target)))

	if err := r.store.BatchWrite(ctx, ops); err != nil {
		slog.ErrorContext(ctx, "Month wipe failed", "month", target, "error", err)
		return fmt.Errorf("wipe month %s: %w", target, err)
	}
	slog.InfoContext(ctx, "Month wiped for regeneration", "month", target, "deletes", len(ops))

	return r.Generate(ctx, source, target)
}

// ownerOps queues one owner's derived writes: the balance carry, the
// advanced statements with their items and due transactions, and the
// investment copies.
func (r *Rollover) ownerOps(ctx context.Context, owner core.Owner, source, target core.MonthKey) []store.Op {
	snapshot := r.queries.GetMonthSnapshot(ctx, owner, source)

	// The leftover balance becomes next month's first income record.
	// A negative balance is carried as-is: a debt marker, not clamped.
	carry := core.Transaction{
		Owner:    owner,
		Month:    target,
		Kind:     core.KindIncome,
		Date:     target.FirstDay(),
		Category: core.CategoryCarryOver,
		Amount:   snapshot.Balance,
	}
	ops := []store.Op{store.Set(store.Transactions, r.store.NewID(), carry)}

	for _, st := range snapshot.Statements {
		ops = append(ops, r.statementOps(owner, st, target)...)
	}

	for _, inv := range r.queries.GetInvestments(ctx, owner, source) {
		copied := core.Investment{
			Owner:    owner,
			Month:    target,
			Name:     inv.Name,
			Amount:   inv.Amount,
			Currency: inv.Currency,
		}
		ops = append(ops, store.Set(store.Investments, r.store.NewID(), copied))
	}
	return ops
}

// statementOps carries one statement into the target month: eligible
// line-items advance, the rest are dropped, and a positive total also
// queues the month's due expense.
func (r *Rollover) statementOps(owner core.Owner, st core.Statement, target core.MonthKey) []store.Op {
	var carried []core.StatementItem
	for _, item := range st.Items {
		plan := core.ParseInstallment(item.Installment)
		if !plan.CarriesForward() {
			continue
		}
		carried = append(carried, core.StatementItem{
			Name:        item.Name,
			Date:        item.Date,
			Installment: plan.Advance().Descriptor(),
			Amount:      item.Amount,
		})
	}
	if len(carried) == 0 {
		return nil
	}

	statementID := r.store.NewID()
	total := core.SumItems(carried)
	next := core.Statement{
		Owner:  owner,
		Month:  target,
		Card:   st.Card,
		DueDay: st.DueDay,
		Total:  total,
	}
	ops := []store.Op{store.Set(store.Statements, statementID, next)}
	for _, item := range carried {
		item.StatementID = statementID
		ops = append(ops, store.Set(store.StatementItems, r.store.NewID(), item))
	}

	if total.Cents > 0 {
		due := core.Transaction{
			Owner:       owner,
			Month:       target,
			Kind:        core.KindExpense,
			Date:        dueDate(st.DueDay, target),
			Category:    core.CategoryCardStatement,
			Description: st.Card,
			Amount:      total,
		}
		ops = append(ops, store.Set(store.Transactions, r.store.NewID(), due))
	}
	return ops
}

// dueDate places a statement's due-day in the target month, clamped to
// its last day. A missing due-day yields no date.
func dueDate(dueDay int, target core.MonthKey) core.Date {
	if dueDay <= 0 {
		return core.Date{}
	}
	return core.NewDate(target.Year(), target.MonthNumber(), min(dueDay, target.LastDay()))
}
