// Package finance holds the application layers on top of the document
// store: the Query layer (read side), the Mutation layer (write side)
// and the Rollover engine that derives a new month from the previous
// one.
package finance

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sort"

	"financas/internal/core"
	"financas/internal/store"

	"golang.org/x/sync/errgroup"
)

// QueryService is the read side. Store failures never propagate to the
// caller: every method degrades to an empty or default result and logs
// the cause, so callers treat "no data" and "store unreachable" the
// same way.
type QueryService struct {
	store store.Store
}

func NewQueryService(s store.Store) *QueryService {
	return &QueryService{store: s}
}

// MonthListing is one entry of the month registry, for UI selectors.
type MonthListing struct {
	Key   core.MonthKey `json:"mes"`
	Label string        `json:"rotulo"`
}

// GetTransactions returns the month's transactions for one owner,
// partitioned by kind and sorted newest first. OwnerAll combines both
// tracked owners.
func (q *QueryService) GetTransactions(ctx context.Context, owner core.Owner, month core.MonthKey) core.TransactionsByKind {
	var result core.TransactionsByKind
	for _, tx := range q.transactionsFor(ctx, owner, month) {
		switch tx.Kind {
		case core.KindIncome:
			result.Incomes = append(result.Incomes, tx)
		case core.KindExpense:
			result.Expenses = append(result.Expenses, tx)
		}
	}
	core.SortTransactionsByDateDesc(result.Incomes)
	core.SortTransactionsByDateDesc(result.Expenses)
	return result
}

// GetStatements returns the month's card statements keyed by id, with
// line-items resolved from their own collection.
func (q *QueryService) GetStatements(ctx context.Context, owner core.Owner, month core.MonthKey) map[string]core.Statement {
	result := make(map[string]core.Statement)
	for _, o := range expandOwner(owner) {
		raw, err := q.store.Query(ctx, store.Statements, "pessoa", string(o), 0)
		if err != nil {
			slog.WarnContext(ctx, "Statement query failed, returning empty", "owner", o, "month", month, "error", err)
			continue
		}
		for id, body := range raw {
			var st core.Statement
			if err := json.Unmarshal(body, &st); err != nil {
				slog.WarnContext(ctx, "Skipping undecodable statement", "id", id, "error", err)
				continue
			}
			if st.Month != month {
				continue
			}
			st.ID = id
			st.Items = q.statementItems(ctx, id)
			result[id] = st
		}
	}
	return result
}

// GetInvestments returns the month's investment positions keyed by id.
func (q *QueryService) GetInvestments(ctx context.Context, owner core.Owner, month core.MonthKey) map[string]core.Investment {
	result := make(map[string]core.Investment)
	for _, o := range expandOwner(owner) {
		raw, err := q.store.Query(ctx, store.Investments, "pessoa", string(o), 0)
		if err != nil {
			slog.WarnContext(ctx, "Investment query failed, returning empty", "owner", o, "month", month, "error", err)
			continue
		}
		for id, body := range raw {
			var inv core.Investment
			if err := json.Unmarshal(body, &inv); err != nil {
				slog.WarnContext(ctx, "Skipping undecodable investment", "id", id, "error", err)
				continue
			}
			if inv.Month != month {
				continue
			}
			inv.ID = id
			result[id] = inv
		}
	}
	return result
}

// GetMonthSnapshot composes transactions, statements and investments
// for one (owner, month) pair, reading the three collections
// concurrently. This is the only place a month's balance is computed;
// the rollover engine carries exactly this figure forward.
func (q *QueryService) GetMonthSnapshot(ctx context.Context, owner core.Owner, month core.MonthKey) core.MonthSnapshot {
	var (
		txs        core.TransactionsByKind
		statements map[string]core.Statement
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs = q.GetTransactions(gctx, owner, month)
		return nil
	})
	g.Go(func() error {
		statements = q.GetStatements(gctx, owner, month)
		return nil
	})
	_ = g.Wait() // sub-reads degrade instead of erroring

	snapshot := core.MonthSnapshot{
		Incomes:    txs.Incomes,
		Expenses:   txs.Expenses,
		Statements: statements,
	}
	snapshot.TotalIncome = core.SumAmounts(snapshot.Incomes)
	snapshot.TotalExpense = core.SumAmounts(snapshot.Expenses)
	snapshot.Balance = snapshot.TotalIncome.Sub(snapshot.TotalExpense)
	return snapshot
}

// StoredExchangeRate returns the rate recorded for the month, if any.
// Unlike GetExchangeRate it does not fall back to the default, so the
// rollover engine can tell "set" from "unset".
func (q *QueryService) StoredExchangeRate(ctx context.Context, month core.MonthKey) (float64, bool) {
	var rate core.ExchangeRate
	err := q.store.Get(ctx, store.Rates, string(month), &rate)
	if err != nil {
		if err != store.ErrNotFound {
			slog.WarnContext(ctx, "Exchange rate read failed", "month", month, "error", err)
		}
		return 0, false
	}
	return rate.Rate, true
}

// GetExchangeRate returns the month's BRL/USD rate, or the default
// when none was stored.
func (q *QueryService) GetExchangeRate(ctx context.Context, month core.MonthKey) float64 {
	if rate, ok := q.StoredExchangeRate(ctx, month); ok {
		return rate
	}
	return core.DefaultExchangeRate
}

// GetInvestmentOverview values the month's combined portfolio:
// local (BRL) positions at face value, foreign (USD) positions through
// the month's exchange rate.
func (q *QueryService) GetInvestmentOverview(ctx context.Context, owner core.Owner, month core.MonthKey) core.InvestmentOverview {
	rate := q.GetExchangeRate(ctx, month)

	var total core.Money
	for _, inv := range q.GetInvestments(ctx, owner, month) {
		if inv.Currency == core.CurrencyUSD {
			total = total.Add(core.Money{Cents: int64(math.Round(float64(inv.Amount.Cents) * rate))})
			continue
		}
		total = total.Add(inv.Amount)
	}
	return core.InvestmentOverview{Total: total, Rate: rate}
}

// ListMonths returns the month registry ordered by key, oldest first.
func (q *QueryService) ListMonths(ctx context.Context) []MonthListing {
	raw, err := q.store.List(ctx, store.Months)
	if err != nil {
		slog.WarnContext(ctx, "Month registry read failed, returning empty", "error", err)
		return nil
	}

	months := make([]MonthListing, 0, len(raw))
	for key, body := range raw {
		var entry core.MonthEntry
		if err := json.Unmarshal(body, &entry); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable month entry", "month", key, "error", err)
			continue
		}
		months = append(months, MonthListing{Key: core.MonthKey(key), Label: entry.Label})
	}
	sort.Slice(months, func(a, b int) bool { return months[a].Key < months[b].Key })
	return months
}

func (q *QueryService) transactionsFor(ctx context.Context, owner core.Owner, month core.MonthKey) []core.Transaction {
	var txs []core.Transaction
	for _, o := range expandOwner(owner) {
		raw, err := q.store.Query(ctx, store.Transactions, "pessoa", string(o), 0)
		if err != nil {
			slog.WarnContext(ctx, "Transaction query failed, returning empty", "owner", o, "month", month, "error", err)
			continue
		}
		for id, body := range raw {
			var tx core.Transaction
			if err := json.Unmarshal(body, &tx); err != nil {
				slog.WarnContext(ctx, "Skipping undecodable transaction", "id", id, "error", err)
				continue
			}
			if tx.Month != month {
				continue
			}
			tx.ID = id
			txs = append(txs, tx)
		}
	}
	return txs
}

func (q *QueryService) statementItems(ctx context.Context, statementID string) []core.StatementItem {
	raw, err := q.store.Query(ctx, store.StatementItems, "fatura", statementID, 0)
	if err != nil {
		slog.WarnContext(ctx, "Statement item query failed, returning empty", "statement", statementID, "error", err)
		return nil
	}

	items := make([]core.StatementItem, 0, len(raw))
	for id, body := range raw {
		var item core.StatementItem
		if err := json.Unmarshal(body, &item); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable statement item", "id", id, "error", err)
			continue
		}
		item.ID = id
		items = append(items, item)
	}
	// Stable order for callers; the store's map has none.
	sort.Slice(items, func(a, b int) bool { return items[a].ID < items[b].ID })
	return items
}

// expandOwner resolves the combined sentinel into the tracked owner
// set.
func expandOwner(owner core.Owner) []core.Owner {
	if owner == core.OwnerAll {
		return core.TrackedOwners()
	}
	return []core.Owner{owner}
}
