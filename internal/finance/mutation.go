package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"financas/internal/core"
	"financas/internal/store"
)

// ErrDerivedField is returned when a caller tries to write a field the
// service owns, such as a statement's total.
var ErrDerivedField = errors.New("field is derived and cannot be set directly")

// MutationService is the write side. Unlike the query side, failures
// here are returned to the caller: a write the caller believes
// succeeded must actually have landed.
type MutationService struct {
	store store.Store
}

func NewMutationService(s store.Store) *MutationService {
	return &MutationService{store: s}
}

// --- transactions ---

func (m *MutationService) CreateTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	id, err := m.store.Push(ctx, store.Transactions, tx)
	if err != nil {
		slog.ErrorContext(ctx, "Transaction create failed", "owner", tx.Owner, "month", tx.Month, "error", err)
		return "", fmt.Errorf("create transaction: %w", err)
	}
	return id, nil
}

func (m *MutationService) UpdateTransaction(ctx context.Context, id string, fields map[string]any) error {
	if err := rejectSentinelOwner(fields); err != nil {
		return err
	}
	if err := rejectInvalidAmount(fields); err != nil {
		return err
	}
	if err := m.store.Update(ctx, store.Transactions, id, fields); err != nil {
		slog.ErrorContext(ctx, "Transaction update failed", "id", id, "error", err)
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	return nil
}

func (m *MutationService) DeleteTransaction(ctx context.Context, id string) error {
	if err := m.store.Remove(ctx, store.Transactions, id); err != nil {
		slog.ErrorContext(ctx, "Transaction delete failed", "id", id, "error", err)
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

// --- statements ---

// CreateStatement persists a statement and any initial line-items in
// one batch. Total is derived from the items, never taken from the
// caller.
func (m *MutationService) CreateStatement(ctx context.Context, st core.Statement) (string, error) {
	if err := st.Validate(); err != nil {
		return "", err
	}
	for _, item := range st.Items {
		if err := item.Validate(); err != nil {
			return "", err
		}
	}

	id := m.store.NewID()
	st.Total = core.SumItems(st.Items)

	ops := []store.Op{store.Set(store.Statements, id, st)}
	for _, item := range st.Items {
		item.StatementID = id
		ops = append(ops, store.Set(store.StatementItems, m.store.NewID(), item))
	}
	if err := m.store.BatchWrite(ctx, ops); err != nil {
		slog.ErrorContext(ctx, "Statement create failed", "owner", st.Owner, "month", st.Month, "error", err)
		return "", fmt.Errorf("create statement: %w", err)
	}
	return id, nil
}

func (m *MutationService) UpdateStatement(ctx context.Context, id string, fields map[string]any) error {
	if err := rejectSentinelOwner(fields); err != nil {
		return err
	}
	if _, ok := fields["total"]; ok {
		return fmt.Errorf("total: %w", ErrDerivedField)
	}
	if err := m.store.Update(ctx, store.Statements, id, fields); err != nil {
		slog.ErrorContext(ctx, "Statement update failed", "id", id, "error", err)
		return fmt.Errorf("update statement %s: %w", id, err)
	}
	return nil
}

// DeleteStatement removes a statement and all its line-items in one
// batch.
func (m *MutationService) DeleteStatement(ctx context.Context, id string) error {
	items, err := m.store.Query(ctx, store.StatementItems, "fatura", id, 0)
	if err != nil {
		slog.ErrorContext(ctx, "Statement item lookup failed", "statement", id, "error", err)
		return fmt.Errorf("delete statement %s: %w", id, err)
	}

	ops := make([]store.Op, 0, len(items)+1)
	for itemID := range items {
		ops = append(ops, store.Delete(store.StatementItems, itemID))
	}
	ops = append(ops, store.Delete(store.Statements, id))
	if err := m.store.BatchWrite(ctx, ops); err != nil {
		slog.ErrorContext(ctx, "Statement delete failed", "id", id, "error", err)
		return fmt.Errorf("delete statement %s: %w", id, err)
	}
	return nil
}

// AddStatementItem appends a line-item and recomputes the parent total
// before returning.
func (m *MutationService) AddStatementItem(ctx context.Context, statementID string, item core.StatementItem) (string, error) {
	if err := item.Validate(); err != nil {
		return "", err
	}
	if err := m.statementExists(ctx, statementID); err != nil {
		return "", err
	}
	item.StatementID = statementID

	id, err := m.store.Push(ctx, store.StatementItems, item)
	if err != nil {
		slog.ErrorContext(ctx, "Statement item create failed", "statement", statementID, "error", err)
		return "", fmt.Errorf("add statement item: %w", err)
	}
	if err := m.recomputeTotal(ctx, statementID); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateStatementItem merges fields into a line-item and recomputes the
// parent total before returning.
func (m *MutationService) UpdateStatementItem(ctx context.Context, id string, fields map[string]any) error {
	if _, ok := fields["fatura"]; ok {
		return fmt.Errorf("fatura: %w", ErrDerivedField)
	}
	if err := rejectInvalidAmount(fields); err != nil {
		return err
	}

	var stored core.StatementItem
	if err := m.store.Get(ctx, store.StatementItems, id, &stored); err != nil {
		return fmt.Errorf("update statement item %s: %w", id, err)
	}
	if err := m.store.Update(ctx, store.StatementItems, id, fields); err != nil {
		slog.ErrorContext(ctx, "Statement item update failed", "id", id, "error", err)
		return fmt.Errorf("update statement item %s: %w", id, err)
	}
	return m.recomputeTotal(ctx, stored.StatementID)
}

// DeleteStatementItem removes a line-item and recomputes the parent
// total before returning. Deleting an absent item is not an error.
func (m *MutationService) DeleteStatementItem(ctx context.Context, id string) error {
	var stored core.StatementItem
	err := m.store.Get(ctx, store.StatementItems, id, &stored)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete statement item %s: %w", id, err)
	}

	if err := m.store.Remove(ctx, store.StatementItems, id); err != nil {
		slog.ErrorContext(ctx, "Statement item delete failed", "id", id, "error", err)
		return fmt.Errorf("delete statement item %s: %w", id, err)
	}
	return m.recomputeTotal(ctx, stored.StatementID)
}

// --- investments ---

func (m *MutationService) CreateInvestment(ctx context.Context, inv core.Investment) (string, error) {
	if err := inv.Validate(); err != nil {
		return "", err
	}
	id, err := m.store.Push(ctx, store.Investments, inv)
	if err != nil {
		slog.ErrorContext(ctx, "Investment create failed", "owner", inv.Owner, "month", inv.Month, "error", err)
		return "", fmt.Errorf("create investment: %w", err)
	}
	return id, nil
}

func (m *MutationService) UpdateInvestment(ctx context.Context, id string, fields map[string]any) error {
	if err := rejectSentinelOwner(fields); err != nil {
		return err
	}
	if err := rejectInvalidAmount(fields); err != nil {
		return err
	}
	if err := m.store.Update(ctx, store.Investments, id, fields); err != nil {
		slog.ErrorContext(ctx, "Investment update failed", "id", id, "error", err)
		return fmt.Errorf("update investment %s: %w", id, err)
	}
	return nil
}

func (m *MutationService) DeleteInvestment(ctx context.Context, id string) error {
	if err := m.store.Remove(ctx, store.Investments, id); err != nil {
		slog.ErrorContext(ctx, "Investment delete failed", "id", id, "error", err)
		return fmt.Errorf("delete investment %s: %w", id, err)
	}
	return nil
}

// --- exchange rate ---

// SetExchangeRate overwrites the month's shared BRL/USD quote. The
// document is keyed by the month itself.
func (m *MutationService) SetExchangeRate(ctx context.Context, month core.MonthKey, rate float64) error {
	if err := month.Validate(); err != nil {
		return err
	}
	if rate <= 0 {
		return core.ErrInvalidAmount
	}
	err := m.store.BatchWrite(ctx, []store.Op{
		store.Set(store.Rates, string(month), core.ExchangeRate{Rate: rate}),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Exchange rate write failed", "month", month, "error", err)
		return fmt.Errorf("set exchange rate for %s: %w", month, err)
	}
	return nil
}

// --- helpers ---

func (m *MutationService) currentItems(ctx context.Context, statementID string) ([]core.StatementItem, error) {
	raw, err := m.store.Query(ctx, store.StatementItems, "fatura", statementID, 0)
	if err != nil {
		slog.ErrorContext(ctx, "Statement item lookup failed", "statement", statementID, "error", err)
		return nil, fmt.Errorf("load items of statement %s: %w", statementID, err)
	}
	items := make([]core.StatementItem, 0, len(raw))
	for id, body := range raw {
		var item core.StatementItem
		if err := json.Unmarshal(body, &item); err != nil {
			return nil, fmt.Errorf("decode statement item %s: %w", id, err)
		}
		item.ID = id
		items = append(items, item)
	}
	return items, nil
}

func (m *MutationService) recomputeTotal(ctx context.Context, statementID string) error {
	items, err := m.currentItems(ctx, statementID)
	if err != nil {
		return err
	}
	total := core.SumItems(items)
	if err := m.store.Update(ctx, store.Statements, statementID, map[string]any{"total": total.Cents}); err != nil {
		slog.ErrorContext(ctx, "Statement total recompute failed", "statement", statementID, "error", err)
		return fmt.Errorf("recompute total of statement %s: %w", statementID, err)
	}
	return nil
}

func (m *MutationService) statementExists(ctx context.Context, statementID string) error {
	var st core.Statement
	if err := m.store.Get(ctx, store.Statements, statementID, &st); err != nil {
		return fmt.Errorf("load statement %s: %w", statementID, err)
	}
	return nil
}

// rejectInvalidAmount keeps field merges from persisting a negative
// amount. Only the rollover engine writes negative amounts, and only
// for the carried-balance record.
func rejectInvalidAmount(fields map[string]any) error {
	v, ok := fields["valor"]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return core.ErrInvalidAmount
		}
	case int:
		if n < 0 {
			return core.ErrInvalidAmount
		}
	case int64:
		if n < 0 {
			return core.ErrInvalidAmount
		}
	case string:
		if _, err := core.ParseDecimalToCents(n); err != nil {
			return err
		}
	default:
		return core.ErrInvalidAmount
	}
	return nil
}

func rejectSentinelOwner(fields map[string]any) error {
	owner, ok := fields["pessoa"]
	if !ok {
		return nil
	}
	s, ok := owner.(string)
	if !ok || !core.Owner(s).IsTracked() {
		return core.ErrInvalidOwner
	}
	return nil
}
