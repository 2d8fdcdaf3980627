package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"financas/internal/core"
	"financas/internal/finance"
	"financas/internal/store"
)

// --- view types ---
// Stored documents keep their ids out of the JSON body; the API adds
// them back, plus resolved statement items.

type statementView struct {
	ID     string              `json:"id"`
	Owner  core.Owner          `json:"pessoa"`
	Month  core.MonthKey       `json:"mes"`
	Card   string              `json:"cartao"`
	DueDay int                 `json:"vencimento,omitempty"`
	Total  core.Money          `json:"total"`
	Items  []statementItemView `json:"itens"`
}

type statementItemView struct {
	ID          string     `json:"id"`
	Name        string     `json:"nome"`
	Date        core.Date  `json:"data"`
	Installment string     `json:"parcela,omitempty"`
	Amount      core.Money `json:"valor"`
}

type transactionView struct {
	ID string `json:"id"`
	core.Transaction
}

type investmentView struct {
	ID string `json:"id"`
	core.Investment
}

type snapshotView struct {
	Incomes      []transactionView        `json:"receitas"`
	Expenses     []transactionView        `json:"gastos"`
	Statements   map[string]statementView `json:"faturas"`
	TotalIncome  core.Money               `json:"totalReceitas"`
	TotalExpense core.Money               `json:"totalGastos"`
	Balance      core.Money               `json:"saldo"`
}

func toStatementView(st core.Statement) statementView {
	items := make([]statementItemView, 0, len(st.Items))
	for _, item := range st.Items {
		items = append(items, statementItemView{
			ID:          item.ID,
			Name:        item.Name,
			Date:        item.Date,
			Installment: item.Installment,
			Amount:      item.Amount,
		})
	}
	return statementView{
		ID:     st.ID,
		Owner:  st.Owner,
		Month:  st.Month,
		Card:   st.Card,
		DueDay: st.DueDay,
		Total:  st.Total,
		Items:  items,
	}
}

func toTransactionViews(txs []core.Transaction) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, transactionView{ID: tx.ID, Transaction: tx})
	}
	return views
}

// --- months ---

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queries.ListMonths(r.Context()))
}

func (s *Server) handleMonthSnapshot(w http.ResponseWriter, r *http.Request) {
	month, owner, ok := s.monthAndOwner(w, r)
	if !ok {
		return
	}

	snapshot := s.queries.GetMonthSnapshot(r.Context(), owner, month)
	view := snapshotView{
		Incomes:      toTransactionViews(snapshot.Incomes),
		Expenses:     toTransactionViews(snapshot.Expenses),
		Statements:   make(map[string]statementView, len(snapshot.Statements)),
		TotalIncome:  snapshot.TotalIncome,
		TotalExpense: snapshot.TotalExpense,
		Balance:      snapshot.Balance,
	}
	for id, st := range snapshot.Statements {
		view.Statements[id] = toStatementView(st)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	month, owner, ok := s.monthAndOwner(w, r)
	if !ok {
		return
	}

	investments := s.queries.GetInvestments(r.Context(), owner, month)
	views := make([]investmentView, 0, len(investments))
	for id, inv := range investments {
		views = append(views, investmentView{ID: id, Investment: inv})
	}
	overview := s.queries.GetInvestmentOverview(r.Context(), owner, month)
	writeJSON(w, http.StatusOK, map[string]any{
		"investimentos": views,
		"total":         overview.Total,
		"cotacao":       overview.Rate,
	})
}

func (s *Server) handleGetExchangeRate(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonthKey(r.PathValue("mes"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mes":     month,
		"cotacao": s.queries.GetExchangeRate(r.Context(), month),
	})
}

func (s *Server) handleSetExchangeRate(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonthKey(r.PathValue("mes"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		Rate float64 `json:"cotacao"`
	}
	if !s.readJSON(w, r, &body) {
		return
	}
	if err := s.mutations.SetExchangeRate(r.Context(), month, body.Rate); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mes": month, "cotacao": body.Rate})
}

// --- transactions ---

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if !s.readJSON(w, r, &tx) {
		return
	}
	id, err := s.mutations.CreateTransaction(r.Context(), tx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.readFields(w, r)
	if !ok {
		return
	}
	if err := s.mutations.UpdateTransaction(r.Context(), r.PathValue("id"), fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.mutations.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// --- statements ---

func (s *Server) handleCreateStatement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Owner  core.Owner           `json:"pessoa"`
		Month  core.MonthKey        `json:"mes"`
		Card   string               `json:"cartao"`
		DueDay int                  `json:"vencimento"`
		Items  []core.StatementItem `json:"itens"`
	}
	if !s.readJSON(w, r, &body) {
		return
	}
	id, err := s.mutations.CreateStatement(r.Context(), core.Statement{
		Owner:  body.Owner,
		Month:  body.Month,
		Card:   body.Card,
		DueDay: body.DueDay,
		Items:  body.Items,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateStatement(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.readFields(w, r)
	if !ok {
		return
	}
	if err := s.mutations.UpdateStatement(r.Context(), r.PathValue("id"), fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteStatement(w http.ResponseWriter, r *http.Request) {
	if err := s.mutations.DeleteStatement(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleAddStatementItem(w http.ResponseWriter, r *http.Request) {
	var item core.StatementItem
	if !s.readJSON(w, r, &item) {
		return
	}
	id, err := s.mutations.AddStatementItem(r.Context(), r.PathValue("id"), item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateStatementItem(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.readFields(w, r)
	if !ok {
		return
	}
	if err := s.mutations.UpdateStatementItem(r.Context(), r.PathValue("id"), fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteStatementItem(w http.ResponseWriter, r *http.Request) {
	if err := s.mutations.DeleteStatementItem(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// --- investments ---

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var inv core.Investment
	if !s.readJSON(w, r, &inv) {
		return
	}
	id, err := s.mutations.CreateInvestment(r.Context(), inv)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateInvestment(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.readFields(w, r)
	if !ok {
		return
	}
	if err := s.mutations.UpdateInvestment(r.Context(), r.PathValue("id"), fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	if err := s.mutations.DeleteInvestment(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// --- rollover ---

func (s *Server) handleEnsureNextMonth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Month core.MonthKey `json:"mes"`
	}
	if !s.readJSON(w, r, &body) {
		return
	}
	target, generated, err := s.rollover.EnsureNextMonth(r.Context(), body.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"destino": target, "gerado": generated})
}

func (s *Server) handleRegenerateMonth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Source core.MonthKey `json:"origem"`
		Target core.MonthKey `json:"destino"`
	}
	if !s.readJSON(w, r, &body) {
		return
	}
	if err := body.Source.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := body.Target.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.rollover.RegenerateMonth(r.Context(), body.Source, body.Target); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.MonthKey{"destino": body.Target})
}

// --- helpers ---

func (s *Server) monthAndOwner(w http.ResponseWriter, r *http.Request) (core.MonthKey, core.Owner, bool) {
	month, err := core.ParseMonthKey(r.PathValue("mes"))
	if err != nil {
		s.writeError(w, r, err)
		return "", "", false
	}
	owner := core.Owner(r.URL.Query().Get("pessoa"))
	if owner == "" {
		owner = core.OwnerAll
	}
	if !owner.IsTracked() && owner != core.OwnerAll {
		s.writeError(w, r, core.ErrInvalidOwner)
		return "", "", false
	}
	return month, owner, true
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		slog.WarnContext(r.Context(), "Invalid request body", "error", err, "url", r.URL.Path)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (s *Server) readFields(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var fields map[string]any
	if !s.readJSON(w, r, &fields) {
		return nil, false
	}
	if len(fields) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty update"})
		return nil, false
	}
	return fields, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidOwner),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidMonthKey),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyCard),
		errors.Is(err, finance.ErrDerivedField):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
