package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	// Tracked owners. Every record except the exchange rate belongs to
	// exactly one of them.
	OwnerGabriel Owner = "gabriel"
	OwnerClara   Owner = "clara"

	// OwnerAll is a read-side sentinel meaning "both owners combined".
	// Mutations reject it.
	OwnerAll Owner = "todos"

	KindIncome  Kind = "receita"
	KindExpense Kind = "gasto"

	CurrencyBRL Currency = "BRL"
	CurrencyUSD Currency = "USD"

	// Categories written by the rollover engine.
	CategoryCarryOver     = "Sobra do Mês passado"
	CategoryCardStatement = "Fatura cartão"

	// DefaultExchangeRate is the BRL/USD fallback when no rate was ever
	// stored for a month.
	DefaultExchangeRate = 5.45
)

type (
	Owner    string
	Kind     string
	Currency string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record. Amount is stored
	// non-negative; direction comes from Kind. The only exception is the
	// carried-forward balance record, which may be negative (a debt
	// marker, never clamped).
	Transaction struct {
		ID          string   `json:"-"`
		Owner       Owner    `json:"pessoa"`
		Month       MonthKey `json:"mes"`
		Kind        Kind     `json:"tipo"`
		Date        Date     `json:"data"`
		Category    string   `json:"categoria"`
		Description string   `json:"descricao,omitempty"`
		Amount      Money    `json:"valor"`
		Status      string   `json:"status,omitempty"`
		Origin      string   `json:"origem,omitempty"`
		Destination string   `json:"destino,omitempty"`
	}

	// Statement groups credit-card line-items for one card, one owner,
	// one month. Total is derived: it must always equal the sum of the
	// current line-item amounts and is recomputed after every item
	// mutation.
	Statement struct {
		ID     string   `json:"-"`
		Owner  Owner    `json:"pessoa"`
		Month  MonthKey `json:"mes"`
		Card   string   `json:"cartao"`
		DueDay int      `json:"vencimento,omitempty"`
		Total  Money    `json:"total"`

		// Items are resolved from their own collection; they are not part
		// of the stored statement document.
		Items []StatementItem `json:"-"`
	}

	// StatementItem is one charge on a statement. Installment holds the
	// raw descriptor ("Mensal", "3 de 10", "Única", free text); parse it
	// with ParseInstallment before taking decisions on it.
	StatementItem struct {
		ID          string `json:"-"`
		StatementID string `json:"fatura"`
		Name        string `json:"nome"`
		Date        Date   `json:"data"`
		Installment string `json:"parcela,omitempty"`
		Amount      Money  `json:"valor"`
	}

	// Investment is one named holding for one owner, one month. Foreign
	// (USD) positions are valued through the month's exchange rate.
	Investment struct {
		ID       string   `json:"-"`
		Owner    Owner    `json:"pessoa"`
		Month    MonthKey `json:"mes"`
		Name     string   `json:"nome"`
		Amount   Money    `json:"valor"`
		Currency Currency `json:"moeda"`
	}

	// ExchangeRate is the BRL/USD quote for one month, shared by both
	// owners.
	ExchangeRate struct {
		Rate float64 `json:"cotacao"`
	}

	// MonthEntry marks a month-key as known to the system. Written once
	// by the rollover engine after a successful generation.
	MonthEntry struct {
		Label     string    `json:"rotulo"`
		CreatedAt time.Time `json:"criadoEm"`
	}
)

var (
	ErrInvalidOwner    = errors.New("invalid owner")
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidMonthKey = errors.New("invalid month key")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyCard       = errors.New("empty card name")
)

// IsTracked reports whether o names a real owner (not the combined
// sentinel).
func (o Owner) IsTracked() bool {
	return o == OwnerGabriel || o == OwnerClara
}

// TrackedOwners returns the fixed owner set the rollover engine
// generates months for.
func TrackedOwners() []Owner {
	return []Owner{OwnerGabriel, OwnerClara}
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (c Currency) Valid() bool {
	return c == CurrencyBRL || c == CurrencyUSD
}

// MarshalJSON stores Money as a plain integer amount of cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cents)
}

// UnmarshalJSON accepts either an integer amount of cents or a decimal
// string such as "12,34" the way users type amounts.
func (m *Money) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		cents, err := ParseDecimalToCents(s)
		if err != nil {
			return err
		}
		m.Cents = cents
		return nil
	}
	return json.Unmarshal(data, &m.Cents)
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// Reais returns the value in reais for display purposes. Use cents for
// calculations.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

func (t Transaction) Validate() error {
	if !t.Owner.IsTracked() {
		return ErrInvalidOwner
	}
	if err := t.Month.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Statement) Validate() error {
	if !s.Owner.IsTracked() {
		return ErrInvalidOwner
	}
	if err := s.Month.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Card) == "" {
		return ErrEmptyCard
	}
	if s.DueDay < 0 || s.DueDay > 31 {
		return ErrInvalidDate
	}
	return nil
}

func (i StatementItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (v Investment) Validate() error {
	if !v.Owner.IsTracked() {
		return ErrInvalidOwner
	}
	if err := v.Month.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(v.Name) == "" {
		return ErrEmptyName
	}
	if v.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !v.Currency.Valid() {
		return ErrInvalidCurrency
	}
	return nil
}
