package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		Owner:    OwnerGabriel,
		Month:    "2026-02",
		Kind:     KindExpense,
		Category: "Boleto",
		Amount:   Money{Cents: 4354},
	}

	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr error
	}{
		{name: "valid", mutate: func(tx *Transaction) {}, wantErr: nil},
		{
			name:    "combined sentinel owner rejected",
			mutate:  func(tx *Transaction) { tx.Owner = OwnerAll },
			wantErr: ErrInvalidOwner,
		},
		{
			name:    "unknown owner",
			mutate:  func(tx *Transaction) { tx.Owner = "enrico" },
			wantErr: ErrInvalidOwner,
		},
		{
			name:    "bad month key",
			mutate:  func(tx *Transaction) { tx.Month = "2026/02" },
			wantErr: ErrInvalidMonthKey,
		},
		{
			name:    "bad kind",
			mutate:  func(tx *Transaction) { tx.Kind = "transferência" },
			wantErr: ErrInvalidKind,
		},
		{
			name:    "empty category",
			mutate:  func(tx *Transaction) { tx.Category = " " },
			wantErr: ErrEmptyCategory,
		},
		{
			name:    "negative amount",
			mutate:  func(tx *Transaction) { tx.Amount = Money{Cents: -1} },
			wantErr: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvestment_Validate(t *testing.T) {
	valid := Investment{
		Owner:    OwnerClara,
		Month:    "2026-02",
		Name:     "Reserva",
		Amount:   Money{Cents: 173800},
		Currency: CurrencyBRL,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	bad := valid
	bad.Currency = "EUR"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("Validate() = %v, want ErrInvalidCurrency", err)
	}
}

func TestTransaction_JSONRoundTrip(t *testing.T) {
	tx := Transaction{
		Owner:       OwnerGabriel,
		Month:       "2026-02",
		Kind:        KindIncome,
		Date:        NewDate(2026, 2, 5),
		Category:    "Pix",
		Description: "Salário XP",
		Amount:      Money{Cents: 320000},
	}

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Amount.Cents != 320000 {
		t.Errorf("amount = %d, want 320000", got.Amount.Cents)
	}
	if got.Date.String() != "05/02/2026" {
		t.Errorf("date = %q, want 05/02/2026", got.Date.String())
	}
	if got.Kind != KindIncome {
		t.Errorf("kind = %q, want %q", got.Kind, KindIncome)
	}
}

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "dot separator", raw: "12.34", want: 1234},
		{name: "comma separator", raw: "12,34", want: 1234},
		{name: "rounds half up", raw: "12.346", want: 1235},
		{name: "whole number", raw: "90", want: 9000},
		{name: "negative rejected", raw: "-5", wantErr: true},
		{name: "zero rejected", raw: "0", wantErr: true},
		{name: "garbage", raw: "dez", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}
