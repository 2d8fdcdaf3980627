package core

import "testing"

func TestParseInstallment(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Installment
	}{
		{
			name: "monthly literal",
			raw:  "Mensal",
			want: Installment{Kind: InstallmentMonthly},
		},
		{
			name: "one-off literal",
			raw:  "Única",
			want: Installment{Kind: InstallmentOneOff},
		},
		{
			name: "installment of total",
			raw:  "3 de 10",
			want: Installment{Kind: InstallmentOfTotal, Current: 3, Total: 10},
		},
		{
			name: "whitespace tolerant",
			raw:  "  7  de  12 ",
			want: Installment{Kind: InstallmentOfTotal, Current: 7, Total: 12},
		},
		{
			name: "case-insensitive separator",
			raw:  "2 DE 4",
			want: Installment{Kind: InstallmentOfTotal, Current: 2, Total: 4},
		},
		{
			name: "lowercase mensal is not the literal",
			raw:  "mensal",
			want: Installment{Kind: InstallmentUnrecognized},
		},
		{
			name: "empty descriptor",
			raw:  "",
			want: Installment{Kind: InstallmentUnrecognized},
		},
		{
			name: "free text",
			raw:  "Diária",
			want: Installment{Kind: InstallmentUnrecognized},
		},
		{
			name: "not a pattern",
			raw:  "3 of 10",
			want: Installment{Kind: InstallmentUnrecognized},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInstallment(tt.raw)
			if got != tt.want {
				t.Errorf("ParseInstallment(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestInstallment_CarriesForward(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "monthly always carries", raw: "Mensal", want: true},
		{name: "mid-plan carries", raw: "3 de 10", want: true},
		{name: "last installment does not carry", raw: "10 de 10", want: false},
		{name: "overrun does not carry", raw: "11 de 10", want: false},
		{name: "one-off does not carry", raw: "Única", want: false},
		{name: "unrecognized does not carry", raw: "sei lá", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseInstallment(tt.raw).CarriesForward(); got != tt.want {
				t.Errorf("CarriesForward(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestInstallment_Advance(t *testing.T) {
	adv := ParseInstallment("3 de 10").Advance()
	if adv.Descriptor() != "4 de 10" {
		t.Errorf("Advance(3 de 10) = %q, want %q", adv.Descriptor(), "4 de 10")
	}

	monthly := ParseInstallment("Mensal").Advance()
	if monthly.Descriptor() != "Mensal" {
		t.Errorf("Advance(Mensal) = %q, want %q", monthly.Descriptor(), "Mensal")
	}
}
