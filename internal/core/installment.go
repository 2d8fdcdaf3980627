package core

import (
	"fmt"
	"regexp"
	"strconv"
)

// InstallmentKind classifies a statement line-item's installment
// descriptor. Only Monthly and OfTotal items are eligible for
// carry-forward into the next cycle.
type InstallmentKind int

const (
	// InstallmentUnrecognized covers empty and free-text descriptors.
	// Never carried forward.
	InstallmentUnrecognized InstallmentKind = iota
	// InstallmentMonthly is the literal "Mensal": a recurring charge,
	// always carried unchanged.
	InstallmentMonthly
	// InstallmentOfTotal is "<k> de <n>": installment k of n. Carried
	// while k < n, advancing to k+1.
	InstallmentOfTotal
	// InstallmentOneOff is the literal "Única": a one-time purchase.
	InstallmentOneOff
)

// Installment is the parsed form of a descriptor. Current and Total are
// only meaningful for InstallmentOfTotal.
type Installment struct {
	Kind    InstallmentKind
	Current int
	Total   int
}

// "3 de 10", whitespace-tolerant, case-insensitive "de".
var installmentOfTotalRe = regexp.MustCompile(`^\s*(\d+)\s+(?i:de)\s+(\d+)\s*$`)

// ParseInstallment classifies a raw descriptor. It never fails:
// anything it does not recognize is InstallmentUnrecognized.
func ParseInstallment(s string) Installment {
	switch s {
	case "Mensal":
		return Installment{Kind: InstallmentMonthly}
	case "Única":
		return Installment{Kind: InstallmentOneOff}
	}
	if m := installmentOfTotalRe.FindStringSubmatch(s); m != nil {
		current, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return Installment{Kind: InstallmentOfTotal, Current: current, Total: total}
		}
	}
	return Installment{Kind: InstallmentUnrecognized}
}

// CarriesForward reports whether an item with this descriptor belongs
// on the next cycle's statement.
func (i Installment) CarriesForward() bool {
	switch i.Kind {
	case InstallmentMonthly:
		return true
	case InstallmentOfTotal:
		return i.Current < i.Total
	default:
		return false
	}
}

// Advance returns the descriptor for the next cycle. Monthly stays
// "Mensal"; "k de n" becomes "k+1 de n". Must only be called when
// CarriesForward is true.
func (i Installment) Advance() Installment {
	if i.Kind == InstallmentOfTotal {
		return Installment{Kind: InstallmentOfTotal, Current: i.Current + 1, Total: i.Total}
	}
	return i
}

// Descriptor renders the canonical raw form.
func (i Installment) Descriptor() string {
	switch i.Kind {
	case InstallmentMonthly:
		return "Mensal"
	case InstallmentOneOff:
		return "Única"
	case InstallmentOfTotal:
		return fmt.Sprintf("%d de %d", i.Current, i.Total)
	default:
		return ""
	}
}
