// Package core holds the domain types shared by the query, mutation and
// rollover layers: month keys, dates, money, transactions, statements,
// investments and the installment grammar.
package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthKey is the canonical "YYYY-MM" period identifier used as the
// join key across all entity types. Keys compare chronologically as
// plain strings.
type MonthKey string

var monthLabels = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// NewMonthKey builds a key from a calendar year and month (1-12).
func NewMonthKey(year, month int) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, month))
}

// CurrentMonthKey returns the key for the real current month.
func CurrentMonthKey(now time.Time) MonthKey {
	return NewMonthKey(now.Year(), int(now.Month()))
}

// ParseMonthKey validates and normalizes a "YYYY-MM" string.
func ParseMonthKey(s string) (MonthKey, error) {
	mk := MonthKey(strings.TrimSpace(s))
	if err := mk.Validate(); err != nil {
		return "", err
	}
	return mk, nil
}

func (mk MonthKey) Validate() error {
	if len(mk) != 7 || mk[4] != '-' {
		return ErrInvalidMonthKey
	}
	year, err := strconv.Atoi(string(mk[:4]))
	if err != nil || year < 1 {
		return ErrInvalidMonthKey
	}
	month, err := strconv.Atoi(string(mk[5:]))
	if err != nil || month < 1 || month > 12 {
		return ErrInvalidMonthKey
	}
	return nil
}

func (mk MonthKey) Year() int {
	y, _ := strconv.Atoi(string(mk[:4]))
	return y
}

func (mk MonthKey) MonthNumber() int {
	m, _ := strconv.Atoi(string(mk[5:]))
	return m
}

// Next returns the calendar successor; December rolls the year over.
func (mk MonthKey) Next() MonthKey {
	year, month := mk.Year(), mk.MonthNumber()
	month++
	if month > 12 {
		month = 1
		year++
	}
	return NewMonthKey(year, month)
}

// FirstDay returns the first day of the month as a Date.
func (mk MonthKey) FirstDay() Date {
	return NewDate(mk.Year(), mk.MonthNumber(), 1)
}

// LastDay returns the number of days in the month.
func (mk MonthKey) LastDay() int {
	return time.Date(mk.Year(), time.Month(mk.MonthNumber())+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Label returns the display label, e.g. "Março 2026".
func (mk MonthKey) Label() string {
	return fmt.Sprintf("%s %d", monthLabels[mk.MonthNumber()-1], mk.Year())
}

// Date is a calendar day in the original's "DD/MM/YYYY" wire format.
// The zero value means "no date"; absent dates serialize as "".
type Date struct {
	Day   int
	Month int
	Year  int
}

func NewDate(year, month, day int) Date {
	return Date{Day: day, Month: month, Year: year}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// ParseDate accepts "DD/MM/YYYY" or an empty string (no date).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Date{}, ErrInvalidDate
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, ErrInvalidDate
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1 {
		return Date{}, ErrInvalidDate
	}
	return Date{Day: day, Month: month, Year: year}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// Before orders dates chronologically. Zero dates compare before
// everything; callers that need "missing last" must handle zero dates
// explicitly (see SortTransactionsByDateDesc).
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
