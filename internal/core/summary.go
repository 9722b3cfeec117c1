package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthSummary holds one calendar month of a yearly report.
type MonthSummary struct {
	Month   int   `json:"month"` // 1-12
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Savings Money `json:"savings"`
	// Percent changes against the previous month, see PercentChange.
	IncomeChange  float64 `json:"incomeChange"`
	SavingsChange float64 `json:"savingsChange"`
}

// Totals is the all-time income and expense sum for a user.
type Totals struct {
	Income  Money `json:"totalIncome"`
	Expense Money `json:"totalExpense"`
	Net     Money `json:"net"`
}

// YearReport is the chart payload for one year.
type YearReport struct {
	Year       int              `json:"year"`
	Months     []MonthSummary   `json:"months"`
	Totals     Totals           `json:"totals"`
	ByCategory []CategoryAmount `json:"expensesByCategory"`
}

var hundred = decimal.NewFromInt(100)

// PercentChange compares cur with prev: 100 when prev is zero, otherwise
// (cur-prev)/prev*100 rounded to one decimal place. The first month of a
// series has no predecessor and callers report 0 for it.
func PercentChange(prev, cur Money) float64 {
	if prev.IsZero() {
		return 100
	}
	p := cur.d.Sub(prev.d).Div(prev.d).Mul(hundred).Round(1)
	return p.InexactFloat64()
}

// MonthlySeries buckets txs into twelve months by transaction date. A zero
// year folds every year into the same twelve buckets.
func MonthlySeries(txs []Transaction, year int) []MonthSummary {
	months := make([]MonthSummary, 12)
	for i := range months {
		months[i].Month = i + 1
	}
	for _, t := range txs {
		if t.Date.IsZero() || (year != 0 && t.Date.Year() != year) {
			continue
		}
		m := &months[int(t.Date.Month())-1]
		switch t.Kind {
		case KindIncome:
			m.Income = m.Income.Add(t.Amount)
		case KindExpense:
			m.Expense = m.Expense.Add(t.Amount)
		}
	}
	for i := range months {
		months[i].Savings = months[i].Income.Sub(months[i].Expense)
		if i == 0 {
			continue
		}
		months[i].IncomeChange = PercentChange(months[i-1].Income, months[i].Income)
		months[i].SavingsChange = PercentChange(months[i-1].Savings, months[i].Savings)
	}
	return months
}

// SumTotals returns all-time income and expense totals.
func SumTotals(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Kind {
		case KindIncome:
			t.Income = t.Income.Add(tx.Amount)
		case KindExpense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expense)
	return t
}

// CategoryBreakdown sums the amounts of one kind per category, largest first.
func CategoryBreakdown(txs []Transaction, kind Kind, year int) []CategoryAmount {
	sums := make(map[string]Money)
	for _, t := range txs {
		if t.Kind != kind || (year != 0 && t.Date.Year() != year) {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(t.Amount)
	}
	out := make([]CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// BuildYearReport assembles the chart payload for year.
func BuildYearReport(txs []Transaction, year int) YearReport {
	return YearReport{
		Year:       year,
		Months:     MonthlySeries(txs, year),
		Totals:     SumTotals(txs),
		ByCategory: CategoryBreakdown(txs, KindExpense, year),
	}
}

// FilterKind keeps the transactions of one kind, preserving order. An empty
// kind keeps everything.
func FilterKind(txs []Transaction, kind Kind) []Transaction {
	if kind == "" {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}
