package ledger

import (
	"sort"
	"strings"

	"bistro/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summarize totals income and expenses. The margin is rounded to two places.
func Summarize(txs []core.Transaction) core.Summary {
	var s core.Summary
	for _, t := range txs {
		if t.Type == core.Income {
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		} else {
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
	}
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpenses)
	if s.TotalIncome.IsPositive() {
		s.ProfitMargin = s.NetProfit.Div(s.TotalIncome).Mul(hundred).Round(2)
	}
	return s
}

// Timeline returns income and expenses per date, oldest first.
func Timeline(txs []core.Transaction) []core.DailyTotals {
	byDate := make(map[string]*core.DailyTotals)
	for _, t := range txs {
		key := t.Date.String()
		d, ok := byDate[key]
		if !ok {
			d = &core.DailyTotals{Date: key}
			byDate[key] = d
		}
		if t.Type == core.Income {
			d.Income = d.Income.Add(t.Amount)
		} else {
			d.Expenses = d.Expenses.Add(t.Amount)
		}
	}
	out := make([]core.DailyTotals, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ExpensesByCategory returns expense totals per category, largest first.
func ExpensesByCategory(txs []core.Transaction) []core.CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		key := t.Category.String()
		totals[key] = totals[key].Add(t.Amount)
	}
	out := make([]core.CategoryTotal, 0, len(totals))
	for cat, amount := range totals {
		out = append(out, core.CategoryTotal{Category: cat, Label: shortLabel(cat), Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// shortLabel keeps the part after the last " - ".
func shortLabel(cat string) string {
	if i := strings.LastIndex(cat, " - "); i >= 0 && i+3 < len(cat) {
		return cat[i+3:]
	}
	return cat
}
