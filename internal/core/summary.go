package core

import "github.com/shopspring/decimal"

// CategoryTotal is an amount aggregated by category label.
type CategoryTotal struct {
	Category string `json:"category"`
	// Label drops the "COGS - " style prefix for charts.
	Label  string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// DailyTotals is one point on the income vs expense timeline.
type DailyTotals struct {
	Date     string          `json:"date"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expense"`
}

// Summary holds the headline figures for a set of transactions.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetProfit     decimal.Decimal `json:"netProfit"`
	// ProfitMargin is a percentage of income, zero when there is no income.
	ProfitMargin decimal.Decimal `json:"profitMargin"`
}
