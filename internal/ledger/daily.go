package ledger

import (
	"sort"
	"strings"

	"bistro/internal/core"

	"github.com/shopspring/decimal"
)

// DailyIncome is one row of the income sheet.
type DailyIncome struct {
	Date    string `json:"date"`
	Weekday string `json:"day"`
	// Total is sales revenue; gratuity is kept apart in Tips.
	Total  decimal.Decimal `json:"total"`
	Tips   decimal.Decimal `json:"tips"`
	Cash   decimal.Decimal `json:"cash"`
	Card   decimal.Decimal `json:"card"`
	EFT    decimal.Decimal `json:"eft"`
	Charge decimal.Decimal `json:"charge"`
	Covers int             `json:"covers"`

	Transactions []core.Transaction `json:"transactions"`
}

var eftKeywords = []string{"check", "eft", "ach", "bank transfer", "direct deposit"}

// AggregateDailyIncome groups income transactions by date, most recent day
// first. Expense records in the input are ignored.
//
// Sales (everything that is not gratuity) are split over the cash, card,
// charge and EFT columns by a case-insensitive match on the payment method.
// A method that matches no column counts only towards Total, and a method
// that matches several columns is added to each of them.
func AggregateDailyIncome(txs []core.Transaction) []DailyIncome {
	groups := make(map[string]*DailyIncome)
	for _, t := range txs {
		if t.Type != core.Income {
			continue
		}
		key := t.Date.String()
		g, ok := groups[key]
		if !ok {
			g = &DailyIncome{Date: key, Weekday: t.Date.Format("Mon")}
			groups[key] = g
		}
		g.Transactions = append(g.Transactions, t)
		g.Covers += t.Covers

		if t.Category.IsTips() {
			g.Tips = g.Tips.Add(t.Amount)
			continue
		}
		g.Total = g.Total.Add(t.Amount)

		method := strings.ToLower(t.PaymentMethod)
		if strings.Contains(method, "cash") {
			g.Cash = g.Cash.Add(t.Amount)
		}
		if strings.Contains(method, "card") {
			g.Card = g.Card.Add(t.Amount)
		}
		if strings.Contains(method, "account") {
			g.Charge = g.Charge.Add(t.Amount)
		}
		if containsAny(method, eftKeywords) {
			g.EFT = g.EFT.Add(t.Amount)
		}
	}

	out := make([]DailyIncome, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
