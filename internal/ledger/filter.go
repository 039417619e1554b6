package ledger

import (
	"fmt"
	"strings"

	"bistro/internal/core"
)

// SubFilter narrows the income or expense list to one bucket.
type SubFilter string

const (
	SubFilterAll SubFilter = "ALL"

	// Expense buckets
	SubFilterSalary    SubFilter = "SALARY"
	SubFilterRM        SubFilter = "RM"
	SubFilterFood      SubFilter = "FOOD"
	SubFilterAlcohol   SubFilter = "ALCOHOL"
	SubFilterPettyCash SubFilter = "PETTY_CASH"
	SubFilterRent      SubFilter = "RENT"
	SubFilterUtilities SubFilter = "UTILITIES"
	SubFilterOps       SubFilter = "OPS"

	// Income buckets
	SubFilterCash    SubFilter = "CASH"
	SubFilterCard    SubFilter = "CARD"
	SubFilterAccount SubFilter = "ACCOUNT"
	SubFilterTips    SubFilter = "TIPS"
)

var (
	expenseSubFilters = []SubFilter{
		SubFilterSalary, SubFilterRM, SubFilterFood, SubFilterAlcohol,
		SubFilterPettyCash, SubFilterRent, SubFilterUtilities, SubFilterOps,
	}
	incomeSubFilters = []SubFilter{SubFilterCash, SubFilterCard, SubFilterAccount, SubFilterTips}
)

// ParseSubFilter accepts any known tag in any case; empty means ALL.
func ParseSubFilter(s string) (SubFilter, error) {
	f := SubFilter(strings.ToUpper(strings.TrimSpace(s)))
	if f == "" || f == SubFilterAll {
		return SubFilterAll, nil
	}
	if f.AppliesTo() == "" {
		return "", fmt.Errorf("unknown sub-filter %q", s)
	}
	return f, nil
}

// AppliesTo returns the transaction type whose list the filter belongs to,
// or "" for ALL and unknown tags.
func (f SubFilter) AppliesTo() core.TransactionType {
	for _, e := range expenseSubFilters {
		if f == e {
			return core.Expense
		}
	}
	for _, i := range incomeSubFilters {
		if f == i {
			return core.Income
		}
	}
	return ""
}

// Matches reports whether t belongs in bucket f. Category checks accept the
// canonical category and the short label older CSV templates used.
func Matches(t core.Transaction, f SubFilter) bool {
	method := strings.ToLower(t.PaymentMethod)
	cat := t.Category

	switch f {
	case SubFilterAll:
		return true

	case SubFilterCash:
		return strings.Contains(method, "cash") && !cat.IsTips()
	case SubFilterCard:
		return strings.Contains(method, "card")
	case SubFilterAccount:
		return strings.Contains(method, "account")
	case SubFilterTips:
		return cat.IsTips()

	case SubFilterSalary:
		return cat.Contains("Labor") || cat.Equals(core.LegacySalary)
	case SubFilterRM:
		return cat.Contains("Repairs") || cat.Equals(core.LegacyRM)
	case SubFilterFood:
		return cat.Is(core.CogsFood) || cat.Equals(core.LegacyFood)
	case SubFilterAlcohol:
		return cat.Is(core.CogsBeverage) || cat.Equals(core.LegacyAlcohol)
	case SubFilterRent:
		return cat.Is(core.Rent) || cat.Equals(core.LegacyRent)
	case SubFilterUtilities:
		return cat.Is(core.Utilities) || cat.Equals(core.LegacyUtilities)
	case SubFilterPettyCash:
		return strings.Contains(method, "cash") || cat.Equals(core.LegacyPettyCash)
	case SubFilterOps:
		return cat.Is(core.Supplies, core.Admin, core.Marketing, core.Other) ||
			cat.Equals(core.LegacyOperational)
	}
	return false
}

// EntryDefaults are the pre-filled values for a new transaction.
type EntryDefaults struct {
	Type          core.TransactionType `json:"type"`
	Category      core.Category        `json:"category"`
	PaymentMethod string               `json:"paymentMethod"`
}

// Defaults returns the pre-filled values for an entry made while the list
// is narrowed to typ and f. forcedMethod, when set, wins over the generic
// card default but not over a bucket-specific method.
func (f SubFilter) Defaults(typ core.TransactionType, forcedMethod string) EntryDefaults {
	d := EntryDefaults{
		Type:          typ,
		Category:      core.ParseCategory(core.LegacyOperational),
		PaymentMethod: "Credit Card",
	}
	if typ == "" {
		d.Type = core.Expense
	}
	if forcedMethod != "" {
		d.PaymentMethod = forcedMethod
	}

	switch typ {
	case core.Income:
		d.Category = core.NewCategory(core.FoodSales)
		switch f {
		case SubFilterCash:
			d.PaymentMethod = "Cash"
		case SubFilterCard:
			d.PaymentMethod = "Credit Card"
		case SubFilterAccount:
			d.PaymentMethod = "Account"
		case SubFilterTips:
			d.Category = core.NewCategory(core.Tips)
			d.PaymentMethod = "Cash"
		}
	case core.Expense:
		label := map[SubFilter]string{
			SubFilterSalary:    core.LegacySalary,
			SubFilterRM:        core.LegacyRM,
			SubFilterFood:      core.LegacyFood,
			SubFilterAlcohol:   core.LegacyAlcohol,
			SubFilterPettyCash: core.LegacyPettyCash,
			SubFilterRent:      core.LegacyRent,
			SubFilterUtilities: core.LegacyUtilities,
			SubFilterOps:       core.LegacyOperational,
		}[f]
		if label != "" {
			d.Category = core.ParseCategory(label)
		}
		if f == SubFilterPettyCash {
			d.PaymentMethod = "Cash"
		}
	}
	return d
}

// Filter reproduces the transaction list view: a search term, an optional
// type, a sub-filter that only applies when Type is set, and an optional
// payment method that must match exactly (e.g. the "Loan Account" view).
type Filter struct {
	Type          core.TransactionType
	SubFilter     SubFilter
	Search        string
	PaymentMethod string
}

// Match applies every criterion of the filter to t.
func (f Filter) Match(t core.Transaction) bool {
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Description), term) &&
			!strings.Contains(strings.ToLower(t.Category.String()), term) {
			return false
		}
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.PaymentMethod != "" && t.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.Type != "" && f.SubFilter != "" && f.SubFilter != SubFilterAll &&
		f.SubFilter.AppliesTo() == f.Type {
		return Matches(t, f.SubFilter)
	}
	return true
}

// Apply returns the matching transactions in their original order.
func (f Filter) Apply(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
