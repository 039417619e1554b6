package ledger

import (
	"testing"

	"bistro/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesExpenseBuckets(t *testing.T) {
	cases := []struct {
		cat, method string
		filter      SubFilter
		want        bool
	}{
		{"Labor - Front of House", "Payroll", SubFilterSalary, true},
		{"Salary's", "Cash", SubFilterSalary, true},
		{"salary", "Cash", SubFilterSalary, false},
		{"Repairs & Maintenance", "Card", SubFilterRM, true},
		{"R&M", "Card", SubFilterRM, true},
		{"COGS - Food", "Invoice", SubFilterFood, true},
		{"Food", "Invoice", SubFilterFood, true},
		{"Food Sales", "Invoice", SubFilterFood, false},
		{"COGS - Beverage", "ACH", SubFilterAlcohol, true},
		{"Alcohol", "ACH", SubFilterAlcohol, true},
		{"Rent", "Check", SubFilterRent, true},
		{"Utilities", "Debit", SubFilterUtilities, true},
		{"Utility's", "Debit", SubFilterUtilities, true},
		{"Rent", "CASH", SubFilterPettyCash, true},
		{"Petty Cash", "Credit Card", SubFilterPettyCash, true},
		{"Rent", "Check", SubFilterPettyCash, false},
		{"Operating Supplies", "Card", SubFilterOps, true},
		{"General & Admin", "Card", SubFilterOps, true},
		{"Marketing & Ads", "Card", SubFilterOps, true},
		{"Other", "Card", SubFilterOps, true},
		{"Operational costs", "Card", SubFilterOps, true},
		{"Rent", "Card", SubFilterOps, false},
		{"Anything", "Card", SubFilterAll, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.filter)+"/"+tc.cat, func(t *testing.T) {
			got := Matches(tx(core.Expense, "2024-03-01", tc.cat, tc.method, 10), tc.filter)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchesIncomeBuckets(t *testing.T) {
	cases := []struct {
		cat, method string
		filter      SubFilter
		want        bool
	}{
		{"Food Sales", "Cash", SubFilterCash, true},
		{"Tips / Gratuity", "Cash", SubFilterCash, false},
		{"Tips", "Cash", SubFilterCash, false},
		{"Food Sales", "Credit Card", SubFilterCard, true},
		{"Food Sales", "Cash", SubFilterCard, false},
		{"Catering/Events", "Loan Account", SubFilterAccount, true},
		{"Tips / Gratuity", "Cash", SubFilterTips, true},
		{"Food Sales", "Cash", SubFilterTips, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.filter)+"/"+tc.cat, func(t *testing.T) {
			got := Matches(tx(core.Income, "2024-03-01", tc.cat, tc.method, 10), tc.filter)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFilterApply(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Income, "2024-03-01", "Food Sales", "Cash", 100),
		tx(core.Income, "2024-03-01", "Tips / Gratuity", "Cash", 10),
		tx(core.Expense, "2024-03-01", "Rent", "Cash", 50),
		tx(core.Expense, "2024-03-02", "COGS - Food", "Loan Account", 75),
	}
	txs[3].Description = "Sysco delivery"

	got := Filter{Type: core.Income, SubFilter: SubFilterCash}.Apply(txs)
	require.Len(t, got, 1)
	assert.Equal(t, "Food Sales", got[0].Category.String())

	// the sub-filter is ignored when no type is forced
	assert.Len(t, Filter{SubFilter: SubFilterCash}.Apply(txs), 4)

	// an expense filter never narrows the income list
	assert.Len(t, Filter{Type: core.Income, SubFilter: SubFilterRent}.Apply(txs), 2)

	assert.Len(t, Filter{Search: "SYSCO"}.Apply(txs), 1)
	assert.Len(t, Filter{Search: "cogs"}.Apply(txs), 1)
	assert.Len(t, Filter{PaymentMethod: "Loan Account"}.Apply(txs), 1)
	assert.Empty(t, Filter{PaymentMethod: "loan account"}.Apply(txs))
	assert.Len(t, Filter{}.Apply(txs), 4)
}

func TestSubFilterDefaults(t *testing.T) {
	cases := []struct {
		typ    core.TransactionType
		f      SubFilter
		forced string
		cat    string
		method string
	}{
		{core.Income, SubFilterAll, "", "Food Sales", "Credit Card"},
		{core.Income, SubFilterCash, "", "Food Sales", "Cash"},
		{core.Income, SubFilterAccount, "", "Food Sales", "Account"},
		{core.Income, SubFilterTips, "", "Tips / Gratuity", "Cash"},
		{core.Expense, SubFilterAll, "", "Operational costs", "Credit Card"},
		{core.Expense, SubFilterSalary, "", "Salary's", "Credit Card"},
		{core.Expense, SubFilterPettyCash, "", "Petty Cash", "Cash"},
		{core.Expense, SubFilterUtilities, "", "Utility's", "Credit Card"},
		{core.Expense, SubFilterAll, "Loan Account", "Operational costs", "Loan Account"},
		{"", SubFilterAll, "", "Operational costs", "Credit Card"},
	}
	for _, tc := range cases {
		d := tc.f.Defaults(tc.typ, tc.forced)
		assert.Equal(t, tc.cat, d.Category.String(), "%s/%s", tc.typ, tc.f)
		assert.Equal(t, tc.method, d.PaymentMethod, "%s/%s", tc.typ, tc.f)
	}
	assert.Equal(t, core.Expense, SubFilterAll.Defaults("", "").Type)
	assert.Equal(t, core.Tips, SubFilterTips.Defaults(core.Income, "").Category.Code())
}

func TestParseSubFilter(t *testing.T) {
	f, err := ParseSubFilter("petty_cash")
	require.NoError(t, err)
	assert.Equal(t, SubFilterPettyCash, f)
	assert.Equal(t, core.Expense, f.AppliesTo())

	f, err = ParseSubFilter("")
	require.NoError(t, err)
	assert.Equal(t, SubFilterAll, f)

	_, err = ParseSubFilter("VIP")
	assert.Error(t, err)
}
