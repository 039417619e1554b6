package ledger

import (
	"testing"

	"bistro/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVATExactOnRoundAmount(t *testing.T) {
	sum := ComputeVAT([]core.Transaction{
		tx(core.Income, "2024-03-01", "Food Sales", "Cash", 115),
	}, PeriodAll)

	assertDec(t, "115", sum.TotalIncomeInclusive, "inclusive")
	assertDec(t, "15", sum.OutputTax, "output tax")
	assertDec(t, "100", sum.IncomeExclusive, "exclusive")
	assertDec(t, "15", sum.NetVAT, "net")
	assert.True(t, sum.Payable())
	assert.False(t, sum.Refundable())
}

func TestVATOutputTaxFormula(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Income, "2024-03-01", "Food Sales", "Cash", 100),
		tx(core.Income, "2024-03-02", "Beverage Sales", "Credit Card", 333),
	}
	sum := ComputeVAT(txs, PeriodAll)

	want := dec("433").Mul(dec("0.15")).Div(dec("1.15"))
	diff := sum.OutputTax.Sub(want).Abs()
	assert.True(t, diff.LessThan(dec("0.0000001")), "output tax %s vs %s", sum.OutputTax, want)
	assert.True(t, sum.TotalIncomeInclusive.Sub(sum.OutputTax).Equal(sum.IncomeExclusive))
}

func TestVATNetRefundable(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Income, "2024-03-01", "Food Sales", "Cash", 115),
		tx(core.Expense, "2024-03-01", "COGS - Food", "Invoice", 230),
	}
	sum := ComputeVAT(txs, PeriodAll)
	assertDec(t, "30", sum.InputTax, "input")
	assertDec(t, "-15", sum.NetVAT, "net")
	assert.True(t, sum.NetVAT.Equal(sum.OutputTax.Sub(sum.InputTax)))
	assert.True(t, sum.Refundable())
	assert.False(t, sum.Payable())
}

func TestVATStatus(t *testing.T) {
	e := NewVATEngine(DefaultVATRate)
	cases := []struct {
		tx   core.Transaction
		want VatStatus
	}{
		{tx(core.Income, "2024-03-01", "Food Sales", "Cash", 1), VatStandard},
		{tx(core.Income, "2024-03-01", "Tips / Gratuity", "Cash", 1), VatExempt},
		{tx(core.Income, "2024-03-01", "Tips", "Cash", 1), VatExempt},
		{tx(core.Expense, "2024-03-01", "Labor - Back of House", "Payroll", 1), VatExempt},
		{tx(core.Expense, "2024-03-01", "Salary's", "Cash", 1), VatExempt},
		{tx(core.Expense, "2024-03-01", "Casual WAGES", "Cash", 1), VatExempt},
		{tx(core.Expense, "2024-03-01", "payroll tax", "Cash", 1), VatExempt},
		{tx(core.Expense, "2024-03-01", "Rent", "Check", 1), VatStandard},
		{tx(core.Expense, "2024-03-01", "Tips", "Cash", 1), VatStandard},
	}
	for _, tc := range cases {
		t.Run(string(tc.tx.Type)+"/"+tc.tx.Category.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, e.Status(tc.tx))
		})
	}
}

func TestVATPartitionsPeriod(t *testing.T) {
	txs := append(core.DefaultTransactions(),
		tx(core.Income, "2023-10-04", "Food Sales", "Cash", 800),
		tx(core.Income, "2023-10-04", "Tips / Gratuity", "Cash", 60),
		tx(core.Income, "2023-11-01", "Food Sales", "Cash", 500),
	)
	for i := range txs {
		txs[i].ID = txs[i].Date.String() + txs[i].Description
	}

	sum := ComputeVAT(txs, "2023-10")
	seen := map[string]int{}
	for _, list := range [][]VatLineItem{sum.VatableIncome, sum.VatableExpenses, sum.Excluded} {
		for _, item := range list {
			seen[item.Transaction.ID]++
		}
	}
	inPeriod := 0
	for _, t0 := range txs {
		if t0.Date.MonthKey() == "2023-10" {
			inPeriod++
			assert.Equal(t, 1, seen[t0.ID], t0.ID)
		} else {
			assert.Zero(t, seen[t0.ID], t0.ID)
		}
	}
	assert.Len(t, seen, inPeriod)

	// three payroll lines and the tip are excluded
	require.Len(t, sum.Excluded, 4)
	for _, item := range sum.Excluded {
		assert.Equal(t, ExemptReason, item.Reason)
		assert.True(t, item.VAT.IsZero())
	}
	assert.Len(t, sum.VatableIncome, 1)
	assert.Len(t, sum.VatableExpenses, 6)

	all := ComputeVAT(txs, PeriodAll)
	assert.Len(t, all.VatableIncome, 2)
}

func TestValidatePeriod(t *testing.T) {
	for _, ok := range []string{"ALL", "2024-01", "1999-12"} {
		assert.NoError(t, ValidatePeriod(ok), ok)
	}
	for _, bad := range []string{"", "2024-13", "2024-1", "all", "2024-01-01"} {
		assert.Error(t, ValidatePeriod(bad), bad)
	}
}
