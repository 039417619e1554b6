package csvio

import (
	"errors"
	"strings"
	"testing"

	"bistro/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`a,b,c`, []string{"a", "b", "c"}},
		{`01/03/2024,"Smith, J",  R 12.50 `, []string{"01/03/2024", "Smith, J", "R 12.50"}},
		{`"He said ""hi""",x`, []string{`He said "hi"`, "x"}},
		{`a,,c`, []string{"a", "", "c"}},
	}
	for _, tc := range cases {
		got, err := ParseLine(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestImportDailySheet(t *testing.T) {
	text := strings.Join([]string{
		"Date,Total Sales,Cash,Card,Cheque / EFT,Charge,Covers,Tips",
		`30/11/2025,15000.00,"R 5,000.00",10000.00,0.00,,"1 339",500.00`,
		"2025-12-01,0,0,0,0,0,10,0",
		"",
		"01/12/2025,300,,,200,100,12,",
	}, "\n")

	res, err := ImportText(text, ImportOptions{ForcedType: core.Income})
	require.NoError(t, err)
	assert.Equal(t, FormatDailySheet, res.Format)
	assert.Equal(t, 5, res.Imported)
	assert.Equal(t, 1, res.Skipped, "row without amounts is skipped")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Line)

	first := res.Transactions[0]
	assert.Equal(t, "2025-11-30", first.Date.String())
	assert.Equal(t, "Cash", first.PaymentMethod)
	assert.Equal(t, "Imported Daily Cash", first.Description)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 1339, first.Covers)
	assert.Equal(t, core.FoodSales, first.Category.Code())

	card := res.Transactions[1]
	assert.Equal(t, "Credit Card", card.PaymentMethod)
	assert.Zero(t, card.Covers, "covers only on the first transaction")

	tips := res.Transactions[2]
	assert.Equal(t, core.Tips, tips.Category.Code())
	assert.Equal(t, "Cash", tips.PaymentMethod)
	assert.Zero(t, tips.Covers)

	eft := res.Transactions[3]
	assert.Equal(t, "Cheque / EFT", eft.PaymentMethod)
	assert.Equal(t, 12, eft.Covers, "first synthesized row gets the covers even when cash is empty")
	assert.Equal(t, "Account", res.Transactions[4].PaymentMethod)
}

func TestImportExpenseList(t *testing.T) {
	text := "Date,Category,Description,Payment Method,Amount\n" +
		"30/11/2025,Food,\"Veg, weekly\",Credit Card,R2500.00\n" +
		"30/11/2025,Food,Bad amount,Cash,abc\n" +
		"30/11/2025,Food,,Cash,10\n" +
		"31/11/2025,Food,Bad date,Cash,10\n" +
		"01/12/2025,Rent,December,Check,4500\n"

	res, err := Import(strings.NewReader(text), ImportOptions{ForcedType: core.Expense})
	require.NoError(t, err)
	assert.Equal(t, FormatExpenseList, res.Format)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	assert.True(t, errors.Is(res.Errors[0], core.ErrInvalidAmount))
	assert.True(t, errors.Is(res.Errors[2], core.ErrInvalidDate))

	veg := res.Transactions[0]
	assert.Equal(t, "Veg, weekly", veg.Description)
	assert.Equal(t, core.Expense, veg.Type)
	assert.True(t, veg.Category.Equals(core.LegacyFood))
	assert.Equal(t, core.Rent, res.Transactions[1].Category.Code())
}

func TestImportGenericList(t *testing.T) {
	text := "Date,Type,Category,Description,Method,Amount\n" +
		"2024-03-01,INCOME,Food Sales,Lunch,Cash,100\n" +
		"2024-03-01,expense,Rent,March,Check,4500\n" +
		"2024-03-01,REFUND,Rent,March,Check,4500\n" +
		"2024-03-01,EXPENSE,Rent\n"

	res, err := ImportText(text, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, FormatGeneric, res.Format)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, core.Income, res.Transactions[0].Type)
	assert.Equal(t, core.Expense, res.Transactions[1].Type)

	// a forced type wins over the Type column
	forced, err := ImportText("Date,Type,Category,Description,Method,Amount\n2024-03-01,EXPENSE,Tips,Odd,Cash,5\n",
		ImportOptions{ForcedType: core.Income})
	require.NoError(t, err)
	require.Len(t, forced.Transactions, 1)
	assert.Equal(t, core.Income, forced.Transactions[0].Type)
}

func TestImportUnparseableAmountIsSkipped(t *testing.T) {
	for _, opts := range []ImportOptions{{}, {ForcedType: core.Expense}} {
		var text string
		if opts.ForcedType == core.Expense {
			text = "Date,Category,Description,Payment Method,Amount\n2024-03-01,Food,Veg,Cash,abc\n2024-03-02,Food,Veg,Cash,12\n"
		} else {
			text = "Date,Type,Category,Description,Method,Amount\n2024-03-01,EXPENSE,Food,Veg,Cash,abc\n2024-03-02,EXPENSE,Food,Veg,Cash,12\n"
		}
		res, err := ImportText(text, opts)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Imported)
		assert.Equal(t, 1, res.Skipped)
		assert.Len(t, res.Messages(), 1)
	}
}

func TestImportNeedsData(t *testing.T) {
	_, err := ImportText("Date,Type\n\n", ImportOptions{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = ImportText("", ImportOptions{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatDailySheet, DetectFormat("DATE,TOTAL SALES,CASH", core.Income))
	assert.Equal(t, FormatDailySheet, DetectFormat("Date,Total Sales,Cash", ""))
	assert.Equal(t, FormatExpenseList, DetectFormat("Date,Total Sales,Cash", core.Expense))
	assert.Equal(t, FormatGeneric, DetectFormat("Date,Type,Category", core.Income))
}
