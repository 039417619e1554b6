package csvio

import (
	"io"

	"bistro/internal/core"
	"bistro/internal/ledger"
)

var VATHeader = []string{"Type", "Date", "Description", "Category", "Status", "Amount (Inc)", "VAT Portion"}

// WriteVATReturn writes every line of the return followed by the totals.
func WriteVATReturn(w io.Writer, sum ledger.VatSummary) error {
	return writeAll(w, VATReturnRows(sum))
}

// VATReturnRows renders the return, header first.
func VATReturnRows(sum ledger.VatSummary) [][]string {
	rows := [][]string{VATHeader}
	line := func(kind string, item ledger.VatLineItem, status string) []string {
		t := item.Transaction
		return []string{
			kind,
			t.Date.String(),
			t.Description,
			t.Category.String(),
			status,
			core.FormatAmount(t.Amount),
			core.FormatAmount(item.VAT),
		}
	}
	for _, item := range sum.VatableIncome {
		rows = append(rows, line("Output (Sales)", item, "Standard Rate"))
	}
	for _, item := range sum.VatableExpenses {
		rows = append(rows, line("Input (Purchases)", item, "Standard Rate"))
	}
	for _, item := range sum.Excluded {
		rows = append(rows, line("Excluded ("+string(item.Transaction.Type)+")", item, "Exempt/Non-Vatable"))
	}

	rows = append(rows,
		[]string{"", "", "", "", "", "", ""},
		[]string{"TOTAL OUTPUT TAX", "", "", "", "", core.FormatAmount(sum.TotalIncomeInclusive), core.FormatAmount(sum.OutputTax)},
		[]string{"TOTAL INPUT TAX", "", "", "", "", core.FormatAmount(sum.TotalExpenseInclusive), core.FormatAmount(sum.InputTax)},
		[]string{"NET VAT PAYABLE", "", "", "", "", "", core.FormatAmount(sum.NetVAT)},
	)
	return rows
}
