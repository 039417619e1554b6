package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bistro/internal/core"
	"bistro/internal/ledger"
)

// Export file labels, before the date suffix.
const (
	LabelDailyIncome     = "daily_income_sheet"
	LabelTransactions    = "transaction_report"
	LabelLoanAccount     = "loan_account_report"
	LabelIncomeTemplate  = "income_import_template"
	LabelExpenseTemplate = "expense_import_template"
)

// ExportLabel names the transaction export for a list view.
func ExportLabel(forced core.TransactionType, sub ledger.SubFilter, forcedMethod string) string {
	switch forced {
	case core.Income:
		return LabelDailyIncome
	case core.Expense:
		if forcedMethod != "" {
			return LabelLoanAccount
		}
		name := "all"
		if sub != "" && sub != ledger.SubFilterAll {
			name = strings.ToLower(string(sub))
		}
		return "expenses_" + name + "_report"
	}
	return LabelTransactions
}

// Filename appends the export date: <label>_<YYYY-MM-DD>.csv.
func Filename(label string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", label, now.Format("2006-01-02"))
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// VATFilename is VAT_Return_<period>_<Company_Name>.csv, with ALL shown as
// All_Time.
func VATFilename(period, company string) string {
	if period == ledger.PeriodAll {
		period = "All_Time"
	}
	return fmt.Sprintf("VAT_Return_%s_%s.csv", period, whitespaceRun.ReplaceAllString(company, "_"))
}

func writeAll(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteDailySheet writes one row per aggregated day.
func WriteDailySheet(w io.Writer, days []ledger.DailyIncome) error {
	return writeAll(w, DailySheetRows(days))
}

// DailySheetRows renders the daily sheet, header first.
func DailySheetRows(days []ledger.DailyIncome) [][]string {
	rows := [][]string{DailySheetHeader}
	for _, d := range days {
		date, _ := core.ParseDate(d.Date)
		rows = append(rows, []string{
			date.Display(),
			core.FormatAmount(d.Total),
			core.FormatAmount(d.Cash),
			core.FormatAmount(d.Card),
			core.FormatAmount(d.EFT),
			core.FormatAmount(d.Charge),
			strconv.Itoa(d.Covers),
			core.FormatAmount(d.Tips),
		})
	}
	return rows
}

// WriteExpenseList writes the five-column expense layout.
func WriteExpenseList(w io.Writer, txs []core.Transaction) error {
	rows := [][]string{ExpenseListHeader}
	for _, t := range txs {
		rows = append(rows, []string{
			t.Date.Display(),
			t.Category.String(),
			t.Description,
			t.PaymentMethod,
			core.FormatAmount(t.Amount),
		})
	}
	return writeAll(w, rows)
}

// WriteGeneric writes the six-column layout with an explicit Type.
func WriteGeneric(w io.Writer, txs []core.Transaction) error {
	rows := [][]string{GenericHeader}
	for _, t := range txs {
		rows = append(rows, []string{
			t.Date.Display(),
			string(t.Type),
			t.Category.String(),
			t.Description,
			t.PaymentMethod,
			core.FormatAmount(t.Amount),
		})
	}
	return writeAll(w, rows)
}

// Export writes txs in the layout that matches the view: the daily sheet
// for income, the expense list for expenses, the generic list otherwise.
func Export(w io.Writer, txs []core.Transaction, forced core.TransactionType) error {
	switch forced {
	case core.Income:
		return WriteDailySheet(w, ledger.AggregateDailyIncome(txs))
	case core.Expense:
		return WriteExpenseList(w, txs)
	default:
		return WriteGeneric(w, txs)
	}
}

// WriteTemplate writes a header plus one sample row for the import layout
// of the view. paymentMethod fills the sample expense row when set.
func WriteTemplate(w io.Writer, forced core.TransactionType, paymentMethod string) error {
	switch forced {
	case core.Income:
		return writeAll(w, [][]string{
			DailySheetHeader,
			{"30/11/2025", "15000.00", "5000.00", "10000.00", "0.00", "0.00", "45", "500.00"},
		})
	case core.Expense:
		if paymentMethod == "" {
			paymentMethod = "Credit Card"
		}
		return writeAll(w, [][]string{
			ExpenseListHeader,
			{"30/11/2025", core.LegacyFood, "Weekly Veg Delivery", paymentMethod, "2500.00"},
		})
	default:
		return writeAll(w, [][]string{
			GenericHeader,
			{"30/11/2025", string(core.Expense), core.LegacyFood, "Weekly Veg Delivery", "Credit Card", "2500.00"},
		})
	}
}

// TemplateLabel names the template download for a view.
func TemplateLabel(forced core.TransactionType) string {
	if forced == core.Income {
		return LabelIncomeTemplate
	}
	return LabelExpenseTemplate
}
