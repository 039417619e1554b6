package csvio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"bistro/internal/core"

	"github.com/shopspring/decimal"
)

// Format names one of the supported transaction layouts.
type Format string

const (
	FormatDailySheet  Format = "daily_sheet"
	FormatExpenseList Format = "expense_list"
	FormatGeneric     Format = "generic"
)

var (
	DailySheetHeader  = []string{"Date", "Total Sales", "Cash", "Card", "Cheque / EFT", "Charge", "Covers", "Tips"}
	ExpenseListHeader = []string{"Date", "Category", "Description", "Payment Method", "Amount"}
	GenericHeader     = []string{"Date", "Type", "Category", "Description", "Method", "Amount"}
)

var (
	ErrNoData          = errors.New("file needs a header and at least one data row")
	errTooFewColumns   = errors.New("not enough columns")
	errNoAmounts       = errors.New("no positive amounts")
	errMissingDesc     = errors.New("missing description")
	errUnexpectedShape = errors.New("row does not match any known layout")
)

// ImportOptions describes the list the rows are imported into.
type ImportOptions struct {
	// ForcedType is the type of the view being imported into. It selects the
	// daily sheet (INCOME) or expense list (EXPENSE) layouts and overrides
	// the Type column of the generic layout.
	ForcedType core.TransactionType
}

// RowError reports why a data row was skipped. Line is 1-based and counts
// the header.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Line, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// ImportResult holds the transactions built from a file. Transactions carry
// no ids; the store assigns them.
type ImportResult struct {
	Format       Format             `json:"format"`
	Transactions []core.Transaction `json:"transactions"`
	Imported     int                `json:"imported"`
	Skipped      int                `json:"skipped"`
	Errors       []RowError         `json:"-"`
}

// Messages renders the row errors for display.
func (r ImportResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// DetectFormat picks the layout from the header line and forced type.
func DetectFormat(header string, forced core.TransactionType) Format {
	h := strings.ToLower(header)
	if strings.Contains(h, "total sales") && strings.Contains(h, "cash") && forced != core.Expense {
		return FormatDailySheet
	}
	if forced == core.Expense {
		return FormatExpenseList
	}
	return FormatGeneric
}

// Import reads a whole file. Rows that fail to parse or validate are
// skipped and reported; the rest are returned. Only an unreadable or empty
// file is an error.
func Import(r io.Reader, opts ImportOptions) (ImportResult, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv: %w", err)
	}
	return ImportText(string(b), opts)
}

func ImportText(text string, opts ImportOptions) (ImportResult, error) {
	lines := splitLines(strings.TrimPrefix(text, bom))
	if len(lines) < 2 {
		return ImportResult{}, ErrNoData
	}

	res := ImportResult{Format: DetectFormat(lines[0], opts.ForcedType)}
	for i, line := range lines[1:] {
		lineNo := i + 2
		txs, err := parseRow(line, res.Format, opts)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Line: lineNo, Err: err})
			continue
		}
		res.Transactions = append(res.Transactions, txs...)
	}
	res.Imported = len(res.Transactions)
	return res, nil
}

func parseRow(line string, format Format, opts ImportOptions) ([]core.Transaction, error) {
	cols, err := ParseLine(line)
	if err != nil {
		return nil, err
	}
	if len(cols) < 2 {
		return nil, errTooFewColumns
	}
	date, err := core.ParseDate(cols[0])
	if err != nil {
		return nil, err
	}

	var txs []core.Transaction
	switch {
	case format == FormatDailySheet:
		txs, err = dailyRow(date, cols)
	case format == FormatExpenseList && len(cols) == len(ExpenseListHeader):
		txs, err = expenseRow(date, cols)
	case len(cols) >= len(GenericHeader):
		txs, err = genericRow(date, cols, opts.ForcedType)
	default:
		err = errUnexpectedShape
	}
	if err != nil {
		return nil, err
	}
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return txs, nil
}

func col(cols []string, i int) string {
	if i < len(cols) {
		return cols[i]
	}
	return ""
}

// dailyRow turns one sheet row into a sales transaction per non-empty
// payment column plus one for tips. The covers go on the first sales
// transaction so a re-aggregated day counts them once.
func dailyRow(date core.Date, cols []string) ([]core.Transaction, error) {
	covers := core.ParseCovers(col(cols, 6))
	columns := []struct {
		idx    int
		method string
		desc   string
	}{
		{2, "Cash", "Imported Daily Cash"},
		{3, "Credit Card", "Imported Daily Card"},
		{4, "Cheque / EFT", "Imported Daily EFT"},
		{5, "Account", "Imported Daily Account"},
	}

	var txs []core.Transaction
	for _, c := range columns {
		amt := core.ParseAmountOrZero(col(cols, c.idx))
		if !amt.IsPositive() {
			continue
		}
		t := core.Transaction{
			Date:          date,
			Description:   c.desc,
			Amount:        amt,
			Type:          core.Income,
			Category:      core.NewCategory(core.FoodSales),
			PaymentMethod: c.method,
		}
		if covers > 0 {
			t.Covers = covers
			covers = 0
		}
		txs = append(txs, t)
	}
	if tips := core.ParseAmountOrZero(col(cols, 7)); tips.IsPositive() {
		txs = append(txs, core.Transaction{
			Date:          date,
			Description:   "Imported Daily Tips",
			Amount:        tips,
			Type:          core.Income,
			Category:      core.NewCategory(core.Tips),
			PaymentMethod: "Cash",
		})
	}
	if len(txs) == 0 {
		return nil, errNoAmounts
	}
	return txs, nil
}

func expenseRow(date core.Date, cols []string) ([]core.Transaction, error) {
	amount, err := parseRequiredAmount(cols[4])
	if err != nil {
		return nil, err
	}
	if cols[2] == "" {
		return nil, errMissingDesc
	}
	return []core.Transaction{{
		Date:          date,
		Description:   cols[2],
		Amount:        amount,
		Type:          core.Expense,
		Category:      core.ParseCategory(cols[1]),
		PaymentMethod: cols[3],
	}}, nil
}

func genericRow(date core.Date, cols []string, forced core.TransactionType) ([]core.Transaction, error) {
	typ := forced
	if typ == "" {
		parsed, err := core.ParseTransactionType(cols[1])
		if err != nil {
			return nil, err
		}
		typ = parsed
	}
	amount, err := parseRequiredAmount(cols[5])
	if err != nil {
		return nil, err
	}
	if cols[3] == "" {
		return nil, errMissingDesc
	}
	return []core.Transaction{{
		Date:          date,
		Description:   cols[3],
		Amount:        amount,
		Type:          typ,
		Category:      core.ParseCategory(cols[2]),
		PaymentMethod: cols[4],
	}}, nil
}

func parseRequiredAmount(s string) (decimal.Decimal, error) {
	amount, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", err, s)
	}
	return amount, nil
}
