// Package sheets publishes ledger views to spreadsheet tabs.
package sheets

import "context"

// Default tab names.
const (
	DailyIncomeTab = "Daily Income"
	VATTab         = "VAT"
)

// Ports for outbound adapters.
type (
	// TableWriter replaces the whole content of a tab. rows[0] is the header.
	TableWriter interface {
		WriteTable(ctx context.Context, tab string, rows [][]string) error
	}

	TableReader interface {
		ReadTable(ctx context.Context, tab string) ([][]string, error)
	}
)
