// Package csvio reads and writes the ledger's spreadsheet formats: the
// daily income sheet, the flat expense list, the generic transaction list,
// the company profile and the VAT return.
package csvio

import (
	"encoding/csv"
	"strings"
)

// ParseLine splits one CSV line. Quoted fields may contain commas and
// doubled quotes; surrounding whitespace is trimmed from every field.
func ParseLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil {
		return nil, err
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	return rec, nil
}

// bom is stripped from the start of spreadsheet exports.
const bom = "\ufeff"

// splitLines breaks text on newlines and drops blank lines.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimRight(l, "\r"))
		}
	}
	return out
}

// quote always wraps s in double quotes, doubling any inside.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
