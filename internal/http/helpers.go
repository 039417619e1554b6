package http

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"bistro/internal/ledger"
)

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// currentPeriod is the YYYY-MM month of now.
func currentPeriod(now time.Time) string {
	return now.Format("2006-01")
}

// parsePeriod reads ?period=, defaulting to the current month. "all" is
// accepted in any case.
func parsePeriod(r *http.Request, now time.Time) (string, error) {
	p := strings.TrimSpace(r.URL.Query().Get("period"))
	switch {
	case p == "":
		p = currentPeriod(now)
	case strings.EqualFold(p, ledger.PeriodAll):
		p = ledger.PeriodAll
	}
	if err := ledger.ValidatePeriod(p); err != nil {
		return "", err
	}
	return p, nil
}

// renderCSV runs write against a buffer so a failure can still become an
// error response.
func renderCSV(write func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
