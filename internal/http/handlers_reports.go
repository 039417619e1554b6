package http

import (
	"io"
	"net/http"

	"bistro/internal/csvio"
	"bistro/internal/ledger"
	"bistro/internal/log"
)

func (s *Server) handleDailyIncome(w http.ResponseWriter, r *http.Request) {
	days := s.ledger.DailyIncome()
	NewResponse().JSON(map[string]any{"days": days, "count": len(days)}).Write(w)
}

// vatResponse adds the payable/refundable flags the return view shows.
type vatResponse struct {
	ledger.VatSummary
	Payable    bool `json:"payable"`
	Refundable bool `json:"refundable"`
}

// handleVATReturn computes the return for ?period= (YYYY-MM or ALL,
// default the current month).
func (s *Server) handleVATReturn(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sum, err := s.ledger.VATReturn(period)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewResponse().JSON(vatResponse{
		VatSummary: sum,
		Payable:    sum.Payable(),
		Refundable: sum.Refundable(),
	}).Write(w)
}

func (s *Server) handleVATExport(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sum, err := s.ledger.VATReturn(period)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	data, err := renderCSV(func(out io.Writer) error { return csvio.WriteVATReturn(out, sum) })
	if err != nil {
		fields := log.NewFields()
		fields[log.FieldPeriod] = period
		s.logger.LogError(r.Context(), "VAT export failed", err, log.ComponentCSV, log.OpExport, fields)
		InternalServerError("export failed").Write(w)
		return
	}
	NewResponse().CSV(csvio.VATFilename(period, s.ledger.Profile().Name), data).Write(w)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.reports(r.Context())).Write(w)
}
