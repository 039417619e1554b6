package http

import (
	"context"
	"net/http"

	"bistro/internal/ledger"
	"bistro/internal/log"
)

// handleInsights asks the analyzer for a Markdown report on the whole
// ledger. Failures stay scoped to this endpoint.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		ErrorResponse(http.StatusServiceUnavailable, "AI analysis is not configured").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), insightsTimeout)
	defer cancel()

	txs := s.ledger.Transactions(ledger.Filter{})
	report, err := s.analyzer.Analyze(ctx, txs)
	if err != nil {
		s.logger.LogError(ctx, "Analysis failed", err, log.ComponentInsights, log.OpAnalyze, nil)
		FromError(err).Write(w)
		return
	}
	s.baseLog.WithComponent(log.ComponentInsights).InfoContext(ctx, "Analysis generated",
		log.FieldCount, len(txs), log.FieldRequestID, log.RequestID(ctx))
	NewResponse().JSON(map[string]any{"report": report, "transactions": len(txs)}).Write(w)
}
