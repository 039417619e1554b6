package http

import (
	"bytes"
	"io"
	"net/http"

	"bistro/internal/core"
	"bistro/internal/csvio"
	"bistro/internal/log"
)

func txFields(t core.Transaction) log.LogFields {
	return log.NewFields().WithTransaction(t.ID, string(t.Type), t.Category.String(), core.FormatAmount(t.Amount))
}

// handleListTransactions returns the list view narrowed by ?type, ?sub, ?q
// and ?method.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	txs := s.ledger.Transactions(f)
	NewResponse().JSON(map[string]any{
		"transactions": txs,
		"count":        len(txs),
		"revision":     s.ledger.Revision(),
	}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, ok := s.ledger.Get(r.PathValue("id"))
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	NewResponse().JSON(t).Write(w)
}

// handleCreateTransaction stores a new transaction. Any id in the body is
// replaced by a fresh one.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(w, r, &t); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	added, err := s.ledger.Add(r.Context(), t)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	s.logger.LogLedgerMutation(r.Context(), log.OpCreate, s.ledger.Revision(), txFields(added))
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+added.ID).
		JSON(added).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(w, r, &t); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t.ID = r.PathValue("id")

	ok, err := s.ledger.Update(r.Context(), t)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	s.logger.LogLedgerMutation(r.Context(), log.OpUpdate, s.ledger.Revision(), txFields(t))
	NewResponse().JSON(t).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.ledger.Delete(r.Context(), id) {
		NotFoundError("transaction not found").Write(w)
		return
	}
	s.logger.LogLedgerMutation(r.Context(), log.OpDelete, s.ledger.Revision(),
		log.NewFields().WithTransaction(id, "", "", ""))
	w.WriteHeader(http.StatusNoContent)
}

// handleClearTransactions deletes every transaction of one type behind the
// passcode and confirmation gate.
func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	typ, confirm, err := req.parse()
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	n, err := s.ledger.Clear(r.Context(), typ, confirm)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	fields := log.NewFields().WithTransaction("", string(typ), "", "")
	fields[log.FieldCount] = n
	s.logger.LogLedgerMutation(r.Context(), log.OpClear, s.ledger.Revision(), fields)
	NewResponse().JSON(map[string]any{"type": typ, "deleted": n}).Write(w)
}

// handleImport adds every valid row of an uploaded CSV. ?type= names the
// list being imported into and selects its layouts.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	forced, err := parseOptionalType(r.URL.Query().Get("type"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	data, err := readUpload(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	res, err := s.ledger.Import(r.Context(), bytes.NewReader(data), csvio.ImportOptions{ForcedType: forced})
	if err != nil {
		s.logger.LogError(r.Context(), "CSV import failed", err, log.ComponentCSV, log.OpImport, nil)
		FromError(err).Write(w)
		return
	}
	fields := log.NewFields()
	fields[log.FieldCount] = res.Imported
	s.logger.LogLedgerMutation(r.Context(), log.OpImport, s.ledger.Revision(), fields)

	NewResponse().JSON(map[string]any{
		"format":       res.Format,
		"imported":     res.Imported,
		"skipped":      res.Skipped,
		"errors":       res.Messages(),
		"transactions": res.Transactions,
	}).Write(w)
}

// handleExport downloads the filtered list in the layout of its view.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	txs := s.ledger.Transactions(f)
	data, err := renderCSV(func(out io.Writer) error { return csvio.Export(out, txs, f.Type) })
	if err != nil {
		s.logger.LogError(r.Context(), "CSV export failed", err, log.ComponentCSV, log.OpExport, nil)
		InternalServerError("export failed").Write(w)
		return
	}
	name := csvio.Filename(csvio.ExportLabel(f.Type, f.SubFilter, f.PaymentMethod), s.now())
	NewResponse().CSV(name, data).Write(w)
}

// handleTemplate downloads an empty import file for ?type=, with ?method=
// prefilled on the sample expense row.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	forced, err := parseOptionalType(r.URL.Query().Get("type"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	method := sanitizeInput(r.URL.Query().Get("method"))
	data, err := renderCSV(func(out io.Writer) error { return csvio.WriteTemplate(out, forced, method) })
	if err != nil {
		InternalServerError("template failed").Write(w)
		return
	}
	NewResponse().CSV(csvio.Filename(csvio.TemplateLabel(forced), s.now()), data).Write(w)
}
