package http

import (
	"bytes"
	"io"
	"net/http"

	"bistro/internal/core"
	"bistro/internal/csvio"
	"bistro/internal/log"
)

const profileTemplateFilename = "company_profile_template.csv"

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.ledger.Profile()).Write(w)
}

// handleUpdateProfile replaces the whole profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p core.CompanyProfile
	if err := decodeJSON(w, r, &p); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.ledger.SetProfile(r.Context(), p)
	s.logger.LogLedgerMutation(r.Context(), log.OpUpdate, s.ledger.Revision(), nil)
	NewResponse().JSON(s.ledger.Profile()).Write(w)
}

func (s *Server) handleImportProfile(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, err := s.ledger.ImportProfile(r.Context(), bytes.NewReader(data))
	if err != nil {
		FromError(err).Write(w)
		return
	}
	s.logger.LogLedgerMutation(r.Context(), log.OpImport, s.ledger.Revision(), nil)
	NewResponse().JSON(p).Write(w)
}

func (s *Server) handleExportProfile(w http.ResponseWriter, r *http.Request) {
	p := s.ledger.Profile()
	data, err := renderCSV(func(out io.Writer) error { return csvio.WriteProfile(out, p) })
	if err != nil {
		InternalServerError("export failed").Write(w)
		return
	}
	NewResponse().CSV(csvio.ProfileFilename(p), data).Write(w)
}

func (s *Server) handleProfileTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := renderCSV(csvio.WriteProfileTemplate)
	if err != nil {
		InternalServerError("template failed").Write(w)
		return
	}
	NewResponse().CSV(profileTemplateFilename, data).Write(w)
}
