package http

import (
	"net/http"
	"strconv"

	"bistro/internal/log"
)

const maxHistoryLimit = 200

// handleSnapshot writes the auto-save slot on demand.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.backups.Snapshot(r.Context()); err != nil {
		s.logger.LogError(r.Context(), "Snapshot failed", err, log.ComponentBackup, log.OpSnapshot, nil)
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"status": "saved", "revision": s.ledger.Revision()}).Write(w)
}

func (s *Server) handleBackupExport(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.backups.ManualExport(r.Context())
	if err != nil {
		s.logger.LogError(r.Context(), "Backup export failed", err, log.ComponentBackup, log.OpExport, nil)
		FromError(err).Write(w)
		return
	}
	NewResponse().Attachment(name, contentTypeJSON, data).Write(w)
}

// handleRestore overwrites the ledger from an uploaded backup file. A file
// that fails validation changes nothing.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.backups.Restore(r.Context(), data); err != nil {
		s.logger.LogError(r.Context(), "Restore rejected", err, log.ComponentBackup, log.OpRestore, nil)
		FromError(err).Write(w)
		return
	}
	s.restored(w, r)
}

func (s *Server) handleRestoreAuto(w http.ResponseWriter, r *http.Request) {
	if err := s.backups.RestoreAuto(r.Context()); err != nil {
		FromError(err).Write(w)
		return
	}
	s.restored(w, r)
}

func (s *Server) restored(w http.ResponseWriter, r *http.Request) {
	rev := s.ledger.Revision()
	s.logger.LogLedgerMutation(r.Context(), log.OpRestore, rev, nil)
	NewResponse().JSON(map[string]any{
		"status":       "restored",
		"revision":     rev,
		"transactions": len(s.ledger.Store().Transactions()),
	}).Write(w)
}

// handleBackupHistory lists recent snapshots; ?limit= caps the count.
func (s *Server) handleBackupHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			BadRequestError("limit must be a positive integer").Write(w)
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	hist, err := s.backups.History(r.Context(), limit)
	if err != nil {
		s.logger.LogError(r.Context(), "Backup history failed", err, log.ComponentStorage, log.OpRead, nil)
		InternalServerError("history unavailable").Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"backups": hist}).Write(w)
}
