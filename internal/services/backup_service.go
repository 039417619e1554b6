package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bistro/internal/core"
	"bistro/internal/ledger"
	"bistro/internal/storage"
)

const AppVersion = "1.0.0"

// Backup document kinds.
const (
	KindAutoSave     = "AUTO_SAVE"
	KindManualExport = "MANUAL_EXPORT"
)

var (
	ErrInvalidBackup = errors.New("invalid backup file format")
	ErrNoAutoBackup  = errors.New("no auto-backup found")
)

// BackupDocument is the shape of both the auto-save slot and a manual export.
type BackupDocument struct {
	Transactions []core.Transaction  `json:"transactions"`
	Profile      core.CompanyProfile `json:"profile"`
	Timestamp    time.Time           `json:"timestamp"`
	AppVersion   string              `json:"appVersion,omitempty"`
	Type         string              `json:"type"`
}

// BackupService takes and restores full snapshots of the ledger.
type BackupService struct {
	store   *ledger.Store
	backend storage.Store
	now     func() time.Time
}

func NewBackupService(store *ledger.Store, backend storage.Store) *BackupService {
	return &BackupService{store: store, backend: backend, now: time.Now}
}

func (s *BackupService) document(kind string) BackupDocument {
	doc := BackupDocument{
		Transactions: s.store.Transactions(),
		Profile:      s.store.Profile(),
		Timestamp:    s.now().UTC(),
		Type:         kind,
	}
	if doc.Transactions == nil {
		doc.Transactions = []core.Transaction{}
	}
	if kind == KindManualExport {
		doc.AppVersion = AppVersion
	}
	return doc
}

// Snapshot writes the current state to the auto-save slot. Running it twice
// without an intervening mutation leaves the slot with the same contents
// apart from the timestamp.
func (s *BackupService) Snapshot(ctx context.Context) error {
	doc := s.document(KindAutoSave)
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.backend.Set(ctx, storage.KeyAutoBackup, b); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.record(ctx, doc, len(b))
	slog.DebugContext(ctx, "Auto-save snapshot written", "transactions", len(doc.Transactions))
	return nil
}

// ManualExport renders the downloadable backup file.
func (s *BackupService) ManualExport(ctx context.Context) ([]byte, string, error) {
	doc := s.document(KindManualExport)
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode backup: %w", err)
	}
	s.record(ctx, doc, len(b))
	return b, BackupFilename(s.now()), nil
}

// BackupFilename names a manual export after the day it was taken.
func BackupFilename(now time.Time) string {
	return fmt.Sprintf("Bistro_Backup_%s.json", now.Format("2006-01-02"))
}

func (s *BackupService) record(ctx context.Context, doc BackupDocument, size int) {
	rec := storage.BackupRecord{
		Kind:      doc.Type,
		TakenAt:   doc.Timestamp,
		TxCount:   len(doc.Transactions),
		SizeBytes: size,
	}
	if err := s.backend.RecordBackup(ctx, rec); err != nil {
		slog.WarnContext(ctx, "Failed to record backup history", "kind", doc.Type, "error", err)
	}
}

// Restore overwrites the ledger from a backup document. The document must
// be an object holding a transactions array, a profile object, or both.
// When one of the two is absent the current value is kept. On any error
// nothing changes.
func (s *BackupService) Restore(ctx context.Context, data []byte) error {
	txs, profile, err := parseBackup(data)
	if err != nil {
		return err
	}
	if txs == nil {
		txs = s.store.Transactions()
	}
	if profile == nil {
		current := s.store.Profile()
		profile = &current
	}
	s.store.Replace(txs, *profile)
	slog.InfoContext(ctx, "Ledger restored from backup", "transactions", len(txs))
	return nil
}

// RestoreAuto restores the latest auto-save snapshot.
func (s *BackupService) RestoreAuto(ctx context.Context) error {
	b, err := s.backend.Get(ctx, storage.KeyAutoBackup)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoAutoBackup
	}
	if err != nil {
		return fmt.Errorf("read auto-backup: %w", err)
	}
	return s.Restore(ctx, b)
}

// History lists recent snapshots, newest first.
func (s *BackupService) History(ctx context.Context, limit int) ([]storage.BackupRecord, error) {
	return s.backend.ListBackups(ctx, limit)
}

func parseBackup(data []byte) ([]core.Transaction, *core.CompanyProfile, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, nil, ErrInvalidBackup
	}

	var txs []core.Transaction
	rawTxs, hasTxs := fields["transactions"]
	if hasTxs {
		if !isJSONKind(rawTxs, '[') {
			return nil, nil, fmt.Errorf("%w: transactions is not an array", ErrInvalidBackup)
		}
		if err := json.Unmarshal(rawTxs, &txs); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		for i, t := range txs {
			if err := t.Validate(); err != nil {
				return nil, nil, fmt.Errorf("%w: transaction %d: %v", ErrInvalidBackup, i+1, err)
			}
		}
		if txs == nil {
			txs = []core.Transaction{}
		}
	}

	var profile *core.CompanyProfile
	if rawProfile, ok := fields["profile"]; ok {
		if !isJSONKind(rawProfile, '{') {
			return nil, nil, fmt.Errorf("%w: profile is not an object", ErrInvalidBackup)
		}
		profile = &core.CompanyProfile{}
		if err := json.Unmarshal(rawProfile, profile); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
	}

	if !hasTxs && profile == nil {
		return nil, nil, fmt.Errorf("%w: neither transactions nor profile present", ErrInvalidBackup)
	}
	return txs, profile, nil
}

func isJSONKind(raw json.RawMessage, open byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == open
}
