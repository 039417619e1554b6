// Package storage persists the ledger documents in a key/value store.
package storage

import (
	"context"
	"errors"
	"time"
)

// Logical keys the ledger writes.
const (
	KeyTransactions = "bistro_transactions"
	KeyProfile      = "bistro_profile"
	KeyAutoBackup   = "bistro_autosave_latest"
)

// ErrNotFound is returned by Get for a key that was never written.
var ErrNotFound = errors.New("key not found")

// KV stores opaque values by key. Writes replace the previous value.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// BackupRecord is one entry of the snapshot audit log.
type BackupRecord struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	TakenAt   time.Time `json:"takenAt"`
	TxCount   int       `json:"transactions"`
	SizeBytes int       `json:"sizeBytes"`
}

// BackupLog keeps a history of snapshots next to the latest one in KV.
type BackupLog interface {
	RecordBackup(ctx context.Context, rec BackupRecord) error
	ListBackups(ctx context.Context, limit int) ([]BackupRecord, error)
}

// Store is what the services need from a backend.
type Store interface {
	KV
	BackupLog
	Close() error
}
