package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sortableTime is fixed width so taken_at orders correctly as text.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements KV
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(value), nil
}

// Set implements KV
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Value saved to SQLite", "key", key, "bytes", len(value))
	return nil
}

// Delete implements KV
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// RecordBackup implements BackupLog
func (r *SQLiteRepository) RecordBackup(ctx context.Context, rec BackupRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO backup_history (kind, taken_at, tx_count, size_bytes) VALUES (?, ?, ?, ?)`,
		rec.Kind, rec.TakenAt.UTC().Format(sortableTime), rec.TxCount, rec.SizeBytes)
	if err != nil {
		return fmt.Errorf("record backup: %w", err)
	}
	return nil
}

// ListBackups implements BackupLog, newest first.
func (r *SQLiteRepository) ListBackups(ctx context.Context, limit int) ([]BackupRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, taken_at, tx_count, size_bytes
		FROM backup_history ORDER BY taken_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []BackupRecord
	for rows.Next() {
		var rec BackupRecord
		var takenAt string
		if err := rows.Scan(&rec.ID, &rec.Kind, &takenAt, &rec.TxCount, &rec.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		rec.TakenAt, err = time.Parse(sortableTime, takenAt)
		if err != nil {
			return nil, fmt.Errorf("parse backup time %q: %w", takenAt, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
