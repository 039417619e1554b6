package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps everything in process memory; contents are lost on exit.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string][]byte
	backups []BackupRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string][]byte{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) RecordBackup(_ context.Context, rec BackupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.backups) + 1)
	m.backups = append(m.backups, rec)
	return nil
}

func (m *MemoryStore) ListBackups(_ context.Context, limit int) ([]BackupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]BackupRecord(nil), m.backups...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TakenAt.Equal(out[j].TakenAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].TakenAt.After(out[j].TakenAt)
	})
	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
