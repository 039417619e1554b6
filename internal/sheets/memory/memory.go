package memory

import (
	"context"
	"sort"
	"sync"

	"bistro/internal/sheets"
)

var (
	_ sheets.TableWriter = (*Store)(nil)
	_ sheets.TableReader = (*Store)(nil)
)

// Store keeps tabs in memory. Used by tests and when no spreadsheet is
// configured.
type Store struct {
	mu     sync.Mutex
	tables map[string][][]string
	writes int
}

func New() *Store {
	return &Store{tables: map[string][][]string{}}
}

func (s *Store) WriteTable(_ context.Context, tab string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[tab] = copyRows(rows)
	s.writes++
	return nil
}

// ReadTable returns nil for a tab that was never written.
func (s *Store) ReadTable(_ context.Context, tab string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.tables[tab]), nil
}

// Tabs lists the written tab names in order.
func (s *Store) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tables))
	for name := range s.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Writes counts WriteTable calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
