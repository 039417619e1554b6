// Package ledger owns the canonical transaction list and the pure views
// derived from it: the daily income sheet, sub-filters, VAT return and
// dashboard reports.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"bistro/internal/core"

	"github.com/google/uuid"
)

// DefaultPasscode guards ClearByType unless the store is built with another.
const DefaultPasscode = "790922"

var (
	// ErrAccessDenied means the clear passcode did not match.
	ErrAccessDenied = errors.New("access denied: incorrect passcode")
	// ErrNotConfirmed means the passcode matched but the caller did not confirm.
	ErrNotConfirmed = errors.New("clear not confirmed")
)

type EventKind string

const (
	EventAdded          EventKind = "added"
	EventImported       EventKind = "imported"
	EventUpdated        EventKind = "updated"
	EventDeleted        EventKind = "deleted"
	EventCleared        EventKind = "cleared"
	EventReplaced       EventKind = "replaced"
	EventProfileUpdated EventKind = "profile_updated"
)

// Event describes one applied mutation. Revision increases by one per event.
type Event struct {
	Kind     EventKind
	IDs      []string
	Type     core.TransactionType // set for clears
	Revision uint64
	At       time.Time
}

// Confirmation is the two-step gate in front of ClearByType.
type Confirmation struct {
	Passcode  string
	Confirmed bool
}

// Store holds the transaction list and company profile. Every mutation
// builds a new slice and swaps it in, so a slice handed out earlier is never
// modified afterwards.
type Store struct {
	mu       sync.RWMutex
	txs      []core.Transaction
	profile  core.CompanyProfile
	revision uint64

	subMu sync.RWMutex
	subs  []func(Event)

	passcode string
	newID    func() string
	now      func() time.Time
}

type Option func(*Store)

// WithPasscode overrides DefaultPasscode.
func WithPasscode(code string) Option {
	return func(s *Store) { s.passcode = code }
}

// WithIDGenerator replaces the UUID generator, mainly for tests.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store seeded with txs and profile.
func NewStore(txs []core.Transaction, profile core.CompanyProfile, opts ...Option) *Store {
	s := &Store{
		txs:      append([]core.Transaction(nil), txs...),
		profile:  profile,
		passcode: DefaultPasscode,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers fn to be called after every applied mutation. Calls
// happen synchronously on the mutating goroutine, after the lock is released.
func (s *Store) Subscribe(fn func(Event)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) emit(ev Event) {
	s.subMu.RLock()
	subs := slices.Clone(s.subs)
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// commit swaps in next and returns the event to publish. Caller holds mu.
func (s *Store) commit(next []core.Transaction, kind EventKind, ids []string) Event {
	s.txs = next
	s.revision++
	return Event{Kind: kind, IDs: ids, Revision: s.revision, At: s.now()}
}

// Transactions returns a snapshot of the list, newest insertion first.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.txs...)
}

// Get returns the transaction with the given id.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

func (s *Store) Profile() core.CompanyProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Revision counts applied mutations since the store was created.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Add validates t, assigns a fresh id and prepends it.
func (s *Store) Add(t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = s.newID()

	s.mu.Lock()
	next := make([]core.Transaction, 0, len(s.txs)+1)
	next = append(next, t)
	next = append(next, s.txs...)
	ev := s.commit(next, EventAdded, []string{t.ID})
	s.mu.Unlock()

	s.emit(ev)
	return t, nil
}

// AddBatch validates every row first and prepends them all, keeping their
// relative order, or adds none.
func (s *Store) AddBatch(txs []core.Transaction) ([]core.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}
	added := make([]core.Transaction, len(txs))
	ids := make([]string, len(txs))
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		t.ID = s.newID()
		added[i] = t
		ids[i] = t.ID
	}

	s.mu.Lock()
	next := make([]core.Transaction, 0, len(s.txs)+len(added))
	next = append(next, added...)
	next = append(next, s.txs...)
	ev := s.commit(next, EventImported, ids)
	s.mu.Unlock()

	s.emit(ev)
	return added, nil
}

// Update replaces the record with t.ID. It reports false, and changes
// nothing, when no such record exists.
func (s *Store) Update(t core.Transaction) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	idx := -1
	for i := range s.txs {
		if s.txs[i].ID == t.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	next := append([]core.Transaction(nil), s.txs...)
	next[idx] = t
	ev := s.commit(next, EventUpdated, []string{t.ID})
	s.mu.Unlock()

	s.emit(ev)
	return true, nil
}

// Delete removes the record with id. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	next := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if t.ID != id {
			next = append(next, t)
		}
	}
	if len(next) == len(s.txs) {
		s.mu.Unlock()
		return false
	}
	ev := s.commit(next, EventDeleted, []string{id})
	s.mu.Unlock()

	s.emit(ev)
	return true
}

// ClearByType removes every record of type typ once the passcode matches
// and the caller has confirmed. Nothing changes on either failure.
func (s *Store) ClearByType(typ core.TransactionType, c Confirmation) (int, error) {
	if err := typ.Validate(); err != nil {
		return 0, err
	}
	if c.Passcode != s.passcode {
		return 0, ErrAccessDenied
	}
	if !c.Confirmed {
		return 0, ErrNotConfirmed
	}

	s.mu.Lock()
	next := make([]core.Transaction, 0, len(s.txs))
	var removed []string
	for _, t := range s.txs {
		if t.Type == typ {
			removed = append(removed, t.ID)
			continue
		}
		next = append(next, t)
	}
	ev := s.commit(next, EventCleared, removed)
	ev.Type = typ
	s.mu.Unlock()

	s.emit(ev)
	return len(removed), nil
}

// Replace overwrites both the list and the profile, as a restore does.
func (s *Store) Replace(txs []core.Transaction, profile core.CompanyProfile) {
	s.mu.Lock()
	s.profile = profile
	ev := s.commit(append([]core.Transaction(nil), txs...), EventReplaced, nil)
	s.mu.Unlock()

	s.emit(ev)
}

func (s *Store) SetProfile(p core.CompanyProfile) {
	s.mu.Lock()
	s.profile = p
	s.revision++
	ev := Event{Kind: EventProfileUpdated, Revision: s.revision, At: s.now()}
	s.mu.Unlock()

	s.emit(ev)
}
