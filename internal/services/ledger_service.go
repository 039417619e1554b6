package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"bistro/internal/amqp"
	"bistro/internal/core"
	"bistro/internal/csvio"
	"bistro/internal/ledger"
	"bistro/internal/storage"
)

const (
	persistTimeout = 5 * time.Second
	publishTimeout = 10 * time.Second
	// publishQueueSize bounds events waiting for the broker; beyond it events
	// are dropped and the worker's periodic resync catches up.
	publishQueueSize = 256
)

// EventPublisher announces ledger changes to other processes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Reports bundles the dashboard figures.
type Reports struct {
	Summary    core.Summary         `json:"summary"`
	Timeline   []core.DailyTotals   `json:"timeline"`
	Categories []core.CategoryTotal `json:"categories"`
}

// LedgerService owns the in-memory store and keeps the key/value backend and
// the event bus in step with it. Persistence and publishing are best-effort:
// a failed write is logged and the in-memory mutation stands.
//
// Writes are serialized and always store the list as it is when the write
// starts, so the stored copy never moves back to an older revision. Events
// are published from a single goroutine; Close drains it.
type LedgerService struct {
	store     *ledger.Store
	kv        storage.KV
	publisher EventPublisher
	vat       ledger.VATEngine

	persistMu sync.Mutex

	queueMu   sync.Mutex
	queue     chan ledger.Event
	closed    bool
	publishWG sync.WaitGroup
}

// NewLedgerService loads the ledger from kv, falling back to the built-in
// data set for any key that is missing or unreadable. publisher may be nil.
func NewLedgerService(ctx context.Context, kv storage.KV, publisher EventPublisher, vat ledger.VATEngine, opts ...ledger.Option) *LedgerService {
	txs, profile := LoadLedger(ctx, kv)
	s := &LedgerService{
		store:     ledger.NewStore(txs, profile, opts...),
		kv:        kv,
		publisher: publisher,
		vat:       vat,
	}
	if publisher != nil {
		s.queue = make(chan ledger.Event, publishQueueSize)
		s.publishWG.Add(1)
		go s.publishLoop()
	}
	s.store.Subscribe(s.onEvent)
	return s
}

// Close stops accepting events and waits for queued ones to be published or
// for ctx to end.
func (s *LedgerService) Close(ctx context.Context) error {
	s.queueMu.Lock()
	if s.queue != nil && !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.queueMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.publishWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain ledger events: %w", ctx.Err())
	}
}

// LoadLedger reads the transaction list and profile documents.
func LoadLedger(ctx context.Context, kv storage.KV) ([]core.Transaction, core.CompanyProfile) {
	txs := core.DefaultTransactions()
	profile := core.DefaultProfile()

	if b, err := kv.Get(ctx, storage.KeyTransactions); err == nil {
		var stored []core.Transaction
		if err := json.Unmarshal(b, &stored); err != nil {
			slog.WarnContext(ctx, "Stored transactions are corrupt, using defaults", "error", err)
		} else if stored != nil {
			txs = stored
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Failed to read transactions, using defaults", "error", err)
	}

	if b, err := kv.Get(ctx, storage.KeyProfile); err == nil {
		var stored core.CompanyProfile
		if err := json.Unmarshal(b, &stored); err != nil {
			slog.WarnContext(ctx, "Stored profile is corrupt, using default", "error", err)
		} else if !stored.IsZero() {
			profile = stored
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Failed to read profile, using default", "error", err)
	}

	return txs, profile
}

// Store exposes the underlying store for read-only views and backups.
func (s *LedgerService) Store() *ledger.Store { return s.store }

func (s *LedgerService) onEvent(ev ledger.Event) {
	s.persist(ev)
	s.enqueue(ev)
}

// persist snapshots and writes under persistMu. A writer that waited for the
// lock snapshots after every earlier mutation, so it never writes an older
// list than the one already stored.
func (s *LedgerService) persist(ev ledger.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if ev.Kind != ledger.EventProfileUpdated {
		s.persistTransactions(ctx)
	}
	if ev.Kind == ledger.EventProfileUpdated || ev.Kind == ledger.EventReplaced {
		s.persistProfile(ctx)
	}
}

func (s *LedgerService) enqueue(ev ledger.Event) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.queue == nil || s.closed {
		return
	}
	select {
	case s.queue <- ev:
	default:
		slog.WarnContext(context.Background(), "Ledger event queue full, dropping event",
			"kind", ev.Kind, "revision", ev.Revision)
	}
}

func (s *LedgerService) publishLoop() {
	defer s.publishWG.Done()
	for ev := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		s.publish(ctx, ev)
		cancel()
	}
}

func (s *LedgerService) persistTransactions(ctx context.Context) {
	b, err := json.Marshal(s.store.Transactions())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode transactions", "error", err)
		return
	}
	if err := s.kv.Set(ctx, storage.KeyTransactions, b); err != nil {
		slog.ErrorContext(ctx, "Failed to save transactions", "error", err)
	}
}

func (s *LedgerService) persistProfile(ctx context.Context) {
	b, err := json.Marshal(s.store.Profile())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode profile", "error", err)
		return
	}
	if err := s.kv.Set(ctx, storage.KeyProfile, b); err != nil {
		slog.ErrorContext(ctx, "Failed to save profile", "error", err)
	}
}

func (s *LedgerService) publish(ctx context.Context, ev ledger.Event) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewLedgerEvent(string(ev.Kind), ev.IDs, ev.Revision)
	msg.Type = string(ev.Type)
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", ev.Kind, "revision", ev.Revision, "error", err)
	}
}

// Transactions returns the list narrowed by f, newest insertion first.
func (s *LedgerService) Transactions(f ledger.Filter) []core.Transaction {
	return f.Apply(s.store.Transactions())
}

func (s *LedgerService) Get(id string) (core.Transaction, bool) {
	return s.store.Get(id)
}

func (s *LedgerService) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	added, err := s.store.Add(t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction added",
		"id", added.ID, "type", added.Type, "amount", core.FormatAmount(added.Amount))
	return added, nil
}

// Update replaces the transaction with t.ID. It reports false when no such
// transaction exists.
func (s *LedgerService) Update(ctx context.Context, t core.Transaction) (bool, error) {
	ok, err := s.store.Update(t)
	if err != nil {
		return false, fmt.Errorf("update transaction %s: %w", t.ID, err)
	}
	if ok {
		slog.InfoContext(ctx, "Transaction updated", "id", t.ID)
	}
	return ok, nil
}

func (s *LedgerService) Delete(ctx context.Context, id string) bool {
	ok := s.store.Delete(id)
	if ok {
		slog.InfoContext(ctx, "Transaction deleted", "id", id)
	}
	return ok
}

// Clear removes every transaction of typ once the confirmation passes.
func (s *LedgerService) Clear(ctx context.Context, typ core.TransactionType, c ledger.Confirmation) (int, error) {
	n, err := s.store.ClearByType(typ, c)
	if err != nil {
		slog.WarnContext(ctx, "Clear rejected", "type", typ, "error", err)
		return 0, err
	}
	slog.InfoContext(ctx, "Transactions cleared", "type", typ, "count", n)
	return n, nil
}

// Import parses a CSV file and adds every valid row. The returned result
// lists the stored transactions with their new ids.
func (s *LedgerService) Import(ctx context.Context, r io.Reader, opts csvio.ImportOptions) (csvio.ImportResult, error) {
	res, err := csvio.Import(r, opts)
	if err != nil {
		return res, fmt.Errorf("import csv: %w", err)
	}
	if len(res.Transactions) > 0 {
		added, err := s.store.AddBatch(res.Transactions)
		if err != nil {
			return res, fmt.Errorf("store imported rows: %w", err)
		}
		res.Transactions = added
	}
	slog.InfoContext(ctx, "CSV imported",
		"format", res.Format, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

func (s *LedgerService) Profile() core.CompanyProfile {
	return s.store.Profile()
}

func (s *LedgerService) SetProfile(ctx context.Context, p core.CompanyProfile) {
	s.store.SetProfile(p)
	slog.InfoContext(ctx, "Company profile updated", "name", p.Name)
}

// ImportProfile reads a profile CSV and applies it.
func (s *LedgerService) ImportProfile(ctx context.Context, r io.Reader) (core.CompanyProfile, error) {
	p, err := csvio.ReadProfile(r)
	if err != nil {
		return core.CompanyProfile{}, fmt.Errorf("import profile: %w", err)
	}
	s.SetProfile(ctx, p)
	return p, nil
}

func (s *LedgerService) DailyIncome() []ledger.DailyIncome {
	return ledger.AggregateDailyIncome(s.store.Transactions())
}

// VATReturn computes the return for "ALL" or a YYYY-MM period.
func (s *LedgerService) VATReturn(period string) (ledger.VatSummary, error) {
	if err := ledger.ValidatePeriod(period); err != nil {
		return ledger.VatSummary{}, err
	}
	return s.vat.Compute(s.store.Transactions(), period), nil
}

func (s *LedgerService) Reports() Reports {
	txs := s.store.Transactions()
	return Reports{
		Summary:    ledger.Summarize(txs),
		Timeline:   ledger.Timeline(txs),
		Categories: ledger.ExpensesByCategory(txs),
	}
}

func (s *LedgerService) Revision() uint64 {
	return s.store.Revision()
}
