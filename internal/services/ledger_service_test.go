package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"bistro/internal/amqp"
	"bistro/internal/core"
	"bistro/internal/csvio"
	"bistro/internal/ledger"
	"bistro/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

// failingKV rejects every write.
type failingKV struct {
	storage.KV
}

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func sequentialIDs() ledger.Option {
	n := 0
	return ledger.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func income(date string, amount int64, method string) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{
		Date:          d,
		Description:   "Lunch",
		Amount:        decimal.NewFromInt(amount),
		Type:          core.Income,
		Category:      core.NewCategory(core.FoodSales),
		PaymentMethod: method,
	}
}

func newService(t *testing.T, kv storage.KV, pub EventPublisher) *LedgerService {
	t.Helper()
	return NewLedgerService(context.Background(), kv, pub, ledger.NewVATEngine(ledger.DefaultVATRate), sequentialIDs())
}

func TestLoadLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store uses defaults", func(t *testing.T) {
		txs, profile := LoadLedger(ctx, storage.NewMemoryStore())
		assert.Len(t, txs, len(core.DefaultTransactions()))
		assert.Equal(t, core.DefaultProfile(), profile)
	})

	t.Run("corrupt values fall back per key", func(t *testing.T) {
		kv := storage.NewMemoryStore()
		require.NoError(t, kv.Set(ctx, storage.KeyTransactions, []byte("{not json")))
		require.NoError(t, kv.Set(ctx, storage.KeyProfile, []byte(`{"name":"Chez Nous"}`)))

		txs, profile := LoadLedger(ctx, kv)
		assert.Len(t, txs, len(core.DefaultTransactions()))
		assert.Equal(t, "Chez Nous", profile.Name)
	})

	t.Run("stored empty list is kept", func(t *testing.T) {
		kv := storage.NewMemoryStore()
		require.NoError(t, kv.Set(ctx, storage.KeyTransactions, []byte("[]")))
		txs, _ := LoadLedger(ctx, kv)
		assert.Empty(t, txs)
	})
}

func TestLedgerService_PersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := newService(t, kv, pub)

	added, err := svc.Add(ctx, income("2024-03-01", 500, "Cash"))
	require.NoError(t, err)
	assert.Equal(t, "id-1", added.ID)

	b, err := kv.Get(ctx, storage.KeyTransactions)
	require.NoError(t, err)
	var stored []core.Transaction
	require.NoError(t, json.Unmarshal(b, &stored))
	require.Len(t, stored, len(core.DefaultTransactions())+1)
	assert.Equal(t, "id-1", stored[0].ID)

	svc.SetProfile(ctx, core.CompanyProfile{Name: "Chez Nous"})
	b, err = kv.Get(ctx, storage.KeyProfile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Chez Nous")

	require.NoError(t, svc.Close(ctx))
	require.Len(t, pub.events, 2)
	assert.Equal(t, "added", pub.events[0].Kind)
	assert.Equal(t, []string{"id-1"}, pub.events[0].IDs)
	assert.Equal(t, "profile_updated", pub.events[1].Kind)
	assert.Equal(t, uint64(2), pub.events[1].Revision)
}

// slowKV delays the first transactions write so a later write can overtake it.
type slowKV struct {
	*storage.MemoryStore
	once  sync.Once
	delay time.Duration
}

func (k *slowKV) Set(ctx context.Context, key string, value []byte) error {
	if key == storage.KeyTransactions {
		k.once.Do(func() { time.Sleep(k.delay) })
	}
	return k.MemoryStore.Set(ctx, key, value)
}

func TestLedgerService_ConcurrentWritesKeepNewestList(t *testing.T) {
	ctx := context.Background()
	kv := &slowKV{MemoryStore: storage.NewMemoryStore(), delay: 100 * time.Millisecond}
	require.NoError(t, kv.MemoryStore.Set(ctx, storage.KeyTransactions, []byte("[]")))
	svc := NewLedgerService(ctx, kv, nil, ledger.NewVATEngine(ledger.DefaultVATRate))

	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, income("2024-03-01", int64(100+i), "Cash"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	b, err := kv.Get(ctx, storage.KeyTransactions)
	require.NoError(t, err)
	var stored []core.Transaction
	require.NoError(t, json.Unmarshal(b, &stored))
	assert.Len(t, stored, 2)
	assert.Len(t, svc.Transactions(ledger.Filter{}), 2)
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	recordingPublisher
	release chan struct{}
}

func (p *blockingPublisher) PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	<-p.release
	return p.recordingPublisher.PublishLedgerEvent(ctx, ev)
}

func TestLedgerService_SlowBrokerDoesNotBlockMutations(t *testing.T) {
	ctx := context.Background()
	pub := &blockingPublisher{release: make(chan struct{})}
	svc := newService(t, storage.NewMemoryStore(), pub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 3 {
			_, err := svc.Add(ctx, income("2024-03-01", 100, "Cash"))
			assert.NoError(t, err)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutations blocked on the publisher")
	}

	close(pub.release)
	require.NoError(t, svc.Close(ctx))
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.events, 3)
	assert.Equal(t, uint64(3), pub.events[2].Revision)

	// Events after Close are dropped, not panics.
	_, err := svc.Add(ctx, income("2024-03-02", 100, "Cash"))
	require.NoError(t, err)
	assert.NoError(t, svc.Close(ctx))
}

func TestLedgerService_WriteFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newService(t, failingKV{storage.NewMemoryStore()}, pub)

	_, err := svc.Add(ctx, income("2024-03-01", 500, "Cash"))
	require.NoError(t, err)
	_, ok := svc.Get("id-1")
	assert.True(t, ok)
}

func TestLedgerService_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryStore(), nil)

	added, err := svc.Add(ctx, income("2024-03-01", 500, "Cash"))
	require.NoError(t, err)

	added.Amount = decimal.NewFromInt(650)
	ok, err := svc.Update(ctx, added)
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ := svc.Get(added.ID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(650)))

	missing := added
	missing.ID = "nope"
	ok, err = svc.Update(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	bad := added
	bad.Amount = decimal.NewFromInt(-1)
	_, err = svc.Update(ctx, bad)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	assert.True(t, svc.Delete(ctx, added.ID))
	assert.False(t, svc.Delete(ctx, added.ID))
}

func TestLedgerService_Clear(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryStore(), nil)
	_, err := svc.Add(ctx, income("2024-03-01", 500, "Cash"))
	require.NoError(t, err)
	before := len(svc.Transactions(ledger.Filter{}))

	_, err = svc.Clear(ctx, core.Expense, ledger.Confirmation{Passcode: "000000", Confirmed: true})
	assert.ErrorIs(t, err, ledger.ErrAccessDenied)
	assert.Len(t, svc.Transactions(ledger.Filter{}), before)

	n, err := svc.Clear(ctx, core.Expense, ledger.Confirmation{Passcode: ledger.DefaultPasscode, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, len(core.DefaultTransactions()), n)

	left := svc.Transactions(ledger.Filter{})
	require.Len(t, left, 1)
	assert.Equal(t, core.Income, left[0].Type)
}

func TestLedgerService_Import(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryStore(), nil)

	csv := strings.Join([]string{
		"Date,Type,Category,Description,Method,Amount",
		"2024-03-01,EXPENSE,Rent,March rent,Bank Transfer,2500",
		"2024-03-02,EXPENSE,Rent,Bad row,Bank Transfer,abc",
	}, "\n")
	res, err := svc.Import(ctx, strings.NewReader(csv), csvio.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "id-1", res.Transactions[0].ID)

	_, ok := svc.Get("id-1")
	assert.True(t, ok)

	_, err = svc.Import(ctx, strings.NewReader("Date,Type"), csvio.ImportOptions{})
	assert.ErrorIs(t, err, csvio.ErrNoData)
}

func TestLedgerService_Views(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, storage.KeyTransactions, []byte("[]")))
	svc := newService(t, kv, nil)

	_, err := svc.Add(ctx, income("2024-03-01", 115, "Cash"))
	require.NoError(t, err)

	days := svc.DailyIncome()
	require.Len(t, days, 1)
	assert.True(t, days[0].Cash.Equal(decimal.NewFromInt(115)))

	vat, err := svc.VATReturn("2024-03")
	require.NoError(t, err)
	assert.Equal(t, "15.00", vat.NetVAT.StringFixed(2))

	_, err = svc.VATReturn("March")
	assert.Error(t, err)

	rep := svc.Reports()
	assert.True(t, rep.Summary.TotalIncome.Equal(decimal.NewFromInt(115)))
	assert.Len(t, rep.Timeline, 1)
	assert.Equal(t, uint64(1), svc.Revision())
}
