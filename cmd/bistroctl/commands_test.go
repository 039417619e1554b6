package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bistro/internal/core"
	"bistro/internal/ledger"
	"bistro/internal/services"
	"bistro/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, storage.KeyTransactions, []byte("[]")))

	svc := services.NewLedgerService(ctx, kv, nil, ledger.NewVATEngine(ledger.DefaultVATRate))
	out := &bytes.Buffer{}
	return &app{
		ledger:  svc,
		backups: services.NewBackupService(svc.Store(), kv),
		out:     out,
		now:     func() time.Time { return time.Date(2025, 11, 30, 12, 0, 0, 0, time.UTC) },
	}, out
}

func writeTemplate(t *testing.T, a *app, typ string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.csv")
	require.NoError(t, a.run(context.Background(), "template", []string{"-type", typ, "-out", path}))
	return path
}

func TestImportTemplates(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "import", []string{"-file", writeTemplate(t, a, "EXPENSE"), "-type", "EXPENSE"}))
	assert.Contains(t, out.String(), "Imported 1 rows")

	require.NoError(t, a.run(ctx, "import", []string{"-file", writeTemplate(t, a, "INCOME"), "-type", "income"}))
	assert.NotEmpty(t, a.ledger.Transactions(ledger.Filter{Type: core.Income}))
	assert.Len(t, a.ledger.Transactions(ledger.Filter{Type: core.Expense}), 1)
}

func TestImportRequiresFile(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.run(context.Background(), "import", nil))
	assert.Error(t, a.run(context.Background(), "import", []string{"-file", "x.csv", "-type", "LOAN"}))
}

func TestExport(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.run(ctx, "import", []string{"-file", writeTemplate(t, a, "EXPENSE"), "-type", "EXPENSE"}))
	out.Reset()

	require.NoError(t, a.run(ctx, "export", []string{"-type", "EXPENSE"}))
	assert.Contains(t, out.String(), "Weekly Veg Delivery")

	out.Reset()
	require.NoError(t, a.run(ctx, "export", []string{"-type", "INCOME"}))
	assert.NotContains(t, out.String(), "Weekly Veg Delivery")

	assert.Error(t, a.run(ctx, "export", []string{"-sub", "NOPE"}))
}

func TestVAT(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "vat", []string{"-period", "all"}))
	assert.NotEmpty(t, out.String())

	assert.Error(t, a.run(ctx, "vat", []string{"-period", "2025-13"}))
}

func TestClear(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.run(ctx, "import", []string{"-file", writeTemplate(t, a, "EXPENSE"), "-type", "EXPENSE"}))

	err := a.run(ctx, "clear", []string{"-type", "EXPENSE", "-passcode", "wrong", "-yes"})
	assert.ErrorIs(t, err, ledger.ErrAccessDenied)

	err = a.run(ctx, "clear", []string{"-type", "EXPENSE", "-passcode", ledger.DefaultPasscode})
	assert.ErrorIs(t, err, ledger.ErrNotConfirmed)

	out.Reset()
	require.NoError(t, a.run(ctx, "clear", []string{"-type", "EXPENSE", "-passcode", ledger.DefaultPasscode, "-yes"}))
	assert.Contains(t, out.String(), "Deleted 1 EXPENSE transactions")
	assert.Empty(t, a.ledger.Transactions(ledger.Filter{Type: core.Expense}))
}

func TestBackupRestore(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.run(ctx, "import", []string{"-file", writeTemplate(t, a, "EXPENSE"), "-type", "EXPENSE"}))

	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, a.run(ctx, "backup", []string{"-out", path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type": "MANUAL_EXPORT"`)

	require.NoError(t, a.run(ctx, "clear", []string{"-type", "EXPENSE", "-passcode", ledger.DefaultPasscode, "-yes"}))
	require.NoError(t, a.run(ctx, "restore", []string{"-file", path}))
	assert.Len(t, a.ledger.Transactions(ledger.Filter{Type: core.Expense}), 1)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2]`), 0o600))
	assert.ErrorIs(t, a.run(ctx, "restore", []string{"-file", bad}), services.ErrInvalidBackup)

	out.Reset()
	require.NoError(t, a.run(ctx, "history", nil))
	assert.Contains(t, out.String(), services.KindManualExport)
}

func TestRestoreAuto(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.run(ctx, "restore-auto", nil), services.ErrNoAutoBackup)

	require.NoError(t, a.run(ctx, "snapshot", nil))
	require.NoError(t, a.run(ctx, "restore-auto", nil))
}

func TestUnknownCommand(t *testing.T) {
	a, _ := newTestApp(t)
	assert.ErrorIs(t, a.run(context.Background(), "frobnicate", nil), errUnknownCommand)
}
