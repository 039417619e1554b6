package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bistro/internal/amqp"
	"bistro/internal/csvio"
	"bistro/internal/ledger"
	"bistro/internal/services"
	"bistro/internal/sheets"
	"bistro/internal/storage"
)

// SyncWorker mirrors the stored ledger to spreadsheet tabs: the daily income
// sheet and the VAT return for the current month.
type SyncWorker struct {
	kv       storage.KV
	sheets   sheets.TableWriter
	vat      ledger.VATEngine
	dailyTab string
	vatTab   string
	now      func() time.Time
}

func NewSyncWorker(kv storage.KV, writer sheets.TableWriter, vat ledger.VATEngine) *SyncWorker {
	return &SyncWorker{
		kv:       kv,
		sheets:   writer,
		vat:      vat,
		dailyTab: sheets.DailyIncomeTab,
		vatTab:   sheets.VATTab,
		now:      time.Now,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP. Events carry
// no data, so every event triggers a full rewrite from storage.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"revision", msg.Revision,
		"ids", len(msg.IDs))

	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("sync after %s: %w", msg.Kind, err)
	}
	return nil
}

// StartupSync brings the sheets up to date before any event arrives. This
// covers events published while the worker was down.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed")
	return nil
}

// Sync rewrites both tabs from the current stored ledger.
func (w *SyncWorker) Sync(ctx context.Context) error {
	txs, profile := services.LoadLedger(ctx, w.kv)

	days := ledger.AggregateDailyIncome(txs)
	if err := w.sheets.WriteTable(ctx, w.dailyTab, csvio.DailySheetRows(days)); err != nil {
		return fmt.Errorf("write %s: %w", w.dailyTab, err)
	}

	period := w.now().Format("2006-01")
	summary := w.vat.Compute(txs, period)
	if err := w.sheets.WriteTable(ctx, w.vatTab, csvio.VATReturnRows(summary)); err != nil {
		return fmt.Errorf("write %s: %w", w.vatTab, err)
	}

	slog.InfoContext(ctx, "Successfully synced ledger to sheets",
		"company", profile.Name,
		"days", len(days),
		"vat_period", period,
		"net_vat", summary.NetVAT.StringFixed(2))
	return nil
}
