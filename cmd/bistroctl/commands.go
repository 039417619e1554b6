package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"bistro/internal/core"
	"bistro/internal/csvio"
	"bistro/internal/ledger"
	"bistro/internal/services"
)

var errUnknownCommand = errors.New("unknown command")

// app runs one command against an opened ledger.
type app struct {
	ledger  *services.LedgerService
	backups *services.BackupService
	out     io.Writer
	now     func() time.Time
}

func (a *app) run(ctx context.Context, name string, args []string) error {
	cmds := map[string]func(context.Context, []string) error{
		"import":         a.runImport,
		"export":         a.runExport,
		"template":       a.runTemplate,
		"daily":          a.runDaily,
		"vat":            a.runVAT,
		"clear":          a.runClear,
		"profile-import": a.runProfileImport,
		"profile-export": a.runProfileExport,
		"snapshot":       a.runSnapshot,
		"backup":         a.runBackup,
		"restore":        a.runRestore,
		"restore-auto":   a.runRestoreAuto,
		"history":        a.runHistory,
	}
	cmd, ok := cmds[name]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
	return cmd(ctx, args)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parseType(s string) (core.TransactionType, error) {
	if s == "" {
		return "", nil
	}
	return core.ParseTransactionType(s)
}

// output opens path for writing, or returns a.out for "" and "-".
func (a *app) output(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return a.out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func (a *app) writeTo(path string, write func(io.Writer) error) error {
	w, closeFn, err := a.output(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if path != "" && path != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	}
	return nil
}

func (a *app) runImport(ctx context.Context, args []string) error {
	fs := newFlagSet("import")
	file := fs.String("file", "", "CSV file to import")
	typ := fs.String("type", "", "list to import into: INCOME or EXPENSE")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}
	forced, err := parseType(*typ)
	if err != nil {
		return err
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := a.ledger.Import(ctx, f, csvio.ImportOptions{ForcedType: forced})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d rows (%s), skipped %d\n", res.Imported, res.Format, res.Skipped)
	for _, msg := range res.Messages() {
		fmt.Fprintf(a.out, "  %s\n", msg)
	}
	return nil
}

func (a *app) runExport(_ context.Context, args []string) error {
	fs := newFlagSet("export")
	typ := fs.String("type", "", "only export INCOME or EXPENSE")
	sub := fs.String("sub", "", "sub-filter tag, e.g. CASH or VENDOR")
	method := fs.String("method", "", "exact payment method")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	forced, err := parseType(*typ)
	if err != nil {
		return err
	}
	sf, err := ledger.ParseSubFilter(*sub)
	if err != nil {
		return err
	}
	txs := a.ledger.Transactions(ledger.Filter{Type: forced, SubFilter: sf, PaymentMethod: *method})
	if *out == "" && *typ != "" {
		fmt.Fprintf(os.Stderr, "Suggested filename: %s\n",
			csvio.Filename(csvio.ExportLabel(forced, sf, *method), a.now()))
	}
	return a.writeTo(*out, func(w io.Writer) error {
		return csvio.Export(w, txs, forced)
	})
}

func (a *app) runTemplate(_ context.Context, args []string) error {
	fs := newFlagSet("template")
	typ := fs.String("type", "", "INCOME or EXPENSE")
	method := fs.String("method", "", "payment method for the example row")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	forced, err := parseType(*typ)
	if err != nil {
		return err
	}
	return a.writeTo(*out, func(w io.Writer) error {
		return csvio.WriteTemplate(w, forced, *method)
	})
}

func (a *app) runDaily(_ context.Context, args []string) error {
	fs := newFlagSet("daily")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.writeTo(*out, func(w io.Writer) error {
		return csvio.WriteDailySheet(w, a.ledger.DailyIncome())
	})
}

func (a *app) runVAT(_ context.Context, args []string) error {
	fs := newFlagSet("vat")
	period := fs.String("period", a.now().Format("2006-01"), "YYYY-MM or ALL")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p := strings.TrimSpace(*period)
	if strings.EqualFold(p, ledger.PeriodAll) {
		p = ledger.PeriodAll
	}
	sum, err := a.ledger.VATReturn(p)
	if err != nil {
		return err
	}
	return a.writeTo(*out, func(w io.Writer) error {
		return csvio.WriteVATReturn(w, sum)
	})
}

func (a *app) runClear(ctx context.Context, args []string) error {
	fs := newFlagSet("clear")
	typ := fs.String("type", "", "INCOME or EXPENSE")
	passcode := fs.String("passcode", "", "clear passcode")
	yes := fs.Bool("yes", false, "confirm the deletion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	forced, err := core.ParseTransactionType(*typ)
	if err != nil {
		return err
	}
	n, err := a.ledger.Clear(ctx, forced, ledger.Confirmation{Passcode: *passcode, Confirmed: *yes})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d %s transactions\n", n, forced)
	return nil
}

func (a *app) runProfileImport(ctx context.Context, args []string) error {
	fs := newFlagSet("profile-import")
	file := fs.String("file", "", "profile CSV file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}
	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	p, err := a.ledger.ImportProfile(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile updated: %s\n", p.Name)
	return nil
}

func (a *app) runProfileExport(_ context.Context, args []string) error {
	fs := newFlagSet("profile-export")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.writeTo(*out, func(w io.Writer) error {
		return csvio.WriteProfile(w, a.ledger.Profile())
	})
}

func (a *app) runSnapshot(ctx context.Context, _ []string) error {
	if err := a.backups.Snapshot(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Snapshot written")
	return nil
}

func (a *app) runBackup(ctx context.Context, args []string) error {
	fs := newFlagSet("backup")
	out := fs.String("out", "", "output file (default: dated backup name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, name, err := a.backups.ManualExport(ctx)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = name
	}
	return a.writeTo(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func (a *app) runRestore(ctx context.Context, args []string) error {
	fs := newFlagSet("restore")
	file := fs.String("file", "", "backup JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	if err := a.backups.Restore(ctx, data); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Restored %d transactions\n", len(a.ledger.Transactions(ledger.Filter{})))
	return nil
}

func (a *app) runRestoreAuto(ctx context.Context, _ []string) error {
	if err := a.backups.RestoreAuto(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Restored %d transactions from auto-backup\n", len(a.ledger.Transactions(ledger.Filter{})))
	return nil
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	fs := newFlagSet("history")
	limit := fs.Int("limit", 20, "number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	recs, err := a.backups.History(ctx, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAKEN AT\tKIND\tTRANSACTIONS\tBYTES")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", r.TakenAt.Format(time.RFC3339), r.Kind, r.TxCount, r.SizeBytes)
	}
	return tw.Flush()
}
