package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bistro/internal/cli"
	"bistro/internal/config"
	"bistro/internal/ledger"
	"bistro/internal/log"
	"bistro/internal/services"
)

const commandTimeout = 2 * time.Minute

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "help", "-h", "--help":
		printUsage()
		return
	}

	lc := log.DefaultConfig()
	lc.Component = log.ComponentApp
	lc.Output = os.Stderr
	boot := log.New(lc)
	log.SetDefault(boot)
	if err := cli.LoadEnvFile(); err != nil {
		boot.WarnContext(context.Background(), "Failed to load .env file", log.FieldError, err)
	}
	cfg := cli.LoadAndValidateConfig(boot, (*config.Config).Validate)
	lc.Level = cfg.SlogLevel()
	logger := log.New(lc)
	log.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res := cli.InitBackend(ctx, logger, cfg, false)
	defer func() { _ = res.Cleanup() }()

	ledgerSvc := services.NewLedgerService(ctx, res.Store, res.Publisher,
		ledger.NewVATEngine(cfg.VATRate), ledger.WithPasscode(cfg.ClearPasscode))
	a := &app{
		ledger:  ledgerSvc,
		backups: services.NewBackupService(ledgerSvc.Store(), res.Store),
		out:     os.Stdout,
		now:     time.Now,
	}

	err := a.run(ctx, os.Args[1], os.Args[2:])
	if cerr := ledgerSvc.Close(ctx); cerr != nil {
		logger.WarnContext(ctx, "Some ledger events were not published", log.FieldError, cerr)
	}
	if err != nil {
		logger.ErrorContext(ctx, "Command failed", "command", os.Args[1], log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Bistro ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  bistroctl <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import          Import transactions from a CSV file")
	fmt.Println("  export          Export transactions as CSV")
	fmt.Println("  template        Print an empty import template")
	fmt.Println("  daily           Print the daily income sheet")
	fmt.Println("  vat             Print the VAT return for a period")
	fmt.Println("  clear           Delete every transaction of one type")
	fmt.Println("  profile-import  Load the company profile from CSV")
	fmt.Println("  profile-export  Print the company profile as CSV")
	fmt.Println("  snapshot        Take an auto-backup snapshot")
	fmt.Println("  backup          Write a full JSON backup")
	fmt.Println("  restore         Restore from a JSON backup file")
	fmt.Println("  restore-auto    Restore the last auto-backup snapshot")
	fmt.Println("  history         List recent backups")
	fmt.Println("  help            Show this help message")
	fmt.Println("\nRun 'bistroctl <command> -h' for more information on a command.")
}
