package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvloznov/paypal-ledger/internal/app"
	"github.com/dvloznov/paypal-ledger/internal/archive"
	"github.com/dvloznov/paypal-ledger/internal/config"
	infraBQ "github.com/dvloznov/paypal-ledger/internal/infra/bigquery"
	"github.com/dvloznov/paypal-ledger/internal/logger"
	"github.com/dvloznov/paypal-ledger/internal/pipeline"
	"github.com/dvloznov/paypal-ledger/internal/receipt"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(log)
	case "notes":
		runNotes(log)
	case "replay":
		runReplay(log)
	case "init-ledger":
		runInitLedger(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("PayPal Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse        Extract the transaction from a saved receipt HTML file")
	fmt.Println("  notes        Extract the annotation from a saved plain-text body")
	fmt.Println("  replay       Re-run an archived webhook payload through the pipeline")
	fmt.Println("  init-ledger  Create the BigQuery ledger table if it does not exist")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runParse(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a receipt HTML file")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	html, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read file")
	}

	tx, err := receipt.ParseReceipt(string(html))
	if err != nil {
		describeFailure(os.Stdout, err)
		os.Exit(1)
	}
	describeTransaction(os.Stdout, tx)
}

func runNotes(log zerolog.Logger) {
	fs := flag.NewFlagSet("notes", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a plain-text email body")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	plain, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read file")
	}

	fmt.Println(receipt.ExtractNotes(string(plain)))
}

func runReplay(log zerolog.Logger) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	gcsURI := fs.String("gcs-uri", "", "GCS URI of an archived webhook payload")
	fs.Parse(os.Args[2:])

	if *gcsURI == "" {
		log.Fatal().Msg("Error: -gcs-uri is required")
	}
	bucket, _, err := archive.ParseURI(*gcsURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid GCS URI")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = log.Level(logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	// Replayed payloads are not archived a second time.
	cfg.ArchiveBucket = ""
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	store, err := archive.NewStore(ctx, bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create archive client")
	}
	defer store.Close()

	log.Info().Str("gcs_uri", *gcsURI).Msg("Replaying payload")

	raw, err := store.Fetch(ctx, *gcsURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch payload")
	}

	result := application.Processor.Process(ctx, raw)
	describeResult(os.Stdout, result)
	if result.Retry() {
		os.Exit(1)
	}
}

func runInitLedger(log zerolog.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.LedgerBackend != config.BackendBigQuery {
		fmt.Printf("Ledger backend %q needs no provisioning.\n", cfg.LedgerBackend)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	ledger, err := infraBQ.NewLedger(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer ledger.Close()

	if err := ledger.EnsureTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger table")
	}

	fmt.Printf("Ledger table %s.%s.%s is ready.\n", cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
}

func describeTransaction(w io.Writer, tx receipt.Transaction) {
	fmt.Fprintln(w, "\n=== Transaction ===")
	fmt.Fprintf(w, "ID:       %s\n", tx.ID)
	fmt.Fprintf(w, "Date:     %s\n", tx.Date)
	fmt.Fprintf(w, "Merchant: %s\n", tx.Merchant)
	fmt.Fprintf(w, "Amount:   £%s\n", tx.Amount.StringFixed(2))
	if tx.Notes != "" {
		fmt.Fprintf(w, "Notes:    %s\n", tx.Notes)
	}
}

func describeFailure(w io.Writer, err error) {
	fmt.Fprintln(w, "\n=== Parse failed ===")
	fmt.Fprintln(w, err)

	var extractErr *receipt.ExtractionError
	if !errors.As(err, &extractErr) {
		return
	}
	fmt.Fprintf(w, "Kind:     %s\n", extractErr.Kind)
	switch extractErr.Kind {
	case receipt.MissingFields:
		fmt.Fprintf(w, "Missing:  %v\n", extractErr.Missing)
		fmt.Fprintf(w, "Found:    %v\n", extractErr.Found)
	case receipt.UnparseableAmount:
		fmt.Fprintf(w, "Raw:      %q\n", extractErr.RawAmount)
	}
}

func describeResult(w io.Writer, result pipeline.Result) {
	fmt.Fprintln(w, "\n=== Replay ===")
	fmt.Fprintf(w, "Outcome:    %s\n", result.Outcome)
	fmt.Fprintf(w, "Class:      %s\n", result.Class())
	fmt.Fprintf(w, "Email hash: %s\n", result.EmailHash)
	if result.Transaction != nil {
		describeTransaction(w, *result.Transaction)
	}
	if result.Err != nil {
		fmt.Fprintf(w, "Error:      %v\n", result.Err)
	}
}
