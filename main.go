package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"slot-scraper/config"
	"slot-scraper/models"
	"slot-scraper/scraper/booking"
	"slot-scraper/services"
	"slot-scraper/storage"
	"slot-scraper/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	configPath string
	targetURLs []string
	noDB       bool
	csvPath    string
)

var rootCmd = &cobra.Command{
	Use:   "slot-scraper",
	Short: "slot-scraper walks venue booking flows and extracts bookable time slots.",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().StringSliceVarP(&targetURLs, "url", "u", nil, "target booking URL (repeatable, overrides TARGET_URLS)")
	rootCmd.Flags().BoolVar(&noDB, "no-db", false, "skip PostgreSQL and only write CSV")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "CSV output path (overrides CSV_FILE_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// ================== Bootstrap ====================
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if len(targetURLs) > 0 {
		cfg.TargetURLs = targetURLs
	}
	if csvPath != "" {
		cfg.CSVFilePath = csvPath
	}

	logger := utils.NewLogger(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	runID := uuid.NewString()
	logger.Info("Booking Slot Scraper (run %s)", runID)
	logger.Info("Targets: %d | Concurrency: %d | Rate delay: %dms | Retries: %d",
		len(cfg.TargetURLs), cfg.MaxConcurrency, cfg.RateLimitDelay, cfg.MaxRetries)
	logger.Info("Timeouts: step %v | session %v | probe %v",
		cfg.StepTimeout(), cfg.SessionTimeout(), cfg.ProbeTimeout())

	if len(cfg.TargetURLs) == 0 {
		return fmt.Errorf("no target URLs: set TARGET_URLS or pass --url")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =================== PostgreSQL Setup ========================================
	var submitter storage.Submitter
	if !noDB {
		pgWriter, err := storage.NewPostgresWriter(cfg.DatabaseURL, runID, logger)
		if err != nil {
			logger.Error("Cannot connect to PostgreSQL: %v", err)
			return err
		}
		defer pgWriter.Close()

		if err := pgWriter.CreateTable(ctx); err != nil {
			return err
		}
		submitter = pgWriter
	}

	// =============== Scraping ===================================
	scraper := booking.NewScraper(cfg, booking.NewChromeDriver(cfg.Headless), logger)
	results := scraper.Scrape(ctx, cfg.TargetURLs)

	var all []*models.BookingRecord
	for _, res := range results {
		all = append(all, res.Records...)
	}

	// ========= CSV: store finalized records ===========================
	var exporter storage.RecordExporter = storage.NewCSVWriter(cfg.CSVFilePath, logger)
	if err := exporter.WriteRecords(all); err != nil {
		logger.Error("Failed to write CSV: %v", err)
		// Non-fatal: continue to DB storage
	}

	// ========= PostgreSQL: upsert per source URL ============
	if submitter != nil {
		submitAll(ctx, submitter, results, logger)
	}

	// ==== Report ============================
	report := services.NewInsightService(logger).Generate(results)
	services.PrintBatchReport(os.Stdout, report)

	fmt.Println(" Done! Records →", cfg.CSVFilePath)
	return nil
}

func submitAll(ctx context.Context, submitter storage.Submitter, results []*models.SessionResult, logger *utils.Logger) {
	for _, res := range results {
		if res.Status != models.StatusOK || len(res.Records) == 0 {
			continue
		}
		out, err := submitter.Submit(ctx, res.URL, res.Records)
		if err != nil {
			logger.Error("Submit failed for %s: %v", res.URL, err)
			continue
		}
		if !out.OK() {
			logger.Warn("%d of %d records for %s were not stored", out.Failed, len(res.Records), res.URL)
		}
	}
}
