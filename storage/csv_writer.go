package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"slot-scraper/models"
	"slot-scraper/utils"
)

// CSVWriter handles writing finalized records to a CSV file
type CSVWriter struct {
	filePath string
	logger   *utils.Logger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(filePath string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{filePath: filePath, logger: logger}
}

// WriteRecords writes a slice of BookingRecords to the CSV file
func (w *CSVWriter) WriteRecords(records []*models.BookingRecord) error {
	// Ensure output directory exists
	dir := filepath.Dir(w.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"date", "time", "price", "price_amount", "provider",
		"provider_strategy", "duration_minutes", "source_url", "extracted_at",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range records {
		amount := ""
		if r.PriceAmount != nil {
			amount = strconv.FormatFloat(*r.PriceAmount, 'f', -1, 64)
		}
		duration := ""
		if r.DurationMinutes > 0 {
			duration = strconv.Itoa(r.DurationMinutes)
		}
		row := []string{
			r.Date,
			r.Time,
			r.Price,
			amount,
			r.Provider,
			strconv.Itoa(r.ProviderStrategy),
			duration,
			r.SourceURL,
			r.ExtractedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			w.logger.Error("Failed to write CSV row for %s %s: %v", r.Date, r.Time, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	w.logger.Info("Records written to: %s (%d rows)", w.filePath, len(records))
	return nil
}
