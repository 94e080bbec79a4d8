package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"slot-scraper/models"
	"slot-scraper/utils"

	_ "github.com/lib/pq"
)

// PostgresWriter upserts booking records into PostgreSQL
type PostgresWriter struct {
	db     *sql.DB
	runID  string
	logger *utils.Logger
}

// NewPostgresWriter creates a new PostgresWriter and pings the DB.
// runID tags every row written by this process.
func NewPostgresWriter(connStr, runID string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresWriter{db: db, runID: runID, logger: logger}, nil
}

// CreateTable creates the booking_slots table if it doesn't exist, with indexes
func (w *PostgresWriter) CreateTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS booking_slots (
		id                SERIAL PRIMARY KEY,
		source_url        TEXT          NOT NULL,
		slot_date         DATE          NOT NULL,
		slot_time         TIME          NOT NULL,
		provider          TEXT          NOT NULL DEFAULT '',
		provider_resolved BOOLEAN       NOT NULL DEFAULT FALSE,
		price_text        TEXT,
		price_amount      NUMERIC(12,2),
		duration_minutes  INTEGER,
		run_id            TEXT          NOT NULL,
		extracted_at      TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
		UNIQUE (source_url, slot_date, slot_time, provider)
	);

	CREATE INDEX IF NOT EXISTS idx_booking_slots_date     ON booking_slots (slot_date);
	CREATE INDEX IF NOT EXISTS idx_booking_slots_provider ON booking_slots (provider);
	CREATE INDEX IF NOT EXISTS idx_booking_slots_price    ON booking_slots (price_amount);
	`
	if _, err := w.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	w.logger.Info("Table 'booking_slots' is ready")
	return nil
}

// Submit upserts records one statement at a time, so one bad row only fails itself
func (w *PostgresWriter) Submit(ctx context.Context, sourceURL string, records []*models.BookingRecord) (SubmitResult, error) {
	var result SubmitResult
	if len(records) == 0 {
		return result, nil
	}

	stmt, err := w.db.PrepareContext(ctx, `
		INSERT INTO booking_slots (source_url, slot_date, slot_time, provider, provider_resolved,
			price_text, price_amount, duration_minutes, run_id, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_url, slot_date, slot_time, provider) DO UPDATE SET
			price_text       = EXCLUDED.price_text,
			price_amount     = EXCLUDED.price_amount,
			duration_minutes = EXCLUDED.duration_minutes,
			run_id           = EXCLUDED.run_id,
			extracted_at     = EXCLUDED.extracted_at,
			updated_at       = NOW()
	`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			sourceURL,
			r.Date,
			r.Time,
			r.Provider,
			r.HasProvider(),
			nullString(r.Price),
			nullFloat(r.PriceAmount),
			nullInt(r.DurationMinutes),
			w.runID,
			r.ExtractedAt,
		)
		if err != nil {
			w.logger.Warn("Skipping upsert for %s %s at %s: %v", r.Date, r.Time, sourceURL, err)
			result.Failed++
			continue
		}
		result.Stored++
	}

	w.logger.Info("Upserted %d/%d records for %s", result.Stored, len(records), sourceURL)
	return result, nil
}

// Close closes the database connection
func (w *PostgresWriter) Close() error {
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}
