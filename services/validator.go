package services

import (
	"strings"
	"time"

	"slot-scraper/models"
	"slot-scraper/utils"
)

// RecordValidator drops incomplete candidates and removes duplicate slots
type RecordValidator struct {
	logger *utils.Logger
}

// NewRecordValidator creates a new RecordValidator
func NewRecordValidator(logger *utils.Logger) *RecordValidator {
	return &RecordValidator{logger: logger}
}

// Finalize keeps candidates with a well-formed date and time, deduplicated by
// (date, time, provider) in first-seen order. Missing price or provider is left
// as is. Finalize(Finalize(x)) == Finalize(x).
func (v *RecordValidator) Finalize(candidates []*models.BookingRecord) []*models.BookingRecord {
	seen := make(map[string]bool)
	out := make([]*models.BookingRecord, 0, len(candidates))

	for _, c := range candidates {
		if c == nil {
			continue
		}
		if !validDate(c.Date) || !validTime(c.Time) {
			v.logger.Debug("Dropping candidate without valid date/time: date=%q time=%q", c.Date, c.Time)
			continue
		}

		key := DedupKey(c)
		if seen[key] {
			v.logger.Debug("Dropping duplicate slot %s %s (%s)", c.Date, c.Time, c.Provider)
			continue
		}
		seen[key] = true

		c.Provider = strings.TrimSpace(c.Provider)
		c.Price = strings.TrimSpace(c.Price)
		if c.PriceAmount == nil && c.Price != "" {
			if amount, ok := ParsePrice(c.Price); ok {
				c.PriceAmount = &amount
			}
		}
		out = append(out, c)
	}

	v.logger.Info("Finalized %d records from %d candidates", len(out), len(candidates))
	return out
}

// DedupKey identifies a booking opportunity. An unresolved provider is keyed by
// source URL instead, so unnamed courts of different venues never collapse together.
func DedupKey(r *models.BookingRecord) string {
	provider := strings.ToLower(strings.TrimSpace(r.Provider))
	if provider == "" {
		return r.Date + "|" + r.Time + "||" + strings.TrimSpace(r.SourceURL)
	}
	return r.Date + "|" + r.Time + "|" + provider
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
