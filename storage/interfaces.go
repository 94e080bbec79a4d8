package storage

import (
	"context"

	"slot-scraper/models"
)

// SubmitResult counts per-record outcomes of one submission
type SubmitResult struct {
	Stored int
	Failed int
}

// OK reports whether every record was stored
func (r SubmitResult) OK() bool {
	return r.Failed == 0
}

// Submitter upserts the records of one source URL. Retrying a submission is
// safe; a failed record does not roll back the others.
type Submitter interface {
	Submit(ctx context.Context, sourceURL string, records []*models.BookingRecord) (SubmitResult, error)
	Close() error
}

// RecordExporter dumps finalized records for offline inspection
type RecordExporter interface {
	WriteRecords(records []*models.BookingRecord) error
}
