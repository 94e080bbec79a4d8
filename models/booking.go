package models

import "time"

// BookingRecord is one bookable slot extracted from a venue's booking flow
type BookingRecord struct {
	Date             string   // YYYY-MM-DD
	Time             string   // HH:MM
	Price            string   // as captured, e.g. "1 200 ₽" or "1200-1500"
	PriceAmount      *float64 // normalized lower bound of Price, nil when Price is empty or unparsable
	Provider         string   // court/staff name, empty when unresolved
	ProviderStrategy int      // selector strategy index the provider came from, -1 if not from the DOM
	DurationMinutes  int      // 0 when unknown
	SourceURL        string
	ExtractedAt      time.Time
}

// HasProvider reports whether any source resolved the provider name
func (r *BookingRecord) HasProvider() bool {
	return r.Provider != ""
}

// HasPrice reports whether any source supplied a price
func (r *BookingRecord) HasPrice() bool {
	return r.Price != ""
}

// Category is the kind of internal data-fetch response the booking page issues
type Category string

const (
	CategoryDates     Category = "dates"
	CategoryTimeslots Category = "timeslots"
	CategoryServices  Category = "services"
	CategoryStaff     Category = "staff"
)

// Categories lists every capture category in a stable order
var Categories = []Category{CategoryDates, CategoryTimeslots, CategoryServices, CategoryStaff}

// CapturedResponse is a decoded JSON payload captured from the page's network traffic
type CapturedResponse struct {
	Category   Category
	URL        string
	Payload    interface{}
	CapturedAt time.Time
}

// CaptureDiagnostic describes a matched response that could not be stored as data
type CaptureDiagnostic struct {
	Category   Category
	URL        string
	Reason     string
	CapturedAt time.Time
}
