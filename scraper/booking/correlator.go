package booking

import (
	"fmt"
	"time"

	"slot-scraper/config"
	"slot-scraper/models"
)

// Correlator merges intercepted payloads and DOM fragments of one session into
// candidate booking records
type Correlator struct {
	defaultDuration int
	now             func() time.Time
}

// NewCorrelator creates a Correlator. defaultDurationMinutes is used only when
// neither payloads nor the DOM supply a duration; 0 leaves it unknown.
func NewCorrelator(defaultDurationMinutes int) *Correlator {
	return &Correlator{defaultDuration: defaultDurationMinutes, now: time.Now}
}

type slot struct {
	date  string
	clock string
}

type serviceContext struct {
	price    string
	duration int
}

// Correlate builds one candidate per bookable slot. Every candidate of a session
// shares the same service and provider context: the site does not link a price
// tier to a particular slot, so no pairing is attempted.
func (c *Correlator) Correlate(state *models.NavigationState, captures map[models.Category][]models.CapturedResponse, sourceURL string) []*models.BookingRecord {
	dateHint := c.dateHint(state, captures[models.CategoryDates])

	slots := c.slotsFromPayloads(captures[models.CategoryTimeslots], dateHint)
	if len(slots) == 0 {
		slots = c.slotsFromDOM(state, dateHint)
	}
	if len(slots) == 0 {
		return nil
	}

	svc := c.service(state, captures[models.CategoryServices])
	if svc.duration == 0 {
		svc.duration = c.defaultDuration
	}
	provider, strategy := c.provider(state, captures[models.CategoryStaff])

	extractedAt := c.now()
	out := make([]*models.BookingRecord, 0, len(slots))
	for _, s := range slots {
		out = append(out, &models.BookingRecord{
			Date:             s.date,
			Time:             s.clock,
			Price:            svc.price,
			Provider:         provider,
			ProviderStrategy: strategy,
			DurationMinutes:  svc.duration,
			SourceURL:        sourceURL,
			ExtractedAt:      extractedAt,
		})
	}
	return out
}

// slotsFromPayloads reads the first timeslot payload that yields any bookable slot
func (c *Correlator) slotsFromPayloads(payloads []models.CapturedResponse, dateHint string) []slot {
	for _, p := range payloads {
		var out []slot
		for _, e := range entries(p.Payload) {
			if s, ok := slotFromEntry(e, dateHint); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func slotFromEntry(e map[string]interface{}, dateHint string) (slot, bool) {
	if !bookable(e) {
		return slot{}, false
	}
	if date, clock, ok := splitDatetime(stringField(e, "datetime")); ok {
		return slot{date: date, clock: clock}, true
	}
	clock := normalizeTime(stringField(e, "time"))
	date := normalizeDate(stringField(e, "date"))
	if date == "" {
		date = dateHint
	}
	if clock == "" || date == "" {
		return slot{}, false
	}
	return slot{date: date, clock: clock}, true
}

// slotsFromDOM falls back to the slot the navigator actually selected, the only
// one whose price and provider were observed
func (c *Correlator) slotsFromDOM(state *models.NavigationState, dateHint string) []slot {
	if dateHint == "" {
		return nil
	}
	f, ok := state.Latest(fragmentSelectedSlot)
	if !ok {
		return nil
	}
	clock := normalizeTime(f.Text)
	if clock == "" {
		return nil
	}
	return []slot{{date: dateHint, clock: clock}}
}

// dateHint is the date shown on the time page, or else the first bookable date
// the site reported
func (c *Correlator) dateHint(state *models.NavigationState, dates []models.CapturedResponse) string {
	if f, ok := state.Latest(config.TargetSelectedDate); ok {
		if d := normalizeDate(f.Text); d != "" {
			return d
		}
	}
	for _, p := range dates {
		for _, e := range entries(p.Payload) {
			if !bookable(e) {
				continue
			}
			if d := normalizeDate(stringField(e, "date", "datetime")); d != "" {
				return d
			}
		}
	}
	return ""
}

// service takes price and duration from the first service payload entry,
// falling back to the scraped price text
func (c *Correlator) service(state *models.NavigationState, payloads []models.CapturedResponse) serviceContext {
	var svc serviceContext
	if e, ok := firstEntry(payloads); ok {
		lo, okLo := numberField(e, "price_min")
		hi, okHi := numberField(e, "price_max")
		switch {
		case okLo && okHi && hi > lo:
			svc.price = fmt.Sprintf("%s-%s", formatAmount(lo), formatAmount(hi))
		case okLo:
			svc.price = formatAmount(lo)
		case okHi:
			svc.price = formatAmount(hi)
		default:
			svc.price = stringField(e, "price")
		}
		if d, ok := numberField(e, "duration"); ok && d > 0 {
			svc.duration = int(d)
		} else if secs, ok := numberField(e, "seance_length"); ok && secs > 0 {
			svc.duration = int(secs) / 60
		}
	}
	if svc.price == "" {
		if f, ok := state.Latest(config.TargetPrice); ok {
			svc.price = f.Text
		}
	}
	return svc
}

func firstEntry(payloads []models.CapturedResponse) (map[string]interface{}, bool) {
	for _, p := range payloads {
		if list := entries(p.Payload); len(list) > 0 {
			return list[0], true
		}
	}
	return nil, false
}

// provider prefers the service page name, then the clicked staff entry, then the
// staff payload. The strategy index is -1 unless the name came from the provider
// selector list.
func (c *Correlator) provider(state *models.NavigationState, payloads []models.CapturedResponse) (string, int) {
	if f, ok := state.LatestAt(models.StepServiceSelect, config.TargetProvider); ok {
		return f.Text, f.Strategy
	}
	if f, ok := state.Latest(fragmentSelectedStaff); ok {
		return f.Text, -1
	}
	for _, p := range payloads {
		for _, e := range entries(p.Payload) {
			if !bookable(e) {
				continue
			}
			if name := stringField(e, "name", "title"); name != "" {
				return name, -1
			}
		}
	}
	return "", -1
}
