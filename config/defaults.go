package config

// Semantic targets the booking flow looks up on the page
const (
	TargetBranchItem        = "branch_item"
	TargetTimeSlot          = "time_slot"
	TargetSelectedDate      = "selected_date"
	TargetStaffItem         = "staff_item"
	TargetProvider          = "provider"
	TargetPrice             = "price"
	TargetServiceName       = "service_name"
	TargetContinueButton    = "continue_button"
	TargetNearestDateButton = "nearest_date_button"
	TargetNoSlotsBanner     = "no_slots_banner"
)

func css(selectors ...string) []Strategy {
	out := make([]Strategy, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, Strategy{Kind: StrategyCSS, Selector: s})
	}
	return out
}

// DefaultStepTokens returns the URL path tokens that mark each step of the flow
func DefaultStepTokens() map[string][]string {
	return map[string][]string{
		"branch_select":  {"select-branch", "select-city"},
		"time_select":    {"select-time"},
		"staff_select":   {"select-master", "select-staff"},
		"service_select": {"select-services", "select-service"},
	}
}

// DefaultCaptureRules returns the URL substrings of the site's internal search endpoints
func DefaultCaptureRules() map[string][]string {
	return map[string][]string{
		"dates":     {"search-dates"},
		"timeslots": {"search-timeslots"},
		"services":  {"search-services"},
		"staff":     {"search-staff"},
	}
}

// DefaultSelectors returns the ordered selector candidates per semantic target.
// Venues render the same field with different markup, so order matters.
func DefaultSelectors() map[string][]Strategy {
	return map[string][]Strategy{
		TargetBranchItem: css(
			`[data-locator="branch_item"]`,
			`.branch-item`,
			`ul.branches > li`,
		),
		TargetTimeSlot: css(
			`[data-locator="timeslot"]`,
			`.time-slot`,
			`button.slot`,
		),
		TargetSelectedDate: css(
			`[data-locator="selected_date"]`,
			`.calendar-day.selected`,
			`.selected-date`,
		),
		TargetStaffItem: css(
			`[data-locator="master_item"]`,
			`.master-item`,
			`.staff-item`,
		),
		TargetProvider: append(css(
			`p.label.category-title`,
			`div.header_title`,
			`[data-locator="master_name"]`,
			`.master-name`,
		), Strategy{Kind: StrategyRegex, Pattern: `(?i)((?:корт|court)\s*№?\s*\d+(?:\s*\([^)]{1,20}\))?)`}),
		TargetPrice: append(css(
			`[data-locator="service_price"]`,
			`.service-price`,
			`span.price`,
		), Strategy{Kind: StrategyRegex, Pattern: `(\d[\d\s\x{00a0}]*\s?₽)`}),
		TargetServiceName: css(
			`[data-locator="service_title"]`,
			`.service-title`,
		),
		TargetContinueButton: css(
			`[data-locator="continue_button"]`,
			`button.continue`,
			`button[type="submit"]`,
		),
		TargetNearestDateButton: css(
			`[data-locator="nearest_date_button"]`,
			`button.nearest-date`,
			`.go-to-nearest`,
		),
		TargetNoSlotsBanner: css(
			`[data-locator="no_slots"]`,
			`.no-slots`,
			`.empty-timeslots`,
		),
	}
}
