package models

import "time"

// Step identifies which page of the booking flow is displayed
type Step string

const (
	StepBranchSelect  Step = "branch_select"
	StepTimeSelect    Step = "time_select"
	StepStaffSelect   Step = "staff_select"
	StepServiceSelect Step = "service_select"
	StepRedirect      Step = "redirect"
	StepDone          Step = "done"
	StepUnknown       Step = "unknown"
)

// Fragment is a piece of text scraped from the DOM at a given step
type Fragment struct {
	Target   string // semantic target, e.g. "provider"
	Text     string
	Strategy int // index into the target's selector candidate list
}

// NavigationState is the per-session record of where the flow went and what was scraped
type NavigationState struct {
	CurrentStep Step
	Fragments   map[Step][]Fragment
	History     []Step
	// Reason is set when the flow ended before reaching the service step
	Reason string
}

// NewNavigationState creates an empty state for a fresh session
func NewNavigationState() *NavigationState {
	return &NavigationState{
		CurrentStep: StepUnknown,
		Fragments:   make(map[Step][]Fragment),
	}
}

// Visit moves the state to step and appends it to the history
func (s *NavigationState) Visit(step Step) {
	s.CurrentStep = step
	s.History = append(s.History, step)
}

// Record stores a scraped fragment against step
func (s *NavigationState) Record(step Step, target, text string, strategy int) {
	s.Fragments[step] = append(s.Fragments[step], Fragment{Target: target, Text: text, Strategy: strategy})
}

// Latest returns the most recently scraped fragment for target, searching
// steps from the last visited backwards
func (s *NavigationState) Latest(target string) (Fragment, bool) {
	seen := make(map[Step]bool)
	for i := len(s.History) - 1; i >= 0; i-- {
		step := s.History[i]
		if seen[step] {
			continue
		}
		seen[step] = true
		frags := s.Fragments[step]
		for j := len(frags) - 1; j >= 0; j-- {
			if frags[j].Target == target {
				return frags[j], true
			}
		}
	}
	return Fragment{}, false
}

// LatestAt returns the most recent fragment for target scraped at step
func (s *NavigationState) LatestAt(step Step, target string) (Fragment, bool) {
	frags := s.Fragments[step]
	for i := len(frags) - 1; i >= 0; i-- {
		if frags[i].Target == target {
			return frags[i], true
		}
	}
	return Fragment{}, false
}

// SessionStatus is the outcome of one URL session
type SessionStatus string

const (
	StatusOK         SessionStatus = "ok"
	StatusUnbookable SessionStatus = "unbookable" // no branch accepts online booking
	StatusFailed     SessionStatus = "failed"
	StatusSkipped    SessionStatus = "skipped" // duplicate target URL in the batch
)

// SessionResult is what a caller gets back for one target URL: either records
// (possibly empty) or an explicit failure with a reason
type SessionResult struct {
	SessionID     string
	URL           string
	Status        SessionStatus
	Reason        string
	Records       []*BookingRecord
	Steps         []Step
	Diagnostics   []CaptureDiagnostic
	StrategyUsage map[string]map[int]int // target -> strategy index -> hits
	StartedAt     time.Time
	FinishedAt    time.Time
}

// BatchReport aggregates the results of one batch run
type BatchReport struct {
	Sessions   int
	OK         int
	Unbookable int
	Failed     int
	Skipped    int

	TotalRecords    int
	WithoutProvider int
	WithoutPrice    int

	MinPrice float64
	MaxPrice float64
	Cheapest *BookingRecord

	RecordsByProvider map[string]int
	StrategyUsage     map[string]map[int]int
	Failures          []*SessionResult
}
