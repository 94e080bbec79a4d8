package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigationStateLatestPrefersLastVisitedStep(t *testing.T) {
	s := NewNavigationState()
	assert.Equal(t, StepUnknown, s.CurrentStep)

	s.Visit(StepStaffSelect)
	s.Record(StepStaffSelect, "provider", "Court 2", 0)
	s.Visit(StepServiceSelect)
	s.Record(StepServiceSelect, "provider", "Court 2 (2v2)", 1)
	s.Record(StepServiceSelect, "price", "800", 0)

	f, ok := s.Latest("provider")
	require.True(t, ok)
	assert.Equal(t, "Court 2 (2v2)", f.Text)
	assert.Equal(t, 1, f.Strategy)

	_, ok = s.Latest("service_name")
	assert.False(t, ok)
	assert.Equal(t, StepServiceSelect, s.CurrentStep)
	assert.Equal(t, []Step{StepStaffSelect, StepServiceSelect}, s.History)
}

func TestNavigationStateLatestAt(t *testing.T) {
	s := NewNavigationState()
	s.Visit(StepStaffSelect)
	s.Record(StepStaffSelect, "provider", "Court 1", 3)
	s.Visit(StepServiceSelect)

	_, ok := s.LatestAt(StepServiceSelect, "provider")
	assert.False(t, ok)

	s.Record(StepServiceSelect, "provider", "Court 2", 0)
	f, ok := s.LatestAt(StepServiceSelect, "provider")
	require.True(t, ok)
	assert.Equal(t, "Court 2", f.Text)
}

func TestNavigationStateLatestIgnoresUnvisitedSteps(t *testing.T) {
	s := NewNavigationState()
	s.Record(StepTimeSelect, "selected_date", "2024-05-11", 0)

	_, ok := s.Latest("selected_date")
	assert.False(t, ok)
}

func TestBookingRecordOptionalFields(t *testing.T) {
	r := &BookingRecord{Date: "2024-05-11", Time: "09:00"}
	assert.False(t, r.HasProvider())
	assert.False(t, r.HasPrice())

	r.Provider, r.Price = "Court 1", "1 200 ₽"
	assert.True(t, r.HasProvider())
	assert.True(t, r.HasPrice())
}

func TestSessionResultCarriesRecordsOrFailure(t *testing.T) {
	ok := SessionResult{
		URL:     "https://venue.test/company/1",
		Status:  StatusOK,
		Records: []*BookingRecord{{Date: "2024-05-11", Time: "09:00"}},
		Steps:   []Step{StepTimeSelect, StepDone},
	}
	failed := SessionResult{
		URL:    "https://venue.test/company/2",
		Status: StatusFailed,
		Reason: "session failed: browser closed unexpectedly",
	}

	assert.Equal(t, SessionStatus("ok"), ok.Status)
	assert.Len(t, ok.Records, 1)
	assert.Empty(t, ok.Reason)

	assert.Equal(t, SessionStatus("failed"), failed.Status)
	assert.Nil(t, failed.Records)
	assert.NotEmpty(t, failed.Reason)

	statuses := map[SessionStatus]bool{}
	for _, s := range []SessionStatus{StatusOK, StatusUnbookable, StatusFailed, StatusSkipped} {
		statuses[s] = true
	}
	assert.Len(t, statuses, 4)
}
