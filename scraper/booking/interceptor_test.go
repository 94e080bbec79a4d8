package booking

import (
	"context"
	"testing"
	"time"

	"slot-scraper/config"
	"slot-scraper/models"
	"slot-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterceptor() *Interceptor {
	return NewInterceptor(config.DefaultCaptureRules(), utils.NewNopLogger())
}

func TestInterceptorClassifiesByURL(t *testing.T) {
	ic := newTestInterceptor()

	cases := map[string]models.Category{
		"https://api.venue.test/api/v1/b2c/booking/availability/search-dates?x=1":    models.CategoryDates,
		"https://api.venue.test/api/v1/b2c/booking/availability/search-timeslots":    models.CategoryTimeslots,
		"https://api.venue.test/api/v1/b2c/booking/availability/search-services?s=2": models.CategoryServices,
		"https://api.venue.test/api/v1/b2c/booking/availability/search-staff":        models.CategoryStaff,
	}
	for url, want := range cases {
		got, ok := ic.Match(url)
		require.True(t, ok, url)
		assert.Equal(t, want, got, url)
		assert.True(t, ic.Record(url, 200, []byte(`{"data":[]}`)), url)
	}

	_, ok := ic.Match("https://cdn.venue.test/app.js")
	assert.False(t, ok)
	assert.False(t, ic.Record("https://cdn.venue.test/app.js", 200, []byte(`{}`)))

	snap := ic.Snapshot()
	for _, cat := range models.Categories {
		assert.Len(t, snap[cat], 1, cat)
	}
}

func TestInterceptorKeepsCapturingAfterMalformedPayload(t *testing.T) {
	ic := newTestInterceptor()
	url := "https://venue.test/search-timeslots"

	assert.False(t, ic.Record(url, 200, []byte(`{"data": [`)))
	assert.False(t, ic.Record(url, 200, []byte(`"just a string"`)))
	assert.False(t, ic.Record(url, 503, []byte(`{"data":[]}`)))
	assert.True(t, ic.Record(url, 200, []byte(`{"data":[{"attributes":{"datetime":"2024-05-11T09:00:00+03:00"}}]}`)))

	diags := ic.Diagnostics()
	require.Len(t, diags, 3)
	assert.Contains(t, diags[0].Reason, "malformed json")
	assert.Contains(t, diags[1].Reason, "unexpected payload shape")
	assert.Contains(t, diags[2].Reason, "http status 503")
	for _, d := range diags {
		assert.Equal(t, models.CategoryTimeslots, d.Category)
	}

	snap := ic.Snapshot()
	assert.Len(t, snap[models.CategoryTimeslots], 1)
}

func TestInterceptorSnapshotIsACopy(t *testing.T) {
	ic := newTestInterceptor()
	ic.Record("https://venue.test/search-staff", 200, []byte(`[{"name":"Court 1"}]`))

	snap := ic.Snapshot()
	snap[models.CategoryStaff] = nil
	assert.Len(t, ic.Snapshot()[models.CategoryStaff], 1)

	ic.Reset()
	assert.Empty(t, ic.Snapshot())
	assert.Empty(t, ic.Diagnostics())
}

func TestInterceptorSettleWaitsForTrackedWork(t *testing.T) {
	ic := newTestInterceptor()
	release := make(chan struct{})
	ic.Track(func() {
		<-release
		ic.Record("https://venue.test/search-services", 200, []byte(`{"data":[{"attributes":{"price_min":1200}}]}`))
	})

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, ic.Settle(short))

	close(release)
	require.True(t, ic.Settle(context.Background()))
	assert.Len(t, ic.Snapshot()[models.CategoryServices], 1)
}

func TestInterceptorFail(t *testing.T) {
	ic := newTestInterceptor()
	ic.Fail("https://venue.test/search-dates", "body unavailable")
	ic.Fail("https://venue.test/other", "ignored")
	diags := ic.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, models.CategoryDates, diags[0].Category)
}

func TestInterceptorDropsResponsesFromBeforeReset(t *testing.T) {
	ic := newTestInterceptor()
	gen := ic.Generation()
	release := make(chan struct{})
	ic.Track(func() {
		<-release
		ic.RecordFrom(gen, "https://venue.test/search-timeslots", 200, []byte(`{"data":[{"attributes":{"time":"09:00"}}]}`))
		ic.FailFrom(gen, "https://venue.test/search-dates", "body unavailable")
	})

	ic.Reset()
	assert.NotEqual(t, gen, ic.Generation())
	close(release)
	require.True(t, ic.Settle(context.Background()))

	assert.Empty(t, ic.Snapshot())
	assert.Empty(t, ic.Diagnostics())

	assert.True(t, ic.Record("https://venue.test/search-timeslots", 200, []byte(`{"data":[]}`)))
	assert.Len(t, ic.Snapshot()[models.CategoryTimeslots], 1)
}
