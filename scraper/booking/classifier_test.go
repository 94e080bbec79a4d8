package booking

import (
	"context"
	"testing"
	"time"

	"slot-scraper/config"
	"slot-scraper/models"

	"github.com/stretchr/testify/assert"
)

func newTestClassifier() *Classifier {
	cfg := config.Default()
	return NewClassifier(cfg.StepTokens, NewResolver(cfg.Selectors, 50*time.Millisecond))
}

func TestStepFromURL(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		url  string
		want models.Step
	}{
		{"https://n1.venue.test/company/42/select-branch", models.StepBranchSelect},
		{"https://n1.venue.test/company/42/personal/select-time?o=", models.StepTimeSelect},
		{"https://n1.venue.test/company/42/personal/select-master", models.StepStaffSelect},
		{"https://n1.venue.test/company/42/personal/select-services?o=m1", models.StepServiceSelect},
		{"https://n1.venue.test/company/42/select-time/select-master", models.StepStaffSelect},
		{"https://n1.venue.test/#/company/42/personal/select-time", models.StepTimeSelect},
		{"https://n1.venue.test/company/42/menu", models.StepUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.StepFromURL(tt.url), tt.url)
	}
}

func TestClassifyFallsBackToDOM(t *testing.T) {
	c := newTestClassifier()
	page := newFakePage("https://venue.test/widget", map[string]string{
		"https://venue.test/widget": `<div class="master-item">Court 1</div>`,
	})
	got := c.Classify(context.Background(), page)
	assert.Equal(t, models.StepStaffSelect, got.Step)
	assert.False(t, got.NeedsRedirect)
}

func TestClassifyRedirect(t *testing.T) {
	c := newTestClassifier()
	url := "https://venue.test/select-time"

	tests := []struct {
		name string
		html string
		want bool
	}{
		{"banner and button", `<div class="no-slots">Нет свободного времени</div><button class="nearest-date">Ближайшая дата</button>`, true},
		{"button without slots", `<button class="nearest-date">Ближайшая дата</button>`, true},
		{"button with slots", `<button class="nearest-date">Ближайшая дата</button><button class="time-slot">09:00</button>`, false},
		{"banner without button", `<div class="no-slots">Нет свободного времени</div>`, false},
	}
	for _, tt := range tests {
		page := newFakePage(url, map[string]string{url: tt.html})
		got := c.Classify(context.Background(), page)
		assert.Equal(t, models.StepTimeSelect, got.Step, tt.name)
		assert.Equal(t, tt.want, got.NeedsRedirect, tt.name)
	}
}

func TestClassifyUnknownNeverFails(t *testing.T) {
	c := newTestClassifier()
	page := newFakePage("about:blank", map[string]string{"about:blank": ``})
	got := c.Classify(context.Background(), page)
	assert.Equal(t, models.StepUnknown, got.Step)
	assert.False(t, got.NeedsRedirect)
}
