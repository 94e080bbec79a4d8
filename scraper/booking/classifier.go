package booking

import (
	"context"
	"net/url"
	"strings"

	"slot-scraper/config"
	"slot-scraper/models"
)

// Classification is the classifier's verdict on the displayed page
type Classification struct {
	Step          models.Step
	NeedsRedirect bool
}

// Classifier recognises which step of the booking flow is on screen
type Classifier struct {
	tokens   map[models.Step][]string
	resolver *Resolver
}

var flowSteps = []models.Step{
	models.StepBranchSelect,
	models.StepTimeSelect,
	models.StepStaffSelect,
	models.StepServiceSelect,
}

// NewClassifier builds a classifier from step name -> URL path tokens
func NewClassifier(tokens map[string][]string, resolver *Resolver) *Classifier {
	c := &Classifier{tokens: make(map[models.Step][]string), resolver: resolver}
	for _, step := range flowSteps {
		for _, tok := range tokens[string(step)] {
			if tok = strings.TrimSpace(tok); tok != "" {
				c.tokens[step] = append(c.tokens[step], tok)
			}
		}
	}
	return c
}

// Classify inspects the URL first and falls back to the DOM when no token matches.
// It never fails; unrecognised pages are StepUnknown.
func (c *Classifier) Classify(ctx context.Context, page Page) Classification {
	step := models.StepUnknown
	if loc, err := page.Location(ctx); err == nil {
		step = c.StepFromURL(loc)
	}
	if step == models.StepUnknown {
		step = c.stepFromDOM(ctx, page)
	}

	var needsRedirect bool
	if step == models.StepTimeSelect || step == models.StepUnknown {
		needsRedirect = c.needsRedirect(ctx, page)
		if needsRedirect && step == models.StepUnknown {
			step = models.StepTimeSelect
		}
	}
	return Classification{Step: step, NeedsRedirect: needsRedirect}
}

// StepFromURL picks the step whose token sits deepest in the URL path.
// Hash-routed flows are matched on the fragment as well.
func (c *Classifier) StepFromURL(raw string) models.Step {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
		if u.Fragment != "" {
			path += "#" + u.Fragment
		}
	}
	path = strings.ToLower(path)

	best, bestAt, bestLen := models.StepUnknown, -1, 0
	for _, step := range flowSteps {
		for _, tok := range c.tokens[step] {
			at := strings.LastIndex(path, strings.ToLower(tok))
			if at < 0 {
				continue
			}
			if at > bestAt || (at == bestAt && len(tok) > bestLen) {
				best, bestAt, bestLen = step, at, len(tok)
			}
		}
	}
	return best
}

func (c *Classifier) stepFromDOM(ctx context.Context, page Page) models.Step {
	switch {
	case c.resolver.Present(ctx, page, config.TargetPrice):
		return models.StepServiceSelect
	case c.resolver.Present(ctx, page, config.TargetStaffItem):
		return models.StepStaffSelect
	case c.resolver.Present(ctx, page, config.TargetTimeSlot):
		return models.StepTimeSelect
	case c.resolver.Present(ctx, page, config.TargetBranchItem):
		return models.StepBranchSelect
	}
	return models.StepUnknown
}

// needsRedirect is true when a jump-to-nearest-date affordance is offered and
// the current date has no slots or is explicitly flagged as empty
func (c *Classifier) needsRedirect(ctx context.Context, page Page) bool {
	if !c.resolver.Present(ctx, page, config.TargetNearestDateButton) {
		return false
	}
	if c.resolver.Present(ctx, page, config.TargetNoSlotsBanner) {
		return true
	}
	return !c.resolver.Present(ctx, page, config.TargetTimeSlot)
}
