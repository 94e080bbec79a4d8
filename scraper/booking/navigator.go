package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slot-scraper/config"
	"slot-scraper/models"
	"slot-scraper/utils"
)

// Fragment targets recorded by the navigator that are not selector targets themselves
const (
	fragmentSelectedSlot  = "selected_slot"
	fragmentSelectedStaff = "selected_staff"
)

const maxRedirects = 2

// Outcome is how a navigation run ended
type Outcome int

const (
	// OutcomeComplete means the service step was reached and scraped
	OutcomeComplete Outcome = iota
	// OutcomeIncomplete means navigation stopped early; gathered data is still usable
	OutcomeIncomplete
	// OutcomeUnbookable means the venue offers no bookable branch
	OutcomeUnbookable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeUnbookable:
		return "unbookable"
	default:
		return "incomplete"
	}
}

type stepResult int

const (
	stepAdvanced stepResult = iota
	stepFinished
	stepUnbookable
)

// Navigator drives the browser through branch, time, staff and service steps,
// scraping each page before leaving it
type Navigator struct {
	resolver     *Resolver
	classifier   *Classifier
	logger       *utils.Logger
	stepTimeout  time.Duration
	maxSteps     int
	pollInterval time.Duration
}

// NewNavigator creates a Navigator for one session
func NewNavigator(cfg *config.Config, resolver *Resolver, classifier *Classifier, logger *utils.Logger) *Navigator {
	return &Navigator{
		resolver:     resolver,
		classifier:   classifier,
		logger:       logger,
		stepTimeout:  cfg.StepTimeout(),
		maxSteps:     cfg.MaxSteps,
		pollInterval: 250 * time.Millisecond,
	}
}

// flow is the mutable part of one navigation run
type flow struct {
	*Navigator
	page      Page
	state     *models.NavigationState
	redirects int
}

// Run walks the flow from the current page until the service step is scraped,
// the venue turns out unbookable, or a step fails. It never returns an error:
// failures end the run early and are noted in state.Reason.
func (n *Navigator) Run(ctx context.Context, page Page, state *models.NavigationState) Outcome {
	f := &flow{Navigator: n, page: page, state: state}

	for i := 0; i < n.maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return f.stop(fmt.Errorf("session budget exhausted: %w", err))
		}

		cls := n.classifier.Classify(ctx, page)
		if cls.NeedsRedirect {
			if err := f.redirect(ctx); err != nil {
				return f.stop(err)
			}
			continue
		}

		state.Visit(cls.Step)
		n.logger.Debug("On step %s", cls.Step)

		var (
			res stepResult
			err error
		)
		switch cls.Step {
		case models.StepBranchSelect:
			res, err = f.selectBranch(ctx)
		case models.StepTimeSelect:
			res, err = f.selectTime(ctx)
		case models.StepStaffSelect:
			res, err = f.selectStaff(ctx)
		case models.StepServiceSelect:
			res, err = f.scrapeService(ctx)
		default:
			return f.stop(errors.New("unrecognized page"))
		}
		if err != nil {
			return f.stop(fmt.Errorf("%s: %w", cls.Step, err))
		}

		switch res {
		case stepFinished:
			state.Visit(models.StepDone)
			return OutcomeComplete
		case stepUnbookable:
			state.Reason = "no branch accepts online booking"
			state.Visit(models.StepDone)
			return OutcomeUnbookable
		}
	}
	return f.stop(fmt.Errorf("flow did not finish within %d steps", n.maxSteps))
}

func (f *flow) stop(err error) Outcome {
	f.logger.Warn("Navigation stopped early: %v", err)
	f.state.Reason = err.Error()
	f.state.Visit(models.StepDone)
	return OutcomeIncomplete
}

// selectBranch clicks the first branch whose booking is not disabled
func (f *flow) selectBranch(ctx context.Context) (stepResult, error) {
	sctx, cancel := context.WithTimeout(ctx, f.stepTimeout)
	defer cancel()

	branches, res, ok := f.resolver.ResolveList(sctx, f.page, config.TargetBranchItem)
	if !ok {
		return 0, errors.New("no branch entries found")
	}
	idx := firstEnabled(branches)
	if idx < 0 {
		f.logger.Info("All %d branches have online booking disabled", len(branches))
		return stepUnbookable, nil
	}
	f.state.Record(models.StepBranchSelect, config.TargetBranchItem, branches[idx].Text, res.Strategy)

	if err := f.page.Click(sctx, res.Selector, idx); err != nil {
		return 0, err
	}
	return stepAdvanced, f.waitForAdvance(ctx, models.StepBranchSelect)
}

// selectTime scrapes the visible date and slots, then picks the first free slot
func (f *flow) selectTime(ctx context.Context) (stepResult, error) {
	sctx, cancel := context.WithTimeout(ctx, f.stepTimeout)
	defer cancel()

	slots, res, _ := f.resolver.ResolveList(sctx, f.page, config.TargetTimeSlot)
	idx := firstEnabled(slots)
	if idx < 0 {
		// nothing bookable on the shown date
		if err := f.redirect(ctx); err != nil {
			return 0, fmt.Errorf("no available slots: %w", err)
		}
		return stepAdvanced, nil
	}

	if date, ok := f.resolver.Resolve(sctx, f.page, config.TargetSelectedDate); ok {
		f.state.Record(models.StepTimeSelect, config.TargetSelectedDate, date.Text, date.Strategy)
	}
	for _, s := range slots {
		if !s.Disabled {
			f.state.Record(models.StepTimeSelect, config.TargetTimeSlot, s.Text, res.Strategy)
		}
	}
	f.state.Record(models.StepTimeSelect, fragmentSelectedSlot, slots[idx].Text, res.Strategy)

	if err := f.page.Click(sctx, res.Selector, idx); err != nil {
		return 0, err
	}
	if err := f.clickContinue(sctx); err != nil {
		return 0, err
	}
	return stepAdvanced, f.waitForAdvance(ctx, models.StepTimeSelect)
}

// selectStaff records the text of the entry it clicks. The provider selectors
// are not consulted here: on a list page they hit the first entry, which may be
// a disabled one.
func (f *flow) selectStaff(ctx context.Context) (stepResult, error) {
	sctx, cancel := context.WithTimeout(ctx, f.stepTimeout)
	defer cancel()

	staff, res, ok := f.resolver.ResolveList(sctx, f.page, config.TargetStaffItem)
	if !ok {
		return 0, errors.New("no staff entries found")
	}
	idx := firstEnabled(staff)
	if idx < 0 {
		return 0, fmt.Errorf("all %d staff entries are disabled", len(staff))
	}
	f.state.Record(models.StepStaffSelect, fragmentSelectedStaff, staff[idx].Text, res.Strategy)

	if err := f.page.Click(sctx, res.Selector, idx); err != nil {
		return 0, err
	}
	if err := f.clickContinue(sctx); err != nil {
		return 0, err
	}
	return stepAdvanced, f.waitForAdvance(ctx, models.StepStaffSelect)
}

// scrapeService is the terminal step: price, provider and service name
func (f *flow) scrapeService(ctx context.Context) (stepResult, error) {
	sctx, cancel := context.WithTimeout(ctx, f.stepTimeout)
	defer cancel()

	for _, target := range []string{config.TargetPrice, config.TargetProvider, config.TargetServiceName} {
		r, ok := f.resolver.Resolve(sctx, f.page, target)
		if !ok {
			f.logger.Debug("Field %s unresolved on service page", target)
			continue
		}
		f.state.Record(models.StepServiceSelect, target, r.Text, r.Strategy)
	}
	return stepFinished, nil
}

// redirect clicks the jump-to-nearest-date affordance and waits for slots to show
func (f *flow) redirect(ctx context.Context) error {
	if f.redirects >= maxRedirects {
		return fmt.Errorf("still no availability after %d redirects", f.redirects)
	}
	f.redirects++
	f.state.Visit(models.StepRedirect)

	sctx, cancel := context.WithTimeout(ctx, f.stepTimeout)
	defer cancel()

	_, res, ok := f.resolver.ResolveList(sctx, f.page, config.TargetNearestDateButton)
	if !ok {
		return errors.New("no nearest-date affordance")
	}
	if err := f.page.Click(sctx, res.Selector, 0); err != nil {
		return err
	}
	f.logger.Info("Jumped to nearest available date")

	return f.poll(sctx, "slots after redirect", func() bool {
		cls := f.classifier.Classify(sctx, f.page)
		return !cls.NeedsRedirect && f.resolver.Present(sctx, f.page, config.TargetTimeSlot)
	})
}

// clickContinue presses the continue button when the step shows one
func (f *flow) clickContinue(ctx context.Context) error {
	_, res, ok := f.resolver.ResolveList(ctx, f.page, config.TargetContinueButton)
	if !ok {
		return nil
	}
	return f.page.Click(ctx, res.Selector, 0)
}

// waitForAdvance polls until the page shows a different, recognised step
func (f *flow) waitForAdvance(ctx context.Context, from models.Step) error {
	wctx, cancel := context.WithTimeout(ctx, f.stepTimeout)
	defer cancel()
	return f.poll(wctx, "leaving "+string(from), func() bool {
		cls := f.classifier.Classify(wctx, f.page)
		return cls.NeedsRedirect || (cls.Step != from && cls.Step != models.StepUnknown)
	})
}

func (f *flow) poll(ctx context.Context, what string, done func() bool) error {
	for {
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s: %w", what, ctx.Err())
		case <-time.After(f.pollInterval):
		}
	}
}

func firstEnabled(els []Element) int {
	for i, e := range els {
		if !e.Disabled && e.Text != "" {
			return i
		}
	}
	return -1
}
