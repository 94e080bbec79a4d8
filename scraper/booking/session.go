package booking

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"slot-scraper/models"
	"slot-scraper/utils"
)

// ErrSessionFatal marks failures that end a URL session without records
var ErrSessionFatal = errors.New("session failed")

// ScrapeURL runs one isolated session: a fresh browser, interceptor and navigation
// state. Only session-fatal problems produce StatusFailed; everything else is
// reflected in fewer fields or fewer records.
func (s *Scraper) ScrapeURL(ctx context.Context, url string) (res *models.SessionResult) {
	id := s.newSessionID()
	log := s.logger.With("session", id, "url", url)
	res = &models.SessionResult{
		SessionID: id,
		URL:       url,
		StartedAt: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Session panicked: %v\n%s", r, debug.Stack())
			res.Status = models.StatusFailed
			res.Reason = fmt.Sprintf("panic: %v", r)
			res.Records = nil
		}
		res.FinishedAt = time.Now()
	}()

	records, state, ic, resolver, err := s.runSession(ctx, url, log)
	if ic != nil {
		res.Diagnostics = ic.Diagnostics()
	}
	if resolver != nil {
		res.StrategyUsage = resolver.Usage()
	}
	if state != nil {
		res.Steps = state.History
		res.Reason = state.Reason
	}
	if err != nil {
		log.Error("Session failed: %v", err)
		res.Status = models.StatusFailed
		res.Reason = err.Error()
		return res
	}
	if records == nil {
		res.Status = models.StatusUnbookable
		res.Records = []*models.BookingRecord{}
		return res
	}
	res.Status = models.StatusOK
	res.Records = records
	log.Info("Session finished with %d records (steps: %v)", len(records), state.History)
	return res
}

// runSession returns nil records for an unbookable venue and a non-nil, possibly
// empty, slice otherwise
func (s *Scraper) runSession(ctx context.Context, url string, log *utils.Logger) ([]*models.BookingRecord, *models.NavigationState, *Interceptor, *Resolver, error) {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.SessionTimeout())
	defer cancel()

	ic := NewInterceptor(s.cfg.CaptureRules, log)
	resolver := NewResolver(s.cfg.Selectors, s.cfg.ProbeTimeout())

	browserCtx, page, closeBrowser, err := s.driver.Open(sctx, ic)
	if err != nil {
		return nil, nil, ic, resolver, fmt.Errorf("%w: %v", ErrSessionFatal, err)
	}
	defer closeBrowser()

	err = utils.RetryWithBackoff(browserCtx, s.cfg.MaxRetries, func() error {
		nctx, cancelNav := context.WithTimeout(browserCtx, s.cfg.StepTimeout())
		defer cancelNav()
		// drop whatever a failed earlier load captured
		ic.Reset()
		return page.Navigate(nctx, url)
	}, log)
	if err != nil {
		return nil, nil, ic, resolver, fmt.Errorf("%w: %v", ErrSessionFatal, err)
	}

	state := models.NewNavigationState()
	nav := NewNavigator(s.cfg, resolver, NewClassifier(s.cfg.StepTokens, resolver), log)
	outcome := nav.Run(browserCtx, page, state)
	log.Info("Navigation %s after %d steps", outcome, len(state.History))

	// the browser died under us rather than the session budget running out
	if browserCtx.Err() != nil && sctx.Err() == nil {
		return nil, state, ic, resolver, fmt.Errorf("%w: browser closed unexpectedly", ErrSessionFatal)
	}
	if outcome == OutcomeUnbookable {
		return nil, state, ic, resolver, nil
	}

	settleCtx, cancelSettle := context.WithTimeout(context.Background(), s.cfg.SettleTimeout())
	defer cancelSettle()
	if !ic.Settle(settleCtx) {
		log.Warn("Some captures were still in flight after %v", s.cfg.SettleTimeout())
	}

	candidates := s.correlator.Correlate(state, ic.Snapshot(), url)
	records := s.validator.Finalize(candidates)
	return records, state, ic, resolver, nil
}
