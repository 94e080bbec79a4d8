package booking

import (
	"context"
	"time"

	"slot-scraper/config"
	"slot-scraper/models"
	"slot-scraper/services"
	"slot-scraper/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Scraper runs booking-flow sessions over a batch of venue URLs
type Scraper struct {
	cfg          *config.Config
	driver       Driver
	logger       *utils.Logger
	correlator   *Correlator
	validator    *services.RecordValidator
	rateLimiter  *utils.RateLimiter
	newSessionID func() string
}

// NewScraper creates a Scraper. The config is shared read-only by all sessions.
func NewScraper(cfg *config.Config, driver Driver, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:          cfg,
		driver:       driver,
		logger:       logger,
		correlator:   NewCorrelator(cfg.DefaultDurationMinutes),
		validator:    services.NewRecordValidator(logger),
		rateLimiter:  utils.NewRateLimiter(cfg.RateLimitDelay),
		newSessionID: uuid.NewString,
	}
}

// Scrape processes every URL, up to MaxConcurrency at a time, each in its own
// browser. Results are returned in input order; one URL failing never stops the rest.
func (s *Scraper) Scrape(ctx context.Context, urls []string) []*models.SessionResult {
	s.logger.Info("Starting booking scraper for %d URLs (concurrency %d)", len(urls), s.cfg.MaxConcurrency)

	results := make([]*models.SessionResult, len(urls))
	tracker := utils.NewURLTracker()

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)

	for i, url := range urls {
		if !tracker.Add(url) {
			s.logger.Warn("Skipping duplicate target %s", url)
			results[i] = &models.SessionResult{URL: url, Status: models.StatusSkipped, Reason: "duplicate target URL"}
			continue
		}
		if err := s.rateLimiter.Wait(ctx); err != nil {
			now := time.Now()
			results[i] = &models.SessionResult{
				URL: url, Status: models.StatusFailed, Reason: "batch cancelled: " + err.Error(),
				StartedAt: now, FinishedAt: now,
			}
			continue
		}
		i, url := i, url
		g.Go(func() error {
			results[i] = s.ScrapeURL(ctx, url)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += len(r.Records)
	}
	s.logger.Info("Scraping complete. %d URLs, %d records", len(urls), total)
	return results
}
