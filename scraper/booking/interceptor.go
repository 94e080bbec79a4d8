package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"slot-scraper/models"
	"slot-scraper/utils"
)

type captureRule struct {
	category models.Category
	substr   string
}

// Interceptor classifies the page's internal data-fetch responses and keeps
// the decoded payloads for one session
type Interceptor struct {
	rules  []captureRule
	logger *utils.Logger
	now    func() time.Time

	mu          sync.Mutex
	gen         uint64 // bumped by Reset; older responses are stale
	captures    map[models.Category][]models.CapturedResponse
	diagnostics []models.CaptureDiagnostic

	inflight sync.WaitGroup
}

// NewInterceptor builds an interceptor from category -> URL substring rules.
// Rules for unknown categories are ignored.
func NewInterceptor(rules map[string][]string, logger *utils.Logger) *Interceptor {
	ic := &Interceptor{
		logger:   logger,
		now:      time.Now,
		captures: make(map[models.Category][]models.CapturedResponse),
	}
	for _, cat := range models.Categories {
		for _, substr := range rules[string(cat)] {
			if substr = strings.TrimSpace(substr); substr != "" {
				ic.rules = append(ic.rules, captureRule{category: cat, substr: substr})
			}
		}
	}
	return ic
}

// Match returns the category whose rule matches url
func (ic *Interceptor) Match(url string) (models.Category, bool) {
	for _, r := range ic.rules {
		if strings.Contains(url, r.substr) {
			return r.category, true
		}
	}
	return "", false
}

// Generation identifies the current page load attempt
func (ic *Interceptor) Generation() uint64 {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.gen
}

// Record classifies one completed response and stores its payload.
// It reports whether the response was stored as data.
func (ic *Interceptor) Record(url string, status int, body []byte) bool {
	return ic.RecordFrom(ic.Generation(), url, status, body)
}

// RecordFrom is Record for a response first seen during generation gen.
// Responses from a generation that Reset has since closed are dropped.
func (ic *Interceptor) RecordFrom(gen uint64, url string, status int, body []byte) bool {
	cat, ok := ic.Match(url)
	if !ok {
		return false
	}
	if status != 0 && (status < 200 || status > 299) {
		ic.diagnose(gen, cat, url, fmt.Sprintf("http status %d", status))
		return false
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		ic.diagnose(gen, cat, url, "malformed json: "+err.Error())
		return false
	}
	switch payload.(type) {
	case map[string]interface{}, []interface{}:
	default:
		ic.diagnose(gen, cat, url, fmt.Sprintf("unexpected payload shape %T", payload))
		return false
	}

	ic.mu.Lock()
	if gen != ic.gen {
		ic.mu.Unlock()
		ic.logger.Debug("Dropped stale %s response from %s", cat, url)
		return false
	}
	ic.captures[cat] = append(ic.captures[cat], models.CapturedResponse{
		Category:   cat,
		URL:        url,
		Payload:    payload,
		CapturedAt: ic.now(),
	})
	ic.mu.Unlock()
	ic.logger.Debug("Captured %s response from %s", cat, url)
	return true
}

// Fail records a matched response whose body could not be obtained
func (ic *Interceptor) Fail(url, reason string) {
	ic.FailFrom(ic.Generation(), url, reason)
}

// FailFrom is Fail for a response first seen during generation gen
func (ic *Interceptor) FailFrom(gen uint64, url, reason string) {
	cat, ok := ic.Match(url)
	if !ok {
		return
	}
	ic.diagnose(gen, cat, url, reason)
}

func (ic *Interceptor) diagnose(gen uint64, cat models.Category, url, reason string) {
	ic.mu.Lock()
	if gen != ic.gen {
		ic.mu.Unlock()
		return
	}
	ic.diagnostics = append(ic.diagnostics, models.CaptureDiagnostic{
		Category:   cat,
		URL:        url,
		Reason:     reason,
		CapturedAt: ic.now(),
	})
	ic.mu.Unlock()
	ic.logger.Warn("Skipped %s capture from %s: %s", cat, url, reason)
}

// Track runs fn in its own goroutine and counts it as in flight until it returns
func (ic *Interceptor) Track(fn func()) {
	ic.inflight.Add(1)
	go func() {
		defer ic.inflight.Done()
		fn()
	}()
}

// Settle waits for in-flight captures. It returns false if ctx ended first.
func (ic *Interceptor) Settle(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		ic.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Snapshot returns a copy of everything captured so far, keyed by category
func (ic *Interceptor) Snapshot() map[models.Category][]models.CapturedResponse {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	out := make(map[models.Category][]models.CapturedResponse, len(ic.captures))
	for cat, list := range ic.captures {
		out[cat] = append([]models.CapturedResponse(nil), list...)
	}
	return out
}

// Diagnostics returns the captures that were matched but not stored
func (ic *Interceptor) Diagnostics() []models.CaptureDiagnostic {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return append([]models.CaptureDiagnostic(nil), ic.diagnostics...)
}

// Reset drops all captures and diagnostics and starts a new generation, so
// body fetches still running for the previous load cannot add to the new one
func (ic *Interceptor) Reset() {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.gen++
	ic.captures = make(map[models.Category][]models.CapturedResponse)
	ic.diagnostics = nil
}
