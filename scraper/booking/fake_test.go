package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slot-scraper/config"
	"slot-scraper/utils"
)

// clickFunc reacts to a click on the index-th match of selector
type clickFunc func(p *fakePage, selector string, index int)

// fakePage serves HTML per URL and lets tests script what clicks do
type fakePage struct {
	mu      sync.Mutex
	url     string
	html    map[string]string
	onClick clickFunc
	ic      *Interceptor

	textCalls []string
	clicks    []string
	panicOn   string
}

func newFakePage(start string, html map[string]string) *fakePage {
	return &fakePage{url: start, html: html}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.html[url]; !ok {
		return fmt.Errorf("no page at %s", url)
	}
	p.url = url
	return nil
}

func (p *fakePage) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) VisibleText(ctx context.Context, selector string) (string, error) {
	p.mu.Lock()
	p.textCalls = append(p.textCalls, selector)
	if p.panicOn != "" && selector == p.panicOn {
		p.mu.Unlock()
		panic("renderer crashed")
	}
	html := p.html[p.url]
	p.mu.Unlock()

	els, err := elementsFromHTML(html, selector)
	if err != nil {
		return "", err
	}
	if len(els) == 0 || els[0].Text == "" {
		return "", ErrNotFound
	}
	return els[0].Text, nil
}

func (p *fakePage) Elements(ctx context.Context, selector string) ([]Element, error) {
	p.mu.Lock()
	html := p.html[p.url]
	p.mu.Unlock()
	return elementsFromHTML(html, selector)
}

func (p *fakePage) Click(ctx context.Context, selector string, index int) error {
	els, err := p.Elements(ctx, selector)
	if err != nil {
		return err
	}
	if index >= len(els) {
		return ErrNotFound
	}
	p.mu.Lock()
	p.clicks = append(p.clicks, fmt.Sprintf("%s[%d]", selector, index))
	onClick := p.onClick
	p.mu.Unlock()
	if onClick != nil {
		onClick(p, selector, index)
	}
	return nil
}

// show replaces the document at the current or a new URL
func (p *fakePage) show(url, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.html[url] = html
}

func (p *fakePage) capture(url, body string) {
	p.ic.Record(url, 200, []byte(body))
}

func (p *fakePage) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.textCalls...)
}

// fakeDriver hands out pre-built pages keyed by target URL
type fakeDriver struct {
	mu      sync.Mutex
	pages   map[string]*fakePage
	openErr error
	opened  int
}

func (d *fakeDriver) Open(ctx context.Context, ic *Interceptor) (context.Context, Page, context.CancelFunc, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, nil, nil, d.openErr
	}
	d.opened++
	bctx, cancel := context.WithCancel(ctx)
	return bctx, &routedPage{driver: d, ic: ic}, cancel, nil
}

// routedPage picks the fake page on first navigation, like a fresh tab
type routedPage struct {
	driver *fakeDriver
	ic     *Interceptor
	*fakePage
}

func (r *routedPage) Navigate(ctx context.Context, url string) error {
	r.driver.mu.Lock()
	p, ok := r.driver.pages[url]
	r.driver.mu.Unlock()
	if !ok {
		return fmt.Errorf("dns lookup failed for %s", url)
	}
	p.ic = r.ic
	r.fakePage = p
	return p.Navigate(ctx, url)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.PerStepTimeoutMs = 300
	cfg.PerSessionTimeoutMs = 5000
	cfg.ProbeTimeoutMs = 50
	cfg.SettleTimeoutMs = 100
	cfg.RateLimitDelay = 0
	cfg.MaxRetries = 1
	cfg.MaxConcurrency = 2
	return cfg
}

func testNavigator(cfg *config.Config) (*Navigator, *Resolver) {
	resolver := NewResolver(cfg.Selectors, cfg.ProbeTimeout())
	nav := NewNavigator(cfg, resolver, NewClassifier(cfg.StepTokens, resolver), utils.NewNopLogger())
	nav.pollInterval = 10 * time.Millisecond
	return nav, resolver
}
