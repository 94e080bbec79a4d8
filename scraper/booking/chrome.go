package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeDriver launches a dedicated headless Chrome per session
type ChromeDriver struct {
	Headless bool
}

// NewChromeDriver creates a ChromeDriver
func NewChromeDriver(headless bool) *ChromeDriver {
	return &ChromeDriver{Headless: headless}
}

// Open starts a fresh browser process, hooks the interceptor into its
// network events and returns the browser-bound context
func (d *ChromeDriver) Open(ctx context.Context, ic *Interceptor) (context.Context, Page, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1280, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}

	listenNetwork(browserCtx, ic)
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("start browser: %w", err)
	}
	return browserCtx, &chromePage{}, cancel, nil
}

// listenNetwork feeds matching responses to the interceptor. The listener runs on
// chromedp's event loop, so body retrieval is handed off to a tracked goroutine.
func listenNetwork(browserCtx context.Context, ic *Interceptor) {
	type pendingResponse struct {
		resp *network.Response
		gen  uint64
	}
	var mu sync.Mutex
	pending := make(map[network.RequestID]pendingResponse)

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if _, ok := ic.Match(e.Response.URL); !ok {
				return
			}
			mu.Lock()
			pending[e.RequestID] = pendingResponse{resp: e.Response, gen: ic.Generation()}
			mu.Unlock()

		case *network.EventLoadingFailed:
			mu.Lock()
			delete(pending, e.RequestID)
			mu.Unlock()

		case *network.EventLoadingFinished:
			mu.Lock()
			p, ok := pending[e.RequestID]
			delete(pending, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}
			resp, gen := p.resp, p.gen
			requestID := e.RequestID
			ic.Track(func() {
				c := chromedp.FromContext(browserCtx)
				if c == nil || c.Target == nil {
					ic.FailFrom(gen, resp.URL, "browser target gone before body fetch")
					return
				}
				body, err := network.GetResponseBody(requestID).Do(cdp.WithExecutor(browserCtx, c.Target))
				if err != nil {
					ic.FailFrom(gen, resp.URL, "body unavailable: "+err.Error())
					return
				}
				ic.RecordFrom(gen, resp.URL, int(resp.Status), body)
			})
		}
	})
}

// chromePage implements Page on top of the chromedp context it is called with
type chromePage struct{}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var loc string
	if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (p *chromePage) VisibleText(ctx context.Context, selector string) (string, error) {
	var text string
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", selector, ErrNotFound)
		}
		return "", fmt.Errorf("read text %s: %w", selector, err)
	}
	text = collapseSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s has no text: %w", selector, ErrNotFound)
	}
	return text, nil
}

// Elements snapshots the rendered document and evaluates selector against it
func (p *chromePage) Elements(ctx context.Context, selector string) ([]Element, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("snapshot document: %w", err)
	}
	return elementsFromHTML(html, selector)
}

// Click dispatches a DOM click on the index-th match of selector
func (p *chromePage) Click(ctx context.Context, selector string, index int) error {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return fmt.Errorf("quote selector: %w", err)
	}
	script := fmt.Sprintf(`
		(function() {
			var els = document.querySelectorAll(%s);
			if (els.length <= %d) return false;
			var el = els[%d];
			el.scrollIntoView({block: 'center'});
			el.click();
			return true;
		})()
	`, quoted, index, index)

	var clicked bool
	if err := chromedp.Run(ctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, &clicked),
	); err != nil {
		return fmt.Errorf("click %s[%d]: %w", selector, index, err)
	}
	if !clicked {
		return fmt.Errorf("click %s[%d]: %w", selector, index, ErrNotFound)
	}
	return nil
}
