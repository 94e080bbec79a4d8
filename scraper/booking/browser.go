package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotFound is returned by Page lookups when no visible element matches
var ErrNotFound = errors.New("element not found")

// Element is a snapshot of one element matched on the page
type Element struct {
	Text     string
	Disabled bool
}

// Page is the subset of browser-tab operations the booking flow needs.
// All contexts passed in must derive from the context returned by Driver.Open.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	// VisibleText waits until selector is visible and returns its trimmed text
	VisibleText(ctx context.Context, selector string) (string, error)
	// Elements lists every element currently matching selector, without waiting
	Elements(ctx context.Context, selector string) ([]Element, error)
	Click(ctx context.Context, selector string, index int) error
}

// Driver opens an exclusive browser for one URL session. The interceptor is
// attached before Open returns, so it sees every response of the first navigation.
type Driver interface {
	Open(ctx context.Context, ic *Interceptor) (context.Context, Page, context.CancelFunc, error)
}

// elementsFromHTML evaluates selector against a rendered HTML snapshot
func elementsFromHTML(html, selector string) ([]Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	var out []Element
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, Element{
			Text:     collapseSpace(s.Text()),
			Disabled: isDisabled(s),
		})
	})
	return out, nil
}

// isDisabled reports whether a booking entry is rendered as not selectable
func isDisabled(s *goquery.Selection) bool {
	if _, ok := s.Attr("disabled"); ok {
		return true
	}
	if v, ok := s.Attr("aria-disabled"); ok && strings.EqualFold(v, "true") {
		return true
	}
	if v, ok := s.Attr("data-disabled"); ok && v != "false" {
		return true
	}
	for _, class := range strings.Fields(s.AttrOr("class", "")) {
		c := strings.ToLower(class)
		if c == "disabled" || strings.HasSuffix(c, "-disabled") || strings.HasSuffix(c, "_disabled") || c == "is-disabled" {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
