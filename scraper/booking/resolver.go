package booking

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"slot-scraper/config"
)

// Resolution describes which candidate strategy matched a semantic target
type Resolution struct {
	Text     string
	Strategy int    // index into the target's candidate list
	Selector string // css selector of the matching strategy, empty for regex strategies
}

// Resolver evaluates the ordered selector candidates of a semantic target
// against a live page and stops at the first strategy that yields text
type Resolver struct {
	candidates   map[string][]config.Strategy
	patterns     map[string]map[int]*regexp.Regexp
	probeTimeout time.Duration

	mu    sync.Mutex
	usage map[string]map[int]int
}

// NewResolver compiles the candidate lists. Invalid patterns are skipped at lookup time;
// config.Validate rejects them before a Resolver is ever built.
func NewResolver(candidates map[string][]config.Strategy, probeTimeout time.Duration) *Resolver {
	r := &Resolver{
		candidates:   candidates,
		patterns:     make(map[string]map[int]*regexp.Regexp),
		probeTimeout: probeTimeout,
		usage:        make(map[string]map[int]int),
	}
	for target, list := range candidates {
		for i, s := range list {
			if s.Kind != config.StrategyRegex {
				continue
			}
			re, err := regexp.Compile(s.Pattern)
			if err != nil {
				continue
			}
			if r.patterns[target] == nil {
				r.patterns[target] = make(map[int]*regexp.Regexp)
			}
			r.patterns[target][i] = re
		}
	}
	return r
}

// Resolve returns the text of target found by the first matching strategy.
// ok is false when every strategy failed; the field is then unresolved.
func (r *Resolver) Resolve(ctx context.Context, page Page, target string) (res Resolution, ok bool) {
	var bodyText *string
	for i, s := range r.candidates[target] {
		if ctx.Err() != nil {
			return Resolution{}, false
		}
		var text string
		switch s.Kind {
		case config.StrategyRegex:
			re := r.patterns[target][i]
			if re == nil {
				continue
			}
			if bodyText == nil {
				body, _ := r.text(ctx, page, "body")
				bodyText = &body
			}
			text = firstMatch(re, *bodyText)
		default:
			text, _ = r.text(ctx, page, s.Selector)
		}
		if text == "" {
			continue
		}
		r.count(target, i)
		res = Resolution{Text: text, Strategy: i}
		if s.Kind != config.StrategyRegex {
			res.Selector = s.Selector
		}
		return res, true
	}
	return Resolution{}, false
}

// ResolveList returns every element matched by the first css strategy of target
// that matches at least one element
func (r *Resolver) ResolveList(ctx context.Context, page Page, target string) ([]Element, Resolution, bool) {
	els, res, ok := r.list(ctx, page, target)
	if ok {
		r.count(target, res.Strategy)
	}
	return els, res, ok
}

// Present reports whether any css strategy of target matches, without counting usage
func (r *Resolver) Present(ctx context.Context, page Page, target string) bool {
	_, _, ok := r.list(ctx, page, target)
	return ok
}

func (r *Resolver) list(ctx context.Context, page Page, target string) ([]Element, Resolution, bool) {
	for i, s := range r.candidates[target] {
		if s.Kind == config.StrategyRegex {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		pctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
		els, err := page.Elements(pctx, s.Selector)
		cancel()
		if err != nil || len(els) == 0 {
			continue
		}
		return els, Resolution{Text: els[0].Text, Strategy: i, Selector: s.Selector}, true
	}
	return nil, Resolution{}, false
}

func (r *Resolver) text(ctx context.Context, page Page, selector string) (string, error) {
	pctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	text, err := page.VisibleText(pctx, selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (r *Resolver) count(target string, strategy int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usage[target] == nil {
		r.usage[target] = make(map[int]int)
	}
	r.usage[target][strategy]++
}

// Usage returns how often each strategy index succeeded, per target
func (r *Resolver) Usage() map[string]map[int]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]map[int]int, len(r.usage))
	for target, m := range r.usage {
		cp := make(map[int]int, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[target] = cp
	}
	return out
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(m) > 1 && m[1] != "" {
		return collapseSpace(m[1])
	}
	return collapseSpace(m[0])
}
