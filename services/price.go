package services

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	amountRegex    = regexp.MustCompile(`\d[\d.,]*`)
	thousandsRegex = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// ParsePrice extracts the first amount from captured price text.
// "1 200 ₽" -> 1200, "1200-1500" -> 1200, "1,500.50" -> 1500.5, "990,50" -> 990.5
func ParsePrice(raw string) (float64, bool) {
	// drop every kind of space so grouped digits join up
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0', '\u2009', '\u202f':
			return -1
		}
		return r
	}, raw)

	m := amountRegex.FindString(compact)
	if m == "" {
		return 0, false
	}
	m = strings.TrimRight(m, ".,")
	if thousandsRegex.MatchString(m) {
		m = strings.ReplaceAll(m, ",", "")
	} else {
		m = strings.ReplaceAll(m, ",", ".")
	}

	val, err := strconv.ParseFloat(m, 64)
	if err != nil || val < 0 {
		return 0, false
	}
	return val, true
}
