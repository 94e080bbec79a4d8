package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// entries flattens the site's JSON:API-style payloads into plain field maps.
// Accepted shapes: {"data": [...]}, {"data": {...}}, [...] and a bare object;
// an element's "attributes" object is merged over its top-level fields.
func entries(payload interface{}) []map[string]interface{} {
	switch p := payload.(type) {
	case []interface{}:
		var out []map[string]interface{}
		for _, item := range p {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, flatten(m))
			}
		}
		return out
	case map[string]interface{}:
		if data, ok := p["data"]; ok {
			return entries(data)
		}
		return []map[string]interface{}{flatten(p)}
	}
	return nil
}

func flatten(m map[string]interface{}) map[string]interface{} {
	attrs, ok := m["attributes"].(map[string]interface{})
	if !ok {
		return m
	}
	out := make(map[string]interface{}, len(m)+len(attrs))
	for k, v := range m {
		if k != "attributes" {
			out[k] = v
		}
	}
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func stringField(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func numberField(m map[string]interface{}, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// bookable is false only when the entry explicitly says so
func bookable(m map[string]interface{}) bool {
	if b, ok := m["is_bookable"].(bool); ok {
		return b
	}
	return true
}

var (
	timeRegex     = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	// the date may run straight into a "T" time part, so the end is any non-digit
	isoDateRegex  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:\D|$)`)
	dottedDateReg = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})(?:\D|$)`)
)

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// splitDatetime turns a site datetime into ISO date and HH:MM, keeping the
// wall-clock time of the venue rather than converting zones
func splitDatetime(s string) (date, clock string, ok bool) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), t.Format("15:04"), true
		}
	}
	return "", "", false
}

// normalizeTime extracts HH:MM from free text such as "09:00" or "9:00 – 10:00"
func normalizeTime(s string) string {
	m := timeRegex.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	h, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", h, m[2])
}

// normalizeDate extracts an ISO date from "2024-05-11", "2024-05-11T..." or "11.05.2024"
func normalizeDate(s string) string {
	if m := isoDateRegex.FindStringSubmatch(s); m != nil {
		iso := m[1] + "-" + m[2] + "-" + m[3]
		if _, err := time.Parse("2006-01-02", iso); err == nil {
			return iso
		}
	}
	if m := dottedDateReg.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		iso := fmt.Sprintf("%s-%02d-%02d", m[3], mo, d)
		if _, err := time.Parse("2006-01-02", iso); err == nil {
			return iso
		}
	}
	return ""
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
