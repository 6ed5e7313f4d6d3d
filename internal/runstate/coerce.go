package runstate

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var leadingDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// timestampLayouts are tried in order by ParseTimestamp. Layouts without a
// zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp shapes the backend and browsers
// produce. Anything else is reported as not ok.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp is the single format timestamps are stored in
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// asNumber accepts only numeric types and rejects NaN/Inf
func asNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseNumber is asNumber plus numeric strings
func parseNumber(v interface{}) (float64, bool) {
	if f, ok := asNumber(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// asString renders strings and numbers; other types are not ok
func asString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case json.Number:
		return s.String(), true
	case bool:
		return strconv.FormatBool(s), true
	}
	if f, ok := asNumber(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// nullableString trims and turns empty values into nil
func nullableString(v interface{}) *string {
	if v == nil {
		return nil
	}
	s, ok := asString(v)
	if !ok {
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ExtractDate pulls a YYYY-MM-DD date out of a date or datetime string.
// Strings without a leading date are returned as-is.
func ExtractDate(v interface{}) *string {
	if t, ok := v.(time.Time); ok {
		if t.IsZero() {
			return nil
		}
		date := t.Format("2006-01-02")
		return &date
	}
	s := nullableString(v)
	if s == nil {
		return nil
	}
	if m := leadingDate.FindStringSubmatch(*s); m != nil {
		date := m[1]
		return &date
	}
	return s
}

// clampIndex clamps a float cursor into [0, n-1]
func clampIndex(f float64, n int) int {
	if n <= 0 || f <= 0 {
		return 0
	}
	if f >= float64(n-1) {
		return n - 1
	}
	return int(math.Trunc(f))
}
