package ledger

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the accepted textual date forms, tried in order.
// Four-digit-year layouts come first so "1/2/2006" is never consumed by the
// two-digit variant.
var dateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"01-02-06",
	"1/2/06",
}

// serialEpoch is the spreadsheet serial-date epoch (day 0 = 1899-12-30).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial dates outside this range are treated as plain numbers, not dates.
const (
	minSerial = 1      // 1899-12-31
	maxSerial = 219146 // 2499-12-31
)

// ParseDate normalizes a heterogeneous date representation into a UTC
// calendar date. It accepts a native time value, a numeric day-count since
// the spreadsheet epoch, or text in any of the configured layouts.
//
// Two-digit years resolve with a single fixed pivot (00-68 maps to 20xx,
// 69-99 to 19xx), applied consistently across layouts.
//
// Returns ok=false when nothing matches. ParseDate is pure and never
// errors; policies may call it repeatedly without side effects.
func ParseDate(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return Day(v), true
	case float64:
		return fromSerial(int64(v))
	case int:
		return fromSerial(int64(v))
	case int64:
		return fromSerial(v)
	case string:
		return parseDateString(v)
	default:
		return time.Time{}, false
	}
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	// Cells read back from a sheet may hold a raw serial number as text.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(int64(n))
	}
	return time.Time{}, false
}

func fromSerial(n int64) (time.Time, bool) {
	if n < minSerial || n > maxSerial {
		return time.Time{}, false
	}
	return serialEpoch.AddDate(0, 0, int(n)), true
}
