package shipment

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

var (
	nonNumeric  = regexp.MustCompile(`[^0-9.\-]`)
	excelSerial = regexp.MustCompile(`^\d{5}(\.\d+)?$`)
	hasDigit    = regexp.MustCompile(`\d`)
	cjkDate     = strings.NewReplacer("年", "-", "月", "-", "日", "", "号", "")
)

// dateLayouts are tried before falling back to dateparse. Numeric month and
// day verbs accept both padded and unpadded values.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006-1-2 15:04:05",
	"2006/1/2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04",
	"2006-1-2T15:04:05",
	time.RFC3339,
	"20060102",
}

func isNullLike(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "nan", "nat":
		return true
	}
	return false
}

// cleanText trims the cell and reports false for null-like content.
func cleanText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if isNullLike(s) {
		return "", false
	}
	return s, true
}

// parseQuantity keeps digits, dots and minus signs, parses the remainder and
// truncates it to whole units. Garbled input, including values beyond the
// int64 range, yields 0. Negative values are clamped to 0 and reported
// through the second result.
func parseQuantity(raw string) (int64, bool) {
	cleaned := nonNumeric.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	if d.IsNegative() {
		return 0, true
	}
	d = d.Truncate(0)
	if d.GreaterThan(maxQuantity) {
		return 0, false
	}
	return d.IntPart(), false
}

// parseDate accepts ISO and slash/dot separated dates, Chinese 年月日 dates,
// compact yyyymmdd, five digit Excel serial numbers and anything dateparse
// understands. The result is truncated to the calendar date in loc.
func parseDate(raw string, loc *time.Location) (time.Time, bool) {
	s, ok := cleanText(raw)
	if !ok || !hasDigit.MatchString(s) {
		return time.Time{}, false
	}
	if excelSerial.MatchString(s) {
		serial, err := strconv.ParseFloat(s, 64)
		if err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
			}
		}
	}
	s = cjkDate.Replace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return dateOnly(t, loc), true
		}
	}
	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return dateOnly(t, loc), true
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// daysBetween counts calendar days from a to b, ignoring clock time and
// daylight saving shifts.
func daysBetween(a, b time.Time) int64 {
	from := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int64(to.Sub(from) / (24 * time.Hour))
}

func overdueDays(planned *time.Time, today time.Time) int64 {
	if planned == nil {
		return 0
	}
	return max(daysBetween(*planned, today), 0)
}
