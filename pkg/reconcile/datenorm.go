package reconcile

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// closeOfBusinessHour is the local wall-clock time a date-only sheet value refers to.
const closeOfBusinessHour = 18

// argentina is UTC-3 without DST, the offset date-only values are expressed in.
var argentina = time.FixedZone("UTC-3", -3*60*60)

var (
	sheetDatePattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:\s+(\d{1,2}):(\d{2}):(\d{2}))?$`)
	quarterDatePattern = regexp.MustCompile(`^(\d{4})\s*-?\s*[QT]([1-4])$`)
)

// NormalizeSheetDate converts a spreadsheet date (D/M/YYYY with an optional
// HH:MM:SS) into an instant. A time of day is read as UTC; a bare date is read
// as 18:00 at UTC-3. ok is false when the input does not match or is not a
// real calendar date.
func NormalizeSheetDate(raw string) (time.Time, bool) {
	m := sheetDatePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if m[4] == "" {
		t, ok := buildDate(year, month, day, closeOfBusinessHour, 0, 0, argentina)
		if !ok {
			return time.Time{}, false
		}
		return t.UTC(), true
	}

	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second, _ := strconv.Atoi(m[6])
	return buildDate(year, month, day, hour, minute, second, time.UTC)
}

// ParseCalendarDate reads a calendar date in any of the shapes upstream
// providers emit and returns midnight UTC of that date.
func ParseCalendarDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.DateOnly, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}

	if m := sheetDatePattern.FindStringSubmatch(value); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return buildDate(year, month, day, 0, 0, 0, time.UTC)
	}

	if t, err := time.Parse("2006-01", value); err == nil {
		return t.UTC(), true
	}

	if m := quarterDatePattern.FindStringSubmatch(strings.ToUpper(value)); m != nil {
		year, _ := strconv.Atoi(m[1])
		quarter, _ := strconv.Atoi(m[2])
		return time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// buildDate rejects components time.Date would silently roll over.
func buildDate(year, month, day, hour, minute, second int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}
