package provision

import (
	"fmt"
	"strings"
	"time"
)

// Date formats: panel side uses ISO dates, the device scheduler wants its
// own mmm/dd/yyyy form.
const (
	panelDateFormat  = "2006-01-02"
	panelTimeFormat  = "15:04:05"
	deviceDateFormat = "Jan/02/2006"
)

// AddBillingCycle adds months to a date with month-end clamping: Jan 31 plus
// one month is Feb 29 (leap) or Feb 28, never Mar 2.
func AddBillingCycle(t time.Time, months int) time.Time {
	year, month, day := t.Date()

	total := int(month) - 1 + months
	year += total / 12
	month = time.Month(total%12 + 1)

	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}

	hour, min, sec := t.Clock()
	return time.Date(year, month, day, hour, min, sec, 0, t.Location())
}

// lastDayOfMonth returns the number of days in a month
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParsePanelDate parses an ISO date from a panel request
func ParsePanelDate(s string) (time.Time, error) {
	t, err := time.Parse(panelDateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatPanelDate renders a date for panel-side payloads
func FormatPanelDate(t time.Time) string {
	return t.Format(panelDateFormat)
}

// formatDeviceDate renders a date in the scheduler's native form
func formatDeviceDate(t time.Time) string {
	return strings.ToLower(t.Format(deviceDateFormat))
}

// normalizeTime returns a valid HH:MM:SS time-of-day, falling back to
// midnight when the input is empty or malformed
func normalizeTime(s string) string {
	if s == "" {
		return "00:00:00"
	}
	if _, err := time.Parse(panelTimeFormat, s); err != nil {
		return "00:00:00"
	}
	return s
}
