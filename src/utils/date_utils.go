package utils

import "time"

const DefaultDateFormat = "2006-01-02"

// Alternate layouts seen in exported feeds. Tried in order after the default.
var alternateDateFormats = []string{"2006/01/02", "02-01-2006"}

// ParseDate parses a date string using the default format, falling back to
// the known alternate layouts.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err == nil {
		return t, nil
	}
	for _, layout := range alternateDateFormats {
		if alt, altErr := time.Parse(layout, dateStr); altErr == nil {
			return alt, nil
		}
	}
	return time.Time{}, err
}

// DayKey truncates a timestamp to its calendar day in UTC, the grouping key
// for the daily trend.
func DayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
